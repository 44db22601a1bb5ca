package qres

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestZlibRoundTrip(t *testing.T) {
	payloads := [][]byte{
		[]byte("hi\n"),
		[]byte(""),
		bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 200),
	}
	for _, want := range payloads {
		encoded, err := zlibEncode(want)
		require.NoError(t, err)

		got, err := zlibDecode(encoded)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestZlibDecodeRejectsShortPayload(t *testing.T) {
	_, err := zlibDecode([]byte{0, 1})
	require.ErrorIs(t, err, ErrCodec)
}

func TestZstdRoundTrip(t *testing.T) {
	payloads := [][]byte{
		[]byte("hi\n"),
		[]byte(""),
		bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 200),
	}
	for _, want := range payloads {
		encoded, err := zstdEncode(want, DefaultZstdShrinkThreshold)
		require.NoError(t, err)

		got, err := zstdDecode(encoded)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestZstdEncodeAtLevelRejectsExperimentalLevels(t *testing.T) {
	_, err := zstdEncodeAtLevel([]byte("x"), MaxZstdLevel+1)
	require.ErrorIs(t, err, ErrCodec)
}

func TestZstdShrinkThresholdPromotesCompressiblePayload(t *testing.T) {
	// highly compressible input should trigger the store-level pass when
	// the threshold is permissive
	data := bytes.Repeat([]byte("a"), 10_000)
	encoded, err := zstdEncode(data, 90)
	require.NoError(t, err)

	want, err := zstdEncodeAtLevel(data, 14)
	require.NoError(t, err)
	require.Equal(t, want, encoded, "expected the store-level (14) encoding")

	got, err := zstdDecode(encoded)
	require.NoError(t, err)
	require.Equal(t, data, got)
}
