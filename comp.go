package qres

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// DefaultZstdShrinkThreshold is the percentage (of the original size) the
// cheap level-1 zstd trial must beat before the writer pays for a second,
// much more expensive pass at store level. 0 means "never bother with the
// expensive pass", 100 means "whenever the trial shrinks the data at all".
const DefaultZstdShrinkThreshold = 90

// MaxZstdLevel is the highest standard zstd compression level this package
// will request; levels above it are marked experimental upstream.
const MaxZstdLevel = 19

// zlibEncode compresses data with klauspost/compress/zlib at best-compression
// level and prepends the 4-byte big-endian uncompressed length the host
// framework's own zlib helper writes (see SPEC_FULL.md §4.C / §9).
func zlibEncode(data []byte) ([]byte, error) {
	var body bytes.Buffer
	w, err := zlib.NewWriterLevel(&body, zlib.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("%w: zlib writer: %v", ErrCodec, err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, fmt.Errorf("%w: zlib write: %v", ErrCodec, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: zlib close: %v", ErrCodec, err)
	}

	out := make([]byte, 4+body.Len())
	copy(out[:4], encodeU32(uint32(len(data))))
	copy(out[4:], body.Bytes())
	return out, nil
}

// zlibDecode consumes the 4-byte uncompressed-length prefix (used only to
// size the output buffer) then inflates the raw zlib stream that follows.
func zlibDecode(data []byte) ([]byte, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: zlib payload too short", ErrCodec)
	}
	uncompressedLen := decodeU32(data[:4])

	r, err := zlib.NewReader(bytes.NewReader(data[4:]))
	if err != nil {
		return nil, fmt.Errorf("%w: zlib reader: %v", ErrCodec, err)
	}
	defer r.Close()

	out := make([]byte, 0, uncompressedLen)
	buf := bytes.NewBuffer(out)
	if _, err := io.Copy(buf, r); err != nil {
		return nil, fmt.Errorf("%w: zlib inflate: %v", ErrCodec, err)
	}
	return buf.Bytes(), nil
}

// zstdEncode implements the cheap-trial/promote heuristic of SPEC_FULL.md
// §4.C: compress once at the cheapest level, and only pay for the
// expensive, much slower "store" level if the cheap pass already proves the
// data compresses well enough (below shrinkThresholdPct percent of its
// original size).
func zstdEncode(data []byte, shrinkThresholdPct int) ([]byte, error) {
	trial, err := zstdEncodeAtLevel(data, 1)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return trial, nil
	}
	ratio := len(trial) * 100 / len(data)
	if ratio >= shrinkThresholdPct {
		// the cheap trial didn't compress well enough to be worth a second pass
		return trial, nil
	}
	return zstdEncodeAtLevel(data, 14)
}

func zstdEncodeAtLevel(data []byte, level int) ([]byte, error) {
	if level > MaxZstdLevel {
		return nil, fmt.Errorf("%w: zstd level %d is experimental and forbidden", ErrCodec, level)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return nil, fmt.Errorf("%w: zstd encoder: %v", ErrCodec, err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

// zstdDecode queries the frame's content size and decodes it in one shot.
func zstdDecode(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd decoder: %v", ErrCodec, err)
	}
	defer dec.Close()

	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd decode: %v", ErrCodec, err)
	}
	return out, nil
}
