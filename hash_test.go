package qres

import "testing"

// TestQtHashReferenceValues is property P6: fixed reference strings must
// hash to the precomputed values from the glossary.
func TestQtHashReferenceValues(t *testing.T) {
	cases := []struct {
		name string
		want uint32
	}{
		{"", 0},
		{":", 58},
		{"a", 97},
	}
	for _, tc := range cases {
		if got := qtHash(tc.name); got != tc.want {
			t.Errorf("qtHash(%q) = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestQtHashHelloTxt(t *testing.T) {
	want := uint32(0)
	for _, c := range "hello.txt" {
		want = 31*want + uint32(c)
	}
	if got := qtHash("hello.txt"); got != want {
		t.Errorf("qtHash(\"hello.txt\") = %d, want %d", got, want)
	}
}

func TestUTF16RoundTrip(t *testing.T) {
	names := []string{"", "a", "hello.txt", "résumé", "日本語"}
	for _, n := range names {
		got := decodeUTF16(utf16Units(n))
		if got != n {
			t.Errorf("utf16 round trip failed for %q: got %q", n, got)
		}
	}
}
