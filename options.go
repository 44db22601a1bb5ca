package qres

// WriterOption configures a Writer, following the teacher's functional
// options idiom (WithBlockSize/WithCompression in writer.go) rather than a
// config file or struct literal: spec.md §6.3 explicitly excludes a
// configuration-file surface, so options are this package's entire
// configuration layer.
type WriterOption func(*Writer)

// WithVersion selects the container format version to emit (1, 2, or 3).
// Version 3 adds the header's overall_flags word and is the default.
func WithVersion(version uint32) WriterOption {
	return func(w *Writer) {
		w.version = version
	}
}

// WithCompressionAlgorithm selects how freshly added, uncompressed files
// are compressed on save. It has no effect on files that already carry a
// compression flag from their source container.
func WithCompressionAlgorithm(algo CompressionAlgorithm) WriterOption {
	return func(w *Writer) {
		w.algo = algo
	}
}

// WithZstdShrinkThreshold overrides the percentage the cheap level-1 zstd
// trial must beat before the writer pays for the expensive "store" pass.
func WithZstdShrinkThreshold(pct int) WriterOption {
	return func(w *Writer) {
		w.zstdShrinkThreshold = pct
	}
}
