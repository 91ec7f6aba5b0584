// Package repo abstracts over where a repository's bytes live: a
// local filesystem directory, an S3-compatible bucket, or a Ceph/RADOS
// pool. Every implementation is read-only — the extractor never writes
// back to a repository.
package repo

import "io"

// SegmentRef identifies one segment file in the global replay order,
// independent of how the backend actually stores it.
type SegmentRef struct {
	Bucket int
	Seg    int
}

// AuxKind distinguishes the two sibling auxiliary file families.
type AuxKind int

const (
	AuxHint AuxKind = iota
	AuxIndex
)

// AuxRef identifies a hint or index sibling file by its transaction id.
type AuxRef struct {
	Kind AuxKind
	Txid int
}

// Backend is a pluggable source of repository bytes.
type Backend interface {
	// ReadConfig returns the raw bytes of the repository's config file.
	ReadConfig() ([]byte, error)

	// Segments enumerates every segment in ascending (bucket, seg) order.
	Segments() ([]SegmentRef, error)

	// OpenSegment opens the segment named by ref for linear, single-pass reading.
	OpenSegment(ref SegmentRef) (io.ReadCloser, error)

	// Hints enumerates hints.<txid> siblings. Diagnostic only; the core
	// replay path never consumes them.
	Hints() ([]AuxRef, error)

	// Indices enumerates index.<txid> siblings. Diagnostic only.
	Indices() ([]AuxRef, error)

	// OpenAux opens a hint or index file named by ref.
	OpenAux(ref AuxRef) (io.ReadCloser, error)
}
