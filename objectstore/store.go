// Package objectstore folds ordered segment log entries into the live
// key→value mapping a repository's object graph is read through.
package objectstore

import (
	"io"

	"github.com/lily-mara/bork/segment"
)

// Id is a 32-byte content identifier. The all-zero Id denotes the manifest.
type Id [32]byte

// ManifestId is the distinguished all-zero identifier.
var ManifestId Id

// Store is the frozen key→value mapping produced by replaying every
// segment in ascending id order. It is built once and read-only
// thereafter; nothing in this package mutates it after Build returns.
type Store struct {
	objects map[Id][]byte
}

// Get returns the stored blob for id, and whether it was present.
func (s *Store) Get(id Id) ([]byte, bool) {
	b, ok := s.objects[id]
	return b, ok
}

// Len reports the number of live objects after replay.
func (s *Store) Len() int { return len(s.objects) }

// SegmentSource supplies segments in the order they must be replayed.
type SegmentSource interface {
	// Open returns a reader for the next segment in replay order, or
	// io.EOF (with a nil reader) once all segments have been consumed.
	Open() (io.ReadCloser, error)
}

// Build replays every segment yielded by src, in order, folding PUT,
// DELETE and COMMIT entries into a new Store. A Put overwrites any
// existing mapping for its key; a Delete removes one if present
// (a missing key is not an error); Commit is a no-op in this core —
// records past the last Commit are not treated as provisional.
func Build(src SegmentSource) (*Store, error) {
	store := &Store{objects: make(map[Id][]byte)}

	for {
		rc, err := src.Open()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		if err := replaySegment(store, rc); err != nil {
			rc.Close()
			return nil, err
		}
		rc.Close()
	}

	return store, nil
}

func replaySegment(store *Store, r io.Reader) error {
	reader, err := segment.Open(r)
	if err != nil {
		return err
	}

	for {
		entry, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		switch entry.Tag {
		case segment.TagPut:
			store.objects[Id(entry.Key)] = entry.Data
		case segment.TagDelete:
			delete(store.objects, Id(entry.Key))
		case segment.TagCommit:
			// no-op: this core does not roll back uncommitted trailing records
		}
	}
}
