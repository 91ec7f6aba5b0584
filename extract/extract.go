// Package extract walks a replayed object store from its manifest down
// through archives and items to chunks, writing backed-up files to an
// output directory.
package extract

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lily-mara/bork/borgerr"
	"github.com/lily-mara/bork/envelope"
	"github.com/lily-mara/bork/objectstore"
	"github.com/lily-mara/bork/repo"
	"github.com/lily-mara/bork/value"
)

var (
	openOutputMu sync.Mutex
	openOutput   *os.File
)

// CloseOpenOutput closes whatever output file Run currently has open, if
// any. It is meant to be registered as a process exit hook so a file left
// open by an interrupted run (panic, signal) isn't left dangling; a run
// that completes normally has already closed its own files and this is a
// no-op.
func CloseOpenOutput() error {
	openOutputMu.Lock()
	defer openOutputMu.Unlock()
	if openOutput == nil {
		return nil
	}
	err := openOutput.Close()
	openOutput = nil
	return err
}

// Summary reports what an extraction run wrote.
type Summary struct {
	ArchivesWritten int
	FilesWritten    int
	BytesWritten    int64
}

type backendSegmentSource struct {
	backend repo.Backend
	refs    []repo.SegmentRef
	i       int
}

func (s *backendSegmentSource) Open() (io.ReadCloser, error) {
	if s.i >= len(s.refs) {
		return nil, io.EOF
	}
	ref := s.refs[s.i]
	s.i++
	return s.backend.OpenSegment(ref)
}

// BuildStore replays every segment a backend reports, in order, into a
// live object store.
func BuildStore(backend repo.Backend) (*objectstore.Store, error) {
	refs, err := backend.Segments()
	if err != nil {
		return nil, err
	}
	return objectstore.Build(&backendSegmentSource{backend: backend, refs: refs})
}

func fetchAndUnwrap(store *objectstore.Store, id objectstore.Id, op string) ([]byte, bool, error) {
	blob, ok := store.Get(id)
	if !ok {
		return nil, false, nil
	}
	payload, err := envelope.Unwrap(blob)
	if err != nil {
		return nil, false, &borgerr.EnvelopeError{Op: op, Err: err}
	}
	return payload, true, nil
}

func toObjectstoreId(id value.Id) objectstore.Id {
	return objectstore.Id(id)
}

// Run walks manifest -> archives -> items -> chunks and writes one flat
// output file per item under outDir, with '/' mapped to "__" in the
// item's recorded path. Missing archives are skipped (non-fatal);
// missing chunks are fatal.
func Run(store *objectstore.Store, outDir string) (Summary, error) {
	var summary Summary

	manifestBlob, ok, err := fetchAndUnwrap(store, objectstore.ManifestId, "unwrap manifest")
	if err != nil {
		return summary, err
	}
	if !ok {
		return summary, &borgerr.ReferenceError{Op: "lookup manifest", Err: errManifestMissing{}}
	}

	manifest, err := value.DecodeManifest(manifestBlob)
	if err != nil {
		return summary, err
	}

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return summary, &borgerr.LayoutError{Op: "create output directory", Err: err}
	}

	for _, archiveEntry := range manifest.Archives {
		archiveId := toObjectstoreId(archiveEntry.Id)
		archiveBlob, ok, err := fetchAndUnwrap(store, archiveId, "unwrap archive")
		if err != nil {
			return summary, err
		}
		if !ok {
			// manifest may reference an archive being deleted concurrently
			continue
		}

		archive, err := value.DecodeArchive(archiveBlob)
		if err != nil {
			return summary, err
		}
		summary.ArchivesWritten++

		for _, itemId := range archive.Items {
			itemBlob, ok, err := fetchAndUnwrap(store, toObjectstoreId(itemId), "unwrap item")
			if err != nil {
				return summary, err
			}
			if !ok {
				continue
			}

			d := value.NewDecoder(itemBlob)
			for d.More() {
				item, err := value.DecodeItemMetadata(d)
				if err != nil {
					return summary, err
				}

				n, err := writeItem(store, outDir, item)
				if err != nil {
					return summary, err
				}
				summary.FilesWritten++
				summary.BytesWritten += n
			}
		}
	}

	return summary, nil
}

func writeItem(store *objectstore.Store, outDir string, item value.ItemMetadata) (int64, error) {
	name := strings.ReplaceAll(item.Path, "/", "__")
	outPath := filepath.Join(outDir, name)

	f, err := os.Create(outPath)
	if err != nil {
		return 0, &borgerr.LayoutError{Op: "create output file", Err: err}
	}
	openOutputMu.Lock()
	openOutput = f
	openOutputMu.Unlock()
	defer func() {
		openOutputMu.Lock()
		if openOutput == f {
			openOutput = nil
		}
		openOutputMu.Unlock()
		f.Close()
	}()

	var written int64
	for _, chunk := range item.Chunks {
		payload, ok, err := fetchAndUnwrap(store, toObjectstoreId(chunk.Id), "unwrap chunk")
		if err != nil {
			return written, err
		}
		if !ok {
			return written, &borgerr.ReferenceError{Op: "lookup chunk", Err: errChunkMissing{}}
		}
		n, err := f.Write(payload)
		if err != nil {
			return written, &borgerr.LayoutError{Op: "write output file", Err: err}
		}
		written += int64(n)
	}

	return written, nil
}

type errManifestMissing struct{}

func (errManifestMissing) Error() string { return "manifest missing" }

type errChunkMissing struct{}

func (errChunkMissing) Error() string { return "chunk missing" }
