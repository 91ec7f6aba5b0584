package repo

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/lily-mara/bork/borgerr"
)

// FileBackend reads a repository laid out directly on a local
// filesystem: config at <path>/config, segments under
// <path>/data/<bucket>/<seg>, hints/index siblings at the top level.
type FileBackend struct {
	Path string
}

func (f *FileBackend) ReadConfig() ([]byte, error) {
	b, err := os.ReadFile(filepath.Join(f.Path, "config"))
	if err != nil {
		return nil, &borgerr.ConfigError{Op: "read config", Err: err}
	}
	return b, nil
}

// Segments enumerates <path>/data/<bucket>/<seg> for non-negative
// decimal bucket and seg names, sorted ascending by (bucket, seg).
// Non-numeric names and non-directory top-level entries are skipped,
// not an error.
func (f *FileBackend) Segments() ([]SegmentRef, error) {
	dataDir := filepath.Join(f.Path, "data")
	buckets, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, &borgerr.LayoutError{Op: "read data directory", Err: err}
	}

	var bucketNums []int
	for _, b := range buckets {
		if !b.IsDir() {
			continue
		}
		n, ok := parseNonNegativeInt(b.Name())
		if !ok {
			continue
		}
		bucketNums = append(bucketNums, n)
	}
	sort.Ints(bucketNums)

	var refs []SegmentRef
	for _, bucket := range bucketNums {
		bucketDir := filepath.Join(dataDir, strconv.Itoa(bucket))
		entries, err := os.ReadDir(bucketDir)
		if err != nil {
			return nil, &borgerr.LayoutError{Op: "read bucket directory", Err: err}
		}

		var segNums []int
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			n, ok := parseNonNegativeInt(e.Name())
			if !ok {
				continue
			}
			segNums = append(segNums, n)
		}
		sort.Ints(segNums)

		for _, seg := range segNums {
			refs = append(refs, SegmentRef{Bucket: bucket, Seg: seg})
		}
	}

	return refs, nil
}

func (f *FileBackend) OpenSegment(ref SegmentRef) (io.ReadCloser, error) {
	p := filepath.Join(f.Path, "data", strconv.Itoa(ref.Bucket), strconv.Itoa(ref.Seg))
	file, err := os.Open(p)
	if err != nil {
		return nil, &borgerr.LayoutError{Op: "open segment", Err: err}
	}
	return file, nil
}

func (f *FileBackend) Hints() ([]AuxRef, error) {
	return f.auxRefs("hints.", AuxHint)
}

func (f *FileBackend) Indices() ([]AuxRef, error) {
	return f.auxRefs("index.", AuxIndex)
}

func (f *FileBackend) auxRefs(prefix string, kind AuxKind) ([]AuxRef, error) {
	entries, err := os.ReadDir(f.Path)
	if err != nil {
		return nil, &borgerr.LayoutError{Op: "read repository directory", Err: err}
	}

	var refs []AuxRef
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		n, ok := parseNonNegativeInt(strings.TrimPrefix(e.Name(), prefix))
		if !ok {
			continue
		}
		refs = append(refs, AuxRef{Kind: kind, Txid: n})
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].Txid < refs[j].Txid })
	return refs, nil
}

func (f *FileBackend) OpenAux(ref AuxRef) (io.ReadCloser, error) {
	var name string
	switch ref.Kind {
	case AuxHint:
		name = "hints." + strconv.Itoa(ref.Txid)
	case AuxIndex:
		name = "index." + strconv.Itoa(ref.Txid)
	}
	file, err := os.Open(filepath.Join(f.Path, name))
	if err != nil {
		return nil, &borgerr.LayoutError{Op: "open auxiliary file", Err: err}
	}
	return file, nil
}

func parseNonNegativeInt(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
