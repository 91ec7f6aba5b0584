//go:build ceph

package repo

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/ceph/go-ceph/rados"

	"github.com/lily-mara/bork/borgerr"
)

// CephBackend treats a RADOS pool as a repository root: every object
// is named <Prefix>/<relative path>, mirroring S3Backend's key scheme
// since RADOS object names are just opaque strings.
type CephBackend struct {
	UserName    string
	ClusterName string
	ConfFile    string
	Pool        string
	Prefix      string

	mu    sync.Mutex
	conn  *rados.Conn
	ioctx *rados.IOContext
}

func (b *CephBackend) ensureOpen() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ioctx != nil {
		return nil
	}

	conn, err := rados.NewConnWithClusterAndUser(b.ClusterName, b.UserName)
	if err != nil {
		return &borgerr.ConfigError{Op: "connect to ceph cluster", Err: err}
	}
	if b.ConfFile != "" {
		if err := conn.ReadConfigFile(b.ConfFile); err != nil {
			return &borgerr.ConfigError{Op: "read ceph conf file", Err: err}
		}
	} else if err := conn.ReadDefaultConfigFile(); err != nil {
		return &borgerr.ConfigError{Op: "read default ceph conf", Err: err}
	}
	if err := conn.Connect(); err != nil {
		return &borgerr.ConfigError{Op: "connect to ceph", Err: err}
	}

	ioctx, err := conn.OpenIOContext(b.Pool)
	if err != nil {
		return &borgerr.ConfigError{Op: "open ceph pool", Err: err}
	}

	b.conn = conn
	b.ioctx = ioctx
	return nil
}

func (b *CephBackend) obj(name string) string {
	prefix := strings.TrimSuffix(b.Prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

func (b *CephBackend) readObject(name string) ([]byte, error) {
	if err := b.ensureOpen(); err != nil {
		return nil, err
	}
	obj := b.obj(name)
	stat, err := b.ioctx.Stat(obj)
	if err != nil {
		return nil, err
	}
	data := make([]byte, stat.Size)
	n, err := b.ioctx.Read(obj, data, 0)
	if err != nil {
		return nil, err
	}
	return data[:n], nil
}

func (b *CephBackend) ReadConfig() ([]byte, error) {
	data, err := b.readObject("config")
	if err != nil {
		return nil, &borgerr.ConfigError{Op: "read config", Err: err}
	}
	return data, nil
}

// Segments relies on a manifest object listing every (bucket, seg)
// pair, since RADOS has no directory listing: <Prefix>/data.manifest
// holds a newline-separated "<bucket> <seg>" list written alongside
// each segment by the tool that populated the pool.
func (b *CephBackend) Segments() ([]SegmentRef, error) {
	data, err := b.readObject("data.manifest")
	if err != nil {
		return nil, &borgerr.LayoutError{Op: "read segment manifest", Err: err}
	}

	var refs []SegmentRef
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var bucket, seg int
		if _, err := fmt.Sscanf(line, "%d %d", &bucket, &seg); err != nil {
			continue
		}
		refs = append(refs, SegmentRef{Bucket: bucket, Seg: seg})
	}

	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Bucket != refs[j].Bucket {
			return refs[i].Bucket < refs[j].Bucket
		}
		return refs[i].Seg < refs[j].Seg
	})
	return refs, nil
}

func (b *CephBackend) OpenSegment(ref SegmentRef) (io.ReadCloser, error) {
	data, err := b.readObject(fmt.Sprintf("data/%d/%d", ref.Bucket, ref.Seg))
	if err != nil {
		return nil, &borgerr.LayoutError{Op: "open segment", Err: err}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *CephBackend) Hints() ([]AuxRef, error)   { return nil, nil }
func (b *CephBackend) Indices() ([]AuxRef, error) { return nil, nil }

func (b *CephBackend) OpenAux(ref AuxRef) (io.ReadCloser, error) {
	var name string
	switch ref.Kind {
	case AuxHint:
		name = fmt.Sprintf("hints.%d", ref.Txid)
	case AuxIndex:
		name = fmt.Sprintf("index.%d", ref.Txid)
	}
	data, err := b.readObject(name)
	if err != nil {
		return nil, &borgerr.LayoutError{Op: "open auxiliary object", Err: err}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
