// Package segment decodes a single Borg segment file into its ordered
// sequence of PUT / DELETE / COMMIT log entries.
package segment

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/lily-mara/bork/borgerr"
)

// Magic is the 8-byte header every segment file begins with.
const Magic = "BORG_SEG"

// recordHeaderLen is crc(4) + size(4) + tag(1) + key(32); the minimum
// a PUT record's size field may legally report.
const recordHeaderLen = 4 + 4 + 1 + 32

// Tag identifies the kind of a decoded LogEntry.
type Tag uint8

const (
	TagPut Tag = iota
	TagDelete
	TagCommit
)

func (t Tag) String() string {
	switch t {
	case TagPut:
		return "PUT"
	case TagDelete:
		return "DELETE"
	case TagCommit:
		return "COMMIT"
	default:
		return fmt.Sprintf("Tag(%d)", uint8(t))
	}
}

// LogEntry is one framed record read from a segment: a PUT carries Key
// and Data, a DELETE carries only Key, a COMMIT carries neither.
type LogEntry struct {
	Tag  Tag
	Key  [32]byte
	Data []byte
}

// Reader decodes one segment's record stream. It is single-pass;
// re-reading a segment means reopening its underlying file.
type Reader struct {
	r   *bufio.Reader
	err error
}

// Open consumes and validates the segment magic, then returns a Reader
// positioned at the first record.
func Open(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)

	magic := make([]byte, len(Magic))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, &borgerr.FramingError{Op: "read magic", Err: err}
	}
	if string(magic) != Magic {
		return nil, &borgerr.FramingError{Op: "read magic", Err: fmt.Errorf("not a segment: got %q, want %q", magic, Magic)}
	}

	return &Reader{r: br}, nil
}

// Next decodes the next log entry. It returns io.EOF, with a zero
// LogEntry, once the stream ends cleanly between records. A short
// read inside a record (i.e. after at least one byte of the crc/size
// header has been consumed) is a fatal FramingError, not a clean EOF.
func (r *Reader) Next() (LogEntry, error) {
	if r.err != nil {
		return LogEntry{}, r.err
	}

	entry, err := r.next()
	if err != nil {
		if err != io.EOF {
			r.err = err
		} else {
			r.err = io.EOF
		}
	}
	return entry, err
}

func (r *Reader) next() (LogEntry, error) {
	var hdr [9]byte // crc(4) + size(4) + tag(1)
	n, err := io.ReadFull(r.r, hdr[:])
	if err != nil {
		if errors.Is(err, io.EOF) && n == 0 {
			return LogEntry{}, io.EOF
		}
		return LogEntry{}, &borgerr.FramingError{Op: "read record header", Err: fmt.Errorf("truncated record: %w", err)}
	}

	size := binary.LittleEndian.Uint32(hdr[4:8])
	tag := Tag(hdr[8])

	switch tag {
	case TagPut:
		if size < recordHeaderLen {
			return LogEntry{}, &borgerr.FramingError{Op: "read PUT", Err: fmt.Errorf("size %d smaller than minimum %d", size, recordHeaderLen)}
		}
		var key [32]byte
		if _, err := io.ReadFull(r.r, key[:]); err != nil {
			return LogEntry{}, &borgerr.FramingError{Op: "read PUT key", Err: fmt.Errorf("truncated record: %w", err)}
		}
		data := make([]byte, size-recordHeaderLen)
		if _, err := io.ReadFull(r.r, data); err != nil {
			return LogEntry{}, &borgerr.FramingError{Op: "read PUT payload", Err: fmt.Errorf("truncated record: %w", err)}
		}
		return LogEntry{Tag: TagPut, Key: key, Data: data}, nil

	case TagDelete:
		var key [32]byte
		if _, err := io.ReadFull(r.r, key[:]); err != nil {
			return LogEntry{}, &borgerr.FramingError{Op: "read DELETE key", Err: fmt.Errorf("truncated record: %w", err)}
		}
		return LogEntry{Tag: TagDelete, Key: key}, nil

	case TagCommit:
		return LogEntry{Tag: TagCommit}, nil

	default:
		return LogEntry{}, &borgerr.FramingError{Op: "read record", Err: fmt.Errorf("unknown tag %d", tag)}
	}
}
