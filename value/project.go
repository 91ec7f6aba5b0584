package value

import (
	"fmt"

	"github.com/lily-mara/bork/borgerr"
)

// DecodeId decodes a 32-byte identifier from any byte-buffer variant.
// A length mismatch is fatal.
func DecodeId(d *Decoder) (Id, error) {
	v, err := d.DecodeDynamic()
	if err != nil {
		return Id{}, &borgerr.DecodeError{Op: "decode id", Err: err}
	}
	return dynamicToId(v)
}

func dynamicToId(v Dynamic) (Id, error) {
	if v.Kind != KindBytes {
		return Id{}, &borgerr.DecodeError{Op: "decode id", Err: fmt.Errorf("expected byte buffer, got %s", kindName(v.Kind))}
	}
	if len(v.Bytes) != 32 {
		return Id{}, &borgerr.DecodeError{Op: "decode id", Err: fmt.Errorf("expected 32 bytes, got %d", len(v.Bytes))}
	}
	var id Id
	copy(id[:], v.Bytes)
	return id, nil
}

func kindName(k Kind) string {
	switch k {
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindSequence:
		return "sequence"
	case KindMap:
		return "map"
	default:
		return "integer"
	}
}

func dynamicToString(v Dynamic) (string, error) {
	if v.Kind != KindString {
		return "", fmt.Errorf("expected string, got %s", kindName(v.Kind))
	}
	return v.Str, nil
}

func dynamicToUint8(v Dynamic) (uint8, error) {
	switch v.Kind {
	case KindUint8:
		return v.U8, nil
	case KindUint16:
		if v.U16 > 0xff {
			return 0, fmt.Errorf("uint16 value %d overflows uint8", v.U16)
		}
		return uint8(v.U16), nil
	default:
		return 0, fmt.Errorf("expected small unsigned integer, got %s", kindName(v.Kind))
	}
}

func dynamicToStringSlice(v Dynamic) ([]string, error) {
	if v.Kind != KindSequence {
		return nil, fmt.Errorf("expected sequence, got %s", kindName(v.Kind))
	}
	out := make([]string, 0, len(v.Seq))
	for i, e := range v.Seq {
		s, err := dynamicToString(e)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func dynamicToIdSlice(v Dynamic) ([]Id, error) {
	if v.Kind != KindSequence {
		return nil, fmt.Errorf("expected sequence, got %s", kindName(v.Kind))
	}
	out := make([]Id, 0, len(v.Seq))
	for i, e := range v.Seq {
		id, err := dynamicToId(e)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, id)
	}
	return out, nil
}

func dynamicToStringMap(v Dynamic) (map[string]string, error) {
	if v.Kind != KindMap {
		return nil, fmt.Errorf("expected map, got %s", kindName(v.Kind))
	}
	out := make(map[string]string, v.Map.Len())
	var rangeErr error
	v.Map.Range(func(k, val Dynamic) bool {
		ks, err := dynamicToString(k)
		if err != nil {
			rangeErr = fmt.Errorf("key: %w", err)
			return false
		}
		vs, err := dynamicToString(val)
		if err != nil {
			rangeErr = fmt.Errorf("value for %q: %w", ks, err)
			return false
		}
		out[ks] = vs
		return true
	})
	if rangeErr != nil {
		return nil, rangeErr
	}
	return out, nil
}

// DecodeManifest decodes the manifest object's payload.
func DecodeManifest(blob []byte) (Manifest, error) {
	d := NewDecoder(blob)
	root, err := d.DecodeDynamic()
	if err != nil {
		return Manifest{}, &borgerr.DecodeError{Op: "decode manifest", Err: err}
	}
	if root.Kind != KindMap {
		return Manifest{}, &borgerr.DecodeError{Op: "decode manifest", Err: fmt.Errorf("expected map, got %s", kindName(root.Kind))}
	}

	var m Manifest
	m.Archives = make(map[string]ManifestArchive)

	var projErr error
	root.Map.Range(func(k, v Dynamic) bool {
		key, err := dynamicToString(k)
		if err != nil {
			projErr = fmt.Errorf("manifest key: %w", err)
			return false
		}
		switch key {
		case "version":
			m.Version, err = dynamicToUint8(v)
		case "timestamp":
			m.Timestamp, err = dynamicToString(v)
		case "item_keys":
			m.ItemKeys, err = dynamicToStringSlice(v)
		case "config":
			m.Config, err = dynamicToStringMap(v)
		case "archives":
			m.Archives, err = decodeManifestArchives(v)
		case "tam":
			m.Tam, err = decodeTam(v)
		default:
			// unknown map keys are ignored
		}
		if err != nil {
			projErr = fmt.Errorf("manifest field %q: %w", key, err)
			return false
		}
		return true
	})
	if projErr != nil {
		return Manifest{}, &borgerr.DecodeError{Op: "decode manifest", Err: projErr}
	}

	return m, nil
}

func decodeManifestArchives(v Dynamic) (map[string]ManifestArchive, error) {
	if v.Kind != KindMap {
		return nil, fmt.Errorf("expected map, got %s", kindName(v.Kind))
	}
	out := make(map[string]ManifestArchive, v.Map.Len())
	var rangeErr error
	v.Map.Range(func(k, val Dynamic) bool {
		name, err := dynamicToString(k)
		if err != nil {
			rangeErr = fmt.Errorf("archive key: %w", err)
			return false
		}
		entry, err := decodeManifestArchiveEntry(val)
		if err != nil {
			rangeErr = fmt.Errorf("archive %q: %w", name, err)
			return false
		}
		out[name] = entry
		return true
	})
	return out, rangeErr
}

func decodeManifestArchiveEntry(v Dynamic) (ManifestArchive, error) {
	if v.Kind != KindMap {
		return ManifestArchive{}, fmt.Errorf("expected map, got %s", kindName(v.Kind))
	}
	var entry ManifestArchive
	var err error
	v.Map.Range(func(k, val Dynamic) bool {
		key, kerr := dynamicToString(k)
		if kerr != nil {
			err = kerr
			return false
		}
		switch key {
		case "id":
			entry.Id, err = dynamicToId(val)
		case "time":
			entry.Time, err = dynamicToString(val)
		}
		return err == nil
	})
	return entry, err
}

func decodeTam(v Dynamic) (Tam, error) {
	if v.Kind != KindMap {
		return Tam{}, fmt.Errorf("expected map, got %s", kindName(v.Kind))
	}
	var tam Tam
	tam.Fields = make(map[string]Dynamic)
	var err error
	v.Map.Range(func(k, val Dynamic) bool {
		key, kerr := dynamicToString(k)
		if kerr != nil {
			err = kerr
			return false
		}
		if key == "type" {
			tam.Type, err = dynamicToString(val)
		} else {
			tam.Fields[key] = val
		}
		return err == nil
	})
	return tam, err
}

// DecodeArchive decodes an archive object's payload.
func DecodeArchive(blob []byte) (Archive, error) {
	d := NewDecoder(blob)
	root, err := d.DecodeDynamic()
	if err != nil {
		return Archive{}, &borgerr.DecodeError{Op: "decode archive", Err: err}
	}
	if root.Kind != KindMap {
		return Archive{}, &borgerr.DecodeError{Op: "decode archive", Err: fmt.Errorf("expected map, got %s", kindName(root.Kind))}
	}

	var a Archive
	var projErr error
	root.Map.Range(func(k, v Dynamic) bool {
		key, kerr := dynamicToString(k)
		if kerr != nil {
			projErr = fmt.Errorf("archive key: %w", kerr)
			return false
		}
		var err error
		switch key {
		case "version":
			a.Version, err = dynamicToUint8(v)
		case "name":
			a.Name, err = dynamicToString(v)
		case "items":
			a.Items, err = dynamicToIdSlice(v)
		case "cmdline":
			a.Cmdline, err = dynamicToStringSlice(v)
		case "hostname":
			a.Hostname, err = dynamicToString(v)
		case "username":
			a.Username, err = dynamicToString(v)
		case "time":
			a.Time, err = dynamicToString(v)
		case "time_end":
			a.TimeEnd, err = dynamicToString(v)
		case "comment":
			a.Comment, err = dynamicToString(v)
		default:
			// unknown map keys are ignored
		}
		if err != nil {
			projErr = fmt.Errorf("archive field %q: %w", key, err)
			return false
		}
		return true
	})
	if projErr != nil {
		return Archive{}, &borgerr.DecodeError{Op: "decode archive", Err: projErr}
	}

	return a, nil
}

// DecodeItemMetadata decodes one ItemMetadata record from d, advancing
// the cursor past it. Callers iterate while d.More() to consume every
// concatenated record in a multi-item blob.
func DecodeItemMetadata(d *Decoder) (ItemMetadata, error) {
	root, err := d.DecodeDynamic()
	if err != nil {
		return ItemMetadata{}, &borgerr.DecodeError{Op: "decode item", Err: err}
	}
	if root.Kind != KindMap {
		return ItemMetadata{}, &borgerr.DecodeError{Op: "decode item", Err: fmt.Errorf("expected map, got %s", kindName(root.Kind))}
	}

	var item ItemMetadata
	var projErr error
	root.Map.Range(func(k, v Dynamic) bool {
		key, kerr := dynamicToString(k)
		if kerr != nil {
			projErr = fmt.Errorf("item key: %w", kerr)
			return false
		}
		var err error
		switch key {
		case "path":
			item.Path, err = dynamicToString(v)
		case "chunks":
			item.Chunks, err = decodeChunkList(v)
		default:
			// unknown map keys are ignored
		}
		if err != nil {
			projErr = fmt.Errorf("item field %q: %w", key, err)
			return false
		}
		return true
	})
	if projErr != nil {
		return ItemMetadata{}, &borgerr.DecodeError{Op: "decode item", Err: projErr}
	}

	return item, nil
}

func decodeChunkList(v Dynamic) ([]ChunkEntry, error) {
	if v.Kind != KindSequence {
		return nil, fmt.Errorf("expected sequence, got %s", kindName(v.Kind))
	}
	out := make([]ChunkEntry, 0, len(v.Seq))
	for i, e := range v.Seq {
		entry, err := decodeChunkEntry(e)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}
		out = append(out, entry)
	}
	return out, nil
}

func decodeChunkEntry(v Dynamic) (ChunkEntry, error) {
	if v.Kind != KindSequence || len(v.Seq) != 3 {
		return ChunkEntry{}, fmt.Errorf("expected 3-tuple, got %s", kindName(v.Kind))
	}
	id, err := dynamicToId(v.Seq[0])
	if err != nil {
		return ChunkEntry{}, fmt.Errorf("id: %w", err)
	}
	return ChunkEntry{Id: id, Size: v.Seq[1], Checksum: v.Seq[2]}, nil
}
