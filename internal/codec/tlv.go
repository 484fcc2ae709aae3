// Package codec implements the value pipeline: a typed binary serializer,
// optional flate compression, optional AEAD encryption, and optional
// keyed-MAC signing, applied in that order on write and unwound in reverse
// on read. It generalizes the length-prefixed binary framing the teacher's
// dump routine used for on-disk records into a full tag-length-value
// encoder for dynamic values.
package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

type tag byte

const (
	tagNil tag = iota
	tagBool
	tagInt64
	tagFloat64
	tagString
	tagBytes
	tagSlice
	tagMap
)

// Marshal encodes v into the compact typed binary format. Supported types
// are nil, bool, every integer/float kind (normalized to int64/float64),
// string, []byte, []any, and map[string]any (or any string-keyed map).
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := marshalValue(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes bytes produced by Marshal back into a Go value tree.
func Unmarshal(data []byte) (any, error) {
	r := bytes.NewReader(data)
	v, err := unmarshalValue(r)
	if err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("codec: %d trailing bytes after value", r.Len())
	}
	return v, nil
}

func marshalValue(buf *bytes.Buffer, v any) error {
	switch x := normalize(v).(type) {
	case nil:
		buf.WriteByte(byte(tagNil))
	case bool:
		buf.WriteByte(byte(tagBool))
		if x {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case int64:
		buf.WriteByte(byte(tagInt64))
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], uint64(x))
		buf.Write(tmp[:])
	case float64:
		buf.WriteByte(byte(tagFloat64))
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(x))
		buf.Write(tmp[:])
	case string:
		buf.WriteByte(byte(tagString))
		writeLenPrefixed(buf, []byte(x))
	case []byte:
		buf.WriteByte(byte(tagBytes))
		writeLenPrefixed(buf, x)
	case []any:
		buf.WriteByte(byte(tagSlice))
		writeUvarint(buf, uint64(len(x)))
		for _, item := range x {
			if err := marshalValue(buf, item); err != nil {
				return err
			}
		}
	case map[string]any:
		buf.WriteByte(byte(tagMap))
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys) // deterministic byte output for identical maps
		writeUvarint(buf, uint64(len(keys)))
		for _, k := range keys {
			writeLenPrefixed(buf, []byte(k))
			if err := marshalValue(buf, x[k]); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("codec: unsupported type %T", v)
	}
	return nil
}

func unmarshalValue(r *bytes.Reader) (any, error) {
	t, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("codec: read tag: %w", err)
	}
	switch tag(t) {
	case tagNil:
		return nil, nil
	case tagBool:
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		return b != 0, nil
	case tagInt64:
		var tmp [8]byte
		if _, err := readFull(r, tmp[:]); err != nil {
			return nil, err
		}
		return int64(binary.LittleEndian.Uint64(tmp[:])), nil
	case tagFloat64:
		var tmp [8]byte
		if _, err := readFull(r, tmp[:]); err != nil {
			return nil, err
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(tmp[:])), nil
	case tagString:
		b, err := readLenPrefixed(r)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	case tagBytes:
		return readLenPrefixed(r)
	case tagSlice:
		n, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		out := make([]any, n)
		for i := range out {
			item, err := unmarshalValue(r)
			if err != nil {
				return nil, err
			}
			out[i] = item
		}
		return out, nil
	case tagMap:
		n, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		out := make(map[string]any, n)
		for i := uint64(0); i < n; i++ {
			kb, err := readLenPrefixed(r)
			if err != nil {
				return nil, err
			}
			v, err := unmarshalValue(r)
			if err != nil {
				return nil, err
			}
			out[string(kb)] = v
		}
		return out, nil
	default:
		return nil, fmt.Errorf("codec: unknown tag %d", t)
	}
}

// normalize widens Go's numeric zoo down to the two kinds the format
// carries, so callers can pass int, int32, float32, etc. unchanged.
func normalize(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return int64(x)
	case float32:
		return float64(x)
	default:
		return v
	}
}

func writeLenPrefixed(buf *bytes.Buffer, b []byte) {
	writeUvarint(buf, uint64(len(b)))
	buf.Write(b)
}

func readLenPrefixed(r *bytes.Reader) ([]byte, error) {
	n, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := readFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func writeUvarint(buf *bytes.Buffer, n uint64) {
	var tmp [binary.MaxVarintLen64]byte
	sz := binary.PutUvarint(tmp[:], n)
	buf.Write(tmp[:sz])
}

func readUvarint(r *bytes.Reader) (uint64, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return 0, fmt.Errorf("codec: read length: %w", err)
	}
	return n, nil
}

func readFull(r *bytes.Reader, b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	n, err := r.Read(b)
	if err != nil {
		return n, err
	}
	if n != len(b) {
		return n, fmt.Errorf("codec: short read: got %d want %d", n, len(b))
	}
	return n, nil
}
