package codec

import (
	"bytes"
	"compress/flate"
	"fmt"
	"io"
)

// flagCompressed and flagUncompressed are the FLAG byte values spec.md §4.1
// calls 'C' and 'U'.
const (
	flagCompressed   byte = 'C'
	flagUncompressed byte = 'U'
)

func compress(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("codec: flate writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("codec: flate write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("codec: flate close: %w", err)
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("codec: flate read: %w", err)
	}
	return out, nil
}
