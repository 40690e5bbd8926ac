package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// TextEncoding is the file-declared encoding for TEXT column values.
type TextEncoding uint32

const (
	EncodingUTF8    TextEncoding = 1
	EncodingUTF16LE TextEncoding = 2
	EncodingUTF16BE TextEncoding = 3
)

// FileConfig is the immutable configuration bootstrapped from the
// 100-byte database file header: page size and text encoding.
type FileConfig struct {
	PageSize     int
	TextEncoding TextEncoding
}

var magicPrefix = []byte("SQLite format 3\x00")

// ReadFileConfig reads and validates the 100-byte file header at offset 0.
func ReadFileConfig(r io.ReaderAt) (*FileConfig, error) {
	header := make([]byte, 100)
	n, err := r.ReadAt(header, 0)
	if err != nil && err != io.EOF {
		return nil, NewDatabaseError("read_file_header", fmt.Errorf("%w: %v", ErrIo, err), nil)
	}
	if n != len(header) {
		return nil, NewDatabaseError("read_file_header", fmt.Errorf("%w: short read, got %d of %d bytes", ErrIo, n, len(header)), nil)
	}

	if !bytes.Equal(header[:16], magicPrefix) {
		return nil, NewDatabaseError("parse_file_header", fmt.Errorf("%w: bad magic number", ErrMalformed), nil)
	}

	var rawPageSize uint16
	if err := binary.Read(bytes.NewReader(header[16:18]), binary.BigEndian, &rawPageSize); err != nil {
		return nil, NewDatabaseError("parse_page_size", fmt.Errorf("%w: %v", ErrMalformed, err), nil)
	}
	pageSize := int(rawPageSize)
	if pageSize == 1 {
		// The on-disk value 1 is a sentinel meaning 65536; this core
		// never exercises that code path but decodes it faithfully.
		pageSize = 65536
	}
	if pageSize < 512 || pageSize > 65536 || (pageSize&(pageSize-1)) != 0 {
		return nil, NewDatabaseError("validate_page_size", fmt.Errorf("%w: page size %d is not a power of two in [512, 65536]", ErrMalformed, pageSize), nil)
	}

	var rawEncoding uint32
	if err := binary.Read(bytes.NewReader(header[56:60]), binary.BigEndian, &rawEncoding); err != nil {
		return nil, NewDatabaseError("parse_text_encoding", fmt.Errorf("%w: %v", ErrMalformed, err), nil)
	}
	enc := TextEncoding(rawEncoding)
	switch enc {
	case EncodingUTF8, EncodingUTF16LE, EncodingUTF16BE:
	case 0:
		// Some freshly-created files leave this zero; UTF-8 is SQLite's
		// own default in that case.
		enc = EncodingUTF8
	default:
		return nil, NewDatabaseError("validate_text_encoding", fmt.Errorf("%w: unknown text encoding tag %d", ErrMalformed, rawEncoding), nil)
	}

	return &FileConfig{PageSize: pageSize, TextEncoding: enc}, nil
}
