package main

import (
	"encoding/binary"
	"fmt"
)

// Page type tags, as stored in a B-tree page's first header byte.
const (
	PageTypeInteriorIndex = 0x02
	PageTypeInteriorTable = 0x05
	PageTypeLeafIndex     = 0x0A
	PageTypeLeafTable     = 0x0D
)

// BTreePageHeader is the decoded 8- or 12-byte B-tree page header.
type BTreePageHeader struct {
	Type               byte
	FirstFreeblock     uint16
	CellCount          uint16
	CellContentStart   int // 0 in the file means 65536; normalized here
	FragmentedFreeByte byte
	RightmostPointer   uint32 // only meaningful for interior types
}

func (h *BTreePageHeader) IsInterior() bool {
	return h.Type == PageTypeInteriorTable || h.Type == PageTypeInteriorIndex
}

func (h *BTreePageHeader) IsLeaf() bool {
	return h.Type == PageTypeLeafTable || h.Type == PageTypeLeafIndex
}

// decodePageHeader decodes a B-tree page header from `page`, starting at
// offset 100 if isFirstPage (the page-1 file-header skew) else offset 0.
// Returns the header and the number of bytes consumed from the start
// offset (8 for leaves, 12 for interiors).
func decodePageHeader(page []byte, isFirstPage bool) (*BTreePageHeader, int, error) {
	start := 0
	if isFirstPage {
		start = 100
	}
	if start+8 > len(page) {
		return nil, 0, NewDatabaseError("decode_page_header", fmt.Errorf("%w: page too small for header at offset %d", ErrMalformed, start), nil)
	}

	h := &BTreePageHeader{
		Type:               page[start],
		FirstFreeblock:     binary.BigEndian.Uint16(page[start+1 : start+3]),
		CellCount:          binary.BigEndian.Uint16(page[start+3 : start+5]),
		FragmentedFreeByte: page[start+7],
	}

	contentStart := binary.BigEndian.Uint16(page[start+5 : start+7])
	if contentStart == 0 {
		h.CellContentStart = 65536
	} else {
		h.CellContentStart = int(contentStart)
	}

	switch h.Type {
	case PageTypeInteriorTable, PageTypeInteriorIndex:
		if start+12 > len(page) {
			return nil, 0, NewDatabaseError("decode_page_header", fmt.Errorf("%w: page too small for interior header at offset %d", ErrMalformed, start), nil)
		}
		h.RightmostPointer = binary.BigEndian.Uint32(page[start+8 : start+12])
		return h, 12, nil
	case PageTypeLeafTable, PageTypeLeafIndex:
		return h, 8, nil
	default:
		return nil, 0, NewDatabaseError("decode_page_header", fmt.Errorf("%w: unknown page type 0x%02X", ErrMalformed, h.Type), nil)
	}
}
