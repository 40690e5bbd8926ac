package main

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memPager is a Pager over an in-memory set of fixed-size pages, for
// tests that need to exercise btree traversal without a real file.
type memPager struct {
	pages    map[int][]byte
	pageSize int
}

func newMemPager(pageSize int) *memPager {
	return &memPager{pages: make(map[int][]byte), pageSize: pageSize}
}

func (p *memPager) ReadPage(ctx context.Context, id int) ([]byte, error) {
	page, ok := p.pages[id]
	if !ok {
		return nil, NewDatabaseError("read_page", ErrIo, nil)
	}
	return page, nil
}

func (p *memPager) PageSize() int { return p.pageSize }
func (p *memPager) Close() error  { return nil }

type testCell struct {
	rowid  uint64
	record []byte
}

// buildLeafTablePage lays out a leaf table B-tree page with the given
// cells, in the order given (which is also visiting order).
func buildLeafTablePage(pageSize int, cells []testCell) []byte {
	page := make([]byte, pageSize)
	page[0] = PageTypeLeafTable

	cellPtrStart := 8
	contentEnd := pageSize
	offsets := make([]int, len(cells))

	for i, c := range cells {
		body := append(encodeVarintForTest(uint64(len(c.record))), encodeVarintForTest(c.rowid)...)
		body = append(body, c.record...)
		contentEnd -= len(body)
		copy(page[contentEnd:], body)
		offsets[i] = contentEnd
	}

	for i, off := range offsets {
		ptrOff := cellPtrStart + i*2
		binary.BigEndian.PutUint16(page[ptrOff:ptrOff+2], uint16(off))
	}

	binary.BigEndian.PutUint16(page[3:5], uint16(len(cells)))
	binary.BigEndian.PutUint16(page[5:7], uint16(contentEnd))
	return page
}

func buildInteriorTablePage(pageSize int, children []int, rightmost int) []byte {
	page := make([]byte, pageSize)
	page[0] = PageTypeInteriorTable

	cellPtrStart := 12
	contentEnd := pageSize
	offsets := make([]int, len(children))

	for i, child := range children {
		body := make([]byte, 5)
		binary.BigEndian.PutUint32(body[0:4], uint32(child))
		body[4] = 0x01 // a one-byte varint key; traversal never reads it
		contentEnd -= len(body)
		copy(page[contentEnd:], body)
		offsets[i] = contentEnd
	}

	for i, off := range offsets {
		ptrOff := cellPtrStart + i*2
		binary.BigEndian.PutUint16(page[ptrOff:ptrOff+2], uint16(off))
	}

	binary.BigEndian.PutUint16(page[3:5], uint16(len(children)))
	binary.BigEndian.PutUint16(page[5:7], uint16(contentEnd))
	binary.BigEndian.PutUint32(page[8:12], uint32(rightmost))
	return page
}

func TestScanTableLeafPage(t *testing.T) {
	pageSize := 512
	rec1 := buildRecord([]uint64{13 + 3*2}, [][]byte{[]byte("abc")})
	rec2 := buildRecord([]uint64{13 + 3*2}, [][]byte{[]byte("xyz")})

	page := buildLeafTablePage(pageSize, []testCell{{rowid: 1, record: rec1}, {rowid: 2, record: rec2}})

	pager := newMemPager(pageSize)
	pager.pages[2] = page

	var seen []string
	err := scanTable(context.Background(), pager, &FileConfig{PageSize: pageSize, TextEncoding: EncodingUTF8}, 2, -1, []int{0}, nil, func(r ScannedRow) bool {
		seen = append(seen, r.Values[0].Text)
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"abc", "xyz"}, seen)
}

func TestScanTableVisitorCanStopEarly(t *testing.T) {
	pageSize := 512
	rec := buildRecord([]uint64{13 + 3*2}, [][]byte{[]byte("abc")})
	page := buildLeafTablePage(pageSize, []testCell{{rowid: 1, record: rec}, {rowid: 2, record: rec}, {rowid: 3, record: rec}})

	pager := newMemPager(pageSize)
	pager.pages[2] = page

	count := 0
	err := scanTable(context.Background(), pager, &FileConfig{PageSize: pageSize, TextEncoding: EncodingUTF8}, 2, -1, []int{0}, nil, func(r ScannedRow) bool {
		count++
		return false
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestScanTableEmptyLeaf(t *testing.T) {
	pageSize := 512
	page := buildLeafTablePage(pageSize, nil)
	pager := newMemPager(pageSize)
	pager.pages[2] = page

	called := false
	err := scanTable(context.Background(), pager, &FileConfig{PageSize: pageSize, TextEncoding: EncodingUTF8}, 2, -1, nil, nil, func(ScannedRow) bool {
		called = true
		return true
	})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestScanTableInteriorPageVisitsRightmostLast(t *testing.T) {
	pageSize := 512
	recA := buildRecord([]uint64{13 + 1*2}, [][]byte{[]byte("A")})
	recB := buildRecord([]uint64{13 + 1*2}, [][]byte{[]byte("B")})

	leaf1 := buildLeafTablePage(pageSize, []testCell{{rowid: 1, record: recA}})
	leaf2 := buildLeafTablePage(pageSize, []testCell{{rowid: 2, record: recB}})
	interior := buildInteriorTablePage(pageSize, []int{3}, 4)

	pager := newMemPager(pageSize)
	pager.pages[2] = interior
	pager.pages[3] = leaf1
	pager.pages[4] = leaf2

	var seen []string
	err := scanTable(context.Background(), pager, &FileConfig{PageSize: pageSize, TextEncoding: EncodingUTF8}, 2, -1, []int{0}, nil, func(r ScannedRow) bool {
		seen = append(seen, r.Values[0].Text)
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, seen)
}

func TestScanTableInteriorPageWithOnlyRightmostPointer(t *testing.T) {
	pageSize := 512
	rec := buildRecord([]uint64{13 + 1*2}, [][]byte{[]byte("A")})
	leaf := buildLeafTablePage(pageSize, []testCell{{rowid: 1, record: rec}})
	interior := buildInteriorTablePage(pageSize, nil, 3)

	pager := newMemPager(pageSize)
	pager.pages[2] = interior
	pager.pages[3] = leaf

	count := 0
	err := scanTable(context.Background(), pager, &FileConfig{PageSize: pageSize, TextEncoding: EncodingUTF8}, 2, -1, []int{0}, nil, func(ScannedRow) bool {
		count++
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
