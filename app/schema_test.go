package main

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textSerialType(s string) uint64 { return uint64(13 + len(s)*2) }

func schemaRecordBytes(typ, name, tblName string, rootpage int64, sql string) []byte {
	return buildRecord(
		[]uint64{textSerialType(typ), textSerialType(name), textSerialType(tblName), 1, textSerialType(sql)},
		[][]byte{[]byte(typ), []byte(name), []byte(tblName), {byte(rootpage)}, []byte(sql)},
	)
}

// buildFirstPage lays out page 1: the 100-byte file header followed by a
// leaf table B-tree page holding the given sqlite_schema row cells.
func buildFirstPage(pageSize int, records [][]byte) []byte {
	page := make([]byte, pageSize)
	copy(page, magicPrefix)
	binary.BigEndian.PutUint16(page[16:18], uint16(pageSize))
	binary.BigEndian.PutUint32(page[56:60], uint32(EncodingUTF8))

	headerStart := 100
	page[headerStart] = PageTypeLeafTable
	cellPtrStart := headerStart + 8

	contentEnd := pageSize
	offsets := make([]int, len(records))
	for i, rec := range records {
		body := append(encodeVarintForTest(uint64(len(rec))), encodeVarintForTest(uint64(i+1))...)
		body = append(body, rec...)
		contentEnd -= len(body)
		copy(page[contentEnd:], body)
		offsets[i] = contentEnd
	}
	for i, off := range offsets {
		ptrOff := cellPtrStart + i*2
		binary.BigEndian.PutUint16(page[ptrOff:ptrOff+2], uint16(off))
	}
	binary.BigEndian.PutUint16(page[headerStart+3:headerStart+5], uint16(len(records)))
	binary.BigEndian.PutUint16(page[headerStart+5:headerStart+7], uint16(contentEnd))
	return page
}

func TestResolveTableFindsUserTable(t *testing.T) {
	pageSize := 512
	createSQL := "CREATE TABLE apples (id INTEGER PRIMARY KEY, name TEXT, color TEXT)"
	records := [][]byte{schemaRecordBytes("table", "apples", "apples", 2, createSQL)}

	pager := newMemPager(pageSize)
	pager.pages[1] = buildFirstPage(pageSize, records)
	cfg := &FileConfig{PageSize: pageSize, TextEncoding: EncodingUTF8}

	info, err := resolveTable(context.Background(), pager, cfg, "apples")
	require.NoError(t, err)
	assert.Equal(t, 2, info.RootPage)
	assert.Equal(t, 0, info.IntPKColumn)
	assert.Equal(t, []string{"id", "name", "color"}, info.Columns)
}

func TestResolveTableCaseInsensitive(t *testing.T) {
	pageSize := 512
	createSQL := "CREATE TABLE apples (id INTEGER PRIMARY KEY, name TEXT)"
	records := [][]byte{schemaRecordBytes("table", "apples", "apples", 2, createSQL)}

	pager := newMemPager(pageSize)
	pager.pages[1] = buildFirstPage(pageSize, records)
	cfg := &FileConfig{PageSize: pageSize, TextEncoding: EncodingUTF8}

	info, err := resolveTable(context.Background(), pager, cfg, "APPLES")
	require.NoError(t, err)
	assert.Equal(t, 2, info.RootPage)
}

func TestResolveTableUnknown(t *testing.T) {
	pageSize := 512
	pager := newMemPager(pageSize)
	pager.pages[1] = buildFirstPage(pageSize, nil)
	cfg := &FileConfig{PageSize: pageSize, TextEncoding: EncodingUTF8}

	_, err := resolveTable(context.Background(), pager, cfg, "ghosts")
	assert.ErrorIs(t, err, ErrUnknownTable)
}

func TestResolveTableWithoutIntegerPrimaryKey(t *testing.T) {
	pageSize := 512
	createSQL := "CREATE TABLE oranges (name TEXT, color TEXT)"
	records := [][]byte{schemaRecordBytes("table", "oranges", "oranges", 3, createSQL)}

	pager := newMemPager(pageSize)
	pager.pages[1] = buildFirstPage(pageSize, records)
	cfg := &FileConfig{PageSize: pageSize, TextEncoding: EncodingUTF8}

	info, err := resolveTable(context.Background(), pager, cfg, "oranges")
	require.NoError(t, err)
	assert.Equal(t, -1, info.IntPKColumn)
}

func TestListUserTablesSkipsInternalTables(t *testing.T) {
	pageSize := 512
	records := [][]byte{
		schemaRecordBytes("table", "apples", "apples", 2, "CREATE TABLE apples (id INTEGER)"),
		schemaRecordBytes("table", "sqlite_sequence", "sqlite_sequence", 3, "CREATE TABLE sqlite_sequence(name,seq)"),
		schemaRecordBytes("index", "apples_idx", "apples", 4, "CREATE INDEX apples_idx ON apples(name)"),
	}

	pager := newMemPager(pageSize)
	pager.pages[1] = buildFirstPage(pageSize, records)
	cfg := &FileConfig{PageSize: pageSize, TextEncoding: EncodingUTF8}

	names, err := listUserTables(context.Background(), pager, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"apples"}, names)
}

func TestResolveTableSyntheticSqliteSchema(t *testing.T) {
	pageSize := 512
	pager := newMemPager(pageSize)
	pager.pages[1] = buildFirstPage(pageSize, nil)
	cfg := &FileConfig{PageSize: pageSize, TextEncoding: EncodingUTF8}

	info, err := resolveTable(context.Background(), pager, cfg, "sqlite_master")
	require.NoError(t, err)
	assert.Equal(t, schemaRootPage, info.RootPage)
	assert.Contains(t, info.Columns, "rootpage")
}

func TestIntPKColumnIndexLooseTokenRule(t *testing.T) {
	cols := []columnDef{{Name: "id", Type: "integer primary key autoincrement"}, {Name: "name", Type: "text"}}
	assert.Equal(t, 0, intPKColumnIndex(cols))
}

func TestIntPKColumnIndexNoMatch(t *testing.T) {
	cols := []columnDef{{Name: "id", Type: "integer"}, {Name: "name", Type: "text"}}
	assert.Equal(t, -1, intPKColumnIndex(cols))
}
