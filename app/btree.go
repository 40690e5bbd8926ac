package main

import (
	"context"
	"encoding/binary"
	"fmt"
)

// ScannedRow is one row yielded by scanTable: its row id and the
// decoded projection values (nil if the row was filtered out, in which
// case scanTable never calls back at all).
type ScannedRow struct {
	Rowid  uint64
	Values []Value
}

// RowVisitor is called once per matching row in ascending row-id order.
// Returning false stops the scan early.
type RowVisitor func(row ScannedRow) (more bool)

// scanTable walks the table B-tree rooted at `root`, depth-first,
// descending interior pages in cell order and visiting the rightmost
// child last, and invokes visit for every leaf row that survives the
// optional equality filter. Traversal aborts (returning the first
// error) rather than emitting partial results past a failure.
func scanTable(
	ctx context.Context,
	pager Pager,
	cfg *FileConfig,
	root int,
	intPKColumn int,
	projection []int,
	filter *filterSpec,
	visit RowVisitor,
) error {
	_, err := scanPage(ctx, pager, cfg, root, intPKColumn, projection, filter, visit)
	return err
}

// scanPage returns (false, err) on error, (false, nil) if the visitor
// asked to stop, and (true, nil) if the whole subtree was scanned.
func scanPage(
	ctx context.Context,
	pager Pager,
	cfg *FileConfig,
	pageID int,
	intPKColumn int,
	projection []int,
	filter *filterSpec,
	visit RowVisitor,
) (keepGoing bool, err error) {
	if err := ctx.Err(); err != nil {
		return false, NewDatabaseError("scan_table", fmt.Errorf("%w: %v", ErrIo, err), nil)
	}

	page, err := pager.ReadPage(ctx, pageID)
	if err != nil {
		return false, err
	}

	isFirstPage := pageID == 1
	header, headerLen, err := decodePageHeader(page, isFirstPage)
	if err != nil {
		return false, err
	}

	cellPtrStart := headerLen
	if isFirstPage {
		cellPtrStart += 100
	}

	switch header.Type {
	case PageTypeLeafTable:
		return scanLeafTablePage(pager, cfg, page, header, cellPtrStart, intPKColumn, projection, filter, visit)
	case PageTypeInteriorTable:
		return scanInteriorTablePage(ctx, pager, cfg, page, header, cellPtrStart, intPKColumn, projection, filter, visit)
	default:
		return false, NewDatabaseError("scan_table", fmt.Errorf("%w: page %d has unexpected type 0x%02X for a table traversal", ErrMalformed, pageID, header.Type), nil)
	}
}

func scanLeafTablePage(
	pager Pager,
	cfg *FileConfig,
	page []byte,
	header *BTreePageHeader,
	cellPtrStart int,
	intPKColumn int,
	projection []int,
	filter *filterSpec,
	visit RowVisitor,
) (bool, error) {
	for i := 0; i < int(header.CellCount); i++ {
		ptrOff := cellPtrStart + i*2
		if ptrOff+2 > len(page) {
			return false, NewDatabaseError("scan_table", fmt.Errorf("%w: cell pointer %d out of range", ErrMalformed, i), nil)
		}
		cellOff := int(binary.BigEndian.Uint16(page[ptrOff : ptrOff+2]))
		if cellOff < header.CellContentStart || cellOff >= len(page) {
			return false, NewDatabaseError("scan_table", fmt.Errorf("%w: cell pointer %d (offset %d) out of range", ErrMalformed, i, cellOff), nil)
		}

		payloadSize, n1, err := decodeVarint(page, cellOff)
		if err != nil {
			return false, err
		}
		rowid, n2, err := decodeVarint(page, cellOff+n1)
		if err != nil {
			return false, err
		}
		payloadOff := cellOff + n1 + n2

		local, overflowed := tableLeafLocalPayload(cfg.PageSize, int(payloadSize))
		if overflowed {
			return false, NewDatabaseError("scan_table", fmt.Errorf("%w: row %d payload spills to an overflow page", ErrUnsupported, rowid), nil)
		}

		values, matched, consumed, err := decodeRecord(page, payloadOff, local, intPKColumn, rowid, projection, filter, cfg.TextEncoding)
		if err != nil {
			return false, err
		}
		if consumed != local {
			return false, NewDatabaseError("scan_table", fmt.Errorf("%w: row %d decoded %d bytes, cell declared %d", ErrMalformed, rowid, consumed, local), nil)
		}
		if !matched {
			continue
		}

		if !visit(ScannedRow{Rowid: rowid, Values: values}) {
			return false, nil
		}
	}
	return true, nil
}

func scanInteriorTablePage(
	ctx context.Context,
	pager Pager,
	cfg *FileConfig,
	page []byte,
	header *BTreePageHeader,
	cellPtrStart int,
	intPKColumn int,
	projection []int,
	filter *filterSpec,
	visit RowVisitor,
) (bool, error) {
	for i := 0; i < int(header.CellCount); i++ {
		ptrOff := cellPtrStart + i*2
		if ptrOff+2 > len(page) {
			return false, NewDatabaseError("scan_table", fmt.Errorf("%w: cell pointer %d out of range", ErrMalformed, i), nil)
		}
		cellOff := int(binary.BigEndian.Uint16(page[ptrOff : ptrOff+2]))
		if cellOff+4 > len(page) {
			return false, NewDatabaseError("scan_table", fmt.Errorf("%w: interior cell %d out of range", ErrMalformed, i), nil)
		}
		childPage := int(binary.BigEndian.Uint32(page[cellOff : cellOff+4]))

		keepGoing, err := scanPage(ctx, pager, cfg, childPage, intPKColumn, projection, filter, visit)
		if err != nil {
			return false, err
		}
		if !keepGoing {
			return false, nil
		}
	}

	// Rightmost pointer is visited last, after all cells, even when
	// cell_count == 0 (an interior page whose only child is rightmost).
	return scanPage(ctx, pager, cfg, int(header.RightmostPointer), intPKColumn, projection, filter, visit)
}
