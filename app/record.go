package main

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf16"
)

// filterSpec is the single `column = 'literal'` equality filter the
// executor may push into the record decoder.
type filterSpec struct {
	ColumnIndex int
	Literal     string
}

// tableLeafLocalPayload returns how many payload bytes are actually
// stored in a table-leaf cell (as opposed to spilled to an overflow
// page), following the same local-payload formula SQLite itself uses,
// and whether spill occurred. Reserved-space-per-page is treated as
// zero, matching the rest of this core's simplified page model.
func tableLeafLocalPayload(pageSize int, payloadSize int) (local int, overflowed bool) {
	usable := pageSize
	maxLocal := usable - 35
	if payloadSize <= maxLocal {
		return payloadSize, false
	}
	minLocal := (usable-12)*32/255 - 23
	k := minLocal + (payloadSize-minLocal)%(usable-4)
	if k <= maxLocal {
		return k, true
	}
	return minLocal, true
}

// decodeRecord parses one cell's record: the serial-type header followed
// by column bytes. `page` is the full page buffer; `payloadOff` is the
// absolute offset of the record's first byte; `payloadLen` is the number
// of payload bytes actually present in the page for this cell (the
// cell's declared payload size for leaf cells the caller has already
// confirmed does not overflow).
//
// Only columns that are either in `projection` or are the filter column
// are materialized into values; everything else is skipped by advancing
// past its width. If a filter is given and the filter column's value
// does not equal its literal, decoding stops early and matched is false;
// consumed still reports the full record length from the serial types.
func decodeRecord(
	page []byte,
	payloadOff int,
	payloadLen int,
	intPKColumn int,
	rowid uint64,
	projection []int,
	filter *filterSpec,
	enc TextEncoding,
) (values []Value, matched bool, consumed int, err error) {
	if payloadOff+payloadLen > len(page) {
		return nil, false, 0, NewDatabaseError("decode_record", fmt.Errorf("%w: payload extends beyond page bounds", ErrMalformed), nil)
	}
	payload := page[payloadOff : payloadOff+payloadLen]

	headerSize, headerSizeBytes, derr := decodeVarint(payload, 0)
	if derr != nil {
		return nil, false, 0, derr
	}

	var serialTypes []uint64
	offset := headerSizeBytes
	for offset < int(headerSize) {
		st, n, derr := decodeVarint(payload, offset)
		if derr != nil {
			return nil, false, 0, derr
		}
		serialTypes = append(serialTypes, st)
		offset += n
	}

	wanted := make(map[int]bool, len(projection)+1)
	for _, idx := range projection {
		wanted[idx] = true
	}
	if filter != nil {
		wanted[filter.ColumnIndex] = true
	}

	values = make([]Value, len(projection))

	bodyOffset := int(headerSize)
	for col, st := range serialTypes {
		width := serialTypeWidth(st)
		if !wanted[col] {
			bodyOffset += width
			continue
		}

		if bodyOffset+width > len(payload) {
			return nil, false, 0, NewDatabaseError("decode_record", fmt.Errorf("%w: column %d needs %d bytes, payload has %d remaining", ErrMalformed, col, width, len(payload)-bodyOffset), nil)
		}
		raw := payload[bodyOffset : bodyOffset+width]

		var v Value
		if st == 0 && col == intPKColumn {
			v = IntValue(int64(rowid))
		} else {
			v = decodeSerialValue(st, raw, enc)
		}
		bodyOffset += width

		if filter != nil && col == filter.ColumnIndex {
			if !v.equalsText(filter.Literal) {
				end := bodyOffset
				for _, rest := range serialTypes[col+1:] {
					end += serialTypeWidth(rest)
				}
				return nil, false, end, nil
			}
		}
		if idx, ok := projectionSlot(projection, col); ok {
			values[idx] = v
		}
	}

	return values, true, bodyOffset, nil
}

// projectionSlot finds the output slot for source column `col` in the
// ordered projection list.
func projectionSlot(projection []int, col int) (int, bool) {
	for i, p := range projection {
		if p == col {
			return i, true
		}
	}
	return 0, false
}

// decodeSerialValue decodes one column's raw bytes per its serial type.
// Text that fails to decode under `enc` is retained as raw bytes rather
// than failing the whole record.
func decodeSerialValue(serialType uint64, raw []byte, enc TextEncoding) Value {
	switch {
	case serialType == 0:
		return NullValue()
	case serialType >= 1 && serialType <= 4:
		return IntValue(signExtend(raw))
	case serialType == 5:
		return IntValue(signExtend(raw))
	case serialType == 6:
		return IntValue(int64(binary.BigEndian.Uint64(raw)))
	case serialType == 7:
		bits := binary.BigEndian.Uint64(raw)
		return RealValue(math.Float64frombits(bits))
	case serialType == 8:
		return IntValue(0)
	case serialType == 9:
		return IntValue(1)
	case serialType >= 12 && serialType%2 == 0:
		blob := make([]byte, len(raw))
		copy(blob, raw)
		return BlobValue(blob)
	case serialType >= 13 && serialType%2 == 1:
		return TextValue(decodeText(raw, enc))
	default:
		return NullValue()
	}
}

func signExtend(raw []byte) int64 {
	var v int64
	if raw[0]&0x80 != 0 {
		v = -1 // all-ones sign extension base
	}
	for _, b := range raw {
		v = (v << 8) | int64(b)
	}
	return v
}

// decodeText decodes `raw` under the file's declared text encoding. On
// decode failure the raw bytes are preserved as-is (the core never
// fails a record just because a text value didn't decode cleanly).
func decodeText(raw []byte, enc TextEncoding) string {
	switch enc {
	case EncodingUTF16LE, EncodingUTF16BE:
		if len(raw)%2 != 0 {
			return string(raw)
		}
		units := make([]uint16, len(raw)/2)
		for i := range units {
			if enc == EncodingUTF16LE {
				units[i] = binary.LittleEndian.Uint16(raw[i*2 : i*2+2])
			} else {
				units[i] = binary.BigEndian.Uint16(raw[i*2 : i*2+2])
			}
		}
		return string(utf16.Decode(units))
	default: // EncodingUTF8
		return string(raw)
	}
}
