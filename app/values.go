package main

import "fmt"

// ValueKind tags which field of Value holds the decoded value.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindInt
	KindReal
	KindText
	KindBlob
)

// Value is a tagged-union column value, decoded per the on-disk serial
// type rules. Text/Blob own their bytes; they never alias the page
// buffer past the call that produced them.
type Value struct {
	Kind ValueKind
	Int  int64
	Real float64
	Text string
	Blob []byte
}

func NullValue() Value { return Value{Kind: KindNull} }
func IntValue(v int64) Value { return Value{Kind: KindInt, Int: v} }
func RealValue(v float64) Value { return Value{Kind: KindReal, Real: v} }
func TextValue(v string) Value { return Value{Kind: KindText, Text: v} }
func BlobValue(v []byte) Value { return Value{Kind: KindBlob, Blob: v} }

// String renders a value the way the CLI driver emits it: NULL as the
// empty string, everything else as its natural text form.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return ""
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindReal:
		return fmt.Sprintf("%g", v.Real)
	case KindText:
		return v.Text
	case KindBlob:
		return string(v.Blob)
	default:
		return ""
	}
}

// equalsText reports byte/codepoint-exact equality against a text
// literal: no collation, no type coercion. Non-text values (including
// float and blob) always compare unequal to a text filter.
func (v Value) equalsText(lit string) bool {
	return v.Kind == KindText && v.Text == lit
}

// serialTypeWidth returns the on-disk byte width for a serial type.
// Width 0 covers NULL (0), constant 0/1 (8/9), and any zero-length
// text/blob.
func serialTypeWidth(serialType uint64) int {
	switch serialType {
	case 0, 8, 9:
		return 0
	case 1:
		return 1
	case 2:
		return 2
	case 3:
		return 3
	case 4:
		return 4
	case 5:
		return 6
	case 6, 7:
		return 8
	default:
		if serialType >= 12 && serialType%2 == 0 {
			return int((serialType - 12) / 2)
		}
		if serialType >= 13 && serialType%2 == 1 {
			return int((serialType - 13) / 2)
		}
		return 0
	}
}
