package frame

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindNumber
	KindText
	KindTime
	KindList
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindTime:
		return "time"
	case KindList:
		return "list"
	default:
		return "null"
	}
}

// Value is a single cell: null, number, text, time or a nested sequence.
// The zero Value is null.
type Value struct {
	kind Kind
	num  float64
	text string
	at   time.Time
	list []Value
}

// Null returns the null value
func Null() Value { return Value{} }

// NaN returns the default fill sentinel for synthesized cells.
func NaN() Value { return Value{kind: KindNumber, num: math.NaN()} }

// Number wraps a float64
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Text wraps a string
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Time wraps a timestamp
func Time(t time.Time) Value { return Value{kind: KindTime, at: t} }

// List wraps a nested sequence. The items are copied.
func List(items ...Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: KindList, list: cp}
}

// Kind returns the variant held by v
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsMissing reports whether v is null or a NaN number.
func (v Value) IsMissing() bool {
	return v.kind == KindNull || (v.kind == KindNumber && math.IsNaN(v.num))
}

// Float returns the number held by v.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return math.NaN(), false
	}
	return v.num, true
}

// Str returns the text held by v.
func (v Value) Str() (string, bool) {
	return v.text, v.kind == KindText
}

// TimeValue returns the timestamp held by v.
func (v Value) TimeValue() (time.Time, bool) {
	return v.at, v.kind == KindTime
}

// Items returns the nested sequence held by v.
func (v Value) Items() ([]Value, bool) {
	return v.list, v.kind == KindList
}

// Equal reports deep equality. Two NaN numbers are equal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		if math.IsNaN(v.num) && math.IsNaN(o.num) {
			return true
		}
		return v.num == o.num
	case KindText:
		return v.text == o.text
	case KindTime:
		return v.at.Equal(o.at)
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Compare orders values by kind first, then naturally within a kind.
// NaN sorts before every other number.
func (v Value) Compare(o Value) int {
	if v.kind != o.kind {
		if v.kind < o.kind {
			return -1
		}
		return 1
	}
	switch v.kind {
	case KindNumber:
		an, bn := math.IsNaN(v.num), math.IsNaN(o.num)
		switch {
		case an && bn:
			return 0
		case an:
			return -1
		case bn:
			return 1
		case v.num < o.num:
			return -1
		case v.num > o.num:
			return 1
		}
		return 0
	case KindText:
		return strings.Compare(v.text, o.text)
	case KindTime:
		return v.at.Compare(o.at)
	case KindList:
		for i := 0; i < len(v.list) && i < len(o.list); i++ {
			if c := v.list[i].Compare(o.list[i]); c != 0 {
				return c
			}
		}
		switch {
		case len(v.list) < len(o.list):
			return -1
		case len(v.list) > len(o.list):
			return 1
		}
		return 0
	default:
		return 0
	}
}

// String renders v the way it appears in expanded column names.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindText:
		return v.text
	case KindTime:
		u := v.at.UTC()
		if u.Hour() == 0 && u.Minute() == 0 && u.Second() == 0 && u.Nanosecond() == 0 {
			return u.Format("2006-01-02")
		}
		return u.Format("2006-01-02T15:04:05")
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, " ") + "]"
	default:
		return ""
	}
}

// key is a map key unique per (kind, value); "1" and 1 differ.
func (v Value) key() string {
	switch v.kind {
	case KindNumber:
		switch {
		case math.IsNaN(v.num):
			return "n:NaN"
		case v.num == 0:
			return "n:0"
		}
		return "n:" + strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindTime:
		return "t:" + strconv.FormatInt(v.at.UnixNano(), 10)
	case KindText:
		return "s:" + v.text
	case KindList:
		var b strings.Builder
		b.WriteString("l:[")
		for _, item := range v.list {
			b.WriteString(item.key())
			b.WriteByte(',')
		}
		b.WriteByte(']')
		return b.String()
	default:
		return "null"
	}
}

// Numbers converts float64s into number values
func Numbers(fs ...float64) []Value {
	out := make([]Value, len(fs))
	for i, f := range fs {
		out[i] = Number(f)
	}
	return out
}

// Texts converts strings into text values
func Texts(ss ...string) []Value {
	out := make([]Value, len(ss))
	for i, s := range ss {
		out[i] = Text(s)
	}
	return out
}

// Times converts timestamps into time values
func Times(ts ...time.Time) []Value {
	out := make([]Value, len(ts))
	for i, t := range ts {
		out[i] = Time(t)
	}
	return out
}

// Floats extracts numbers; non-number cells become NaN.
func Floats(vs []Value) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i], _ = v.Float()
	}
	return out
}

func fill(n int, v Value) []Value {
	out := make([]Value, n)
	for i := range out {
		out[i] = v
	}
	return out
}
