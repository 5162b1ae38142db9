// Package value implements the tagged-value format carried as the payload of
// every Game Service message: strings, binary blobs, integers and nested lists.
package value

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrMalformed is returned for unknown tags and unterminated or truncated buffers.
	ErrMalformed = errors.New("malformed tagged value")

	// ErrUnsupported is returned for real wire variants the codec does not implement.
	ErrUnsupported = errors.New("unsupported tagged value")
)

// Kind identifies the variant of a Value.
type Kind int

const (
	KindStr Kind = iota + 1
	KindBin
	KindLong
	KindList
	KindRef
)

func (k Kind) String() string {
	switch k {
	case KindStr:
		return "str"
	case KindBin:
		return "bin"
	case KindLong:
		return "long"
	case KindList:
		return "list"
	case KindRef:
		return "ref"
	default:
		return "unknown"
	}
}

// Value is one node of a tagged-value tree.
type Value interface {
	Kind() Kind
	String() string
}

// Str is a zero-terminated string.
type Str string

// Bin is an opaque byte blob.
type Bin []byte

// Long is an integer value.
type Long int64

// Ref is an index reference into a shared table.
type Ref uint32

// List is an ordered sequence of values; the only recursive variant.
type List []Value

func (Str) Kind() Kind  { return KindStr }
func (Bin) Kind() Kind  { return KindBin }
func (Long) Kind() Kind { return KindLong }
func (Ref) Kind() Kind  { return KindRef }
func (List) Kind() Kind { return KindList }

func (s Str) String() string  { return strconv.Quote(string(s)) }
func (b Bin) String() string  { return "0x" + hex.EncodeToString(b) }
func (l Long) String() string { return strconv.FormatInt(int64(l), 10) }
func (r Ref) String() string  { return "#" + strconv.FormatUint(uint64(r), 10) }

func (l List) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range l {
		if i > 0 {
			sb.WriteString(", ")
		}
		if v == nil {
			sb.WriteString("<nil>")
			continue
		}
		sb.WriteString(v.String())
	}
	sb.WriteByte(']')
	return sb.String()
}

// Strs builds a flat list of strings.
func Strs(ss ...string) List {
	l := make(List, len(ss))
	for i, s := range ss {
		l[i] = Str(s)
	}
	return l
}

// Itoa builds a Str holding the decimal form of n. The protocol transports
// numbers as decimal strings almost everywhere.
func Itoa(n int) Str {
	return Str(strconv.Itoa(n))
}

func (l List) at(i int, want Kind) (Value, error) {
	if i < 0 || i >= len(l) {
		return nil, fmt.Errorf("%w: index %d out of range (len=%d)", ErrMalformed, i, len(l))
	}
	v := l[i]
	if v == nil || v.Kind() != want {
		got := "nil"
		if v != nil {
			got = v.Kind().String()
		}
		return nil, fmt.Errorf("%w: element %d is %s, want %s", ErrMalformed, i, got, want)
	}
	return v, nil
}

// Str returns element i as a string.
func (l List) Str(i int) (string, error) {
	v, err := l.at(i, KindStr)
	if err != nil {
		return "", err
	}
	return string(v.(Str)), nil
}

// Int parses element i as a decimal string.
func (l List) Int(i int) (int, error) {
	s, err := l.Str(i)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: element %d is not a number: %q", ErrMalformed, i, s)
	}
	return n, nil
}

// Bytes returns element i as a binary blob.
func (l List) Bytes(i int) ([]byte, error) {
	v, err := l.at(i, KindBin)
	if err != nil {
		return nil, err
	}
	return []byte(v.(Bin)), nil
}

// Sub returns element i as a nested list.
func (l List) Sub(i int) (List, error) {
	v, err := l.at(i, KindList)
	if err != nil {
		return nil, err
	}
	return v.(List), nil
}
