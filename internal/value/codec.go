package value

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/udisondev/gsgo/internal/constants"
)

// maxDepth bounds list nesting so hostile input cannot exhaust the stack.
const maxDepth = 64

// Marshal encodes v. Lists are written with their bracket delimiters.
func Marshal(v Value) ([]byte, error) {
	return Append(nil, v)
}

// MarshalInner encodes the elements of l without the outer brackets.
// Message payloads store an implicit outer list this way.
func MarshalInner(l List) ([]byte, error) {
	var dst []byte
	for i, v := range l {
		var err error
		if dst, err = Append(dst, v); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return dst, nil
}

// Append appends the encoding of v to dst.
func Append(dst []byte, v Value) ([]byte, error) {
	switch v := v.(type) {
	case Str:
		for i := 0; i < len(v); i++ {
			if v[i] == constants.TagTerm {
				return nil, fmt.Errorf("%w: string contains a zero byte at %d", ErrMalformed, i)
			}
		}
		dst = append(dst, constants.TagString)
		dst = append(dst, v...)
		return append(dst, constants.TagTerm), nil
	case Bin:
		if uint64(len(v)) > math.MaxUint32 {
			return nil, fmt.Errorf("%w: binary value too large (%d bytes)", ErrMalformed, len(v))
		}
		dst = append(dst, constants.TagBinary)
		dst = binary.BigEndian.AppendUint32(dst, uint32(len(v)))
		return append(dst, v...), nil
	case List:
		dst = append(dst, constants.TagListOpen)
		for i, e := range v {
			var err error
			if dst, err = Append(dst, e); err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
		}
		return append(dst, constants.TagListEnd), nil
	case Long:
		return nil, fmt.Errorf("%w: long encoding", ErrUnsupported)
	case Ref:
		return nil, fmt.Errorf("%w: reference encoding", ErrUnsupported)
	case nil:
		return nil, fmt.Errorf("%w: nil value", ErrMalformed)
	default:
		return nil, fmt.Errorf("%w: unknown value type %T", ErrMalformed, v)
	}
}

// Decoder consumes tagged values from the front of a buffer.
type Decoder struct {
	data []byte
	pos  int
}

// NewDecoder creates a Decoder over data. data is not copied; decoded Bin values
// are copies and do not alias it.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{data: data}
}

// Offset returns the number of bytes consumed so far.
func (d *Decoder) Offset() int {
	return d.pos
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.data) - d.pos
}

// Next decodes one value.
func (d *Decoder) Next() (Value, error) {
	return d.next(0)
}

func (d *Decoder) next(depth int) (Value, error) {
	if d.pos >= len(d.data) {
		return nil, fmt.Errorf("%w: unexpected end of buffer at offset %d", ErrMalformed, d.pos)
	}

	tag := d.data[d.pos]
	switch tag {
	case constants.TagString:
		return d.readStr()
	case constants.TagBinary:
		return d.readBin()
	case constants.TagListOpen:
		if depth >= maxDepth {
			return nil, fmt.Errorf("%w: list nesting deeper than %d", ErrMalformed, maxDepth)
		}
		d.pos++
		l, err := d.readElements(depth+1, true)
		if err != nil {
			return nil, err
		}
		return l, nil
	case constants.TagLong:
		return nil, fmt.Errorf("%w: long value at offset %d", ErrUnsupported, d.pos)
	default:
		return nil, fmt.Errorf("%w: unknown tag 0x%02X at offset %d", ErrMalformed, tag, d.pos)
	}
}

func (d *Decoder) readStr() (Str, error) {
	start := d.pos + 1
	for i := start; i < len(d.data); i++ {
		if d.data[i] == constants.TagTerm {
			d.pos = i + 1
			return Str(d.data[start:i]), nil
		}
	}
	return "", fmt.Errorf("%w: unterminated string at offset %d", ErrMalformed, d.pos)
}

func (d *Decoder) readBin() (Bin, error) {
	start := d.pos + 1
	if start+constants.BinaryLengthSize > len(d.data) {
		return nil, fmt.Errorf("%w: truncated binary length at offset %d", ErrMalformed, d.pos)
	}
	n := binary.BigEndian.Uint32(d.data[start:])
	start += constants.BinaryLengthSize
	if uint64(n) > uint64(len(d.data)-start) {
		return nil, fmt.Errorf("%w: binary value of %d bytes exceeds buffer at offset %d", ErrMalformed, n, d.pos)
	}
	b := make(Bin, n)
	copy(b, d.data[start:start+int(n)])
	d.pos = start + int(n)
	return b, nil
}

// readElements reads values until the closing bracket (closed=true) or
// the end of the buffer (closed=false).
func (d *Decoder) readElements(depth int, closed bool) (List, error) {
	l := List{}
	for {
		if d.pos >= len(d.data) {
			if closed {
				return nil, fmt.Errorf("%w: unterminated list at offset %d", ErrMalformed, d.pos)
			}
			return l, nil
		}
		if d.data[d.pos] == constants.TagListEnd {
			if !closed {
				return nil, fmt.Errorf("%w: unbalanced ']' at offset %d", ErrMalformed, d.pos)
			}
			d.pos++
			return l, nil
		}
		v, err := d.next(depth)
		if err != nil {
			return nil, err
		}
		l = append(l, v)
	}
}

// Unmarshal decodes exactly one value occupying the whole buffer.
func Unmarshal(data []byte) (Value, error) {
	d := NewDecoder(data)
	v, err := d.Next()
	if err != nil {
		return nil, err
	}
	if d.Remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after value", ErrMalformed, d.Remaining())
	}
	return v, nil
}

// UnmarshalList decodes a bracketed list occupying the whole buffer.
func UnmarshalList(data []byte) (List, error) {
	v, err := Unmarshal(data)
	if err != nil {
		return nil, err
	}
	l, ok := v.(List)
	if !ok {
		return nil, fmt.Errorf("%w: top-level %s, want list", ErrMalformed, v.Kind())
	}
	return l, nil
}

// UnmarshalInner decodes an implicit outer list: a concatenation of values
// without surrounding brackets, running to the end of the buffer.
func UnmarshalInner(data []byte) (List, error) {
	return NewDecoder(data).readElements(0, false)
}
