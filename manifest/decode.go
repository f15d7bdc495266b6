package manifest

import (
	"bytes"
	"strconv"
)

// frame is an open list or dictionary on the decode stack.
type frame struct {
	kind   Kind
	start  int
	list   []Node
	dict   map[string]Node
	key    string
	hasKey bool
}

func (f *frame) node() Node {
	if f.kind == KindDict {
		return Node{kind: KindDict, dict: f.dict}
	}
	if f.list == nil {
		f.list = []Node{}
	}
	return Node{kind: KindList, list: f.list}
}

// Decode parses exactly one bencode value from data. Nesting is tracked on
// an explicit stack, so producer-controlled depth cannot exhaust the call
// stack. Dictionary keys may arrive in any order; on duplicates the last
// value wins. Bytes after the value are rejected.
func Decode(data []byte) (Node, error) {
	n, end, err := decodeValue(data, 0)
	if err != nil {
		return Node{}, err
	}
	if end != len(data) {
		return Node{}, formatErrorf(end, "trailing data (%d bytes)", len(data)-end)
	}
	return n, nil
}

func decodeValue(data []byte, pos int) (Node, int, error) {
	var stack []*frame

	for {
		if pos >= len(data) {
			if len(stack) > 0 {
				top := stack[len(stack)-1]
				return Node{}, pos, formatErrorf(pos, "unexpected end of data in %s opened at offset %d", top.kind, top.start)
			}
			return Node{}, pos, formatErrorf(pos, "unexpected end of data")
		}

		start := pos
		var (
			n   Node
			err error
		)

		switch c := data[pos]; {
		case c == 'e':
			if len(stack) == 0 {
				return Node{}, pos, formatErrorf(pos, "unexpected end marker")
			}
			top := stack[len(stack)-1]
			if top.hasKey {
				return Node{}, pos, formatErrorf(pos, "dictionary key %q has no value", top.key)
			}
			stack = stack[:len(stack)-1]
			pos++
			n = top.node()

		case c == 'l':
			stack = append(stack, &frame{kind: KindList, start: pos})
			pos++
			continue

		case c == 'd':
			stack = append(stack, &frame{kind: KindDict, start: pos, dict: make(map[string]Node)})
			pos++
			continue

		case c == 'i':
			n, pos, err = decodeInt(data, pos)

		case '0' <= c && c <= '9':
			n, pos, err = decodeBytes(data, pos)

		default:
			return Node{}, pos, formatErrorf(pos, "unexpected byte %q", c)
		}
		if err != nil {
			return Node{}, pos, err
		}

		if len(stack) == 0 {
			return n, pos, nil
		}

		top := stack[len(stack)-1]
		switch {
		case top.kind == KindList:
			top.list = append(top.list, n)
		case !top.hasKey:
			if n.kind != KindBytes {
				return Node{}, start, formatErrorf(start, "dictionary key must be a byte string, got %s", n.kind)
			}
			top.key = string(n.raw)
			top.hasKey = true
		default:
			top.dict[top.key] = n
			top.hasKey = false
		}
	}
}

// decodeInt parses i<digits>e starting at the 'i'.
func decodeInt(data []byte, pos int) (Node, int, error) {
	body := data[pos+1:]
	end := bytes.IndexByte(body, 'e')
	if end < 0 {
		return Node{}, pos, formatErrorf(pos, "integer missing end marker")
	}
	digits := body[:end]

	mag := digits
	if len(mag) > 0 && mag[0] == '-' {
		mag = mag[1:]
	}
	switch {
	case len(mag) == 0:
		return Node{}, pos, formatErrorf(pos, "integer has no digits")
	case !allDigits(mag):
		return Node{}, pos, formatErrorf(pos, "integer %q is not decimal", digits)
	case mag[0] == '0' && len(mag) > 1:
		return Node{}, pos, formatErrorf(pos, "integer %q has leading zero", digits)
	case mag[0] == '0' && len(digits) != len(mag):
		return Node{}, pos, formatErrorf(pos, "negative zero")
	}

	v, err := strconv.ParseInt(string(digits), 10, 64)
	if err != nil {
		return Node{}, pos, formatErrorf(pos, "integer %q out of range", digits)
	}
	return Int(v), pos + 1 + end + 1, nil
}

// decodeBytes parses <length>:<bytes> starting at the first length digit.
func decodeBytes(data []byte, pos int) (Node, int, error) {
	i := pos
	for i < len(data) && '0' <= data[i] && data[i] <= '9' {
		i++
	}
	if i >= len(data) {
		return Node{}, pos, formatErrorf(pos, "byte string length missing ':'")
	}
	if data[i] != ':' {
		return Node{}, pos, formatErrorf(i, "byte string length followed by %q, want ':'", data[i])
	}

	length, err := strconv.ParseUint(string(data[pos:i]), 10, 63)
	if err != nil {
		return Node{}, pos, formatErrorf(pos, "byte string length %q out of range", data[pos:i])
	}
	start := i + 1
	if length > uint64(len(data)-start) {
		return Node{}, pos, formatErrorf(pos, "byte string of %d bytes exceeds remaining %d", length, len(data)-start)
	}
	end := start + int(length)
	return Node{kind: KindBytes, raw: bytes.Clone(data[start:end])}, end, nil
}

func allDigits(b []byte) bool {
	for _, c := range b {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
