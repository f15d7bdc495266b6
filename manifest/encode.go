package manifest

import (
	"strconv"
)

// Encode returns the canonical bencoding of n: dictionary keys are written
// in sorted byte order. Decoding canonical input and encoding the result
// reproduces the input byte for byte.
func Encode(n Node) []byte {
	return appendNode(nil, n)
}

func appendNode(dst []byte, n Node) []byte {
	switch n.kind {
	case KindInteger:
		dst = append(dst, 'i')
		dst = strconv.AppendInt(dst, n.num, 10)
		return append(dst, 'e')
	case KindBytes:
		return appendBytes(dst, n.raw)
	case KindList:
		dst = append(dst, 'l')
		for _, item := range n.list {
			dst = appendNode(dst, item)
		}
		return append(dst, 'e')
	case KindDict:
		dst = append(dst, 'd')
		for _, k := range n.Keys() {
			dst = appendBytes(dst, []byte(k))
			dst = appendNode(dst, n.dict[k])
		}
		return append(dst, 'e')
	}
	return dst
}

func appendBytes(dst, b []byte) []byte {
	dst = strconv.AppendInt(dst, int64(len(b)), 10)
	dst = append(dst, ':')
	return append(dst, b...)
}
