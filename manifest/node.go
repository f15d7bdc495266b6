// Package manifest decodes torrent descriptors and projects them into the
// set of relative file paths the torrent is expected to contain.
//
// Descriptors use bencode: integers (i42e), byte strings (4:spam), lists
// (l...e) and dictionaries (d...e) whose keys are byte strings.
package manifest

import (
	"sort"
)

// Kind identifies the variant held by a Node.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInteger
	KindBytes
	KindList
	KindDict
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindBytes:
		return "byte string"
	case KindList:
		return "list"
	case KindDict:
		return "dictionary"
	}
	return "invalid"
}

// Node is one decoded bencode value. The zero Node is KindInvalid.
// Nodes are not modified after construction.
type Node struct {
	kind Kind
	num  int64
	raw  []byte
	list []Node
	dict map[string]Node
}

// Int returns an integer node.
func Int(v int64) Node { return Node{kind: KindInteger, num: v} }

// Bytes returns a byte string node holding a copy of b.
func Bytes(b []byte) Node {
	return Node{kind: KindBytes, raw: append([]byte{}, b...)}
}

// String returns a byte string node for s.
func String(s string) Node { return Node{kind: KindBytes, raw: []byte(s)} }

// List returns a list node.
func List(items ...Node) Node {
	return Node{kind: KindList, list: append([]Node{}, items...)}
}

// Dict returns a dictionary node. The map is copied.
func Dict(m map[string]Node) Node {
	d := make(map[string]Node, len(m))
	for k, v := range m {
		d[k] = v
	}
	return Node{kind: KindDict, dict: d}
}

func (n Node) Kind() Kind { return n.kind }

// AsInt returns the integer value, or false if n is not an integer.
func (n Node) AsInt() (int64, bool) {
	return n.num, n.kind == KindInteger
}

// AsBytes returns the raw bytes, or false if n is not a byte string.
// The returned slice must not be modified.
func (n Node) AsBytes() ([]byte, bool) {
	if n.kind != KindBytes {
		return nil, false
	}
	return n.raw, true
}

// AsText returns the byte string as path text (see Text).
func (n Node) AsText() (string, bool) {
	if n.kind != KindBytes {
		return "", false
	}
	return Text(n.raw), true
}

// AsList returns the list items, or false if n is not a list.
func (n Node) AsList() ([]Node, bool) {
	if n.kind != KindList {
		return nil, false
	}
	return n.list, true
}

// Get looks up key in a dictionary. It reports false when n is not a
// dictionary or the key is absent.
func (n Node) Get(key string) (Node, bool) {
	if n.kind != KindDict {
		return Node{}, false
	}
	v, ok := n.dict[key]
	return v, ok
}

// Keys returns dictionary keys in sorted byte order.
func (n Node) Keys() []string {
	if n.kind != KindDict {
		return nil
	}
	keys := make([]string, 0, len(n.dict))
	for k := range n.dict {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of items in a list or dictionary, or the byte
// length of a byte string.
func (n Node) Len() int {
	switch n.kind {
	case KindBytes:
		return len(n.raw)
	case KindList:
		return len(n.list)
	case KindDict:
		return len(n.dict)
	}
	return 0
}
