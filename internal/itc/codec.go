package itc

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Wire tags for IDTree and EventTree nodes. Kept small and explicit rather
// than routed through encoding/json or encoding/gob: both trees are
// interfaces over unexported concrete types, so there is no struct shape
// for reflection-based codecs to hook into; a tagged recursive encoding is
// the natural fit, in the spirit of the length/tag-prefixed framing used
// elsewhere in this module's wire format.
const (
	tagIDZero byte = iota
	tagIDOne
	tagIDBranch
)

const (
	tagEventLeaf byte = iota
	tagEventNode
)

// WriteIDTree serializes t to w.
func WriteIDTree(w io.Writer, t IDTree) error {
	switch v := t.(type) {
	case idZero:
		_, err := w.Write([]byte{tagIDZero})
		return err
	case idOne:
		_, err := w.Write([]byte{tagIDOne})
		return err
	case Branch:
		if _, err := w.Write([]byte{tagIDBranch}); err != nil {
			return err
		}
		if err := WriteIDTree(w, v.Left); err != nil {
			return err
		}
		return WriteIDTree(w, v.Right)
	default:
		return fmt.Errorf("itc: unknown IDTree implementation %T", t)
	}
}

// ReadIDTree deserializes an IDTree from r.
func ReadIDTree(r io.ByteReader) (IDTree, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagIDZero:
		return Zero, nil
	case tagIDOne:
		return One, nil
	case tagIDBranch:
		left, err := ReadIDTree(r)
		if err != nil {
			return nil, err
		}
		right, err := ReadIDTree(r)
		if err != nil {
			return nil, err
		}
		return Sub(left, right), nil
	default:
		return nil, fmt.Errorf("itc: unknown IDTree tag %d", tag)
	}
}

// WriteEventTree serializes e to w.
func WriteEventTree(w io.Writer, e EventTree) error {
	var buf [binary.MaxVarintLen64]byte
	switch v := e.(type) {
	case Leaf:
		if _, err := w.Write([]byte{tagEventLeaf}); err != nil {
			return err
		}
		n := binary.PutUvarint(buf[:], v.N)
		_, err := w.Write(buf[:n])
		return err
	case Node:
		if _, err := w.Write([]byte{tagEventNode}); err != nil {
			return err
		}
		n := binary.PutUvarint(buf[:], v.N)
		if _, err := w.Write(buf[:n]); err != nil {
			return err
		}
		if err := WriteEventTree(w, v.Left); err != nil {
			return err
		}
		return WriteEventTree(w, v.Right)
	default:
		return fmt.Errorf("itc: unknown EventTree implementation %T", e)
	}
}

// ReadEventTree deserializes an EventTree from r.
func ReadEventTree(r io.ByteReader) (EventTree, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagEventLeaf:
		n, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, err
		}
		return Leaf{N: n}, nil
	case tagEventNode:
		n, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, err
		}
		left, err := ReadEventTree(r)
		if err != nil {
			return nil, err
		}
		right, err := ReadEventTree(r)
		if err != nil {
			return nil, err
		}
		return Node{N: n, Left: left, Right: right}, nil
	default:
		return nil, fmt.Errorf("itc: unknown EventTree tag %d", tag)
	}
}
