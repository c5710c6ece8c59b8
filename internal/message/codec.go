package message

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/byronwasti/florescence/internal/domain"
	"github.com/byronwasti/florescence/internal/itc"
)

// AddrCodec tells the message codec how to frame a transport's address
// type on the wire. This package defines one instance per address type
// (MemAddrCodec, NetAddrCodec); grpcengine and httpengine pass NetAddrCodec,
// while memengine never serializes messages — kept as plain functions rather
// than a generic constraint on A so that A itself (int, string, ...) needs
// no methods of its own.
type AddrCodec[A any] struct {
	Encode func(w io.Writer, a A) error
	Decode func(r io.Reader) (A, error)
}

// reader wraps an io.Reader with the byte-at-a-time interface the itc tree
// codec needs.
type reader struct{ io.Reader }

func (r *reader) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(r.Reader, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func writeUvarint(w io.Writer, v uint64) error {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], v)
	_, err := w.Write(buf[:n])
	return err
}

func readUvarint(r io.ByteReader) (uint64, error) { return binary.ReadUvarint(r) }

const (
	optNone byte = iota
	optSome
)

func encodePeerInfo[A any](w io.Writer, p domain.PeerInfo[A], addr AddrCodec[A]) error {
	if _, err := w.Write(p.UUID[:]); err != nil {
		return err
	}
	if _, err := w.Write([]byte{byte(p.Status)}); err != nil {
		return err
	}
	if p.Addr == nil {
		_, err := w.Write([]byte{optNone})
		return err
	}
	if _, err := w.Write([]byte{optSome}); err != nil {
		return err
	}
	return addr.Encode(w, *p.Addr)
}

func decodePeerInfo[A any](r *reader, addr AddrCodec[A]) (domain.PeerInfo[A], error) {
	var p domain.PeerInfo[A]
	var idBuf [16]byte
	if _, err := io.ReadFull(r, idBuf[:]); err != nil {
		return p, err
	}
	p.UUID = uuid.UUID(idBuf)

	statusByte, err := r.ReadByte()
	if err != nil {
		return p, err
	}
	p.Status = domain.PeerStatus(statusByte)

	tag, err := r.ReadByte()
	if err != nil {
		return p, err
	}
	if tag == optSome {
		a, err := addr.Decode(r)
		if err != nil {
			return p, err
		}
		p.Addr = &a
	}
	return p, nil
}

func encodePatch[A any](w io.Writer, patch itc.Patch[domain.PeerInfo[A]], addr AddrCodec[A]) error {
	if err := itc.WriteEventTree(w, patch.Timestamp); err != nil {
		return err
	}
	if err := writeUvarint(w, uint64(len(patch.Entries))); err != nil {
		return err
	}
	for _, e := range patch.Entries {
		if err := itc.WriteIDTree(w, e.ID); err != nil {
			return err
		}
		if err := encodePeerInfo(w, e.Value, addr); err != nil {
			return err
		}
	}
	return nil
}

func decodePatch[A any](r *reader, addr AddrCodec[A]) (itc.Patch[domain.PeerInfo[A]], error) {
	var patch itc.Patch[domain.PeerInfo[A]]
	ts, err := itc.ReadEventTree(r)
	if err != nil {
		return patch, err
	}
	patch.Timestamp = ts
	count, err := readUvarint(r)
	if err != nil {
		return patch, err
	}
	patch.Entries = make([]itc.Entry[domain.PeerInfo[A]], 0, count)
	for i := uint64(0); i < count; i++ {
		id, err := itc.ReadIDTree(r)
		if err != nil {
			return patch, err
		}
		val, err := decodePeerInfo(r, addr)
		if err != nil {
			return patch, err
		}
		patch.Entries = append(patch.Entries, itc.Entry[domain.PeerInfo[A]]{ID: id, Value: val})
	}
	return patch, nil
}

// usesPatch reports whether k carries a Patch payload on the wire.
func usesPatch(k Kind) bool {
	switch k {
	case Update, RealitySkew, Seed:
		return true
	default:
		return false
	}
}

// usesPeerCount reports whether k carries a peer-count field.
func usesPeerCount(k Kind) bool {
	switch k {
	case RealitySkew, Seed:
		return true
	default:
		return false
	}
}

// usesID reports whether k carries the sender's own IDTree.
func usesID(k Kind) bool {
	return k != NewMember
}

// Encode serializes msg to w.
func Encode[A any](w io.Writer, msg Message[A], addr AddrCodec[A]) error {
	if _, err := w.Write([]byte{byte(msg.Kind)}); err != nil {
		return err
	}
	if _, err := w.Write(msg.UUID[:]); err != nil {
		return err
	}
	if usesID(msg.Kind) {
		if err := itc.WriteIDTree(w, msg.ID); err != nil {
			return err
		}
		if err := itc.WriteEventTree(w, msg.Timestamp); err != nil {
			return err
		}
		if _, err := w.Write(msg.RealityToken[:]); err != nil {
			return err
		}
	}
	if usesPatch(msg.Kind) {
		if err := encodePatch(w, msg.Patch, addr); err != nil {
			return err
		}
	}
	if usesPeerCount(msg.Kind) {
		if err := writeUvarint(w, uint64(msg.PeerCount)); err != nil {
			return err
		}
	}
	if msg.Kind == Seed {
		if msg.NewID == nil {
			_, err := w.Write([]byte{optNone})
			if err != nil {
				return err
			}
		} else {
			if _, err := w.Write([]byte{optSome}); err != nil {
				return err
			}
			if err := itc.WriteIDTree(w, msg.NewID); err != nil {
				return err
			}
		}
	}
	return nil
}

// Decode deserializes a Message from r.
func Decode[A any](r io.Reader, addr AddrCodec[A]) (Message[A], error) {
	var msg Message[A]
	rr := &reader{Reader: r}

	kindByte, err := rr.ReadByte()
	if err != nil {
		return msg, err
	}
	msg.Kind = Kind(kindByte)
	if msg.Kind > NewMember {
		return msg, fmt.Errorf("message: unknown kind %d: %w", kindByte, domain.ErrDeserialization)
	}

	var idBuf [16]byte
	if _, err := io.ReadFull(rr, idBuf[:]); err != nil {
		return msg, err
	}
	msg.UUID = uuid.UUID(idBuf)

	if usesID(msg.Kind) {
		id, err := itc.ReadIDTree(rr)
		if err != nil {
			return msg, err
		}
		msg.ID = id
		ts, err := itc.ReadEventTree(rr)
		if err != nil {
			return msg, err
		}
		msg.Timestamp = ts
		var rtBuf [16]byte
		if _, err := io.ReadFull(rr, rtBuf[:]); err != nil {
			return msg, err
		}
		msg.RealityToken = domain.RealityToken(rtBuf)
	}

	if usesPatch(msg.Kind) {
		patch, err := decodePatch(rr, addr)
		if err != nil {
			return msg, err
		}
		msg.Patch = patch
	}

	if usesPeerCount(msg.Kind) {
		count, err := readUvarint(rr)
		if err != nil {
			return msg, err
		}
		msg.PeerCount = int(count)
	}

	if msg.Kind == Seed {
		tag, err := rr.ReadByte()
		if err != nil {
			return msg, err
		}
		if tag == optSome {
			id, err := itc.ReadIDTree(rr)
			if err != nil {
				return msg, err
			}
			msg.NewID = id
		}
	}

	return msg, nil
}
