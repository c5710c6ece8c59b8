package message

import (
	"io"

	"github.com/byronwasti/florescence/internal/domain"
)

// MemAddrCodec frames domain.MemAddr (an in-memory world-registry slot
// index) as an unsigned varint.
var MemAddrCodec = AddrCodec[domain.MemAddr]{
	Encode: func(w io.Writer, a domain.MemAddr) error {
		return writeUvarint(w, uint64(a))
	},
	Decode: func(r io.Reader) (domain.MemAddr, error) {
		n, err := readUvarint(&reader{Reader: r})
		return domain.MemAddr(n), err
	},
}

// NetAddrCodec frames domain.NetAddr ("host:port") as a length-prefixed
// UTF-8 string, in the length+bytes style common to hand-rolled binary wire
// formats.
var NetAddrCodec = AddrCodec[domain.NetAddr]{
	Encode: func(w io.Writer, a domain.NetAddr) error {
		if err := writeUvarint(w, uint64(len(a))); err != nil {
			return err
		}
		_, err := io.WriteString(w, string(a))
		return err
	},
	Decode: func(r io.Reader) (domain.NetAddr, error) {
		rr := &reader{Reader: r}
		n, err := readUvarint(rr)
		if err != nil {
			return "", err
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(rr, buf); err != nil {
			return "", err
		}
		return domain.NetAddr(buf), nil
	},
}
