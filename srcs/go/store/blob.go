package store

import (
	"github.com/pkg/errors"
)

var errSizeNotMatch = errors.New("size not match")

// Blob is an immutable copy of a published value.
type Blob struct {
	Data []byte
}

func NewBlob(n int) *Blob {
	return &Blob{Data: make([]byte, n)}
}

func blobOf(bs []byte) *Blob {
	b := NewBlob(len(bs))
	copy(b.Data, bs)
	return b
}

func (b *Blob) CopyFrom(buf []byte) error {
	if len(b.Data) != len(buf) {
		return errSizeNotMatch
	}
	copy(b.Data, buf)
	return nil
}

func (b *Blob) Bytes() []byte {
	bs := make([]byte, len(b.Data))
	copy(bs, b.Data)
	return bs
}
