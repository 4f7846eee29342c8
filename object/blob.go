package object

import "io"

// Blob is an opaque byte sequence. Unlike the zeta lineage this package
// replaces, Blob carries no compression or inline-storage framing of its
// own — that belongs entirely to the storage layer (loose objects and
// packs), which may compress however it likes on top of these bytes.
type Blob struct {
	Content []byte
}

func (b *Blob) Type() Type { return BlobType }

func (b *Blob) Encode(w io.Writer) error {
	_, err := w.Write(b.Content)
	return err
}

// Decode stores body verbatim; a blob's body is never further parsed.
func (b *Blob) Decode(body []byte) error {
	b.Content = append([]byte(nil), body...)
	return nil
}

func (b *Blob) Size() int64 { return int64(len(b.Content)) }
