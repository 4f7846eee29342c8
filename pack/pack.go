// Package pack implements Git's packfile and index formats: a single
// "PACK" stream of zlib-deflated, optionally delta-compressed objects, its
// version-2 fanout index, and a multi-pack index (MIDX) layered on top of
// several packs.
package pack

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/antgroup/gitvault/errs"
	"github.com/antgroup/gitvault/hash"
	"github.com/antgroup/gitvault/object"
)

var packMagic = [4]byte{'P', 'A', 'C', 'K'}

const (
	VersionMin = 2
	VersionMax = 3
)

// Header is the 12-byte packfile preamble.
type Header struct {
	Version uint32
	Count   uint32
}

func WriteHeader(w io.Writer, h Header) error {
	if _, err := w.Write(packMagic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, h.Version); err != nil {
		return err
	}
	return binary.Write(w, binary.BigEndian, h.Count)
}

func ReadHeader(r io.Reader) (Header, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return Header{}, &errs.PackFormatError{Offset: 0, Reason: "short header"}
	}
	if magic != packMagic {
		return Header{}, &errs.PackFormatError{Offset: 0, Reason: fmt.Sprintf("bad signature %q", magic)}
	}
	var h Header
	if err := binary.Read(r, binary.BigEndian, &h.Version); err != nil {
		return Header{}, &errs.PackFormatError{Offset: 4, Reason: "short version"}
	}
	if h.Version < VersionMin || h.Version > VersionMax {
		return Header{}, &errs.PackFormatError{Offset: 4, Reason: fmt.Sprintf("unsupported pack version %d", h.Version)}
	}
	if err := binary.Read(r, binary.BigEndian, &h.Count); err != nil {
		return Header{}, &errs.PackFormatError{Offset: 8, Reason: "short count"}
	}
	return h, nil
}

// ObjKind is the 3-bit object type tag in a pack entry header.
type ObjKind uint8

const (
	KindCommit   ObjKind = 1
	KindTree     ObjKind = 2
	KindBlob     ObjKind = 3
	KindTag      ObjKind = 4
	KindOfsDelta ObjKind = 6
	KindRefDelta ObjKind = 7
)

func (k ObjKind) IsDelta() bool { return k == KindOfsDelta || k == KindRefDelta }

func kindForType(t object.Type) (ObjKind, error) {
	switch t {
	case object.CommitType:
		return KindCommit, nil
	case object.TreeType:
		return KindTree, nil
	case object.BlobType:
		return KindBlob, nil
	case object.TagType:
		return KindTag, nil
	default:
		return 0, &errs.PackFormatError{Reason: fmt.Sprintf("cannot pack object type %v", t)}
	}
}

// EntryHeader is the variable-length type+size prefix on every packed
// object. Type occupies 3 bits of the first byte, which also carries the
// low 4 bits of size; each following byte adds 7 more bits of size,
// little-endian, with the MSB of each byte signalling continuation —
// Git's packfile object header format.
type EntryHeader struct {
	Kind ObjKind
	Size uint64
	// BaseOffset is set for KindOfsDelta: the negative offset, relative to
	// this entry's own start, of the delta's base object.
	BaseOffset uint64
	// BaseID is set for KindRefDelta: the id of the delta's base object.
	BaseID hash.ID
}

func writeEntryHeader(w io.Writer, kind ObjKind, size uint64) error {
	first := byte(kind)<<4 | byte(size&0x0f)
	size >>= 4
	if size > 0 {
		first |= 0x80
	}
	if err := writeByte(w, first); err != nil {
		return err
	}
	for size > 0 {
		b := byte(size & 0x7f)
		size >>= 7
		if size > 0 {
			b |= 0x80
		}
		if err := writeByte(w, b); err != nil {
			return err
		}
	}
	return nil
}

func writeByte(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

// writeOfsDeltaOffset encodes a negative relative offset in Git's
// base-128, MSB-continuation, "shift and add one" varint form.
func writeOfsDeltaOffset(w io.Writer, offset uint64) error {
	var buf [10]byte
	n := 0
	buf[len(buf)-1] = byte(offset & 0x7f)
	n++
	offset >>= 7
	for offset > 0 {
		offset--
		n++
		buf[len(buf)-n] = byte(offset&0x7f) | 0x80
		offset >>= 7
	}
	_, err := w.Write(buf[len(buf)-n:])
	return err
}

func readOfsDeltaOffset(r io.ByteReader) (uint64, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	offset := uint64(b & 0x7f)
	for b&0x80 != 0 {
		b, err = r.ReadByte()
		if err != nil {
			return 0, err
		}
		offset++
		offset = (offset << 7) | uint64(b&0x7f)
	}
	return offset, nil
}

func readEntryHeader(br io.ByteReader) (ObjKind, uint64, error) {
	b, err := br.ReadByte()
	if err != nil {
		return 0, 0, err
	}
	kind := ObjKind((b >> 4) & 0x07)
	size := uint64(b & 0x0f)
	shift := uint(4)
	for b&0x80 != 0 {
		b, err = br.ReadByte()
		if err != nil {
			return 0, 0, err
		}
		size |= uint64(b&0x7f) << shift
		shift += 7
	}
	return kind, size, nil
}

// deflate compresses payload with zlib, as every non-delta-instruction
// packed object body is stored.
func deflate(payload []byte) ([]byte, error) {
	var buf writerBuf
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(payload); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.b, nil
}

func inflate(r io.Reader, size int) ([]byte, error) {
	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, &errs.PackFormatError{Reason: "bad zlib stream: " + err.Error()}
	}
	defer zr.Close()
	out := make([]byte, size)
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, &errs.PackFormatError{Reason: "short inflate: " + err.Error()}
	}
	return out, nil
}

type writerBuf struct{ b []byte }

func (w *writerBuf) Write(p []byte) (int, error) {
	w.b = append(w.b, p...)
	return len(p), nil
}

// crcReader tees reads through a running CRC32, matching the index's
// per-entry checksum field.
type crcReader struct {
	r   io.Reader
	crc uint32
}

func newCRCReader(r io.Reader) *crcReader {
	return &crcReader{r: r, crc: 0}
}

func (c *crcReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.crc = crc32.Update(c.crc, crc32.IEEETable, p[:n])
	}
	return n, err
}
