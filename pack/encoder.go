package pack

import (
	"hash/crc32"
	"io"

	"github.com/antgroup/gitvault/hash"
	"github.com/antgroup/gitvault/object"
)

// Encoder streams a packfile, tracking each entry's offset and CRC32 so
// WriteIndex can be called once encoding is complete. It hashes everything
// written (header, every entry) so Finish can emit the trailing checksum
// without a second pass over the stream.
type Encoder struct {
	algo    hash.Algo
	w       io.Writer
	sum     hash.Hasher
	written uint64
	entries []IndexEntry
}

// NewEncoder begins a pack stream: writes the 12-byte header immediately.
// count must be known up front since w is a plain io.Writer, which offers
// no seek-back to patch the count in later.
func NewEncoder(w io.Writer, algo hash.Algo, count uint32) (*Encoder, error) {
	e := &Encoder{algo: algo, w: w, sum: hash.NewHasher(algo)}
	mw := io.MultiWriter(e.w, e.sum)
	if err := WriteHeader(mw, Header{Version: VersionMin, Count: count}); err != nil {
		return nil, err
	}
	e.written = 12
	return e, nil
}

// WriteObject appends a non-delta object: a type+size header followed by
// its zlib-deflated canonical body.
func (e *Encoder) WriteObject(id hash.ID, o object.Object) error {
	body, err := object.Encode(o)
	if err != nil {
		return err
	}
	kind, err := kindForType(o.Type())
	if err != nil {
		return err
	}
	return e.writeEntry(id, kind, uint64(len(body)), body, 0, nil)
}

// WriteRefDelta appends a REF_DELTA entry: delta is applied against baseID,
// which may live anywhere in the repository, not just this pack.
func (e *Encoder) WriteRefDelta(id, baseID hash.ID, delta []byte) error {
	return e.writeEntry(id, KindRefDelta, 0, delta, 0, baseID)
}

// WriteOfsDelta appends an OFS_DELTA entry: baseOffset is the byte distance
// backwards, from this entry's own header start, to its base object's
// header start within the same pack.
func (e *Encoder) WriteOfsDelta(id hash.ID, baseOffset uint64, delta []byte) error {
	return e.writeEntry(id, KindOfsDelta, 0, delta, baseOffset, nil)
}

// writeEntry writes one packed object. For delta entries, payload is
// already the encoded delta instruction stream (which embeds its own base
// and target sizes), so size is only meaningful for non-delta entries.
func (e *Encoder) writeEntry(id hash.ID, kind ObjKind, size uint64, payload []byte, baseOffset uint64, baseID hash.ID) error {
	startOffset := e.written

	hbuf := &writerBuf{}
	if err := writeEntryHeader(hbuf, kind, size); err != nil {
		return err
	}
	switch kind {
	case KindOfsDelta:
		if err := writeOfsDeltaOffset(hbuf, baseOffset); err != nil {
			return err
		}
	case KindRefDelta:
		hbuf.b = append(hbuf.b, baseID...)
	}

	deflated, err := deflate(payload)
	if err != nil {
		return err
	}

	crc := crc32.NewIEEE()
	mw := io.MultiWriter(e.w, e.sum, crc)
	if _, err := mw.Write(hbuf.b); err != nil {
		return err
	}
	if _, err := mw.Write(deflated); err != nil {
		return err
	}

	n := uint64(len(hbuf.b) + len(deflated))
	e.written += n
	e.entries = append(e.entries, IndexEntry{ID: id, CRC32: crc.Sum32(), Offset: startOffset})
	return nil
}

// Entries returns the index entries accumulated so far, in write order.
func (e *Encoder) Entries() []IndexEntry {
	return append([]IndexEntry(nil), e.entries...)
}

func (e *Encoder) BytesWritten() uint64 { return e.written }

// Finish writes the trailing whole-pack checksum and returns it.
func (e *Encoder) Finish() (hash.ID, error) {
	sum := e.sum.Sum()
	_, err := e.w.Write(sum)
	return sum, err
}
