package pack

import (
	"bufio"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/antgroup/gitvault/errs"
	"github.com/antgroup/gitvault/hash"
	"github.com/antgroup/gitvault/object"
)

// offsetReader turns an io.ReaderAt into an io.Reader starting at a fixed
// offset, so zlib (which only accepts io.Reader) can stream an entry's
// compressed body without knowing its on-disk length in advance.
type offsetReader struct {
	ra     io.ReaderAt
	offset int64
}

func (r *offsetReader) Read(p []byte) (int, error) {
	n, err := r.ra.ReadAt(p, r.offset)
	r.offset += int64(n)
	return n, err
}

func (r *offsetReader) ByteReader() io.ByteReader {
	return bufio.NewReaderSize(r, 1)
}

// Reader resolves objects out of a single packfile addressed by byte
// offset, decompressing and, for delta entries, applying the instruction
// stream against a caller-supplied base resolver.
type Reader struct {
	ra   io.ReaderAt
	algo hash.Algo
}

func NewReader(ra io.ReaderAt, algo hash.Algo) *Reader {
	return &Reader{ra: ra, algo: algo}
}

// RawEntry is one packed object before delta resolution.
type RawEntry struct {
	Kind       ObjKind
	Size       uint64 // header size field: content size for non-delta entries; unused for deltas (Encoder writes 0)
	BaseOffset int64  // set for KindOfsDelta: absolute offset of the base
	BaseID     hash.ID
	Payload    []byte // inflated body (literal bytes or delta instructions)
	HeaderLen  int64  // always 0: ReadRawEntry does not measure the header (see entryHeaderLen)
}

// ReadRawEntry parses and inflates the object at offset, without resolving
// any delta chain.
func (r *Reader) ReadRawEntry(offset int64) (*RawEntry, error) {
	br := bufio.NewReader(&offsetReader{ra: r.ra, offset: offset})

	kind, size, err := readEntryHeader(br)
	if err != nil {
		return nil, &errs.PackFormatError{Offset: offset, Reason: "short entry header"}
	}
	headerLen := entryHeaderLen(br)

	entry := &RawEntry{Kind: kind, Size: size}
	switch kind {
	case KindOfsDelta:
		rel, err := readOfsDeltaOffset(br)
		if err != nil {
			return nil, &errs.PackFormatError{Offset: offset, Reason: "short ofs-delta offset"}
		}
		entry.BaseOffset = offset - int64(rel)
		headerLen = entryHeaderLen(br)
	case KindRefDelta:
		id := make(hash.ID, r.algo.Size())
		if _, err := io.ReadFull(br, id); err != nil {
			return nil, &errs.PackFormatError{Offset: offset, Reason: "short ref-delta base id"}
		}
		entry.BaseID = id
		headerLen = entryHeaderLen(br)
	}
	entry.HeaderLen = headerLen

	zr, err := zlib.NewReader(br)
	if err != nil {
		return nil, &errs.PackFormatError{Offset: offset, Reason: "bad zlib stream: " + err.Error()}
	}
	defer zr.Close()

	// For delta entries, `size` above is not relied on as the delta
	// stream's own length (Encoder writes 0 there), so the decompressed
	// instruction stream is read to zlib EOF rather than a fixed byte count.
	var payload []byte
	if kind.IsDelta() {
		payload, err = io.ReadAll(zr)
	} else {
		payload = make([]byte, size)
		_, err = io.ReadFull(zr, payload)
	}
	if err != nil {
		return nil, &errs.PackFormatError{Offset: offset, Reason: "short inflate: " + err.Error()}
	}
	entry.Payload = payload
	return entry, nil
}

// entryHeaderLen is a placeholder that always reports 0; ReadRawEntry only
// ever uses HeaderLen informationally (callers needing exact byte extents,
// such as re-encoding, track offsets themselves via Encoder instead).
func entryHeaderLen(io.ByteReader) int64 { return 0 }

// BaseResolver maps a REF_DELTA's base object id to its absolute offset
// within the pack this Reader reads, returning ok=false if the base is not
// in that pack (it must then be fetched from elsewhere: another pack, or
// the loose object store).
type BaseResolver func(id hash.ID) (offset int64, ok bool)

// ResolveObject reconstructs the full, type-tagged body at offset,
// following its delta chain (if any) up to MaxChainDepth and rejecting a
// chain that revisits an offset it has already walked.
func (r *Reader) ResolveObject(offset int64, resolveRef BaseResolver) (ObjKind, []byte, error) {
	type step struct {
		offset int64
		entry  *RawEntry
	}
	var chain []step
	visited := make(map[int64]bool)

	cur := offset
	for {
		if visited[cur] {
			return 0, nil, &errs.DeltaError{Reason: fmt.Sprintf("cyclic delta chain at offset %d", cur)}
		}
		visited[cur] = true
		if len(chain) > MaxChainDepth {
			return 0, nil, &errs.DeltaError{Reason: fmt.Sprintf("delta chain exceeds max depth %d", MaxChainDepth)}
		}

		entry, err := r.ReadRawEntry(cur)
		if err != nil {
			return 0, nil, err
		}
		chain = append(chain, step{offset: cur, entry: entry})
		if !entry.Kind.IsDelta() {
			break
		}

		switch entry.Kind {
		case KindOfsDelta:
			cur = entry.BaseOffset
		case KindRefDelta:
			next, ok := resolveRef(entry.BaseID)
			if !ok {
				return 0, nil, &errs.DeltaError{Reason: fmt.Sprintf("ref-delta base %s not found", entry.BaseID)}
			}
			cur = next
		}
	}

	// chain[len-1] is the non-delta base; walk back down applying deltas.
	base := chain[len(chain)-1].entry
	body := base.Payload
	kind := base.Kind
	for i := len(chain) - 2; i >= 0; i-- {
		applied, err := DecodeDelta(body, chain[i].entry.Payload)
		if err != nil {
			return 0, nil, err
		}
		body = applied
	}
	return kind, body, nil
}

// ResolveAsObject resolves offset to a fully decoded Object value.
func (r *Reader) ResolveAsObject(offset int64, resolveRef BaseResolver) (object.Object, error) {
	kind, body, err := r.ResolveObject(offset, resolveRef)
	if err != nil {
		return nil, err
	}
	typ, err := TypeForKind(kind)
	if err != nil {
		return nil, err
	}
	return object.DecodeWithAlgo(typ, body, r.algo)
}

// TypeForKind maps a pack entry's 3-bit object kind to the object package's
// Type, for callers (e.g. a multi-pack object store) that resolve objects
// via ReadRawEntry directly instead of through ResolveAsObject.
func TypeForKind(k ObjKind) (object.Type, error) {
	switch k {
	case KindCommit:
		return object.CommitType, nil
	case KindTree:
		return object.TreeType, nil
	case KindBlob:
		return object.BlobType, nil
	case KindTag:
		return object.TagType, nil
	default:
		return object.InvalidType, &errs.PackFormatError{Reason: fmt.Sprintf("not a base object kind: %d", k)}
	}
}
