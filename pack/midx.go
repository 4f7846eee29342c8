package pack

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/antgroup/gitvault/errs"
	"github.com/antgroup/gitvault/hash"
)

var midxMagic = [4]byte{'M', 'I', 'D', 'X'}

const MidxVersion = 1

// midxChecksumSize is fixed at 20 bytes regardless
// of the repository's configured object-id algorithm: the MIDX trailer is a
// SHA-1 digest of everything preceding it, used only for file-integrity
// checking, not as an object id.
const midxChecksumSize = 20

// MidxEntry is one object's location across the packs a multi-pack index
// spans: which pack (by index into Packs) and its byte offset within it.
type MidxEntry struct {
	ID        hash.ID
	PackIndex uint32
	Offset    uint64
}

// Midx is a parsed multi-pack index: a single sorted lookup table spanning
// every pack listed in Packs.
type Midx struct {
	Packs   []string
	entries []MidxEntry
}

// Entries returns every entry, in id-sorted order.
func (m *Midx) Entries() []MidxEntry { return append([]MidxEntry(nil), m.entries...) }

// Find performs a binary search for id across every pack the index spans.
func (m *Midx) Find(id hash.ID) (entry MidxEntry, ok bool) {
	i := sort.Search(len(m.entries), func(j int) bool {
		return bytes.Compare(m.entries[j].ID, id) >= 0
	})
	if i < len(m.entries) && m.entries[i].ID.Equal(id) {
		return m.entries[i], true
	}
	return MidxEntry{}, false
}

// BuildMidx constructs a Midx from the id→(packIndex, offset) entries
// supplied by the caller for every pack in packs (rebuild fan-out across
// packs, and collapsing concurrent rebuild requests for the same
// repository, are the caller's concern — see packstore's rebuilder, which
// wires golang.org/x/sync's errgroup and singleflight around this
// function). Entries need not arrive pre-sorted or pre-deduplicated;
// BuildMidx sorts and rejects duplicate object ids.
func BuildMidx(packs []string, entries []MidxEntry) (*Midx, error) {
	sorted := append([]MidxEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].ID, sorted[j].ID) < 0
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].ID.Equal(sorted[i].ID) {
			return nil, &errs.PackFormatError{Reason: fmt.Sprintf("duplicate object %s across packs in midx", sorted[i].ID)}
		}
	}
	return &Midx{Packs: append([]string(nil), packs...), entries: sorted}, nil
}

// WriteMidx serializes m to the wire format: "MIDX" magic, u32
// version, u32 packCount, u32 entryCount, length-prefixed pack ids, sorted
// entries (id as hex text, u32 pack index, u64 offset), trailing SHA-1
// checksum of everything written before it.
func WriteMidx(w io.Writer, m *Midx) error {
	h := hash.NewHasher(hash.SHA1)
	mw := io.MultiWriter(w, h)

	if _, err := mw.Write(midxMagic[:]); err != nil {
		return err
	}
	if err := binary.Write(mw, binary.BigEndian, uint32(MidxVersion)); err != nil {
		return err
	}
	if err := binary.Write(mw, binary.BigEndian, uint32(len(m.Packs))); err != nil {
		return err
	}
	if err := binary.Write(mw, binary.BigEndian, uint32(len(m.entries))); err != nil {
		return err
	}
	for _, p := range m.Packs {
		if err := binary.Write(mw, binary.BigEndian, uint32(len(p))); err != nil {
			return err
		}
		if _, err := io.WriteString(mw, p); err != nil {
			return err
		}
	}
	for _, e := range m.entries {
		idHex := []byte(e.ID.String())
		if _, err := mw.Write(idHex); err != nil {
			return err
		}
		if err := binary.Write(mw, binary.BigEndian, e.PackIndex); err != nil {
			return err
		}
		if err := binary.Write(mw, binary.BigEndian, e.Offset); err != nil {
			return err
		}
	}
	sum := h.Sum()
	_, err := w.Write(sum)
	return err
}

// ReadMidx parses a MIDX stream. idWidth is the configured object-id byte
// width (20 for SHA-1, 32 for SHA-256): the on-disk entry carries the id as
// hex text, 2*idWidth bytes long.
func ReadMidx(r io.Reader, idWidth int) (*Midx, error) {
	br := bufio.NewReader(r)

	var magic [4]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return nil, &errs.PackFormatError{Reason: "short midx header"}
	}
	if magic != midxMagic {
		return nil, &errs.PackFormatError{Reason: "bad midx signature"}
	}
	var version, packCount, entryCount uint32
	if err := binary.Read(br, binary.BigEndian, &version); err != nil {
		return nil, &errs.PackFormatError{Reason: "short midx version"}
	}
	if version != MidxVersion {
		return nil, &errs.PackFormatError{Reason: fmt.Sprintf("unsupported midx version %d", version)}
	}
	if err := binary.Read(br, binary.BigEndian, &packCount); err != nil {
		return nil, &errs.PackFormatError{Reason: "short midx pack count"}
	}
	if err := binary.Read(br, binary.BigEndian, &entryCount); err != nil {
		return nil, &errs.PackFormatError{Reason: "short midx entry count"}
	}

	packs := make([]string, packCount)
	for i := range packs {
		var n uint32
		if err := binary.Read(br, binary.BigEndian, &n); err != nil {
			return nil, &errs.PackFormatError{Reason: "short midx pack id length"}
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, &errs.PackFormatError{Reason: "short midx pack id"}
		}
		packs[i] = string(buf)
	}

	hexWidth := idWidth * 2
	entries := make([]MidxEntry, entryCount)
	for i := range entries {
		hexBuf := make([]byte, hexWidth)
		if _, err := io.ReadFull(br, hexBuf); err != nil {
			return nil, &errs.PackFormatError{Reason: "short midx entry id"}
		}
		id, err := hash.FromHex(string(hexBuf))
		if err != nil {
			return nil, &errs.PackFormatError{Reason: "bad midx entry id: " + err.Error()}
		}
		var packIndex uint32
		if err := binary.Read(br, binary.BigEndian, &packIndex); err != nil {
			return nil, &errs.PackFormatError{Reason: "short midx pack index"}
		}
		var offset uint64
		if err := binary.Read(br, binary.BigEndian, &offset); err != nil {
			return nil, &errs.PackFormatError{Reason: "short midx offset"}
		}
		entries[i] = MidxEntry{ID: id, PackIndex: packIndex, Offset: offset}
	}

	checksum := make([]byte, midxChecksumSize)
	if _, err := io.ReadFull(br, checksum); err != nil {
		return nil, &errs.PackFormatError{Reason: "short midx checksum"}
	}

	return &Midx{Packs: packs, entries: entries}, nil
}
