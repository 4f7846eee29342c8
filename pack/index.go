package pack

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/antgroup/gitvault/errs"
	"github.com/antgroup/gitvault/hash"
)

// indexMagic is Git's v2 pack index signature, 0xff followed by "tOc".
var indexMagic = [4]byte{0xff, 't', 'O', 'c'}

const IndexVersion = 2

const offset64Flag = uint32(1) << 31

// IndexEntry is one object's location within a pack, as recorded in its
// index: offset, CRC32 of the compressed bytes on disk.
type IndexEntry struct {
	ID     hash.ID
	CRC32  uint32
	Offset uint64
}

// WriteIndex serializes entries (already deduplicated) as a version-2
// fanout index: a 256-bucket cumulative-count fanout table, sorted ids,
// parallel CRC32 table, parallel 4-byte offsets (with the top bit flagging
// an index into the trailing 8-byte overflow table for offsets that don't
// fit in 31 bits), the overflow table itself, and a trailer of the pack's
// own checksum followed by the index file's own checksum.
func WriteIndex(w io.Writer, algo hash.Algo, packSum hash.ID, entries []IndexEntry) error {
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].ID, entries[j].ID) < 0
	})
	for i := 1; i < len(entries); i++ {
		if entries[i-1].ID.Equal(entries[i].ID) {
			return &errs.PackFormatError{Reason: fmt.Sprintf("duplicate object %s in index", entries[i].ID)}
		}
	}

	h := algo.New()
	mw := io.MultiWriter(w, h)

	if _, err := mw.Write(indexMagic[:]); err != nil {
		return err
	}
	if err := binary.Write(mw, binary.BigEndian, uint32(IndexVersion)); err != nil {
		return err
	}

	var fanout [256]uint32
	for _, e := range entries {
		if len(e.ID) == 0 {
			return &errs.PackFormatError{Reason: "empty object id in index"}
		}
		fanout[e.ID[0]]++
	}
	var cumulative uint32
	for i := 0; i < 256; i++ {
		cumulative += fanout[i]
		if err := binary.Write(mw, binary.BigEndian, cumulative); err != nil {
			return err
		}
	}

	for _, e := range entries {
		if _, err := mw.Write(e.ID); err != nil {
			return err
		}
	}
	for _, e := range entries {
		if err := binary.Write(mw, binary.BigEndian, e.CRC32); err != nil {
			return err
		}
	}

	var overflow []uint64
	for _, e := range entries {
		off := e.Offset
		if off > math.MaxInt32 {
			encoded := offset64Flag | uint32(len(overflow))
			overflow = append(overflow, off)
			off = uint64(encoded)
		}
		if err := binary.Write(mw, binary.BigEndian, uint32(off)); err != nil {
			return err
		}
	}
	for _, off := range overflow {
		if err := binary.Write(mw, binary.BigEndian, off); err != nil {
			return err
		}
	}

	if _, err := mw.Write(packSum); err != nil {
		return err
	}
	sum := h.Sum(nil)
	_, err := w.Write(sum)
	return err
}

// Index is a parsed, randomly-seekable view over a version-2 index file.
type Index struct {
	algo    hash.Algo
	fanout  [256]uint32
	ids     []hash.ID
	crcs    []uint32
	offsets []uint64
	PackSum hash.ID
	Sum     hash.ID
}

// ReadIndex parses the full contents of a version-2 index file, given the
// repository's configured hash algorithm (ids are binary and therefore not
// self-describing).
func ReadIndex(r io.Reader, algo hash.Algo) (*Index, error) {
	br := bufio.NewReader(r)

	var magic [4]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return nil, &errs.PackFormatError{Reason: "short index header"}
	}
	if magic != indexMagic {
		return nil, &errs.PackFormatError{Reason: "bad index signature"}
	}
	var version uint32
	if err := binary.Read(br, binary.BigEndian, &version); err != nil {
		return nil, &errs.PackFormatError{Reason: "short index version"}
	}
	if version != IndexVersion {
		return nil, &errs.PackFormatError{Reason: fmt.Sprintf("unsupported index version %d", version)}
	}

	idx := &Index{algo: algo}
	for i := 0; i < 256; i++ {
		if err := binary.Read(br, binary.BigEndian, &idx.fanout[i]); err != nil {
			return nil, &errs.PackFormatError{Reason: "short fanout table"}
		}
	}
	count := int(idx.fanout[255])
	width := algo.Size()

	idx.ids = make([]hash.ID, count)
	for i := 0; i < count; i++ {
		id := make(hash.ID, width)
		if _, err := io.ReadFull(br, id); err != nil {
			return nil, &errs.PackFormatError{Reason: "short id table"}
		}
		idx.ids[i] = id
	}

	idx.crcs = make([]uint32, count)
	for i := 0; i < count; i++ {
		if err := binary.Read(br, binary.BigEndian, &idx.crcs[i]); err != nil {
			return nil, &errs.PackFormatError{Reason: "short crc table"}
		}
	}

	small := make([]uint32, count)
	var overflowCount int
	for i := 0; i < count; i++ {
		if err := binary.Read(br, binary.BigEndian, &small[i]); err != nil {
			return nil, &errs.PackFormatError{Reason: "short offset table"}
		}
		if small[i]&offset64Flag != 0 {
			if n := int(small[i]&^offset64Flag) + 1; n > overflowCount {
				overflowCount = n
			}
		}
	}
	overflow := make([]uint64, overflowCount)
	for i := range overflow {
		if err := binary.Read(br, binary.BigEndian, &overflow[i]); err != nil {
			return nil, &errs.PackFormatError{Reason: "short overflow offset table"}
		}
	}

	idx.offsets = make([]uint64, count)
	for i := 0; i < count; i++ {
		if small[i]&offset64Flag != 0 {
			idx.offsets[i] = overflow[small[i]&^offset64Flag]
		} else {
			idx.offsets[i] = uint64(small[i])
		}
	}

	idx.PackSum = make(hash.ID, width)
	if _, err := io.ReadFull(br, idx.PackSum); err != nil {
		return nil, &errs.PackFormatError{Reason: "short pack checksum"}
	}
	idx.Sum = make(hash.ID, width)
	if _, err := io.ReadFull(br, idx.Sum); err != nil {
		return nil, &errs.PackFormatError{Reason: "short index checksum"}
	}
	return idx, nil
}

// Count returns the number of objects the index describes.
func (idx *Index) Count() int { return len(idx.ids) }

// Find returns the offset of id within the pack, or ok=false if absent.
// The fanout table narrows the search to the ids sharing id's first byte
// before a binary search over that range of the sorted id table.
func (idx *Index) Find(id hash.ID) (offset uint64, ok bool) {
	if len(id) == 0 {
		return 0, false
	}
	lo := 0
	if id[0] > 0 {
		lo = int(idx.fanout[id[0]-1])
	}
	hi := int(idx.fanout[id[0]])
	i := sort.Search(hi-lo, func(j int) bool {
		return bytes.Compare(idx.ids[lo+j], id) >= 0
	}) + lo
	if i < hi && idx.ids[i].Equal(id) {
		return idx.offsets[i], true
	}
	return 0, false
}

// Entry returns the i-th entry in id-sorted order.
func (idx *Index) Entry(i int) IndexEntry {
	return IndexEntry{ID: idx.ids[i], CRC32: idx.crcs[i], Offset: idx.offsets[i]}
}

// All returns every entry the index describes, in id-sorted order.
func (idx *Index) All() []IndexEntry {
	out := make([]IndexEntry, len(idx.ids))
	for i := range idx.ids {
		out[i] = idx.Entry(i)
	}
	return out
}
