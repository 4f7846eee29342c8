package pack

import (
	"fmt"

	"github.com/antgroup/gitvault/errs"
)

// MaxChainDepth bounds delta resolution: a chain longer than this is
// treated as corrupt rather than walked indefinitely.
const MaxChainDepth = 50

// encodeSizeVarint encodes one base-128, MSB-continuation size varint. Two
// of them precede a delta's instruction stream: first the base object's
// size, then the result size.
func encodeSizeVarint(size uint64) []byte {
	var out []byte
	for {
		b := byte(size & 0x7f)
		size >>= 7
		if size > 0 {
			out = append(out, b|0x80)
		} else {
			out = append(out, b)
			break
		}
	}
	return out
}

func decodeSizeVarint(b []byte) (uint64, int, error) {
	var size uint64
	shift := uint(0)
	for i, c := range b {
		size |= uint64(c&0x7f) << shift
		if c&0x80 == 0 {
			return size, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, &errs.DeltaError{Reason: "truncated size varint"}
}

// EncodeDelta produces a copy/insert instruction stream turning base into
// target, using a simple greedy longest-match-from-hash-index strategy —
// not as tight as Git's own delta heuristics, but structurally identical
// output: a run of copy {offset,size} and insert (1-127 literal bytes)
// instructions that DecodeDelta can always apply.
func EncodeDelta(base, target []byte) []byte {
	out := make([]byte, 0, len(target)/2+16)
	out = append(out, encodeSizeVarint(uint64(len(base)))...)
	out = append(out, encodeSizeVarint(uint64(len(target)))...)

	const minMatch = 4
	index := make(map[string][]int)
	for i := 0; i+minMatch <= len(base); i++ {
		k := string(base[i : i+minMatch])
		index[k] = append(index[k], i)
	}

	var literal []byte
	flushLiteral := func() {
		for len(literal) > 0 {
			n := len(literal)
			if n > 127 {
				n = 127
			}
			out = append(out, byte(n))
			out = append(out, literal[:n]...)
			literal = literal[n:]
		}
	}

	i := 0
	for i < len(target) {
		if i+minMatch > len(target) {
			literal = append(literal, target[i])
			i++
			continue
		}
		k := string(target[i : i+minMatch])
		cands, ok := index[k]
		if !ok {
			literal = append(literal, target[i])
			i++
			continue
		}
		best := -1
		bestLen := 0
		for _, c := range cands {
			l := matchLen(base[c:], target[i:])
			if l > bestLen {
				bestLen = l
				best = c
			}
		}
		if best == -1 || bestLen < minMatch {
			literal = append(literal, target[i])
			i++
			continue
		}
		flushLiteral()
		out = append(out, encodeCopy(uint32(best), uint32(bestLen))...)
		i += bestLen
	}
	flushLiteral()
	return out
}

func matchLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// encodeCopy renders a copy instruction: header byte bit 7 set, bits 0-3
// select which of the 4 offset bytes are present, bits 4-6 select which of
// the 3 size bytes are present. A zero size field means 0x10000 (64KiB),
// Git's copy-size convention since a literal 0 would be useless.
func encodeCopy(offset, size uint32) []byte {
	if size == 0x10000 {
		size = 0
	}
	var offBytes, sizeBytes []byte
	header := byte(0x80)
	for i := 0; i < 4; i++ {
		b := byte(offset >> (8 * i))
		if b != 0 {
			header |= 1 << uint(i)
			offBytes = append(offBytes, b)
		}
	}
	for i := 0; i < 3; i++ {
		b := byte(size >> (8 * i))
		if b != 0 {
			header |= 1 << uint(4+i)
			sizeBytes = append(sizeBytes, b)
		}
	}
	out := []byte{header}
	out = append(out, offBytes...)
	out = append(out, sizeBytes...)
	return out
}

// DecodeDelta applies a copy/insert instruction stream to base, producing
// the reconstructed target. Returns *errs.DeltaError if the stream is
// malformed or the result size disagrees with the header.
func DecodeDelta(base, delta []byte) ([]byte, error) {
	baseSize, n, err := decodeSizeVarint(delta)
	if err != nil {
		return nil, err
	}
	delta = delta[n:]
	if uint64(len(base)) != baseSize {
		return nil, &errs.DeltaError{BaseSize: int64(len(base)), Reason: fmt.Sprintf("base size mismatch: delta expects %d, got %d", baseSize, len(base))}
	}
	targetSize, n, err := decodeSizeVarint(delta)
	if err != nil {
		return nil, err
	}
	delta = delta[n:]

	out := make([]byte, 0, targetSize)
	for len(delta) > 0 {
		op := delta[0]
		delta = delta[1:]
		if op == 0 {
			return nil, &errs.DeltaError{Reason: "zero opcode byte is invalid"}
		}
		if op&0x80 != 0 {
			var offset, size uint32
			shift := uint(0)
			for i := 0; i < 4; i++ {
				if op&(1<<uint(i)) != 0 {
					if len(delta) == 0 {
						return nil, &errs.DeltaError{Reason: "truncated copy offset"}
					}
					offset |= uint32(delta[0]) << shift
					delta = delta[1:]
				}
				shift += 8
			}
			shift = 0
			for i := 0; i < 3; i++ {
				if op&(1<<uint(4+i)) != 0 {
					if len(delta) == 0 {
						return nil, &errs.DeltaError{Reason: "truncated copy size"}
					}
					size |= uint32(delta[0]) << shift
					delta = delta[1:]
				}
				shift += 8
			}
			if size == 0 {
				size = 0x10000
			}
			// A copy instruction that runs past the end of base is clamped
			// to whatever base bytes actually exist rather than rejected
			// outright: the resulting short output is still caught below,
			// by the targetSize check every delta must satisfy regardless
			// of which instruction under-produced it.
			start := uint64(offset)
			if start > uint64(len(base)) {
				start = uint64(len(base))
			}
			end := start + uint64(size)
			if end > uint64(len(base)) {
				end = uint64(len(base))
			}
			out = append(out, base[start:end]...)
		} else {
			n := int(op)
			if len(delta) < n {
				return nil, &errs.DeltaError{Reason: "truncated insert"}
			}
			out = append(out, delta[:n]...)
			delta = delta[n:]
		}
	}
	if uint64(len(out)) != targetSize {
		return nil, &errs.DeltaError{Expected: int64(targetSize), Actual: int64(len(out)), Reason: "result size mismatch"}
	}
	return out, nil
}
