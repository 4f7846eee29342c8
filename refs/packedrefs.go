package refs

import (
	"bufio"
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/antgroup/gitvault/errs"
	"github.com/antgroup/gitvault/hash"
)

// PackedRefs is the parsed form of a packed-refs file: a mapping from ref
// name to id (unordered; Serialize sorts by name), an auxiliary peeled map
// for annotated tags, and the
// free-form trait set from the "# pack-refs with: ..." header.
type PackedRefs struct {
	Entries map[string]hash.ID
	Peeled  map[string]hash.ID
	Traits  []string
}

// NewPackedRefs returns an empty set, ready for Put.
func NewPackedRefs() *PackedRefs {
	return &PackedRefs{Entries: map[string]hash.ID{}, Peeled: map[string]hash.ID{}}
}

// Clone returns a deep copy, safe to mutate without affecting whatever
// Backend a PackedRefs was read from: Backend.ReadPackedRefs implementations
// are free to hand back their own live, lock-guarded instance rather than a
// defensive copy, so any caller that mutates a PackedRefs it didn't itself
// construct must Clone it first.
func (p *PackedRefs) Clone() *PackedRefs {
	cp := &PackedRefs{
		Entries: make(map[string]hash.ID, len(p.Entries)),
		Peeled:  make(map[string]hash.ID, len(p.Peeled)),
		Traits:  append([]string(nil), p.Traits...),
	}
	for k, v := range p.Entries {
		cp.Entries[k] = v
	}
	for k, v := range p.Peeled {
		cp.Peeled[k] = v
	}
	return cp
}

// HasTrait reports whether t is present in the trait set.
func (p *PackedRefs) HasTrait(t string) bool {
	for _, x := range p.Traits {
		if x == t {
			return true
		}
	}
	return false
}

// Put records a direct entry, and its peeled commit id if non-nil.
func (p *PackedRefs) Put(name string, id hash.ID, peeled hash.ID) {
	p.Entries[name] = id
	if peeled != nil {
		p.Peeled[name] = peeled
	} else {
		delete(p.Peeled, name)
	}
}

// ParsePackedRefs parses packed-refs content. Lines are trimmed; a "#"
// line other than the trait header is ignored; "^sha" attaches as the
// peeled id of the immediately preceding entry (an orphan "^" line, with no
// preceding entry, is an error); "sha SP refname" is a normal entry. Empty
// content parses to an empty set.
func ParsePackedRefs(content []byte) (*PackedRefs, error) {
	p := NewPackedRefs()
	sc := bufio.NewScanner(bytes.NewReader(content))
	var lastName string
	haveLast := false
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r\n")
		if line == "" {
			continue
		}
		switch line[0] {
		case '#':
			if traits, ok := strings.CutPrefix(line, "# pack-refs with: "); ok {
				p.Traits = strings.Fields(traits)
			}
			continue
		case '^':
			if !haveLast {
				return nil, &errs.CorruptObject{Type: "packed-refs", Reason: "orphan peeled entry"}
			}
			peeled, err := hash.FromHex(line[1:])
			if err != nil {
				return nil, &errs.CorruptObject{Type: "packed-refs", Reason: "bad peeled id: " + err.Error()}
			}
			p.Peeled[lastName] = peeled
			continue
		default:
			idStr, name, ok := strings.Cut(line, " ")
			if !ok {
				return nil, &errs.CorruptObject{Type: "packed-refs", Reason: fmt.Sprintf("malformed entry %q", line)}
			}
			id, err := hash.FromHex(idStr)
			if err != nil {
				return nil, &errs.CorruptObject{Type: "packed-refs", Reason: "bad id: " + err.Error()}
			}
			p.Entries[name] = id
			lastName = name
			haveLast = true
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return p, nil
}

// Serialize writes the canonical form: the trait header first (if any
// traits are set), then entries sorted ascending by name, each followed by
// its peeled entry (if any) on a "^sha" line.
func (p *PackedRefs) Serialize() []byte {
	names := make([]string, 0, len(p.Entries))
	for name := range p.Entries {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	if len(p.Traits) > 0 {
		buf.WriteString("# pack-refs with: ")
		buf.WriteString(strings.Join(p.Traits, " "))
		buf.WriteByte('\n')
	}
	for _, name := range names {
		fmt.Fprintf(&buf, "%s %s\n", p.Entries[name].String(), name)
		if peeled, ok := p.Peeled[name]; ok {
			fmt.Fprintf(&buf, "^%s\n", peeled.String())
		}
	}
	return buf.Bytes()
}
