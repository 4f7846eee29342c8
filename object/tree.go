package object

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/antgroup/gitvault/errs"
	"github.com/antgroup/gitvault/hash"
)

// TreeEntry is one "mode SP name NUL id" record inside a Tree.
type TreeEntry struct {
	Name string
	Mode FileMode
	ID   hash.ID
}

// Tree is an ordered set of named entries, each a blob, a subtree, or a
// submodule (gitlink) pointer. Entries are sorted and serialized under
// SubtreeOrder: as if every directory name were suffixed by "/" and every
// non-directory name by "\x00", so a directory "foo" sorts after "foo.c"
// but before "foo0", while a file "foo" sorts before both.
type Tree struct {
	Entries []TreeEntry
}

func (t *Tree) Type() Type { return TreeType }

// sortKey returns the byte sequence used both to order and to compare tree
// entries, implementing Git's subtree ordering rule.
func sortKey(e TreeEntry) []byte {
	suffix := byte(0)
	if e.Mode.IsDir() {
		suffix = '/'
	}
	k := make([]byte, 0, len(e.Name)+1)
	k = append(k, e.Name...)
	k = append(k, suffix)
	return k
}

type bySubtreeOrder []TreeEntry

func (s bySubtreeOrder) Len() int      { return len(s) }
func (s bySubtreeOrder) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s bySubtreeOrder) Less(i, j int) bool {
	return bytes.Compare(sortKey(s[i]), sortKey(s[j])) < 0
}

// Sort reorders Entries into canonical SubtreeOrder in place.
func (t *Tree) Sort() {
	sort.Sort(bySubtreeOrder(t.Entries))
}

func (t *Tree) Encode(w io.Writer) error {
	for _, e := range t.Entries {
		if _, err := fmt.Fprintf(w, "%s %s\x00", e.Mode, e.Name); err != nil {
			return err
		}
		if _, err := w.Write(e.ID); err != nil {
			return err
		}
	}
	return nil
}

// Decode parses body assuming the default SHA-1 id width. Callers that know
// the repository's configured algorithm (the object store always does)
// should call DecodeWithAlgo instead, since a tree's binary entry ids carry
// no self-describing width.
func (t *Tree) Decode(body []byte) error {
	return t.DecodeWithAlgo(body, hash.SHA1)
}

// DecodeWithAlgo parses body into Entries using the repository's configured
// hash width, rejecting entries out of SubtreeOrder or duplicated names.
// Encode writes entries in the order it is given and does not sort them,
// so a Tree encoded without a prior Sort can produce bytes this rejects.
func (t *Tree) DecodeWithAlgo(body []byte, algo hash.Algo) error {
	width := algo.Size()
	var entries []TreeEntry
	rest := body
	for len(rest) > 0 {
		sp := bytes.IndexByte(rest, ' ')
		if sp == -1 {
			return &errs.CorruptObject{Type: "tree", Reason: "missing mode separator"}
		}
		mode, err := ParseFileMode(string(rest[:sp]))
		if err != nil {
			return err
		}
		rest = rest[sp+1:]

		nul := bytes.IndexByte(rest, 0)
		if nul == -1 {
			return &errs.CorruptObject{Type: "tree", Reason: "missing name terminator"}
		}
		name := string(rest[:nul])
		rest = rest[nul+1:]

		if len(rest) < width {
			return &errs.CorruptObject{Type: "tree", Reason: "truncated entry id"}
		}
		id := hash.ID(append([]byte(nil), rest[:width]...))
		rest = rest[width:]

		entries = append(entries, TreeEntry{Name: name, Mode: mode, ID: id})
	}

	for i := 1; i < len(entries); i++ {
		cmp := bytes.Compare(sortKey(entries[i-1]), sortKey(entries[i]))
		if cmp == 0 {
			return &errs.CorruptObject{Type: "tree", Reason: fmt.Sprintf("duplicate entry %q", entries[i].Name)}
		}
		if cmp > 0 {
			return &errs.CorruptObject{Type: "tree", Reason: "entries out of canonical order"}
		}
	}
	t.Entries = entries
	return nil
}
