// Package refs implements Git's reference subsystem: name validation, direct
// and symbolic refs, packed-refs parsing/serialization, resolution with
// cycle/depth guards, compare-and-swap updates backed by an externally
// suppliable lock, and the reflog.
package refs

import (
	"bytes"
	"strings"

	"github.com/antgroup/gitvault/errs"
	"github.com/antgroup/gitvault/hash"
)

// Well-known ref names that are valid even without a "refs/" prefix.
const (
	HEAD             = "HEAD"
	FetchHead        = "FETCH_HEAD"
	OrigHead         = "ORIG_HEAD"
	MergeHead        = "MERGE_HEAD"
	CherryPickHead   = "CHERRY_PICK_HEAD"
	RevertHead       = "REVERT_HEAD"
	BisectHead       = "BISECT_HEAD"
	HeadsPrefix      = "refs/heads/"
	TagsPrefix       = "refs/tags/"
	RemotesPrefix    = "refs/remotes/"
	NotesPrefix      = "refs/notes/"
	StashRef         = "refs/stash"
	refsPrefix       = "refs/"
	symbolicPrefix   = "ref: "
)

var specialHeads = map[string]bool{
	HEAD: true, FetchHead: true, OrigHead: true, MergeHead: true,
	CherryPickHead: true, RevertHead: true, BisectHead: true,
}

// IsSpecialHead reports whether name is HEAD or one of the other well-known
// heads valid without a "refs/" prefix.
func IsSpecialHead(name string) bool { return specialHeads[name] }

// Kind classifies a ref name's semantic namespace.
type Kind int

const (
	KindOther Kind = iota
	KindBranch
	KindTag
	KindRemote
	KindNote
	KindStash
	KindHead
)

// KindOf classifies name without validating it.
func KindOf(name string) Kind {
	switch {
	case specialHeads[name]:
		return KindHead
	case strings.HasPrefix(name, HeadsPrefix):
		return KindBranch
	case strings.HasPrefix(name, TagsPrefix):
		return KindTag
	case strings.HasPrefix(name, RemotesPrefix):
		return KindRemote
	case strings.HasPrefix(name, NotesPrefix):
		return KindNote
	case name == StashRef:
		return KindStash
	default:
		return KindOther
	}
}

// badNameByte classifies characters forbidden anywhere in a ref name or
// component, mirroring Git's refname_disposition table: control characters,
// space, and the literal set "~^:?*[\".
func badNameByte(b byte) bool {
	if b <= 0x1f || b == 0x7f || b == ' ' {
		return true
	}
	switch b {
	case '~', '^', ':', '?', '*', '[', '\\':
		return true
	}
	return false
}

// Validate checks name against every rule in the data model: non-empty, not
// the bare "@", no forbidden bytes, no ".." or "@{" substrings, no component
// starting or ending with ".", no component ending in ".lock", no empty
// components, and no trailing "/". Names are validated independent of
// length; there is no "too short"/"too long" rule.
func Validate(name string) error {
	if name == "" {
		return &errs.InvalidRefName{Name: name, Reason: "empty"}
	}
	if specialHeads[name] {
		return nil
	}
	if name == "@" {
		return &errs.InvalidRefName{Name: name, Reason: "bare @ is reserved"}
	}
	if strings.Contains(name, "..") {
		return &errs.InvalidRefName{Name: name, Reason: "contains .."}
	}
	if strings.Contains(name, "@{") {
		return &errs.InvalidRefName{Name: name, Reason: "contains @{"}
	}
	if strings.HasSuffix(name, "/") {
		return &errs.InvalidRefName{Name: name, Reason: "ends with /"}
	}
	for i := 0; i < len(name); i++ {
		if badNameByte(name[i]) {
			return &errs.InvalidRefName{Name: name, Reason: "forbidden character"}
		}
	}
	components := strings.Split(name, "/")
	for _, c := range components {
		if c == "" {
			return &errs.InvalidRefName{Name: name, Reason: "empty path component"}
		}
		if strings.HasPrefix(c, ".") || strings.HasSuffix(c, ".") {
			return &errs.InvalidRefName{Name: name, Reason: "component starts or ends with ."}
		}
		if strings.HasSuffix(c, ".lock") {
			return &errs.InvalidRefName{Name: name, Reason: "component ends with .lock"}
		}
	}
	return nil
}

// ValidateBranchShortName checks a short branch name (e.g. "main", not
// "refs/heads/main"): it must not start with "-", must not equal "HEAD",
// must not itself look like a full ref path, and its fully-qualified form
// must pass general Validate.
func ValidateBranchShortName(short string) error {
	if short == "" || strings.HasPrefix(short, "-") {
		return &errs.InvalidRefName{Name: short, Reason: "branch name cannot start with -"}
	}
	if short == HEAD {
		return &errs.InvalidRefName{Name: short, Reason: "branch name cannot be HEAD"}
	}
	if strings.HasPrefix(short, refsPrefix) {
		return &errs.InvalidRefName{Name: short, Reason: "branch short name looks like a full ref path"}
	}
	return Validate(HeadsPrefix + short)
}

// ValidateRemoteName checks a remote name: it must not contain "/" and must
// otherwise validate as a single ref path component.
func ValidateRemoteName(name string) error {
	if strings.Contains(name, "/") {
		return &errs.InvalidRefName{Name: name, Reason: "remote name cannot contain /"}
	}
	return Validate(RemotesPrefix + name + "/HEAD")
}

// Type distinguishes a direct ref (points at an object id) from a symbolic
// ref (points at another ref name).
type Type int

const (
	InvalidRef Type = iota
	Direct
	Symbolic
)

// Ref is either Direct(ID) or Symbolic(Target).
type Ref struct {
	Name   string
	T      Type
	ID     hash.ID
	Target string
}

// NewDirect builds a direct ref.
func NewDirect(name string, id hash.ID) *Ref {
	return &Ref{Name: name, T: Direct, ID: id}
}

// NewSymbolic builds a symbolic ref.
func NewSymbolic(name, target string) *Ref {
	return &Ref{Name: name, T: Symbolic, Target: target}
}

// ParseLooseContent parses the on-disk content of a loose ref file: either
// "id\n" (direct) or "ref: target\n" (symbolic).
func ParseLooseContent(name string, content []byte) (*Ref, error) {
	line := strings.TrimSpace(string(bytes.TrimSpace(content)))
	if strings.HasPrefix(line, symbolicPrefix) {
		return NewSymbolic(name, strings.TrimSpace(line[len(symbolicPrefix):])), nil
	}
	id, err := hash.FromHex(line)
	if err != nil {
		return nil, &errs.InvalidRefName{Name: name, Reason: "loose ref content is neither an id nor a symref"}
	}
	return NewDirect(name, id), nil
}

// LooseContent renders r in the on-disk loose-ref form.
func (r *Ref) LooseContent() []byte {
	switch r.T {
	case Symbolic:
		return []byte("ref: " + r.Target + "\n")
	default:
		return []byte(r.ID.String() + "\n")
	}
}
