package object

import (
	"fmt"
	"strconv"

	"github.com/antgroup/gitvault/errs"
)

// FileMode is a tree entry's octal mode, as it appears literally in a
// serialized tree (no leading zeros, e.g. "100644" or "40000").
type FileMode uint32

const (
	ModeDir        FileMode = 0040000
	ModeFile       FileMode = 0100644
	ModeExecutable FileMode = 0100755
	ModeSymlink    FileMode = 0120000
	ModeSubmodule  FileMode = 0160000
)

// IsDir reports whether the mode denotes a subtree.
func (m FileMode) IsDir() bool { return m == ModeDir }

func (m FileMode) String() string {
	return strconv.FormatUint(uint64(m), 8)
}

// ParseFileMode parses a tree entry's mode token. Git writes "40000" for
// directories without a leading zero but "100644"/"100755"/"120000"/"160000"
// for everything else; both forms round-trip through this parser.
func ParseFileMode(s string) (FileMode, error) {
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, &errs.CorruptObject{Type: "tree", Reason: fmt.Sprintf("invalid mode %q", s)}
	}
	m := FileMode(v)
	switch m {
	case ModeDir, ModeFile, ModeExecutable, ModeSymlink, ModeSubmodule:
		return m, nil
	default:
		return 0, &errs.CorruptObject{Type: "tree", Reason: fmt.Sprintf("unsupported mode %q", s)}
	}
}
