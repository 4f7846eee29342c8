package repo

import (
	"github.com/antgroup/gitvault/errs"
	"github.com/antgroup/gitvault/hash"
	"github.com/antgroup/gitvault/object"
)

// MemoryCommits is an in-memory CommitGetter, used in tests and as the
// simplest possible backing store for a Repository.
type MemoryCommits struct {
	byID map[string]*object.Commit
}

func NewMemoryCommits() *MemoryCommits {
	return &MemoryCommits{byID: map[string]*object.Commit{}}
}

func (m *MemoryCommits) Put(id hash.ID, c *object.Commit) {
	m.byID[id.String()] = c
}

func (m *MemoryCommits) GetCommit(id hash.ID) (*object.Commit, error) {
	c, ok := m.byID[id.String()]
	if !ok {
		return nil, &errs.ObjectNotFound{ID: id.String()}
	}
	return c, nil
}

// MemoryObjects extends MemoryCommits with tree storage, satisfying both
// CommitGetter and TreeGetter.
type MemoryObjects struct {
	MemoryCommits
	trees map[string]*object.Tree
}

func NewMemoryObjects() *MemoryObjects {
	return &MemoryObjects{
		MemoryCommits: MemoryCommits{byID: map[string]*object.Commit{}},
		trees:         map[string]*object.Tree{},
	}
}

func (m *MemoryObjects) PutTree(id hash.ID, t *object.Tree) {
	m.trees[id.String()] = t
}

func (m *MemoryObjects) GetTree(id hash.ID) (*object.Tree, error) {
	t, ok := m.trees[id.String()]
	if !ok {
		return nil, &errs.ObjectNotFound{ID: id.String()}
	}
	return t, nil
}
