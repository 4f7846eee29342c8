// Package repo is the repository facade: it composes an object store and a
// ref store behind two narrow interfaces and adds exactly one capability
// neither provides on its own — a bounded, deterministic commit log. It is
// not a general commit-graph query layer; that belongs above this package.
package repo

import (
	"fmt"

	"github.com/antgroup/gitvault/errs"
	"github.com/antgroup/gitvault/hash"
	"github.com/antgroup/gitvault/object"
	"github.com/antgroup/gitvault/refs"
)

// CommitGetter resolves a commit by id. Repository is deliberately agnostic
// to how commits are stored (loose, packed, MIDX-indexed) — callers wire in
// whatever backs this interface.
type CommitGetter interface {
	GetCommit(id hash.ID) (*object.Commit, error)
}

// TreeGetter resolves a tree by id. It is a separate capability from
// CommitGetter: a Repository wired without one simply cannot serve GetTree.
type TreeGetter interface {
	GetTree(id hash.ID) (*object.Tree, error)
}

// RefResolver is the subset of refs.Store a Repository needs to turn a ref
// name into a commit id.
type RefResolver interface {
	Resolve(name string) (*refs.ResolveResult, error)
}

// Repository composes an object store and a ref store into the read-facing
// facade: resolve a name to an id, then walk history from it. Trees is
// optional; nil means tree lookups are unsupported by the backing store.
type Repository struct {
	Objects CommitGetter
	Trees   TreeGetter
	Refs    RefResolver
	Algo    hash.Algo
}

// New builds a Repository over the given object and ref backends. If the
// object backend also serves trees (packstore.ObjectStore does), it is
// wired as the tree capability too.
func New(objects CommitGetter, refStore RefResolver, algo hash.Algo) *Repository {
	r := &Repository{Objects: objects, Refs: refStore, Algo: algo}
	if t, ok := objects.(TreeGetter); ok {
		r.Trees = t
	}
	return r
}

// resolveStart accepts either a hex object id or a ref name and returns the
// starting commit id. A string that parses as a well-formed id of the
// repository's algorithm is treated as an id directly, without consulting
// the ref store; anything else is resolved as a ref name.
func (r *Repository) resolveStart(refOrID string) (hash.ID, error) {
	if id, err := hash.FromHex(refOrID); err == nil && len(id) == r.Algo.Size() {
		return id, nil
	}
	res, err := r.Refs.Resolve(refOrID)
	if err != nil {
		return nil, err
	}
	if res.ID == nil {
		return nil, &errs.RefNotFound{Name: refOrID, PartialChain: res.Chain}
	}
	return res.ID, nil
}

// GetCommit resolves refOrID (a ref name or a hex id) to its commit.
func (r *Repository) GetCommit(refOrID string) (*object.Commit, error) {
	id, err := r.resolveStart(refOrID)
	if err != nil {
		return nil, err
	}
	return r.Objects.GetCommit(id)
}

// GetTree returns the root tree of the commit refOrID resolves to.
func (r *Repository) GetTree(refOrID string) (*object.Tree, error) {
	if r.Trees == nil {
		return nil, fmt.Errorf("repo: object backend does not serve trees")
	}
	c, err := r.GetCommit(refOrID)
	if err != nil {
		return nil, err
	}
	return r.Trees.GetTree(c.Tree)
}

// Log resolves refOrID to a starting commit, then performs a breadth-first
// traversal over parent edges with a visited set, returning up to limit
// commits in deterministic first-enqueue (FIFO) order. limit <= 0 returns no
// commits.
func (r *Repository) Log(refOrID string, limit int) ([]*object.Commit, error) {
	if limit <= 0 {
		return nil, nil
	}
	startID, err := r.resolveStart(refOrID)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	queue := []hash.ID{startID}
	out := make([]*object.Commit, 0, limit)

	for len(queue) > 0 && len(out) < limit {
		id := queue[0]
		queue = queue[1:]

		key := id.String()
		if seen[key] {
			continue
		}
		seen[key] = true

		c, err := r.Objects.GetCommit(id)
		if err != nil {
			return nil, err
		}
		out = append(out, c)

		for _, p := range c.Parents {
			if !seen[p.String()] {
				queue = append(queue, p)
			}
		}
	}
	return out, nil
}
