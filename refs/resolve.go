package refs

import (
	"github.com/antgroup/gitvault/errs"
	"github.com/antgroup/gitvault/hash"
)

// DefaultMaxDepth bounds symbolic-ref resolution when the caller does not
// specify one.
const DefaultMaxDepth = 10

// ResolveResult is the outcome of following a symbolic chain to its direct
// target. Attached and Branch are only meaningful for HEAD resolution: when
// HEAD is symbolic to a branch that does not yet exist (the "unborn
// branch" case), ID is nil rather than the resolution failing.
type ResolveResult struct {
	ID      hash.ID
	Chain   []string
	Attached bool
	Branch   string
}

// Resolve follows name's symbolic chain, reading at most maxDepth refs (so
// at most maxDepth-1 symbolic hops; 0 means DefaultMaxDepth), returning the final direct id and the chain of names
// visited (name itself first). It tolerates the unborn-HEAD case: if name
// is (transitively) symbolic to a branch that does not exist, the result
// carries Attached=true, Branch=<that name>, ID=nil instead of failing.
func Resolve(b Backend, name string, maxDepth int) (*ResolveResult, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	visited := map[string]bool{}
	chain := []string{name}
	cur := name
	isHead := name == HEAD
	for step := 0; ; step++ {
		if visited[cur] {
			return nil, &errs.CircularRef{Chain: append([]string(nil), chain...)}
		}
		visited[cur] = true
		if step >= maxDepth {
			return nil, &errs.MaxDepthExceeded{Chain: append([]string(nil), chain...), Max: maxDepth}
		}
		ref, err := b.ReadRef(cur)
		if err != nil {
			return nil, err
		}
		if ref == nil {
			if isHead && len(chain) > 1 {
				return &ResolveResult{Attached: true, Branch: cur, Chain: chain}, nil
			}
			return nil, &errs.RefNotFound{Name: name, PartialChain: chain}
		}
		switch ref.T {
		case Direct:
			res := &ResolveResult{ID: ref.ID, Chain: chain}
			if isHead {
				res.Attached = len(chain) > 1
				if res.Attached {
					res.Branch = cur
				}
			}
			return res, nil
		case Symbolic:
			cur = ref.Target
			chain = append(chain, cur)
		default:
			return nil, &errs.RefNotFound{Name: name, PartialChain: chain}
		}
	}
}
