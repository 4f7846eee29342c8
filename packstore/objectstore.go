package packstore

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/antgroup/gitvault/cache"
	"github.com/antgroup/gitvault/errs"
	"github.com/antgroup/gitvault/hash"
	"github.com/antgroup/gitvault/object"
	"github.com/antgroup/gitvault/pack"
)

// ObjectStore resolves objects out of a Store's visible packs via its
// multi-pack index, implementing repo.CommitGetter. Unlike pack.Reader,
// whose BaseResolver only ever returns an offset within the single pack it
// was constructed against, ObjectStore walks REF_DELTA bases across pack
// boundaries itself: a delta's base may live in another pack of the same
// store.
type ObjectStore struct {
	store     *Store
	algo      hash.Algo
	packCache *cache.Cache[[]byte]
}

// NewObjectStore wires store into an ObjectStore. packCache may be nil to
// disable caching of downloaded pack bytes; when set, it should be sized
// for whole-pack entries (one unit per cached pack), distinct from the
// Store's own MIDX cache.
func NewObjectStore(store *Store, algo hash.Algo, packCache *cache.Cache[[]byte]) *ObjectStore {
	return &ObjectStore{store: store, algo: algo, packCache: packCache}
}

// packBytes returns the full bytes of packID, downloading and verifying
// once and caching thereafter. pack.Reader needs random access (io.ReaderAt)
// to follow OFS_DELTA offsets, so packs are read into memory rather than
// streamed.
func (o *ObjectStore) packBytes(ctx context.Context, packID string) ([]byte, error) {
	if o.packCache != nil {
		if b, ok := o.packCache.Get(packID); ok {
			return b, nil
		}
	}
	r, err := o.store.Download(ctx, packID, nil, true)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if o.packCache != nil {
		o.packCache.Set(packID, data)
	}
	return data, nil
}

func (o *ObjectStore) readerFor(ctx context.Context, packID string) (*pack.Reader, error) {
	data, err := o.packBytes(ctx, packID)
	if err != nil {
		return nil, err
	}
	return pack.NewReader(bytes.NewReader(data), o.algo), nil
}

// chainStep is one entry walked while resolving a possibly cross-pack delta
// chain: the id of the pack it lives in, together with its raw entry.
type chainStep struct {
	packID string
	entry  *pack.RawEntry
}

// resolveChain walks id's delta chain (if any) up to pack.MaxChainDepth
// across pack boundaries via the store's multi-pack index, rejecting a
// chain that revisits a step it has already walked. The returned slice
// starts at id's own entry and ends at the non-delta base.
func (o *ObjectStore) resolveChain(ctx context.Context, id hash.ID) ([]chainStep, error) {
	midx, err := o.store.Midx(ctx)
	if err != nil {
		return nil, err
	}
	entry, ok := midx.Find(id)
	if !ok {
		return nil, &errs.ObjectNotFound{ID: id.String()}
	}

	curPack := midx.Packs[entry.PackIndex]
	curOffset := int64(entry.Offset)

	visited := make(map[string]bool)
	var chain []chainStep
	for {
		key := fmt.Sprintf("%s@%d", curPack, curOffset)
		if visited[key] {
			return nil, &errs.DeltaError{Reason: fmt.Sprintf("cyclic delta chain at %s", key)}
		}
		visited[key] = true
		if len(chain) > pack.MaxChainDepth {
			return nil, &errs.DeltaError{Reason: fmt.Sprintf("delta chain exceeds max depth %d", pack.MaxChainDepth)}
		}

		r, err := o.readerFor(ctx, curPack)
		if err != nil {
			return nil, err
		}
		raw, err := r.ReadRawEntry(curOffset)
		if err != nil {
			return nil, err
		}
		chain = append(chain, chainStep{packID: curPack, entry: raw})
		if !raw.Kind.IsDelta() {
			break
		}

		switch raw.Kind {
		case pack.KindOfsDelta:
			curOffset = raw.BaseOffset
		case pack.KindRefDelta:
			baseEntry, ok := midx.Find(raw.BaseID)
			if !ok {
				return nil, &errs.DeltaError{Reason: fmt.Sprintf("ref-delta base %s not found", raw.BaseID)}
			}
			curPack = midx.Packs[baseEntry.PackIndex]
			curOffset = int64(baseEntry.Offset)
		}
	}
	return chain, nil
}

// GetObject resolves id to its fully decoded Object, applying its delta
// chain bottom-up.
func (o *ObjectStore) GetObject(ctx context.Context, id hash.ID) (object.Object, error) {
	chain, err := o.resolveChain(ctx, id)
	if err != nil {
		return nil, err
	}
	base := chain[len(chain)-1].entry
	body := base.Payload
	kind := base.Kind
	for i := len(chain) - 2; i >= 0; i-- {
		applied, err := pack.DecodeDelta(body, chain[i].entry.Payload)
		if err != nil {
			return nil, err
		}
		body = applied
	}

	typ, err := pack.TypeForKind(kind)
	if err != nil {
		return nil, err
	}
	return object.DecodeWithAlgo(typ, body, o.algo)
}

// KindOf reports id's object type without applying its delta chain: a
// delta always yields the same type as its base, so only the chain's final
// non-delta entry matters.
func (o *ObjectStore) KindOf(ctx context.Context, id hash.ID) (object.Type, error) {
	chain, err := o.resolveChain(ctx, id)
	if err != nil {
		return object.InvalidType, err
	}
	return pack.TypeForKind(chain[len(chain)-1].entry.Kind)
}

// GetCommit implements repo.CommitGetter.
func (o *ObjectStore) GetCommit(id hash.ID) (*object.Commit, error) {
	obj, err := o.GetObject(context.Background(), id)
	if err != nil {
		return nil, err
	}
	c, ok := obj.(*object.Commit)
	if !ok {
		return nil, &errs.CorruptObject{ID: id.String(), Type: "commit", Reason: "object is not a commit"}
	}
	return c, nil
}

// GetTree implements repo.TreeGetter.
func (o *ObjectStore) GetTree(id hash.ID) (*object.Tree, error) {
	obj, err := o.GetObject(context.Background(), id)
	if err != nil {
		return nil, err
	}
	t, ok := obj.(*object.Tree)
	if !ok {
		return nil, &errs.CorruptObject{ID: id.String(), Type: "tree", Reason: "object is not a tree"}
	}
	return t, nil
}
