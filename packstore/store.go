// Package packstore implements the atomic packfile store: a staged
// upload/manifest/promote/cleanup protocol over a content-addressed object
// service, plus the distributed lock and multi-pack index rebuild that
// protocol depends on. No partial pack is ever observable by a verified
// download; any upload that crashes before its manifest reaches "complete"
// is swept up by the orphan sweeper.
package packstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/antgroup/gitvault/cache"
	"github.com/antgroup/gitvault/errs"
	"github.com/antgroup/gitvault/hash"
	"github.com/antgroup/gitvault/pack"
	"github.com/antgroup/gitvault/packstore/objectservice"
)

const (
	packsDir   = "packs/"
	stagingDir = "staging/"
)

func finalPackKey(prefix, packID string) string     { return prefix + packsDir + packID + ".pack" }
func finalIdxKey(prefix, packID string) string      { return prefix + packsDir + packID + ".idx" }
func finalManifestKey(prefix, packID string) string { return prefix + packsDir + packID + ".manifest" }
func stagingPackKey(prefix, packID string) string   { return prefix + stagingDir + packID + ".pack" }
func stagingIdxKey(prefix, packID string) string    { return prefix + stagingDir + packID + ".idx" }

// Store is the atomic packfile store, backed by any objectservice.Service:
// packs are staged, recorded in a manifest, promoted to their final keys,
// and only become visible once the manifest reads "complete".
type Store struct {
	svc       objectservice.Service
	algo      hash.Algo
	prefix    string
	midxCache *cache.Cache[*pack.Midx]
	group     singleflight.Group
	log       *logrus.Entry
}

// NewStore builds a Store. midxCache may be nil to disable caching.
func NewStore(svc objectservice.Service, algo hash.Algo, prefix string, midxCache *cache.Cache[*pack.Midx]) *Store {
	return &Store{
		svc:       svc,
		algo:      algo,
		prefix:    prefix,
		midxCache: midxCache,
		log:       logrus.WithField("component", "packstore"),
	}
}

// Upload runs the full staged commit protocol for one pack: validate,
// stage, mark staging, promote to final, mark complete, clean up staging.
// Any failure before the manifest reaches StatusComplete leaves the pack
// invisible to Download and eligible for OrphanSweep.
func (s *Store) Upload(ctx context.Context, packID string, packBytes, idxBytes []byte) (*Manifest, error) {
	if _, err := pack.ReadHeader(bytes.NewReader(packBytes)); err != nil {
		return nil, err
	}
	idx, err := pack.ReadIndex(bytes.NewReader(idxBytes), s.algo)
	if err != nil {
		return nil, err
	}

	if _, err := s.svc.Put(ctx, stagingPackKey(s.prefix, packID), bytes.NewReader(packBytes), int64(len(packBytes)), nil, nil); err != nil {
		return nil, err
	}
	if _, err := s.svc.Put(ctx, stagingIdxKey(s.prefix, packID), bytes.NewReader(idxBytes), int64(len(idxBytes)), nil, nil); err != nil {
		return nil, err
	}

	m := &Manifest{
		Status:      StatusStaging,
		PackID:      packID,
		PackHash:    idx.PackSum.String(),
		IdxHash:     idx.Sum.String(),
		PackSize:    int64(len(packBytes)),
		IdxSize:     int64(len(idxBytes)),
		ObjectCount: idx.Count(),
	}
	if err := s.putManifest(ctx, packID, m); err != nil {
		return nil, err
	}

	if _, err := s.svc.Put(ctx, finalPackKey(s.prefix, packID), bytes.NewReader(packBytes), int64(len(packBytes)), nil, nil); err != nil {
		return nil, err
	}
	if _, err := s.svc.Put(ctx, finalIdxKey(s.prefix, packID), bytes.NewReader(idxBytes), int64(len(idxBytes)), nil, nil); err != nil {
		return nil, err
	}

	m.Status = StatusComplete
	m.CompletedAt = time.Now().Unix()
	if err := s.putManifest(ctx, packID, m); err != nil {
		return nil, err
	}

	if err := s.svc.Delete(ctx, stagingPackKey(s.prefix, packID), stagingIdxKey(s.prefix, packID)); err != nil {
		s.log.WithError(err).WithField("pack_id", packID).Warn("upload: failed to clean up staging objects")
	}
	if s.midxCache != nil {
		s.midxCache.Invalidate(s.prefix)
	}
	return m, nil
}

func (s *Store) putManifest(ctx context.Context, packID string, m *Manifest) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	_, err = s.svc.Put(ctx, finalManifestKey(s.prefix, packID), bytes.NewReader(raw), int64(len(raw)), nil, nil)
	return err
}

// readManifest returns the manifest for packID, or nil (no error) if it
// does not exist at all. A manifest that exists but fails to parse is a
// distinct, more serious condition than absence (it means something wrote
// a corrupt manifest, not that this pack predates the manifest protocol)
// and is reported as an error rather than masked as "no manifest".
func (s *Store) readManifest(ctx context.Context, packID string) (*Manifest, error) {
	r, err := s.svc.Get(ctx, finalManifestKey(s.prefix, packID), nil)
	if err != nil {
		if errs.IsObjectNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	defer r.Close()
	var m Manifest
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, &errs.CorruptObject{ID: packID, Type: "manifest", Reason: err.Error()}
	}
	return &m, nil
}

// IsComplete reports whether packID is visible: its manifest says complete,
// or (legacy allowance for migrated packs) both .pack and .idx exist with
// no manifest at all.
func (s *Store) IsComplete(ctx context.Context, packID string) (bool, error) {
	m, err := s.readManifest(ctx, packID)
	if err != nil {
		return false, err
	}
	if m != nil {
		return m.Status == StatusComplete, nil
	}
	if _, err := s.svc.Head(ctx, finalPackKey(s.prefix, packID)); err != nil {
		if errs.IsObjectNotFound(err) {
			return false, nil
		}
		return false, err
	}
	if _, err := s.svc.Head(ctx, finalIdxKey(s.prefix, packID)); err != nil {
		if errs.IsObjectNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Download opens packID's pack bytes. When verify is true and rng is nil,
// the downloaded bytes are hashed and compared against the manifest's
// pack_hash (falling back, for legacy packs, to the pack checksum the index
// records in its trailer); a mismatch fails ChecksumMismatch. Byte-range downloads (rng !=
// nil) always skip verification.
func (s *Store) Download(ctx context.Context, packID string, rng *objectservice.ByteRange, verify bool) (io.ReadCloser, error) {
	complete, err := s.IsComplete(ctx, packID)
	if err != nil {
		return nil, err
	}
	if !complete {
		return nil, &errs.ObjectNotFound{ID: packID}
	}

	r, err := s.svc.Get(ctx, finalPackKey(s.prefix, packID), rng)
	if err != nil {
		return nil, err
	}
	if rng != nil || !verify {
		return r, nil
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	wantHex, err := s.expectedPackHash(ctx, packID)
	if err != nil {
		return nil, err
	}
	width := s.algo.Size()
	if len(data) < width {
		return nil, &errs.ChecksumMismatch{ID: packID}
	}
	// The pack's trailing checksum covers every byte before it, not
	// itself; exclude it from the recomputed hash exactly as Encoder.Finish
	// does when it first writes the trailer.
	sum := hash.NewHasher(s.algo)
	sum.Write(data[:len(data)-width])
	gotID := sum.Sum()
	if wantHex != gotID.String() {
		return nil, &errs.ChecksumMismatch{ID: packID}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *Store) expectedPackHash(ctx context.Context, packID string) (string, error) {
	m, err := s.readManifest(ctx, packID)
	if err != nil {
		return "", err
	}
	if m != nil && m.PackHash != "" {
		return m.PackHash, nil
	}
	r, err := s.svc.Get(ctx, finalIdxKey(s.prefix, packID), nil)
	if err != nil {
		return "", err
	}
	defer r.Close()
	idx, err := pack.ReadIndex(r, s.algo)
	if err != nil {
		return "", err
	}
	return idx.PackSum.String(), nil
}

// OrphanSweep lists staging and final objects, determines each pack id's
// completeness, and deletes every object belonging to an incomplete pack
// (staging pack/idx, any partial final copy, and an absent/incomplete
// manifest); for already-complete packs it only cleans lingering staging
// objects.
func (s *Store) OrphanSweep(ctx context.Context) (swept []string, err error) {
	ids, err := s.listPackIDs(ctx)
	if err != nil {
		return nil, err
	}
	for _, packID := range ids {
		complete, err := s.IsComplete(ctx, packID)
		if err != nil {
			s.log.WithError(err).WithField("pack_id", packID).Warn("orphan sweep: failed to check completeness")
			continue
		}
		if complete {
			if err := s.svc.Delete(ctx, stagingPackKey(s.prefix, packID), stagingIdxKey(s.prefix, packID)); err != nil {
				s.log.WithError(err).WithField("pack_id", packID).Warn("orphan sweep: failed to clean staging of complete pack")
			}
			continue
		}
		if err := s.svc.Delete(ctx,
			stagingPackKey(s.prefix, packID), stagingIdxKey(s.prefix, packID),
			finalPackKey(s.prefix, packID), finalIdxKey(s.prefix, packID),
			finalManifestKey(s.prefix, packID)); err != nil {
			s.log.WithError(err).WithField("pack_id", packID).Warn("orphan sweep: failed to delete incomplete pack objects")
			continue
		}
		swept = append(swept, packID)
	}
	return swept, nil
}

func (s *Store) listPackIDs(ctx context.Context) ([]string, error) {
	seen := map[string]struct{}{}
	var ids []string
	add := func(key, dir, ext string) {
		name := strings.TrimPrefix(key, s.prefix+dir)
		name = strings.TrimSuffix(name, ext)
		if name == "" {
			return
		}
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			ids = append(ids, name)
		}
	}
	for _, dir := range []string{packsDir, stagingDir} {
		cursor := ""
		for {
			page, err := s.svc.List(ctx, s.prefix+dir, cursor)
			if err != nil {
				return nil, err
			}
			for _, k := range page.Keys {
				switch {
				case strings.HasSuffix(k, ".pack"):
					add(k, dir, ".pack")
				case strings.HasSuffix(k, ".idx"):
					add(k, dir, ".idx")
				case strings.HasSuffix(k, ".manifest"):
					add(k, dir, ".manifest")
				}
			}
			if page.Cursor == "" {
				break
			}
			cursor = page.Cursor
		}
	}
	return ids, nil
}

// ListComplete returns the ids of every pack currently visible.
func (s *Store) ListComplete(ctx context.Context) ([]string, error) {
	ids, err := s.listPackIDs(ctx)
	if err != nil {
		return nil, err
	}
	var complete []string
	for _, id := range ids {
		ok, err := s.IsComplete(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			complete = append(complete, id)
		}
	}
	return complete, nil
}

// RebuildMidx scans every currently-visible pack's index and produces a
// fresh multi-pack index, fanning the per-pack index reads out over
// errgroup and collapsing concurrent rebuild requests for this store's
// prefix via singleflight.
func (s *Store) RebuildMidx(ctx context.Context) (*pack.Midx, error) {
	v, err, _ := s.group.Do(s.prefix, func() (any, error) {
		return s.rebuildMidx(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*pack.Midx), nil
}

func (s *Store) rebuildMidx(ctx context.Context) (*pack.Midx, error) {
	packIDs, err := s.ListComplete(ctx)
	if err != nil {
		return nil, err
	}

	entriesByPack := make([][]pack.MidxEntry, len(packIDs))
	g, gctx := errgroup.WithContext(ctx)
	for i, packID := range packIDs {
		i, packID := i, packID
		g.Go(func() error {
			r, err := s.svc.Get(gctx, finalIdxKey(s.prefix, packID), nil)
			if err != nil {
				return err
			}
			defer r.Close()
			idx, err := pack.ReadIndex(r, s.algo)
			if err != nil {
				return err
			}
			entries := make([]pack.MidxEntry, 0, idx.Count())
			for _, e := range idx.All() {
				entries = append(entries, pack.MidxEntry{ID: e.ID, PackIndex: uint32(i), Offset: e.Offset})
			}
			entriesByPack[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("packstore: rebuild midx: %w", err)
	}

	var all []pack.MidxEntry
	for _, e := range entriesByPack {
		all = append(all, e...)
	}
	m, err := pack.BuildMidx(packIDs, all)
	if err != nil {
		return nil, err
	}
	if s.midxCache != nil {
		s.midxCache.Set(s.prefix, m)
	}
	return m, nil
}

// Midx returns the store's current multi-pack index, serving from cache
// when present and rebuilding (and repopulating the cache) on a miss.
func (s *Store) Midx(ctx context.Context) (*pack.Midx, error) {
	if s.midxCache != nil {
		if m, ok := s.midxCache.Get(s.prefix); ok {
			return m, nil
		}
	}
	return s.RebuildMidx(ctx)
}
