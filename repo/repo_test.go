package repo

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/antgroup/gitvault/errs"
	"github.com/antgroup/gitvault/hash"
	"github.com/antgroup/gitvault/object"
	"github.com/antgroup/gitvault/refs"
)

func id(hex string) hash.ID {
	v, err := hash.FromHex(hex)
	if err != nil {
		panic(err)
	}
	return v
}

var sig = object.Signature{Name: "tester", Email: "tester@example.com", Seconds: 1}

// linearHistory builds A -> B -> C (C is the root, A is the tip) and
// registers a "main" branch pointing at A.
func linearHistory(t *testing.T) (*Repository, hash.ID, hash.ID, hash.ID) {
	t.Helper()
	objs := NewMemoryCommits()

	idC := id("cccc000000000000000000000000000000000003")
	objs.Put(idC, &object.Commit{Tree: id("1111000000000000000000000000000000000001"), Author: sig, Committer: sig, Message: "root"})

	idB := id("bbbb000000000000000000000000000000000002")
	objs.Put(idB, &object.Commit{Tree: id("1111000000000000000000000000000000000001"), Parents: []hash.ID{idC}, Author: sig, Committer: sig, Message: "second"})

	idA := id("aaaa000000000000000000000000000000000001")
	objs.Put(idA, &object.Commit{Tree: id("1111000000000000000000000000000000000001"), Parents: []hash.ID{idB}, Author: sig, Committer: sig, Message: "tip"})

	refStore := refs.NewStore(refs.NewMemoryBackend(), refs.NewMemoryReflog(), refs.NewMemoryLockManager(), hash.SHA1)
	require.NoError(t, refStore.Update(refs.HeadsPrefix+"main", idA, sig, "create", refs.UpdateOptions{
		ExpectedOld: hash.ZeroFor(hash.SHA1), HasExpected: true,
	}))

	return New(objs, refStore, hash.SHA1), idA, idB, idC
}

func TestLogByRefNameWalksParentsInOrder(t *testing.T) {
	r, idA, idB, idC := linearHistory(t)

	commits, err := r.Log("refs/heads/main", 10)
	require.NoError(t, err)
	require.Len(t, commits, 3)
	require.Equal(t, "tip", commits[0].Message)
	require.Equal(t, "second", commits[1].Message)
	require.Equal(t, "root", commits[2].Message)
	_ = idA
	_ = idB
	_ = idC
}

func TestLogByIDBypassesRefStore(t *testing.T) {
	r, idA, _, _ := linearHistory(t)

	commits, err := r.Log(idA.String(), 1)
	require.NoError(t, err)
	require.Len(t, commits, 1)
	require.Equal(t, "tip", commits[0].Message)
}

func TestLogRespectsLimit(t *testing.T) {
	r, _, _, _ := linearHistory(t)

	commits, err := r.Log("refs/heads/main", 2)
	require.NoError(t, err)
	require.Len(t, commits, 2)
	require.Equal(t, "tip", commits[0].Message)
	require.Equal(t, "second", commits[1].Message)
}

func TestLogUnknownRefFails(t *testing.T) {
	r, _, _, _ := linearHistory(t)

	_, err := r.Log("refs/heads/missing", 10)
	require.Error(t, err)
	require.True(t, errs.IsRefNotFound(err))
}

func TestGetCommitByRefName(t *testing.T) {
	r, idA, _, _ := linearHistory(t)

	c, err := r.GetCommit("refs/heads/main")
	require.NoError(t, err)
	require.Equal(t, "tip", c.Message)

	c, err = r.GetCommit(idA.String())
	require.NoError(t, err)
	require.Equal(t, "tip", c.Message)
}

func TestGetTree(t *testing.T) {
	objs := NewMemoryObjects()

	treeID := id("1111000000000000000000000000000000000001")
	tree := &object.Tree{Entries: []object.TreeEntry{{Name: "README", Mode: object.ModeFile, ID: id("2222000000000000000000000000000000000002")}}}
	objs.PutTree(treeID, tree)

	tip := id("aaaa000000000000000000000000000000000001")
	objs.Put(tip, &object.Commit{Tree: treeID, Author: sig, Committer: sig, Message: "tip"})

	refStore := refs.NewStore(refs.NewMemoryBackend(), refs.NewMemoryReflog(), refs.NewMemoryLockManager(), hash.SHA1)
	require.NoError(t, refStore.Update(refs.HeadsPrefix+"main", tip, sig, "create", refs.UpdateOptions{
		ExpectedOld: hash.ZeroFor(hash.SHA1), HasExpected: true,
	}))

	r := New(objs, refStore, hash.SHA1)
	got, err := r.GetTree("refs/heads/main")
	require.NoError(t, err)
	require.Len(t, got.Entries, 1)
	require.Equal(t, "README", got.Entries[0].Name)
}

func TestGetTreeWithoutTreeCapabilityFails(t *testing.T) {
	r, _, _, _ := linearHistory(t) // MemoryCommits has no tree storage

	_, err := r.GetTree("refs/heads/main")
	require.Error(t, err)
}

func TestLogMergeCommitVisitsEachParentOnce(t *testing.T) {
	objs := NewMemoryCommits()

	root := id("dddd000000000000000000000000000000000004")
	objs.Put(root, &object.Commit{Tree: id("1111000000000000000000000000000000000001"), Author: sig, Committer: sig, Message: "root"})

	left := id("eeee000000000000000000000000000000000005")
	objs.Put(left, &object.Commit{Tree: id("1111000000000000000000000000000000000001"), Parents: []hash.ID{root}, Author: sig, Committer: sig, Message: "left"})

	right := id("ffff000000000000000000000000000000000006")
	objs.Put(right, &object.Commit{Tree: id("1111000000000000000000000000000000000001"), Parents: []hash.ID{root}, Author: sig, Committer: sig, Message: "right"})

	merge := id("1234000000000000000000000000000000000007")
	objs.Put(merge, &object.Commit{Tree: id("1111000000000000000000000000000000000001"), Parents: []hash.ID{left, right}, Author: sig, Committer: sig, Message: "merge"})

	refStore := refs.NewStore(refs.NewMemoryBackend(), refs.NewMemoryReflog(), refs.NewMemoryLockManager(), hash.SHA1)
	require.NoError(t, refStore.Update(refs.HeadsPrefix+"main", merge, sig, "create", refs.UpdateOptions{
		ExpectedOld: hash.ZeroFor(hash.SHA1), HasExpected: true,
	}))

	r := New(objs, refStore, hash.SHA1)
	commits, err := r.Log("refs/heads/main", 10)
	require.NoError(t, err)
	require.Len(t, commits, 4)
	require.Equal(t, "root", commits[3].Message)
}
