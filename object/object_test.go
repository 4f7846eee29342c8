package object

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/antgroup/gitvault/hash"
)

func TestBlobRoundTrip(t *testing.T) {
	b := &Blob{Content: []byte("hello world\n")}
	body, err := Encode(b)
	require.NoError(t, err)

	var got Blob
	require.NoError(t, got.Decode(body))
	require.Equal(t, b.Content, got.Content)

	id, err := Hash(hash.SHA1, b)
	require.NoError(t, err)
	require.Len(t, id, 20)
}

func TestTreeRoundTripAndOrder(t *testing.T) {
	tr := &Tree{Entries: []TreeEntry{
		{Name: "b.txt", Mode: ModeFile, ID: hash.ID(make([]byte, 20))},
		{Name: "a", Mode: ModeDir, ID: hash.ID(make([]byte, 20))},
		{Name: "a.txt", Mode: ModeFile, ID: hash.ID(make([]byte, 20))},
	}}
	tr.Sort()
	// "a.txt" sorts before "a/" because '.' < '/'.
	require.Equal(t, "a.txt", tr.Entries[0].Name)
	require.Equal(t, "a", tr.Entries[1].Name)
	require.Equal(t, "b.txt", tr.Entries[2].Name)

	body, err := Encode(tr)
	require.NoError(t, err)

	var got Tree
	require.NoError(t, got.DecodeWithAlgo(body, hash.SHA1))
	require.Equal(t, tr.Entries, got.Entries)
}

func TestTreeDecodeRejectsOutOfOrder(t *testing.T) {
	tr := &Tree{Entries: []TreeEntry{
		{Name: "b.txt", Mode: ModeFile, ID: hash.ID(make([]byte, 20))},
		{Name: "a.txt", Mode: ModeFile, ID: hash.ID(make([]byte, 20))},
	}}
	body, err := Encode(tr)
	require.NoError(t, err)

	var got Tree
	err = got.DecodeWithAlgo(body, hash.SHA1)
	require.Error(t, err)
}

func TestTreeDecodeRejectsDuplicateNames(t *testing.T) {
	tr := &Tree{Entries: []TreeEntry{
		{Name: "a.txt", Mode: ModeFile, ID: hash.ID(make([]byte, 20))},
		{Name: "a.txt", Mode: ModeExecutable, ID: hash.ID(make([]byte, 20))},
	}}
	body, err := Encode(tr)
	require.NoError(t, err)

	var got Tree
	err = got.DecodeWithAlgo(body, hash.SHA1)
	require.Error(t, err)
}

func TestCommitRoundTrip(t *testing.T) {
	c := &Commit{
		Tree:    mustID("4b825dc642cb6eb9a060e54bf8d69288fbee4904"),
		Parents: []hash.ID{mustID("e69de29bb2d1d6434b8b29ae775ad8c2e48c5391")},
		Author: Signature{
			Name: "Ada Lovelace", Email: "ada@example.com",
			Seconds: 1700000000, TZOffset: -420,
		},
		Committer: Signature{
			Name: "Ada Lovelace", Email: "ada@example.com",
			Seconds: 1700000000, TZOffset: -420,
		},
		Message: "Initial commit\n",
	}

	body, err := Encode(c)
	require.NoError(t, err)

	var got Commit
	require.NoError(t, got.Decode(body))
	require.Equal(t, c.Tree, got.Tree)
	require.Equal(t, c.Parents, got.Parents)
	require.Equal(t, c.Author, got.Author)
	require.Equal(t, c.Message, got.Message)
}

func TestCommitDecodeGpgsigContinuation(t *testing.T) {
	body := "tree 4b825dc642cb6eb9a060e54bf8d69288fbee4904\n" +
		"author A <a@b.c> 1 +0000\n" +
		"committer A <a@b.c> 1 +0000\n" +
		"gpgsig -----BEGIN PGP SIGNATURE-----\n" +
		" line one\n" +
		" line two\n" +
		" -----END PGP SIGNATURE-----\n" +
		"\n" +
		"msg\n"

	var c Commit
	require.NoError(t, c.Decode([]byte(body)))
	require.Len(t, c.ExtraHeaders, 1)
	require.Equal(t, "gpgsig", c.ExtraHeaders[0].K)
	require.Contains(t, c.ExtraHeaders[0].V, "line one\nline two")
	require.Equal(t, "msg\n", c.Message)
}

func TestTagRoundTrip(t *testing.T) {
	tag := &Tag{
		Object:     mustID("4b825dc642cb6eb9a060e54bf8d69288fbee4904"),
		ObjectType: CommitType,
		Name:       "v1.0.0",
		Tagger: Signature{
			Name: "Ada Lovelace", Email: "ada@example.com",
			Seconds: 1700000000, TZOffset: 60,
		},
		Content: "release\n",
	}
	body, err := Encode(tag)
	require.NoError(t, err)

	var got Tag
	require.NoError(t, got.Decode(body))
	require.Equal(t, tag.Object, got.Object)
	require.Equal(t, tag.ObjectType, got.ObjectType)
	require.Equal(t, tag.Name, got.Name)
	require.Equal(t, tag.Content, got.Content)
}

func mustID(s string) hash.ID {
	id, err := hash.FromHex(s)
	if err != nil {
		panic(err)
	}
	return id
}
