package pack

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/antgroup/gitvault/errs"
	"github.com/antgroup/gitvault/hash"
	"github.com/antgroup/gitvault/object"
)

func fakeID(b byte) hash.ID {
	id := make(hash.ID, hash.SHA1.Size())
	id[len(id)-1] = b
	return id
}

func TestResolveObjectAppliesOfsDeltaChain(t *testing.T) {
	var buf bytes.Buffer
	enc, err := NewEncoder(&buf, hash.SHA1, 2)
	require.NoError(t, err)

	base := []byte("abcdefghij")
	baseOffset := enc.BytesWritten()
	require.NoError(t, enc.WriteObject(fakeID(1), &object.Blob{Content: base}))

	target := []byte("abcdefgHello")
	delta := EncodeDelta(base, target)
	deltaOffset := enc.BytesWritten()
	require.NoError(t, enc.WriteOfsDelta(fakeID(2), deltaOffset-baseOffset, delta))

	_, err = enc.Finish()
	require.NoError(t, err)

	r := NewReader(bytes.NewReader(buf.Bytes()), hash.SHA1)
	kind, body, err := r.ResolveObject(int64(deltaOffset), nil)
	require.NoError(t, err)
	require.Equal(t, KindBlob, kind)
	require.Equal(t, target, body)
}

func TestResolveObjectAppliesRefDeltaViaResolver(t *testing.T) {
	var buf bytes.Buffer
	enc, err := NewEncoder(&buf, hash.SHA1, 2)
	require.NoError(t, err)

	base := []byte("the quick brown fox")
	baseID := fakeID(1)
	baseOffset := enc.BytesWritten()
	require.NoError(t, enc.WriteObject(baseID, &object.Blob{Content: base}))

	target := []byte("the quick brown fox jumps over the lazy dog")
	delta := EncodeDelta(base, target)
	deltaOffset := enc.BytesWritten()
	require.NoError(t, enc.WriteRefDelta(fakeID(2), baseID, delta))

	_, err = enc.Finish()
	require.NoError(t, err)

	r := NewReader(bytes.NewReader(buf.Bytes()), hash.SHA1)
	resolver := func(id hash.ID) (int64, bool) {
		if id.Equal(baseID) {
			return int64(baseOffset), true
		}
		return 0, false
	}
	kind, body, err := r.ResolveObject(int64(deltaOffset), resolver)
	require.NoError(t, err)
	require.Equal(t, KindBlob, kind)
	require.Equal(t, target, body)
}

func TestResolveObjectRefDeltaUnresolvableBase(t *testing.T) {
	var buf bytes.Buffer
	enc, err := NewEncoder(&buf, hash.SHA1, 1)
	require.NoError(t, err)

	deltaOffset := enc.BytesWritten()
	require.NoError(t, enc.WriteRefDelta(fakeID(2), fakeID(9), EncodeDelta([]byte("a"), []byte("b"))))
	_, err = enc.Finish()
	require.NoError(t, err)

	r := NewReader(bytes.NewReader(buf.Bytes()), hash.SHA1)
	_, _, err = r.ResolveObject(int64(deltaOffset), func(hash.ID) (int64, bool) { return 0, false })
	require.Error(t, err)
	require.True(t, errs.IsDeltaError(err))
}

func TestResolveAsObjectDecodesCommit(t *testing.T) {
	var buf bytes.Buffer
	enc, err := NewEncoder(&buf, hash.SHA1, 1)
	require.NoError(t, err)

	commit := &object.Commit{
		Tree:      fakeID(0x11),
		Author:    object.Signature{Name: "a", Email: "a@example.com", Seconds: 1000, TZOffset: 0},
		Committer: object.Signature{Name: "a", Email: "a@example.com", Seconds: 1000, TZOffset: 0},
		Message:   "initial commit\n",
	}
	offset := enc.BytesWritten()
	require.NoError(t, enc.WriteObject(fakeID(3), commit))
	_, err = enc.Finish()
	require.NoError(t, err)

	r := NewReader(bytes.NewReader(buf.Bytes()), hash.SHA1)
	obj, err := r.ResolveAsObject(int64(offset), nil)
	require.NoError(t, err)
	got, ok := obj.(*object.Commit)
	require.True(t, ok)
	require.Equal(t, "initial commit\n", got.Message)
}

// buildSelfReferentialOfsDeltaPack writes a single OFS_DELTA entry whose
// relative offset is zero, making it claim itself as its own delta base --
// the minimal packfile byte sequence that exercises cycle detection.
func buildSelfReferentialOfsDeltaPack(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, WriteHeader(&buf, Header{Version: VersionMin, Count: 1}))
	require.NoError(t, writeEntryHeader(&buf, KindOfsDelta, 0))
	require.NoError(t, writeOfsDeltaOffset(&buf, 0))
	deflated, err := deflate([]byte{0x00, 0x00})
	require.NoError(t, err)
	buf.Write(deflated)
	return buf.Bytes()
}

func TestResolveObjectDetectsCycle(t *testing.T) {
	data := buildSelfReferentialOfsDeltaPack(t)
	r := NewReader(bytes.NewReader(data), hash.SHA1)
	_, _, err := r.ResolveObject(12, nil)
	require.Error(t, err)
	require.True(t, errs.IsDeltaError(err))
}

func TestResolveObjectExceedsMaxChainDepth(t *testing.T) {
	var buf bytes.Buffer
	depth := MaxChainDepth + 5
	enc, err := NewEncoder(&buf, hash.SHA1, uint32(depth+1))
	require.NoError(t, err)

	content := []byte("a")
	baseOffset := enc.BytesWritten()
	require.NoError(t, enc.WriteObject(fakeID(1), &object.Blob{Content: content}))

	prevOffset := baseOffset
	var lastOffset uint64
	for i := 0; i < depth; i++ {
		next := append(append([]byte{}, content...), byte('a'+(i%26)))
		delta := EncodeDelta(content, next)
		deltaOffset := enc.BytesWritten()
		require.NoError(t, enc.WriteOfsDelta(fakeID(byte((i+2)%256)), deltaOffset-prevOffset, delta))
		prevOffset = deltaOffset
		lastOffset = deltaOffset
		content = next
	}
	_, err = enc.Finish()
	require.NoError(t, err)

	r := NewReader(bytes.NewReader(buf.Bytes()), hash.SHA1)
	_, _, err = r.ResolveObject(int64(lastOffset), nil)
	require.Error(t, err)
	require.True(t, errs.IsDeltaError(err))
}
