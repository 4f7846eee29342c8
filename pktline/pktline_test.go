package pktline

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/antgroup/gitvault/hash"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, []byte("hello")))
	require.NoError(t, EncodeFlush(&buf))

	sc := NewScanner(&buf)
	require.True(t, sc.Scan())
	require.Equal(t, Data, sc.Packet().Type)
	require.Equal(t, []byte("hello"), sc.Packet().Payload)

	require.True(t, sc.Scan())
	require.Equal(t, Flush, sc.Packet().Type)

	require.False(t, sc.Scan())
	require.NoError(t, sc.Err())
}

func TestKnownLengths(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, []byte("a")))
	require.Equal(t, "0005a", buf.String())
}

func TestControlPackets(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeDelim(&buf))
	require.NoError(t, EncodeResponseEnd(&buf))
	sc := NewScanner(&buf)
	require.True(t, sc.Scan())
	require.Equal(t, Delim, sc.Packet().Type)
	require.True(t, sc.Scan())
	require.Equal(t, ResponseEnd, sc.Packet().Type)
}

func TestCapabilityListParsing(t *testing.T) {
	c := ParseCapabilities("multi_ack side-band-64k ofs-delta agent=git/2.0")
	require.True(t, c.Has("multi_ack"))
	require.True(t, c.Has("ofs-delta"))
	v, ok := c.Value("agent")
	require.True(t, ok)
	require.Equal(t, "git/2.0", v)
}

func TestAdvertisementRoundTripWithPeeledTag(t *testing.T) {
	algo := hash.SHA1
	main := make(hash.ID, 20)
	main[19] = 1
	tag := make(hash.ID, 20)
	tag[19] = 2
	peeled := make(hash.ID, 20)
	peeled[19] = 3

	caps := NewCapabilities()
	caps.Add("ofs-delta", "")
	caps.Add("agent", "gitvault/1.0")

	refs := []AdvertisedRef{
		{ID: main, Name: "refs/heads/main"},
		{ID: tag, Name: "refs/tags/v1", Peeled: peeled},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteAdvertisement(&buf, refs, caps, algo))

	got, gotCaps, err := ReadAdvertisement(&buf, algo)
	require.NoError(t, err)
	require.True(t, gotCaps.Has("ofs-delta"))
	require.Len(t, got, 2)
	require.Equal(t, "refs/heads/main", got[0].Name)
	require.True(t, got[0].ID.Equal(main))
	require.Equal(t, "refs/tags/v1", got[1].Name)
	require.True(t, got[1].ID.Equal(tag))
	require.True(t, got[1].Peeled.Equal(peeled))
}

func TestEmptyAdvertisement(t *testing.T) {
	var buf bytes.Buffer
	caps := NewCapabilities()
	caps.Add("report-status", "")
	require.NoError(t, WriteAdvertisement(&buf, nil, caps, hash.SHA1))

	got, gotCaps, err := ReadAdvertisement(&buf, hash.SHA1)
	require.NoError(t, err)
	require.Empty(t, got)
	require.True(t, gotCaps.Has("report-status"))
}
