package packstore

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"io"
)

func jsonReader(b []byte) io.Reader { return bytes.NewReader(b) }

// randSuffix returns a cryptographically random uint64, used only to
// disambiguate lock ids acquired within the same nanosecond.
func randSuffix() uint64 {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return binary.BigEndian.Uint64(b[:])
}
