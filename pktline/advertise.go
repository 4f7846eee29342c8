package pktline

import (
	"io"

	"github.com/antgroup/gitvault/hash"
)

// AdvertisedRef is one line of a ref advertisement: its id and name, plus
// the peeled commit id if it is an annotated tag.
type AdvertisedRef struct {
	ID     hash.ID
	Name   string
	Peeled hash.ID
}

// WriteAdvertisement writes refs as a ref advertisement: the first line
// carries caps after a NUL byte (or, if refs is empty, a single
// "{zero-id} capabilities^{}" line per Git's convention for an empty
// repository), each annotated tag gets a second "{peeled} {name}^{}" line,
// and the whole advertisement is terminated with a flush packet.
func WriteAdvertisement(w io.Writer, refs []AdvertisedRef, caps *Capabilities, algo hash.Algo) error {
	if len(refs) == 0 {
		zero := hash.ZeroFor(algo)
		if err := Encodef(w, "%s capabilities^{}\x00%s\n", zero, caps); err != nil {
			return err
		}
		return EncodeFlush(w)
	}
	for i, r := range refs {
		if i == 0 {
			if err := Encodef(w, "%s %s\x00%s\n", r.ID, r.Name, caps); err != nil {
				return err
			}
		} else {
			if err := Encodef(w, "%s %s\n", r.ID, r.Name); err != nil {
				return err
			}
		}
		if r.Peeled != nil {
			if err := Encodef(w, "%s %s^{}\n", r.Peeled, r.Name); err != nil {
				return err
			}
		}
	}
	return EncodeFlush(w)
}

// ReadAdvertisement parses a ref advertisement back into AdvertisedRef
// values and the capability set carried on the first line. A "^{}"-suffixed
// line attaches its id as the Peeled field of the immediately preceding
// entry.
func ReadAdvertisement(r io.Reader, algo hash.Algo) ([]AdvertisedRef, *Capabilities, error) {
	sc := NewScanner(r)
	var refs []AdvertisedRef
	var caps *Capabilities
	first := true
	for sc.Scan() {
		pkt := sc.Packet()
		if pkt.Type == Flush {
			break
		}
		if pkt.Type != Data {
			continue
		}
		line := pkt.Payload
		if first {
			var refLine []byte
			refLine, caps = SplitFirstLine(line)
			line = refLine
			first = false
		}
		idHex, name, ok := cutSpace(line)
		if !ok {
			continue
		}
		name = trimNewline(name)
		if peeledName, isPeel := cutPeeled(name); isPeel {
			if len(refs) > 0 && refs[len(refs)-1].Name == peeledName {
				id, err := hash.FromHex(string(idHex))
				if err != nil {
					return nil, nil, err
				}
				refs[len(refs)-1].Peeled = id
			}
			continue
		}
		id, err := hash.FromHex(string(idHex))
		if err != nil {
			return nil, nil, err
		}
		refs = append(refs, AdvertisedRef{ID: id, Name: string(name)})
	}
	if sc.Err() != nil {
		return nil, nil, sc.Err()
	}
	if caps == nil {
		caps = NewCapabilities()
	}
	return refs, caps, nil
}

func cutSpace(line []byte) (before, after []byte, ok bool) {
	for i, b := range line {
		if b == ' ' {
			return line[:i], line[i+1:], true
		}
	}
	return nil, nil, false
}

func trimNewline(b []byte) []byte {
	if len(b) > 0 && b[len(b)-1] == '\n' {
		return b[:len(b)-1]
	}
	return b
}

func cutPeeled(name []byte) (string, bool) {
	s := string(name)
	const suffix = "^{}"
	if len(s) > len(suffix) && s[len(s)-len(suffix):] == suffix {
		return s[:len(s)-len(suffix)], true
	}
	return "", false
}
