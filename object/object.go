// Package object implements Git's immutable object model: the sum type
// {Blob, Tree, Commit, Tag}, canonical serialization, and strict parsing.
//
// Every object is addressed by hash.Object(algo, Type().String(), body) where
// body is exactly the bytes Encode writes — the "type SP size NUL payload"
// framing itself belongs to the storage layer (loose objects and packs),
// not to the in-memory object, so that the same Commit/Tree/Tag/Blob value
// can be stored loose or packed without re-deriving its id.
package object

import (
	"io"

	"github.com/antgroup/gitvault/errs"
	"github.com/antgroup/gitvault/hash"
)

// Type is one of the four Git object kinds.
type Type uint8

const (
	InvalidType Type = iota
	BlobType
	TreeType
	CommitType
	TagType
)

func (t Type) String() string {
	switch t {
	case BlobType:
		return "blob"
	case TreeType:
		return "tree"
	case CommitType:
		return "commit"
	case TagType:
		return "tag"
	default:
		return "invalid"
	}
}

// ParseType maps a framing type token back to a Type.
func ParseType(s string) (Type, error) {
	switch s {
	case "blob":
		return BlobType, nil
	case "tree":
		return TreeType, nil
	case "commit":
		return CommitType, nil
	case "tag":
		return TagType, nil
	default:
		return InvalidType, &errs.CorruptObject{Type: s, Reason: "unknown object type"}
	}
}

// Object is satisfied by Blob, Tree, Commit, and Tag.
type Object interface {
	Type() Type
	Encode(w io.Writer) error
}

// Encode serializes an object to its canonical body bytes (without framing).
func Encode(o Object) ([]byte, error) {
	var buf writerBuf
	if err := o.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.b, nil
}

// Hash computes the content-addressed id of an object under the given
// algorithm. Two objects with identical semantic content always hash
// identically because Encode is a pure function of that content.
func Hash(algo hash.Algo, o Object) (hash.ID, error) {
	body, err := Encode(o)
	if err != nil {
		return nil, err
	}
	return hash.Object(algo, o.Type().String(), body), nil
}

// Decode parses body (the framed payload, already separated from its
// "type SP size NUL" header) into the Object that typ names, assuming the
// default SHA-1 id width for any binary ids it contains (only Tree has
// these). Callers that know the repository's configured algorithm should
// call DecodeWithAlgo instead.
func Decode(typ Type, body []byte) (Object, error) {
	return DecodeWithAlgo(typ, body, hash.SHA1)
}

// DecodeWithAlgo is Decode, but parses any binary object ids embedded in
// body (Tree entries) using algo's width instead of assuming SHA-1.
func DecodeWithAlgo(typ Type, body []byte, algo hash.Algo) (Object, error) {
	switch typ {
	case BlobType:
		b := &Blob{}
		if err := b.Decode(body); err != nil {
			return nil, err
		}
		return b, nil
	case TreeType:
		t := &Tree{}
		if err := t.DecodeWithAlgo(body, algo); err != nil {
			return nil, err
		}
		return t, nil
	case CommitType:
		c := &Commit{}
		if err := c.Decode(body); err != nil {
			return nil, err
		}
		return c, nil
	case TagType:
		g := &Tag{}
		if err := g.Decode(body); err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, &errs.CorruptObject{Type: typ.String(), Reason: "unknown object type"}
	}
}

func IsBlob(o Object) bool   { return o != nil && o.Type() == BlobType }
func IsTree(o Object) bool   { return o != nil && o.Type() == TreeType }
func IsCommit(o Object) bool { return o != nil && o.Type() == CommitType }
func IsTag(o Object) bool    { return o != nil && o.Type() == TagType }

// writerBuf is a tiny io.Writer over a growable []byte, avoiding a
// bytes.Buffer import in the hot Encode path for every object.
type writerBuf struct{ b []byte }

func (w *writerBuf) Write(p []byte) (int, error) {
	w.b = append(w.b, p...)
	return len(p), nil
}
