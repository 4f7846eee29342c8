package object

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/antgroup/gitvault/errs"
	"github.com/antgroup/gitvault/hash"
)

// Tag is an annotated tag: a named, signed pointer to another object
// (usually a commit), with its own tagger identity and message.
type Tag struct {
	Object     hash.ID
	ObjectType Type
	Name       string
	Tagger     Signature
	Content    string
}

func (t *Tag) Type() Type { return TagType }

func (t *Tag) Encode(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "object %s\n", t.Object.String()); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "type %s\n", t.ObjectType.String()); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "tag %s\n", t.Name); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "tagger %s\n", t.Tagger.String()); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "\n%s", t.Content); err != nil {
		return err
	}
	return nil
}

var tagHeaderOrder = []string{"object", "type", "tag", "tagger"}

// Decode parses body into t, enforcing the fixed header order
// object/type/tag/tagger.
func (t *Tag) Decode(body []byte) error {
	r := bufio.NewReader(bytes.NewReader(body))
	sawObject, sawType, sawName, sawTagger := false, false, false, false
	next := 0

	for {
		line, err := r.ReadString('\n')
		if err != nil && err != io.EOF {
			return &errs.CorruptObject{Type: "tag", Reason: err.Error()}
		}
		if line == "" || line == "\n" {
			break
		}
		text := strings.TrimSuffix(line, "\n")
		sp := strings.IndexByte(text, ' ')
		if sp == -1 {
			return &errs.CorruptObject{Type: "tag", Reason: fmt.Sprintf("malformed header %q", text)}
		}
		key, val := text[:sp], text[sp+1:]
		if next >= len(tagHeaderOrder) || key != tagHeaderOrder[next] {
			return &errs.CorruptObject{Type: "tag", Reason: fmt.Sprintf("unexpected header %q", key)}
		}
		next++

		switch key {
		case "object":
			id, perr := parseID(val)
			if perr != nil {
				return perr
			}
			t.Object = id
			sawObject = true
		case "type":
			typ, perr := ParseType(val)
			if perr != nil {
				return perr
			}
			t.ObjectType = typ
			sawType = true
		case "tag":
			t.Name = val
			sawName = true
		case "tagger":
			if perr := t.Tagger.Decode([]byte(val)); perr != nil {
				return perr
			}
			sawTagger = true
		default:
			return &errs.CorruptObject{Type: "tag", Reason: fmt.Sprintf("unexpected header %q", key)}
		}
		if err == io.EOF {
			break
		}
	}

	if !sawObject || !sawType || !sawName || !sawTagger {
		return &errs.CorruptObject{Type: "tag", Reason: "missing required header"}
	}

	rest, err := io.ReadAll(r)
	if err != nil {
		return &errs.CorruptObject{Type: "tag", Reason: err.Error()}
	}
	t.Content = string(rest)
	return nil
}

// ExtractSignature splits a PGP-signed tag's content into the signed
// message and the detached "-----BEGIN PGP SIGNATURE-----" block, mirroring
// how a tagger's signature is appended to annotated tags.
func (t *Tag) ExtractSignature() (message, signature string) {
	const marker = "-----BEGIN PGP SIGNATURE-----"
	idx := strings.Index(t.Content, marker)
	if idx == -1 {
		return t.Content, ""
	}
	return t.Content[:idx], t.Content[idx:]
}
