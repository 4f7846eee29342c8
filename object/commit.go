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

// ExtraHeader is a commit header line beyond the fixed tree/parent*/
// author/committer set, e.g. "gpgsig" or "mergetag". Continuation lines
// (those beginning with a single space) are folded into V with their
// leading space stripped and a newline restored between lines.
type ExtraHeader struct {
	K string
	V string
}

// Commit is a single point in the history DAG: a tree snapshot, zero or
// more parents, two identities, optional extra headers, and a message.
type Commit struct {
	Tree         hash.ID
	Parents      []hash.ID
	Author       Signature
	Committer    Signature
	ExtraHeaders []ExtraHeader
	Message      string
}

func (c *Commit) Type() Type { return CommitType }

func (c *Commit) Encode(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "tree %s\n", c.Tree.String()); err != nil {
		return err
	}
	for _, p := range c.Parents {
		if _, err := fmt.Fprintf(w, "parent %s\n", p.String()); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "author %s\n", c.Author.String()); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "committer %s\n", c.Committer.String()); err != nil {
		return err
	}
	for _, h := range c.ExtraHeaders {
		lines := strings.Split(h.V, "\n")
		if _, err := fmt.Fprintf(w, "%s %s\n", h.K, lines[0]); err != nil {
			return err
		}
		for _, cont := range lines[1:] {
			if _, err := fmt.Fprintf(w, " %s\n", cont); err != nil {
				return err
			}
		}
	}
	if _, err := fmt.Fprintf(w, "\n%s", c.Message); err != nil {
		return err
	}
	return nil
}

// Decode parses body into c. Tree and parent ids are hex text and so are
// self-describing by length; no repository algorithm context is needed,
// unlike Tree's binary entry ids.
func (c *Commit) Decode(body []byte) error {
	r := bufio.NewReader(bytes.NewReader(body))
	var parents []hash.ID
	var extra []ExtraHeader
	sawTree := false
	sawAuthor := false
	sawCommitter := false

	for {
		line, err := r.ReadString('\n')
		if err != nil && err != io.EOF {
			return &errs.CorruptObject{Type: "commit", Reason: err.Error()}
		}
		if line == "" || line == "\n" {
			break
		}
		text := strings.TrimSuffix(line, "\n")

		if strings.HasPrefix(text, " ") {
			if len(extra) == 0 {
				return &errs.CorruptObject{Type: "commit", Reason: "continuation line with no preceding header"}
			}
			last := &extra[len(extra)-1]
			last.V += "\n" + text[1:]
			continue
		}

		sp := strings.IndexByte(text, ' ')
		if sp == -1 {
			return &errs.CorruptObject{Type: "commit", Reason: fmt.Sprintf("malformed header %q", text)}
		}
		key, val := text[:sp], text[sp+1:]

		switch key {
		case "tree":
			id, err := parseID(val)
			if err != nil {
				return err
			}
			c.Tree = id
			sawTree = true
		case "parent":
			id, err := parseID(val)
			if err != nil {
				return err
			}
			parents = append(parents, id)
		case "author":
			if err := c.Author.Decode([]byte(val)); err != nil {
				return err
			}
			sawAuthor = true
		case "committer":
			if err := c.Committer.Decode([]byte(val)); err != nil {
				return err
			}
			sawCommitter = true
		default:
			extra = append(extra, ExtraHeader{K: key, V: val})
		}
		if err == io.EOF {
			break
		}
	}

	if !sawTree || !sawAuthor || !sawCommitter {
		return &errs.CorruptObject{Type: "commit", Reason: "missing required header"}
	}

	rest, err := io.ReadAll(r)
	if err != nil {
		return &errs.CorruptObject{Type: "commit", Reason: err.Error()}
	}

	c.Parents = parents
	c.ExtraHeaders = extra
	c.Message = string(rest)
	return nil
}

func parseID(hex string) (hash.ID, error) {
	id, err := hash.FromHex(hex)
	if err != nil {
		return nil, &errs.CorruptObject{Type: "commit", Reason: fmt.Sprintf("malformed id %q", hex)}
	}
	return id, nil
}
