package object

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/antgroup/gitvault/errs"
)

// Signature is a Git identity: "Name SP < email > SP seconds SP tz". Name
// and email are preserved bytewise; only the surrounding "< >" and
// separating spaces are structural.
type Signature struct {
	Name     string
	Email    string
	Seconds  int64 // unix seconds
	TZOffset int   // minutes, signed; e.g. -420 for "-0700"
}

// Decode parses "Name <email> seconds tz" into s. It is tolerant of a
// missing timestamp (leaves Seconds/TZOffset untouched), matching Git's own
// leniency for the identity lines it ships historically, but rejects a
// timestamp that is present and malformed, and requires the "<" ">"
// delimiters to be present and ordered.
func (s *Signature) Decode(b []byte) error {
	open := bytes.IndexByte(b, '<')
	close := bytes.IndexByte(b, '>')
	if open == -1 || close == -1 || close < open {
		return &errs.CorruptObject{Type: "commit", Reason: fmt.Sprintf("malformed identity %q", b)}
	}
	s.Name = string(bytes.TrimRight(b[:open], " "))
	s.Email = string(b[open+1 : close])

	rest := bytes.TrimLeft(b[close+1:], " ")
	if len(rest) == 0 {
		return nil
	}
	fields := bytes.Fields(rest)
	if len(fields) != 2 {
		return &errs.CorruptObject{Type: "commit", Reason: fmt.Sprintf("malformed identity timestamp %q", rest)}
	}
	seconds, err := strconv.ParseInt(string(fields[0]), 10, 64)
	if err != nil {
		return &errs.CorruptObject{Type: "commit", Reason: fmt.Sprintf("malformed identity seconds %q", fields[0])}
	}
	tz, err := parseTZ(fields[1])
	if err != nil {
		return err
	}
	s.Seconds = seconds
	s.TZOffset = tz
	return nil
}

func parseTZ(b []byte) (int, error) {
	if len(b) != 5 || (b[0] != '+' && b[0] != '-') {
		return 0, &errs.CorruptObject{Type: "commit", Reason: fmt.Sprintf("malformed timezone %q", b)}
	}
	hours, err1 := strconv.Atoi(string(b[1:3]))
	mins, err2 := strconv.Atoi(string(b[3:5]))
	if err1 != nil || err2 != nil {
		return 0, &errs.CorruptObject{Type: "commit", Reason: fmt.Sprintf("malformed timezone %q", b)}
	}
	total := hours*60 + mins
	if b[0] == '-' {
		total = -total
	}
	return total, nil
}

// String renders the signature in its canonical on-disk form.
func (s Signature) String() string {
	sign := byte('+')
	off := s.TZOffset
	if off < 0 {
		sign = '-'
		off = -off
	}
	return fmt.Sprintf("%s <%s> %d %c%02d%02d", s.Name, s.Email, s.Seconds, sign, off/60, off%60)
}
