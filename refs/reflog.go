package refs

import (
	"fmt"
	"strings"

	"github.com/antgroup/gitvault/errs"
	"github.com/antgroup/gitvault/hash"
	"github.com/antgroup/gitvault/object"
)

// Entry is one reflog line: `(old_id, new_id, committer, message)`. A zero
// id in Old means "create", in New means "delete".
type Entry struct {
	Old       hash.ID
	New       hash.ID
	Committer object.Signature
	Message   string
}

// FormatEntry renders e in the canonical tab-separated on-disk form:
// "old new name <email> seconds tz\tmessage\n". Rewrites always emit the
// tab form, even though the space-separated legacy variant is accepted on
// read; an entry with an empty message is written with neither tab nor
// message.
func FormatEntry(e Entry) string {
	sig := e.Committer.String()
	if e.Message == "" {
		return fmt.Sprintf("%s %s %s\n", e.Old, e.New, sig)
	}
	msg := strings.ReplaceAll(e.Message, "\n", " ")
	return fmt.Sprintf("%s %s %s\t%s\n", e.Old, e.New, sig, msg)
}

// ParseEntryLine parses one reflog line. It accepts both the tab-separated
// canonical form and the legacy space-separated variant (where the message,
// if present, follows the signature's timezone field separated by a
// space rather than a tab).
func ParseEntryLine(line string) (Entry, error) {
	fields := strings.SplitN(line, " ", 3)
	if len(fields) < 3 {
		return Entry{}, &errs.CorruptObject{Type: "reflog", Reason: fmt.Sprintf("unparsable line %q", line)}
	}
	oldID, err := hash.FromHex(fields[0])
	if err != nil {
		return Entry{}, &errs.CorruptObject{Type: "reflog", Reason: "bad old id: " + err.Error()}
	}
	newID, err := hash.FromHex(fields[1])
	if err != nil {
		return Entry{}, &errs.CorruptObject{Type: "reflog", Reason: "bad new id: " + err.Error()}
	}
	rest := fields[2]

	var sigPart, message string
	if tab := strings.IndexByte(rest, '\t'); tab >= 0 {
		sigPart, message = rest[:tab], rest[tab+1:]
	} else {
		// Legacy space-separated form: "name <email> seconds tz message".
		// The signature itself is 4 whitespace-separated fields once name
		// and email collapse to one token each; split conservatively by
		// finding the closing '>' then taking two more fields as
		// seconds/tz, leaving everything after as the message.
		closeAngle := strings.IndexByte(rest, '>')
		if closeAngle < 0 {
			sigPart = rest
		} else {
			after := strings.TrimLeft(rest[closeAngle+1:], " ")
			tokens := strings.SplitN(after, " ", 3)
			if len(tokens) >= 2 {
				sigPart = rest[:closeAngle+1] + " " + tokens[0] + " " + tokens[1]
				if len(tokens) == 3 {
					message = tokens[2]
				}
			} else {
				sigPart = rest
			}
		}
	}
	var committer object.Signature
	if err := committer.Decode([]byte(sigPart)); err != nil {
		return Entry{}, err
	}
	return Entry{Old: oldID, New: newID, Committer: committer, Message: message}, nil
}
