package pktline

import "strings"

// Capabilities is an ordered set of capability tokens, each either a bare
// name or a "name=value" pair, as advertised on the first ref-advertisement
// line after a NUL byte.
type Capabilities struct {
	order  []string
	values map[string]string
}

// NewCapabilities returns an empty capability set.
func NewCapabilities() *Capabilities {
	return &Capabilities{values: map[string]string{}}
}

// Add appends name (optionally with a value) if not already present.
func (c *Capabilities) Add(name, value string) {
	if _, ok := c.values[name]; ok {
		return
	}
	c.order = append(c.order, name)
	c.values[name] = value
}

// Has reports whether name was advertised.
func (c *Capabilities) Has(name string) bool {
	_, ok := c.values[name]
	return ok
}

// Value returns name's value (empty for a bare capability) and whether it
// was present at all.
func (c *Capabilities) Value(name string) (string, bool) {
	v, ok := c.values[name]
	return v, ok
}

// List returns capability names in advertisement order.
func (c *Capabilities) List() []string {
	return append([]string(nil), c.order...)
}

// String renders the capability list space-separated, "name" or
// "name=value" per entry, in advertisement order.
func (c *Capabilities) String() string {
	parts := make([]string, len(c.order))
	for i, name := range c.order {
		if v := c.values[name]; v != "" {
			parts[i] = name + "=" + v
		} else {
			parts[i] = name
		}
	}
	return strings.Join(parts, " ")
}

// ParseCapabilities splits a space-separated capability-list string (the
// portion of an advertisement's first line following the NUL byte) into a
// Capabilities set. Each token is either "name" or "name=value".
func ParseCapabilities(s string) *Capabilities {
	c := NewCapabilities()
	for _, tok := range strings.Fields(s) {
		name, value, _ := strings.Cut(tok, "=")
		c.Add(name, value)
	}
	return c
}

// SplitFirstLine separates a ref advertisement's first data line into its
// "{id} {name}" portion and the trailing capability-list string, which
// follows a NUL byte only on the very first advertised ref.
func SplitFirstLine(line []byte) (refLine []byte, caps *Capabilities) {
	if i := indexByte(line, 0); i >= 0 {
		return line[:i], ParseCapabilities(string(line[i+1:]))
	}
	return line, NewCapabilities()
}

func indexByte(b []byte, c byte) int {
	for i, x := range b {
		if x == c {
			return i
		}
	}
	return -1
}
