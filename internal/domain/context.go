package domain

// Chunk is one record's contribution to a prompt context.
// Every chunk is traceable to exactly one ContentRecord.
type Chunk struct {
	RecordID  string
	Text      string
	Truncated bool // set when the chunk was hard-cut to fit the budget
}

// Context is the bounded text handed to the language model.
// Built fresh per request; chunk order preserves rank order.
type Context struct {
	Chunks []Chunk
	Length int // total characters across chunks, ≤ the channel's budget
}

// Empty reports whether no records made it into the context.
func (c Context) Empty() bool { return len(c.Chunks) == 0 }

// RecordIDs returns the ids of all records included in the context, in rank order.
func (c Context) RecordIDs() []string {
	ids := make([]string, len(c.Chunks))
	for i, ch := range c.Chunks {
		ids[i] = ch.RecordID
	}
	return ids
}

// Text concatenates all chunks into the prompt context string.
func (c Context) Text() string {
	n := 0
	for _, ch := range c.Chunks {
		n += len(ch.Text)
	}
	buf := make([]byte, 0, n)
	for _, ch := range c.Chunks {
		buf = append(buf, ch.Text...)
	}
	return string(buf)
}
