// Package prompt assembles the bounded text context handed to the
// language model from ranked archive records.
package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/tubeask/internal/domain"
)

// excerptLen caps how much summary/subtitle text one record contributes.
const excerptLen = 1200

// Builder packs ranked records into a character-budgeted context.
// Stateless; safe for concurrent use.
type Builder struct{}

// New creates a context builder.
func New() *Builder {
	return &Builder{}
}

// Assemble walks records in rank order, appending whole chunks until the
// next one would exceed maxLength. A record is either fully included or
// fully excluded, never cut mid-chunk — a half sentence confuses the model
// downstream. The one exception: if even the top-ranked record's chunk
// exceeds the budget on its own, it is hard-truncated to fit and flagged,
// so the caller never gets an empty context from a non-empty ranking.
func (b *Builder) Assemble(scored []domain.ScoredRecord, maxLength int) domain.Context {
	var ctx domain.Context

	for _, s := range scored {
		text := formatChunk(s.Record)

		if ctx.Length+len(text) > maxLength {
			if len(ctx.Chunks) > 0 {
				continue
			}
			cut := truncate(text, maxLength)
			ctx.Chunks = append(ctx.Chunks, domain.Chunk{
				RecordID:  s.Record.ID,
				Text:      cut,
				Truncated: true,
			})
			ctx.Length += len(cut)
			continue
		}

		ctx.Chunks = append(ctx.Chunks, domain.Chunk{
			RecordID: s.Record.ID,
			Text:     text,
		})
		ctx.Length += len(text)
	}

	return ctx
}

// formatChunk renders one record as a context block: title, date, summary,
// and a subtitle excerpt when present.
func formatChunk(rec domain.ContentRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s (%s)\n", rec.Title, rec.PublishedAt.Format("2006-01-02"))
	sb.WriteString(excerpt(rec.Summary))
	sb.WriteString("\n")
	if rec.Subtitles != "" {
		sb.WriteString("Transcript excerpt: ")
		sb.WriteString(excerpt(rec.Subtitles))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	return sb.String()
}

// excerpt trims text to excerptLen, cutting at a word boundary.
func excerpt(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= excerptLen {
		return text
	}
	cut := text[:excerptLen]
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut + "…"
}

// truncate hard-cuts text to at most n bytes without splitting a UTF-8 rune.
func truncate(text string, n int) string {
	if len(text) <= n {
		return text
	}
	for n > 0 && !utf8.RuneStart(text[n]) {
		n--
	}
	return text[:n]
}
