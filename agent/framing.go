package agent

import "strings"

// lineBuffer splits an arbitrarily chunked text stream into newline
// terminated lines. The unterminated tail is kept until a later chunk
// completes it.
//
// lineBuffer is owned by the reader goroutine and is not safe for
// concurrent use.
type lineBuffer struct {
	partial strings.Builder
}

// Feed appends chunk to the buffered tail and returns every line that is now
// complete, in arrival order and without the trailing newline.
func (b *lineBuffer) Feed(chunk string) []string {
	var lines []string
	for {
		i := strings.IndexByte(chunk, '\n')
		if i < 0 {
			b.partial.WriteString(chunk)
			return lines
		}
		b.partial.WriteString(chunk[:i])
		lines = append(lines, b.partial.String())
		b.partial.Reset()
		chunk = chunk[i+1:]
	}
}

// Pending returns the buffered text that has not yet seen a newline.
func (b *lineBuffer) Pending() string {
	return b.partial.String()
}
