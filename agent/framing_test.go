package agent

import (
	"slices"
	"testing"
)

func TestLineBuffer_Feed(t *testing.T) {
	tests := []struct {
		name        string
		chunks      []string
		wantLines   []string
		wantPending string
	}{
		{
			name:        "no newline only buffers",
			chunks:      []string{`[1,{"id":`},
			wantLines:   nil,
			wantPending: `[1,{"id":`,
		},
		{
			name:      "single complete line",
			chunks:    []string{"[1,true]\n"},
			wantLines: []string{"[1,true]"},
		},
		{
			name:      "several lines in one chunk",
			chunks:    []string{"[1,true]\n[2,false]\n[0,{}]\n"},
			wantLines: []string{"[1,true]", "[2,false]", "[0,{}]"},
		},
		{
			name:        "frame split across chunks",
			chunks:      []string{`[1,{"id":"ab`, `c"}]` + "\n[2,", "null]"},
			wantLines:   []string{`[1,{"id":"abc"}]`},
			wantPending: "[2,null]",
		},
		{
			name:      "empty lines are kept",
			chunks:    []string{"\n\n"},
			wantLines: []string{"", ""},
		},
		{
			name:      "newline alone completes buffered tail",
			chunks:    []string{"[3,1]", "\n"},
			wantLines: []string{"[3,1]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b lineBuffer
			var got []string
			for _, chunk := range tt.chunks {
				got = append(got, b.Feed(chunk)...)
			}
			if !slices.Equal(got, tt.wantLines) {
				t.Errorf("lines = %q, want %q", got, tt.wantLines)
			}
			if b.Pending() != tt.wantPending {
				t.Errorf("Pending() = %q, want %q", b.Pending(), tt.wantPending)
			}
		})
	}
}

// Every chunking of the same stream must produce the same lines, and what was
// emitted plus what is buffered must equal everything fed.
func TestLineBuffer_ChunkSizeIndependent(t *testing.T) {
	stream := `[1,{"id":"abc","choices":[{"index":0,"text":"foo"}]}]` + "\n" +
		`[0,{"event":"statusChanged","status":"ready"}]` + "\n" +
		"not json\n" +
		`[2,{"text":"héllo wörld"}]` + "\n" +
		`[3,`

	var whole lineBuffer
	want := whole.Feed(stream)

	for size := 1; size <= len(stream); size++ {
		var b lineBuffer
		var got []string
		for start := 0; start < len(stream); start += size {
			end := min(start+size, len(stream))
			got = append(got, b.Feed(stream[start:end])...)
		}
		if !slices.Equal(got, want) {
			t.Fatalf("chunk size %d: lines = %q, want %q", size, got, want)
		}

		var rebuilt string
		for _, line := range got {
			rebuilt += line + "\n"
		}
		rebuilt += b.Pending()
		if rebuilt != stream {
			t.Fatalf("chunk size %d: emitted + pending = %q, want %q", size, rebuilt, stream)
		}
	}
}
