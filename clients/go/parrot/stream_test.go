package parrot

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.Disabled)
}

// feedAll runs a chunk sequence through a fresh demux and finalizes it.
func feedAll(t *testing.T, chunks []string, onUpdate func(string)) *Message {
	t.Helper()
	d := newDemux(onUpdate, testLogger())
	for _, c := range chunks {
		d.Feed([]byte(c))
	}
	return d.Finalize(time.Now())
}

func contentLine(s string) string {
	return `data: {"type":"content","content":"` + s + `"}` + "\n"
}

func TestDemuxConcatenatesContentInOrder(t *testing.T) {
	msg := feedAll(t, []string{
		contentLine("Hello"),
		contentLine(", "),
		contentLine("world"),
	}, nil)

	if msg == nil {
		t.Fatal("expected a message")
	}
	if msg.Content != "Hello, world" {
		t.Errorf("content = %q, want %q", msg.Content, "Hello, world")
	}
	if msg.Role != RoleAssistant {
		t.Errorf("role = %q, want %q", msg.Role, RoleAssistant)
	}
	if msg.Thinking != "" {
		t.Errorf("thinking = %q, want empty", msg.Thinking)
	}
}

func TestDemuxRoutesThinkingSpan(t *testing.T) {
	msg := feedAll(t, []string{
		contentLine("<think>"),
		contentLine("weighing options"),
		contentLine("</think>"),
		contentLine("the answer"),
	}, nil)

	if msg == nil {
		t.Fatal("expected a message")
	}
	if msg.Content != "the answer" {
		t.Errorf("content = %q, want %q", msg.Content, "the answer")
	}
	if msg.Thinking != "weighing options" {
		t.Errorf("thinking = %q, want %q", msg.Thinking, "weighing options")
	}
	if strings.Contains(msg.Content, "weighing") {
		t.Error("thinking text leaked into visible content")
	}
}

func TestDemuxSkipsMalformedLines(t *testing.T) {
	msg := feedAll(t, []string{
		contentLine("A"),
		"data: not-json\n",
		contentLine("B"),
	}, nil)

	if msg == nil {
		t.Fatal("expected a message")
	}
	if msg.Content != "AB" {
		t.Errorf("content = %q, want %q", msg.Content, "AB")
	}
}

func TestDemuxIgnoresNonDataAndNonContentLines(t *testing.T) {
	msg := feedAll(t, []string{
		": keep-alive\n",
		"\n",
		`data: {"type":"done"}` + "\n",
		"event: ping\n",
		contentLine("only this"),
	}, nil)

	if msg == nil {
		t.Fatal("expected a message")
	}
	if msg.Content != "only this" {
		t.Errorf("content = %q, want %q", msg.Content, "only this")
	}
}

func TestDemuxChunkBoundarySplitting(t *testing.T) {
	line := contentLine("hello")

	// Every possible split point of the logical line must yield the
	// same result, including splits inside the JSON framing.
	for i := 1; i < len(line); i++ {
		msg := feedAll(t, []string{line[:i], line[i:]}, nil)
		if msg == nil || msg.Content != "hello" {
			t.Fatalf("split at byte %d: got %+v, want content %q", i, msg, "hello")
		}
	}
}

func TestDemuxMultiByteRuneSplitAcrossChunks(t *testing.T) {
	line := contentLine("café über")
	// Split inside the two-byte UTF-8 encoding of the e-acute.
	cut := strings.Index(line, "é") + 1

	msg := feedAll(t, []string{line[:cut], line[cut:]}, nil)
	if msg == nil {
		t.Fatal("expected a message")
	}
	if msg.Content != "café über" {
		t.Errorf("content = %q, want %q", msg.Content, "café über")
	}
}

func TestDemuxUnterminatedFinalLine(t *testing.T) {
	msg := feedAll(t, []string{
		contentLine("first"),
		`data: {"type":"content","content":" last"}`, // no trailing newline
	}, nil)

	if msg == nil {
		t.Fatal("expected a message")
	}
	if msg.Content != "first last" {
		t.Errorf("content = %q, want %q", msg.Content, "first last")
	}
}

func TestDemuxWhitespaceOnlyYieldsNoMessage(t *testing.T) {
	msg := feedAll(t, []string{
		contentLine(" "),
		contentLine("\\n"),
	}, nil)

	if msg != nil {
		t.Fatalf("expected no message, got %+v", msg)
	}
}

func TestDemuxEmptyStreamYieldsNoMessage(t *testing.T) {
	if msg := feedAll(t, nil, nil); msg != nil {
		t.Fatalf("expected no message, got %+v", msg)
	}
}

func TestDemuxIncrementalUpdatesPublishFullValue(t *testing.T) {
	var updates []string
	feedAll(t, []string{
		contentLine("a"),
		contentLine("<think>"),
		contentLine("hidden"),
		contentLine("</think>"),
		contentLine("b"),
		contentLine("c"),
	}, func(full string) {
		updates = append(updates, full)
	})

	want := []string{"a", "ab", "abc"}
	if len(updates) != len(want) {
		t.Fatalf("got %d updates %v, want %d", len(updates), updates, len(want))
	}
	for i := range want {
		if updates[i] != want[i] {
			t.Errorf("update[%d] = %q, want %q", i, updates[i], want[i])
		}
	}
}

func TestDemuxDeterministic(t *testing.T) {
	chunks := []string{
		contentLine("one "),
		"data: {bad\n" + contentLine("two"),
		contentLine("<think>") + contentLine("x"),
		contentLine("</think>"),
		contentLine(" three"),
	}

	a := feedAll(t, chunks, nil)
	b := feedAll(t, chunks, nil)

	if a == nil || b == nil {
		t.Fatal("expected messages from both instances")
	}
	if a.Content != b.Content || a.Thinking != b.Thinking || a.Role != b.Role {
		t.Errorf("instances disagree: %+v vs %+v", a, b)
	}
}

func TestDemuxMarkerEventConsumedWhole(t *testing.T) {
	// An event carrying a marker plus trailing text is consumed by the
	// state transition; the trailing text is dropped.
	msg := feedAll(t, []string{
		`data: {"type":"content","content":"<think>planning"}` + "\n",
		contentLine("inside"),
		`data: {"type":"content","content":"</think>after"}` + "\n",
		contentLine("visible"),
	}, nil)

	if msg == nil {
		t.Fatal("expected a message")
	}
	if msg.Content != "visible" {
		t.Errorf("content = %q, want %q", msg.Content, "visible")
	}
	if msg.Thinking != "inside" {
		t.Errorf("thinking = %q, want %q", msg.Thinking, "inside")
	}
}

func TestDemuxLatencySet(t *testing.T) {
	d := newDemux(nil, testLogger())
	d.Feed([]byte(contentLine("hi")))

	msg := d.Finalize(time.Now().Add(-50 * time.Millisecond))
	if msg == nil {
		t.Fatal("expected a message")
	}
	if msg.Latency < 50*time.Millisecond {
		t.Errorf("latency = %v, want >= 50ms", msg.Latency)
	}
}
