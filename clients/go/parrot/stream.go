package parrot

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// StreamEvent is a single parsed SSE payload from the chat endpoint.
type StreamEvent struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

const (
	dataPrefix = "data: "
	thinkOpen  = "<think>"
	thinkClose = "</think>"
)

// demux converts a chunked SSE byte stream into a visible-content
// accumulator and a thinking accumulator. Chunks may split lines and
// multi-byte UTF-8 sequences at arbitrary byte offsets; incomplete
// trailing bytes are carried over between Feed calls. Since '\n' can
// never appear inside a multi-byte sequence, carrying the unterminated
// line as raw bytes handles both cases at once.
type demux struct {
	carry    []byte
	thinking bool
	content  strings.Builder
	think    strings.Builder
	onUpdate func(string)
	logger   zerolog.Logger
}

func newDemux(onUpdate func(string), logger zerolog.Logger) *demux {
	return &demux{onUpdate: onUpdate, logger: logger}
}

// Feed consumes one raw chunk. Lines are processed strictly in arrival
// order; the final unterminated line is held back until the next chunk
// or Finalize.
func (d *demux) Feed(chunk []byte) {
	buf := append(d.carry, chunk...)
	for {
		idx := bytes.IndexByte(buf, '\n')
		if idx < 0 {
			break
		}
		d.processLine(buf[:idx])
		buf = buf[idx+1:]
	}
	d.carry = append([]byte(nil), buf...)
}

// processLine parses one framed line. Anything that is not a well-formed
// "data: " line carrying a content event is discarded; a malformed line
// never aborts the stream.
func (d *demux) processLine(line []byte) {
	line = bytes.TrimSuffix(line, []byte("\r"))
	if !bytes.HasPrefix(line, []byte(dataPrefix)) {
		return
	}

	var ev StreamEvent
	if err := json.Unmarshal(line[len(dataPrefix):], &ev); err != nil {
		d.logger.Debug().Err(err).Bytes("line", line).Msg("skipping malformed SSE line")
		return
	}
	if ev.Type != "content" {
		return
	}

	// A marker event is consumed whole: trailing text on the same event
	// is dropped, matching the upstream producer's framing.
	if strings.Contains(ev.Content, thinkOpen) {
		d.thinking = true
		return
	}
	if strings.Contains(ev.Content, thinkClose) {
		d.thinking = false
		return
	}

	if d.thinking {
		d.think.WriteString(ev.Content)
		return
	}

	d.content.WriteString(ev.Content)
	if d.onUpdate != nil {
		d.onUpdate(d.content.String())
	}
}

// Finalize flushes any unterminated trailing line and produces the
// assistant message for the turn. A whitespace-only visible accumulator
// yields no message.
func (d *demux) Finalize(submittedAt time.Time) *Message {
	if len(d.carry) > 0 {
		d.processLine(d.carry)
		d.carry = nil
	}

	if strings.TrimSpace(d.content.String()) == "" {
		return nil
	}

	return &Message{
		Role:     RoleAssistant,
		Content:  d.content.String(),
		Thinking: d.think.String(),
		Latency:  time.Since(submittedAt),
	}
}
