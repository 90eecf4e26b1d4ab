package genclient

import (
	"testing"
)

func TestParserSingleChunk(t *testing.T) {
	p := &Parser{}
	events := p.Feed([]byte("event: progress\ndata: {\"step\":\"analyzing\"}\n\n"))
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Name != "progress" {
		t.Fatalf("expected progress, got %q", events[0].Name)
	}
	if events[0].Data != `{"step":"analyzing"}` {
		t.Fatalf("unexpected data: %q", events[0].Data)
	}
}

func TestParserSplitAcrossChunks(t *testing.T) {
	p := &Parser{}
	frame := "event: progress\ndata: {\"step\":\"generating\",\"image\":2,\"total\":4}\n\n"

	// Deliver the frame a few bytes at a time; only the final chunk may
	// surface the event.
	var events []Event
	for i := 0; i < len(frame); i += 7 {
		end := i + 7
		if end > len(frame) {
			end = len(frame)
		}
		events = append(events, p.Feed([]byte(frame[i:end]))...)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Name != "progress" {
		t.Fatalf("expected progress, got %q", events[0].Name)
	}
}

func TestParserMultipleEventsOneChunk(t *testing.T) {
	p := &Parser{}
	chunk := "event: progress\ndata: {\"image\":1}\n\nevent: progress\ndata: {\"image\":2}\n\n"
	events := p.Feed([]byte(chunk))
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Data != `{"image":1}` || events[1].Data != `{"image":2}` {
		t.Fatalf("unexpected payloads: %+v", events)
	}
}

func TestParserTerminalWithTrailingPartial(t *testing.T) {
	p := &Parser{}
	chunk := "event: complete\ndata: {\"images\":[]}\n\nevent: prog"
	events := p.Feed([]byte(chunk))
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Name != "complete" {
		t.Fatalf("expected complete, got %q", events[0].Name)
	}
	// The partial trailer stays buffered and completes on the next feed.
	events = p.Feed([]byte("ress\ndata: {\"image\":3}\n\n"))
	if len(events) != 1 || events[0].Name != "progress" {
		t.Fatalf("expected buffered progress event, got %+v", events)
	}
}

func TestParserIgnoresUnknownLines(t *testing.T) {
	p := &Parser{}
	events := p.Feed([]byte(": keepalive\nretry: 500\nevent: error\ndata: {\"error\":\"nope\"}\n\n"))
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Name != "error" {
		t.Fatalf("expected error event, got %q", events[0].Name)
	}
}
