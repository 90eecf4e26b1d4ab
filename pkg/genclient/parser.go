package genclient

import "strings"

// Event is one parsed server-sent event: a name and its raw data line.
type Event struct {
	Name string
	Data string
}

// Parser is an incremental SSE parser. It owns its buffering state so a
// consumer can feed it arbitrary chunk boundaries: partial lines stay in the
// buffer, and a terminal event arriving in the same chunk as trailing bytes
// is still parsed cleanly. One Parser serves one connection; allocate a
// fresh one per request.
type Parser struct {
	buffer       string
	currentEvent string
}

// Feed consumes one chunk and returns the events completed by it, in order.
func (p *Parser) Feed(chunk []byte) []Event {
	p.buffer += string(chunk)
	lines := strings.Split(p.buffer, "\n")
	p.buffer = lines[len(lines)-1]
	lines = lines[:len(lines)-1]

	var events []Event
	for _, line := range lines {
		if name, ok := strings.CutPrefix(line, "event: "); ok {
			p.currentEvent = strings.TrimSpace(name)
			continue
		}
		if data, ok := strings.CutPrefix(line, "data: "); ok {
			data = strings.TrimSpace(data)
			if data == "" {
				continue
			}
			events = append(events, Event{Name: p.currentEvent, Data: data})
		}
	}
	return events
}
