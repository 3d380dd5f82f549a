package live

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/vbonduro/ecosort/internal/domain"
)

// Event is one dispatched server-sent event.
type Event struct {
	ID   string
	Type string
	Data string
}

const maxEventSize = 1 << 20

// readEvents parses an SSE stream and calls fn for each complete event. It
// returns nil at a clean end of stream, or the first error from the reader or
// fn.
func readEvents(r io.Reader, fn func(Event) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)

	var ev Event
	var data strings.Builder
	hasData := false

	dispatch := func() error {
		defer func() {
			ev = Event{}
			data.Reset()
			hasData = false
		}()
		if !hasData {
			return nil
		}
		if ev.Type == "" {
			ev.Type = "message"
		}
		ev.Data = data.String()
		return fn(ev)
	}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if err := dispatch(); err != nil {
				return err
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
		case "event":
			ev.Type = value
		case "id":
			ev.ID = value
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	// A stream that ends without a trailing blank line still delivers its
	// last event.
	return dispatch()
}

// decodeRecords accepts a single waste record or an array of them.
func decodeRecords(data string) ([]domain.WasteRecord, error) {
	trimmed := bytes.TrimSpace([]byte(data))
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var recs []domain.WasteRecord
		if err := json.Unmarshal(trimmed, &recs); err != nil {
			return nil, fmt.Errorf("decode waste records: %w", err)
		}
		return recs, nil
	}
	var rec domain.WasteRecord
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		return nil, fmt.Errorf("decode waste record: %w", err)
	}
	return []domain.WasteRecord{rec}, nil
}
