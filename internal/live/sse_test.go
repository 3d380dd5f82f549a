package live

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, stream string) []Event {
	t.Helper()
	var events []Event
	err := readEvents(strings.NewReader(stream), func(ev Event) error {
		events = append(events, ev)
		return nil
	})
	require.NoError(t, err)
	return events
}

func TestReadEvents(t *testing.T) {
	stream := ": keep-alive\n\n" +
		"id: 1\ndata: {\"id\": 1}\n\n" +
		"event: waste\ndata: {\"id\":\ndata:  2}\n\n" +
		"event: ping\n\n" +
		"data: tail"

	events := collect(t, stream)

	require.Len(t, events, 3)
	assert.Equal(t, Event{ID: "1", Type: "message", Data: `{"id": 1}`}, events[0])
	assert.Equal(t, Event{Type: "waste", Data: "{\"id\":\n 2}"}, events[1])
	assert.Equal(t, Event{Type: "message", Data: "tail"}, events[2])
}

func TestReadEventsCallbackError(t *testing.T) {
	boom := errors.New("boom")
	err := readEvents(strings.NewReader("data: a\n\ndata: b\n\n"), func(Event) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestDecodeRecords(t *testing.T) {
	one, err := decodeRecords(`{"id": 3, "waste_type": "glass", "smartbin": 1, "wastebot": 2}`)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "glass", one[0].WasteType)

	many, err := decodeRecords(`[{"id": 4}, {"id": 5}]`)
	require.NoError(t, err)
	assert.Len(t, many, 2)

	none, err := decodeRecords("   ")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = decodeRecords("not json")
	assert.Error(t, err)
}
