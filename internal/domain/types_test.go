package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWasteRecordDecodesNumericAndStringRefs(t *testing.T) {
	var recs []WasteRecord
	err := json.Unmarshal([]byte(`[
		{"id": 1, "waste_type": "plastic", "time_collected": "2024-03-01T10:30:00Z", "smartbin": 3, "wastebot": "BOT-001"},
		{"id": 2, "waste_type": "paper", "smartbin": null, "wastebot": 7}
	]`), &recs)
	require.NoError(t, err)

	assert.Equal(t, Ref("3"), recs[0].SmartBin)
	assert.Equal(t, Ref("BOT-001"), recs[0].WasteBot)
	assert.Equal(t, Ref(""), recs[1].SmartBin)
	assert.Equal(t, "7", recs[1].WasteBot.String())
}

func TestRefRejectsObjects(t *testing.T) {
	var r Ref
	assert.Error(t, json.Unmarshal([]byte(`{"id": 1}`), &r))
}

func TestToggles(t *testing.T) {
	assert.Equal(t, CoverOpened, SmartBin{Cover: CoverClosed}.ToggledCover())
	assert.Equal(t, CoverClosed, SmartBin{Cover: CoverOpened}.ToggledCover())
	assert.Equal(t, StatusInactive, WasteBot{Status: StatusActive}.ToggledStatus())
	assert.Equal(t, StatusActive, WasteBot{Status: StatusInactive}.ToggledStatus())
	assert.Equal(t, StatusActive, WasteBot{}.ToggledStatus())
}

func TestClaims(t *testing.T) {
	c := Claims{FirstName: "Ada", LastName: "Lovelace", Role: "Admin"}
	assert.Equal(t, "Ada Lovelace", c.FullName())
	assert.True(t, c.IsAdmin())
	assert.False(t, Claims{Role: "Agent"}.IsAdmin())
}

func TestSessionExpired(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s := &Session{ExpiresAt: now.Add(time.Minute)}
	assert.False(t, s.Expired(now))
	assert.True(t, s.Expired(now.Add(time.Minute)))
}
