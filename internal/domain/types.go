package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"

	CoverOpened = "Opened"
	CoverClosed = "Closed"

	RoleAdmin = "admin"
)

type User struct {
	ID         int64  `json:"id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Password   string `json:"password,omitempty"`
	Role       string `json:"role"`
	DateJoined string `json:"date_joined,omitempty"`
}

// WasteRecord is one piece of waste picked up by a bot and dropped in a bin.
type WasteRecord struct {
	ID            int64  `json:"id"`
	WasteType     string `json:"waste_type"`
	TimeCollected string `json:"time_collected"`
	SmartBin      Ref    `json:"smartbin"`
	WasteBot      Ref    `json:"wastebot"`
}

type SmartBin struct {
	ID       int64   `json:"id"`
	Status   string  `json:"status"`
	Cover    string  `json:"cover"`
	Location string  `json:"location"`
	Capacity float64 `json:"capacity"`
}

// ToggledCover returns the cover state a click on the cover badge requests.
func (b SmartBin) ToggledCover() string {
	if b.Cover == CoverClosed {
		return CoverOpened
	}
	return CoverClosed
}

type WasteBin struct {
	ID       int64   `json:"id"`
	Type     string  `json:"type"`
	Location string  `json:"location"`
	Capacity float64 `json:"capacity"`
}

type WasteBot struct {
	ID       int64  `json:"id"`
	Model    string `json:"model"`
	Status   string `json:"status"`
	Location string `json:"location"`
	Autonomy int64  `json:"autonomy"`
}

// ToggledStatus returns the power state the on/off switch requests.
func (b WasteBot) ToggledStatus() string {
	if b.Status == StatusActive {
		return StatusInactive
	}
	return StatusActive
}

// Claims are the user attributes carried by the upstream access token.
type Claims struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

func (c Claims) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

func (c Claims) IsAdmin() bool {
	return strings.EqualFold(strings.TrimSpace(c.Role), RoleAdmin)
}

type Session struct {
	ID           string
	AccessToken  string
	RefreshToken string
	Claims       Claims
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Ref is a foreign key as the API serializes it: either a number or a string
// label such as "BIN-001".
type Ref string

func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*r = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = Ref(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("ref must be a string or number: %w", err)
		}
		*r = Ref(n.String())
	}
	return nil
}

func (r Ref) String() string { return string(r) }
