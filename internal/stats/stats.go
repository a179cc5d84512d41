package stats

import (
	"strings"
	"time"

	"golang.org/x/text/language"
)

// MeetStatus is the closed set of meet-availability states.
type MeetStatus string

const (
	MeetAvailable MeetStatus = "AVAILABLE"
	MeetBusy      MeetStatus = "BUSY"
	MeetHidden    MeetStatus = "HIDDEN"
)

// ParseMeetStatus normalizes a stored meet status. Unknown values fall back
// to AVAILABLE.
func ParseMeetStatus(s string) MeetStatus {
	switch MeetStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case MeetBusy:
		return MeetBusy
	case MeetHidden:
		return MeetHidden
	default:
		return MeetAvailable
	}
}

// Stats is the durable per-player record: economy balance, world slots,
// world references, and preferences.
type Stats struct {
	UUID             string            `yaml:"uuid"`
	Points           int               `yaml:"points"`
	WorldSlots       int               `yaml:"world_slots"`
	RegisteredWorlds []string          `yaml:"registered_worlds,omitempty"`
	Favorites        map[string]string `yaml:"favorites,omitempty"` // world UUID -> date favorited
	DisplayOrder     []string          `yaml:"display_order,omitempty"`
	LastOnline       time.Time         `yaml:"last_online,omitempty"`
	LastKnownName    string            `yaml:"last_known_name,omitempty"`
	Language         string            `yaml:"language,omitempty"`
	Notifications    bool              `yaml:"notifications"`
	CriticalAlerts   bool              `yaml:"critical_alerts"`
	MeetStatus       MeetStatus        `yaml:"meet_status"`
	BetaFeatures     bool              `yaml:"beta_features"`
}

// RegisterWorld appends a world to the registered list and display order.
func (s *Stats) RegisterWorld(worldID string) {
	for _, id := range s.RegisteredWorlds {
		if id == worldID {
			return
		}
	}
	s.RegisteredWorlds = append(s.RegisteredWorlds, worldID)
	s.DisplayOrder = append(s.DisplayOrder, worldID)
}

// UnregisterWorld removes a world from every reference collection.
func (s *Stats) UnregisterWorld(worldID string) {
	s.RegisteredWorlds = removeString(s.RegisteredWorlds, worldID)
	s.DisplayOrder = removeString(s.DisplayOrder, worldID)
	delete(s.Favorites, worldID)
}

// NormalizeLanguage validates a language preference as a BCP 47 tag and
// returns its canonical form, or the fallback when the tag does not parse.
func NormalizeLanguage(tag, fallback string) string {
	parsed, err := language.Parse(tag)
	if err != nil {
		return fallback
	}
	return parsed.String()
}

func removeString(list []string, v string) []string {
	out := list[:0]
	for _, e := range list {
		if e != v {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
