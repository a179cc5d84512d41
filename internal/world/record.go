package world

import (
	"strings"
	"time"
)

// PublishLevel is the visibility/access tier of a world.
type PublishLevel string

const (
	PublishPrivate PublishLevel = "PRIVATE"
	PublishFriend  PublishLevel = "FRIEND"
	PublishPublic  PublishLevel = "PUBLIC"
	PublishLocked  PublishLevel = "LOCKED"
)

// ParsePublishLevel normalizes a stored publish level string. Unknown
// values fall back to PRIVATE so a corrupted record never widens access.
func ParsePublishLevel(s string) PublishLevel {
	switch PublishLevel(strings.ToUpper(strings.TrimSpace(s))) {
	case PublishFriend:
		return PublishFriend
	case PublishPublic:
		return PublishPublic
	case PublishLocked:
		return PublishLocked
	default:
		return PublishPrivate
	}
}

// Location is a point within a world's storage.
type Location struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

// RecentVisitorDays is the length of the rolling per-day visitor window.
const RecentVisitorDays = 7

// ExpirationLayout is the on-disk format of Record.ExpirationDate.
const ExpirationLayout = "2006-01-02"

// DirPrefix prefixes the storage directory of every world without a
// custom directory name override.
const DirPrefix = "world."

// Record is the durable description of one player-owned world. The
// terrain/chunk storage itself lives elsewhere; this is metadata only.
type Record struct {
	UUID            string       `yaml:"uuid"`
	Name            string       `yaml:"name"`
	Description     string       `yaml:"description,omitempty"`
	Icon            string       `yaml:"icon,omitempty"`
	TemplateID      string       `yaml:"template_id,omitempty"`
	ExpirationDate  string       `yaml:"expiration_date,omitempty"` // yyyy-MM-dd
	Owner           string       `yaml:"owner"`
	Members         []string     `yaml:"members,omitempty"`
	Moderators      []string     `yaml:"moderators,omitempty"`
	PublishLevel    PublishLevel `yaml:"publish_level"`
	GuestSpawn      *Location    `yaml:"guest_spawn,omitempty"`
	MemberSpawn     *Location    `yaml:"member_spawn,omitempty"`
	BorderCenter    *Location    `yaml:"border_center,omitempty"`
	BorderExpansion int          `yaml:"border_expansion"`
	Archived        bool         `yaml:"archived"`
	PointCost       int          `yaml:"point_cost"`
	CreatedAt       time.Time    `yaml:"created_at"`
	RecentVisitors  []int        `yaml:"recent_visitors,omitempty"` // rolling, index 0 = today
	FavoriteCount   int          `yaml:"favorite_count"`
	Tags            []string     `yaml:"tags,omitempty"`
	CustomWorldName string       `yaml:"custom_world_name,omitempty"`
}

// DirectoryName returns the effective storage directory name:
// the custom override if set, otherwise "world.<uuid>".
func (r *Record) DirectoryName() string {
	if r.CustomWorldName != "" {
		return r.CustomWorldName
	}
	return DirPrefix + r.UUID
}

// IsManagedDirectory reports whether a storage directory name follows
// the managed naming convention and therefore must resolve to a record.
func IsManagedDirectory(name string) bool {
	return strings.HasPrefix(name, DirPrefix)
}

// IsMember reports whether the player has member-level access
// (owner and moderators supersede plain membership).
func (r *Record) IsMember(playerID string) bool {
	if playerID == r.Owner || r.IsModerator(playerID) {
		return true
	}
	return contains(r.Members, playerID)
}

// IsModerator reports whether the player is a moderator or the owner.
func (r *Record) IsModerator(playerID string) bool {
	return playerID == r.Owner || contains(r.Moderators, playerID)
}

// AddMember adds a player to the member list. The owner is never listed
// as a member, and promoting to moderator removes plain membership.
func (r *Record) AddMember(playerID string) {
	if playerID == r.Owner || contains(r.Members, playerID) || contains(r.Moderators, playerID) {
		return
	}
	r.Members = append(r.Members, playerID)
}

// RemoveMember removes a player from both the member and moderator lists.
func (r *Record) RemoveMember(playerID string) {
	r.Members = remove(r.Members, playerID)
	r.Moderators = remove(r.Moderators, playerID)
}

// AddModerator grants moderator access, dropping any plain membership entry.
func (r *Record) AddModerator(playerID string) {
	if playerID == r.Owner || contains(r.Moderators, playerID) {
		return
	}
	r.Members = remove(r.Members, playerID)
	r.Moderators = append(r.Moderators, playerID)
}

// DemoteModerator moves a moderator back to plain membership.
func (r *Record) DemoteModerator(playerID string) {
	if !contains(r.Moderators, playerID) {
		return
	}
	r.Moderators = remove(r.Moderators, playerID)
	r.AddMember(playerID)
}

// IsExpired reports whether the record's expiration date has passed.
// Records without an expiration date never expire.
func (r *Record) IsExpired(now time.Time) bool {
	if r.ExpirationDate == "" {
		return false
	}
	exp, err := time.Parse(ExpirationLayout, r.ExpirationDate)
	if err != nil {
		return false
	}
	// A world expires at the end of its expiration day.
	return now.After(exp.AddDate(0, 0, 1))
}

// RecordVisit increments today's visitor counter.
func (r *Record) RecordVisit() {
	r.ensureVisitorWindow()
	r.RecentVisitors[0]++
}

// RollDay shifts the visitor window by one day, discarding the oldest bucket.
func (r *Record) RollDay() {
	r.ensureVisitorWindow()
	copy(r.RecentVisitors[1:], r.RecentVisitors[:RecentVisitorDays-1])
	r.RecentVisitors[0] = 0
}

// RecentVisitorTotal sums the rolling visitor window.
func (r *Record) RecentVisitorTotal() int {
	total := 0
	for _, n := range r.RecentVisitors {
		total += n
	}
	return total
}

func (r *Record) ensureVisitorWindow() {
	if len(r.RecentVisitors) != RecentVisitorDays {
		window := make([]int, RecentVisitorDays)
		copy(window, r.RecentVisitors)
		r.RecentVisitors = window
	}
}

func contains(list []string, v string) bool {
	for _, e := range list {
		if e == v {
			return true
		}
	}
	return false
}

func remove(list []string, v string) []string {
	out := list[:0]
	for _, e := range list {
		if e != v {
			out = append(out, e)
		}
	}
	return out
}
