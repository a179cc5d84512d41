// Package session holds the ephemeral, non-persisted state of multi-step
// interactive flows, keyed by player identity. Registries are safe for
// concurrent use from independent event callbacks; each uses one coarse
// lock, which is plenty at server-population scale.
package session

import (
	"errors"
	"sync"
	"time"
)

// ErrNoSession is returned when a flow operation targets a player with no
// active session.
var ErrNoSession = errors.New("no active session")

// registry is the shared concurrent map pattern under every typed registry.
type registry[T any] struct {
	mu       sync.Mutex
	sessions map[string]*T
}

func newRegistry[T any]() registry[T] {
	return registry[T]{sessions: make(map[string]*T)}
}

func (r *registry[T]) put(key string, s *T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[key] = s
}

func (r *registry[T]) get(key string) (*T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[key]
	return s, ok
}

func (r *registry[T]) remove(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, key)
}

// Invite is a pending world invitation, keyed by the invitee.
type Invite struct {
	World     string // destination world UUID
	ExpiresAt time.Time
}

// InviteRegistry holds pending invites with a read-time expiry check:
// an expired entry is removed by the access that observes it and reported
// as absent. Expired-but-never-read entries linger until accessed, an
// accepted bound since volume tracks concurrently-online players.
type InviteRegistry struct {
	reg registry[Invite]
	ttl time.Duration
	now func() time.Time
}

// NewInviteRegistry creates a registry whose invites live for ttl.
func NewInviteRegistry(ttl time.Duration) *InviteRegistry {
	return &InviteRegistry{reg: newRegistry[Invite](), ttl: ttl, now: time.Now}
}

// Invite records an invitation for the invitee, replacing any pending one.
func (r *InviteRegistry) Invite(invitee, worldID string) *Invite {
	inv := &Invite{World: worldID, ExpiresAt: r.now().Add(r.ttl)}
	r.reg.put(invitee, inv)
	return inv
}

// Get returns the invitee's pending invite. An entry past its deadline is
// removed as a side effect and reported as absent.
func (r *InviteRegistry) Get(invitee string) (*Invite, bool) {
	inv, ok := r.reg.get(invitee)
	if !ok {
		return nil, false
	}
	if r.now().After(inv.ExpiresAt) {
		r.reg.remove(invitee)
		return nil, false
	}
	return inv, true
}

// End removes the invitee's pending invite.
func (r *InviteRegistry) End(invitee string) { r.reg.remove(invitee) }

// MeetRequest is a pending meet request, keyed by the target player.
type MeetRequest struct {
	Requester string
	ExpiresAt time.Time
}

// MeetRegistry holds pending meet requests with the same read-time expiry
// contract as invites.
type MeetRegistry struct {
	reg registry[MeetRequest]
	ttl time.Duration
	now func() time.Time
}

// NewMeetRegistry creates a registry whose requests live for ttl.
func NewMeetRegistry(ttl time.Duration) *MeetRegistry {
	return &MeetRegistry{reg: newRegistry[MeetRequest](), ttl: ttl, now: time.Now}
}

// Request records a meet request against the target, replacing any pending one.
func (r *MeetRegistry) Request(target, requester string) *MeetRequest {
	req := &MeetRequest{Requester: requester, ExpiresAt: r.now().Add(r.ttl)}
	r.reg.put(target, req)
	return req
}

// Get returns the target's pending request, removing it if expired.
func (r *MeetRegistry) Get(target string) (*MeetRequest, bool) {
	req, ok := r.reg.get(target)
	if !ok {
		return nil, false
	}
	if r.now().After(req.ExpiresAt) {
		r.reg.remove(target)
		return nil, false
	}
	return req, true
}

// End removes the target's pending request.
func (r *MeetRegistry) End(target string) { r.reg.remove(target) }

// SettingsSession tracks a player's position in the world settings flow.
type SettingsSession struct {
	World         string // world UUID being edited
	Transitioning bool
}

// DiscoverySession tracks a player's position in the world discovery flow.
type DiscoverySession struct {
	Sort          string
	Tag           string
	Page          int
	Transitioning bool
}

// FavoriteSession tracks a player's position in the favorites flow.
type FavoriteSession struct {
	Sort string
	Page int
}

// PlayerWorldSession tracks a player's position in their own world list flow.
type PlayerWorldSession struct {
	Page          int
	Transitioning bool
}

// FlowRegistry is the shared start/get/end contract for flows without a
// deadline: settings, discovery, favorites, and the player world list.
type FlowRegistry[T any] struct {
	reg registry[T]
}

// NewFlowRegistry creates an empty registry.
func NewFlowRegistry[T any]() *FlowRegistry[T] {
	return &FlowRegistry[T]{reg: newRegistry[T]()}
}

// Start creates a fresh zero-valued session for the player, replacing any
// existing one.
func (r *FlowRegistry[T]) Start(player string) *T {
	s := new(T)
	r.reg.put(player, s)
	return s
}

// Get returns the player's session without mutating it.
func (r *FlowRegistry[T]) Get(player string) (*T, bool) { return r.reg.get(player) }

// End removes the player's session.
func (r *FlowRegistry[T]) End(player string) { r.reg.remove(player) }

// Hub bundles every registry so consumers receive one dependency and
// disconnect teardown has a single entry point.
type Hub struct {
	Creation     *CreationRegistry
	Invites      *InviteRegistry
	Meets        *MeetRegistry
	Settings     *FlowRegistry[SettingsSession]
	Discovery    *FlowRegistry[DiscoverySession]
	Favorites    *FlowRegistry[FavoriteSession]
	PlayerWorlds *FlowRegistry[PlayerWorldSession]
}

// NewHub creates all registries with the given deadline-flow TTLs.
func NewHub(inviteTTL, meetTTL time.Duration) *Hub {
	return &Hub{
		Creation:     NewCreationRegistry(),
		Invites:      NewInviteRegistry(inviteTTL),
		Meets:        NewMeetRegistry(meetTTL),
		Settings:     NewFlowRegistry[SettingsSession](),
		Discovery:    NewFlowRegistry[DiscoverySession](),
		Favorites:    NewFlowRegistry[FavoriteSession](),
		PlayerWorlds: NewFlowRegistry[PlayerWorldSession](),
	}
}

// DropPlayer tears down every session the player holds. Called by the
// disconnect listener.
func (h *Hub) DropPlayer(player string) {
	h.Creation.End(player)
	h.Invites.End(player)
	h.Meets.End(player)
	h.Settings.End(player)
	h.Discovery.End(player)
	h.Favorites.End(player)
	h.PlayerWorlds.End(player)
}
