package session

import (
	"fmt"
	"sync"
	"time"
)

// CreationStep is the closed set of creation wizard states.
type CreationStep string

const (
	StepStarted        CreationStep = "STARTED"
	StepNameChosen     CreationStep = "NAME_CHOSEN"
	StepTemplateChosen CreationStep = "TEMPLATE_OR_SEED_CHOSEN"
	StepConfirmed      CreationStep = "CONFIRMED"
	StepCancelled      CreationStep = "CANCELLED"
)

// CreationSession tracks one player's progress through the world creation
// wizard. It has no automatic expiry; the consumer tears it down on
// disconnect or cancel.
type CreationSession struct {
	Player     string
	Step       CreationStep
	WorldName  string
	Template   string
	Seed       string
	DialogMode bool
	StartedAt  time.Time
}

// InvalidTransitionError reports a wizard call that is not legal from the
// session's current step.
type InvalidTransitionError struct {
	From CreationStep
	To   CreationStep
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid creation wizard transition: %s -> %s", e.From, e.To)
}

// CreationRegistry holds in-progress creation wizard sessions keyed by player.
type CreationRegistry struct {
	mu       sync.Mutex
	sessions map[string]*CreationSession
}

// NewCreationRegistry creates an empty registry.
func NewCreationRegistry() *CreationRegistry {
	return &CreationRegistry{sessions: make(map[string]*CreationSession)}
}

// Start creates a fresh session for the player, replacing any existing one.
func (r *CreationRegistry) Start(player string) *CreationSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := &CreationSession{Player: player, Step: StepStarted, StartedAt: time.Now()}
	r.sessions[player] = s
	return s
}

// Get returns the player's session without mutating it.
func (r *CreationRegistry) Get(player string) (*CreationSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[player]
	return s, ok
}

// End removes the player's session.
func (r *CreationRegistry) End(player string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, player)
}

// ChooseName advances STARTED -> NAME_CHOSEN.
func (r *CreationRegistry) ChooseName(player, name string) error {
	return r.advance(player, StepStarted, StepNameChosen, func(s *CreationSession) {
		s.WorldName = name
	})
}

// ChooseTemplate advances NAME_CHOSEN -> TEMPLATE_OR_SEED_CHOSEN with a template.
func (r *CreationRegistry) ChooseTemplate(player, template string) error {
	return r.advance(player, StepNameChosen, StepTemplateChosen, func(s *CreationSession) {
		s.Template = template
	})
}

// ChooseSeed advances NAME_CHOSEN -> TEMPLATE_OR_SEED_CHOSEN with a seed.
func (r *CreationRegistry) ChooseSeed(player, seed string) error {
	return r.advance(player, StepNameChosen, StepTemplateChosen, func(s *CreationSession) {
		s.Seed = seed
	})
}

// Confirm advances TEMPLATE_OR_SEED_CHOSEN -> CONFIRMED. The session stays
// in the registry so the consumer can read the confirmed parameters; it is
// removed by End once the world has been created.
func (r *CreationRegistry) Confirm(player string) error {
	return r.advance(player, StepTemplateChosen, StepConfirmed, nil)
}

// Cancel marks the session cancelled from any non-terminal step and removes it.
func (r *CreationRegistry) Cancel(player string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[player]
	if !ok {
		return ErrNoSession
	}
	if s.Step == StepConfirmed || s.Step == StepCancelled {
		return &InvalidTransitionError{From: s.Step, To: StepCancelled}
	}
	s.Step = StepCancelled
	delete(r.sessions, player)
	return nil
}

func (r *CreationRegistry) advance(player string, from, to CreationStep, apply func(*CreationSession)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[player]
	if !ok {
		return ErrNoSession
	}
	if s.Step != from {
		return &InvalidTransitionError{From: s.Step, To: to}
	}
	if apply != nil {
		apply(s)
	}
	s.Step = to
	return nil
}
