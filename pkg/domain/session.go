package domain

import (
	"slices"
	"time"
)

// Phase is the position of a session in the orchestration machine.
type Phase string

const (
	PhaseIdle                  Phase = "idle"
	PhaseCasting               Phase = "casting"
	PhaseCastingComplete       Phase = "casting_complete"
	PhaseInterpretationPending Phase = "interpretation_pending"
	PhaseInterpretationReady   Phase = "interpretation_ready"
	PhasePersisted             Phase = "persisted"
)

// Phases lists every phase in flow order.
var Phases = []Phase{
	PhaseIdle,
	PhaseCasting,
	PhaseCastingComplete,
	PhaseInterpretationPending,
	PhaseInterpretationReady,
	PhasePersisted,
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	return slices.Contains(Phases, p)
}

// Mode records how the coins were obtained.
type Mode string

const (
	ModeAutomatic Mode = "automatic"
	ModeManual    Mode = "manual"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeAutomatic || m == ModeManual
}

// Effect names one of the two guarded side effects.
type Effect string

const (
	EffectInterpretation Effect = "interpretation"
	EffectPersistence    Effect = "persistence"
)

// Caller is the identity on whose behalf a session runs.
// Authentication itself happens outside the engine.
type Caller struct {
	UserID string `json:"user_id,omitempty"`
}

// Authenticated reports whether the caller carries an identity.
func (c Caller) Authenticated() bool {
	return c.UserID != ""
}

// SessionState is a serializable snapshot of a session.
type SessionState struct {
	ID string `json:"id"`

	// Generation changes on every start and reset. Results issued under an
	// older generation are discarded.
	Generation string `json:"generation"`

	Phase     Phase  `json:"phase"`
	Mode      Mode   `json:"mode,omitempty"`
	Intention string `json:"intention,omitempty"`
	Locale    string `json:"locale,omitempty"`
	Tosses    []Toss `json:"tosses,omitempty"`

	Reading        *Reading `json:"reading,omitempty"`
	Interpretation string   `json:"interpretation,omitempty"`
	HistoryID      string   `json:"history_id,omitempty"`

	InterpretationRequested bool `json:"interpretation_requested"`
	HistoryPersisted        bool `json:"history_persisted"`

	// LastError holds the message of the last collaborator failure, if any.
	LastError string `json:"last_error,omitempty"`

	// Sealed carries an opaque encrypted copy of the snapshot (see persistence middleware).
	Sealed string `json:"sealed,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSessionState creates a clean idle snapshot.
func NewSessionState(id string) *SessionState {
	now := time.Now().UTC()
	return &SessionState{
		ID:        id,
		Phase:     PhaseIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy of the snapshot.
func (s *SessionState) Clone() *SessionState {
	if s == nil {
		return nil
	}
	out := *s
	if s.Tosses != nil {
		out.Tosses = append([]Toss(nil), s.Tosses...)
	}
	if s.Reading != nil {
		r := *s.Reading
		if s.Reading.Resulting != nil {
			h := *s.Reading.Resulting
			r.Resulting = &h
		}
		out.Reading = &r
	}
	return &out
}

// Transition is an edge of the orchestration machine.
type Transition struct {
	From    Phase
	To      Phase
	Trigger string
}

// Transitions lists the edges the session machine can take. Reset leads
// every non-idle phase back to idle and is listed once per phase.
var Transitions = []Transition{
	{PhaseIdle, PhaseCasting, "start"},
	{PhaseCasting, PhaseCasting, "toss"},
	{PhaseCasting, PhaseCastingComplete, "sixth toss"},
	{PhaseCastingComplete, PhaseInterpretationPending, "interpret"},
	{PhaseInterpretationPending, PhaseInterpretationReady, "interpreted"},
	{PhaseInterpretationPending, PhaseCastingComplete, "interpreter failed"},
	{PhaseInterpretationReady, PhasePersisted, "persist"},
	{PhaseCasting, PhaseIdle, "reset"},
	{PhaseCastingComplete, PhaseIdle, "reset"},
	{PhaseInterpretationPending, PhaseIdle, "reset"},
	{PhaseInterpretationReady, PhaseIdle, "reset"},
	{PhasePersisted, PhaseIdle, "reset"},
}
