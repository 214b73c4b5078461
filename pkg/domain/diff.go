package domain

// SessionDiff represents the changes between two snapshots of a session.
// It is designed to be serialized to JSON for partial updates on the client.
type SessionDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	Phase      *Phase  `json:"phase,omitempty"`
	Generation *string `json:"generation,omitempty"`
	Mode       *Mode   `json:"mode,omitempty"`
	Intention  *string `json:"intention,omitempty"`

	// Tosses carries the tosses appended since the old snapshot. When the
	// flow was restarted the whole list is sent with Reset set.
	Tosses *TossDelta `json:"tosses,omitempty"`

	// Reading is sent once, when the cast completes.
	Reading *Reading `json:"reading,omitempty"`

	Interpretation *string `json:"interpretation,omitempty"`
	HistoryID      *string `json:"history_id,omitempty"`
	LastError      *string `json:"last_error,omitempty"`
}

// TossDelta represents changes to the toss list.
type TossDelta struct {
	Appended []Toss `json:"appended"`
	Reset    bool   `json:"reset,omitempty"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, it returns a diff representing the entire newState (initial load).
// It returns nil when nothing changed.
func Diff(oldState, newState *SessionState) *SessionDiff {
	if newState == nil {
		return nil
	}
	if oldState == nil {
		oldState = &SessionState{}
	}

	diff := &SessionDiff{SessionID: newState.ID}

	if oldState.Phase != newState.Phase {
		diff.Phase = &newState.Phase
	}
	if oldState.Generation != newState.Generation {
		diff.Generation = &newState.Generation
	}
	if oldState.Mode != newState.Mode {
		diff.Mode = &newState.Mode
	}
	diff.Intention = diffString(oldState.Intention, newState.Intention)
	diff.Interpretation = diffString(oldState.Interpretation, newState.Interpretation)
	diff.HistoryID = diffString(oldState.HistoryID, newState.HistoryID)
	diff.LastError = diffString(oldState.LastError, newState.LastError)
	diff.Tosses = diffTosses(oldState, newState)

	if newState.Reading != nil && (oldState.Reading == nil || oldState.Generation != newState.Generation) {
		diff.Reading = newState.Reading
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffString(old, new string) *string {
	if old == new {
		return nil
	}
	return &new
}

// diffTosses assumes append-only tosses within one generation.
func diffTosses(old, new *SessionState) *TossDelta {
	sameFlow := old.Generation == new.Generation
	if sameFlow && len(new.Tosses) == len(old.Tosses) {
		return nil
	}
	if sameFlow && len(new.Tosses) > len(old.Tosses) {
		return &TossDelta{Appended: new.Tosses[len(old.Tosses):]}
	}
	if len(old.Tosses) == 0 && len(new.Tosses) == 0 {
		return nil
	}
	return &TossDelta{Appended: new.Tosses, Reset: true}
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SessionDiff) IsEmpty() bool {
	return d.Phase == nil &&
		d.Generation == nil &&
		d.Mode == nil &&
		d.Intention == nil &&
		d.Tosses == nil &&
		d.Reading == nil &&
		d.Interpretation == nil &&
		d.HistoryID == nil &&
		d.LastError == nil
}
