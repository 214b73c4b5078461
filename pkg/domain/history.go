package domain

import (
	"fmt"
	"time"
)

// Accepted lengths of HistoryRecord.Tosses: one value per coin (3x6), or
// with one extra coin per line (3x7).
const (
	HistoryCoinsPerCoin  = 18
	HistoryCoinsExtended = 21
)

// HistoryRecord is the payload of the history write of a completed session.
type HistoryRecord struct {
	UserID         string `json:"user_id"`
	Intention      string `json:"intention"`
	Tosses         []int  `json:"tosses"`
	Hexagram       int    `json:"hexagram"`
	Mode           Mode   `json:"mode"`
	Interpretation string `json:"interpretation"`
}

// Validate checks the record the way the history endpoint does.
func (r HistoryRecord) Validate() error {
	if r.UserID == "" {
		return ErrUnauthenticated
	}
	if n := len(r.Tosses); n != HistoryCoinsPerCoin && n != HistoryCoinsExtended {
		return NewInvalidInput("tosses", n, fmt.Sprintf("expected %d or %d coin values", HistoryCoinsPerCoin, HistoryCoinsExtended))
	}
	for i, v := range r.Tosses {
		if !CoinDraw(v).Valid() {
			return NewInvalidInput(fmt.Sprintf("tosses[%d]", i), v, "coin value must be 2 or 3")
		}
	}
	if r.Hexagram < 1 || r.Hexagram > 64 {
		return NewInvalidInput("hexagram", r.Hexagram, "must be between 1 and 64")
	}
	if !r.Mode.Valid() {
		return NewInvalidInput("mode", r.Mode, "must be manual or automatic")
	}
	return nil
}

// HistoryEntry is a stored HistoryRecord.
type HistoryEntry struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	HistoryRecord
}
