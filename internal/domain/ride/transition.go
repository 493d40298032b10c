package ride

import "time"

// Transition describes a conditional status change
type Transition struct {
	From []Status
	To   Status
	At   time.Time

	// RequireDriver, when set, additionally conditions the update on driver_id.
	RequireDriver string

	// Cancellation fields, only written when To is StatusCancelled.
	Reason      string
	CancelledBy string
}

var transitions = map[Status][]Status{
	StatusPending:  {StatusAccepted, StatusCancelled},
	StatusAccepted: {StatusOngoing, StatusCancelled},
	StatusOngoing:  {StatusCompleted},
}

// CanTransition reports whether from -> to is an edge of the lifecycle
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Sources returns every status that may move to the given one
func Sources(to Status) []Status {
	var out []Status
	for _, from := range []Status{StatusPending, StatusAccepted, StatusOngoing} {
		if CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}

// NewTransition builds the conditional update for moving into to
func NewTransition(to Status, at time.Time) Transition {
	return Transition{From: Sources(to), To: to, At: at}
}

// Apply mutates r as the store would for a successful transition.
// Used by in-memory stores and tests; callers must check From first.
func (t Transition) Apply(r *Request) {
	at := t.At
	r.Status = t.To
	r.UpdatedAt = at
	switch t.To {
	case StatusOngoing:
		r.StartedAt = &at
	case StatusCompleted:
		r.CompletedAt = &at
	case StatusCancelled:
		r.CancelledAt = &at
		r.CancelReason = t.Reason
		r.CancelledBy = t.CancelledBy
	}
}

// Matches reports whether r satisfies the transition's conditions
func (t Transition) Matches(r *Request) bool {
	if t.RequireDriver != "" && !r.IsDriver(t.RequireDriver) {
		return false
	}
	for _, s := range t.From {
		if r.Status == s {
			return true
		}
	}
	return false
}
