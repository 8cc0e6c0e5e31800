package orchestrator

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rosterlab/rosterlab/internal/client"
)

var (
	ErrSlotRange  = errors.New("slot out of range")
	ErrEmptySlot  = errors.New("slot is empty")
	ErrLeaderSlot = errors.New("the leader slot locks with its occupant")
	ErrDuplicate  = errors.New("candidate is already on the roster")
	ErrNoLeader   = errors.New("leader mode needs a candidate in the leader slot")
)

// Kind classifies a failed round for user messaging.
type Kind int

const (
	KindGeneric Kind = iota
	KindRateLimited
)

// UserError is what a failed fill or repair surfaces. Its message never
// carries upstream detail; Err keeps it for logs.
type UserError struct {
	Kind       Kind
	RetryAfter time.Duration
	Err        error
}

func (e *UserError) Error() string {
	if e.Kind == KindRateLimited {
		if e.RetryAfter > 0 {
			return fmt.Sprintf("Too many requests. Wait %d seconds and try again.", int(math.Ceil(e.RetryAfter.Seconds())))
		}
		return "Too many requests. Wait a moment and try again."
	}
	return "Could not generate a team. Please try again."
}

func (e *UserError) Unwrap() error { return e.Err }

// classify turns a round failure into a UserError. Server rate limits and
// upstream quota exhaustion are both 429s.
func classify(err error) *UserError {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Throttled() {
		return &UserError{Kind: KindRateLimited, RetryAfter: apiErr.RetryAfter, Err: err}
	}
	return &UserError{Kind: KindGeneric, Err: err}
}
