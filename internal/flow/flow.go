// Package flow implements the per-user conversation state machine that
// drives the multi-step deposit and order dialogs. State lives in a
// keyed store behind the Store interface so it survives process
// restarts when backed by Redis, and is discarded after an idle TTL.
package flow

import (
	"context"
	"errors"
	"time"
)

// Step identifies which reply a user's flow is waiting for.
type Step string

const (
	StepDepositAmount Step = "awaiting_deposit_amount"
	StepDepositTxID   Step = "awaiting_deposit_txid"
	StepOrderLink     Step = "awaiting_order_link"
	StepOrderQuantity Step = "awaiting_order_quantity"
)

// Kind identifies which terminal action a completed flow maps to.
type Kind string

const (
	KindDeposit Kind = "deposit"
	KindOrder   Kind = "order"
)

var (
	// ErrFlowActive is returned by Start when the user is already
	// mid-flow. The caller should tell the user to finish or /cancel.
	ErrFlowActive = errors.New("another flow is already active")

	// ErrNoActiveFlow is returned by Advance when there is nothing to
	// advance. Plain text outside a flow is not a flow input.
	ErrNoActiveFlow = errors.New("no active flow")
)

// ValidationError rejects a single input without resetting the flow;
// the same step is retried on the user's next message. Hint is shown
// to the user as the re-prompt.
type ValidationError struct {
	Hint string
}

func (e *ValidationError) Error() string {
	return "invalid input: " + e.Hint
}

// IsValidation reports whether err is a step input rejection.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// State is the transient per-user flow state plus the context
// accumulated so far. It marshals to JSON for the Redis store.
type State struct {
	Step      Step      `json:"step"`
	Service   string    `json:"service,omitempty"`
	Amount    int64     `json:"amount,omitempty"`
	Link      string    `json:"link,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Completion carries the accumulated context of a finished flow back to
// the caller. The tracker itself never touches the ledger; invoking the
// matching ledger action is the caller's job.
type Completion struct {
	Kind     Kind
	Amount   int64  // deposit amount
	TxID     string // deposit transaction id
	Service  string // ordered service name
	Link     string // order target link
	Quantity int64  // order quantity
}

// Result is the outcome of a successful Advance: either the flow moved
// to the next step, or it completed. On completion the state stays at
// the terminal step until the caller cancels the flow, so a rejected
// action (e.g. an order the balance cannot cover) can be retried.
type Result struct {
	Next Step        // set when the flow continues
	Done *Completion // set when the flow completed
}

// Store is the keyed persistence for flow state. Get returns (nil, nil)
// when the user has no active flow. Set replaces the state and resets
// its time-to-live.
type Store interface {
	Get(ctx context.Context, userID int64) (*State, error)
	Set(ctx context.Context, userID int64, state *State, ttl time.Duration) error
	Clear(ctx context.Context, userID int64) error
}
