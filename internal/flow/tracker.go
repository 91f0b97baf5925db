package flow

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Input bounds for the deposit and order dialogs.
const (
	MinDepositAmount = 50
	TxIDLength       = 12
	MinOrderQuantity = 500
	MaxOrderQuantity = 1_000_000
)

// DefaultTTL is how long an abandoned flow is kept before it expires.
const DefaultTTL = 15 * time.Minute

// Tracker routes each user's messages through at most one active flow.
type Tracker struct {
	store Store
	ttl   time.Duration
}

// NewTracker creates a tracker on top of the given state store.
// ttl <= 0 falls back to DefaultTTL.
func NewTracker(store Store, ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tracker{store: store, ttl: ttl}
}

// Start begins a new flow at the given step. Fails with ErrFlowActive
// when the user is already mid-flow: an in-progress dialog is never
// silently replaced.
func (t *Tracker) Start(ctx context.Context, userID int64, step Step, service string) error {
	existing, err := t.store.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to read flow state: %w", err)
	}
	if existing != nil {
		return ErrFlowActive
	}

	state := &State{
		Step:      step,
		Service:   service,
		UpdatedAt: time.Now(),
	}
	if err := t.store.Set(ctx, userID, state, t.ttl); err != nil {
		return fmt.Errorf("failed to save flow state: %w", err)
	}
	return nil
}

// Active returns the user's current flow state, or nil when none.
func (t *Tracker) Active(ctx context.Context, userID int64) (*State, error) {
	return t.store.Get(ctx, userID)
}

// Cancel discards the user's flow state, if any.
func (t *Tracker) Cancel(ctx context.Context, userID int64) error {
	return t.store.Clear(ctx, userID)
}

// Advance feeds one user reply into the active flow. A *ValidationError
// leaves the state untouched so the same step retries; a transition
// resets the idle TTL. Completion keeps the state at the terminal step:
// the caller settles the resulting action and then cancels the flow, so
// a rejected action can be retried with new input.
func (t *Tracker) Advance(ctx context.Context, userID int64, input string) (*Result, error) {
	state, err := t.store.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow state: %w", err)
	}
	if state == nil {
		return nil, ErrNoActiveFlow
	}

	input = strings.TrimSpace(input)

	switch state.Step {
	case StepDepositAmount:
		amount, err := parseDepositAmount(input)
		if err != nil {
			return nil, err
		}
		state.Amount = amount
		return t.transition(ctx, userID, state, StepDepositTxID)

	case StepDepositTxID:
		if err := validateTxID(input); err != nil {
			return nil, err
		}
		return t.complete(ctx, userID, state, &Completion{
			Kind:   KindDeposit,
			Amount: state.Amount,
			TxID:   input,
		})

	case StepOrderLink:
		if input == "" {
			return nil, &ValidationError{Hint: "please send the link for your order"}
		}
		state.Link = input
		return t.transition(ctx, userID, state, StepOrderQuantity)

	case StepOrderQuantity:
		quantity, err := parseOrderQuantity(input)
		if err != nil {
			return nil, err
		}
		return t.complete(ctx, userID, state, &Completion{
			Kind:     KindOrder,
			Service:  state.Service,
			Link:     state.Link,
			Quantity: quantity,
		})

	default:
		// Unknown step, e.g. state written by an older build. Drop it.
		_ = t.store.Clear(ctx, userID)
		return nil, ErrNoActiveFlow
	}
}

func (t *Tracker) transition(ctx context.Context, userID int64, state *State, next Step) (*Result, error) {
	state.Step = next
	state.UpdatedAt = time.Now()
	if err := t.store.Set(ctx, userID, state, t.ttl); err != nil {
		return nil, fmt.Errorf("failed to save flow state: %w", err)
	}
	return &Result{Next: next}, nil
}

// complete reports the finished flow without clearing its state, so the
// terminal step can be retried when the action it maps to is rejected.
func (t *Tracker) complete(ctx context.Context, userID int64, state *State, done *Completion) (*Result, error) {
	state.UpdatedAt = time.Now()
	if err := t.store.Set(ctx, userID, state, t.ttl); err != nil {
		return nil, fmt.Errorf("failed to save flow state: %w", err)
	}
	return &Result{Done: done}, nil
}

func parseDepositAmount(input string) (int64, error) {
	amount, err := strconv.ParseInt(input, 10, 64)
	if err != nil || amount < MinDepositAmount {
		return 0, &ValidationError{
			Hint: fmt.Sprintf("enter a whole amount of at least %d", MinDepositAmount),
		}
	}
	return amount, nil
}

func validateTxID(input string) error {
	if len(input) != TxIDLength {
		return &ValidationError{
			Hint: fmt.Sprintf("the transaction id must be exactly %d digits", TxIDLength),
		}
	}
	for _, r := range input {
		if r < '0' || r > '9' {
			return &ValidationError{
				Hint: fmt.Sprintf("the transaction id must be exactly %d digits", TxIDLength),
			}
		}
	}
	return nil
}

func parseOrderQuantity(input string) (int64, error) {
	quantity, err := strconv.ParseInt(input, 10, 64)
	if err != nil || quantity < MinOrderQuantity || quantity > MaxOrderQuantity {
		return 0, &ValidationError{
			Hint: fmt.Sprintf("enter a quantity between %d and %d", MinOrderQuantity, MaxOrderQuantity),
		}
	}
	return quantity, nil
}
