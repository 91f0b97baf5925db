package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	return NewTracker(NewMemoryStore(), DefaultTTL)
}

func TestTracker_AdvanceWithoutFlow(t *testing.T) {
	tracker := newTestTracker(t)
	ctx := context.Background()

	_, err := tracker.Advance(ctx, 123, "50")
	assert.ErrorIs(t, err, ErrNoActiveFlow)
}

func TestTracker_StartConflict(t *testing.T) {
	tracker := newTestTracker(t)
	ctx := context.Background()

	require.NoError(t, tracker.Start(ctx, 123, StepDepositAmount, ""))

	err := tracker.Start(ctx, 123, StepOrderLink, "followers")
	assert.ErrorIs(t, err, ErrFlowActive)

	// The original flow is untouched by the rejected start.
	state, err := tracker.Active(ctx, 123)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, StepDepositAmount, state.Step)
}

func TestTracker_StartAfterCancel(t *testing.T) {
	tracker := newTestTracker(t)
	ctx := context.Background()

	require.NoError(t, tracker.Start(ctx, 123, StepDepositAmount, ""))
	require.NoError(t, tracker.Cancel(ctx, 123))
	require.NoError(t, tracker.Start(ctx, 123, StepOrderLink, "likes"))
}

func TestTracker_DepositAmountValidation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		accept  bool
		amount  int64
	}{
		{"below minimum", "49", false, 0},
		{"at minimum", "50", true, 50},
		{"non-numeric", "fifty", false, 0},
		{"negative", "-50", false, 0},
		{"large", "100000", true, 100000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := newTestTracker(t)
			ctx := context.Background()
			require.NoError(t, tracker.Start(ctx, 1, StepDepositAmount, ""))

			result, err := tracker.Advance(ctx, 1, tt.input)
			if !tt.accept {
				require.True(t, IsValidation(err), "expected validation error, got %v", err)

				// The flow stays at the same step for a retry.
				state, stateErr := tracker.Active(ctx, 1)
				require.NoError(t, stateErr)
				require.NotNil(t, state)
				assert.Equal(t, StepDepositAmount, state.Step)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, StepDepositTxID, result.Next)

			state, err := tracker.Active(ctx, 1)
			require.NoError(t, err)
			require.NotNil(t, state)
			assert.Equal(t, tt.amount, state.Amount)
		})
	}
}

func TestTracker_TxIDValidation(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		accept bool
	}{
		{"11 digits", "12345678901", false},
		{"12 digits", "123456789012", true},
		{"12 chars with letter", "12345678901a", false},
		{"13 digits", "1234567890123", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := newTestTracker(t)
			ctx := context.Background()
			require.NoError(t, tracker.Start(ctx, 1, StepDepositAmount, ""))
			_, err := tracker.Advance(ctx, 1, "100")
			require.NoError(t, err)

			result, err := tracker.Advance(ctx, 1, tt.input)
			if !tt.accept {
				require.True(t, IsValidation(err), "expected validation error, got %v", err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, result.Done)
			assert.Equal(t, KindDeposit, result.Done.Kind)
			assert.Equal(t, int64(100), result.Done.Amount)
			assert.Equal(t, tt.input, result.Done.TxID)

			// The state stays at the terminal step until the caller
			// settles the deposit and cancels the flow.
			state, err := tracker.Active(ctx, 1)
			require.NoError(t, err)
			require.NotNil(t, state)
			assert.Equal(t, StepDepositTxID, state.Step)

			require.NoError(t, tracker.Cancel(ctx, 1))
			state, err = tracker.Active(ctx, 1)
			require.NoError(t, err)
			assert.Nil(t, state)
		})
	}
}

func TestTracker_OrderQuantityValidation(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		accept bool
	}{
		{"below minimum", "499", false},
		{"at minimum", "500", true},
		{"at maximum", "1000000", true},
		{"above maximum", "1000001", false},
		{"non-numeric", "lots", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := newTestTracker(t)
			ctx := context.Background()
			require.NoError(t, tracker.Start(ctx, 1, StepOrderLink, "followers"))
			_, err := tracker.Advance(ctx, 1, "https://example.com/profile")
			require.NoError(t, err)

			result, err := tracker.Advance(ctx, 1, tt.input)
			if !tt.accept {
				require.True(t, IsValidation(err), "expected validation error, got %v", err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, result.Done)
			assert.Equal(t, KindOrder, result.Done.Kind)
			assert.Equal(t, "followers", result.Done.Service)
			assert.Equal(t, "https://example.com/profile", result.Done.Link)
		})
	}
}

func TestTracker_OrderLinkRequired(t *testing.T) {
	tracker := newTestTracker(t)
	ctx := context.Background()
	require.NoError(t, tracker.Start(ctx, 1, StepOrderLink, "likes"))

	_, err := tracker.Advance(ctx, 1, "   ")
	require.True(t, IsValidation(err))

	// A retry with a real link proceeds.
	result, err := tracker.Advance(ctx, 1, "https://example.com/post/1")
	require.NoError(t, err)
	assert.Equal(t, StepOrderQuantity, result.Next)
}

func TestTracker_TerminalStepRetry(t *testing.T) {
	tracker := newTestTracker(t)
	ctx := context.Background()
	require.NoError(t, tracker.Start(ctx, 1, StepOrderLink, "followers"))
	_, err := tracker.Advance(ctx, 1, "https://example.com/profile")
	require.NoError(t, err)

	result, err := tracker.Advance(ctx, 1, "1000")
	require.NoError(t, err)
	require.NotNil(t, result.Done)
	assert.Equal(t, int64(1000), result.Done.Quantity)

	// If the order was rejected, the user can answer with a new
	// quantity; the accumulated context is preserved.
	result, err = tracker.Advance(ctx, 1, "500")
	require.NoError(t, err)
	require.NotNil(t, result.Done)
	assert.Equal(t, int64(500), result.Done.Quantity)
	assert.Equal(t, "followers", result.Done.Service)
	assert.Equal(t, "https://example.com/profile", result.Done.Link)

	// Once the action settled, cancelling ends the flow for good.
	require.NoError(t, tracker.Cancel(ctx, 1))
	_, err = tracker.Advance(ctx, 1, "500")
	assert.ErrorIs(t, err, ErrNoActiveFlow)
}

func TestTracker_ValidationRetrySameStep(t *testing.T) {
	tracker := newTestTracker(t)
	ctx := context.Background()
	require.NoError(t, tracker.Start(ctx, 1, StepDepositAmount, ""))

	// Three bad inputs in a row never advance or drop the flow.
	for _, input := range []string{"1", "nope", "49"} {
		_, err := tracker.Advance(ctx, 1, input)
		require.True(t, IsValidation(err))
	}

	result, err := tracker.Advance(ctx, 1, "50")
	require.NoError(t, err)
	assert.Equal(t, StepDepositTxID, result.Next)
}

func TestTracker_IdleExpiry(t *testing.T) {
	store := NewMemoryStore()
	tracker := NewTracker(store, 20*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, tracker.Start(ctx, 1, StepDepositAmount, ""))

	time.Sleep(40 * time.Millisecond)

	_, err := tracker.Advance(ctx, 1, "100")
	assert.ErrorIs(t, err, ErrNoActiveFlow)

	// An expired flow no longer blocks a new one.
	require.NoError(t, tracker.Start(ctx, 1, StepOrderLink, "followers"))
}

func TestTracker_CancelWithoutFlow(t *testing.T) {
	tracker := newTestTracker(t)
	require.NoError(t, tracker.Cancel(context.Background(), 99))
}

func TestMemoryStore_SetResetsTTL(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	state := &State{Step: StepDepositAmount, UpdatedAt: time.Now()}
	require.NoError(t, store.Set(ctx, 1, state, 30*time.Millisecond))

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, store.Set(ctx, 1, state, 30*time.Millisecond))

	time.Sleep(20 * time.Millisecond)
	got, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.NotNil(t, got, "TTL should have been reset by the second Set")

	time.Sleep(30 * time.Millisecond)
	got, err = store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestValidationError_Is(t *testing.T) {
	err := error(&ValidationError{Hint: "nope"})
	assert.True(t, IsValidation(err))
	assert.False(t, IsValidation(errors.New("other")))
	assert.False(t, IsValidation(nil))
}
