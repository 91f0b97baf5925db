package models

import "time"

// User is a panel account keyed by the Telegram user ID.
// Balance is kept in whole currency units and never goes negative.
type User struct {
	UserID    int64
	Balance   int64
	Referral  *int64 // set once, at account creation
	CreatedAt time.Time
}

// DepositStatus is the lifecycle state of a deposit request.
type DepositStatus string

const (
	DepositPending  DepositStatus = "pending"
	DepositApproved DepositStatus = "approved"
)

// DepositRequest is a user's claim that funds were sent. It is credited
// to the balance only once, when an admin approves it.
type DepositRequest struct {
	ID         int64
	UserID     int64
	Amount     int64
	TxID       string
	Status     DepositStatus
	CreatedAt  time.Time
	ApprovedAt *time.Time
}

// Deposit is an approved credit in the user's ledger history.
type Deposit struct {
	UserID    int64
	Amount    int64
	CreatedAt time.Time
}

// Order is a placed service order. Cost was debited from the balance
// atomically with the append of this record.
type Order struct {
	ID          int64
	UserID      int64
	ServiceName string
	Link        string
	Quantity    int64
	Cost        int64
	CreatedAt   time.Time
}

// Service is a purchasable catalog entry. APILink is the downstream
// fulfillment endpoint, treated as opaque passthrough data.
type Service struct {
	Name             string
	APILink          string
	PricePerThousand int64
}

// Setting is a keyed piece of bot configuration, e.g. the /start message.
type Setting struct {
	Type    string
	Message string
	Photo   string
}

// SettingStartMessage keys the configurable /start reply.
const SettingStartMessage = "start_message"
