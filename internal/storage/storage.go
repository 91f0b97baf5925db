package storage

import (
	"context"
	"errors"

	"panel/internal/models"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrServiceNotFound     = errors.New("service not found")
	ErrDepositNotFound     = errors.New("deposit request not found")
	ErrAlreadyApproved     = errors.New("deposit request already approved")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// Storage defines the interface for data storage operations.
//
// Implementations must serialize balance mutations per user:
// ApproveDepositRequest and PlaceOrder are the only writers of the
// balance field, and each must apply its balance change and its ledger
// append as one atomic update.
type Storage interface {
	// User operations
	// GetOrCreateUser returns the existing user or creates one with a
	// zero balance. The referral is recorded only when the account is
	// created; it is never changed afterwards.
	GetOrCreateUser(ctx context.Context, userID int64, referral *int64) (*models.User, error)
	GetUser(ctx context.Context, userID int64) (*models.User, error)

	// Deposit operations
	CreateDepositRequest(ctx context.Context, userID, amount int64, txID string) (*models.DepositRequest, error)

	// ApproveDepositRequest transitions the request from pending to
	// approved, credits the user's balance and appends a deposit record,
	// all atomically. A replay returns ErrAlreadyApproved and credits
	// nothing.
	ApproveDepositRequest(ctx context.Context, requestID int64) (*models.DepositRequest, error)
	ListDeposits(ctx context.Context, userID int64, limit int) ([]models.Deposit, error)

	// Order operations
	// PlaceOrder debits order.Cost from the user's balance and appends
	// the order record atomically. Returns ErrInsufficientBalance when
	// the balance does not cover the cost; the ledger is untouched then.
	// On success the stored ID and CreatedAt are filled in.
	PlaceOrder(ctx context.Context, order *models.Order) error
	ListOrders(ctx context.Context, userID int64, limit int) ([]models.Order, error)

	// Catalog operations
	UpsertService(ctx context.Context, svc models.Service) error
	GetService(ctx context.Context, name string) (*models.Service, error)
	ListServices(ctx context.Context) ([]models.Service, error)

	// Settings operations
	// GetSetting returns (nil, nil) when the key has never been set.
	GetSetting(ctx context.Context, settingType string) (*models.Setting, error)
	UpsertSetting(ctx context.Context, setting models.Setting) error

	// Lifecycle
	Initialize(ctx context.Context) error
	Close() error
}
