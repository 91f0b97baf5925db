// Package ledger owns the per-user balance and its append-only
// deposit/order history. All balance mutations go through the storage
// layer's atomic updates, so interleaved approvals and orders for one
// user conserve the balance and never drive it negative.
package ledger

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"panel/internal/bus"
	"panel/internal/models"
	"panel/internal/storage"
)

// ErrPermissionDenied rejects admin-only operations from other principals.
var ErrPermissionDenied = errors.New("permission denied")

// Ledger coordinates deposits, approvals and order placement.
type Ledger struct {
	store  storage.Storage
	bus    bus.Publisher
	admins map[int64]bool
	logger *zap.Logger
}

// New creates a ledger service. Orders are announced on the publisher
// after they commit; only the listed admin user IDs may approve deposits.
func New(store storage.Storage, publisher bus.Publisher, adminIDs []int64, logger *zap.Logger) *Ledger {
	admins := make(map[int64]bool)
	for _, id := range adminIDs {
		admins[id] = true
	}
	return &Ledger{store: store, bus: publisher, admins: admins, logger: logger}
}

// GetOrCreateUser returns the account, creating it on first contact.
// The referral is recorded only at creation and never changes.
func (l *Ledger) GetOrCreateUser(ctx context.Context, userID int64, referral *int64) (*models.User, error) {
	return l.store.GetOrCreateUser(ctx, userID, referral)
}

// Balance returns the user's current balance.
func (l *Ledger) Balance(ctx context.Context, userID int64) (int64, error) {
	u, err := l.store.GetUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return u.Balance, nil
}

// SubmitDeposit records a pending deposit claim. Nothing is credited
// until an admin approves the request.
func (l *Ledger) SubmitDeposit(ctx context.Context, userID, amount int64, txID string) (*models.DepositRequest, error) {
	req, err := l.store.CreateDepositRequest(ctx, userID, amount, txID)
	if err != nil {
		return nil, err
	}

	l.logger.Info("Deposit request submitted",
		zap.Int64("request_id", req.ID),
		zap.Int64("user_id", userID),
		zap.Int64("amount", amount),
	)
	return req, nil
}

// ApproveDeposit credits a pending deposit to the user's balance
// exactly once. The request id is the replay token: a second approval
// of the same request returns storage.ErrAlreadyApproved and credits
// nothing.
func (l *Ledger) ApproveDeposit(ctx context.Context, adminID, requestID int64) (*models.DepositRequest, error) {
	if !l.admins[adminID] {
		l.logger.Warn("Unauthorized deposit approval attempt",
			zap.Int64("user_id", adminID),
			zap.Int64("request_id", requestID),
		)
		return nil, ErrPermissionDenied
	}

	req, err := l.store.ApproveDepositRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	l.logger.Info("Deposit approved",
		zap.Int64("request_id", req.ID),
		zap.Int64("user_id", req.UserID),
		zap.Int64("amount", req.Amount),
		zap.Int64("admin_id", adminID),
	)
	return req, nil
}

// PlaceOrder converts a completed order flow into a balance debit and
// an order record. Cost is pricePerThousand * quantity / 1000 in whole
// units; the debit and the append happen as one atomic storage update.
func (l *Ledger) PlaceOrder(ctx context.Context, userID int64, serviceName, link string, quantity int64) (*models.Order, error) {
	svc, err := l.store.GetService(ctx, serviceName)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		UserID:      userID,
		ServiceName: svc.Name,
		Link:        link,
		Quantity:    quantity,
		Cost:        svc.PricePerThousand * quantity / 1000,
	}
	if err := l.store.PlaceOrder(ctx, order); err != nil {
		return nil, err
	}

	l.logger.Info("Order placed",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", userID),
		zap.String("service", svc.Name),
		zap.Int64("quantity", quantity),
		zap.Int64("cost", order.Cost),
	)

	l.publishOrder(order, svc.APILink)
	return order, nil
}

// Orders returns the user's last N orders, newest first.
func (l *Ledger) Orders(ctx context.Context, userID int64, limit int) ([]models.Order, error) {
	return l.store.ListOrders(ctx, userID, limit)
}

// publishOrder announces a committed order for fulfillment. Publishing
// is fire-and-forget: the order stands even if the bus is down.
func (l *Ledger) publishOrder(order *models.Order, apiLink string) {
	event := OrderEvent{
		OrderID:     order.ID,
		UserID:      order.UserID,
		ServiceName: order.ServiceName,
		APILink:     apiLink,
		Link:        order.Link,
		Quantity:    order.Quantity,
		Cost:        order.Cost,
		CreatedAt:   order.CreatedAt,
	}
	data, err := json.Marshal(event)
	if err != nil {
		l.logger.Error("Failed to encode order event", zap.Error(err), zap.Int64("order_id", order.ID))
		return
	}
	if err := l.bus.Publish(bus.SubjectOrderCreated, data); err != nil {
		l.logger.Error("Failed to publish order event",
			zap.Error(err),
			zap.Int64("order_id", order.ID),
		)
	}
}
