package stubs

import (
	"context"
	"errors"
	"testing"

	"panel/internal/models"
	"panel/internal/storage"
)

func TestMockDB_GetOrCreateUser(t *testing.T) {
	db := NewMockDB()
	ctx := context.Background()

	u, err := db.GetOrCreateUser(ctx, 42, nil)
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	if u.Balance != 0 {
		t.Errorf("Expected zero balance for new user, got %d", u.Balance)
	}

	// Second call with a referral must return the existing user unchanged.
	ref := int64(7)
	again, err := db.GetOrCreateUser(ctx, 42, &ref)
	if err != nil {
		t.Fatalf("Failed to get user: %v", err)
	}
	if again.Referral != nil {
		t.Error("Expected referral to stay unset for an existing user")
	}
}

func TestMockDB_GetUserNotFound(t *testing.T) {
	db := NewMockDB()

	_, err := db.GetUser(context.Background(), 999)
	if !errors.Is(err, storage.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestMockDB_ApproveDepositRequest(t *testing.T) {
	db := NewMockDB()
	ctx := context.Background()

	if _, err := db.GetOrCreateUser(ctx, 42, nil); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	req, err := db.CreateDepositRequest(ctx, 42, 100, "123456789012")
	if err != nil {
		t.Fatalf("Failed to create deposit request: %v", err)
	}
	if req.Status != "pending" {
		t.Errorf("Expected pending status, got %q", req.Status)
	}

	approved, err := db.ApproveDepositRequest(ctx, req.ID)
	if err != nil {
		t.Fatalf("Failed to approve deposit request: %v", err)
	}
	if approved.ApprovedAt == nil {
		t.Error("Expected ApprovedAt to be set")
	}

	u, err := db.GetUser(ctx, 42)
	if err != nil {
		t.Fatalf("Failed to get user: %v", err)
	}
	if u.Balance != 100 {
		t.Errorf("Expected balance 100, got %d", u.Balance)
	}

	// Replaying the approval must not credit the balance again.
	if _, err := db.ApproveDepositRequest(ctx, req.ID); !errors.Is(err, storage.ErrAlreadyApproved) {
		t.Errorf("Expected ErrAlreadyApproved, got %v", err)
	}

	u, _ = db.GetUser(ctx, 42)
	if u.Balance != 100 {
		t.Errorf("Expected balance to stay 100 after replay, got %d", u.Balance)
	}

	deposits, err := db.ListDeposits(ctx, 42, 10)
	if err != nil {
		t.Fatalf("Failed to list deposits: %v", err)
	}
	if len(deposits) != 1 {
		t.Errorf("Expected 1 deposit record, got %d", len(deposits))
	}
}

func TestMockDB_ApproveDepositRequestNotFound(t *testing.T) {
	db := NewMockDB()

	_, err := db.ApproveDepositRequest(context.Background(), 555)
	if !errors.Is(err, storage.ErrDepositNotFound) {
		t.Errorf("Expected ErrDepositNotFound, got %v", err)
	}
}

func TestMockDB_PlaceOrder(t *testing.T) {
	db := NewMockDB()
	ctx := context.Background()

	if _, err := db.GetOrCreateUser(ctx, 42, nil); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	req, err := db.CreateDepositRequest(ctx, 42, 200, "123456789012")
	if err != nil {
		t.Fatalf("Failed to create deposit request: %v", err)
	}
	if _, err := db.ApproveDepositRequest(ctx, req.ID); err != nil {
		t.Fatalf("Failed to approve deposit request: %v", err)
	}

	order := &models.Order{UserID: 42, ServiceName: "followers", Link: "https://example.com/p", Quantity: 1000, Cost: 100}
	if err := db.PlaceOrder(ctx, order); err != nil {
		t.Fatalf("Failed to place order: %v", err)
	}
	if order.ID == 0 {
		t.Error("Expected order ID to be assigned")
	}

	u, _ := db.GetUser(ctx, 42)
	if u.Balance != 100 {
		t.Errorf("Expected balance 100 after debit, got %d", u.Balance)
	}

	orders, err := db.ListOrders(ctx, 42, 10)
	if err != nil {
		t.Fatalf("Failed to list orders: %v", err)
	}
	if len(orders) != 1 {
		t.Errorf("Expected 1 order, got %d", len(orders))
	}

	// A second identical order exceeds the remaining balance; nothing
	// may be debited or appended.
	second := &models.Order{UserID: 42, ServiceName: "followers", Link: "https://example.com/p", Quantity: 1500, Cost: 150}
	if err := db.PlaceOrder(ctx, second); !errors.Is(err, storage.ErrInsufficientBalance) {
		t.Errorf("Expected ErrInsufficientBalance, got %v", err)
	}

	u, _ = db.GetUser(ctx, 42)
	if u.Balance != 100 {
		t.Errorf("Expected balance to stay 100, got %d", u.Balance)
	}
	orders, _ = db.ListOrders(ctx, 42, 10)
	if len(orders) != 1 {
		t.Errorf("Expected order list unchanged, got %d orders", len(orders))
	}
}

func TestMockDB_ListOrdersNewestFirst(t *testing.T) {
	db := NewMockDB()
	ctx := context.Background()

	if _, err := db.GetOrCreateUser(ctx, 42, nil); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	req, _ := db.CreateDepositRequest(ctx, 42, 1000, "123456789012")
	if _, err := db.ApproveDepositRequest(ctx, req.ID); err != nil {
		t.Fatalf("Failed to approve deposit request: %v", err)
	}

	for i := 0; i < 3; i++ {
		order := &models.Order{UserID: 42, ServiceName: "followers", Link: "https://example.com/p", Quantity: 500, Cost: 50}
		if err := db.PlaceOrder(ctx, order); err != nil {
			t.Fatalf("Failed to place order %d: %v", i, err)
		}
	}

	orders, err := db.ListOrders(ctx, 42, 2)
	if err != nil {
		t.Fatalf("Failed to list orders: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("Expected 2 orders with limit 2, got %d", len(orders))
	}
	if orders[0].ID <= orders[1].ID {
		t.Errorf("Expected newest first, got IDs %d, %d", orders[0].ID, orders[1].ID)
	}
}

func TestMockDB_Services(t *testing.T) {
	db := NewMockDB()
	ctx := context.Background()

	// Initialize seeds a couple of browsable services.
	if err := db.Initialize(ctx); err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}

	services, err := db.ListServices(ctx)
	if err != nil {
		t.Fatalf("Failed to list services: %v", err)
	}
	if len(services) == 0 {
		t.Fatal("Expected seeded services")
	}

	svc, err := db.GetService(ctx, "followers")
	if err != nil {
		t.Fatalf("Failed to get service: %v", err)
	}
	if svc.PricePerThousand <= 0 {
		t.Errorf("Expected positive price, got %d", svc.PricePerThousand)
	}

	if _, err := db.GetService(ctx, "nonexistent"); !errors.Is(err, storage.ErrServiceNotFound) {
		t.Errorf("Expected ErrServiceNotFound, got %v", err)
	}
}

func TestMockDB_Settings(t *testing.T) {
	db := NewMockDB()
	ctx := context.Background()

	// Unset settings come back as nil without error.
	s, err := db.GetSetting(ctx, "start_message")
	if err != nil {
		t.Fatalf("Failed to get setting: %v", err)
	}
	if s != nil {
		t.Errorf("Expected nil setting, got %+v", s)
	}
}
