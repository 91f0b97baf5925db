package stubs

import (
	"context"
	"sort"
	"sync"
	"time"

	"panel/internal/models"
	"panel/internal/storage"
)

// MockDB is an in-memory implementation of the Storage interface for
// testing and local development. A single mutex serializes all writes,
// which trivially satisfies the per-user atomicity contract.
type MockDB struct {
	mu            sync.RWMutex
	users         map[int64]*models.User
	requests      map[int64]*models.DepositRequest
	deposits      []models.Deposit
	orders        []models.Order
	services      map[string]models.Service
	settings      map[string]models.Setting
	nextRequestID int64
	nextOrderID   int64
}

// NewMockDB creates a new mock database
func NewMockDB() *MockDB {
	return &MockDB{
		users:         make(map[int64]*models.User),
		requests:      make(map[int64]*models.DepositRequest),
		services:      make(map[string]models.Service),
		settings:      make(map[string]models.Setting),
		nextRequestID: 1,
		nextOrderID:   1,
	}
}

// Initialize seeds a couple of services so the catalog is browsable
// out of the box in dev mode.
func (m *MockDB) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.services["followers"] = models.Service{
		Name:             "followers",
		APILink:          "https://example.com/api/followers",
		PricePerThousand: 100,
	}
	m.services["likes"] = models.Service{
		Name:             "likes",
		APILink:          "https://example.com/api/likes",
		PricePerThousand: 50,
	}

	return nil
}

// GetOrCreateUser returns the user, creating it on first contact.
func (m *MockDB) GetOrCreateUser(ctx context.Context, userID int64, referral *int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u, ok := m.users[userID]; ok {
		cp := *u
		return &cp, nil
	}

	u := &models.User{
		UserID:    userID,
		Balance:   0,
		Referral:  referral,
		CreatedAt: time.Now(),
	}
	m.users[userID] = u

	cp := *u
	return &cp, nil
}

// GetUser returns the user or storage.ErrUserNotFound.
func (m *MockDB) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[userID]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

// CreateDepositRequest records a pending deposit claim.
func (m *MockDB) CreateDepositRequest(ctx context.Context, userID, amount int64, txID string) (*models.DepositRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[userID]; !ok {
		return nil, storage.ErrUserNotFound
	}

	req := &models.DepositRequest{
		ID:        m.nextRequestID,
		UserID:    userID,
		Amount:    amount,
		TxID:      txID,
		Status:    models.DepositPending,
		CreatedAt: time.Now(),
	}
	m.nextRequestID++
	m.requests[req.ID] = req

	cp := *req
	return &cp, nil
}

// ApproveDepositRequest credits the balance exactly once per request.
func (m *MockDB) ApproveDepositRequest(ctx context.Context, requestID int64) (*models.DepositRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.requests[requestID]
	if !ok {
		return nil, storage.ErrDepositNotFound
	}
	if req.Status != models.DepositPending {
		return nil, storage.ErrAlreadyApproved
	}

	u, ok := m.users[req.UserID]
	if !ok {
		return nil, storage.ErrUserNotFound
	}

	now := time.Now()
	req.Status = models.DepositApproved
	req.ApprovedAt = &now
	u.Balance += req.Amount
	m.deposits = append(m.deposits, models.Deposit{
		UserID:    req.UserID,
		Amount:    req.Amount,
		CreatedAt: now,
	})

	cp := *req
	return &cp, nil
}

// ListDeposits returns the last N deposits for the user, newest first.
func (m *MockDB) ListDeposits(ctx context.Context, userID int64, limit int) ([]models.Deposit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var deposits []models.Deposit
	for i := len(m.deposits) - 1; i >= 0; i-- {
		if m.deposits[i].UserID != userID {
			continue
		}
		deposits = append(deposits, m.deposits[i])
		if limit > 0 && len(deposits) == limit {
			break
		}
	}
	return deposits, nil
}

// PlaceOrder debits the balance and appends the order in one critical section.
func (m *MockDB) PlaceOrder(ctx context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[order.UserID]
	if !ok {
		return storage.ErrUserNotFound
	}
	if u.Balance < order.Cost {
		return storage.ErrInsufficientBalance
	}

	u.Balance -= order.Cost
	order.ID = m.nextOrderID
	order.CreatedAt = time.Now()
	m.nextOrderID++
	m.orders = append(m.orders, *order)

	return nil
}

// ListOrders returns the last N orders for the user, newest first.
func (m *MockDB) ListOrders(ctx context.Context, userID int64, limit int) ([]models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var orders []models.Order
	for i := len(m.orders) - 1; i >= 0; i-- {
		if m.orders[i].UserID != userID {
			continue
		}
		orders = append(orders, m.orders[i])
		if limit > 0 && len(orders) == limit {
			break
		}
	}
	return orders, nil
}

// UpsertService creates or replaces the catalog entry keyed by name.
func (m *MockDB) UpsertService(ctx context.Context, svc models.Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.services[svc.Name] = svc
	return nil
}

// GetService returns the service or storage.ErrServiceNotFound.
func (m *MockDB) GetService(ctx context.Context, name string) (*models.Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	svc, ok := m.services[name]
	if !ok {
		return nil, storage.ErrServiceNotFound
	}
	return &svc, nil
}

// ListServices returns all services sorted by name.
func (m *MockDB) ListServices(ctx context.Context) ([]models.Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var services []models.Service
	for _, svc := range m.services {
		services = append(services, svc)
	}

	sort.Slice(services, func(i, j int) bool {
		return services[i].Name < services[j].Name
	})

	return services, nil
}

// GetSetting returns the setting, or nil when it was never set.
func (m *MockDB) GetSetting(ctx context.Context, settingType string) (*models.Setting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.settings[settingType]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// UpsertSetting creates or replaces the setting keyed by type.
func (m *MockDB) UpsertSetting(ctx context.Context, setting models.Setting) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.settings[setting.Type] = setting
	return nil
}

// Close does nothing for mock DB
func (m *MockDB) Close() error {
	return nil
}
