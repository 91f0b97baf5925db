package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"panel/internal/models"
	"panel/internal/storage"
)

// PostgresDB implements the Storage interface on top of a pgx pool.
//
// Balance mutations use conditional UPDATEs inside a transaction, so
// concurrent approvals and orders for the same user serialize on the
// row without any application-side locking.
type PostgresDB struct {
	pool *pgxpool.Pool
}

// NewPostgresDB connects to PostgreSQL and verifies the connection.
func NewPostgresDB(ctx context.Context, dsn string) (*PostgresDB, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(connectCtx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &PostgresDB{pool: pool}, nil
}

// Initialize is a no-op - tables are managed via migrations (see migrations/).
func (db *PostgresDB) Initialize(ctx context.Context) error {
	return nil
}

// GetOrCreateUser returns the user, inserting it on first contact.
// The referral sticks only on the insert; conflicts leave the row as is.
func (db *PostgresDB) GetOrCreateUser(ctx context.Context, userID int64, referral *int64) (*models.User, error) {
	_, err := db.pool.Exec(ctx, `
		INSERT INTO users (user_id, balance, referral)
		VALUES ($1, 0, $2)
		ON CONFLICT (user_id) DO NOTHING`,
		userID, referral)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return db.GetUser(ctx, userID)
}

// GetUser fetches a single user row.
func (db *PostgresDB) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	var u models.User
	err := db.pool.QueryRow(ctx,
		`SELECT user_id, balance, referral, created_at FROM users WHERE user_id = $1`,
		userID).Scan(&u.UserID, &u.Balance, &u.Referral, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// CreateDepositRequest records a pending deposit claim.
func (db *PostgresDB) CreateDepositRequest(ctx context.Context, userID, amount int64, txID string) (*models.DepositRequest, error) {
	req := &models.DepositRequest{
		UserID: userID,
		Amount: amount,
		TxID:   txID,
		Status: models.DepositPending,
	}
	err := db.pool.QueryRow(ctx, `
		INSERT INTO deposit_requests (user_id, amount, tx_id, status)
		VALUES ($1, $2, $3, 'pending')
		RETURNING id, created_at`,
		userID, amount, txID).Scan(&req.ID, &req.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create deposit request: %w", err)
	}
	return req, nil
}

// ApproveDepositRequest flips the request to approved and credits the
// balance in one transaction. The conditional UPDATE on status is the
// replay guard: a second approval matches zero rows.
func (db *PostgresDB) ApproveDepositRequest(ctx context.Context, requestID int64) (*models.DepositRequest, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	req := &models.DepositRequest{ID: requestID, Status: models.DepositApproved}
	err = tx.QueryRow(ctx, `
		UPDATE deposit_requests
		SET status = 'approved', approved_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING user_id, amount, tx_id, created_at, approved_at`,
		requestID).Scan(&req.UserID, &req.Amount, &req.TxID, &req.CreatedAt, &req.ApprovedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// Either the request never existed or it was approved before.
		var status string
		checkErr := tx.QueryRow(ctx,
			`SELECT status FROM deposit_requests WHERE id = $1`, requestID).Scan(&status)
		if errors.Is(checkErr, pgx.ErrNoRows) {
			return nil, storage.ErrDepositNotFound
		}
		if checkErr != nil {
			return nil, fmt.Errorf("failed to check deposit request: %w", checkErr)
		}
		return nil, storage.ErrAlreadyApproved
	}
	if err != nil {
		return nil, fmt.Errorf("failed to approve deposit request: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE users SET balance = balance + $1 WHERE user_id = $2`,
		req.Amount, req.UserID); err != nil {
		return nil, fmt.Errorf("failed to credit balance: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO deposits (user_id, amount) VALUES ($1, $2)`,
		req.UserID, req.Amount); err != nil {
		return nil, fmt.Errorf("failed to append deposit: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit approval: %w", err)
	}
	return req, nil
}

// ListDeposits returns the last N deposits for the user, newest first.
func (db *PostgresDB) ListDeposits(ctx context.Context, userID int64, limit int) ([]models.Deposit, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT user_id, amount, created_at FROM deposits
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list deposits: %w", err)
	}
	defer rows.Close()

	var deposits []models.Deposit
	for rows.Next() {
		var d models.Deposit
		if err := rows.Scan(&d.UserID, &d.Amount, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan deposit: %w", err)
		}
		deposits = append(deposits, d)
	}
	return deposits, rows.Err()
}

// PlaceOrder debits the balance and appends the order atomically.
// The conditional UPDATE only matches when the balance covers the cost,
// which both enforces balance >= 0 and serializes concurrent orders.
func (db *PostgresDB) PlaceOrder(ctx context.Context, order *models.Order) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE users SET balance = balance - $1
		WHERE user_id = $2 AND balance >= $1`,
		order.Cost, order.UserID)
	if err != nil {
		return fmt.Errorf("failed to debit balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM users WHERE user_id = $1)`,
			order.UserID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check user: %w", err)
		}
		if !exists {
			return storage.ErrUserNotFound
		}
		return storage.ErrInsufficientBalance
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO orders (user_id, service_name, link, quantity, cost)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		order.UserID, order.ServiceName, order.Link, order.Quantity, order.Cost).
		Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}
	return nil
}

// ListOrders returns the last N orders for the user, newest first.
func (db *PostgresDB) ListOrders(ctx context.Context, userID int64, limit int) ([]models.Order, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT id, user_id, service_name, link, quantity, cost, created_at FROM orders
		WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.ServiceName, &o.Link, &o.Quantity, &o.Cost, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// UpsertService creates or replaces the catalog entry keyed by name.
func (db *PostgresDB) UpsertService(ctx context.Context, svc models.Service) error {
	_, err := db.pool.Exec(ctx, `
		INSERT INTO services (name, api_link, price_per_thousand)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE
		SET api_link = EXCLUDED.api_link, price_per_thousand = EXCLUDED.price_per_thousand`,
		svc.Name, svc.APILink, svc.PricePerThousand)
	if err != nil {
		return fmt.Errorf("failed to upsert service: %w", err)
	}
	return nil
}

// GetService fetches a single catalog entry.
func (db *PostgresDB) GetService(ctx context.Context, name string) (*models.Service, error) {
	var svc models.Service
	err := db.pool.QueryRow(ctx,
		`SELECT name, api_link, price_per_thousand FROM services WHERE name = $1`,
		name).Scan(&svc.Name, &svc.APILink, &svc.PricePerThousand)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrServiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get service: %w", err)
	}
	return &svc, nil
}

// ListServices returns all services sorted by name.
func (db *PostgresDB) ListServices(ctx context.Context) ([]models.Service, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT name, api_link, price_per_thousand FROM services ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	defer rows.Close()

	var services []models.Service
	for rows.Next() {
		var svc models.Service
		if err := rows.Scan(&svc.Name, &svc.APILink, &svc.PricePerThousand); err != nil {
			return nil, fmt.Errorf("failed to scan service: %w", err)
		}
		services = append(services, svc)
	}
	return services, rows.Err()
}

// GetSetting returns the setting, or nil when it was never set.
func (db *PostgresDB) GetSetting(ctx context.Context, settingType string) (*models.Setting, error) {
	var s models.Setting
	err := db.pool.QueryRow(ctx,
		`SELECT type, message, photo FROM settings WHERE type = $1`,
		settingType).Scan(&s.Type, &s.Message, &s.Photo)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get setting: %w", err)
	}
	return &s, nil
}

// UpsertSetting creates or replaces the setting keyed by type.
func (db *PostgresDB) UpsertSetting(ctx context.Context, setting models.Setting) error {
	_, err := db.pool.Exec(ctx, `
		INSERT INTO settings (type, message, photo)
		VALUES ($1, $2, $3)
		ON CONFLICT (type) DO UPDATE
		SET message = EXCLUDED.message, photo = EXCLUDED.photo`,
		setting.Type, setting.Message, setting.Photo)
	if err != nil {
		return fmt.Errorf("failed to upsert setting: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (db *PostgresDB) Close() error {
	if db.pool != nil {
		db.pool.Close()
	}
	return nil
}
