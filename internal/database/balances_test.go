package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"smsglobe-go/internal/models"
	"smsglobe-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

func setupTestService(t *testing.T) (*Service, func()) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// a second connection would see a different in-memory database
	db.SetMaxOpenConns(1)

	service := newServiceWithDB(db)
	if err := service.initSchema(false); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	if err := service.subledger.InitSchema(); err != nil {
		t.Fatalf("Failed to create subledger schema: %v", err)
	}

	if _, err := service.CreateUser(context.Background(), "user1", "Test User", "test@example.com"); err != nil {
		t.Fatalf("Failed to insert test user: %v", err)
	}

	cleanup := func() {
		db.Close()
	}
	return service, cleanup
}

func TestGetUserBalance_NewUser(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	balance, err := service.GetUserBalance(context.Background(), "user1")
	if err != nil {
		t.Fatalf("GetUserBalance failed: %v", err)
	}

	if !balance.Equal(decimal.Zero) {
		t.Errorf("Expected balance 0, got %s", balance.String())
	}
}

func TestGetUserBalance_UnknownUser(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	_, err := service.GetUserBalance(context.Background(), "ghost")
	if !errors.Is(err, store.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestGetUserBalance_WithTransactions(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()

	_, err := service.ApplyTransaction(ctx, store.ApplyTransactionParams{
		UserId: "user1", Type: models.TransactionDeposit, Amount: decimal.NewFromInt(50), Description: "Top up",
	})
	if err != nil {
		t.Fatalf("Failed to create deposit: %v", err)
	}

	_, err = service.ApplyTransaction(ctx, store.ApplyTransactionParams{
		UserId: "user1", Type: models.TransactionPurchase, Amount: decimal.RequireFromString("-12.50"), Description: "Number",
	})
	if err != nil {
		t.Fatalf("Failed to create purchase: %v", err)
	}

	balance, err := service.GetUserBalance(ctx, "user1")
	if err != nil {
		t.Fatalf("GetUserBalance failed: %v", err)
	}

	expected := decimal.RequireFromString("37.5")
	if !balance.Equal(expected) {
		t.Errorf("Expected balance %s, got %s", expected.String(), balance.String())
	}
}

func TestSetBalance_StampsFixTime(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	fixedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := service.SetBalance(ctx, "user1", decimal.NewFromInt(40), fixedAt); err != nil {
		t.Fatalf("SetBalance failed: %v", err)
	}

	user, err := service.GetUserById(ctx, "user1")
	if err != nil {
		t.Fatalf("GetUserById failed: %v", err)
	}

	if !user.Balance.Equal(decimal.NewFromInt(40)) {
		t.Errorf("Expected balance 40, got %s", user.Balance.String())
	}
	if user.BalanceFixedAt == nil || !user.BalanceFixedAt.Equal(fixedAt) {
		t.Errorf("Expected balance_fixed_at %v, got %v", fixedAt, user.BalanceFixedAt)
	}
	if !user.UpdatedAt.Equal(fixedAt) {
		t.Errorf("Expected updated_at %v, got %v", fixedAt, user.UpdatedAt)
	}
}

func TestSetBalance_UnknownUser(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	err := service.SetBalance(context.Background(), "ghost", decimal.NewFromInt(1), time.Now())
	if !errors.Is(err, store.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}
