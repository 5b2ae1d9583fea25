package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"smsglobe-go/internal/database"
	"smsglobe-go/internal/models"
	"smsglobe-go/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 5, 4, 10, 0, 0, 0, time.UTC)

func setupTestStore(t *testing.T) (*database.Service, func()) {
	t.Helper()
	svc, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "reconcile.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		PingTimeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	return svc, svc.Close
}

func createUser(t *testing.T, svc *database.Service, id string) {
	t.Helper()
	if _, err := svc.CreateUser(context.Background(), id, "User "+id, id+"@example.com"); err != nil {
		t.Fatalf("Failed to create user %s: %v", id, err)
	}
}

func apply(t *testing.T, svc *database.Service, userId, kind string, amount int64) {
	t.Helper()
	_, err := svc.ApplyTransaction(context.Background(), store.ApplyTransactionParams{
		UserId: userId, Type: kind, Amount: decimal.NewFromInt(amount),
	})
	if err != nil {
		t.Fatalf("Failed to apply %s %d: %v", kind, amount, err)
	}
}

func TestReconcileUser_FixesDriftThenIsIdempotent(t *testing.T) {
	svc, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	createUser(t, svc, "u1")
	apply(t, svc, "u1", models.TransactionDeposit, 50)
	apply(t, svc, "u1", models.TransactionPurchase, -20)
	apply(t, svc, "u1", models.TransactionDeposit, 10)
	require.NoError(t, svc.SetBalance(ctx, "u1", decimal.NewFromInt(30), fixedNow.Add(-time.Hour)))

	r := New(svc, Options{Now: func() time.Time { return fixedNow }})

	first := r.ReconcileUser(ctx, "u1")
	require.Empty(t, first.Error)
	assert.True(t, first.Fixed)
	assert.True(t, first.OldBalance.Equal(decimal.NewFromInt(30)))
	assert.True(t, first.NewBalance.Equal(decimal.NewFromInt(40)))

	user, err := svc.GetUserById(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, user.Balance.Equal(decimal.NewFromInt(40)))
	require.NotNil(t, user.BalanceFixedAt)
	assert.True(t, user.BalanceFixedAt.Equal(fixedNow))

	second := r.ReconcileUser(ctx, "u1")
	assert.False(t, second.Fixed)
	assert.True(t, second.Balance.Equal(decimal.NewFromInt(40)))
}

func TestReconcileUser_CorrectBalanceUntouched(t *testing.T) {
	svc, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	createUser(t, svc, "u1")
	apply(t, svc, "u1", models.TransactionDeposit, 50)
	apply(t, svc, "u1", models.TransactionPurchase, -20)
	apply(t, svc, "u1", models.TransactionDeposit, 10)

	result := New(svc, Options{}).ReconcileUser(ctx, "u1")
	assert.False(t, result.Fixed)
	assert.True(t, result.Balance.Equal(decimal.NewFromInt(40)))

	user, err := svc.GetUserById(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, user.BalanceFixedAt)
}

func TestReconcileUser_NeverStoresNegative(t *testing.T) {
	svc, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	createUser(t, svc, "u1")
	// a balance credited outside the history lets the debits outrun the credits
	require.NoError(t, svc.SetBalance(ctx, "u1", decimal.NewFromInt(100), fixedNow))
	apply(t, svc, "u1", models.TransactionPurchase, -30)
	apply(t, svc, "u1", models.TransactionDeposit, 10)

	result := New(svc, Options{}).ReconcileUser(ctx, "u1")
	require.True(t, result.Fixed)
	assert.True(t, result.OldBalance.Equal(decimal.NewFromInt(80)))
	assert.True(t, result.NewBalance.IsZero())

	balance, err := svc.GetUserBalance(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestReconcileUser_UnknownUserReportsError(t *testing.T) {
	svc, cleanup := setupTestStore(t)
	defer cleanup()

	result := New(svc, Options{}).ReconcileUser(context.Background(), "ghost")
	assert.False(t, result.Fixed)
	assert.Contains(t, result.Error, "user not found")
}

func TestNew_ZeroToleranceUsesDefault(t *testing.T) {
	svc, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	createUser(t, svc, "u1")
	apply(t, svc, "u1", models.TransactionDeposit, 10)
	require.NoError(t, svc.SetBalance(ctx, "u1", decimal.RequireFromString("10.005"), fixedNow))

	result := New(svc, Options{Tolerance: decimal.Zero}).ReconcileUser(ctx, "u1")
	require.Empty(t, result.Error)
	assert.False(t, result.Fixed, "drift within 0.01 must be left alone")
}

func TestReconcileUser_DryRunDoesNotWrite(t *testing.T) {
	svc, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	createUser(t, svc, "u1")
	apply(t, svc, "u1", models.TransactionDeposit, 5)
	require.NoError(t, svc.SetBalance(ctx, "u1", decimal.NewFromInt(9), fixedNow))

	result := New(svc, Options{DryRun: true}).ReconcileUser(ctx, "u1")
	assert.True(t, result.Fixed)
	assert.True(t, result.DryRun)

	balance, err := svc.GetUserBalance(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(9)))
}

func TestRun_Summary(t *testing.T) {
	svc, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	createUser(t, svc, "a")
	createUser(t, svc, "b")
	createUser(t, svc, "c")
	apply(t, svc, "a", models.TransactionDeposit, 10)
	apply(t, svc, "b", models.TransactionDeposit, 10)
	require.NoError(t, svc.SetBalance(ctx, "b", decimal.NewFromInt(25), fixedNow))

	journal := &recordingJournal{}
	r := New(svc, Options{Journal: journal})
	summary, err := r.Run(models.WithReconcileRun(ctx, &models.ReconcileRun{RunId: "run-1", TriggeredBy: "test"}))
	require.NoError(t, err)

	assert.Equal(t, "run-1", summary.RunId)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.Fixed)
	assert.Equal(t, 2, summary.Correct)
	assert.Equal(t, 0, summary.Errors)
	require.Len(t, summary.Corrections, 1)
	assert.Equal(t, "b", summary.Corrections[0].UserId)
	assert.Equal(t, "b@example.com", summary.Corrections[0].Email)
	assert.True(t, summary.Corrections[0].OldBalance.Equal(decimal.NewFromInt(25)))
	assert.True(t, summary.Corrections[0].NewBalance.Equal(decimal.NewFromInt(10)))

	require.Len(t, journal.fixes, 1)
	assert.Equal(t, "run-1", journal.fixes[0].RunId)
	assert.Equal(t, "b", journal.fixes[0].UserId)
}

func TestRunUsers_ErrorDoesNotAbortBatch(t *testing.T) {
	fake := &fakeStore{
		balances: map[string]decimal.Decimal{"ok": decimal.NewFromInt(5)},
		txs: map[string][]models.Transaction{
			"ok": {tx(models.TransactionDeposit, "5")},
		},
		listErr: map[string]error{"broken": errors.New("read timeout")},
	}
	fake.balances["broken"] = decimal.Zero

	summary := New(fake, Options{}).RunUsers(context.Background(), []models.User{
		{Id: "broken"}, {Id: "ok"},
	})

	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, 1, summary.Correct)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "broken", summary.Failures[0].UserId)
	assert.Equal(t, "read timeout", summary.Failures[0].Error)
}

func TestRunUsers_WriteFailureIsAnError(t *testing.T) {
	fake := &fakeStore{
		balances: map[string]decimal.Decimal{"u1": decimal.NewFromInt(1)},
		txs:      map[string][]models.Transaction{"u1": {tx(models.TransactionDeposit, "3")}},
		setErr:   errors.New("disk full"),
	}

	result := New(fake, Options{}).ReconcileUser(context.Background(), "u1")
	assert.False(t, result.Fixed)
	assert.Equal(t, "disk full", result.Error)
}

func TestRunUsers_JournalFailureKeepsFix(t *testing.T) {
	fake := &fakeStore{
		balances: map[string]decimal.Decimal{"u1": decimal.NewFromInt(1)},
		txs:      map[string][]models.Transaction{"u1": {tx(models.TransactionDeposit, "3")}},
	}

	r := New(fake, Options{Journal: &recordingJournal{err: errors.New("ledger unavailable")}})
	result := r.ReconcileUser(context.Background(), "u1")
	assert.True(t, result.Fixed)
	assert.Empty(t, result.Error)
	assert.True(t, fake.balances["u1"].Equal(decimal.NewFromInt(3)))
}

func TestRunUsers_StopsWhenContextCancelled(t *testing.T) {
	fake := &fakeStore{balances: map[string]decimal.Decimal{"u1": decimal.Zero}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary := New(fake, Options{}).RunUsers(ctx, []models.User{{Id: "u1"}})
	assert.True(t, summary.Interrupted)
	assert.Equal(t, 0, summary.Total)
}

func TestRunUsers_DelayBetweenUsers(t *testing.T) {
	fake := &fakeStore{balances: map[string]decimal.Decimal{}}
	users := []models.User{{Id: "a"}, {Id: "b"}, {Id: "c"}}
	for _, u := range users {
		fake.balances[u.Id] = decimal.Zero
	}

	start := time.Now()
	summary := New(fake, Options{UserDelay: 20 * time.Millisecond}).RunUsers(context.Background(), users)
	elapsed := time.Since(start)

	assert.Equal(t, 3, summary.Correct)
	assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
}

func TestResultJSON(t *testing.T) {
	cases := []struct {
		result Result
		want   string
	}{
		{Result{Fixed: true, OldBalance: decimal.NewFromInt(30), NewBalance: decimal.NewFromInt(40)}, `{"fixed":true,"oldBalance":"30","newBalance":"40"}`},
		{Result{Balance: decimal.NewFromInt(40)}, `{"fixed":false,"balance":"40"}`},
		{Result{Error: "boom"}, `{"error":"boom"}`},
	}
	for _, c := range cases {
		b, err := json.Marshal(c.result)
		require.NoError(t, err)
		assert.JSONEq(t, c.want, string(b))
	}
}

type fakeStore struct {
	balances map[string]decimal.Decimal
	txs      map[string][]models.Transaction
	listErr  map[string]error
	setErr   error
}

func (f *fakeStore) GetUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	for id := range f.balances {
		users = append(users, models.User{Id: id})
	}
	return users, nil
}

func (f *fakeStore) GetUserBalance(ctx context.Context, userId string) (decimal.Decimal, error) {
	b, ok := f.balances[userId]
	if !ok {
		return decimal.Zero, store.ErrUserNotFound
	}
	return b, nil
}

func (f *fakeStore) ListTransactions(ctx context.Context, userId string) ([]models.Transaction, error) {
	if err := f.listErr[userId]; err != nil {
		return nil, err
	}
	return f.txs[userId], nil
}

func (f *fakeStore) SetBalance(ctx context.Context, userId string, balance decimal.Decimal, fixedAt time.Time) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.balances[userId] = balance
	return nil
}

type recordingJournal struct {
	fixes []Correction
	err   error
}

func (j *recordingJournal) RecordBalanceFix(ctx context.Context, c Correction) error {
	if j.err != nil {
		return j.err
	}
	j.fixes = append(j.fixes, c)
	return nil
}
