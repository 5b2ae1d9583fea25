package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"smsglobe-go/internal/common"
	"smsglobe-go/internal/config"
	"smsglobe-go/internal/models"
	"smsglobe-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type demoUser struct {
	name    string
	email   string
	history []demoTransaction
}

type demoTransaction struct {
	txType      string
	amount      string
	description string
}

var demoUsers = []demoUser{
	{"Alice Johnson", "alice.johnson@example.com", []demoTransaction{
		{models.TransactionDeposit, "50", "Card top up"},
		{models.TransactionPurchase, "-1.49", "Telegram number"},
		{models.TransactionPurchase, "-0.14", "WhatsApp number"},
		{models.TransactionRefund, "0.14", "Refund for cancelled number"},
	}},
	{"Bob Smith", "bob.smith@example.com", []demoTransaction{
		{models.TransactionDeposit, "20", "Card top up"},
		{models.TransactionReferralBonus, "2", "Referral bonus"},
		{models.TransactionWithdrawal, "-10", "Payout"},
	}},
	{"Carol Williams", "carol.williams@example.com", []demoTransaction{
		{models.TransactionDeposit, "5", "Card top up"},
	}},
}

// seedUser creates the user when missing and replays its history. External
// refs make a re-run a no-op.
func seedUser(ctx context.Context, st store.LedgerStore, u demoUser) error {
	user, err := st.GetUserByEmail(ctx, u.email)
	if errors.Is(err, store.ErrUserNotFound) {
		user, err = st.CreateUser(ctx, uuid.New().String(), u.name, u.email)
	}
	if err != nil {
		return err
	}

	for i, tx := range u.history {
		_, err := st.ApplyTransaction(ctx, store.ApplyTransactionParams{
			UserId:      user.Id,
			Type:        tx.txType,
			Amount:      decimal.RequireFromString(tx.amount),
			Description: tx.description,
			ExternalRef: fmt.Sprintf("seed-%s-%d", user.Id, i),
		})
		if errors.Is(err, store.ErrDuplicateTransaction) {
			continue
		}
		if err != nil {
			return fmt.Errorf("seed transaction %d: %w", i, err)
		}
	}

	balance, err := st.GetUserBalance(ctx, user.Id)
	if err != nil {
		return err
	}
	fmt.Printf("✓ %-16s %-28s %10s\n", u.name, u.email, common.Money(balance))
	return nil
}

// injectDrift overwrites a stored balance so fixbalances has something to repair.
func injectDrift(ctx context.Context, st store.LedgerStore, email string, amount decimal.Decimal) error {
	user, err := st.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := st.SetBalance(ctx, user.Id, user.Balance.Add(amount), time.Now().UTC()); err != nil {
		return err
	}
	fmt.Printf("~ %s stored balance moved by %s\n", email, common.Money(amount))
	return nil
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	driftFlag := flag.String("drift", "", "After seeding, shift Alice's stored balance by this amount")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	st, err := common.InitializeStore(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize store", zap.Error(err))
	}
	defer st.Close()

	common.PrintHeader("SEEDING DEMO USERS", common.DefaultWidth)

	failed := 0
	for _, u := range demoUsers {
		if err := seedUser(ctx, st, u); err != nil {
			failed++
			zap.L().Error("Failed to seed user", zap.String("email", u.email), zap.Error(err))
		}
	}

	if *driftFlag != "" {
		amount, err := decimal.NewFromString(*driftFlag)
		if err != nil {
			zap.L().Fatal("Invalid drift amount", zap.String("drift", *driftFlag))
		}
		if err := injectDrift(ctx, st, demoUsers[0].email, amount); err != nil {
			zap.L().Error("Failed to inject drift", zap.Error(err))
		}
	}

	common.PrintFooter(fmt.Sprintf("SUMMARY: %d users seeded, %d failed", len(demoUsers)-failed, failed), common.DefaultWidth)
}
