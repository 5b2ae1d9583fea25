package formance

import (
	"context"
	"fmt"
	"sort"
	"time"

	"smsglobe-go/internal/reconcile"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	reconciliationAccount = "platform:reconciliation"
	eventBalanceCorrection = "balance_correction"
)

// The platform side may go negative; the user side may too when a
// correction lowers a balance, since the ledger only tracks the corrections.
const numscriptBalanceCorrection = `vars {
  asset $asset
  number $amount
  account $source
  account $destination
  string $user_id
  string $old_balance
  string $new_balance
  string $run_id
  string $fixed_at
}

send [$asset $amount] (
  source = $source allowing unbounded overdraft
  destination = $destination
)

set_tx_meta("event_type", "balance_correction")
set_tx_meta("user_id", $user_id)
set_tx_meta("old_balance", $old_balance)
set_tx_meta("new_balance", $new_balance)
set_tx_meta("run_id", $run_id)
set_tx_meta("fixed_at", $fixed_at)
`

func userAccount(userId string) string {
	return "users:" + userId
}

// correctionPostings returns the accounts money moves between and the amount
// in smallest units. A raised balance flows from the platform to the user.
func correctionPostings(c reconcile.Correction, asset string) (source, destination, amount string) {
	diff := c.NewBalance.Sub(c.OldBalance)
	amount = diff.Abs().Shift(int32(precisionFor(asset))).Round(0).BigInt().String()
	if diff.IsNegative() {
		return userAccount(c.UserId), reconciliationAccount, amount
	}
	return reconciliationAccount, userAccount(c.UserId), amount
}

func correctionReference(c reconcile.Correction) string {
	if c.RunId != "" {
		return fmt.Sprintf("fix-%s-%s", c.RunId, c.UserId)
	}
	return fmt.Sprintf("fix-%s-%d", c.UserId, c.FixedAt.UnixNano())
}

// RecordBalanceFix posts one correction. Replaying the same run is a no-op.
func (j *Journal) RecordBalanceFix(ctx context.Context, c reconcile.Correction) error {
	source, destination, amount := correctionPostings(c, j.asset)
	if amount == "0" {
		return nil
	}

	postTx := shared.V2PostTransaction{
		Reference: strPtr(correctionReference(c)),
		Script: &shared.V2PostTransactionScript{
			Plain: numscriptBalanceCorrection,
			Vars: map[string]string{
				"asset":       formanceAsset(j.asset),
				"amount":      amount,
				"source":      source,
				"destination": destination,
				"user_id":     c.UserId,
				"old_balance": c.OldBalance.String(),
				"new_balance": c.NewBalance.String(),
				"run_id":      c.RunId,
				"fixed_at":    c.FixedAt.UTC().Format(time.RFC3339Nano),
			},
		},
	}
	if !c.FixedAt.IsZero() {
		ts := c.FixedAt
		postTx.Timestamp = &ts
	}

	_, err := j.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
		Ledger:            j.ledger,
		V2PostTransaction: postTx,
	})
	if err != nil {
		if isConflictError(err) {
			return nil
		}
		return fmt.Errorf("failed to record balance correction: %w", err)
	}

	zap.L().Info("Balance correction journaled",
		zap.String("user_id", c.UserId),
		zap.String("old_balance", c.OldBalance.String()),
		zap.String("new_balance", c.NewBalance.String()),
		zap.String("run_id", c.RunId))
	return nil
}

// ListCorrections returns the journaled corrections of a user, newest first.
func (j *Journal) ListCorrections(ctx context.Context, userId string, limit int) ([]reconcile.Correction, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	pageSize := int64(limit)
	addr := userAccount(userId)

	resp, err := j.client.Ledger.V2.ListTransactions(ctx, operations.V2ListTransactionsRequest{
		Ledger:   j.ledger,
		PageSize: &pageSize,
		RequestBody: map[string]any{
			"$or": []any{
				map[string]any{"$match": map[string]any{"source": addr}},
				map[string]any{"$match": map[string]any{"destination": addr}},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list corrections: %w", err)
	}

	var corrections []reconcile.Correction
	for _, tx := range resp.V2TransactionsCursorResponse.Cursor.Data {
		c, ok := correctionFromMetadata(tx.Metadata, tx.Timestamp)
		if !ok {
			continue
		}
		corrections = append(corrections, c)
	}
	sort.SliceStable(corrections, func(a, b int) bool {
		return corrections[a].FixedAt.After(corrections[b].FixedAt)
	})
	return corrections, nil
}

func correctionFromMetadata(meta map[string]string, ts time.Time) (reconcile.Correction, bool) {
	if meta["event_type"] != eventBalanceCorrection {
		return reconcile.Correction{}, false
	}
	oldBalance, err := decimal.NewFromString(meta["old_balance"])
	if err != nil {
		return reconcile.Correction{}, false
	}
	newBalance, err := decimal.NewFromString(meta["new_balance"])
	if err != nil {
		return reconcile.Correction{}, false
	}
	fixedAt := ts
	if parsed, err := time.Parse(time.RFC3339Nano, meta["fixed_at"]); err == nil {
		fixedAt = parsed
	}
	return reconcile.Correction{
		UserId:     meta["user_id"],
		OldBalance: oldBalance,
		NewBalance: newBalance,
		FixedAt:    fixedAt,
		RunId:      meta["run_id"],
	}, true
}
