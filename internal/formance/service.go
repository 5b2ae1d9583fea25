package formance

import (
	"context"
	"errors"
	"fmt"

	"smsglobe-go/internal/models"
	"smsglobe-go/internal/reconcile"

	v3 "github.com/formancehq/formance-sdk-go/v3"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/sdkerrors"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"go.uber.org/zap"
)

// Compile-time check: *Journal must satisfy reconcile.CorrectionJournal.
var _ reconcile.CorrectionJournal = (*Journal)(nil)

const defaultLedgerName = "smsglobe-corrections"

// assetPrecision maps currency symbols to their decimal precision.
var assetPrecision = map[string]int{
	"USD": 2,
	"RUB": 2,
	"EUR": 2,
}

// Journal mirrors every balance correction into a Formance ledger so fixes
// can be audited independently of the application database.
type Journal struct {
	client *v3.Formance
	ledger string
	asset  string
}

// NewJournal connects to the stack and creates the ledger when it does not exist yet.
func NewJournal(ctx context.Context, cfg models.FormanceConfig) (*Journal, error) {
	if cfg.StackURL == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("formance config requires StackURL, ClientID, and ClientSecret")
	}
	if cfg.LedgerName == "" {
		cfg.LedgerName = defaultLedgerName
	}

	zap.L().Info("Connecting to Formance Stack",
		zap.String("stack_url", cfg.StackURL),
		zap.String("ledger", cfg.LedgerName))

	client := v3.New(
		v3.WithServerURL(cfg.StackURL),
		v3.WithSecurity(shared.Security{
			ClientID:     v3.Pointer(cfg.ClientID),
			ClientSecret: v3.Pointer(cfg.ClientSecret),
		}),
	)

	j := &Journal{client: client, ledger: cfg.LedgerName, asset: "USD"}
	if err := j.ensureLedger(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure ledger exists: %w", err)
	}

	zap.L().Info("Correction journal initialized", zap.String("ledger", cfg.LedgerName))
	return j, nil
}

func (j *Journal) ensureLedger(ctx context.Context) error {
	_, err := j.client.Ledger.V2.CreateLedger(ctx, operations.V2CreateLedgerRequest{
		Ledger: j.ledger,
		V2CreateLedgerRequest: shared.V2CreateLedgerRequest{
			Metadata: map[string]string{
				"application": "smsglobe",
				"purpose":     "balance-corrections",
			},
		},
	})
	if err != nil {
		var apiErr *sdkerrors.V2ErrorResponse
		if errors.As(err, &apiErr) && apiErr.ErrorCode == shared.V2ErrorsEnumLedgerAlreadyExists {
			zap.L().Info("Ledger already exists", zap.String("ledger", j.ledger))
			return nil
		}
		return err
	}
	zap.L().Info("Ledger created", zap.String("ledger", j.ledger))
	return nil
}

// formanceAsset returns the Formance UMN notation, e.g. "USD/2".
func formanceAsset(symbol string) string {
	return fmt.Sprintf("%s/%d", symbol, precisionFor(symbol))
}

func precisionFor(symbol string) int {
	if p, ok := assetPrecision[symbol]; ok {
		return p
	}
	return 2
}

// isConflictError checks whether a Formance SDK error is a CONFLICT (duplicate reference).
func isConflictError(err error) bool {
	var apiErr *sdkerrors.V2ErrorResponse
	return errors.As(err, &apiErr) && apiErr.ErrorCode == shared.V2ErrorsEnumConflict
}

func strPtr(s string) *string { return &s }
