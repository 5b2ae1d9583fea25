package formance

import (
	"context"
	"fmt"
	"math/big"

	v3 "github.com/formancehq/formance-sdk-go/v3"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// NetCorrection returns the sum of every correction applied to a user:
// positive when fixes raised the balance overall.
func (j *Journal) NetCorrection(ctx context.Context, userId string) (decimal.Decimal, error) {
	vols, err := j.getAccountVolumes(ctx, userAccount(userId))
	if err != nil {
		return decimal.Zero, err
	}
	if bal := volumeBalance(vols, formanceAsset(j.asset)); bal != nil {
		return bigIntToDecimal(bal, j.asset), nil
	}
	return decimal.Zero, nil
}

// getAccountVolumes fetches volumes for a single account via GetAccount.
func (j *Journal) getAccountVolumes(ctx context.Context, address string) (map[string]shared.V2Volume, error) {
	zap.L().Debug("Getting account volumes from Formance", zap.String("address", address))

	resp, err := j.client.Ledger.V2.GetAccount(ctx, operations.V2GetAccountRequest{
		Ledger:  j.ledger,
		Address: address,
		Expand:  v3.Pointer("volumes"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", address, err)
	}
	return resp.V2AccountResponse.Data.Volumes, nil
}

// volumeBalance extracts the balance for a specific asset from volumes.
func volumeBalance(vols map[string]shared.V2Volume, fAsset string) *big.Int {
	vol, ok := vols[fAsset]
	if !ok {
		return nil
	}
	if vol.Balance != nil {
		return vol.Balance
	}
	if vol.Input == nil {
		return nil
	}
	result := new(big.Int).Set(vol.Input)
	if vol.Output != nil {
		result.Sub(result, vol.Output)
	}
	return result
}

// bigIntToDecimal converts a *big.Int in smallest units to a decimal amount.
func bigIntToDecimal(raw *big.Int, symbol string) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -int32(precisionFor(symbol)))
}
