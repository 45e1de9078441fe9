package entity

import (
	"context"

	"github.com/shopspring/decimal"

	"balancerScope/internal/model"
)

// Balancer loads the protocol totals row for vaultID, creating it on first
// use. The caller saves it.
func Balancer(ctx context.Context, s Store, vaultID string) (*model.Balancer, error) {
	if vaultID == "" {
		vaultID = DefaultVaultID
	}
	vault, err := Load[model.Balancer](ctx, s, vaultID)
	if err != nil {
		return nil, err
	}
	if vault != nil {
		return vault, nil
	}
	return &model.Balancer{
		ID:              vaultID,
		TotalLiquidity:  decimal.Zero,
		TotalSwapVolume: decimal.Zero,
		TotalSwapFee:    decimal.Zero,
	}, nil
}
