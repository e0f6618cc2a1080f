package ports

import (
	"context"
	"distance-request-service/internal/domain"
)

type WalletDetailsStore interface {
	GetWalletAdditionalDetails(ctx context.Context) (*domain.WalletAdditionalDetails, error)
	SetWalletAdditionalDetails(ctx context.Context, details *domain.WalletAdditionalDetails) error
}
