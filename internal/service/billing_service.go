package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/smallbiznis/launchpad/internal/adapter/bancard"
)

// BillingService starts subscription payment flows with the provider.
type BillingService struct {
	provider bancard.Client
	logger   *zap.Logger
}

// NewBillingService wires the payment provider client.
func NewBillingService(provider bancard.Client, logger *zap.Logger) *BillingService {
	return &BillingService{provider: provider, logger: logger}
}

// StartSubscription requests a payment process for the plan and returns the
// provider's process ID.
func (s *BillingService) StartSubscription(ctx context.Context, userID int64, plan string) (string, error) {
	processID, err := s.provider.CreateCatastroRequest(ctx, userID, plan)
	if err != nil {
		return "", fmt.Errorf("create payment process: %w", err)
	}
	s.logger.Info("subscription payment started",
		zap.Int64("user_id", userID),
		zap.String("plan", plan),
		zap.String("process_id", processID),
	)
	return processID, nil
}
