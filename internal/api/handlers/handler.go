package handlers

import (
	"context"

	"go.uber.org/zap"

	"github.com/rddigitech/dashboard-api/internal/core"
)

// Reporter builds the dashboard report for an authorized tenant.
type Reporter interface {
	GetResults(ctx context.Context, tenant string, windowDays int) (*core.ResponsePayload, error)
}

type Handler struct {
	reporter Reporter
	logger   *zap.Logger
}

func NewHandler(reporter Reporter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		reporter: reporter,
		logger:   logger,
	}
}
