package payments

import (
	"context"

	"github.com/google/uuid"
)

// ManualProvider records cash or bank-transfer payments that staff confirm
// by hand. Intents settle immediately; there is no external processor.
type ManualProvider struct{}

func (ManualProvider) Name() string { return "manual" }

func (ManualProvider) CreateIntent(_ context.Context, _ int64, _, _ string) (*Intent, error) {
	return &Intent{Ref: "manual_" + uuid.NewString()}, nil
}

func (ManualProvider) Confirm(_ context.Context, _ string) error {
	return nil
}
