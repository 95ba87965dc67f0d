package service

import (
	"context"

	"github.com/google/uuid"
)

// PaymentProvider abstracts the external card processor. The booking
// engine does not validate card details; it only interprets the
// outcome of a charge. The idempotency key lets a retried call after a
// timeout settle as the same charge on providers that support it.
type PaymentProvider interface {
	Charge(ctx context.Context, amountCents uint32, paymentToken, idempotencyKey string) (reference string, err error)
}

// SandboxPayments approves every charge and fabricates a reference.
// It stands in for the real provider in development and demo
// environments; production deployments wire their own implementation.
type SandboxPayments struct{}

func (SandboxPayments) Charge(ctx context.Context, amountCents uint32, paymentToken, idempotencyKey string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "sandbox-" + uuid.NewString(), nil
}
