// Package bancard stubs the vPOS payment provider integration. The real
// integration posts catastro requests to Bancard's API; until that lands this
// client fabricates process IDs so the billing flow can be exercised
// end to end.
package bancard

import (
	"context"

	"github.com/google/uuid"
)

// Client creates payment processes with the provider.
type Client interface {
	CreateCatastroRequest(ctx context.Context, userID int64, plan string) (string, error)
}

// StubClient returns placeholder process IDs without calling the provider.
type StubClient struct{}

// NewStubClient constructs the placeholder client.
func NewStubClient() *StubClient {
	return &StubClient{}
}

// CreateCatastroRequest fabricates a process ID.
func (c *StubClient) CreateCatastroRequest(ctx context.Context, userID int64, plan string) (string, error) {
	return "dummy_process_id_" + uuid.NewString(), nil
}
