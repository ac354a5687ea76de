// Package adapter provides HTTP clients for the external ownership and
// pricing sources, and the fallback policies layered on top of them.
// Upstream schemas never leak past this package: every client normalizes
// its responses into the shapes defined in internal/types.
package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/uxmeas/kollects-io/internal/logging"
	"github.com/uxmeas/kollects-io/internal/retry"
	"github.com/uxmeas/kollects-io/internal/types"
)

// MomentSource is an upstream that can list the moments owned by an address
type MomentSource interface {
	// Name returns the source name for logging
	Name() string

	// FetchMoments returns all moments held by the address. An empty
	// slice is a valid result for an empty wallet, distinct from an error.
	FetchMoments(ctx context.Context, address string) ([]types.Moment, error)
}

// OwnershipResolver resolves the set of moments owned by a wallet from a
// primary source, falling back to a secondary lower-fidelity source when
// the primary fails. It is stateless across calls.
type OwnershipResolver struct {
	primary   MomentSource
	secondary MomentSource
	timeout   time.Duration
	retryCfg  *retry.Config
}

// OwnershipResolverConfig configures an OwnershipResolver
type OwnershipResolverConfig struct {
	Primary     MomentSource
	Secondary   MomentSource
	Timeout     time.Duration // per-source request timeout
	MaxAttempts int           // attempts against the primary before falling back
}

// NewOwnershipResolver creates a new ownership resolver
func NewOwnershipResolver(cfg *OwnershipResolverConfig) (*OwnershipResolver, error) {
	if cfg.Primary == nil || cfg.Secondary == nil {
		return nil, fmt.Errorf("both primary and secondary ownership sources are required")
	}

	retryCfg := retry.DefaultConfig()
	if cfg.MaxAttempts > 0 {
		retryCfg.MaxAttempts = cfg.MaxAttempts
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &OwnershipResolver{
		primary:   cfg.Primary,
		secondary: cfg.Secondary,
		timeout:   timeout,
		retryCfg:  retryCfg,
	}, nil
}

// Resolve returns the moments owned by address. A malformed address fails
// fast with INVALID_ADDRESS and no network call. An empty wallet returns an
// empty slice, not an error. Both sources failing returns SOURCE_UNAVAILABLE
// carrying both causes.
func (r *OwnershipResolver) Resolve(ctx context.Context, address string) ([]types.Moment, error) {
	if !types.IsValidFlowAddress(address) {
		return nil, &types.ServiceError{
			Code:    "INVALID_ADDRESS",
			Message: fmt.Sprintf("invalid wallet address format: %s", address),
			Details: map[string]interface{}{"address": address},
		}
	}

	logger := logging.FromContext(ctx)

	var moments []types.Moment
	primaryErr := retry.Do(ctx, r.retryCfg, func(ctx context.Context, attempt int) error {
		fetchCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		var err error
		moments, err = r.primary.FetchMoments(fetchCtx, address)
		return err
	})
	if primaryErr == nil {
		return moments, nil
	}

	logger.WithFields(map[string]interface{}{
		"address": address,
		"source":  r.primary.Name(),
		"error":   primaryErr.Error(),
	}).Warn("Primary ownership source failed, falling back to secondary")

	fetchCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	moments, secondaryErr := r.secondary.FetchMoments(fetchCtx, address)
	if secondaryErr == nil {
		return moments, nil
	}

	return nil, &types.ServiceError{
		Code:    "SOURCE_UNAVAILABLE",
		Message: "all ownership sources are unavailable",
		Details: map[string]interface{}{
			"address":   address,
			"primary":   primaryErr.Error(),
			"secondary": secondaryErr.Error(),
		},
	}
}
