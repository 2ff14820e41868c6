package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/marketing-insight/backend/internal/metrics"
	"github.com/marketing-insight/backend/pkg/logger"
)

var (
	// ErrNoModelPriority means no preference list was supplied by the
	// caller, the config file, or the environment.
	ErrNoModelPriority = errors.New("no model priority configured")

	// ErrNoUsableModel means the provider catalog holds no model that
	// supports generation.
	ErrNoUsableModel = errors.New("no usable model available")
)

// Resolver picks a working model from the provider catalog by strict ordered
// fallback: first preferred match, then the first experimental-tier model,
// then the first available one. Ties break by catalog order.
type Resolver struct {
	provider   Provider
	configured []string
}

// NewResolver captures the configured preference list once at construction;
// it is not re-read per call.
func NewResolver(provider Provider, configured []string) *Resolver {
	return &Resolver{
		provider:   provider,
		configured: configured,
	}
}

func (r *Resolver) ResolveModel(ctx context.Context, preferred []string) (string, error) {
	priority := preferred
	if len(priority) == 0 {
		priority = r.configured
	}
	if len(priority) == 0 {
		return "", ErrNoModelPriority
	}

	catalog, err := r.provider.ListModels(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list models: %w", err)
	}

	var available []ModelInfo
	for _, m := range catalog {
		if m.SupportsGenerate() {
			available = append(available, m)
		}
	}

	for _, want := range priority {
		for _, m := range available {
			if m.ID == want {
				metrics.ModelResolutions.WithLabelValues("preferred").Inc()
				logger.Debug("Model resolved from priority list", zap.String("model", m.ID))
				return m.ID, nil
			}
		}
	}

	for _, m := range available {
		if strings.Contains(m.ID, "exp") {
			metrics.ModelResolutions.WithLabelValues("experimental").Inc()
			logger.Warn("No preferred model available, using experimental model",
				zap.String("model", m.ID),
				zap.Strings("priority", priority),
			)
			return m.ID, nil
		}
	}

	if len(available) > 0 {
		metrics.ModelResolutions.WithLabelValues("fallback").Inc()
		logger.Warn("No preferred or experimental model available, using first model",
			zap.String("model", available[0].ID),
			zap.Strings("priority", priority),
		)
		return available[0].ID, nil
	}

	return "", ErrNoUsableModel
}
