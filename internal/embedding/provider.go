package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// Provider produces vectors from a primary (remote) embedder and falls back
// once to a secondary (local) embedder when the primary fails for any reason.
type Provider struct {
	primary          Embedder
	secondary        Embedder
	timeout          time.Duration
	secondaryTimeout time.Duration
	logger           *slog.Logger
}

// NewProvider creates a two-tier provider. Either tier may be nil. timeout
// bounds each primary call; zero disables the bound.
func NewProvider(primary, secondary Embedder, timeout time.Duration, logger *slog.Logger) *Provider {
	return &Provider{
		primary:   primary,
		secondary: secondary,
		timeout:   timeout,
		logger:    logger,
	}
}

// WithSecondaryTimeout bounds each secondary call by d; zero disables the
// bound.
func (p *Provider) WithSecondaryTimeout(d time.Duration) *Provider {
	p.secondaryTimeout = d
	return p
}

// Embed normalizes text and returns a vector tagged with the model that
// produced it. It fails with ErrEmbeddingUnavailable only when both tiers
// fail, and with the context error when ctx itself is done.
func (p *Provider) Embed(ctx context.Context, text string) (Result, error) {
	text = NormalizeText(text)

	primaryErr := errors.New("no primary embedder configured")
	if p.primary != nil {
		vec, err := p.embedPrimary(ctx, text)
		if err == nil {
			return Result{Vector: vec, Model: p.primary.Model(), Tier: TierRemote}, nil
		}
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		p.logger.Warn("primary embedding failed, falling back to local model",
			"model", p.primary.Model(),
			"error", err,
		)
		primaryErr = err
	}

	if p.secondary == nil {
		return Result{}, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, primaryErr)
	}

	vec, err := p.embedSecondary(ctx, text)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		p.logger.Error("local embedding failed",
			"model", p.secondary.Model(),
			"error", err,
		)
		return Result{}, fmt.Errorf("%w: primary: %v; secondary: %v", ErrEmbeddingUnavailable, primaryErr, err)
	}
	return Result{Vector: vec, Model: p.secondary.Model(), Tier: TierLocal}, nil
}

// Models lists the model tags of the configured tiers, primary first.
func (p *Provider) Models() []string {
	var models []string
	if p.primary != nil {
		models = append(models, p.primary.Model())
	}
	if p.secondary != nil {
		models = append(models, p.secondary.Model())
	}
	return models
}

func (p *Provider) embedPrimary(ctx context.Context, text string) ([]float32, error) {
	return embedWithin(ctx, p.primary, p.timeout, text)
}

func (p *Provider) embedSecondary(ctx context.Context, text string) ([]float32, error) {
	return embedWithin(ctx, p.secondary, p.secondaryTimeout, text)
}

func embedWithin(ctx context.Context, e Embedder, timeout time.Duration, text string) ([]float32, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	vec, err := e.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := checkVector(vec); err != nil {
		return nil, err
	}
	return vec, nil
}

func checkVector(vec []float32) error {
	if len(vec) == 0 {
		return errors.New("empty vector")
	}
	for i, f := range vec {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return fmt.Errorf("non-finite value at index %d", i)
		}
	}
	return nil
}
