package secrets

import (
	"context"
	"errors"

	"github.com/bnema/hubwatch/internal/ports"
)

// Chain tries each source in order and returns the first hit.
type Chain struct {
	sources []ports.SecretSource
}

var _ ports.SecretSource = (*Chain)(nil)

func NewChain(sources ...ports.SecretSource) *Chain {
	return &Chain{sources: sources}
}

// NewPassFirstWithFileFallback is the default credential lookup: pass(1)
// first, then plain files under fileRoot.
func NewPassFirstWithFileFallback(fileRoot string) *Chain {
	return NewChain(NewPassStore(), NewFileStore(fileRoot))
}

func (c *Chain) Get(ctx context.Context, key string) (string, error) {
	if len(c.sources) == 0 {
		return "", errors.New("no secret sources configured")
	}

	var errs []error
	for _, source := range c.sources {
		value, err := source.Get(ctx, key)
		if err == nil {
			return value, nil
		}
		errs = append(errs, err)
	}

	return "", errors.Join(errs...)
}
