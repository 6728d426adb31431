package ports

import (
	"context"

	"github.com/bnema/hubwatch/internal/domain"
)

// ListingProvider fetches the current model listing of one watched
// organisation in the source's native (recency) order. Failures are
// domain.ErrSourceUnavailable or domain.ErrSourceMalformed; an empty
// listing is a valid result, not an error.
type ListingProvider interface {
	ListRecent(ctx context.Context, org domain.OrgKey) ([]domain.Model, error)
}

// ModelCatalog answers one-shot queries about individual models and
// organisation totals, used by chat commands and the announcer.
type ModelCatalog interface {
	ModelInfo(ctx context.Context, id domain.ModelID) (domain.Model, error)
	Readme(ctx context.Context, id domain.ModelID) (string, error)
	ModelCount(ctx context.Context, org domain.OrgKey) (int, error)
}
