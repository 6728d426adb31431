package ports

import (
	"context"

	"github.com/bnema/hubwatch/internal/domain"
)

// Mutator receives a copy of the most recently committed state and returns
// the next state. Returning changed == false skips the durable write.
type Mutator func(domain.State) (domain.State, bool)

// StateRepository owns the persisted document. Commits are serialized:
// concurrent callers queue, and each mutator observes the state left by the
// previous commit. The on-disk document is replaced atomically, so an
// observer at any instant sees either the old or the new document in full.
type StateRepository interface {
	Load(ctx context.Context) (domain.State, error)
	Commit(ctx context.Context, mutate Mutator) (domain.State, error)
}
