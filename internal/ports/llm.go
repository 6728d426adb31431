package ports

import (
	"context"

	"github.com/bnema/hubwatch/internal/domain"
)

// ChallengeGenerator produces battle challenges. GenerateBank is used to
// pre-fill the persisted challenge bank.
type ChallengeGenerator interface {
	Generate(ctx context.Context) (domain.Challenge, error)
	GenerateBank(ctx context.Context, count int) ([]domain.Challenge, error)
}

// Responder is the opposing model: it answers a challenge question.
type Responder interface {
	Answer(ctx context.Context, question string) (string, error)
}

// Judge grades the responder's answer against the challenge and phrases a
// verdict for the conversation.
type Judge interface {
	Verdict(ctx context.Context, challenge domain.Challenge, answer string) (string, error)
}

// Summarizer phrases a short announcement summary from a model's README.
type Summarizer interface {
	Summarize(ctx context.Context, id domain.ModelID, readme string) (string, error)
}
