package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/hubwatch/internal/domain"
)

func TestQueriesStatus(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	repo.seed(func(s domain.State) (domain.State, bool) {
		s.Orgs["acme"] = domain.OrgState{Models: []domain.ModelID{"acme/alpha", "acme/beta"}}
		s.Orgs["retired"] = domain.OrgState{Models: []domain.ModelID{"retired/old"}}
		s.Sessions["chat"] = domain.BattleSession{Conversation: "chat", State: domain.BattleJudging}
		s.Bank = []domain.Challenge{{Question: "q"}}
		return s, true
	})

	queries := NewQueries(repo, newFakeCatalog(), []domain.OrgKey{"acme", "globex"})

	report, err := queries.Status(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Orgs, 3)
	assert.Equal(t, OrgStatus{Org: "acme", Known: 2, Seeded: true}, report.Orgs[0])
	assert.Equal(t, OrgStatus{Org: "globex", Known: 0, Seeded: false}, report.Orgs[1])
	assert.Equal(t, OrgStatus{Org: "retired", Known: 1, Seeded: true}, report.Orgs[2])
	assert.Equal(t, 3, report.TotalKnown)
	assert.Equal(t, 1, report.ActiveSessions)
	assert.Equal(t, 1, report.BankSize)
}

func TestQueriesOrgCounts(t *testing.T) {
	t.Parallel()

	catalog := newFakeCatalog()
	catalog.counts["acme"] = 10
	catalog.counts["globex"] = 40

	queries := NewQueries(newMemoryRepo(), catalog, []domain.OrgKey{"acme", "globex"})

	counts, total, err := queries.OrgCounts(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 50, total)
	assert.Equal(t, []OrgCount{{Org: "globex", Count: 40}, {Org: "acme", Count: 10}}, counts)
}

func TestQueriesModelCard(t *testing.T) {
	t.Parallel()

	catalog := newFakeCatalog()
	catalog.models["acme/alpha"] = domain.Model{ID: "acme/alpha", Downloads: 5}

	queries := NewQueries(newMemoryRepo(), catalog, nil)

	card, err := queries.ModelCard(context.Background(), "acme/alpha")
	require.NoError(t, err)
	assert.Equal(t, int64(5), card.Downloads)

	_, err = queries.ModelCard(context.Background(), "acme/missing")
	assert.ErrorIs(t, err, domain.ErrModelNotFound)
}

func TestQueriesDeployEstimate(t *testing.T) {
	t.Parallel()

	catalog := newFakeCatalog()
	catalog.models["acme/alpha"] = domain.Model{
		ID:          "acme/alpha",
		Safetensors: map[string]int64{"F16": 1_000_000_000},
	}
	catalog.models["acme/empty"] = domain.Model{ID: "acme/empty"}

	queries := NewQueries(newMemoryRepo(), catalog, nil)

	est, ok, err := queries.DeployEstimate(context.Background(), "acme/alpha")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1_000_000_000), est.TotalParams)

	_, ok, err = queries.DeployEstimate(context.Background(), "acme/empty")
	require.NoError(t, err)
	assert.False(t, ok)
}
