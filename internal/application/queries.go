package application

import (
	"context"
	"fmt"
	"sort"

	"github.com/bnema/hubwatch/internal/domain"
	"github.com/bnema/hubwatch/internal/ports"
)

// OrgStatus is one organisation's slice of the local watcher state.
type OrgStatus struct {
	Org    domain.OrgKey
	Known  int
	Seeded bool
}

// StatusReport is a snapshot of the persisted watcher state, for the
// status command.
type StatusReport struct {
	Orgs           []OrgStatus
	TotalKnown     int
	ActiveSessions int
	BankSize       int
}

// Queries answers read-only questions from the CLI and the chat commands.
type Queries struct {
	repo    ports.StateRepository
	catalog ports.ModelCatalog
	orgs    []domain.OrgKey
}

func NewQueries(repo ports.StateRepository, catalog ports.ModelCatalog, orgs []domain.OrgKey) *Queries {
	return &Queries{
		repo:    repo,
		catalog: catalog,
		orgs:    orgs,
	}
}

// Orgs returns the watched organisations in configured order.
func (q *Queries) Orgs() []domain.OrgKey {
	out := make([]domain.OrgKey, len(q.orgs))
	copy(out, q.orgs)
	return out
}

// Status reads the persisted state and summarises it per organisation.
// Configured organisations appear even before their first poll.
func (q *Queries) Status(ctx context.Context) (StatusReport, error) {
	state, err := q.repo.Load(ctx)
	if err != nil {
		return StatusReport{}, fmt.Errorf("load state: %w", err)
	}

	report := StatusReport{BankSize: len(state.Bank)}
	listed := make(map[domain.OrgKey]struct{}, len(q.orgs))
	for _, org := range q.orgs {
		listed[org] = struct{}{}
		st := state.Orgs[org]
		report.Orgs = append(report.Orgs, OrgStatus{
			Org:    org,
			Known:  len(st.Models),
			Seeded: state.Seeded(org),
		})
		report.TotalKnown += len(st.Models)
	}
	// State can know organisations that were since removed from config.
	var extras []OrgStatus
	for org, st := range state.Orgs {
		if _, ok := listed[org]; ok {
			continue
		}
		extras = append(extras, OrgStatus{Org: org, Known: len(st.Models), Seeded: true})
		report.TotalKnown += len(st.Models)
	}
	sort.Slice(extras, func(i, j int) bool { return extras[i].Org < extras[j].Org })
	report.Orgs = append(report.Orgs, extras...)

	for _, session := range state.Sessions {
		if !session.State.Terminal() {
			report.ActiveSessions++
		}
	}

	return report, nil
}

// OrgCounts fetches live model counts per organisation, sorted descending.
func (q *Queries) OrgCounts(ctx context.Context) ([]OrgCount, int, error) {
	counts := make([]OrgCount, 0, len(q.orgs))
	total := 0
	for _, org := range q.orgs {
		count, err := q.catalog.ModelCount(ctx, org)
		if err != nil {
			return nil, 0, fmt.Errorf("count models for %s: %w", org, err)
		}
		counts = append(counts, OrgCount{Org: org, Count: count})
		total += count
	}
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Count > counts[j].Count })

	return counts, total, nil
}

// ModelCard fetches the full record for one model.
func (q *Queries) ModelCard(ctx context.Context, id domain.ModelID) (domain.Model, error) {
	model, err := q.catalog.ModelInfo(ctx, id)
	if err != nil {
		return domain.Model{}, fmt.Errorf("fetch model info: %w", err)
	}

	return model, nil
}

// DeployEstimate fetches a model and sizes it for serving. The boolean is
// false when the model exposes no parameter metadata.
func (q *Queries) DeployEstimate(ctx context.Context, id domain.ModelID) (domain.DeployEstimate, bool, error) {
	model, err := q.catalog.ModelInfo(ctx, id)
	if err != nil {
		return domain.DeployEstimate{}, false, fmt.Errorf("fetch model info: %w", err)
	}

	estimate, ok := domain.EstimateDeploy(model)
	return estimate, ok, nil
}
