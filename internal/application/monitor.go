package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bnema/hubwatch/internal/domain"
	"github.com/bnema/hubwatch/internal/ports"
)

// Phase identifies where a polling cycle currently is. Phases only ever
// advance Idle -> FanOut -> Collect -> Commit and back to Idle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseFanOut
	PhaseCollect
	PhaseCommit
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseFanOut:
		return "fan-out"
	case PhaseCollect:
		return "collect"
	case PhaseCommit:
		return "commit"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// announcer delivers one new-model announcement. Delivery failures are the
// monitor's to log, never to retry: the commit already happened.
type announcer interface {
	Announce(ctx context.Context, model domain.Model) error
}

type MonitorConfig struct {
	Orgs []domain.OrgKey

	// Interval is the pause between cycle starts. A cycle that runs long
	// simply delays the next tick; cycles never overlap.
	Interval time.Duration

	// FetchTimeout bounds each per-organisation listing call.
	FetchTimeout time.Duration

	// Concurrency caps how many organisations are polled at once.
	Concurrency int
}

// Monitor polls the watched organisations on a fixed cadence, commits
// newly observed identifiers in a single state write per cycle, and then
// announces whatever that commit proved to be new.
type Monitor struct {
	repo     ports.StateRepository
	listings ports.ListingProvider
	announce announcer
	logger   *zap.Logger
	cfg      MonitorConfig

	mu    sync.Mutex
	phase Phase
}

func NewMonitor(repo ports.StateRepository, listings ports.ListingProvider, announce announcer, logger *zap.Logger, cfg MonitorConfig) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}

	return &Monitor{
		repo:     repo,
		listings: listings,
		announce: announce,
		logger:   logger,
		cfg:      cfg,
	}
}

// Phase reports the current cycle phase.
func (m *Monitor) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

func (m *Monitor) setPhase(p Phase) {
	m.mu.Lock()
	m.phase = p
	m.mu.Unlock()
}

// Run executes cycles until the context is cancelled. The first cycle
// starts immediately; later ones follow the configured interval.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		report, err := m.RunCycle(ctx)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.logger.Warn("polling cycle failed", zap.Error(err))
		default:
			m.logger.Debug("polling cycle finished",
				zap.Int("new_models", report.NewModels),
				zap.Int("seeded_orgs", report.SeededOrgs),
				zap.Int("failed_orgs", report.FailedOrgs))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// CycleReport summarises one completed polling cycle.
type CycleReport struct {
	NewModels  int
	SeededOrgs int
	FailedOrgs int
}

type orgResult struct {
	org     domain.OrgKey
	listing []domain.Model
	err     error
}

// RunCycle executes exactly one fan-out/collect/commit sequence. A failed
// organisation is skipped for the cycle and retried on the next tick; it
// never blocks the commit for the organisations that answered.
func (m *Monitor) RunCycle(ctx context.Context) (CycleReport, error) {
	if err := ctx.Err(); err != nil {
		return CycleReport{}, err
	}
	defer m.setPhase(PhaseIdle)

	m.setPhase(PhaseFanOut)
	snapshot, err := m.repo.Load(ctx)
	if err != nil {
		return CycleReport{}, fmt.Errorf("load state snapshot: %w", err)
	}

	results := make([]orgResult, len(m.cfg.Orgs))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(m.cfg.Concurrency)
	for i, org := range m.cfg.Orgs {
		group.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(groupCtx, m.cfg.FetchTimeout)
			defer cancel()

			listing, err := m.listings.ListRecent(fetchCtx, org)
			results[i] = orgResult{org: org, listing: listing, err: err}
			return nil
		})
	}
	// Poll errors travel through results; the group only observes ctx.
	_ = group.Wait()
	if err := ctx.Err(); err != nil {
		return CycleReport{}, err
	}

	m.setPhase(PhaseCollect)
	var report CycleReport
	for _, res := range results {
		if res.err != nil {
			report.FailedOrgs++
			m.logger.Warn("organisation poll failed",
				zap.String("org", string(res.org)), zap.Error(res.err))
			continue
		}
		if !snapshot.Seeded(res.org) {
			report.SeededOrgs++
			m.logger.Info("seeding first contact",
				zap.String("org", string(res.org)),
				zap.Int("models", len(res.listing)))
		}
	}

	m.setPhase(PhaseCommit)
	var toAnnounce []domain.Model
	_, err = m.repo.Commit(ctx, func(current domain.State) (domain.State, bool) {
		toAnnounce = toAnnounce[:0]
		changed := false
		for _, res := range results {
			if res.err != nil {
				continue
			}
			seeded := current.Seeded(res.org)
			// Re-diff against the committed document, not the cycle
			// snapshot: the commit decides what counts as new.
			newModels := DiffNew(current.KnownSet(res.org), res.listing)
			if seeded {
				toAnnounce = append(toAnnounce, newModels...)
			}
			if !seeded || len(newModels) > 0 {
				st := current.Orgs[res.org]
				current.Orgs[res.org] = domain.OrgState{
					Models: mergeKnown(st.Models, res.listing),
				}
				changed = true
			}
		}
		return current, changed
	})
	if err != nil {
		return report, fmt.Errorf("commit cycle: %w", err)
	}

	report.NewModels = len(toAnnounce)
	if m.announce == nil {
		return report, nil
	}
	// Oldest first, so a burst of releases reads chronologically.
	for i := len(toAnnounce) - 1; i >= 0; i-- {
		model := toAnnounce[i]
		if model.ID.IsDerivative() {
			m.logger.Debug("skipping derivative model", zap.String("model", string(model.ID)))
			continue
		}
		if err := m.announce.Announce(ctx, model); err != nil {
			m.logger.Warn("announcement failed",
				zap.String("model", string(model.ID)), zap.Error(err))
		}
	}

	return report, nil
}
