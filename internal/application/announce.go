package application

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bnema/hubwatch/internal/domain"
	"github.com/bnema/hubwatch/internal/ports"
)

// Announcer turns one newly detected model into chat messages: the
// notification itself, then best-effort extras (a README digest and a GPU
// sizing estimate). Only the notification's delivery error propagates;
// the extras are garnish and just get logged.
type Announcer struct {
	notifier   ports.Notifier
	catalog    ports.ModelCatalog
	summarizer ports.Summarizer
	logger     *zap.Logger
}

func NewAnnouncer(notifier ports.Notifier, catalog ports.ModelCatalog, summarizer ports.Summarizer, logger *zap.Logger) *Announcer {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Announcer{
		notifier:   notifier,
		catalog:    catalog,
		summarizer: summarizer,
		logger:     logger,
	}
}

func (a *Announcer) Announce(ctx context.Context, model domain.Model) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := a.notifier.Send(ctx, FormatNewModel(model)); err != nil {
		return fmt.Errorf("send new model notification: %w", err)
	}

	a.sendSummary(ctx, model.ID)
	a.sendDeployEstimate(ctx, model.ID)

	return nil
}

func (a *Announcer) sendSummary(ctx context.Context, id domain.ModelID) {
	if a.summarizer == nil || a.catalog == nil {
		return
	}

	readme, err := a.catalog.Readme(ctx, id)
	if err != nil {
		a.logger.Debug("readme fetch failed", zap.String("model", string(id)), zap.Error(err))
		return
	}
	if readme == "" {
		return
	}

	summary, err := a.summarizer.Summarize(ctx, id, readme)
	if err != nil {
		a.logger.Debug("summary generation failed", zap.String("model", string(id)), zap.Error(err))
		return
	}
	if summary == "" {
		return
	}

	if err := a.notifier.Send(ctx, FormatSummary(id, summary)); err != nil {
		a.logger.Warn("summary delivery failed", zap.String("model", string(id)), zap.Error(err))
	}
}

func (a *Announcer) sendDeployEstimate(ctx context.Context, id domain.ModelID) {
	if a.catalog == nil {
		return
	}

	// The listing payload omits safetensors metadata, so the estimate
	// needs the full model record.
	model, err := a.catalog.ModelInfo(ctx, id)
	if err != nil {
		a.logger.Debug("model info fetch failed", zap.String("model", string(id)), zap.Error(err))
		return
	}

	estimate, ok := domain.EstimateDeploy(model)
	if !ok {
		return
	}

	if err := a.notifier.Send(ctx, FormatDeploy(id, estimate)); err != nil {
		a.logger.Warn("deploy estimate delivery failed", zap.String("model", string(id)), zap.Error(err))
	}
}
