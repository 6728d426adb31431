package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bnema/hubwatch/internal/adapters/openrouter"
	"github.com/bnema/hubwatch/internal/adapters/secrets"
	"github.com/bnema/hubwatch/internal/adapters/staterepo"
	"github.com/bnema/hubwatch/internal/adapters/telegram"
	"github.com/bnema/hubwatch/internal/application"
	"github.com/bnema/hubwatch/internal/domain"
	"github.com/bnema/hubwatch/internal/logging"
	"github.com/bnema/hubwatch/internal/ports"
)

func newRunCmd(a *app) *cobra.Command {
	var resetOnCorrupt bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the watcher daemon",
		Long:  "Polls the configured organisations, announces new models to the Telegram chat, and serves chat commands until interrupted.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemon(cmd.Context(), a, resetOnCorrupt)
		},
	}
	cmd.Flags().BoolVar(&resetOnCorrupt, "reset-on-corrupt", false, "discard the state file and start fresh if it cannot be parsed")

	return cmd
}

func runDaemon(parent context.Context, a *app, resetOnCorrupt bool) error {
	logger, err := logging.New(a.cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	resolveCredentials(ctx, a, logger)
	if err := a.cfg.RequireTelegram(); err != nil {
		return err
	}

	repo, err := checkState(ctx, a, resetOnCorrupt, logger)
	if err != nil {
		return err
	}

	sender := telegram.NewSender("", a.cfg.TelegramToken, a.cfg.TelegramChatID, a.httpClient, a.cfg.FetchTimeout)
	// nil lets the listener build its own client, sized for the long-poll
	// window; the shared client has no timeout of its own.
	listener := telegram.NewListener("", a.cfg.TelegramToken, "", nil, sender, logger)

	llm := openrouter.New(openrouter.Config{
		APIKey:         a.cfg.OpenRouterAPIKey,
		GeneratorModel: a.cfg.GeneratorModel,
		ResponderModel: a.cfg.ResponderModel,
	})

	var summarizer ports.Summarizer
	if llm.Available() {
		summarizer = llm
	}
	announcer := application.NewAnnouncer(sender, a.hub, summarizer, logger)
	monitor := application.NewMonitor(repo, a.hub, announcer, logger, application.MonitorConfig{
		Orgs:         a.cfg.OrgKeys(),
		Interval:     a.cfg.PollInterval,
		FetchTimeout: a.cfg.FetchTimeout,
		Concurrency:  a.cfg.Concurrency,
	})
	battle := application.NewBattle(repo, llm, llm, llm, nil, logger, application.BattleConfig{
		StageTimeout: a.cfg.BattleTimeout,
	})
	battle.SetProgress(func(ctx context.Context, conv domain.ConversationKey, text string) {
		if err := sender.SendTo(ctx, conv, text); err != nil {
			logger.Warn("battle progress delivery failed", zap.Error(err))
		}
	})
	defer battle.Wait()

	if err := battle.Recover(ctx); err != nil {
		return err
	}
	if llm.Available() {
		if err := battle.RefillBank(ctx); err != nil {
			logger.Warn("initial challenge bank fill failed", zap.Error(err))
		}
	}

	queries := application.NewQueries(repo, a.hub, a.cfg.OrgKeys())
	registerHandlers(listener, queries, battle, llm.Available())

	logger.Info("watcher starting",
		zap.Int("orgs", len(a.cfg.Orgs)),
		zap.Duration("interval", a.cfg.PollInterval),
		zap.String("state", a.cfg.StatePath))

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return monitor.Run(groupCtx) })
	group.Go(func() error { return listener.Run(groupCtx) })

	err = group.Wait()
	if errors.Is(err, context.Canceled) {
		logger.Info("watcher stopped")
		return nil
	}

	return err
}

// resolveCredentials fills credentials missing from config and environment
// from pass(1), falling back to files next to the config. Lookups are best
// effort; RequireTelegram still decides whether the daemon can start.
func resolveCredentials(ctx context.Context, a *app, logger *zap.Logger) {
	source := secrets.NewPassFirstWithFileFallback(filepath.Join(filepath.Dir(a.cfg.StatePath), "secrets"))

	lookup := func(target *string, key string) {
		if *target != "" {
			return
		}
		value, err := source.Get(ctx, key)
		if err != nil {
			logger.Debug("secret lookup missed", zap.String("key", key), zap.Error(err))
			return
		}
		*target = value
	}

	lookup(&a.cfg.TelegramToken, "hubwatch/telegram_token")
	lookup(&a.cfg.TelegramChatID, "hubwatch/telegram_chat_id")
	lookup(&a.cfg.OpenRouterAPIKey, "hubwatch/openrouter_api_key")
}

// checkState verifies the state file is readable before any goroutine
// starts, optionally discarding a corrupt file.
func checkState(ctx context.Context, a *app, resetOnCorrupt bool, logger *zap.Logger) (*staterepo.Repository, error) {
	if _, err := a.repo.Load(ctx); err != nil {
		if !errors.Is(err, domain.ErrStateCorrupt) || !resetOnCorrupt {
			return nil, fmt.Errorf("load state: %w", err)
		}
		logger.Warn("state file corrupt, resetting", zap.String("path", a.cfg.StatePath), zap.Error(err))
		if err := os.Remove(a.cfg.StatePath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("remove corrupt state file: %w", err)
		}
	}

	return a.repo, nil
}

func registerHandlers(listener *telegram.Listener, queries *application.Queries, battle *application.Battle, llmAvailable bool) {
	help := func(ctx context.Context, conv domain.ConversationKey, args string) (string, error) {
		return application.FormatHelp(), nil
	}
	listener.Handle("start", help)
	listener.Handle("help", help)

	listener.Handle("orgs", func(ctx context.Context, conv domain.ConversationKey, args string) (string, error) {
		return application.FormatOrgs(queries.Orgs()), nil
	})

	listener.Handle("stats", func(ctx context.Context, conv domain.ConversationKey, args string) (string, error) {
		counts, total, err := queries.OrgCounts(ctx)
		if err != nil {
			return application.FormatError(), nil
		}
		return application.FormatStats(counts, total), nil
	})

	listener.Handle("info", func(ctx context.Context, conv domain.ConversationKey, args string) (string, error) {
		arg := strings.TrimSpace(args)
		if arg == "" {
			return application.FormatInfoUsage(), nil
		}
		id, err := parseModelID(arg)
		if err != nil {
			return application.FormatModelNotFound(arg), nil
		}
		card, err := queries.ModelCard(ctx, id)
		switch {
		case errors.Is(err, domain.ErrModelNotFound):
			return application.FormatModelNotFound(arg), nil
		case err != nil:
			return application.FormatError(), nil
		}
		return application.FormatModelCard(card), nil
	})

	listener.Handle("deploy", func(ctx context.Context, conv domain.ConversationKey, args string) (string, error) {
		arg := strings.TrimSpace(args)
		if arg == "" {
			return application.FormatDeployUsage(), nil
		}
		id, err := parseModelID(arg)
		if err != nil {
			return application.FormatModelNotFound(arg), nil
		}
		estimate, ok, err := queries.DeployEstimate(ctx, id)
		switch {
		case errors.Is(err, domain.ErrModelNotFound):
			return application.FormatModelNotFound(arg), nil
		case err != nil:
			return application.FormatError(), nil
		case !ok:
			return "🖥️ No parameter metadata published for <code>" + arg + "</code>.", nil
		}
		return application.FormatDeploy(id, estimate), nil
	})

	listener.Handle("battle", func(ctx context.Context, conv domain.ConversationKey, args string) (string, error) {
		if !llmAvailable {
			return "⚔️ Battle mode needs an OpenRouter API key.", nil
		}
		verdict, err := battle.Start(ctx, conv)
		switch {
		case errors.Is(err, domain.ErrSessionActive):
			return application.FormatBattleActive(), nil
		case err != nil:
			return application.FormatBattleFailed(), nil
		}
		return application.FormatBattleVerdict(verdict), nil
	})
}
