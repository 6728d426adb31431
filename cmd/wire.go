package cmd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/viper"

	"github.com/bnema/hubwatch/internal/adapters/huggingface"
	statusadapter "github.com/bnema/hubwatch/internal/adapters/render/status"
	"github.com/bnema/hubwatch/internal/adapters/staterepo"
	"github.com/bnema/hubwatch/internal/application"
	"github.com/bnema/hubwatch/internal/config"
	"github.com/bnema/hubwatch/internal/domain"
)

type app struct {
	cfg            config.Config
	repo           *staterepo.Repository
	hub            *huggingface.Client
	queries        *application.Queries
	statusRenderer func(application.StatusReport, statusadapter.RenderOptions) (string, error)
	httpClient     *http.Client
	now            func() time.Time
}

func wireApp() (*app, error) {
	cfg, err := config.Load(viper.New())
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	repo, err := staterepo.NewRepository(cfg.StatePath)
	if err != nil {
		return nil, fmt.Errorf("wire state repository: %w", err)
	}

	httpClient := http.DefaultClient
	hub := huggingface.New("", httpClient, cfg.FetchTimeout)

	return &app{
		cfg:            cfg,
		repo:           repo,
		hub:            hub,
		queries:        application.NewQueries(repo, hub, cfg.OrgKeys()),
		statusRenderer: statusadapter.Render,
		httpClient:     httpClient,
		now:            time.Now,
	}, nil
}

func parseModelID(arg string) (domain.ModelID, error) {
	id := domain.ModelID(arg)
	if id.Org() == "" {
		return "", fmt.Errorf("model id %q must have the form author/model", arg)
	}

	return id, nil
}
