package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/viper"

	"github.com/ppiankov/bsdetector/internal/analysis"
	"github.com/ppiankov/bsdetector/internal/content"
	"github.com/ppiankov/bsdetector/internal/history"
	"github.com/ppiankov/bsdetector/internal/kv"
	"github.com/ppiankov/bsdetector/internal/llm"
	"github.com/ppiankov/bsdetector/internal/logging"
	"github.com/ppiankov/bsdetector/internal/model"
	"github.com/ppiankov/bsdetector/internal/remote"
	"github.com/ppiankov/bsdetector/internal/settings"
	"github.com/ppiankov/bsdetector/internal/util"
)

// app holds the wired components shared by the commands
type app struct {
	cfg          *model.Config
	logger       *log.Logger
	local        kv.Store
	pool         *pgxpool.Pool
	settings     *settings.Store
	history      *history.Reconciler
	client       *llm.Client
	normalizer   *content.Normalizer
	fetcher      *content.Fetcher
	orchestrator *analysis.Orchestrator
}

// newApp loads configuration and wires every component. The caller must
// call close when done.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(os.Stderr, cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	dataDir, err := configDir()
	if err != nil {
		return nil, fmt.Errorf("error finding home directory: %w", err)
	}

	local, err := kv.Open(cfg.Storage, dataDir)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, local: local}

	// typed nils would defeat the local-only checks downstream
	var historyRemote history.Remote
	var settingsRemote settings.Remote
	if dsn := strings.TrimSpace(cfg.Remote.DSN); dsn != "" {
		pool, err := remote.Connect(ctx, dsn)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("connect remote store: %w", err)
		}
		a.pool = pool

		store := remote.New(pool)
		if err := store.Migrate(ctx); err != nil {
			a.close()
			return nil, fmt.Errorf("migrate remote store: %w", err)
		}
		historyRemote = store
		settingsRemote = store
		logger.Debug("remote store connected")
	}

	baseline, err := settings.FromConfig(cfg.Providers)
	if err != nil {
		a.close()
		return nil, err
	}

	session := history.StaticSession(cfg.Session.UserID)

	a.settings = settings.New(settings.Options{
		Baseline:     baseline,
		DefaultModel: cfg.Analysis.Model,
		Local:        local,
		Remote:       settingsRemote,
		Session:      session,
		Logger:       logger.WithPrefix("settings"),
	})
	a.history = history.NewReconciler(local, historyRemote, session, logger.WithPrefix("history"))

	httpClient := util.NewHTTPClient(cfg.HTTP)
	a.client = llm.NewClient(httpClient, cfg.HTTP.Timeout, logger.WithPrefix("llm"))
	a.normalizer = content.NewNormalizer(cfg.Analysis.MaxChars)

	var robots *util.RobotsChecker
	if cfg.Fetch.RespectRobots {
		robots = util.NewRobotsChecker(httpClient, cfg.Fetch.UserAgent)
	}
	a.fetcher = content.NewFetcher(httpClient, cfg.Fetch.UserAgent, cfg.Fetch.MaxBytes, robots)

	var proxy *analysis.ProxyClient
	if proxyURL := strings.TrimSpace(cfg.Analysis.ProxyURL); proxyURL != "" {
		proxy = analysis.NewProxyClient(proxyURL, httpClient, logger.WithPrefix("proxy"))
	}

	a.orchestrator = analysis.NewOrchestrator(analysis.Options{
		Configs:    a.settings,
		Direct:     a.client,
		Proxy:      proxy,
		Normalizer: a.normalizer,
		Logger:     logger.WithPrefix("analysis"),
	})

	return a, nil
}

// mode returns the flag value or the configured default
func (a *app) mode(flagValue string) (model.Mode, error) {
	m := model.Mode(strings.TrimSpace(flagValue))
	if m == "" {
		m = model.Mode(a.cfg.Analysis.Mode)
	}
	if m == "" {
		m = model.ModeVoter
	}
	if !m.Valid() {
		return "", fmt.Errorf("unknown mode %q (supported: voter, professional)", m)
	}
	return m, nil
}

func (a *app) close() {
	if c, ok := a.local.(io.Closer); ok {
		if err := c.Close(); err != nil {
			a.logger.Warn("closing local store failed", "error", err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
