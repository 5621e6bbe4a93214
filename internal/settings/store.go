package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/ppiankov/bsdetector/internal/kv"
	"github.com/ppiankov/bsdetector/internal/model"
)

// Local keys
const (
	ConfigsKey  = "bsd_model_configs"
	SelectedKey = "bsd_selected_model"
)

// Remote is the per-user settings table
type Remote interface {
	ListModelConfigs(ctx context.Context, userID string) (model.ProviderConfigs, error)
	UpsertModelConfig(ctx context.Context, userID string, cfg model.ProviderConfig) error
	SelectedModel(ctx context.Context, userID string) (string, bool, error)
	SetSelectedModel(ctx context.Context, userID, modelID string) error
}

// SyncError is a settings write that reached local storage but not the remote store
type SyncError struct {
	Op  string
	Err error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("settings sync failed (%s): %v", e.Op, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Store layers provider settings: application config, then local storage,
// then the signed-in user's remote rows
type Store struct {
	baseline     model.ProviderConfigs
	defaultModel string
	local        kv.Store
	remote       Remote
	session      func() string
	logger       *log.Logger
}

// Options configures a Store
type Options struct {
	Baseline     model.ProviderConfigs
	DefaultModel string
	Local        kv.Store
	Remote       Remote        // nil disables remote sync
	Session      func() string // returns "" without a session
	Logger       *log.Logger
}

// New creates a settings store
func New(opts Options) *Store {
	if opts.Baseline == nil {
		opts.Baseline = model.ProviderConfigs{}
	}
	if opts.Local == nil {
		opts.Local = kv.NewMemoryStore()
	}
	if opts.Session == nil {
		opts.Session = func() string { return "" }
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &Store{
		baseline:     opts.Baseline,
		defaultModel: opts.DefaultModel,
		local:        opts.Local,
		remote:       opts.Remote,
		session:      opts.Session,
		logger:       opts.Logger,
	}
}

func (s *Store) userID() (string, bool) {
	if s.remote == nil {
		return "", false
	}
	id := s.session()
	return id, id != ""
}

// ProviderConfigs returns the effective config per provider.
// Remote failures degrade to the local view; corrupt local data is an error.
func (s *Store) ProviderConfigs(ctx context.Context) (model.ProviderConfigs, error) {
	local, err := s.localConfigs()
	if err != nil {
		return nil, err
	}
	configs := overlay(s.baseline, local)

	userID, ok := s.userID()
	if !ok {
		return configs, nil
	}

	remote, err := s.remote.ListModelConfigs(ctx, userID)
	if err != nil {
		s.logger.Warn("remote model configs unavailable, using local", "error", err)
		return configs, nil
	}
	return overlay(configs, remote), nil
}

// SelectedModel returns the selected model id, or "" when none is set
func (s *Store) SelectedModel(ctx context.Context) (string, error) {
	if userID, ok := s.userID(); ok {
		id, found, err := s.remote.SelectedModel(ctx, userID)
		switch {
		case err != nil:
			s.logger.Warn("remote model selection unavailable, using local", "error", err)
		case found:
			return id, nil
		}
	}

	if data, ok := s.local.Get(SelectedKey); ok {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	}
	return s.defaultModel, nil
}

// Save stores one provider config locally and, with a session, upserts it remotely.
// A key equal to the application config's key is not persisted; reads keep
// inheriting it. A *SyncError means the local write succeeded.
func (s *Store) Save(ctx context.Context, cfg model.ProviderConfig) error {
	id, err := model.ParseProvider(string(cfg.Provider))
	if err != nil {
		return err
	}
	cfg.Provider = id
	if base, ok := s.baseline[id]; ok && base.APIKey != "" && strings.TrimSpace(cfg.APIKey) == strings.TrimSpace(base.APIKey) {
		cfg.APIKey = ""
	}

	local, err := s.localConfigs()
	if err != nil {
		// overwrite corrupt data rather than refusing every future write
		s.logger.Warn("replacing corrupt local model configs", "error", err)
		local = model.ProviderConfigs{}
	}
	local[cfg.Provider] = cfg

	data, err := json.Marshal(local)
	if err != nil {
		return fmt.Errorf("marshal model configs: %w", err)
	}
	if err := s.local.Set(ConfigsKey, data); err != nil {
		return fmt.Errorf("write model configs: %w", err)
	}
	s.logger.Debug("model config saved", "config", cfg.String())

	userID, ok := s.userID()
	if !ok {
		return nil
	}
	if err := s.remote.UpsertModelConfig(ctx, userID, cfg); err != nil {
		return &SyncError{Op: "upsert " + string(cfg.Provider), Err: err}
	}
	return nil
}

// Select stores the selected model id locally and, with a session, remotely
func (s *Store) Select(ctx context.Context, modelID string) error {
	modelID = strings.TrimSpace(modelID)
	if modelID == "" {
		return fmt.Errorf("model id is required")
	}

	if err := s.local.Set(SelectedKey, []byte(modelID)); err != nil {
		return fmt.Errorf("write model selection: %w", err)
	}

	userID, ok := s.userID()
	if !ok {
		return nil
	}
	if err := s.remote.SetSelectedModel(ctx, userID, modelID); err != nil {
		return &SyncError{Op: "select", Err: err}
	}
	return nil
}

func (s *Store) localConfigs() (model.ProviderConfigs, error) {
	data, ok := s.local.Get(ConfigsKey)
	if !ok {
		return model.ProviderConfigs{}, nil
	}

	var configs model.ProviderConfigs
	if err := json.Unmarshal(data, &configs); err != nil {
		return nil, fmt.Errorf("read local model configs: %w", err)
	}
	if configs == nil {
		configs = model.ProviderConfigs{}
	}
	for id, cfg := range configs {
		cfg.Provider = id
		configs[id] = cfg
	}
	return configs, nil
}

// overlay replaces lower entries with upper ones. An upper entry with a blank
// API key keeps the lower key, so keys supplied by environment survive.
func overlay(lower, upper model.ProviderConfigs) model.ProviderConfigs {
	merged := lower.Merge(upper)
	for id, cfg := range upper {
		if strings.TrimSpace(cfg.APIKey) == "" {
			if base, ok := lower[id]; ok {
				cfg.APIKey = base.APIKey
				merged[id] = cfg
			}
		}
	}
	return merged
}

// FromConfig converts the providers section of the application config
func FromConfig(providers map[string]model.ProviderConfig) (model.ProviderConfigs, error) {
	configs := model.ProviderConfigs{}
	for name, cfg := range providers {
		id, err := model.ParseProvider(name)
		if err != nil {
			return nil, err
		}
		cfg.Provider = id
		configs[id] = cfg
	}
	return configs, nil
}
