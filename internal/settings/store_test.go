package settings

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ppiankov/bsdetector/internal/kv"
	"github.com/ppiankov/bsdetector/internal/model"
)

type fakeRemote struct {
	configs   model.ProviderConfigs
	selected  string
	upserted  []model.ProviderConfig
	listErr   error
	upsertErr error
	selectErr error
}

func (f *fakeRemote) ListModelConfigs(ctx context.Context, userID string) (model.ProviderConfigs, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.configs, nil
}

func (f *fakeRemote) UpsertModelConfig(ctx context.Context, userID string, cfg model.ProviderConfig) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, cfg)
	return nil
}

func (f *fakeRemote) SelectedModel(ctx context.Context, userID string) (string, bool, error) {
	if f.selectErr != nil {
		return "", false, f.selectErr
	}
	return f.selected, f.selected != "", nil
}

func (f *fakeRemote) SetSelectedModel(ctx context.Context, userID, modelID string) error {
	if f.selectErr != nil {
		return f.selectErr
	}
	f.selected = modelID
	return nil
}

func session(id string) func() string {
	return func() string { return id }
}

func TestProviderConfigs_Layering(t *testing.T) {
	local := kv.NewMemoryStore()
	remote := &fakeRemote{configs: model.ProviderConfigs{
		model.ProviderOpenAI: {Provider: model.ProviderOpenAI, ModelID: "gpt-4o", APIKey: "sk-remote", Enabled: true},
	}}

	store := New(Options{
		Baseline: model.ProviderConfigs{
			model.ProviderOpenAI: {Provider: model.ProviderOpenAI, ModelID: "gpt-4o-mini", APIKey: "sk-env", Enabled: true},
			model.ProviderXAI:    {Provider: model.ProviderXAI, ModelID: "grok-3", APIKey: "xai-env", Enabled: true},
		},
		Local:   local,
		Remote:  remote,
		Session: session("u1"),
	})

	if err := store.Save(context.Background(), model.ProviderConfig{Provider: model.ProviderXAI, ModelID: "grok-3-mini", Enabled: false}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	configs, err := store.ProviderConfigs(context.Background())
	if err != nil {
		t.Fatalf("ProviderConfigs failed: %v", err)
	}

	if got := configs[model.ProviderOpenAI]; got.APIKey != "sk-remote" || got.ModelID != "gpt-4o" {
		t.Errorf("Expected remote to override openai, got %v", got)
	}
	xai := configs[model.ProviderXAI]
	if xai.ModelID != "grok-3-mini" || xai.Enabled {
		t.Errorf("Expected local to override xai, got %v", xai)
	}
	if xai.APIKey != "xai-env" {
		t.Errorf("Expected blank local key to inherit baseline key, got %q", xai.APIKey)
	}
}

func TestProviderConfigs_RemoteFailureDegradesToLocal(t *testing.T) {
	store := New(Options{
		Baseline: model.ProviderConfigs{
			model.ProviderGoogle: {Provider: model.ProviderGoogle, APIKey: "g", Enabled: true},
		},
		Remote:  &fakeRemote{listErr: errors.New("db down")},
		Session: session("u1"),
	})

	configs, err := store.ProviderConfigs(context.Background())
	if err != nil {
		t.Fatalf("Expected degraded read, got %v", err)
	}
	if _, ok := configs.FirstUsable(); !ok {
		t.Error("Expected baseline config to survive remote failure")
	}
}

func TestProviderConfigs_NoSessionSkipsRemote(t *testing.T) {
	remote := &fakeRemote{listErr: errors.New("must not be called")}
	store := New(Options{Remote: remote, Session: session("")})

	if _, err := store.ProviderConfigs(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := store.Save(context.Background(), model.ProviderConfig{Provider: model.ProviderOpenAI}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if len(remote.upserted) != 0 {
		t.Error("Expected no remote upsert without a session")
	}
}

func TestProviderConfigs_CorruptLocal(t *testing.T) {
	local := kv.NewMemoryStore()
	_ = local.Set(ConfigsKey, []byte("not json"))

	store := New(Options{Local: local})
	if _, err := store.ProviderConfigs(context.Background()); err == nil {
		t.Error("Expected error for corrupt local configs")
	}

	// a save replaces the corrupt value
	if err := store.Save(context.Background(), model.ProviderConfig{Provider: model.ProviderAnthropic, APIKey: "k", Enabled: true}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	configs, err := store.ProviderConfigs(context.Background())
	if err != nil {
		t.Fatalf("Expected recovery after save, got %v", err)
	}
	if cfg, ok := configs.FirstUsable(); !ok || cfg.Provider != model.ProviderAnthropic {
		t.Errorf("Unexpected configs: %v", configs)
	}
}

func TestSave_RemoteFailureIsSyncError(t *testing.T) {
	local := kv.NewMemoryStore()
	store := New(Options{
		Local:   local,
		Remote:  &fakeRemote{upsertErr: errors.New("refused")},
		Session: session("u1"),
	})

	err := store.Save(context.Background(), model.ProviderConfig{Provider: model.ProviderOpenAI, APIKey: "sk", Enabled: true})

	var syncErr *SyncError
	if !errors.As(err, &syncErr) {
		t.Fatalf("Expected SyncError, got %v", err)
	}
	if _, ok := local.Get(ConfigsKey); !ok {
		t.Error("Expected local write despite remote failure")
	}
}

func TestSave_RejectsUnknownProvider(t *testing.T) {
	store := New(Options{})
	if err := store.Save(context.Background(), model.ProviderConfig{Provider: "mistral"}); err == nil {
		t.Error("Expected error for unknown provider")
	}
}

func TestSave_NormalizesProviderAlias(t *testing.T) {
	store := New(Options{})
	ctx := context.Background()

	if err := store.Save(ctx, model.ProviderConfig{Provider: "claude", ModelID: "claude-3-5-haiku-20241022", APIKey: "sk-ant", Enabled: true}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	configs, err := store.ProviderConfigs(ctx)
	if err != nil {
		t.Fatalf("ProviderConfigs failed: %v", err)
	}
	if _, ok := configs["claude"]; ok {
		t.Error("Expected no entry under the alias")
	}
	cfg, ok := configs.FirstUsable()
	if !ok || cfg.Provider != model.ProviderAnthropic {
		t.Errorf("Expected anthropic config to be usable, got %+v (ok=%v)", cfg, ok)
	}
}

func TestSave_DoesNotPersistInheritedKey(t *testing.T) {
	local := kv.NewMemoryStore()
	remote := &fakeRemote{}
	store := New(Options{
		Baseline: model.ProviderConfigs{
			model.ProviderXAI: {Provider: model.ProviderXAI, ModelID: "grok-3", APIKey: "xai-from-env", Enabled: true},
		},
		Local:   local,
		Remote:  remote,
		Session: session("u1"),
	})
	ctx := context.Background()

	configs, err := store.ProviderConfigs(ctx)
	if err != nil {
		t.Fatalf("ProviderConfigs failed: %v", err)
	}
	cfg := configs[model.ProviderXAI]
	cfg.Enabled = false
	if err := store.Save(ctx, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, _ := local.Get(ConfigsKey)
	if strings.Contains(string(data), "xai-from-env") {
		t.Errorf("Expected inherited key kept out of local storage, got %s", data)
	}
	if len(remote.upserted) != 1 || remote.upserted[0].APIKey != "" {
		t.Errorf("Expected inherited key kept out of the remote upsert, got %+v", remote.upserted)
	}

	configs, _ = store.ProviderConfigs(ctx)
	if got := configs[model.ProviderXAI]; got.APIKey != "xai-from-env" || got.Enabled {
		t.Errorf("Expected disabled config still inheriting the key, got %+v", got)
	}

	// a new key is persisted
	cfg.APIKey = "xai-typed"
	if err := store.Save(ctx, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	data, _ = local.Get(ConfigsKey)
	if !strings.Contains(string(data), "xai-typed") {
		t.Errorf("Expected explicit key stored, got %s", data)
	}
}

func TestSelectedModel(t *testing.T) {
	remote := &fakeRemote{}
	local := kv.NewMemoryStore()
	store := New(Options{DefaultModel: "gpt-4o-mini", Local: local, Remote: remote, Session: session("u1")})

	if got, _ := store.SelectedModel(context.Background()); got != "gpt-4o-mini" {
		t.Errorf("Expected configured default, got %q", got)
	}

	if err := store.Select(context.Background(), "grok-3"); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if remote.selected != "grok-3" {
		t.Errorf("Expected remote selection, got %q", remote.selected)
	}

	remote.selected = "claude-3-5-haiku-20241022"
	if got, _ := store.SelectedModel(context.Background()); got != "claude-3-5-haiku-20241022" {
		t.Errorf("Expected remote selection to win, got %q", got)
	}

	remote.selectErr = errors.New("db down")
	if got, _ := store.SelectedModel(context.Background()); got != "grok-3" {
		t.Errorf("Expected local selection on remote failure, got %q", got)
	}

	if err := store.Select(context.Background(), "  "); err == nil {
		t.Error("Expected error for blank model id")
	}
}

func TestFromConfig(t *testing.T) {
	configs, err := FromConfig(map[string]model.ProviderConfig{
		"grok":   {APIKey: "x", Enabled: true},
		"claude": {APIKey: "a"},
	})
	if err != nil {
		t.Fatalf("FromConfig failed: %v", err)
	}
	if configs[model.ProviderXAI].Provider != model.ProviderXAI || configs[model.ProviderAnthropic].APIKey != "a" {
		t.Errorf("Unexpected configs: %v", configs)
	}

	if _, err := FromConfig(map[string]model.ProviderConfig{"mistral": {}}); err == nil {
		t.Error("Expected error for unknown provider")
	}
}
