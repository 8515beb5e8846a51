package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/medianote/api/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func testProvider(id, name string) *model.Provider {
	return &model.Provider{
		ID:      id,
		Name:    name,
		Logo:    name,
		Type:    "openai",
		APIKey:  "sk-test",
		BaseURL: "https://api.example.com/v1",
		Enabled: true,
	}
}

func TestGetOrCreateTask_Idempotent(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	first, err := st.GetOrCreateTask(ctx, "BV1xx411c7mD", model.PlatformBilibili)
	if err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	if first.TaskID == "" {
		t.Fatal("expected a non-empty task token")
	}

	second, err := st.GetOrCreateTask(ctx, "BV1xx411c7mD", model.PlatformBilibili)
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if second.TaskID != first.TaskID {
		t.Errorf("expected same token, got %q and %q", first.TaskID, second.TaskID)
	}
	if second.ID != first.ID {
		t.Errorf("expected same row, got ids %d and %d", first.ID, second.ID)
	}
}

func TestGetOrCreateTask_DistinctPerPlatform(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	a, err := st.GetOrCreateTask(ctx, "abc123", model.PlatformBilibili)
	if err != nil {
		t.Fatalf("bilibili task failed: %v", err)
	}
	b, err := st.GetOrCreateTask(ctx, "abc123", model.PlatformYoutube)
	if err != nil {
		t.Fatalf("youtube task failed: %v", err)
	}
	if a.TaskID == b.TaskID {
		t.Error("same video id on different platforms must get distinct tokens")
	}
}

func TestGetOrCreateTask_Concurrent(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	const workers = 8
	tokens := make([]string, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			task, err := st.GetOrCreateTask(ctx, "dQw4w9WgXcQ", model.PlatformYoutube)
			if err != nil {
				errs[i] = err
				return
			}
			tokens[i] = task.TaskID
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d failed: %v", i, errs[i])
		}
		if tokens[i] != tokens[0] {
			t.Errorf("worker %d got token %q, want %q", i, tokens[i], tokens[0])
		}
	}
}

func TestGetTaskByToken(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	created, err := st.GetOrCreateTask(ctx, "7123456789", model.PlatformDouyin)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	got, err := st.GetTaskByToken(ctx, created.TaskID)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if got.VideoID != "7123456789" || got.Platform != string(model.PlatformDouyin) {
		t.Errorf("unexpected task: %+v", got)
	}

	if _, err := st.GetTaskByToken(ctx, "no-such-token"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestInsertProvider_Duplicate(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if err := st.InsertProvider(ctx, testProvider("p1", "groq")); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	err := st.InsertProvider(ctx, testProvider("p1", "other"))
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate for same id, got %v", err)
	}
}

func TestSeedProviders_OnlyIntoEmptyStore(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	seed := []*model.Provider{
		testProvider("p1", "groq"),
		testProvider("p2", "openai"),
	}
	if err := st.SeedProviders(ctx, seed); err != nil {
		t.Fatalf("first seed failed: %v", err)
	}

	// A second seed against a populated store is a no-op.
	again := []*model.Provider{testProvider("p3", "deepseek")}
	if err := st.SeedProviders(ctx, again); err != nil {
		t.Fatalf("second seed failed: %v", err)
	}

	providers, err := st.ListProviders(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(providers) != 2 {
		t.Errorf("expected 2 providers after reseed, got %d", len(providers))
	}
}

func TestSeedProviders_AllOrNothing(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	// Second entry collides with the first on id, so nothing lands.
	seed := []*model.Provider{
		testProvider("p1", "groq"),
		testProvider("p1", "openai"),
	}
	if err := st.SeedProviders(ctx, seed); err == nil {
		t.Fatal("expected seed to fail on duplicate id")
	}

	providers, err := st.ListProviders(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(providers) != 0 {
		t.Errorf("expected empty store after failed seed, got %d providers", len(providers))
	}
}

func TestUpdateProvider_PartialAndWhitelist(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if err := st.InsertProvider(ctx, testProvider("p1", "groq")); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	err := st.UpdateProvider(ctx, "p1", map[string]any{
		"api_key": "sk-rotated",
		"enabled": false,
		"id":      "p2", // not an updatable column
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	got, err := st.GetProvider(ctx, "p1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.APIKey != "sk-rotated" {
		t.Errorf("api_key not updated: %q", got.APIKey)
	}
	if got.Enabled {
		t.Error("enabled not updated")
	}
	if got.BaseURL != "https://api.example.com/v1" {
		t.Errorf("untouched field changed: %q", got.BaseURL)
	}
}

func TestUpdateProvider_NotFound(t *testing.T) {
	st := openTestStore(t)

	err := st.UpdateProvider(context.Background(), "missing", map[string]any{"name": "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteProvider_CascadesModels(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if err := st.InsertProvider(ctx, testProvider("p1", "groq")); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if _, err := st.InsertModel(ctx, "p1", "whisper-large-v3"); err != nil {
		t.Fatalf("insert model failed: %v", err)
	}
	if _, err := st.InsertModel(ctx, "p1", "llama-3.3-70b-versatile"); err != nil {
		t.Fatalf("insert model failed: %v", err)
	}

	if err := st.DeleteProvider(ctx, "p1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	models, err := st.ListModels(ctx)
	if err != nil {
		t.Fatalf("list models failed: %v", err)
	}
	if len(models) != 0 {
		t.Errorf("expected models removed with provider, got %d", len(models))
	}
}

func TestInsertModel_UniquePerProvider(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if err := st.InsertProvider(ctx, testProvider("p1", "groq")); err != nil {
		t.Fatalf("insert provider failed: %v", err)
	}
	if err := st.InsertProvider(ctx, testProvider("p2", "openai")); err != nil {
		t.Fatalf("insert provider failed: %v", err)
	}

	if _, err := st.InsertModel(ctx, "p1", "whisper-large-v3"); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if _, err := st.InsertModel(ctx, "p1", "whisper-large-v3"); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate for same (provider, model), got %v", err)
	}
	// Same model name under a different provider is fine.
	if _, err := st.InsertModel(ctx, "p2", "whisper-large-v3"); err != nil {
		t.Errorf("same name under another provider should insert: %v", err)
	}
}

func TestConfigKV_Upsert(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if _, ok, err := st.GetConfig(ctx, "bilibili"); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}

	if err := st.SetConfig(ctx, "bilibili", "SESSDATA=abc"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := st.SetConfig(ctx, "bilibili", "SESSDATA=def"); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}

	val, ok, err := st.GetConfig(ctx, "bilibili")
	if err != nil || !ok {
		t.Fatalf("get failed: ok=%v err=%v", ok, err)
	}
	if val != "SESSDATA=def" {
		t.Errorf("expected latest value, got %q", val)
	}
}

func TestForeignKeys_EnforcedAcrossConnections(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	// Drop idle connections so every statement runs on a freshly opened
	// connection; pragmas set on a single connection would not survive this.
	st.db.SetMaxIdleConns(0)

	if _, err := st.InsertModel(ctx, "ghost", "whisper-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown provider, got %v", err)
	}

	if err := st.InsertProvider(ctx, testProvider("p1", "groq")); err != nil {
		t.Fatalf("insert provider failed: %v", err)
	}
	if _, err := st.InsertModel(ctx, "p1", "whisper-large-v3"); err != nil {
		t.Fatalf("insert model failed: %v", err)
	}

	if err := st.DeleteProvider(ctx, "p1"); err != nil {
		t.Fatalf("delete provider failed: %v", err)
	}
	models, err := st.ListModels(ctx)
	if err != nil {
		t.Fatalf("list models failed: %v", err)
	}
	if len(models) != 0 {
		t.Errorf("expected cascade to remove models, got %d left", len(models))
	}
}
