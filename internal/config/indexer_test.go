package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Trimbex/distributed-web-crawler/internal/config"
)

func TestWithDefaultIndexerConfig(t *testing.T) {
	cfg := config.WithDefaultIndexerConfig("index-data")
	if cfg == nil {
		t.Fatal("WithDefaultIndexerConfig() returned nil")
	}

	builtCfg, err := cfg.Build()
	if err != nil {
		t.Fatalf("should not have any error, got %v", err)
	}

	if builtCfg.DataDir() != "index-data" {
		t.Errorf("expected DataDir 'index-data', got '%s'", builtCfg.DataDir())
	}
	if builtCfg.BindAddr() != ":8082" {
		t.Errorf("expected BindAddr ':8082', got '%s'", builtCfg.BindAddr())
	}
	if builtCfg.TitleWeight() != 3.0 {
		t.Errorf("expected TitleWeight 3.0, got %f", builtCfg.TitleWeight())
	}
	if builtCfg.BodyWeight() != 1.0 {
		t.Errorf("expected BodyWeight 1.0, got %f", builtCfg.BodyWeight())
	}
	if builtCfg.BM25K1() != 1.2 {
		t.Errorf("expected BM25K1 1.2, got %f", builtCfg.BM25K1())
	}
	if builtCfg.BM25B() != 0.75 {
		t.Errorf("expected BM25B 0.75, got %f", builtCfg.BM25B())
	}
	if builtCfg.DefaultMaxResults() != 10 {
		t.Errorf("expected DefaultMaxResults 10, got %d", builtCfg.DefaultMaxResults())
	}
	if builtCfg.SnippetMaxFragments() != 2 {
		t.Errorf("expected SnippetMaxFragments 2, got %d", builtCfg.SnippetMaxFragments())
	}
	if builtCfg.SnippetFallbackLen() != 200 {
		t.Errorf("expected SnippetFallbackLen 200, got %d", builtCfg.SnippetFallbackLen())
	}
	if builtCfg.PersistInterval() != 30*time.Second {
		t.Errorf("expected PersistInterval 30s, got %v", builtCfg.PersistInterval())
	}
}

func TestWithDefaultIndexerConfig_EmptyDataDir(t *testing.T) {
	_, err := config.WithDefaultIndexerConfig("").Build()
	if err == nil {
		t.Fatal("expected error for empty dataDir, got nil")
	}
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got: %v", err)
	}
}

func TestIndexerConfig_TitleWeightBelowBodyWeightRejected(t *testing.T) {
	_, err := config.WithDefaultIndexerConfig("index-data").
		WithTitleWeight(0.5).WithBodyWeight(1.0).Build()
	if err == nil {
		t.Fatal("expected error when titleWeight < bodyWeight, got nil")
	}
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got: %v", err)
	}
}

func TestWithBM25Params(t *testing.T) {
	cfg, err := config.WithDefaultIndexerConfig("index-data").
		WithBM25Params(1.5, 0.5).Build()
	if err != nil {
		t.Fatalf("should not have any error, got %v", err)
	}
	if cfg.BM25K1() != 1.5 {
		t.Errorf("expected BM25K1 1.5, got %f", cfg.BM25K1())
	}
	if cfg.BM25B() != 0.5 {
		t.Errorf("expected BM25B 0.5, got %f", cfg.BM25B())
	}
}

func TestWithDefaultMaxResults(t *testing.T) {
	cfg, err := config.WithDefaultIndexerConfig("index-data").
		WithDefaultMaxResults(25).Build()
	if err != nil {
		t.Fatalf("should not have any error, got %v", err)
	}
	if cfg.DefaultMaxResults() != 25 {
		t.Errorf("expected DefaultMaxResults 25, got %d", cfg.DefaultMaxResults())
	}
}

func TestWithSnippetMaxFragments(t *testing.T) {
	cfg, err := config.WithDefaultIndexerConfig("index-data").
		WithSnippetMaxFragments(5).Build()
	if err != nil {
		t.Fatalf("should not have any error, got %v", err)
	}
	if cfg.SnippetMaxFragments() != 5 {
		t.Errorf("expected SnippetMaxFragments 5, got %d", cfg.SnippetMaxFragments())
	}
}

func TestWithPersistInterval(t *testing.T) {
	cfg, err := config.WithDefaultIndexerConfig("index-data").
		WithPersistInterval(90 * time.Second).Build()
	if err != nil {
		t.Fatalf("should not have any error, got %v", err)
	}
	if cfg.PersistInterval() != 90*time.Second {
		t.Errorf("expected PersistInterval 90s, got %v", cfg.PersistInterval())
	}
}

func TestWithIndexerConfigFile_FileDoesNotExist(t *testing.T) {
	_, err := config.WithIndexerConfigFile("/nonexistent/path/config.json")
	if err == nil {
		t.Fatal("expected error for non-existent file, got nil")
	}
	if !errors.Is(err, config.ErrFileDoesNotExist) {
		t.Errorf("expected ErrFileDoesNotExist, got: %v", err)
	}
}

func TestWithIndexerConfigFile_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.json")
	if err := os.WriteFile(configPath, []byte("{not json"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	_, err := config.WithIndexerConfigFile(configPath)
	if err == nil {
		t.Fatal("expected error for invalid JSON, got nil")
	}
	if !errors.Is(err, config.ErrConfigParsingFail) {
		t.Errorf("expected ErrConfigParsingFail, got: %v", err)
	}
}

func TestWithIndexerConfigFile_MissingDataDir(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")
	if err := os.WriteFile(configPath, []byte(`{"titleWeight": 2.0}`), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	_, err := config.WithIndexerConfigFile(configPath)
	if err == nil {
		t.Fatal("expected error for missing dataDir, got nil")
	}
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got: %v", err)
	}
}

func TestWithIndexerConfigFile_ValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")
	content := `{
		"dataDir": "custom-index-data",
		"bindAddr": ":9292",
		"titleWeight": 4.0,
		"bodyWeight": 1.5,
		"bm25k1": 1.6,
		"bm25b": 0.8,
		"defaultMaxResults": 20,
		"persistInterval": 60000000000
	}`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := config.WithIndexerConfigFile(configPath)
	if err != nil {
		t.Fatalf("unexpected error loading valid config: %v", err)
	}
	if cfg.DataDir() != "custom-index-data" {
		t.Errorf("expected DataDir 'custom-index-data', got '%s'", cfg.DataDir())
	}
	if cfg.BindAddr() != ":9292" {
		t.Errorf("expected BindAddr ':9292', got '%s'", cfg.BindAddr())
	}
	if cfg.TitleWeight() != 4.0 {
		t.Errorf("expected TitleWeight 4.0, got %f", cfg.TitleWeight())
	}
	if cfg.BodyWeight() != 1.5 {
		t.Errorf("expected BodyWeight 1.5, got %f", cfg.BodyWeight())
	}
	if cfg.BM25K1() != 1.6 {
		t.Errorf("expected BM25K1 1.6, got %f", cfg.BM25K1())
	}
	if cfg.BM25B() != 0.8 {
		t.Errorf("expected BM25B 0.8, got %f", cfg.BM25B())
	}
	if cfg.DefaultMaxResults() != 20 {
		t.Errorf("expected DefaultMaxResults 20, got %d", cfg.DefaultMaxResults())
	}
	if cfg.PersistInterval() != 60*time.Second {
		t.Errorf("expected PersistInterval 60s, got %v", cfg.PersistInterval())
	}

	// unset fields keep the defaults
	if cfg.SnippetMaxFragments() != 2 {
		t.Errorf("expected SnippetMaxFragments to remain default 2, got %d", cfg.SnippetMaxFragments())
	}
}
