package config

import "testing"

func validConfig() Config {
	return Config{
		HTTP: HTTPConfig{Port: 8080},
		Database: DatabaseConfig{
			Addrs: []string{"localhost:6379"},
		},
		Embedding: EmbeddingConfig{Model: "text-embedding-3-small"},
		Chat:      ChatConfig{Model: "gpt-4o-mini"},
	}
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingDatabaseAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing database addrs")
	}
}

func TestValidate_MissingModels(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.Model = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing embedding model")
	}

	cfg = validConfig()
	cfg.Chat.Model = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing chat model")
	}
}

func TestValidate_ScoreGateOutOfRange(t *testing.T) {
	cfg := validConfig()
	cfg.Retrieval.ScoreGate = 1.5

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for score gate above 1")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{Chat: ChatConfig{Model: "gpt-4o-mini"}}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 30 {
		t.Errorf("expected WriteTimeoutSec=30, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Database.Driver != "redis" {
		t.Errorf("expected Driver='redis', got %q", cfg.Database.Driver)
	}
	if cfg.Database.ReadinessTimeout != 10 {
		t.Errorf("expected ReadinessTimeout=10, got %d", cfg.Database.ReadinessTimeout)
	}
	if cfg.Storage.KeyPrefix != "chunk:" {
		t.Errorf("expected KeyPrefix='chunk:', got %q", cfg.Storage.KeyPrefix)
	}
	if cfg.Index.Name != "chunks-idx" {
		t.Errorf("expected Index.Name='chunks-idx', got %q", cfg.Index.Name)
	}
	if cfg.Index.HNSWM != 32 {
		t.Errorf("expected HNSWM=32, got %d", cfg.Index.HNSWM)
	}
	if cfg.Index.HNSWEFConstruct != 400 {
		t.Errorf("expected HNSWEFConstruct=400, got %d", cfg.Index.HNSWEFConstruct)
	}
	if cfg.Embedding.Dimensions != 1536 {
		t.Errorf("expected Dimensions=1536, got %d", cfg.Embedding.Dimensions)
	}
	if cfg.Embedding.BatchSize != 16 {
		t.Errorf("expected BatchSize=16, got %d", cfg.Embedding.BatchSize)
	}
	if cfg.Embedding.PauseMs != 150 {
		t.Errorf("expected PauseMs=150, got %d", cfg.Embedding.PauseMs)
	}
	if cfg.Chat.RouterModel != "gpt-4o-mini" {
		t.Errorf("expected RouterModel to fall back to Model, got %q", cfg.Chat.RouterModel)
	}
	if cfg.Board.CacheTTLSec != 600 {
		t.Errorf("expected CacheTTLSec=600, got %d", cfg.Board.CacheTTLSec)
	}
	if cfg.Retrieval.ScoreGate != 0.35 {
		t.Errorf("expected ScoreGate=0.35, got %g", cfg.Retrieval.ScoreGate)
	}
	if cfg.Retrieval.MaxPerSource != 2 {
		t.Errorf("expected MaxPerSource=2, got %d", cfg.Retrieval.MaxPerSource)
	}
	if cfg.Retrieval.MaxSources != 3 {
		t.Errorf("expected MaxSources=3, got %d", cfg.Retrieval.MaxSources)
	}
	if cfg.Retrieval.Budget != 1600 {
		t.Errorf("expected Budget=1600, got %d", cfg.Retrieval.Budget)
	}
	if cfg.Retrieval.SnippetLimit != 600 {
		t.Errorf("expected SnippetLimit=600, got %d", cfg.Retrieval.SnippetLimit)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:      HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Database:  DatabaseConfig{Driver: "valkey", ReadinessTimeout: 15},
		Embedding: EmbeddingConfig{BatchSize: 32, PauseMs: 50},
		Chat:      ChatConfig{Model: "gpt-4o", RouterModel: "gpt-4o-mini"},
		Retrieval: RetrievalConfig{ScoreGate: 0.5, Budget: 2000},
		Storage:   StorageConfig{KeyPrefix: "custom:"},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Database.Driver != "valkey" {
		t.Errorf("expected Driver='valkey', got %q", cfg.Database.Driver)
	}
	if cfg.Embedding.BatchSize != 32 {
		t.Errorf("expected BatchSize=32, got %d", cfg.Embedding.BatchSize)
	}
	if cfg.Chat.RouterModel != "gpt-4o-mini" {
		t.Errorf("expected RouterModel='gpt-4o-mini', got %q", cfg.Chat.RouterModel)
	}
	if cfg.Retrieval.ScoreGate != 0.5 {
		t.Errorf("expected ScoreGate=0.5, got %g", cfg.Retrieval.ScoreGate)
	}
	if cfg.Retrieval.Budget != 2000 {
		t.Errorf("expected Budget=2000, got %d", cfg.Retrieval.Budget)
	}
	if cfg.Storage.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Storage.KeyPrefix)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("CB_TEST_TOKEN", "secret")

	in := []byte("token: ${CB_TEST_TOKEN}\nurl: ${CB_TEST_URL:-https://example.com}\n")
	out := string(expandEnvVars(in))

	want := "token: secret\nurl: https://example.com\n"
	if out != want {
		t.Errorf("unexpected expansion:\ngot:  %q\nwant: %q", out, want)
	}
}
