package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{}
	cfg.HTTP.Port = 8080
	cfg.Database.Addrs = []string{"localhost:6379"}
	cfg.Embedding.APIKey = "sk-test"
	cfg.CRM.RestURL = "https://portal.example/rest/26/token"
	cfg.CRM.FileField = "UF_CRM_1730832791461"
	cfg.ApplyDefaults()
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected read timeout default 10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Database.KeyPrefix != "advisor:" {
		t.Errorf("expected key prefix default, got %q", cfg.Database.KeyPrefix)
	}
	if cfg.Embedding.Model != "text-embedding-3-small" {
		t.Errorf("expected embedding model default, got %q", cfg.Embedding.Model)
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Errorf("expected llm model default, got %q", cfg.LLM.Model)
	}
	if cfg.Storage.Prefix != "carta_mensal_/" {
		t.Errorf("expected storage prefix default, got %q", cfg.Storage.Prefix)
	}
	if cfg.Pipeline.ProcessTimeoutSec != 900 {
		t.Errorf("expected process timeout default 900, got %d", cfg.Pipeline.ProcessTimeoutSec)
	}
}

func TestValidate(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	bad := cfg
	bad.HTTP.Port = 0
	if err := bad.Validate(); err == nil {
		t.Error("expected error for zero port")
	}

	bad = cfg
	bad.Database.Addrs = nil
	if err := bad.Validate(); err == nil {
		t.Error("expected error for missing database addrs")
	}

	bad = cfg
	bad.Embedding.APIKey = ""
	if err := bad.Validate(); err == nil {
		t.Error("expected error for missing embedding api key")
	}

	bad = cfg
	bad.CRM.FileField = ""
	if err := bad.Validate(); err == nil {
		t.Error("expected error for missing crm file field")
	}

	bad = cfg
	bad.Storage.Prefix = "carta_mensal_"
	if err := bad.Validate(); err == nil {
		t.Error("expected error for prefix without trailing slash")
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("ADVISOR_TEST_KEY", "secret")

	out := string(expandEnvVars([]byte("api_key: ${ADVISOR_TEST_KEY}")))
	if out != "api_key: secret" {
		t.Errorf("expected env substitution, got %q", out)
	}

	out = string(expandEnvVars([]byte("port: ${ADVISOR_MISSING:-8080}")))
	if !strings.Contains(out, "8080") {
		t.Errorf("expected default substitution, got %q", out)
	}

	out = string(expandEnvVars([]byte("empty: ${ADVISOR_MISSING}")))
	if out != "empty: " {
		t.Errorf("expected empty substitution, got %q", out)
	}
}
