package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainconfig "strategy-editor/domain/config"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("ENVIRONMENT", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, BackendLocal, cfg.Persistence.Backend)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 2*time.Second, cfg.Persistence.AutosaveDelay)
	assert.Equal(t, uint32(3), cfg.Persistence.BreakerFailures)
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"supabase without credentials", map[string]string{"STORE_BACKEND": "supabase"}},
		{"unknown backend", map[string]string{"STORE_BACKEND": "postgres"}},
		{"production without local store", map[string]string{"ENVIRONMENT": "production"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("STORE_BACKEND", "")
			t.Setenv("ENVIRONMENT", "")
			t.Setenv("LOCAL_STORE_PATH", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "dynamodb")
	t.Setenv("TABLE_NAME", "strategies-test")
	t.Setenv("AUTOSAVE_DELAY", "500ms")
	t.Setenv("ENABLE_TRACING", "yes")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "strategies-test", cfg.Persistence.DynamoDBTable)
	assert.Equal(t, 500*time.Millisecond, cfg.Persistence.AutosaveDelay)
	assert.True(t, cfg.EnableTracing)
}

func TestParseRules(t *testing.T) {
	rules, err := ParseRules([]byte(`
graph:
  maxNodes: 50
edges:
  allowSelfConnections: true
history:
  limit: 100
`))
	require.NoError(t, err)

	want := domainconfig.DefaultDomainConfig()
	want.MaxNodesPerGraph = 50
	want.AllowSelfConnections = true
	want.HistoryLimit = 100
	assert.Equal(t, want, rules)
}

func TestParseRules_Invalid(t *testing.T) {
	_, err := ParseRules([]byte("graph: [unclosed"))
	assert.Error(t, err)

	_, err = ParseRules([]byte("history:\n  limit: -1\n"))
	assert.Error(t, err)
}

func TestLoadRules_EmptyPathUsesDefaults(t *testing.T) {
	rules, err := LoadRules("")
	require.NoError(t, err)
	assert.Equal(t, domainconfig.DefaultDomainConfig(), rules)
}

func TestRulesWatcher_Reloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("graph:\n  maxNodes: 10\n"), 0o600))

	w, err := NewRulesWatcher(path, nil)
	require.NoError(t, err)
	defer w.Stop()
	assert.Equal(t, 10, w.Current().MaxNodesPerGraph)

	changed := make(chan *domainconfig.DomainConfig, 1)
	w.OnChange(func(r *domainconfig.DomainConfig) {
		select {
		case changed <- r:
		default:
		}
	})
	w.Start()

	require.NoError(t, os.WriteFile(path, []byte("graph:\n  maxNodes: 20\n"), 0o600))

	select {
	case r := <-changed:
		assert.Equal(t, 20, r.MaxNodesPerGraph)
	case <-time.After(5 * time.Second):
		t.Fatal("rules change was not picked up")
	}
	assert.Equal(t, 20, w.Current().MaxNodesPerGraph)
}
