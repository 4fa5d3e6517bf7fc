package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjhuskey/copticqa/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "ontology.ttl", cfg.OntologyPath)
	assert.Equal(t, 60*time.Second, cfg.AskTimeout)
	assert.Equal(t, 25, cfg.AnswerRowBudget.MaxRows)
	assert.Equal(t, 8, cfg.AnswerRowBudget.MaxColumns)
	assert.Equal(t, 256, cfg.AnswerRowBudget.MaxTermBytes)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "http://copticscriptorium.org/ontology#", cfg.Prefixes["copt"])
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
ontology-path: /data/coptic-ontology.ttl
data-path: /data/coptic-graph.ttl
ask-timeout: 90s
answer_row_budget:
  rows: 50
prefixes:
  nhc: http://nag-hammadi.example.org/
listen-addr: ":9090"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/coptic-ontology.ttl", cfg.OntologyPath)
	assert.Equal(t, 90*time.Second, cfg.AskTimeout)
	assert.Equal(t, 50, cfg.AnswerRowBudget.MaxRows)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	// User prefixes extend the defaults.
	assert.Equal(t, "http://nag-hammadi.example.org/", cfg.Prefixes["nhc"])
	assert.Equal(t, "http://purl.org/dc/terms/", cfg.Prefixes["dcterms"])
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("COPTICQA_MODEL", "claude-sonnet-4-20250514")
	t.Setenv("COPTICQA_ASK_TIMEOUT", "2m")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "claude-sonnet-4-20250514", cfg.Model)
	assert.Equal(t, 2*time.Minute, cfg.AskTimeout)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoadRejectsBadTimeout(t *testing.T) {
	t.Setenv("COPTICQA_ASK_TIMEOUT", "0s")

	_, err := config.Load("")
	assert.Error(t, err)
}
