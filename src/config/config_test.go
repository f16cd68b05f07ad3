package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()
	d := Defaults()
	assert.Equal(t, d.HeaderRows, cfg.HeaderRows)
	assert.Equal(t, d.SheetPayables, cfg.SheetPayables)
	assert.Equal(t, DropPolicyLenient, cfg.DropPolicy)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("HEADER_ROWS", "3")
	t.Setenv("SOURCE_RECURSIVE", "true")
	t.Setenv("SOURCE_KEYWORDS", " cash , ,plan")
	t.Setenv("DROP_POLICY", "STRICT")
	t.Setenv("CACHE_CLEANUP_INTERVAL", "5m")
	t.Setenv("MAX_SOURCE_SIZE_BYTES", "1024")

	cfg := FromEnv()
	assert.Equal(t, 3, cfg.HeaderRows)
	assert.True(t, cfg.SourceRecursive)
	assert.Equal(t, []string{"cash", "plan"}, cfg.SourceKeywords)
	assert.Equal(t, DropPolicyStrict, cfg.DropPolicy)
	assert.Equal(t, 5*time.Minute, cfg.CacheCleanupInterval)
	assert.Equal(t, int64(1024), cfg.MaxSourceBytes)
}

func TestFromEnvInvalidValuesFallBack(t *testing.T) {
	t.Setenv("HEADER_ROWS", "two")
	t.Setenv("DROP_POLICY", "paranoid")
	t.Setenv("SOURCE_RECURSIVE", "maybe")

	cfg := FromEnv()
	assert.Equal(t, 2, cfg.HeaderRows)
	assert.Equal(t, DropPolicyLenient, cfg.DropPolicy)
	assert.False(t, cfg.SourceRecursive)
}
