package narrow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/narrow/internal/decl"
)

func TestLoadConfig_MissingFileYieldsDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "narrow.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "narrow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
hidden_prefix: "$"
fail_on_unresolved: true
hidden_visibility: protected
policy_script: policy.risor
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "$", cfg.HiddenPrefix)
	assert.True(t, cfg.FailOnUnresolved)
	assert.Equal(t, decl.VisibilityProtected, cfg.HiddenVisibility)
	assert.Equal(t, "policy.risor", cfg.PolicyScript)

	// Unset keys keep their defaults.
	assert.Equal(t, "hideconstructor", cfg.HideTag)
	assert.Equal(t, "protected", cfg.AltMarker)
	assert.True(t, cfg.PromoteAncestors)
}

func TestLoadConfig_EmptyPrefixDisablesConvention(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "narrow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hidden_prefix: \"\"\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "", cfg.HiddenPrefix)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"malformed yaml", "hidden_prefix: [unterminated\n", "parse config"},
		{"bad visibility", "alt_visibility: internal\n", "invalid constructor visibility"},
		{"empty tag", "hide_tag: \"\"\n", "hide_tag must not be empty"},
	}
	for i, tt := range tests {
		path := filepath.Join(dir, tt.name+".yaml")
		require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644), "case %d", i)

		_, err := LoadConfig(path)
		require.Error(t, err, tt.name)
		assert.Contains(t, err.Error(), tt.wantErr, tt.name)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.HiddenVisibility = decl.VisibilityNone
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.AltVisibility = decl.VisibilityPublic
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Hash(t *testing.T) {
	t.Parallel()
	a := DefaultConfig()
	b := DefaultConfig()
	assert.Equal(t, a.Hash(), b.Hash())
	assert.Len(t, a.Hash(), 64)

	b.HiddenPrefix = "#"
	assert.NotEqual(t, a.Hash(), b.Hash())

	c := DefaultConfig()
	c.Policy = namePolicy{"x": true}
	assert.Equal(t, a.Hash(), c.Hash(), "policy is excluded from the hash")
}
