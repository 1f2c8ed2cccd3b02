package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Bool("verbose", false, "")
	fs.String("output", DefaultOutput, "")
	fs.String("addr", DefaultAddr, "")
	fs.Duration("fetch-timeout", DefaultFetchTimeout, "")
	return fs
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.False(t, cfg.Verbose)
	assert.Equal(t, DefaultOutput, cfg.Output)
	assert.Equal(t, DefaultLogEncoding, cfg.LogEncoding)
	assert.Equal(t, DefaultAddr, cfg.Addr)
	assert.Equal(t, int64(DefaultMaxBodyBytes), cfg.MaxBodyBytes)
	assert.Equal(t, DefaultFetchTimeout, cfg.FetchTimeout)
	assert.Empty(t, cfg.File)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "formflow.yaml")
	content := "output: pretty\naddr: \":9000\"\nfetch_timeout: 3s\nheaders:\n  X-Tenant: acme\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("FORMFLOW_ADDR", ":9100")

	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"--output", "form"}))

	cfg, err := Load(path, fs)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "form", cfg.Output, "flag beats file")
	assert.Equal(t, ":9100", cfg.Addr, "env beats file")
	assert.Equal(t, 3*time.Second, cfg.FetchTimeout, "file beats defaults")
	assert.Equal(t, map[string]string{"X-Tenant": "acme"}, cfg.Headers)
}

func TestLoadUnsetFlagsDoNotOverride(t *testing.T) {
	t.Setenv("FORMFLOW_OUTPUT", "pretty")

	fs := testFlags()
	require.NoError(t, fs.Parse(nil))

	cfg, err := Load("", fs)
	require.NoError(t, err)
	assert.Equal(t, "pretty", cfg.Output)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("FORMFLOW_OUTPUT", "xml")

	_, err := Load("", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `output must be json, form or pretty, got "xml"`)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
}
