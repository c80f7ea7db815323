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

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "serial", cfg.Transport.Kind)
	assert.Equal(t, "moded", cfg.Transport.Framing)
	assert.Equal(t, 2400, cfg.Transport.SerialBaudRate)
	assert.False(t, cfg.HDLC.UseOctetStuffing)
	assert.True(t, cfg.HDLC.UseAbortSequence)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "meter", cfg.Redis.Key)

	assert.Equal(t, 60*time.Second, cfg.Backoff.ConnectErrorMaxDelay())
	assert.Equal(t, 5*time.Second, cfg.Backoff.ConnectionLostThreshold())
	assert.Equal(t, 5*time.Second, cfg.Backoff.ConnectionLostSleep())
}

func TestLoadWithoutPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadReadsYAMLOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hanreader.yaml")

	contents := `
transport:
  kind: tcp
  addr: 10.0.0.5:3000
  framing: hdlc
hdlc:
  use_octet_stuffing: true
redis:
  addr: redis.local:6379
  key: aidon-meter
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "tcp", cfg.Transport.Kind)
	assert.Equal(t, "10.0.0.5:3000", cfg.Transport.Addr)
	assert.Equal(t, "hdlc", cfg.Transport.Framing)
	assert.True(t, cfg.HDLC.UseOctetStuffing)
	assert.True(t, cfg.HDLC.UseAbortSequence) // untouched by the file, default retained
	assert.Equal(t, "redis.local:6379", cfg.Redis.Addr)
	assert.Equal(t, "aidon-meter", cfg.Redis.Key)

	// Baud rate wasn't present in the file; the default survives.
	assert.Equal(t, 2400, cfg.Transport.SerialBaudRate)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestLoadInvalidYAMLErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("transport: [this is not a mapping"), 0o644))

	_, err := Load(path, nil)
	assert.Error(t, err)
}

func TestApplyFlagsOnlyAppliesChangedFlags(t *testing.T) {
	fs := pflag.NewFlagSet("hanreader", pflag.ContinueOnError)
	RegisterFlags(fs)

	require.NoError(t, fs.Set("addr", "192.168.1.9:8000"))
	require.NoError(t, fs.Set("redis-key", "kamstrup-meter"))

	cfg := Default()
	applyFlags(&cfg, fs)

	assert.Equal(t, "192.168.1.9:8000", cfg.Transport.Addr)
	assert.Equal(t, "kamstrup-meter", cfg.Redis.Key)

	// Flags left at their registered default were never explicitly
	// Set, so Changed is false and the pre-existing value is kept.
	assert.Equal(t, "serial", cfg.Transport.Kind)
	assert.Equal(t, 2400, cfg.Transport.SerialBaudRate)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestApplyFlagsNilFlagSetIsNoop(t *testing.T) {
	cfg := Default()
	applyFlags(&cfg, nil)
	assert.Equal(t, Default(), cfg)
}

func TestLoadAppliesFlagsOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hanreader.yaml")
	require.NoError(t, os.WriteFile(path, []byte("redis:\n  key: file-key\n"), 0o644))

	fs := pflag.NewFlagSet("hanreader", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Set("redis-key", "flag-key"))

	cfg, err := Load(path, fs)
	require.NoError(t, err)
	assert.Equal(t, "flag-key", cfg.Redis.Key)
}
