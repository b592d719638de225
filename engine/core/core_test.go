package core

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prism.toml")
	data := `
[application]
name = "demo"
frames = 10

[atlas]
initial_size = 256
max_size = 1024

[telemetry]
enabled = true
interval = "250ms"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", cfg.Application.Name)
	assert.Equal(t, uint64(10), cfg.Application.Frames)
	assert.Equal(t, uint32(256), cfg.Atlas.InitialSize)
	assert.Equal(t, uint32(2), cfg.Atlas.Padding)
	assert.Equal(t, 250*time.Millisecond, cfg.Telemetry.Interval.Duration)
	assert.Equal(t, uint32(1280), cfg.Application.Width)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		err    error
	}{
		{"defaults", func(c *Config) {}, nil},
		{"non power of two", func(c *Config) { c.Atlas.InitialSize = 300 }, ErrInvalidSize},
		{"initial above max", func(c *Config) { c.Atlas.InitialSize = 16384 }, ErrInvalidSize},
		{"unknown backend", func(c *Config) { c.Renderer.Backend = "metal" }, ErrBackendUnavailable},
		{"unknown shaper", func(c *Config) { c.Renderer.Shaper = "icu" }, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.err == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}
}

func TestSetLogLevel(t *testing.T) {
	require.NoError(t, SetLogLevel("warn"))
	assert.Error(t, SetLogLevel("loud"))
	require.NoError(t, SetLogLevel("debug"))
}

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	require.NoError(t, SetLogLevel("debug"))
	var buf bytes.Buffer
	Logger().SetOutput(&buf)
	t.Cleanup(func() { Logger().SetOutput(os.Stderr) })
	return &buf
}

func TestLogKeepsPercentInArguments(t *testing.T) {
	buf := captureLog(t)
	LogWarn("%s", errors.New("atlas 100% full"))
	assert.Contains(t, buf.String(), "atlas 100% full")
	assert.NotContains(t, buf.String(), "%!")
}

func TestMetricsFPS(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < 61; i++ {
		m.Update(1.0 / 60.0)
	}
	assert.InDelta(t, 60, m.FPS(), 1)
	assert.InDelta(t, 16.67, m.FrameTime(), 0.1)
	assert.Equal(t, uint64(61), m.TotalFrame)
}

func TestEventBus(t *testing.T) {
	bus := NewEventBus()
	var got []string
	first := func(code SystemEventCode, sender, listener interface{}, data EventContext) bool {
		got = append(got, "first:"+data.Label)
		return false
	}
	second := func(code SystemEventCode, sender, listener interface{}, data EventContext) bool {
		got = append(got, "second:"+data.Label)
		return true
	}

	assert.True(t, bus.Register(EVENT_CODE_ASSET_RELOADED, "a", first))
	assert.False(t, bus.Register(EVENT_CODE_ASSET_RELOADED, "a", first))
	assert.True(t, bus.Register(EVENT_CODE_ASSET_RELOADED, "b", second))

	assert.True(t, bus.Fire(EVENT_CODE_ASSET_RELOADED, nil, EventContext{Label: "cat"}))
	assert.Equal(t, []string{"first:cat", "second:cat"}, got)

	assert.True(t, bus.Unregister(EVENT_CODE_ASSET_RELOADED, "b"))
	assert.False(t, bus.Fire(EVENT_CODE_ASSET_RELOADED, nil, EventContext{}))
	assert.False(t, bus.Fire(EVENT_CODE_ATLAS_GROWN, nil, EventContext{}))
}

func TestTelemetryKeepsBoundedHistory(t *testing.T) {
	tel := NewTelemetry(time.Hour, 3)
	for i := 0; i < 5; i++ {
		tel.Sample()
	}
	h := tel.History()
	assert.Len(t, h, 3)
	assert.True(t, h[0].At.Before(h[2].At) || h[0].At.Equal(h[2].At))
	assert.NotZero(t, h[2].HeapAlloc)
}

func TestTelemetryLogsMissingCPUClock(t *testing.T) {
	buf := captureLog(t)
	cpuClock = func() (time.Duration, error) { return 0, errors.ErrUnsupported }
	t.Cleanup(func() { cpuClock = processCPUTime })

	tel := NewTelemetry(time.Hour, 2)
	tel.Start(context.Background())
	tel.Stop()
	s := tel.Sample()

	assert.Zero(t, s.CPUPercent)
	assert.Contains(t, buf.String(), "cannot read process cpu time")
	assert.Contains(t, buf.String(), "cpu sample skipped")
}

func TestClock(t *testing.T) {
	c := NewClock()
	c.Update()
	assert.Zero(t, c.Elapsed())
	c.Start()
	time.Sleep(2 * time.Millisecond)
	c.Update()
	assert.Greater(t, c.Elapsed(), 0.0)
	c.Stop()
	e := c.Elapsed()
	c.Update()
	assert.Equal(t, e, c.Elapsed())
}
