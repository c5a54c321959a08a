package cli

import (
	"testing"

	"schem-tracer/internal/config"
	"schem-tracer/internal/text"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tuningFlags(t *testing.T, args ...string) (*pflag.FlagSet, tuningOptions) {
	t.Helper()
	var opts tuningOptions
	f := pflag.NewFlagSet("tuning", pflag.ContinueOnError)
	addTuningFlags(f, &opts)
	require.NoError(t, f.Parse(args))
	return f, opts
}

func TestApplyTuning(t *testing.T) {
	base := config.Default()
	f, opts := tuningFlags(t,
		"--max-radius", "5", "--allow-filled", "--y-tolerance", "8", "--direction", "left",
		"--pin-search-radius", "40", "--tolerance", "1.5", "--workers", "2", "--no-busbar")

	cfg, err := applyTuning(f, opts, base)
	require.NoError(t, err)
	assert.Equal(t, base.MinRadius, cfg.MinRadius)
	assert.Equal(t, 5.0, cfg.MaxRadius)
	assert.Equal(t, base.MaxCV, cfg.MaxCV)
	assert.False(t, cfg.OnlyUnfilled)
	assert.Equal(t, base.SearchRadius, cfg.SearchRadius)
	assert.Equal(t, 8.0, cfg.YTolerance)
	assert.Equal(t, text.DirLeft, cfg.Direction)
	assert.Equal(t, 40.0, cfg.PinSearchRadius)
	assert.Equal(t, 1.5, cfg.ConnectionTolerance)
	assert.Equal(t, 2, cfg.Workers())
	assert.Equal(t, base.OCRZoom, cfg.OCRZoom)
	assert.False(t, cfg.BusbarLabels)
}

// Unchanged flags keep whatever the config file said, not the defaults.
func TestApplyTuningKeepsConfig(t *testing.T) {
	fromFile := config.Default().WithSearch(30, text.DirBottom, 4).WithConnectionTolerance(6)
	f, opts := tuningFlags(t)

	cfg, err := applyTuning(f, opts, fromFile)
	require.NoError(t, err)
	assert.Equal(t, fromFile, cfg)
}

func TestApplyTuningRejects(t *testing.T) {
	for name, args := range map[string][]string{
		"inverted radius": {"--min-radius", "9"},
		"bad direction":   {"--direction", "sideways"},
		"negative":        {"--tolerance=-1"},
	} {
		t.Run(name, func(t *testing.T) {
			f, opts := tuningFlags(t, args...)
			_, err := applyTuning(f, opts, config.Default())
			assert.Error(t, err)
		})
	}
}
