package config

import (
	"os"
	"path/filepath"
	"testing"

	"schem-tracer/internal/text"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2.5, cfg.MinRadius)
	assert.Equal(t, 3.5, cfg.MaxRadius)
	assert.Equal(t, text.DirTopRight, cfg.Direction)
	assert.GreaterOrEqual(t, cfg.Workers(), 1)
	assert.True(t, cfg.BusbarLabels)

	p, err := cfg.Compile()
	require.NoError(t, err)
	assert.True(t, p.Group.MatchString("-X12"))
	assert.True(t, p.Group.MatchString("X3"))
	assert.False(t, p.Group.MatchString("12"))
	assert.True(t, p.Label.MatchString("PE"))
	assert.False(t, p.Label.MatchString("A B"))
	assert.True(t, p.Pin.MatchString("L+"))
}

func TestBuildersCopy(t *testing.T) {
	base := Default()
	narrow := base.WithRadius(1, 2).WithDirection(text.DirLeft)

	assert.Equal(t, 2.5, base.MinRadius)
	assert.Equal(t, text.DirTopRight, base.Direction)
	assert.Equal(t, 1.0, narrow.MinRadius)
	assert.Equal(t, text.DirLeft, narrow.Direction)

	ocr := base.WithOCR(0, 4, 0, 2)
	assert.Equal(t, base.OCRPadding, ocr.OCRPadding)
	assert.Equal(t, 4.0, ocr.OCRZoom)
	assert.Equal(t, 2, ocr.Workers())
}

func TestValidateRejects(t *testing.T) {
	tests := map[string]DetectionConfig{
		"inverted radius":  Default().WithRadius(4, 3),
		"negative cv":      Default().WithRoundness(-1, true),
		"zero search":      Default().WithSearch(0, text.DirTop, 15),
		"bad direction":    Default().WithDirection(text.Direction(99)),
		"negative connect": Default().WithConnectionTolerance(-1),
		"bad pattern": func() DetectionConfig {
			c := Default()
			c.GroupPattern = "("
			return c
		}(),
	}
	for name, cfg := range tests {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "detect.json")
	cfg := Default().WithSearch(25, text.DirBottomLeft, 10)
	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"direction": "bottom_left"`)

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"max_radius": 5, "direction": "left"}`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5.0, cfg.MaxRadius)
	assert.Equal(t, text.DirLeft, cfg.Direction)
	assert.Equal(t, Default().MinRadius, cfg.MinRadius)

	require.NoError(t, os.WriteFile(path, []byte(`{"direction": "sideways"}`), 0644))
	_, err = Load(path)
	assert.Error(t, err)
}
