package config

import (
	"flag"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v2btypes "video2barcode/type"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "barcode.jpg", cfg.Output)
	assert.Equal(t, 30, cfg.Skip)
	assert.Equal(t, 0, cfg.Workers)
	assert.Equal(t, "width", cfg.Axis)
	assert.Equal(t, 95, cfg.JPEGQuality)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Serial)
	assert.Empty(t, cfg.MinIOAccessKey)
	assert.Empty(t, cfg.MinIOSecretKey)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BARCODE_INPUT", "movie.mp4")
	t.Setenv("BARCODE_SKIP", "0")
	t.Setenv("BARCODE_AXIS", "height")
	t.Setenv("BARCODE_SERIAL", "true")
	t.Setenv("MINIO_USE_SSL", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "movie.mp4", cfg.Input)
	assert.Equal(t, 0, cfg.Skip)
	assert.Equal(t, v2btypes.AxisHeight, cfg.ReductionAxis())
	assert.True(t, cfg.Serial)
	assert.True(t, cfg.MinIOUseSSL)
}

func TestLoadRejectsBadEnv(t *testing.T) {
	t.Setenv("BARCODE_SKIP", "many")
	_, err := Load()
	assert.Error(t, err)
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("BARCODE_SKIP", "10")
	cfg, err := Load()
	require.NoError(t, err)

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cfg.BindFlags(fs)

	// 未给出的参数保持环境变量的值
	require.NoError(t, fs.Parse([]string{"-video", "in.mp4", "-workers", "4"}))
	assert.Equal(t, "in.mp4", cfg.Input)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 10, cfg.Skip)

	require.NoError(t, fs.Parse([]string{"-skip", "2"}))
	assert.Equal(t, 2, cfg.Skip)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{Input: "in.mp4", Output: "out.jpg", Skip: 30, Axis: "width", JPEGQuality: 95}
	}
	require.NoError(t, valid().Validate())

	tests := map[string]func(c *Config){
		"missing input":    func(c *Config) { c.Input = "" },
		"missing output":   func(c *Config) { c.Output = "" },
		"negative skip":    func(c *Config) { c.Skip = -1 },
		"negative workers": func(c *Config) { c.Workers = -2 },
		"negative scale":   func(c *Config) { c.ScaleWidth = -1 },
		"negative height":  func(c *Config) { c.OutputHeight = -1 },
		"negative palette": func(c *Config) { c.Palette = -1 },
		"quality zero":     func(c *Config) { c.JPEGQuality = 0 },
		"quality too high": func(c *Config) { c.JPEGQuality = 101 },
		"unknown axis":     func(c *Config) { c.Axis = "depth" },
		"s3 without keys":  func(c *Config) { c.Output = "s3://barcodes/a.png" },
		"s3 without secret": func(c *Config) {
			c.Output = "s3://barcodes/a.png"
			c.MinIOAccessKey = "ak"
		},
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestValidateMinIOCredentials(t *testing.T) {
	c := &Config{Input: "in.mp4", Output: "s3://barcodes/a.png", Axis: "width", JPEGQuality: 95,
		MinIOAccessKey: "ak", MinIOSecretKey: "sk"}
	assert.NoError(t, c.Validate())

	// 本地输出不需要凭据
	c = &Config{Input: "in.mp4", Output: "out.png", Axis: "width", JPEGQuality: 95}
	assert.NoError(t, c.Validate())

	c.Output = "s3://barcodes/a.png"
	assert.ErrorContains(t, c.Validate(), "MINIO_ACCESS_KEY")
}

func TestValidateJoinsErrors(t *testing.T) {
	c := &Config{Skip: -1, Axis: "depth", JPEGQuality: 0}
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "skip")
	assert.Contains(t, err.Error(), "quality")
	assert.Contains(t, err.Error(), "input")
}
