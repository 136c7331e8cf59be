package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTextfile(t *testing.T) {
	FramesSampledTotal.Add(3)
	StageDuration.WithLabelValues("collect").Observe(1.5)

	path := filepath.Join(t.TempDir(), "nested", "video2barcode.prom")
	require.NoError(t, WriteTextfile(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(b)
	assert.True(t, strings.Contains(text, "video2barcode_frames_sampled_total"))
	assert.True(t, strings.Contains(text, `video2barcode_stage_duration_seconds_count{stage="collect"}`))
}

func TestWriteTextfileCustomGatherer(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "only_here_total", Help: "x"})
	reg.MustRegister(c)
	c.Inc()

	path := filepath.Join(t.TempDir(), "custom.prom")
	require.NoError(t, writeTextfile(path, reg))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "only_here_total 1")
	assert.NotContains(t, string(b), "video2barcode_")
}

func TestReductionsByOutcome(t *testing.T) {
	before := testutil.ToFloat64(ReductionsTotal.WithLabelValues("ok"))
	ReductionsTotal.WithLabelValues("ok").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(ReductionsTotal.WithLabelValues("ok")))
}
