package color2svg

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rustyoz/svg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video2barcode/barcode2file"
	v2btypes "video2barcode/type"
)

// 3 行 2 列：第 0 列上两格相同，第 1 列三格各不相同
func stripes() *v2btypes.Barcode {
	return &v2btypes.Barcode{
		Height: 3, Width: 2, Channels: 3,
		Pix: []uint8{
			10, 10, 10, 0, 0, 0,
			10, 10, 10, 128, 128, 128,
			99, 0, 0, 255, 255, 255,
		},
	}
}

func TestRenderMergesRuns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, stripes()))
	out := buf.String()

	assert.Contains(t, out, "<svg")
	assert.Contains(t, out, `width="2"`)
	assert.Contains(t, out, `height="3"`)
	// 第 0 列合并成 2 个 rect，第 1 列 3 个
	assert.Equal(t, 5, strings.Count(out, "<rect"))
	assert.Contains(t, out, "rgb(10,10,10)")
	assert.Contains(t, out, "rgb(99,0,0)")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "</svg>"))
}

func TestRenderParsesBack(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, stripes()))

	parsed, err := svg.ParseSvg(buf.String(), "barcode", 1.0)
	require.NoError(t, err)
	assert.Equal(t, "0 0 2 3", parsed.ViewBox)
}

func TestRenderGray(t *testing.T) {
	b := &v2btypes.Barcode{Height: 2, Width: 1, Channels: 1, Pix: []uint8{7, 7}}
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, b))
	assert.Equal(t, 1, strings.Count(buf.String(), "<rect"))
	assert.Contains(t, buf.String(), "rgb(7,7,7)")
}

func TestRenderEmpty(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, Render(&buf, &v2btypes.Barcode{}), barcode2file.ErrEmptyBarcode)
	assert.Zero(t, buf.Len())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestRenderReportsWriteError(t *testing.T) {
	assert.EqualError(t, Render(failingWriter{}, stripes()), "disk full")
}

func TestSinkWritesFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "barcode.svg")
	require.NoError(t, (&Sink{Path: out}).Write(context.Background(), stripes()))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<rect")
}

func TestSinkRefusesEmpty(t *testing.T) {
	dir := t.TempDir()
	err := (&Sink{Path: filepath.Join(dir, "barcode.svg")}).Write(context.Background(), &v2btypes.Barcode{})
	assert.ErrorIs(t, err, barcode2file.ErrEmptyBarcode)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTrace(t *testing.T) {
	// 左半黑右半白
	b := &v2btypes.Barcode{Height: 8, Width: 8, Channels: 1, Pix: make([]uint8, 64)}
	for y := 0; y < 8; y++ {
		for x := 4; x < 8; x++ {
			b.Pix[y*8+x] = 255
		}
	}

	var buf bytes.Buffer
	require.NoError(t, Trace(&buf, b))
	assert.Contains(t, buf.String(), "svg")
}

func TestDarkest(t *testing.T) {
	palette := []color.RGBA{{R: 200, G: 200, B: 200, A: 255}, {R: 20, G: 0, B: 40, A: 255}}
	assert.Equal(t, 1, darkest(palette))
	assert.Equal(t, 0, darkest(palette[:1]))
}
