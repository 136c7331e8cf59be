package color2svg

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"io"

	svg "github.com/ajstarks/svgo"
	"github.com/gotranspile/gotrace"

	"video2barcode/barcode2file"
	"video2barcode/column2barcode"
	v2btypes "video2barcode/type"
)

// Sink 把条形码写成 SVG
//
// 默认每列按相同颜色的连续像素合并成一个 rect；Trace 为 true 时改为用 gotrace
// 把亮度轮廓描成矢量路径。
type Sink struct {
	Path  string
	Trace bool
}

func (s *Sink) Write(ctx context.Context, b *v2btypes.Barcode) error {
	if b.Empty() {
		return barcode2file.ErrEmptyBarcode
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return barcode2file.WriteAtomic(s.Path, func(w io.Writer) error {
		if s.Trace {
			return Trace(w, b)
		}
		return Render(w, b)
	})
}

// Render 用 svgo 输出条形码，一段颜色相同的竖向像素对应一个 rect
func Render(w io.Writer, b *v2btypes.Barcode) error {
	if b.Empty() {
		return barcode2file.ErrEmptyBarcode
	}
	if _, err := column2barcode.Image(b); err != nil {
		return err
	}

	ew := &errWriter{w: w}
	canvas := svg.New(ew)
	canvas.Start(b.Width, b.Height,
		fmt.Sprintf(`viewBox="0 0 %d %d"`, b.Width, b.Height),
		`shape-rendering="crispEdges"`,
	)

	c := b.Channels
	for x := 0; x < b.Width; x++ {
		y0 := 0
		for y := 1; y <= b.Height; y++ {
			if y < b.Height && samePixel(b, x, y0, y) {
				continue
			}
			i := (y0*b.Width + x) * c
			canvas.Rect(x, y0, 1, y-y0, fill(canvas, b.Pix[i:i+c]))
			y0 = y
		}
	}

	canvas.End()
	return ew.err
}

func samePixel(b *v2btypes.Barcode, x, y0, y1 int) bool {
	c := b.Channels
	i, j := (y0*b.Width+x)*c, (y1*b.Width+x)*c
	return bytes.Equal(b.Pix[i:i+c], b.Pix[j:j+c])
}

func fill(canvas *svg.SVG, px []uint8) string {
	switch len(px) {
	case 1:
		return canvas.RGB(int(px[0]), int(px[0]), int(px[0]))
	case 4:
		return canvas.RGBA(int(px[0]), int(px[1]), int(px[2]), float64(px[3])/255)
	default:
		return canvas.RGB(int(px[0]), int(px[1]), int(px[2]))
	}
}

// Trace 把条形码量化成深浅两种主色，再用 gotrace 把深色区域描成 SVG 路径
func Trace(w io.Writer, b *v2btypes.Barcode) error {
	img, err := column2barcode.Image(b)
	if err != nil {
		return err
	}
	palette, err := column2barcode.Palette(b, 2)
	if err != nil {
		return err
	}
	mask := column2barcode.Mask(img, palette, darkest(palette))

	bm := gotrace.BitmapFromGray(mask, nil)
	paths, err := gotrace.Trace(bm, nil)
	if err != nil {
		return err
	}
	return gotrace.Render("svg", nil, w, paths, b.Width, b.Height)
}

func darkest(palette []color.RGBA) int {
	best, bestY := 0, uint8(255)
	for i, c := range palette {
		if y := color.GrayModel.Convert(c).(color.Gray).Y; y <= bestY {
			best, bestY = i, y
		}
	}
	return best
}

// errWriter 记住第一个写错误，svgo 本身不返回错误
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}
