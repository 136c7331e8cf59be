package column2barcode

import (
	"fmt"
	"image"
	"image/color"
	"sort"

	v2btypes "video2barcode/type"
)

type pixel struct {
	R, G, B int
}

// box 是中位切分里的一个颜色盒子
type box struct {
	pixels     []pixel
	rMin, rMax int
	gMin, gMax int
	bMin, bMax int
}

func newBox(pixels []pixel) *box {
	b := &box{pixels: pixels, rMin: 255, gMin: 255, bMin: 255}
	for _, p := range pixels {
		b.rMin, b.rMax = min(b.rMin, p.R), max(b.rMax, p.R)
		b.gMin, b.gMax = min(b.gMin, p.G), max(b.gMax, p.G)
		b.bMin, b.bMax = min(b.bMin, p.B), max(b.bMax, p.B)
	}
	return b
}

func (b *box) widest() (channel int, span int) {
	r, g, bl := b.rMax-b.rMin, b.gMax-b.gMin, b.bMax-b.bMin
	switch {
	case r >= g && r >= bl:
		return 0, r
	case g >= bl:
		return 1, g
	default:
		return 2, bl
	}
}

func (b *box) mean() color.RGBA {
	var r, g, bl int
	for _, p := range b.pixels {
		r += p.R
		g += p.G
		bl += p.B
	}
	n := len(b.pixels)
	return color.RGBA{R: uint8(r / n), G: uint8(g / n), B: uint8(bl / n), A: 255}
}

// Palette 用中位切分从条形码里提取至多 k 种主色，按覆盖像素数从多到少排列
func Palette(b *v2btypes.Barcode, k int) ([]color.RGBA, error) {
	if b.Empty() {
		return nil, fmt.Errorf("barcode is empty")
	}
	if k <= 0 {
		return nil, fmt.Errorf("palette size must be > 0, got %d", k)
	}
	img, err := Image(b)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	pixels := make([]pixel, 0, bounds.Dx()*bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			pixels = append(pixels, pixel{R: int(r >> 8), G: int(g >> 8), B: int(bl >> 8)})
		}
	}

	boxes := []*box{newBox(pixels)}
	for len(boxes) < k {
		// 切范围最大的盒子；所有盒子都只剩一种颜色时停止
		split, best := -1, 0
		for i, bx := range boxes {
			if _, span := bx.widest(); span > best && len(bx.pixels) > 1 {
				split, best = i, span
			}
		}
		if split < 0 {
			break
		}

		bx := boxes[split]
		ch, _ := bx.widest()
		sort.Slice(bx.pixels, func(i, j int) bool {
			switch ch {
			case 0:
				return bx.pixels[i].R < bx.pixels[j].R
			case 1:
				return bx.pixels[i].G < bx.pixels[j].G
			default:
				return bx.pixels[i].B < bx.pixels[j].B
			}
		})
		mid := len(bx.pixels) / 2
		lo, hi := newBox(bx.pixels[:mid]), newBox(bx.pixels[mid:])
		boxes = append(boxes[:split], append([]*box{lo, hi}, boxes[split+1:]...)...)
	}

	sort.SliceStable(boxes, func(i, j int) bool {
		return len(boxes[i].pixels) > len(boxes[j].pixels)
	})
	palette := make([]color.RGBA, len(boxes))
	for i, bx := range boxes {
		palette[i] = bx.mean()
	}
	return palette, nil
}

// Nearest 返回 palette 中与 c 距离最近的颜色下标
func Nearest(palette []color.RGBA, c color.Color) int {
	r, g, b, _ := c.RGBA()
	rr, gg, bb := int(r>>8), int(g>>8), int(b>>8)

	best, bestDist := 0, -1
	for i, p := range palette {
		dr, dg, db := rr-int(p.R), gg-int(p.G), bb-int(p.B)
		dist := dr*dr + dg*dg + db*db
		if bestDist < 0 || dist < bestDist {
			best, bestDist = i, dist
		}
	}
	return best
}

// Mask 把与 palette[index] 最接近的像素标成黑色，其余为白色背景
func Mask(img image.Image, palette []color.RGBA, index int) *image.Gray {
	bounds := img.Bounds()
	mask := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if Nearest(palette, img.At(x, y)) == index {
				mask.SetGray(x, y, color.Gray{Y: 0})
			} else {
				mask.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return mask
}

// Hex 把颜色格式化成 #rrggbb
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
