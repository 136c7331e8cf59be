package column2barcode

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	v2btypes "video2barcode/type"
)

// ShapeError 表示某一列的形状与第一列不一致（例如视频中途改变了分辨率）
type ShapeError struct {
	Index        int
	Length       int
	Channels     int
	WantLength   int
	WantChannels int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("column %d has shape %dx%d, want %dx%d",
		e.Index, e.Length, e.Channels, e.WantLength, e.WantChannels)
}

// Assemble 把 N 个形状为 (H, C) 的列堆叠成 (N, H, C)，再交换前两个轴得到 (H, N, C)
//
// 结果的第 i 列就是 cols[i]。没有任何列时返回宽度为 0 的条形码。
func Assemble(cols []v2btypes.Column) (*v2btypes.Barcode, error) {
	if len(cols) == 0 {
		return &v2btypes.Barcode{}, nil
	}

	h, c := cols[0].Length, cols[0].Channels
	for i, col := range cols {
		if col.Length != h || col.Channels != c || len(col.Pix) != h*c {
			return nil, &ShapeError{
				Index:        i,
				Length:       col.Length,
				Channels:     col.Channels,
				WantLength:   h,
				WantChannels: c,
			}
		}
	}

	n := len(cols)
	pix := make([]uint8, h*n*c)
	for x, col := range cols {
		for y := 0; y < h; y++ {
			dst := (y*n + x) * c
			copy(pix[dst:dst+c], col.Pix[y*c:(y+1)*c])
		}
	}

	return &v2btypes.Barcode{Height: h, Width: n, Channels: c, Pix: pix}, nil
}

// Image 把条形码包装成 image.Image：1 通道为灰度，3/4 通道为 NRGBA
func Image(b *v2btypes.Barcode) (image.Image, error) {
	if b.Empty() {
		return nil, fmt.Errorf("barcode is empty")
	}
	rect := image.Rect(0, 0, b.Width, b.Height)

	switch b.Channels {
	case 1:
		img := image.NewGray(rect)
		copy(img.Pix, b.Pix)
		return img, nil
	case 3:
		img := image.NewNRGBA(rect)
		for i, j := 0, 0; i < len(b.Pix); i, j = i+3, j+4 {
			img.Pix[j] = b.Pix[i]
			img.Pix[j+1] = b.Pix[i+1]
			img.Pix[j+2] = b.Pix[i+2]
			img.Pix[j+3] = 0xff
		}
		return img, nil
	case 4:
		img := image.NewNRGBA(rect)
		copy(img.Pix, b.Pix)
		return img, nil
	default:
		return nil, fmt.Errorf("unsupported channel count %d", b.Channels)
	}
}

// Stretch 把图像纵向拉伸到 height 像素，宽度（时间轴）不变；height<=0 时原样返回
func Stretch(img image.Image, height int) image.Image {
	if height <= 0 || height == img.Bounds().Dy() {
		return img
	}
	return imaging.Resize(img, img.Bounds().Dx(), height, imaging.Lanczos)
}
