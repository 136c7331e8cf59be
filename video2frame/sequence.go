package video2frame

import (
	"fmt"
	"image"
	"io"
	"path/filepath"
	"sort"

	"github.com/disintegration/imaging"

	v2btypes "video2barcode/type"
)

// ImageSequenceDecoder 把一组按文件名排序的图片当作视频流
type ImageSequenceDecoder struct {
	paths []string
	next  int
}

// NewImageSequenceDecoder 展开通配符，例如 frames/*.png
func NewImageSequenceDecoder(pattern string) (*ImageSequenceDecoder, error) {
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	sort.Strings(paths)
	return &ImageSequenceDecoder{paths: paths}, nil
}

// Read 解码下一张图片并转成 RGB 帧
func (d *ImageSequenceDecoder) Read() (v2btypes.Frame, error) {
	if d.next >= len(d.paths) {
		return v2btypes.Frame{}, io.EOF
	}
	path := d.paths[d.next]
	d.next++

	img, err := imaging.Open(path)
	if err != nil {
		return v2btypes.Frame{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return imageToFrame(img), nil
}

// Grab 只移动游标，不解码
func (d *ImageSequenceDecoder) Grab() error {
	if d.next >= len(d.paths) {
		return io.EOF
	}
	d.next++
	return nil
}

// TotalFrames 返回序列中的图片数
func (d *ImageSequenceDecoder) TotalFrames() int {
	return len(d.paths)
}

func (d *ImageSequenceDecoder) Close() error {
	d.next = len(d.paths)
	return nil
}

// imageToFrame 丢弃 alpha，按 RGB 三通道展开
func imageToFrame(img image.Image) v2btypes.Frame {
	nrgba := imaging.Clone(img)
	b := nrgba.Bounds()
	w, h := b.Dx(), b.Dy()

	pix := make([]uint8, w*h*rgbChannels)
	for y := 0; y < h; y++ {
		src := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+w*4]
		dst := pix[y*w*rgbChannels : (y+1)*w*rgbChannels]
		for x := 0; x < w; x++ {
			copy(dst[x*rgbChannels:(x+1)*rgbChannels], src[x*4:x*4+rgbChannels])
		}
	}

	return v2btypes.Frame{Height: h, Width: w, Channels: rgbChannels, Pix: pix}
}
