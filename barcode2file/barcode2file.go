package barcode2file

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"video2barcode/column2barcode"
	v2btypes "video2barcode/type"
)

// ErrEmptyBarcode 表示没有采样到任何帧，条形码宽度为 0，不产生任何输出
var ErrEmptyBarcode = errors.New("barcode is empty: no frames were sampled")

// Sink 是条形码的输出目标
type Sink interface {
	Write(ctx context.Context, b *v2btypes.Barcode) error
}

// Options 控制编码
type Options struct {
	// Quality 是 JPEG 质量 (1..100)，0 表示使用 imaging 的默认值
	Quality int
	// Height 大于 0 时把条形码纵向拉伸到该高度
	Height int
}

// Encode 按 format 把条形码编码写入 w
func Encode(w io.Writer, b *v2btypes.Barcode, format imaging.Format, opts Options) error {
	if b.Empty() {
		return ErrEmptyBarcode
	}
	img, err := column2barcode.Image(b)
	if err != nil {
		return err
	}
	img = column2barcode.Stretch(img, opts.Height)

	var encOpts []imaging.EncodeOption
	if opts.Quality > 0 {
		encOpts = append(encOpts, imaging.JPEGQuality(opts.Quality))
	}
	if err := imaging.Encode(w, img, format, encOpts...); err != nil {
		return fmt.Errorf("encode %s: %w", format, err)
	}
	return nil
}

// FileSink 把条形码写成本地图片，格式由扩展名决定
type FileSink struct {
	Path string
	Options
}

func (s *FileSink) Write(ctx context.Context, b *v2btypes.Barcode) error {
	if b.Empty() {
		return ErrEmptyBarcode
	}
	format, err := imaging.FormatFromFilename(s.Path)
	if err != nil {
		return fmt.Errorf("output %s: %w", s.Path, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return WriteAtomic(s.Path, func(w io.Writer) error {
		return Encode(w, b, format, s.Options)
	})
}

// WriteAtomic 先写同目录的临时文件，再 rename 到 path
//
// write 返回错误时临时文件被删除，目标文件保持原样。
func WriteAtomic(path string, write func(io.Writer) error) error {
	dir, name := filepath.Split(filepath.Clean(path))
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	// 前缀带 '.'，避免在文件浏览器里看到半成品
	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, filepath.Join(dir, name))
}
