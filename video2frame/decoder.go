package video2frame

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	v2btypes "video2barcode/type"
)

// Decoder 是顺序解码流的最小接口
//
// Read 解码并返回下一帧；流结束时返回 io.EOF。
// Grab 跳过下一帧，只推进读指针，不构造像素数据。
type Decoder interface {
	Read() (v2btypes.Frame, error)
	Grab() error
	Close() error
}

// FrameCounter 由能预估总帧数的 Decoder 实现；0 表示未知
type FrameCounter interface {
	TotalFrames() int
}

// Options 控制解码后端
type Options struct {
	// ScaleWidth 大于 0 时由 ffmpeg 把画面缩放到该宽度（保持宽高比）
	ScaleWidth int
	Logger     *zap.Logger
}

// Open 根据输入选择解码后端：能匹配到文件的通配符按图片序列处理，其余交给 ffmpeg
// （本地文件、URL、采集设备都可以）。文件名里的 [ ] ? 不会被当成通配符。
func Open(ctx context.Context, input string, opts Options) (Decoder, error) {
	if isSequence(input) {
		return NewImageSequenceDecoder(input)
	}
	dec, err := NewFFmpegDecoder(ctx, input, opts)
	if err != nil {
		return nil, err
	}
	return dec, nil
}

// isSequence 只有在 input 不是已存在的路径、不是 URL，且通配符至少匹配到一个文件时才为 true
func isSequence(input string) bool {
	if !isPattern(input) || hasScheme(input) {
		return false
	}
	if _, err := os.Stat(input); err == nil {
		return false
	}
	matches, err := filepath.Glob(input)
	return err == nil && len(matches) > 0
}

func isPattern(input string) bool {
	return strings.ContainsAny(input, "*?[")
}

// hasScheme 识别 http://、rtsp:// 之类的输入；单字母 scheme 视为 Windows 盘符
func hasScheme(input string) bool {
	u, err := url.Parse(input)
	return err == nil && len(u.Scheme) > 1
}

// EstimateSamples 估算 total 帧在跳帧数 skip 下会被采样多少帧：ceil(total/(skip+1))
func EstimateSamples(total, skip int) int {
	if total <= 0 {
		return 0
	}
	if skip < 0 {
		skip = 0
	}
	return (total + skip) / (skip + 1)
}
