package video2frame

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"

	ffmpeg "github.com/u2takey/ffmpeg-go"
	"go.uber.org/zap"

	"video2barcode/logger"
	v2btypes "video2barcode/type"
)

func init() {
	ffmpeg.LogCompiledCommand = false
}

// rgb24 每像素 3 字节
const rgbChannels = 3

// VideoInfo 是 ffprobe 报告的视频流信息
type VideoInfo struct {
	Width       int
	Height      int
	TotalFrames int // 0 表示未知
}

// videoProbe 只关心视频流
type videoProbe struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		NbFrames     string `json:"nb_frames"`      // 有些容器没有
		AvgFrameRate string `json:"avg_frame_rate"` // fallback
		Duration     string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe 用 ffprobe 读取第一个视频流的尺寸和总帧数
func Probe(videoPath string) (VideoInfo, error) {
	probeStr, err := ffmpeg.Probe(videoPath)
	if err != nil {
		return VideoInfo{}, fmt.Errorf("ffprobe error: %w", err)
	}
	return parseProbe(probeStr)
}

func parseProbe(probeStr string) (VideoInfo, error) {
	var probe videoProbe
	if err := json.Unmarshal([]byte(probeStr), &probe); err != nil {
		return VideoInfo{}, fmt.Errorf("json unmarshal error: %w", err)
	}

	for _, stream := range probe.Streams {
		if stream.CodecType != "video" {
			continue
		}
		if stream.Width <= 0 || stream.Height <= 0 {
			return VideoInfo{}, fmt.Errorf("video stream has no dimensions (%dx%d)", stream.Width, stream.Height)
		}
		duration := stream.Duration
		if duration == "" {
			duration = probe.Format.Duration
		}
		return VideoInfo{
			Width:       stream.Width,
			Height:      stream.Height,
			TotalFrames: totalFrames(stream.NbFrames, stream.AvgFrameRate, duration),
		}, nil
	}

	return VideoInfo{}, errors.New("no video stream found")
}

// totalFrames 优先用 nb_frames，否则用 avg_frame_rate * duration 估算
func totalFrames(nbFrames, avgFrameRate, duration string) int {
	if n, err := strconv.Atoi(nbFrames); err == nil && n > 0 {
		return n
	}
	parts := strings.Split(avgFrameRate, "/")
	if len(parts) != 2 {
		return 0
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	secs, err3 := strconv.ParseFloat(duration, 64)
	if err1 != nil || err2 != nil || err3 != nil || den == 0 {
		return 0
	}
	return int(math.Round(num / den * secs))
}

// FFmpegDecoder 让 ffmpeg 把视频解码成 rgb24 rawvideo 写入管道，再按帧大小切分
type FFmpegDecoder struct {
	info      VideoInfo
	width     int
	height    int
	frameSize int

	r      *io.PipeReader
	cancel context.CancelFunc
	done   chan error
	log    *zap.Logger

	closeOnce sync.Once
}

// NewFFmpegDecoder 探测输入并启动 ffmpeg 进程
func NewFFmpegDecoder(ctx context.Context, videoPath string, opts Options) (*FFmpegDecoder, error) {
	info, err := Probe(videoPath)
	if err != nil {
		return nil, err
	}
	log := logger.OrNop(opts.Logger)

	width, height := info.Width, info.Height
	kwargs := ffmpeg.KwArgs{
		"format":  "rawvideo",
		"pix_fmt": "rgb24",
	}
	if opts.ScaleWidth > 0 && opts.ScaleWidth != width {
		height = scaledHeight(info.Width, info.Height, opts.ScaleWidth)
		width = opts.ScaleWidth
		kwargs["vf"] = fmt.Sprintf("scale=%d:%d", width, height)
	}

	ctx, cancel := context.WithCancel(ctx)
	r, w := io.Pipe()
	var stderr bytes.Buffer

	stream := ffmpeg.Input(videoPath).
		Output("pipe:1", kwargs).
		GlobalArgs("-loglevel", "error", "-nostdin").
		WithOutput(w).
		WithErrorOutput(&stderr)
	stream.Context = ctx

	d := &FFmpegDecoder{
		info:      info,
		width:     width,
		height:    height,
		frameSize: width * height * rgbChannels,
		r:         r,
		cancel:    cancel,
		done:      make(chan error, 1),
		log:       log,
	}

	go func() {
		err := stream.Run()
		if err != nil && ctx.Err() == nil {
			err = fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(stderr.String()))
		}
		// err 为 nil 时读端看到 io.EOF
		_ = w.CloseWithError(err)
		d.done <- err
	}()

	log.Debug("ffmpeg decoder started",
		zap.String("input", videoPath),
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Int("total_frames", info.TotalFrames),
	)
	return d, nil
}

func scaledHeight(srcW, srcH, dstW int) int {
	h := int(math.Round(float64(srcH) * float64(dstW) / float64(srcW)))
	return max(h, 1)
}

// Read 读取一整帧
func (d *FFmpegDecoder) Read() (v2btypes.Frame, error) {
	pix := make([]uint8, d.frameSize)
	if _, err := io.ReadFull(d.r, pix); err != nil {
		return v2btypes.Frame{}, frameErr(err)
	}
	return v2btypes.Frame{
		Height:   d.height,
		Width:    d.width,
		Channels: rgbChannels,
		Pix:      pix,
	}, nil
}

// Grab 丢弃一帧的字节，不分配帧缓冲
func (d *FFmpegDecoder) Grab() error {
	n, err := io.CopyN(io.Discard, d.r, int64(d.frameSize))
	if err != nil {
		if n > 0 && errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return frameErr(err)
	}
	return nil
}

func frameErr(err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("truncated frame: %w", err)
	}
	return err
}

// TotalFrames 返回 ffprobe 报告的总帧数
func (d *FFmpegDecoder) TotalFrames() int {
	return d.info.TotalFrames
}

// Info 返回探测结果
func (d *FFmpegDecoder) Info() VideoInfo {
	return d.info
}

// Close 结束 ffmpeg 进程并等待其退出；可重复调用
func (d *FFmpegDecoder) Close() error {
	d.closeOnce.Do(func() {
		d.cancel()
		_ = d.r.Close()
		if err := <-d.done; err != nil {
			d.log.Debug("ffmpeg exited", zap.Error(err))
		}
	})
	return nil
}
