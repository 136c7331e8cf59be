package main

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"video2barcode/video2frame"
)

// progressObserver 在终端显示已归约的帧数；总数未知时显示为不定长进度条
type progressObserver struct {
	bar *progressbar.ProgressBar
}

func newProgressObserver(w io.Writer, dec video2frame.Decoder, skip int) *progressObserver {
	total := -1
	if fc, ok := dec.(video2frame.FrameCounter); ok {
		if n := video2frame.EstimateSamples(fc.TotalFrames(), skip); n > 0 {
			total = n
		}
	}

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Sampling"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "▐",
			BarEnd:        "▌",
		}),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("frames"),
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetRenderBlankState(true),
	)
	return &progressObserver{bar: bar}
}

func (p *progressObserver) OnSubmitted(int) {}

// OnReduced 可能被多个 worker 同时调用；ProgressBar 自带锁
func (p *progressObserver) OnReduced(int, time.Duration) {
	_ = p.bar.Add(1)
}

func (p *progressObserver) Finish() {
	_ = p.bar.Finish()
}
