package video2frame

import (
	"errors"
	"io"

	"go.uber.org/zap"

	"video2barcode/logger"
	"video2barcode/metrics"
	v2btypes "video2barcode/type"
)

// EndReason 记录采样序列为什么结束
type EndReason int

const (
	NotEnded EndReason = iota
	EndOfStream
	DecodeFailure
)

func (r EndReason) String() string {
	switch r {
	case EndOfStream:
		return "eof"
	case DecodeFailure:
		return "decode_failure"
	default:
		return "running"
	}
}

// Stats 是 Source 的运行统计
type Stats struct {
	Yielded      int
	Grabbed      int
	GrabFailures int
	Reason       EndReason
	Err          error
}

// Source 以固定步长从 Decoder 中采样帧
//
// 序列是惰性的、有限的、只能向前，结束后不可重来；需要重新遍历时请重新打开 Decoder。
type Source struct {
	dec     Decoder
	skip    int
	log     *zap.Logger
	started bool
	done    bool
	stats   Stats
}

// NewSource 创建采样器，每产出一帧后跳过 skip 帧
func NewSource(dec Decoder, skip int, log *zap.Logger) *Source {
	if skip < 0 {
		skip = 0
	}
	return &Source{dec: dec, skip: skip, log: logger.OrNop(log)}
}

// Next 返回下一帧采样；序列结束时 ok 为 false
//
// 跳帧中途失败时放弃剩余的跳帧，直接尝试下一次完整读取（通常也会失败并结束序列）。
func (s *Source) Next() (frame v2btypes.Frame, ok bool) {
	if s.done {
		return v2btypes.Frame{}, false
	}

	if s.started {
		for i := 0; i < s.skip; i++ {
			if err := s.dec.Grab(); err != nil {
				s.stats.GrabFailures++
				s.log.Debug("grab failed, abandoning remaining skips",
					zap.Int("skipped", i), zap.Int("skip", s.skip), zap.Error(err))
				break
			}
			s.stats.Grabbed++
			metrics.FramesGrabbedTotal.Inc()
		}
	}
	s.started = true

	frame, err := s.dec.Read()
	if err != nil {
		s.finish(err)
		return v2btypes.Frame{}, false
	}

	s.stats.Yielded++
	metrics.FramesSampledTotal.Inc()
	return frame, true
}

// 解码失败和正常结束都会终止序列；前者无法与“没有更多帧”区分，只能记录下来
func (s *Source) finish(err error) {
	s.done = true
	if errors.Is(err, io.EOF) {
		s.stats.Reason = EndOfStream
		s.log.Debug("frame source exhausted",
			zap.Int("sampled", s.stats.Yielded), zap.Int("grabbed", s.stats.Grabbed))
		return
	}

	s.stats.Reason = DecodeFailure
	s.stats.Err = err
	metrics.DecodeFailuresTotal.Inc()
	s.log.Warn("frame read failed, treating as end of stream",
		zap.Int("sampled", s.stats.Yielded), zap.Int("grabbed", s.stats.Grabbed), zap.Error(err))
}

// Stats 返回当前统计
func (s *Source) Stats() Stats {
	return s.stats
}
