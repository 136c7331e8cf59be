package video2frame

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	v2btypes "video2barcode/type"
)

// memDecoder 是内存中的解码流，第 n 帧的所有采样都等于 n
type memDecoder struct {
	total   int
	pos     int
	reads   int
	grabs   int
	failAt  int // 读到该位置时返回 failErr；-1 表示不失败
	failErr error
}

func newMemDecoder(total int) *memDecoder {
	return &memDecoder{total: total, failAt: -1}
}

func (d *memDecoder) Read() (v2btypes.Frame, error) {
	d.reads++
	if d.pos == d.failAt {
		return v2btypes.Frame{}, d.failErr
	}
	if d.pos >= d.total {
		return v2btypes.Frame{}, io.EOF
	}
	n := d.pos
	d.pos++
	pix := make([]uint8, 2*2*3)
	for i := range pix {
		pix[i] = uint8(n)
	}
	return v2btypes.Frame{Height: 2, Width: 2, Channels: 3, Pix: pix}, nil
}

func (d *memDecoder) Grab() error {
	d.grabs++
	if d.pos == d.failAt {
		return d.failErr
	}
	if d.pos >= d.total {
		return io.EOF
	}
	d.pos++
	return nil
}

func (d *memDecoder) Close() error { return nil }

func drain(src *Source) []int {
	var got []int
	for {
		frame, ok := src.Next()
		if !ok {
			return got
		}
		got = append(got, int(frame.Pix[0]))
	}
}

func TestSourceSkipCount(t *testing.T) {
	for _, m := range []int{0, 1, 2, 9, 10, 11, 31, 100} {
		for _, s := range []int{0, 1, 2, 3, 30} {
			src := NewSource(newMemDecoder(m), s, nil)
			got := drain(src)
			want := (m + s) / (s + 1)
			assert.Len(t, got, want, "M=%d S=%d", m, s)
			assert.Equal(t, want, EstimateSamples(m, s), "M=%d S=%d", m, s)
			assert.Equal(t, EndOfStream, src.Stats().Reason)
		}
	}
}

func TestSourceYieldsStridedFrames(t *testing.T) {
	src := NewSource(newMemDecoder(10), 2, nil)
	assert.Equal(t, []int{0, 3, 6, 9}, drain(src))

	st := src.Stats()
	assert.Equal(t, 4, st.Yielded)
	assert.Equal(t, 6, st.Grabbed)
}

func TestSourceSkipZeroYieldsEveryFrame(t *testing.T) {
	src := NewSource(newMemDecoder(5), 0, nil)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, drain(src))
	assert.Zero(t, src.Stats().Grabbed)
}

func TestSourceNegativeSkipTreatedAsZero(t *testing.T) {
	src := NewSource(newMemDecoder(3), -4, nil)
	assert.Equal(t, []int{0, 1, 2}, drain(src))
}

func TestSourceEmptyStream(t *testing.T) {
	dec := newMemDecoder(0)
	src := NewSource(dec, 30, nil)
	_, ok := src.Next()
	assert.False(t, ok)
	assert.Equal(t, 0, src.Stats().Yielded)
	assert.Equal(t, EndOfStream, src.Stats().Reason)
	assert.Zero(t, dec.grabs)
}

func TestSourceGrabFailureAbandonsRemainingSkips(t *testing.T) {
	dec := newMemDecoder(10)
	dec.failAt = 2
	dec.failErr = errors.New("corrupt packet")

	src := NewSource(dec, 4, nil)
	got := drain(src)
	assert.Equal(t, []int{0}, got)

	// 第一次跳帧成功，第二次失败后直接尝试 Read，不再继续跳
	assert.Equal(t, 2, dec.grabs)
	assert.Equal(t, 2, dec.reads)
	st := src.Stats()
	assert.Equal(t, 1, st.GrabFailures)
	assert.Equal(t, DecodeFailure, st.Reason)
}

func TestSourceDecodeFailureEndsSequenceAndIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	dec := newMemDecoder(10)
	dec.failAt = 3
	dec.failErr = errors.New("invalid NAL unit")

	src := NewSource(dec, 0, zap.New(core))
	assert.Equal(t, []int{0, 1, 2}, drain(src))

	st := src.Stats()
	assert.Equal(t, DecodeFailure, st.Reason)
	require.Error(t, st.Err)
	assert.Equal(t, 1, logs.FilterMessage("frame read failed, treating as end of stream").Len())
}

func TestSourceIsNotRestartable(t *testing.T) {
	dec := newMemDecoder(3)
	src := NewSource(dec, 0, nil)
	drain(src)
	reads := dec.reads

	_, ok := src.Next()
	assert.False(t, ok)
	assert.Equal(t, reads, dec.reads)
}

func TestEstimateSamples(t *testing.T) {
	assert.Equal(t, 0, EstimateSamples(0, 3))
	assert.Equal(t, 0, EstimateSamples(-1, 3))
	assert.Equal(t, 5, EstimateSamples(10, 1))
	assert.Equal(t, 4, EstimateSamples(10, 2))
	assert.Equal(t, 10, EstimateSamples(10, -2))
}

func TestEndReasonString(t *testing.T) {
	assert.Equal(t, "eof", EndOfStream.String())
	assert.Equal(t, "decode_failure", DecodeFailure.String())
	assert.Equal(t, "running", NotEnded.String())
}
