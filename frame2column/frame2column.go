package frame2column

import (
	"errors"
	"fmt"
	"math"

	v2btypes "video2barcode/type"
)

// ErrMalformedFrame 表示帧的尺寸与像素数据对不上
var ErrMalformedFrame = errors.New("malformed frame")

// Func 是单帧归约函数，必须是纯函数：不共享状态，可在任意 worker 中并发调用
type Func func(frame v2btypes.Frame) (v2btypes.Column, error)

// ForAxis 返回沿 axis 做 RMS 归约的 Func
func ForAxis(axis v2btypes.Axis) Func {
	return func(frame v2btypes.Frame) (v2btypes.Column, error) {
		return Reduce(frame, axis)
	}
}

// Reduce 对一帧做均方根归约
//
// 每个采样先扩宽平方，沿 axis 求平方均值，再开方并截断回 uint8。
// 平方最大 255*255=65025，按 uint64 累加不会溢出，结果总在 [0,255]。
func Reduce(frame v2btypes.Frame, axis v2btypes.Axis) (v2btypes.Column, error) {
	if err := validate(frame); err != nil {
		return v2btypes.Column{}, err
	}
	switch axis {
	case v2btypes.AxisWidth:
		return reduceWidth(frame), nil
	case v2btypes.AxisHeight:
		return reduceHeight(frame), nil
	default:
		return v2btypes.Column{}, fmt.Errorf("unsupported axis %v", axis)
	}
}

func validate(frame v2btypes.Frame) error {
	if frame.Height <= 0 || frame.Width <= 0 || frame.Channels <= 0 {
		return fmt.Errorf("%w: shape %dx%dx%d", ErrMalformedFrame, frame.Height, frame.Width, frame.Channels)
	}
	if len(frame.Pix) != frame.Size() {
		return fmt.Errorf("%w: %d samples for shape %dx%dx%d",
			ErrMalformedFrame, len(frame.Pix), frame.Height, frame.Width, frame.Channels)
	}
	return nil
}

// reduceWidth 把每一行压成一个像素，输出长度为帧高
func reduceWidth(frame v2btypes.Frame) v2btypes.Column {
	c := frame.Channels
	stride := frame.Width * c
	out := make([]uint8, frame.Height*c)
	sums := make([]uint64, c)

	for y := 0; y < frame.Height; y++ {
		clear(sums)
		row := frame.Pix[y*stride : (y+1)*stride]
		for x := 0; x < frame.Width; x++ {
			px := row[x*c : (x+1)*c]
			for ch, v := range px {
				s := uint32(v)
				sums[ch] += uint64(s * s)
			}
		}
		for ch, sum := range sums {
			out[y*c+ch] = rms(sum, frame.Width)
		}
	}

	return v2btypes.Column{Length: frame.Height, Channels: c, Pix: out}
}

// reduceHeight 把每一列压成一个像素，输出长度为帧宽
func reduceHeight(frame v2btypes.Frame) v2btypes.Column {
	c := frame.Channels
	stride := frame.Width * c
	sums := make([]uint64, stride)

	for y := 0; y < frame.Height; y++ {
		row := frame.Pix[y*stride : (y+1)*stride]
		for i, v := range row {
			s := uint32(v)
			sums[i] += uint64(s * s)
		}
	}

	out := make([]uint8, stride)
	for i, sum := range sums {
		out[i] = rms(sum, frame.Height)
	}
	return v2btypes.Column{Length: frame.Width, Channels: c, Pix: out}
}

func rms(sumSquares uint64, n int) uint8 {
	return uint8(math.Sqrt(float64(sumSquares) / float64(n)))
}
