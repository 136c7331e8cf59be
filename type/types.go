package v2btypes

import (
	"fmt"
	"strings"
)

// Frame 表示一帧原始像素，按 (height, width, channels) 行优先排列
type Frame struct {
	Height   int
	Width    int
	Channels int
	Pix      []uint8
}

// Size 返回 Pix 应有的长度
func (f Frame) Size() int {
	return f.Height * f.Width * f.Channels
}

// Column 表示一帧沿某个空间轴归约后的结果，形状 (Length, Channels)
type Column struct {
	Length   int
	Channels int
	Pix      []uint8
}

// Task 把分发序号和帧绑在一起，序号在分发时分配且不复用
type Task struct {
	Index int
	Frame Frame
}

// Result 是 worker 交回给收集器的一列；归约失败不走这条通道，由 worker 直接返回错误
type Result struct {
	Index  int
	Column Column
}

// Barcode 是最终的条形码图像，形状 (Height, Width, Channels)
// 第 i 列对应序号 i 的采样帧
type Barcode struct {
	Height   int
	Width    int
	Channels int
	Pix      []uint8
}

// Empty 表示没有任何列可输出
func (b *Barcode) Empty() bool {
	return b == nil || b.Width == 0 || b.Height == 0
}

// Axis 表示 RMS 归约沿哪个空间轴进行
type Axis int

const (
	// AxisWidth 沿宽度归约，每帧得到一列，长度为帧高
	AxisWidth Axis = iota
	// AxisHeight 沿高度归约，每帧得到一行，长度为帧宽
	AxisHeight
)

func (a Axis) String() string {
	switch a {
	case AxisWidth:
		return "width"
	case AxisHeight:
		return "height"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

// ParseAxis 解析配置里的轴名称
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "width", "w", "rows":
		return AxisWidth, nil
	case "height", "h", "columns", "cols":
		return AxisHeight, nil
	default:
		return 0, fmt.Errorf("unknown reduction axis %q (want width or height)", s)
	}
}
