package pipeline

import (
	"errors"
	"fmt"

	v2btypes "video2barcode/type"
)

var (
	ErrDuplicateIndex = errors.New("duplicate sequence index")
	ErrAlreadyDrained = errors.New("result table already drained")
)

// MissingIndexError 表示排空时缺少某个序号：任务丢失或尚未完成，属于 bug
type MissingIndexError struct {
	Index int
	Total int
}

func (e *MissingIndexError) Error() string {
	return fmt.Sprintf("result for frame %d of %d is missing", e.Index, e.Total)
}

// Table 按序号保存归约结果
//
// 插入顺序任意；总数确定后按序号排空一次。只允许收集器一个 goroutine 写入，不加锁。
type Table struct {
	cols    map[int]v2btypes.Column
	drained bool
}

func NewTable() *Table {
	return &Table{cols: make(map[int]v2btypes.Column)}
}

// Insert 写入一条结果；同一序号只能写一次
func (t *Table) Insert(index int, col v2btypes.Column) error {
	if t.drained {
		return ErrAlreadyDrained
	}
	if index < 0 {
		return fmt.Errorf("negative sequence index %d", index)
	}
	if _, ok := t.cols[index]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateIndex, index)
	}
	t.cols[index] = col
	return nil
}

// Len 返回已收集的结果数
func (t *Table) Len() int {
	return len(t.cols)
}

// Drain 按 0..total-1 的顺序取出全部结果，发现缺口立即失败
func (t *Table) Drain(total int) ([]v2btypes.Column, error) {
	if t.drained {
		return nil, ErrAlreadyDrained
	}
	t.drained = true

	out := make([]v2btypes.Column, 0, total)
	for i := 0; i < total; i++ {
		col, ok := t.cols[i]
		if !ok {
			return nil, &MissingIndexError{Index: i, Total: total}
		}
		out = append(out, col)
	}
	if len(t.cols) != total {
		return nil, fmt.Errorf("result table holds %d entries for %d tasks", len(t.cols), total)
	}

	t.cols = nil
	return out, nil
}
