package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"video2barcode/frame2column"
	"video2barcode/logger"
	"video2barcode/metrics"
	v2btypes "video2barcode/type"
)

// FrameSource 是按时间顺序产出帧的有限序列
type FrameSource interface {
	Next() (v2btypes.Frame, bool)
}

// Observer 接收进度事件；实现必须并发安全，事件来自多个 goroutine
type Observer interface {
	OnSubmitted(index int)
	OnReduced(index int, dur time.Duration)
}

// Options 控制分发
type Options struct {
	// Workers 是 worker 数量，<=0 时取 CPU 核数
	Workers int
	// QueueSize 是任务队列容量，<=0 时等于 Workers
	QueueSize int
	// Reduce 为 nil 时沿宽度做 RMS 归约
	Reduce   frame2column.Func
	Observer Observer
	Logger   *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.QueueSize <= 0 {
		o.QueueSize = o.Workers
	}
	if o.Reduce == nil {
		o.Reduce = frame2column.ForAxis(v2btypes.AxisWidth)
	}
	if o.Observer == nil {
		o.Observer = nopObserver{}
	}
	o.Logger = logger.OrNop(o.Logger)
	return o
}

// Output 是按时间顺序排好的归约结果
type Output struct {
	Columns []v2btypes.Column
	Total   int
}

// ReductionError 表示某一帧归约失败，整个流水线随之中止
type ReductionError struct {
	Index int
	Err   error
}

func (e *ReductionError) Error() string {
	return fmt.Sprintf("reduce frame %d: %v", e.Index, e.Err)
}

func (e *ReductionError) Unwrap() error { return e.Err }

// Run 从 src 顺序取帧，按出现顺序编号后提交给固定大小的 worker 池，
// 再把乱序完成的结果按序号重新排好
//
// 任一 worker 失败都会中止整个运行：停止提交、等待正在执行的任务结束，返回 *ReductionError。
// 返回前 worker 池一定已经排空。
func Run(ctx context.Context, src FrameSource, opts Options) (Output, error) {
	opts = opts.withDefaults()
	log := opts.Logger

	g, gctx := errgroup.WithContext(ctx)
	tasks := make(chan v2btypes.Task, opts.QueueSize)
	results := make(chan v2btypes.Result, opts.QueueSize)

	for i := 0; i < opts.Workers; i++ {
		g.Go(func() error {
			return work(gctx, tasks, results, opts)
		})
	}

	// 收集器是结果表唯一的写入者；它必须一直读到 results 关闭，worker 才不会阻塞
	table := NewTable()
	collected := make(chan error, 1)
	go func() {
		collected <- collect(results, table)
	}()

	total, submitErr := submit(gctx, src, tasks, opts.Observer)
	workErr := g.Wait()
	close(results)
	collectErr := <-collected

	log.Debug("worker pool drained",
		zap.Int("submitted", total),
		zap.Int("collected", table.Len()),
		zap.Int("workers", opts.Workers),
	)

	switch {
	case workErr != nil:
		return Output{}, workErr
	case submitErr != nil:
		return Output{}, fmt.Errorf("dispatch aborted after %d frames: %w", total, submitErr)
	case collectErr != nil:
		return Output{}, collectErr
	}

	cols, err := table.Drain(total)
	if err != nil {
		return Output{}, err
	}
	return Output{Columns: cols, Total: total}, nil
}

// submit 是唯一的生产者：序号在这里按出现顺序分配，早于任何重排
func submit(ctx context.Context, src FrameSource, tasks chan<- v2btypes.Task, obs Observer) (int, error) {
	defer close(tasks)

	index := 0
	for {
		if err := ctx.Err(); err != nil {
			return index, err
		}
		frame, ok := src.Next()
		if !ok {
			return index, nil
		}
		select {
		case tasks <- v2btypes.Task{Index: index, Frame: frame}:
			obs.OnSubmitted(index)
			index++
		case <-ctx.Done():
			return index, ctx.Err()
		}
	}
}

func work(ctx context.Context, tasks <-chan v2btypes.Task, results chan<- v2btypes.Result, opts Options) error {
	for task := range tasks {
		// 已中止：队列里剩下的任务直接丢弃
		if ctx.Err() != nil {
			continue
		}

		metrics.ActiveWorkers.Inc()
		start := time.Now()
		col, err := opts.Reduce(task.Frame)
		dur := time.Since(start)
		metrics.ActiveWorkers.Dec()
		metrics.ReductionDuration.Observe(dur.Seconds())

		if err != nil {
			metrics.ReductionsTotal.WithLabelValues("failed").Inc()
			opts.Logger.Error("frame reduction failed", zap.Int("index", task.Index), zap.Error(err))
			return &ReductionError{Index: task.Index, Err: err}
		}
		metrics.ReductionsTotal.WithLabelValues("ok").Inc()

		results <- v2btypes.Result{Index: task.Index, Column: col}
		opts.Observer.OnReduced(task.Index, dur)
	}
	return nil
}

// collect 无序插入；插入出错后继续读空通道，只保留第一个错误
func collect(results <-chan v2btypes.Result, table *Table) error {
	var first error
	for r := range results {
		if first != nil {
			continue
		}
		if err := table.Insert(r.Index, r.Column); err != nil {
			first = err
		}
	}
	return first
}

// RunSerial 在调用方 goroutine 上逐帧归约，不启动 worker 池
//
// 结果与 Run 相同，适合核数少或者需要最低内存占用的场景。
func RunSerial(ctx context.Context, src FrameSource, opts Options) (Output, error) {
	opts = opts.withDefaults()
	table := NewTable()

	index := 0
	for {
		if err := ctx.Err(); err != nil {
			return Output{}, fmt.Errorf("serial run aborted after %d frames: %w", index, err)
		}
		frame, ok := src.Next()
		if !ok {
			break
		}
		opts.Observer.OnSubmitted(index)

		start := time.Now()
		col, err := opts.Reduce(frame)
		dur := time.Since(start)
		metrics.ReductionDuration.Observe(dur.Seconds())
		if err != nil {
			metrics.ReductionsTotal.WithLabelValues("failed").Inc()
			return Output{}, &ReductionError{Index: index, Err: err}
		}
		metrics.ReductionsTotal.WithLabelValues("ok").Inc()

		if err := table.Insert(index, col); err != nil {
			return Output{}, err
		}
		opts.Observer.OnReduced(index, dur)
		index++
	}

	cols, err := table.Drain(index)
	if err != nil {
		return Output{}, err
	}
	return Output{Columns: cols, Total: index}, nil
}

// IsReductionFailure 判断 err 是否来自某一帧的归约失败
func IsReductionFailure(err error) bool {
	var re *ReductionError
	return errors.As(err, &re)
}

type nopObserver struct{}

func (nopObserver) OnSubmitted(int)              {}
func (nopObserver) OnReduced(int, time.Duration) {}
