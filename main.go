package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"video2barcode/barcode2file"
	"video2barcode/config"
	"video2barcode/logger"
	"video2barcode/metrics"
	"video2barcode/pipeline"
	"video2barcode/tracing"
	"video2barcode/video2frame"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		return 2
	}

	fs := flag.NewFlagSet("video2barcode", flag.ContinueOnError)
	cfg.BindFlags(fs)
	help := fs.Bool("help", false, "显示帮助信息")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *help {
		fs.Usage()
		return 0
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fs.Usage()
		return 2
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		return 2
	}
	defer func() { _ = log.Sync() }()
	log = log.With(zap.String("run_id", uuid.NewString()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.OTLPEndpoint != "" {
		tp, err := tracing.InitTracer(ctx, cfg.OTLPEndpoint)
		if err != nil {
			log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
		} else {
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = tp.Shutdown(sctx)
			}()
		}
	}

	if cfg.MetricsTextfile != "" {
		defer func() {
			if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
				log.Warn("metrics export failed", zap.Error(err))
			}
		}()
	}

	if err := generate(ctx, cfg, video2frame.Open, log); err != nil {
		switch {
		case errors.Is(err, barcode2file.ErrEmptyBarcode):
			log.Error("no frames sampled, nothing written", zap.String("video", cfg.Input))
		case pipeline.IsReductionFailure(err):
			log.Error("frame reduction failed, run aborted", zap.Error(err))
		default:
			log.Error("barcode generation failed", zap.Error(err))
		}
		return 1
	}
	return 0
}

// openFunc 打开输入；测试里换成内存解码器
type openFunc func(ctx context.Context, input string, opts video2frame.Options) (video2frame.Decoder, error)

func generate(ctx context.Context, cfg *config.Config, open openFunc, log *zap.Logger) error {
	sink, err := newSink(cfg)
	if err != nil {
		return err
	}

	dec, err := open(ctx, cfg.Input, video2frame.Options{ScaleWidth: cfg.ScaleWidth, Logger: log})
	if err != nil {
		return fmt.Errorf("open %s: %w", cfg.Input, err)
	}
	defer func() {
		if err := dec.Close(); err != nil {
			log.Debug("decoder close", zap.Error(err))
		}
	}()

	opts := barcodeOptions{
		Skip:    cfg.Skip,
		Workers: cfg.Workers,
		Axis:    cfg.ReductionAxis(),
		Serial:  cfg.Serial,
		Palette: cfg.Palette,
	}
	if cfg.Progress {
		bar := newProgressObserver(os.Stderr, dec, cfg.Skip)
		defer bar.Finish()
		opts.Observer = bar
	}

	log.Info("generating barcode", zap.String("video", cfg.Input), zap.String("output", cfg.Output))
	return generateBarcodeToFile(ctx, dec, sink, opts, log)
}
