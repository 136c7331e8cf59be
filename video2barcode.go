package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"video2barcode/barcode2file"
	"video2barcode/color2svg"
	"video2barcode/column2barcode"
	"video2barcode/config"
	"video2barcode/frame2column"
	"video2barcode/metrics"
	"video2barcode/pipeline"
	"video2barcode/tracing"
	v2btypes "video2barcode/type"
	"video2barcode/video2frame"
)

type barcodeOptions struct {
	Skip     int
	Workers  int
	Axis     v2btypes.Axis
	Serial   bool
	Palette  int
	Observer pipeline.Observer
}

// generateBarcodeToFile 生成条形码并交给 sink；条形码为空或任何一步失败时不写任何东西
func generateBarcodeToFile(ctx context.Context, dec video2frame.Decoder, sink barcode2file.Sink, opts barcodeOptions, log *zap.Logger) error {
	b, err := generateBarcode(ctx, dec, opts, log)
	if err != nil {
		return err
	}
	if b.Empty() {
		return barcode2file.ErrEmptyBarcode
	}

	ctx, span := tracing.Tracer().Start(ctx, "write")
	defer span.End()

	start := time.Now()
	err = sink.Write(ctx, b)
	metrics.StageDuration.WithLabelValues("write").Observe(time.Since(start).Seconds())
	if err != nil {
		failSpan(span, err)
		return fmt.Errorf("write barcode: %w", err)
	}

	log.Info("barcode written", zap.Int("width", b.Width), zap.Int("height", b.Height))
	if opts.Palette > 0 {
		logPalette(b, opts.Palette, log)
	}
	return nil
}

func logPalette(b *v2btypes.Barcode, k int, log *zap.Logger) {
	palette, err := column2barcode.Palette(b, k)
	if err != nil {
		log.Warn("palette extraction failed", zap.Error(err))
		return
	}
	hex := make([]string, len(palette))
	for i, c := range palette {
		hex[i] = column2barcode.Hex(c)
	}
	log.Info("dominant colors", zap.Strings("palette", hex))
}

// generateBarcode 采样、并行归约、按序收集，再拼成条形码
func generateBarcode(ctx context.Context, dec video2frame.Decoder, opts barcodeOptions, log *zap.Logger) (*v2btypes.Barcode, error) {
	src := video2frame.NewSource(dec, opts.Skip, log)
	popts := pipeline.Options{
		Workers:  opts.Workers,
		Reduce:   frame2column.ForAxis(opts.Axis),
		Observer: opts.Observer,
		Logger:   log,
	}

	log.Info("collecting frames",
		zap.Int("skip", opts.Skip),
		zap.Stringer("axis", opts.Axis),
		zap.Bool("serial", opts.Serial),
	)

	cctx, span := tracing.Tracer().Start(ctx, "collect_frames", trace.WithAttributes(
		attribute.Int("skip", opts.Skip),
		attribute.String("axis", opts.Axis.String()),
		attribute.Bool("serial", opts.Serial),
	))
	start := time.Now()
	var (
		out pipeline.Output
		err error
	)
	if opts.Serial {
		out, err = pipeline.RunSerial(cctx, src, popts)
	} else {
		out, err = pipeline.Run(cctx, src, popts)
	}
	metrics.StageDuration.WithLabelValues("collect").Observe(time.Since(start).Seconds())

	stats := src.Stats()
	span.SetAttributes(attribute.Int("frames.sampled", stats.Yielded), attribute.Int("frames.grabbed", stats.Grabbed))
	if err != nil {
		failSpan(span, err)
		span.End()
		return nil, fmt.Errorf("collect frames: %w", err)
	}
	span.End()

	log.Info("frames collected",
		zap.Int("sampled", out.Total),
		zap.Int("grabbed", stats.Grabbed),
		zap.Stringer("end", stats.Reason),
		zap.Duration("elapsed", time.Since(start)),
	)

	_, span = tracing.Tracer().Start(ctx, "assemble")
	defer span.End()
	start = time.Now()
	b, err := column2barcode.Assemble(out.Columns)
	metrics.StageDuration.WithLabelValues("assemble").Observe(time.Since(start).Seconds())
	if err != nil {
		failSpan(span, err)
		return nil, fmt.Errorf("assemble barcode: %w", err)
	}
	return b, nil
}

// newSink 按输出路径选择输出方式；格式不支持时在解码前就失败
func newSink(cfg *config.Config) (barcode2file.Sink, error) {
	opts := barcode2file.Options{Quality: cfg.JPEGQuality, Height: cfg.OutputHeight}

	if barcode2file.IsObjectURI(cfg.Output) {
		return barcode2file.NewObjectSink(barcode2file.MinIOConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			UseSSL:    cfg.MinIOUseSSL,
		}, cfg.Output, opts)
	}

	if strings.EqualFold(filepath.Ext(cfg.Output), ".svg") {
		return &color2svg.Sink{Path: cfg.Output, Trace: cfg.SVGTrace}, nil
	}

	if _, err := imaging.FormatFromFilename(cfg.Output); err != nil {
		return nil, fmt.Errorf("output %s: %w", cfg.Output, err)
	}
	return &barcode2file.FileSink{Path: cfg.Output, Options: opts}, nil
}

func failSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
