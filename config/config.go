package config

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"

	v2btypes "video2barcode/type"
)

type Config struct {
	Input  string `env:"BARCODE_INPUT"`
	Output string `env:"BARCODE_OUTPUT" envDefault:"barcode.jpg"`

	Skip       int    `env:"BARCODE_SKIP"        envDefault:"30"`
	Workers    int    `env:"BARCODE_WORKERS"     envDefault:"0"`
	Axis       string `env:"BARCODE_AXIS"        envDefault:"width"`
	Serial     bool   `env:"BARCODE_SERIAL"      envDefault:"false"`
	ScaleWidth int    `env:"BARCODE_SCALE_WIDTH" envDefault:"0"`

	OutputHeight int  `env:"BARCODE_OUTPUT_HEIGHT" envDefault:"0"`
	JPEGQuality  int  `env:"BARCODE_JPEG_QUALITY"  envDefault:"95"`
	SVGTrace     bool `env:"BARCODE_SVG_TRACE"     envDefault:"false"`
	Progress     bool `env:"BARCODE_PROGRESS"      envDefault:"false"`
	Palette      int  `env:"BARCODE_PALETTE"       envDefault:"0"`

	MetricsTextfile string `env:"BARCODE_METRICS_TEXTFILE"`
	OTLPEndpoint    string `env:"OTLP_ENDPOINT"`
	LogLevel        string `env:"LOG_LEVEL" envDefault:"info"`

	MinIOEndpoint  string `env:"MINIO_ENDPOINT"   envDefault:"localhost:9000"`
	MinIOAccessKey string `env:"MINIO_ACCESS_KEY"`
	MinIOSecretKey string `env:"MINIO_SECRET_KEY"`
	MinIOUseSSL    bool   `env:"MINIO_USE_SSL"    envDefault:"false"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// BindFlags 注册命令行参数，默认值取自当前配置（即环境变量）
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Input, "video", c.Input, "输入视频路径、URL，或图片序列的通配符（如 frames/*.png）")
	fs.StringVar(&c.Output, "output", c.Output, "输出路径：图片文件、.svg，或 s3://bucket/key")
	fs.IntVar(&c.Skip, "skip", c.Skip, "每采样一帧后跳过的帧数")
	fs.IntVar(&c.Workers, "workers", c.Workers, "并行 worker 数量，0 表示 CPU 核数")
	fs.StringVar(&c.Axis, "axis", c.Axis, "RMS 归约的轴：width 或 height")
	fs.BoolVar(&c.Serial, "serial", c.Serial, "在单个 goroutine 上逐帧处理")
	fs.IntVar(&c.ScaleWidth, "scale", c.ScaleWidth, "解码时把画面缩放到该宽度，0 表示不缩放")
	fs.IntVar(&c.OutputHeight, "height", c.OutputHeight, "把输出图片纵向拉伸到该高度，0 表示不拉伸")
	fs.IntVar(&c.JPEGQuality, "quality", c.JPEGQuality, "JPEG 质量 (1-100)")
	fs.BoolVar(&c.SVGTrace, "svg-trace", c.SVGTrace, "输出 .svg 时用轮廓描边代替逐列矩形")
	fs.BoolVar(&c.Progress, "progress", c.Progress, "在 stderr 显示进度条")
	fs.IntVar(&c.Palette, "palette", c.Palette, "输出后在日志里报告条形码的 N 种主色，0 表示不报告")
	fs.StringVar(&c.MetricsTextfile, "metrics", c.MetricsTextfile, "运行结束后把指标写入该 textfile")
}

// Validate 检查参数取值范围
func (c *Config) Validate() error {
	var errs []error
	if c.Input == "" {
		errs = append(errs, errors.New("input video is required"))
	}
	if c.Output == "" {
		errs = append(errs, errors.New("output is required"))
	}
	if c.Skip < 0 {
		errs = append(errs, fmt.Errorf("skip must be >= 0, got %d", c.Skip))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must be >= 0, got %d", c.Workers))
	}
	if c.ScaleWidth < 0 {
		errs = append(errs, fmt.Errorf("scale width must be >= 0, got %d", c.ScaleWidth))
	}
	if c.OutputHeight < 0 {
		errs = append(errs, fmt.Errorf("output height must be >= 0, got %d", c.OutputHeight))
	}
	if c.Palette < 0 {
		errs = append(errs, fmt.Errorf("palette size must be >= 0, got %d", c.Palette))
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("jpeg quality must be in 1..100, got %d", c.JPEGQuality))
	}
	if _, err := v2btypes.ParseAxis(c.Axis); err != nil {
		errs = append(errs, err)
	}
	// 只有写对象存储时才需要凭据
	if strings.HasPrefix(c.Output, "s3://") && (c.MinIOAccessKey == "" || c.MinIOSecretKey == "") {
		errs = append(errs, errors.New("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required for s3:// output"))
	}
	return errors.Join(errs...)
}

// ReductionAxis 返回解析后的归约轴，调用前应先 Validate
func (c *Config) ReductionAxis() v2btypes.Axis {
	axis, _ := v2btypes.ParseAxis(c.Axis)
	return axis
}
