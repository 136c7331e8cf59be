package barcode2file

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/disintegration/imaging"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	v2btypes "video2barcode/type"
)

// ObjectScheme 是对象存储输出的前缀，例如 s3://barcodes/movie.jpg
const ObjectScheme = "s3://"

// MinIOConfig 是连接对象存储所需的参数
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// IsObjectURI 判断输出是否指向对象存储
func IsObjectURI(output string) bool {
	return strings.HasPrefix(output, ObjectScheme)
}

// ParseObjectURI 把 s3://bucket/key 拆成 bucket 和 key
func ParseObjectURI(uri string) (bucket, key string, err error) {
	if !IsObjectURI(uri) {
		return "", "", fmt.Errorf("object uri %q: missing %s prefix", uri, ObjectScheme)
	}
	rest := strings.TrimPrefix(uri, ObjectScheme)
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return "", "", fmt.Errorf("object uri %q: want %sbucket/key", uri, ObjectScheme)
	}
	return bucket, key, nil
}

var contentTypes = map[imaging.Format]string{
	imaging.JPEG: "image/jpeg",
	imaging.PNG:  "image/png",
	imaging.GIF:  "image/gif",
	imaging.TIFF: "image/tiff",
	imaging.BMP:  "image/bmp",
}

// ObjectSink 在内存里编码条形码后整体上传，上传是单次 PutObject，不会留下半个对象
type ObjectSink struct {
	client *miniogo.Client
	bucket string
	key    string
	format imaging.Format
	opts   Options
}

// NewObjectSink 只创建客户端，不访问网络
func NewObjectSink(cfg MinIOConfig, uri string, opts Options) (*ObjectSink, error) {
	bucket, key, err := ParseObjectURI(uri)
	if err != nil {
		return nil, err
	}
	format, err := imaging.FormatFromExtension(strings.TrimPrefix(path.Ext(key), "."))
	if err != nil {
		return nil, fmt.Errorf("object key %s: %w", key, err)
	}

	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &ObjectSink{
		client: client,
		bucket: bucket,
		key:    key,
		format: format,
		opts:   opts,
	}, nil
}

func (s *ObjectSink) Write(ctx context.Context, b *v2btypes.Barcode) error {
	if b.Empty() {
		return ErrEmptyBarcode
	}

	var buf bytes.Buffer
	if err := Encode(&buf, b, s.format, s.opts); err != nil {
		return err
	}

	if err := s.ensureBucket(ctx); err != nil {
		return err
	}
	_, err := s.client.PutObject(ctx, s.bucket, s.key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), miniogo.PutObjectOptions{
		ContentType: contentTypes[s.format],
	})
	if err != nil {
		return fmt.Errorf("upload %s%s/%s: %w", ObjectScheme, s.bucket, s.key, err)
	}
	return nil
}

func (s *ObjectSink) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, miniogo.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	return nil
}
