package avatars

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/magabrotheeeer/user-auth/internal/config"
)

// ObjectPutter — часть клиента S3, нужная для загрузки аватаров.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store хранит аватары в S3-совместимом бакете (AWS, MinIO).
type S3Store struct {
	client    ObjectPutter
	bucket    string
	publicURL string
}

// NewS3Store создаёт клиента S3 по настройкам аватаров.
func NewS3Store(ctx context.Context, cfg config.Avatars) (*S3Store, error) {
	const op = "avatars.NewS3Store"
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.S3Region)}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	publicURL := cfg.S3PublicURL
	if publicURL == "" {
		if cfg.S3BaseEndpoint != "" {
			publicURL = strings.TrimRight(cfg.S3BaseEndpoint, "/") + "/" + cfg.S3Bucket
		} else {
			publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3Bucket, cfg.S3Region)
		}
	}
	return NewS3StoreWithClient(client, cfg.S3Bucket, publicURL), nil
}

// NewS3StoreWithClient создаёт S3Store с готовым клиентом.
func NewS3StoreWithClient(client ObjectPutter, bucket, publicURL string) *S3Store {
	return &S3Store{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// Move загружает tmpPath в бакет под ключом avatars/<name> и удаляет временный файл.
func (s *S3Store) Move(ctx context.Context, tmpPath, name string) (string, error) {
	const op = "avatars.S3Store.Move"
	name, err := cleanName(name)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	f, err := os.Open(tmpPath)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer f.Close()

	key := path.Join(strings.TrimPrefix(URLPrefix, "/"), name)
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   f,
	}
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		input.ContentType = aws.String(ct)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := os.Remove(tmpPath); err != nil {
		return "", fmt.Errorf("%s: remove tmp: %w", op, err)
	}
	return s.publicURL + "/" + key, nil
}
