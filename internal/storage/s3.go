package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"memorymount/entity"
	"memorymount/internal/config"
	"memorymount/lib/sl"
)

const presignTTL = 15 * time.Minute

// objectAPI is the slice of the S3 client this layer calls.
type objectAPI interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type presignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Storage holds trophy media in one bucket of an S3-compatible
// store. Download references are presigned GET URLs with a limited
// lifetime, so the bucket itself stays private.
type S3Storage struct {
	client  objectAPI
	presign presignAPI
	bucket  string
	log     *slog.Logger
}

// New builds the storage client, or returns entity.ErrMissingConfig
// when credentials or the bucket are not configured. The caller may
// run without storage; the upload coordinator reports the gap per
// request.
func New(conf *config.Config, log *slog.Logger) (*S3Storage, error) {
	st := conf.Storage
	if st.AccessKey == "" || st.SecretKey == "" || st.Bucket == "" {
		return nil, entity.ErrMissingConfig
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(st.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			st.AccessKey,
			st.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("storage config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if st.Endpoint != "" {
			o.BaseEndpoint = aws.String(st.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Storage{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  st.Bucket,
		log:     log.With(sl.Module("storage.s3")),
	}, nil
}

// List returns descriptors for every object under the prefix,
// following continuation tokens past the per-page cap. Storage
// failures surface to the caller; an unreachable store is never
// reported as an empty folder.
func (s *S3Storage) List(ctx context.Context, prefix string) ([]entity.StoredFile, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix + "/"),
	}
	files := make([]entity.StoredFile, 0)
	for {
		out, err := s.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("storage list %s: %w", prefix, err)
		}
		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			url, err := s.presignGet(ctx, key)
			if err != nil {
				return nil, err
			}
			file := entity.StoredFile{
				Key:  key,
				Name: path.Base(key),
				Size: aws.ToInt64(obj.Size),
				Url:  url,
			}
			if obj.LastModified != nil {
				file.LastModified = *obj.LastModified
			}
			files = append(files, file)
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		input.ContinuationToken = out.NextContinuationToken
	}
	return files, nil
}

// Put writes one object and returns its presigned download URL.
func (s *S3Storage) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("storage put %s: %w", key, err)
	}
	s.log.Debug("object stored", slog.String("key", key), slog.Int64("size", size))
	return s.presignGet(ctx, key)
}

func (s *S3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("storage delete %s: %w", key, err)
	}
	s.log.Debug("object deleted", slog.String("key", key))
	return nil
}

func (s *S3Storage) presignGet(ctx context.Context, key string) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignTTL))
	if err != nil {
		return "", fmt.Errorf("storage presign %s: %w", key, err)
	}
	return req.URL, nil
}
