package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/pkowalczyk/filekeeper/internal/common"
)

// S3Config carries the settings for an S3-compatible backend (MinIO works).
type S3Config struct {
	RootUser     string
	RootPassword string
	Bucket       string
	Region       string
	BaseEndpoint string
}

// S3 is a FileStore that keeps the sandbox in an object bucket. Logical
// paths map straight onto keys; a directory is a zero-byte marker object
// whose key ends in "/".
//
// Append rewrites the whole object per chunk, which bounds the practical
// upload size to what fits in memory.
type S3 struct {
	client *s3.Client
	bucket string
}

var _ FileStore = (*S3)(nil)

// NewS3 builds the store from static credentials and a base endpoint, the
// same way the server's other S3 touchpoints are configured.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.RootUser,
			cfg.RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("s3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
		o.UsePathStyle = true
	})

	return &S3{client: client, bucket: cfg.Bucket}, nil
}

func (s *S3) key(logical string) (string, error) {
	k := strings.Trim(logical, "/")
	for _, seg := range strings.Split(k, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %s", common.ErrInvalidPath, logical)
		}
	}
	return k, nil
}

func (s *S3) Exists(ctx context.Context, path string) (bool, error) {
	k, err := s.key(path)
	if err != nil {
		return false, err
	}

	if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(k),
	}); err == nil {
		return true, nil
	}

	// Not a plain object; it may still exist as a directory prefix.
	return s.IsDirectory(ctx, path)
}

func (s *S3) IsDirectory(ctx context.Context, path string) (bool, error) {
	k, err := s.key(path)
	if err != nil {
		return false, err
	}

	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(k + "/"),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, fmt.Errorf("list %s: %w", path, err)
	}
	return len(out.Contents) > 0, nil
}

func (s *S3) ListChildren(ctx context.Context, path string) ([]string, []string, error) {
	k, err := s.key(path)
	if err != nil {
		return nil, nil, err
	}
	prefix := k + "/"

	isDir, err := s.IsDirectory(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	if !isDir {
		exists, err := s.Exists(ctx, path)
		if err != nil {
			return nil, nil, err
		}
		if !exists {
			return nil, nil, fmt.Errorf("%s does not exist", path)
		}
		return nil, nil, nil
	}

	var files, dirs []string
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(prefix),
			Delimiter:         aws.String("/"),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("list %s: %w", path, err)
		}

		for _, obj := range out.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if name == "" {
				continue // the directory marker itself
			}
			files = append(files, name)
		}
		for _, cp := range out.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), prefix), "/")
			if name != "" {
				dirs = append(dirs, name)
			}
		}

		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.NextContinuationToken
	}
	return files, dirs, nil
}

func (s *S3) CreateFile(ctx context.Context, path, name string) error {
	exists, err := s.Exists(ctx, path)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%s does not exist", path)
	}

	k, err := s.key(path + "/" + name)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(k),
		Body:   bytes.NewReader(nil),
	})
	return err
}

func (s *S3) CreateDirectory(ctx context.Context, path, name string) error {
	k, err := s.key(path + "/" + name)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(k + "/"),
		Body:   bytes.NewReader(nil),
	})
	return err
}

func (s *S3) RemoveRecursive(ctx context.Context, path string) (int, error) {
	k, err := s.key(path)
	if err != nil {
		return 0, err
	}

	var keys []string
	if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(k),
	}); err == nil {
		keys = append(keys, k)
	}

	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(k + "/"),
			ContinuationToken: token,
		})
		if err != nil {
			return 0, fmt.Errorf("list %s: %w", path, err)
		}
		for _, obj := range out.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.NextContinuationToken
	}

	if len(keys) == 0 {
		return 0, nil
	}

	ids := make([]types.ObjectIdentifier, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, types.ObjectIdentifier{Key: aws.String(key)})
	}
	_, err = s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.bucket),
		Delete: &types.Delete{Objects: ids},
	})
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", path, err)
	}
	return len(keys), nil
}

func (s *S3) Size(ctx context.Context, path string) (int64, error) {
	k, err := s.key(path)
	if err != nil {
		return 0, err
	}
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(k),
	})
	if err != nil {
		return 0, fmt.Errorf("head %s: %w", path, err)
	}
	return aws.ToInt64(out.ContentLength), nil
}

func (s *S3) ReadChunk(ctx context.Context, path string, offset int64, n int) ([]byte, bool, error) {
	size, err := s.Size(ctx, path)
	if err != nil {
		return nil, false, err
	}
	if offset >= size {
		return nil, true, nil
	}

	k, _ := s.key(path)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(k),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", offset, offset+int64(n)-1)),
	})
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", path, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}
	return data, offset+int64(len(data)) >= size, nil
}

func (s *S3) Append(ctx context.Context, path string, data []byte) error {
	k, err := s.key(path)
	if err != nil {
		return err
	}

	var existing []byte
	if out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(k),
	}); err == nil {
		existing, err = io.ReadAll(out.Body)
		out.Body.Close()
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(k),
		Body:   bytes.NewReader(append(existing, data...)),
	})
	return err
}

func (s *S3) Rename(ctx context.Context, oldPath, newPath string) error {
	from, err := s.key(oldPath)
	if err != nil {
		return err
	}
	to, err := s.key(newPath)
	if err != nil {
		return err
	}

	_, err = s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		CopySource: aws.String(s.bucket + "/" + from),
		Key:        aws.String(to),
	})
	if err != nil {
		return fmt.Errorf("copy %s: %w", oldPath, err)
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(from),
	})
	return err
}
