package objstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/andrewbudd/fractyl/internal/digest"
	"github.com/andrewbudd/fractyl/internal/fractylerr"
)

// S3Config describes an S3-compatible remote object-store backend.
// Grounded on storage/persistence-s3.go's S3Factory.
type S3Config struct {
	AccessKeyID     string `json:"access_key_id,omitempty"`
	SecretAccessKey string `json:"secret_access_key,omitempty"`
	Region          string `json:"region,omitempty"`
	Endpoint        string `json:"endpoint,omitempty"` // custom endpoint for S3-compatible stores (MinIO, etc.)
	Bucket          string `json:"bucket,omitempty"`
	Prefix          string `json:"prefix,omitempty"`
	ForcePathStyle  bool   `json:"force_path_style,omitempty"`
}

// S3 is an object store backend on top of an S3-compatible bucket. Objects
// are stored at <prefix>/<first-two-hex>/<rest>, mirroring the Local
// fanout, so digest-based addressing is preserved across backends.
type S3 struct {
	cfg S3Config

	mu     sync.Mutex
	client *s3.Client
	opened bool
}

// NewS3 returns an unopened S3 backend; the client connects lazily on first
// use, matching S3Storage.ensureOpen's lazy-connect pattern.
func NewS3(cfg S3Config) *S3 {
	return &S3{cfg: cfg}
}

func (s *S3) ensureOpen(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opened {
		return nil
	}

	var opts []func(*config.LoadOptions) error
	if s.cfg.Region != "" {
		opts = append(opts, config.WithRegion(s.cfg.Region))
	}
	if s.cfg.AccessKeyID != "" && s.cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.cfg.AccessKeyID, s.cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fractylerr.Wrap(fractylerr.KindIO, "load AWS config", err)
	}

	var s3Opts []func(*s3.Options)
	if s.cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(s.cfg.Endpoint)
		})
	}
	if s.cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	s.client = s3.NewFromConfig(awsCfg, s3Opts...)
	s.opened = true
	return nil
}

func (s *S3) key(d digest.Digest) string {
	hex := d.Hex()
	pfx := strings.TrimSuffix(s.cfg.Prefix, "/")
	if pfx == "" {
		return hex[:2] + "/" + hex[2:]
	}
	return pfx + "/" + hex[:2] + "/" + hex[2:]
}

func (s *S3) Put(b []byte) (digest.Digest, error) {
	d := digest.Sum(b)
	if s.Exists(d) {
		return d, nil
	}
	ctx := context.Background()
	if err := s.ensureOpen(ctx); err != nil {
		return digest.Digest{}, err
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.key(d)),
		Body:   bytes.NewReader(b),
	})
	if err != nil {
		return digest.Digest{}, fractylerr.Wrap(fractylerr.KindIO, "put object to s3", err)
	}
	return d, nil
}

func (s *S3) PutStream(r io.Reader) (digest.Digest, error) {
	// S3 requires a seekable body for multi-attempt uploads, so buffer the
	// stream to compute the digest before issuing PutObject, same tradeoff
	// the teacher's S3Storage log-segment writer makes (buffer, then put).
	b, err := io.ReadAll(r)
	if err != nil {
		return digest.Digest{}, fractylerr.Wrap(fractylerr.KindIO, "read stream for s3 put", err)
	}
	return s.Put(b)
}

func (s *S3) Get(d digest.Digest) ([]byte, error) {
	rc, err := s.Open(d)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, fractylerr.Wrap(fractylerr.KindIO, "read s3 object", err)
	}
	return b, nil
}

func (s *S3) Open(d digest.Digest) (io.ReadCloser, error) {
	ctx := context.Background()
	if err := s.ensureOpen(ctx); err != nil {
		return nil, err
	}
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.key(d)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fractylerr.New(fractylerr.KindNotFound, "object "+d.Hex()+" not found")
		}
		return nil, fractylerr.Wrap(fractylerr.KindIO, "get s3 object", err)
	}
	return resp.Body, nil
}

func (s *S3) Exists(d digest.Digest) bool {
	ctx := context.Background()
	if err := s.ensureOpen(ctx); err != nil {
		return false
	}
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.key(d)),
	})
	return err == nil
}

func (s *S3) Delete(d digest.Digest) error {
	ctx := context.Background()
	if err := s.ensureOpen(ctx); err != nil {
		return err
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.key(d)),
	})
	if err != nil {
		return fractylerr.Wrap(fractylerr.KindIO, "delete s3 object", err)
	}
	return nil
}

// ListDigests pages through every object under the configured prefix and
// parses its key back into a digest, satisfying Lister for S3-backed repos.
func (s *S3) ListDigests() ([]digest.Digest, error) {
	ctx := context.Background()
	if err := s.ensureOpen(ctx); err != nil {
		return nil, err
	}
	var out []digest.Digest
	pfx := strings.TrimSuffix(s.cfg.Prefix, "/")
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.cfg.Bucket),
		Prefix: aws.String(pfx),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fractylerr.Wrap(fractylerr.KindIO, "list s3 objects", err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			key := strings.TrimPrefix(*obj.Key, pfx+"/")
			hex := strings.ReplaceAll(key, "/", "")
			d, err := digest.Parse(hex)
			if err != nil {
				continue
			}
			out = append(out, d)
		}
	}
	return out, nil
}

func isNotFound(err error) bool {
	var re *smithyhttp.ResponseError
	if errors.As(err, &re) {
		return re.HTTPStatusCode() == 404
	}
	return false
}
