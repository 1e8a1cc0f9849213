package artifact

import (
	"bytes"
	"context"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/golang/snappy"

	"github.com/dd0wney/cluso-signalpatch/pkg/validation"
)

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Options configures an S3 mirror.
type S3Options struct {
	Bucket   string `json:"bucket" yaml:"bucket"`
	Prefix   string `json:"prefix" yaml:"prefix"`
	Region   string `json:"region" yaml:"region"`
	Endpoint string `json:"endpoint" yaml:"endpoint"` // for S3-compatible stores
	Compress bool   `json:"compress" yaml:"compress"`

	// Static credentials; when empty the default AWS chain is used.
	AccessKeyID     string `json:"-" yaml:"accessKeyId"`
	SecretAccessKey string `json:"-" yaml:"secretAccessKey"`
}

// S3Store mirrors artifacts to an S3 bucket, optionally snappy-compressed.
type S3Store struct {
	client S3API
	opts   S3Options
}

// NewS3Store creates a store around an existing client.
func NewS3Store(client S3API, opts S3Options) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, ErrNoBucket
	}
	return &S3Store{client: client, opts: opts}, nil
}

// DialS3 builds an S3 client from the default AWS configuration chain,
// overridden by any region, endpoint or static credentials in opts.
func DialS3(ctx context.Context, opts S3Options) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, ErrNoBucket
	}
	err := validation.NewConfigValidator("S3Options").
		When(opts.AccessKeyID != "", func(cv *validation.ConfigValidator) {
			cv.Required("SecretAccessKey", opts.SecretAccessKey)
		}).
		Validate()
	if err != nil {
		return nil, &Error{Op: "dial", Name: opts.Bucket, Cause: err}
	}

	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, &Error{Op: "dial", Name: opts.Bucket, Cause: err}
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3Store(client, opts)
}

// Key returns the object key for an artifact.
func (s *S3Store) Key(name string) string {
	key := path.Join(strings.Trim(s.opts.Prefix, "/"), name)
	if s.opts.Compress {
		key += ".snappy"
	}
	return key
}

// Location returns the s3:// URL of an artifact.
func (s *S3Store) Location(name string) string {
	return "s3://" + s.opts.Bucket + "/" + s.Key(name)
}

// Put uploads data. The uncompressed digest is stored as object metadata.
func (s *S3Store) Put(ctx context.Context, name string, data []byte) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	body := data
	contentType := contentTypeFor(name)
	if s.opts.Compress {
		body = snappy.Encode(nil, data)
		contentType = "application/x-snappy"
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.opts.Bucket),
		Key:         aws.String(s.Key(name)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
		Metadata:    map[string]string{"blake2b": Digest(data)},
	})
	if err != nil {
		return &Error{Op: "put", Name: name, Location: s.Location(name), Cause: err}
	}
	return nil
}

func contentTypeFor(name string) string {
	switch {
	case strings.HasSuffix(name, ".xml"):
		return "application/xml"
	case strings.HasSuffix(name, ".json"):
		return "application/json"
	case strings.HasSuffix(name, ".prom"):
		return "text/plain; version=0.0.4"
	default:
		return "text/plain"
	}
}
