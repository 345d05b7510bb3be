package driver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Credentials selects one of the three credential modes s3driver.py
// supports: anonymous (unsigned requests), a named profile, or an
// explicit static access-key/secret/session-token triple. Exactly one of
// Anonymous, Profile, or AccessKeyID should be set.
type S3Credentials struct {
	Anonymous bool
	Profile   string

	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// S3Driver reads byte ranges from a single S3 object via GetObject with a
// Range header, mirroring s3driver.py's bucket/key split and per-instance
// connection-pooled client.
type S3Driver struct {
	client         *s3.Client
	bucket         string
	key            string
	creds          S3Credentials
	maxConnections int
	resourcePath   string
}

// defaultMaxConnections mirrors s3driver.py's class-level
// _global_max_connections default.
const defaultMaxConnections = 100

// OpenS3 builds a driver for resource "bucket/key/...", splitting at the
// first '/' exactly as s3driver.py does.
func OpenS3(ctx context.Context, resource string, creds S3Credentials, maxConnections int) (*S3Driver, error) {
	bucket, key, err := splitResource(resource)
	if err != nil {
		return nil, err
	}
	if maxConnections <= 0 {
		maxConnections = defaultMaxConnections
	}

	client, err := buildS3Client(ctx, creds, maxConnections)
	if err != nil {
		return nil, ioError("s3 client build", err)
	}

	return &S3Driver{
		client:         client,
		bucket:         bucket,
		key:            key,
		creds:          creds,
		maxConnections: maxConnections,
		resourcePath:   resource,
	}, nil
}

func splitResource(resource string) (bucket, key string, err error) {
	parts := strings.Split(strings.Trim(resource, "/"), "/")
	if len(parts) < 2 || parts[0] == "" {
		return "", "", ioError("s3 resource split", fmt.Errorf("invalid s3 resource %q", resource))
	}
	return parts[0], strings.Join(parts[1:], "/"), nil
}

func buildS3Client(ctx context.Context, creds S3Credentials, maxConnections int) (*s3.Client, error) {
	httpClient := &http.Client{
		Transport: &http.Transport{
			MaxConnsPerHost:     maxConnections,
			MaxIdleConnsPerHost: maxConnections,
		},
	}

	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithHTTPClient(httpClient))

	switch {
	case creds.Anonymous:
		opts = append(opts, awsconfig.WithCredentialsProvider(aws.AnonymousCredentials{}))
	case creds.Profile != "":
		opts = append(opts, awsconfig.WithSharedConfigProfile(creds.Profile))
	case creds.AccessKeyID != "":
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken,
		)))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(cfg), nil
}

func (d *S3Driver) ReadRange(ctx context.Context, offset, size int64) ([]byte, error) {
	rng := fmt.Sprintf("bytes=%d-%d", offset, offset+size-1)
	out, err := d.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.key),
		Range:  aws.String(rng),
	})
	if err != nil {
		return nil, ioError(fmt.Sprintf("s3 get %s/%s", d.bucket, d.key), err)
	}
	defer out.Body.Close()

	buf, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, ioError("s3 body read", err)
	}
	if int64(len(buf)) != size {
		return nil, ioError("s3 range short read", fmt.Errorf("got %d bytes, want %d", len(buf), size))
	}
	return buf, nil
}

// Copy builds an independent client with its own connection pool, sized
// by the same maxConnections the original driver was opened with —
// mirroring s3driver.py's copy(max_connections) constructor.
func (d *S3Driver) Copy() (Driver, error) {
	return OpenS3(context.Background(), d.resourcePath, d.creds, d.maxConnections)
}

func (d *S3Driver) Close() error {
	return nil
}
