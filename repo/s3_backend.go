package repo

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/lily-mara/bork/borgerr"
)

// S3Backend treats an S3 (or MinIO-compatible) bucket+prefix as a
// repository root: data/<bucket>/<id> becomes the object key
// <Prefix>/data/<bucket>/<id>.
type S3Backend struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Endpoint        string
	Bucket          string
	Prefix          string
	ForcePathStyle  bool

	mu     sync.Mutex
	client *s3.Client
	opened bool
}

func (b *S3Backend) ensureOpen() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.opened {
		return nil
	}

	ctx := context.Background()

	var opts []func(*config.LoadOptions) error
	if b.Region != "" {
		opts = append(opts, config.WithRegion(b.Region))
	}
	if b.AccessKeyID != "" && b.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(b.AccessKeyID, b.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return &borgerr.ConfigError{Op: "load AWS config", Err: err}
	}

	var s3Opts []func(*s3.Options)
	if b.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.BaseEndpoint = aws.String(b.Endpoint) })
	}
	if b.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.UsePathStyle = true })
	}

	b.client = s3.NewFromConfig(cfg, s3Opts...)
	b.opened = true
	return nil
}

func (b *S3Backend) key(name string) string {
	prefix := strings.TrimSuffix(b.Prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

func (b *S3Backend) getObject(key string) (io.ReadCloser, error) {
	if err := b.ensureOpen(); err != nil {
		return nil, err
	}
	resp, err := b.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(b.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (b *S3Backend) ReadConfig() ([]byte, error) {
	rc, err := b.getObject(b.key("config"))
	if err != nil {
		return nil, &borgerr.ConfigError{Op: "read config", Err: err}
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Segments lists every object under <prefix>/data/ and parses out
// (bucket, seg) pairs, sorted ascending. Keys that don't match the
// data/<bucket>/<seg> shape are skipped, not an error.
func (b *S3Backend) Segments() ([]SegmentRef, error) {
	if err := b.ensureOpen(); err != nil {
		return nil, err
	}

	dataPrefix := b.key("data/")
	var refs []SegmentRef

	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.Bucket),
		Prefix: aws.String(dataPrefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(context.Background())
		if err != nil {
			return nil, &borgerr.LayoutError{Op: "list segment objects", Err: err}
		}
		for _, obj := range page.Contents {
			rest := strings.TrimPrefix(aws.ToString(obj.Key), dataPrefix)
			parts := strings.Split(rest, "/")
			if len(parts) != 2 {
				continue
			}
			bucket, ok := parseNonNegativeInt(parts[0])
			if !ok {
				continue
			}
			seg, ok := parseNonNegativeInt(parts[1])
			if !ok {
				continue
			}
			refs = append(refs, SegmentRef{Bucket: bucket, Seg: seg})
		}
	}

	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Bucket != refs[j].Bucket {
			return refs[i].Bucket < refs[j].Bucket
		}
		return refs[i].Seg < refs[j].Seg
	})
	return refs, nil
}

func (b *S3Backend) OpenSegment(ref SegmentRef) (io.ReadCloser, error) {
	key := b.key(fmt.Sprintf("data/%d/%d", ref.Bucket, ref.Seg))
	rc, err := b.getObject(key)
	if err != nil {
		return nil, &borgerr.LayoutError{Op: "open segment", Err: err}
	}
	return rc, nil
}

func (b *S3Backend) Hints() ([]AuxRef, error)   { return b.listAux("hints.", AuxHint) }
func (b *S3Backend) Indices() ([]AuxRef, error) { return b.listAux("index.", AuxIndex) }

func (b *S3Backend) listAux(filePrefix string, kind AuxKind) ([]AuxRef, error) {
	if err := b.ensureOpen(); err != nil {
		return nil, err
	}

	rootPrefix := b.key(filePrefix)
	var refs []AuxRef

	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.Bucket),
		Prefix: aws.String(rootPrefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(context.Background())
		if err != nil {
			return nil, &borgerr.LayoutError{Op: "list auxiliary objects", Err: err}
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), rootPrefix)
			n, ok := parseNonNegativeInt(name)
			if !ok {
				continue
			}
			refs = append(refs, AuxRef{Kind: kind, Txid: n})
		}
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].Txid < refs[j].Txid })
	return refs, nil
}

func (b *S3Backend) OpenAux(ref AuxRef) (io.ReadCloser, error) {
	var name string
	switch ref.Kind {
	case AuxHint:
		name = "hints." + strconv.Itoa(ref.Txid)
	case AuxIndex:
		name = "index." + strconv.Itoa(ref.Txid)
	}
	rc, err := b.getObject(b.key(name))
	if err != nil {
		return nil, &borgerr.LayoutError{Op: "open auxiliary object", Err: err}
	}
	return rc, nil
}
