// Package hub pushes and pulls JSONL corpus exports through an S3-compatible
// bucket, the distribution channel for sharing a benchmark release between
// machines.
package hub

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"reprobench/internal/dataset"
)

// ErrNotFound reports a missing object or bucket.
var ErrNotFound = errors.New("hub: object not found")

const (
	papersObject = "papers.jsonl"
	tasksObject  = "tasks.jsonl"
)

// Config carries the bucket connection settings.
type Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Client talks to one bucket.
type Client struct {
	client   *minio.Client
	bucket   string
	region   string
	initOnce sync.Once
	initErr  error
}

// New validates the config and builds a client. No network traffic happens
// until the first push or pull.
func New(cfg Config) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("hub: endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("hub: access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("hub: bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("hub: init client: %w", err)
	}
	return &Client{client: client, bucket: bucket, region: region}, nil
}

func (c *Client) ensureBucket(ctx context.Context) error {
	c.initOnce.Do(func() {
		exists, err := c.client.BucketExists(ctx, c.bucket)
		if err != nil {
			c.initErr = err
			return
		}
		if exists {
			return
		}
		c.initErr = c.client.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{Region: c.region})
	})
	return c.initErr
}

// PushCorpus uploads the corpus as two objects under prefix: papers.jsonl
// (metadata with embedded tasks and, optionally, manuscript text) and
// tasks.jsonl (the flat per-task export).
func (c *Client) PushCorpus(ctx context.Context, loader *dataset.Loader, prefix string, includeText bool) error {
	var papers bytes.Buffer
	if err := loader.ExportJSONL(&papers, includeText, true); err != nil {
		return err
	}
	var tasks bytes.Buffer
	if err := loader.ExportTasksJSONL(&tasks); err != nil {
		return err
	}
	if err := c.put(ctx, objectKey(prefix, papersObject), papers.Bytes()); err != nil {
		return fmt.Errorf("hub: push %s: %w", papersObject, err)
	}
	if err := c.put(ctx, objectKey(prefix, tasksObject), tasks.Bytes()); err != nil {
		return fmt.Errorf("hub: push %s: %w", tasksObject, err)
	}
	return nil
}

// PullCorpus downloads papers.jsonl under prefix and rebuilds the corpus.
// Tasks travel embedded in the paper lines, so one object suffices.
func (c *Client) PullCorpus(ctx context.Context, prefix string) (*dataset.Loader, error) {
	data, err := c.get(ctx, objectKey(prefix, papersObject))
	if err != nil {
		return nil, fmt.Errorf("hub: pull %s: %w", papersObject, err)
	}
	return dataset.FromJSONL(bytes.NewReader(data))
}

func (c *Client) put(ctx context.Context, key string, content []byte) error {
	if err := c.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	_, err := c.client.PutObject(ctx, c.bucket, key, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: "application/x-ndjson",
	})
	return err
}

func (c *Client) get(ctx context.Context, key string) ([]byte, error) {
	if err := c.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}
	obj, err := c.client.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NoSuchBucket" {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func objectKey(prefix, name string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
