// Package publish mirrors the current menu to S3 as a static JSON document,
// so a CDN can serve the menu even when this service is down.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/JonMunkholm/bakery/internal/loader"
	"github.com/JonMunkholm/bakery/internal/menu"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const contentType = "application/json; charset=utf-8"

// Document is the published JSON shape.
type Document struct {
	Items      []menu.MenuItem `json:"items"`
	Categories []menu.Category `json:"categories"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// PutObjectAPI is the part of *s3.Client the publisher needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config configures a Publisher.
type Config struct {
	Bucket       string
	Key          string
	CacheControl string
	Timeout      time.Duration
	Logger       *slog.Logger
}

// Publisher uploads menu documents to a single S3 object.
type Publisher struct {
	client       PutObjectAPI
	bucket       string
	key          string
	cacheControl string
	timeout      time.Duration
	logger       *slog.Logger

	// last is the encoded content of the previous successful upload.
	last []byte
}

// NewS3Client builds an S3 client from the default AWS credential chain.
// An empty region leaves region resolution to the SDK.
func NewS3Client(ctx context.Context, region string) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// New returns a Publisher writing to cfg.Bucket/cfg.Key.
func New(client PutObjectAPI, cfg Config) (*Publisher, error) {
	if cfg.Bucket == "" || cfg.Key == "" {
		return nil, fmt.Errorf("publish: bucket and key are required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Publisher{
		client:       client,
		bucket:       cfg.Bucket,
		key:          cfg.Key,
		cacheControl: cfg.CacheControl,
		timeout:      cfg.Timeout,
		logger:       cfg.Logger.With("component", "menu_publisher", "bucket", cfg.Bucket, "key", cfg.Key),
	}, nil
}

// Publish uploads doc unconditionally.
func (p *Publisher) Publish(ctx context.Context, doc Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode menu document: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	in := &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(p.key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	}
	if p.cacheControl != "" {
		in.CacheControl = aws.String(p.cacheControl)
	}
	if _, err := p.client.PutObject(ctx, in); err != nil {
		return fmt.Errorf("upload menu to s3://%s/%s: %w", p.bucket, p.key, err)
	}
	return nil
}

// Follow publishes every loader update until updates is closed or ctx ends.
// Updates whose menu matches the last upload are skipped. Upload failures are
// logged and retried with the next update.
func (p *Publisher) Follow(ctx context.Context, updates <-chan loader.State) {
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-updates:
			if !ok {
				return
			}
			p.publishState(ctx, st)
		}
	}
}

func (p *Publisher) publishState(ctx context.Context, st loader.State) {
	if st.Loading || len(st.MenuItems) == 0 {
		return
	}

	content, err := json.Marshal(struct {
		Items      []menu.MenuItem
		Categories []menu.Category
	}{st.MenuItems, st.Categories})
	if err != nil {
		p.logger.Error("encode menu for comparison failed", "error", err)
		return
	}
	if bytes.Equal(content, p.last) {
		p.logger.Debug("menu unchanged, skipping publish")
		return
	}

	updatedAt := st.LastUpdated
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	doc := Document{Items: st.MenuItems, Categories: st.Categories, UpdatedAt: updatedAt}
	if err := p.Publish(ctx, doc); err != nil {
		p.logger.Warn("menu publish failed", "error", err)
		return
	}
	p.last = content
	p.logger.Info("menu published", "items", len(st.MenuItems))
}
