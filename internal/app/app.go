// Package app is the composition root: every service is constructed once
// here and passed by reference, with no package-level singletons, so tests
// can build the same graph in isolation.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/avolkovs/couplesync/internal/blobcache"
	"github.com/avolkovs/couplesync/internal/config"
	"github.com/avolkovs/couplesync/internal/filex"
	"github.com/avolkovs/couplesync/internal/logging"
	"github.com/avolkovs/couplesync/internal/models"
	"github.com/avolkovs/couplesync/internal/remote/blob"
	"github.com/avolkovs/couplesync/internal/remote/dynamo"
	"github.com/avolkovs/couplesync/internal/snapshot"
	"github.com/avolkovs/couplesync/internal/syncmgr"
	"github.com/avolkovs/couplesync/internal/widget"
)

type App struct {
	config *config.Config
	logger logging.Logger

	snaps  *snapshot.Store
	cache  *blobcache.Cache
	Events *syncmgr.EventManager
	Bucket *syncmgr.BucketManager
	Widget *widget.Exporter
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("aws config init error: %w", err)
	}

	dynamoClient := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.AWSEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.AWSEndpoint)
		}
	})
	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.AWSEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.AWSEndpoint)
			o.UsePathStyle = true
		}
	})

	docs := dynamo.New(dynamoClient, cfg.DynamoTable, logger)
	blobs := blob.New(s3Client, cfg.S3Bucket, logger)

	snaps, err := snapshot.Open(cfg.SnapshotPath, logger)
	if err != nil {
		return nil, fmt.Errorf("snapshot db init error: %w", err)
	}

	cache := blobcache.New(cfg.CacheCapacity, cfg.CacheTTL)

	events := syncmgr.NewEventManager(docs, blobs, blobs, cache, snaps, logger)
	bucket := syncmgr.NewBucketManager(docs, blobs, blobs, cache, snaps, logger, events)

	widgetDir, err := filex.EnsureDir(cfg.WidgetDir)
	if err != nil {
		return nil, fmt.Errorf("widget dir init error: %w", err)
	}

	exporter := widget.NewExporter(
		blobs,
		widget.LogSignaler{Log: logger},
		widgetDir,
		"memories",
		"",
		widget.Options{
			MaxPerEntity: cfg.WidgetMaxPerEntity,
			MaxTotal:     cfg.WidgetMaxTotal,
			Width:        cfg.WidgetImageWidth,
			Height:       cfg.WidgetImageHeight,
			JPEGQuality:  cfg.WidgetJPEGQuality,
		},
		logger,
	)

	return &App{
		config: cfg,
		logger: logger,
		snaps:  snaps,
		cache:  cache,
		Events: events,
		Bucket: bucket,
		Widget: exporter,
	}, nil
}

// ExportWidget refreshes the events collection for coupleID and exports the
// widget snapshot from entities that carry at least one photo.
func (a *App) ExportWidget(ctx context.Context, coupleID string) error {
	if err := a.Events.Load(ctx, coupleID); err != nil {
		return err
	}
	hasPhoto := func(e models.Event) bool { return len(e.PhotoRefs) > 0 }
	return a.Widget.Export(ctx, a.Events.Items(), hasPhoto)
}

func (a *App) Close() error {
	return a.snaps.Close()
}
