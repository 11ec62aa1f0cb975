// Package config holds runtime settings for the couplesync core and the
// widget exporter CLI. Values are layered: defaults, then a JSON file (if
// given via -c/-config), then command-line flags. Later sources win.
package config

import "time"

// Config holds runtime settings.
//
// AWS settings cover both remote stores: DynamoDB (document store) and S3
// (blob store). Endpoint is optional and only set when pointing at a local
// stack (minio, dynamodb-local).
type Config struct {
	AWSRegion   string
	AWSEndpoint string
	S3Bucket    string
	DynamoTable string

	// SnapshotPath is the bbolt file backing the local snapshot cache.
	SnapshotPath string

	// WidgetDir is the shared container directory the widget reads from.
	WidgetDir string

	// Image cache bounds.
	CacheCapacity int
	CacheTTL      time.Duration

	// Widget export bounds.
	WidgetMaxPerEntity int
	WidgetMaxTotal     int
	WidgetImageWidth   int
	WidgetImageHeight  int
	WidgetJPEGQuality  int
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.AWSRegion = "us-east-1"
	c.S3Bucket = "couplesync-media"
	c.DynamoTable = "couplesync"
	c.SnapshotPath = "couplesync.db"
	c.WidgetDir = "."
	c.CacheCapacity = 50
	c.CacheTTL = time.Hour
	c.WidgetMaxPerEntity = 3
	c.WidgetMaxTotal = 20
	c.WidgetImageWidth = 360
	c.WidgetImageHeight = 360
	c.WidgetJPEGQuality = 70
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags (if present).
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJSON(cfg)
	parseFlags(cfg)
	return cfg
}
