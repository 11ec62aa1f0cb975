package config

import (
	"encoding/json"
	"os"

	"github.com/avolkovs/couplesync/internal/flagx"
	"github.com/avolkovs/couplesync/internal/timex"
)

// jsonConfig is a DTO used only for JSON unmarshalling. Durations may be
// given as strings ("1h") or integer nanoseconds via timex.Duration.
// Zero values mean "not set" and leave the existing Config value alone.
type jsonConfig struct {
	AWSRegion          string         `json:"aws_region"`
	AWSEndpoint        string         `json:"aws_endpoint"`
	S3Bucket           string         `json:"s3_bucket"`
	DynamoTable        string         `json:"dynamo_table"`
	SnapshotPath       string         `json:"snapshot_path"`
	WidgetDir          string         `json:"widget_dir"`
	CacheCapacity      int            `json:"cache_capacity"`
	CacheTTL           timex.Duration `json:"cache_ttl"`
	WidgetMaxPerEntity int            `json:"widget_max_per_entity"`
	WidgetMaxTotal     int            `json:"widget_max_total"`
	WidgetImageWidth   int            `json:"widget_image_width"`
	WidgetImageHeight  int            `json:"widget_image_height"`
	WidgetJPEGQuality  int            `json:"widget_jpeg_quality"`
}

// parseJSON overlays cfg with values from the JSON file named by the -c or
// -config flag. No file, no overlay. Read or unmarshal errors panic; the
// composition root decides whether to recover.
func parseJSON(cfg *Config) {
	jsonConfigFile := flagx.JSONConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc jsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.AWSRegion != "" {
		cfg.AWSRegion = jc.AWSRegion
	}
	if jc.AWSEndpoint != "" {
		cfg.AWSEndpoint = jc.AWSEndpoint
	}
	if jc.S3Bucket != "" {
		cfg.S3Bucket = jc.S3Bucket
	}
	if jc.DynamoTable != "" {
		cfg.DynamoTable = jc.DynamoTable
	}
	if jc.SnapshotPath != "" {
		cfg.SnapshotPath = jc.SnapshotPath
	}
	if jc.WidgetDir != "" {
		cfg.WidgetDir = jc.WidgetDir
	}
	if jc.CacheCapacity > 0 {
		cfg.CacheCapacity = jc.CacheCapacity
	}
	if jc.CacheTTL.Duration > 0 {
		cfg.CacheTTL = jc.CacheTTL.Duration
	}
	if jc.WidgetMaxPerEntity > 0 {
		cfg.WidgetMaxPerEntity = jc.WidgetMaxPerEntity
	}
	if jc.WidgetMaxTotal > 0 {
		cfg.WidgetMaxTotal = jc.WidgetMaxTotal
	}
	if jc.WidgetImageWidth > 0 {
		cfg.WidgetImageWidth = jc.WidgetImageWidth
	}
	if jc.WidgetImageHeight > 0 {
		cfg.WidgetImageHeight = jc.WidgetImageHeight
	}
	if jc.WidgetJPEGQuality > 0 {
		cfg.WidgetJPEGQuality = jc.WidgetJPEGQuality
	}
}
