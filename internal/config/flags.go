package config

import (
	"flag"
	"os"

	"github.com/avolkovs/couplesync/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-r string   AWS region
//	-e string   custom AWS endpoint (local stacks)
//	-b string   S3 bucket holding photo blobs
//	-t string   DynamoDB table name
//	-s string   path to the local snapshot database file
//	-w string   widget shared container directory
//
// os.Args is filtered through flagx.FilterArgs so flags owned by other
// components do not interfere.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-r", "-e", "-b", "-t", "-s", "-w"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.AWSRegion, "r", cfg.AWSRegion, "AWS region")
	fs.StringVar(&cfg.AWSEndpoint, "e", cfg.AWSEndpoint, "custom AWS endpoint")
	fs.StringVar(&cfg.S3Bucket, "b", cfg.S3Bucket, "S3 bucket for photo blobs")
	fs.StringVar(&cfg.DynamoTable, "t", cfg.DynamoTable, "DynamoDB table")
	fs.StringVar(&cfg.SnapshotPath, "s", cfg.SnapshotPath, "local snapshot database file")
	fs.StringVar(&cfg.WidgetDir, "w", cfg.WidgetDir, "widget shared container directory")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
