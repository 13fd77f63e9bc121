package report

import (
	"context"
	"fmt"

	"sector_dashboard/internal/config"
)

// OpenArchive selects the archive driver named in cfg.
//
//	driver: fs  snapshots under cfg.Dir (default saved_reports)
//	driver: s3  objects under cfg.S3Prefix in cfg.S3Bucket
func OpenArchive(ctx context.Context, cfg config.ReportsConfig) (Archive, error) {
	switch cfg.Driver {
	case "", "fs":
		return NewFSArchive(cfg.Dir)
	case "s3":
		return NewS3Archive(ctx, S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			Prefix:          cfg.S3Prefix,
			PathStyle:       cfg.S3PathStyle,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
	default:
		return nil, fmt.Errorf("unknown report driver %s", cfg.Driver)
	}
}
