package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"calendar-sync/core/history"
	"calendar-sync/core/reconcile"
	"calendar-sync/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const reportPrefix = "reports"

// archivedReport is the stored document.
type archivedReport struct {
	Run    *history.Run      `json:"run"`
	Report *reconcile.Report `json:"report"`
}

// Archive stores run reports as JSON objects and prunes old ones.
type Archive struct {
	client    storage.Client
	bucket    string
	region    string
	retention int
	logger    *zap.Logger

	ready bool
}

// NewArchive creates an archive writing into the configured bucket.
func NewArchive(client storage.Client, cfg storage.Config, logger *zap.Logger) *Archive {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archive{
		client:    client,
		bucket:    cfg.Bucket,
		region:    cfg.Region,
		retention: cfg.Retention,
		logger:    logger,
	}
}

// ReportKey returns the object key of a run report. Keys of one target sort
// chronologically.
func ReportKey(run *history.Run) string {
	stamp := run.StartedAt.UTC().Format("20060102T150405Z")
	return path.Join(reportPrefix, run.Kind, run.Target, stamp+"-"+run.ID+".json")
}

// Store uploads the report and returns its key. Callers serialize calls.
func (a *Archive) Store(ctx context.Context, run *history.Run, report *reconcile.Report) (string, error) {
	if !a.ready {
		if err := storage.EnsureBucket(ctx, a.client, a.bucket, a.region); err != nil {
			return "", err
		}
		a.ready = true
	}

	payload, err := json.MarshalIndent(archivedReport{Run: run, Report: report}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	key := ReportKey(run)
	_, err = a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload report %s: %w", key, err)
	}

	if err := a.prune(ctx, path.Dir(key)+"/"); err != nil {
		a.logger.Warn("Failed to prune archived reports", zap.String("prefix", path.Dir(key)), zap.Error(err))
	}
	return key, nil
}

// Load returns the raw report stored under key.
func (a *Archive) Load(ctx context.Context, key string) ([]byte, error) {
	obj, err := a.client.GetObject(ctx, a.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get report %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read report %s: %w", key, err)
	}
	return data, nil
}

// prune keeps the newest retention reports under prefix.
func (a *Archive) prune(ctx context.Context, prefix string) error {
	if a.retention <= 0 {
		return nil
	}

	var keys []string
	for obj := range a.client.ListObjects(ctx, a.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return obj.Err
		}
		if strings.HasSuffix(obj.Key, ".json") {
			keys = append(keys, obj.Key)
		}
	}
	if len(keys) <= a.retention {
		return nil
	}

	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	stale := keys[a.retention:]

	objects := make(chan minio.ObjectInfo, len(stale))
	for _, key := range stale {
		objects <- minio.ObjectInfo{Key: key}
	}
	close(objects)

	var errs error
	for rerr := range a.client.RemoveObjects(ctx, a.bucket, objects, minio.RemoveObjectsOptions{}) {
		errs = multierr.Append(errs, fmt.Errorf("%s: %w", rerr.ObjectName, rerr.Err))
	}
	if errs == nil {
		a.logger.Debug("Pruned archived reports", zap.String("prefix", prefix), zap.Int("removed", len(stale)))
	}
	return errs
}
