package oss

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/nconklindev/sheetpix/internal/config"
	"github.com/nconklindev/sheetpix/internal/types"
	"github.com/sirupsen/logrus"
)

const keyPrefix = "sheetpix"

// Uploader handles file uploads to Alibaba Cloud OSS
type Uploader struct {
	client *oss.Client
	bucket *oss.Bucket
	config *config.OSSConfig
	logger *logrus.Logger
}

// NewUploader creates a new OSS uploader
func NewUploader(cfg *config.OSSConfig, log *logrus.Logger) (*Uploader, error) {
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create OSS client: %w", err)
	}

	bucket, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to get OSS bucket: %w", err)
	}

	return &Uploader{
		client: client,
		bucket: bucket,
		config: cfg,
		logger: log,
	}, nil
}

// Upload uploads a file to OSS with retry logic
func (u *Uploader) Upload(ctx context.Context, runID string, localPath string) (*types.UploadResult, error) {
	startTime := time.Now()

	fileInfo, err := os.Stat(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	objectKey := ObjectKey(startTime, runID, localPath)

	log := u.logger.WithFields(logrus.Fields{
		"run_id":     runID,
		"object_key": objectKey,
	})
	log.WithFields(logrus.Fields{
		"file_size":  fileInfo.Size(),
		"local_path": localPath,
	}).Info("Starting OSS upload")

	var lastErr error
	for attempt := 0; attempt <= u.config.MaxRetries; attempt++ {
		if attempt > 0 {
			waitTime := time.Duration(attempt) * time.Second
			log.WithField("wait_time", waitTime.String()).
				Warnf("Retrying upload (attempt %d/%d)", attempt+1, u.config.MaxRetries+1)
			if err := sleep(ctx, waitTime); err != nil {
				return nil, err
			}
		}

		if fileInfo.Size() > u.config.PartSize {
			lastErr = u.multiPartUpload(ctx, localPath, objectKey, fileInfo.Size(), log)
		} else {
			lastErr = u.bucket.PutObjectFromFile(objectKey, localPath)
		}

		if lastErr == nil {
			break
		}
	}

	if lastErr != nil {
		log.WithError(lastErr).WithField("attempts", u.config.MaxRetries+1).Error("OSS upload failed after retries")
		return nil, fmt.Errorf("failed to upload after %d attempts: %w", u.config.MaxRetries+1, lastErr)
	}

	expiry := int64(u.config.SignedURLExpiry.Seconds())
	signedURL, err := u.bucket.SignURL(objectKey, oss.HTTPGet, expiry)
	if err != nil {
		return nil, fmt.Errorf("failed to generate signed URL: %w", err)
	}

	duration := time.Since(startTime)
	log.WithFields(logrus.Fields{
		"duration_ms": duration.Milliseconds(),
		"file_size":   fileInfo.Size(),
	}).Info("OSS upload completed successfully")

	return &types.UploadResult{
		ObjectKey:  objectKey,
		SignedURL:  signedURL,
		Size:       fileInfo.Size(),
		UploadTime: duration,
	}, nil
}

// multiPartUpload uploads a file in PartSize chunks
func (u *Uploader) multiPartUpload(ctx context.Context, localPath, objectKey string, size int64, log *logrus.Entry) error {
	imur, err := u.bucket.InitiateMultipartUpload(objectKey)
	if err != nil {
		return fmt.Errorf("failed to initiate multi-part upload: %w", err)
	}

	partSize := u.config.PartSize
	partCount := PartCount(size, partSize)

	var parts []oss.UploadPart
	for partNum := 1; partNum <= partCount; partNum++ {
		if err := ctx.Err(); err != nil {
			u.bucket.AbortMultipartUpload(imur)
			return err
		}

		offset := int64(partNum-1) * partSize
		chunk := partSize
		if offset+chunk > size {
			chunk = size - offset
		}

		part, err := u.bucket.UploadPartFromFile(imur, localPath, offset, chunk, partNum)
		if err != nil {
			u.bucket.AbortMultipartUpload(imur)
			return fmt.Errorf("failed to upload part %d: %w", partNum, err)
		}
		parts = append(parts, part)

		log.WithFields(logrus.Fields{
			"part_number": partNum,
			"part_size":   chunk,
		}).Debugf("Uploaded part %d/%d", partNum, partCount)
	}

	if _, err := u.bucket.CompleteMultipartUpload(imur, parts); err != nil {
		u.bucket.AbortMultipartUpload(imur)
		return fmt.Errorf("failed to complete multi-part upload: %w", err)
	}

	return nil
}

// DeleteObject deletes an object from OSS
func (u *Uploader) DeleteObject(objectKey string) error {
	return u.bucket.DeleteObject(objectKey)
}

// ObjectKey builds the object key for a run's upload:
// sheetpix/<yyyy/mm/dd>/<runID>/<file name>
func ObjectKey(at time.Time, runID, localPath string) string {
	return fmt.Sprintf("%s/%s/%s/%s", keyPrefix, at.Format("2006/01/02"), runID, filepath.Base(localPath))
}

// PartCount returns how many parts of partSize cover size bytes
func PartCount(size, partSize int64) int {
	count := int(size / partSize)
	if size%partSize != 0 {
		count++
	}
	return count
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
