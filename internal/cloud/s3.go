// Package cloud holds the AWS-backed alert notifier and summary archiver.
package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/i474232898/weather-monitor/internal/weather"
)

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver writes each day's summaries to daily/<date>.json in a bucket.
type S3Archiver struct {
	svc    objectPutter
	bucket string
}

// NewS3Archiver loads the default AWS config for region.
func NewS3Archiver(ctx context.Context, region, bucket string) (*S3Archiver, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return &S3Archiver{svc: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

func newS3Archiver(svc objectPutter, bucket string) *S3Archiver {
	return &S3Archiver{svc: svc, bucket: bucket}
}

// SummaryKey is the object key a day's summaries are written to.
func SummaryKey(day time.Time) string {
	return "daily/" + day.Format(weather.DateLayout) + ".json"
}

// Archive overwrites the day's object, so reruns stay idempotent.
func (a *S3Archiver) Archive(ctx context.Context, day time.Time, summaries []weather.DailySummary) error {
	data, err := json.Marshal(summaries)
	if err != nil {
		return fmt.Errorf("marshal summaries: %w", err)
	}

	key := SummaryKey(day)
	_, err = a.svc.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"uploaded-at": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}

	log.Info().Str("bucket", a.bucket).Str("key", key).Int("rows", len(summaries)).Msg("daily summaries archived")
	return nil
}
