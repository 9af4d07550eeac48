package writer

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "slotflow/config"
	"slotflow/logger"
	"slotflow/models"
)

type s3PutAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader stores report artifacts in an S3 bucket under
// <prefix>/<yyyy>/<mm>/<dd>/<run id>/<filename>.
type S3Uploader struct {
	client  s3PutAPI
	bucket  string
	prefix  string
	version string
	log     *logger.Log
}

// NewS3Uploader configures the AWS SDK from cfg. Static credentials are used
// when both keys are set, otherwise the default chain applies.
func NewS3Uploader(ctx context.Context, cfg *appconfig.Config) (*S3Uploader, error) {
	log := logger.GetLogger()
	s3cfg := cfg.Storage.S3

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(s3cfg.Region)}
	if s3cfg.AccessKeyID != "" && s3cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s3cfg.AccessKeyID, s3cfg.SecretAccessKey, ""),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		log.WithComponent("s3_writer").WithError(err).Warn("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if s3cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(s3cfg.Endpoint)
		}
		o.UsePathStyle = s3cfg.PathStyle
	})

	log.WithComponent("s3_writer").WithFields(logger.Fields{
		"bucket":     s3cfg.Bucket,
		"region":     s3cfg.Region,
		"endpoint":   s3cfg.Endpoint,
		"path_style": s3cfg.PathStyle,
	}).Info("s3 uploader initialized")

	return newS3Uploader(client, s3cfg.Bucket, s3cfg.Prefix, cfg.Slotflow.Version), nil
}

func newS3Uploader(client s3PutAPI, bucket, prefix, version string) *S3Uploader {
	return &S3Uploader{
		client:  client,
		bucket:  bucket,
		prefix:  strings.Trim(prefix, "/"),
		version: version,
		log:     logger.GetLogger(),
	}
}

// Key returns the object key of an artifact of report.
func (u *S3Uploader) Key(report *models.Report, filename string) string {
	ts := report.GeneratedAt.UTC()
	parts := []string{
		fmt.Sprintf("%04d", ts.Year()),
		fmt.Sprintf("%02d", ts.Month()),
		fmt.Sprintf("%02d", ts.Day()),
		report.RunID,
		filename,
	}
	if u.prefix != "" {
		parts = append([]string{u.prefix}, parts...)
	}
	return path.Join(parts...)
}

// Upload stores data as an artifact of report and returns its s3:// location.
func (u *S3Uploader) Upload(ctx context.Context, report *models.Report, filename, contentType string, data []byte) (string, error) {
	key := u.Key(report, filename)
	log := u.log.WithComponent("s3_writer").WithFields(logger.Fields{
		"operation": "upload_to_s3",
		"run_id":    report.RunID,
		"key":       key,
		"data_size": len(data),
	})
	log.Debug("uploading to S3")

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"run-id":           report.RunID,
			"slots":            fmt.Sprintf("%d", len(report.Slots)),
			"slotflow-version": u.version,
		},
	})
	if err != nil {
		log.WithEnv("S3_BUCKET").WithError(err).Error("upload failed")
		return "", fmt.Errorf("failed to upload to S3 bucket %s: %w", u.bucket, err)
	}

	log.Info("successfully uploaded to S3")
	logger.LogDataFlowEntry(log, "xlsx_exporter", "s3", len(report.Slots), "slots")
	return fmt.Sprintf("s3://%s/%s", u.bucket, key), nil
}
