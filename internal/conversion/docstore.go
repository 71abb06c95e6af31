package conversion

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/KLcoding01/K-AI-Scribe-sub000/pkg/logging"
)

// S3API is the subset of the S3 client used by DocumentStore.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// DocumentStore holds conversion inputs and outputs in S3. Keys are
// referenced from job records; the documents themselves never enter the
// queue or the job table.
type DocumentStore struct {
	bucket   string
	s3Client S3API
	logger   *logging.Logger
}

func NewDocumentStore(s3Client S3API, bucket string, logger *logging.Logger) *DocumentStore {
	if s3Client == nil {
		panic("conversion: s3 client cannot be nil")
	}
	if bucket == "" {
		panic("conversion: bucket cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &DocumentStore{bucket: bucket, s3Client: s3Client, logger: logger}
}

// PutInput stores the source document for a job and returns its key.
func (s *DocumentStore) PutInput(ctx context.Context, jobID, document string) (string, error) {
	key := inputKey(jobID)
	if err := s.put(ctx, key, document); err != nil {
		return "", err
	}
	return key, nil
}

// PutOutput stores the converted document for a job and returns its key.
func (s *DocumentStore) PutOutput(ctx context.Context, jobID, document string) (string, error) {
	key := outputKey(jobID)
	if err := s.put(ctx, key, document); err != nil {
		return "", err
	}
	return key, nil
}

// Get fetches a document by key.
func (s *DocumentStore) Get(ctx context.Context, key string) (string, error) {
	out, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("conversion: s3 get %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return "", fmt.Errorf("conversion: s3 read %s: %w", key, err)
	}
	return string(data), nil
}

func (s *DocumentStore) put(ctx context.Context, key, document string) error {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader([]byte(document)),
		ContentType: aws.String("text/plain; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("conversion: s3 put %s: %w", key, err)
	}
	s.logger.Debug("document stored", "s3_key", key, "bytes", len(document))
	return nil
}

func inputKey(jobID string) string {
	now := time.Now().UTC()
	return fmt.Sprintf("conversions/v1/%d/%02d/%s/input.txt", now.Year(), now.Month(), jobID)
}

func outputKey(jobID string) string {
	now := time.Now().UTC()
	return fmt.Sprintf("conversions/v1/%d/%02d/%s/output.txt", now.Year(), now.Month(), jobID)
}
