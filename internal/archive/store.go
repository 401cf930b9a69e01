// Package archive durably persists completed call records to S3 before
// their Redis context is deleted.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// CallRecord is the archived snapshot of one finished call.
type CallRecord struct {
	CallID     string          `json:"call_id"`
	CompanyID  string          `json:"company_id"`
	StartedAt  time.Time       `json:"started_at"`
	EndedAt    time.Time       `json:"ended_at"`
	Context    json.RawMessage `json:"context"`
	ArchivedAt time.Time       `json:"archived_at"`
}

// Store archives call records to S3. If bucket is empty, all operations
// are no-ops and Enabled reports false.
type Store struct {
	bucket   string
	s3Client S3API
	logger   *slog.Logger
}

// NewStore creates an archive Store.
func NewStore(s3Client S3API, bucket string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{bucket: bucket, s3Client: s3Client, logger: logger}
}

// Enabled returns true if archival is configured (bucket is set).
func (s *Store) Enabled() bool {
	return s != nil && s.bucket != "" && s.s3Client != nil
}

// ArchiveCall writes a CallRecord as JSON to S3 under a by-date key.
func (s *Store) ArchiveCall(ctx context.Context, record *CallRecord) error {
	if !s.Enabled() {
		return nil
	}

	if record.ArchivedAt.IsZero() {
		record.ArchivedAt = time.Now().UTC()
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("archive: marshal record: %w", err)
	}

	now := record.ArchivedAt
	key := fmt.Sprintf("calls/v1/by-date/%d/%02d/%02d/%s.json",
		now.Year(), now.Month(), now.Day(), record.CallID)

	if _, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	}); err != nil {
		return fmt.Errorf("archive: put call record: %w", err)
	}

	s.logger.Info("call archived", "call_id", record.CallID, "key", key)
	return nil
}
