package records

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/doctree"
)

// ObjectPutter is the subset of the S3 client used by S3Sink.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink mirrors record files into an S3 bucket under Prefix.
type S3Sink struct {
	Client ObjectPutter
	Bucket string
	Prefix string
}

// Key returns the object key for a document's records.
func (s *S3Sink) Key(relPath string) string {
	return path.Join(s.Prefix, filepath.ToSlash(filepath.Clean(relPath))+FileExt)
}

func (s *S3Sink) Put(ctx context.Context, relPath string, recs []doctree.Record) (string, error) {
	data, err := Encode(recs)
	if err != nil {
		return "", err
	}
	key := s.Key(relPath)
	_, err = s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", s.Bucket, key, err)
	}
	return "s3://" + s.Bucket + "/" + key, nil
}
