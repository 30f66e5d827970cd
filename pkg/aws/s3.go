package aws

import (
	"context"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Presigner issues short-lived PUT URLs so clients upload images straight to the bucket.
type Presigner struct {
	client *s3.PresignClient
	bucket string
	expiry time.Duration
}

func NewPresigner(cfg sdkaws.Config, bucket string, expiry time.Duration) *Presigner {
	return &Presigner{
		client: s3.NewPresignClient(s3.NewFromConfig(cfg)),
		bucket: bucket,
		expiry: expiry,
	}
}

// PresignPut returns the URL and the headers the client must send with the PUT.
func (p *Presigner) PresignPut(ctx context.Context, key, contentType string) (string, map[string]string, error) {
	input := &s3.PutObjectInput{
		Bucket: &p.bucket,
		Key:    &key,
	}
	if contentType != "" {
		input.ContentType = &contentType
	}

	presigned, err := p.client.PresignPutObject(ctx, input, func(o *s3.PresignOptions) {
		o.Expires = p.expiry
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to presign put object: %w", err)
	}

	headers := make(map[string]string)
	for k, v := range presigned.SignedHeader {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}
	return presigned.URL, headers, nil
}
