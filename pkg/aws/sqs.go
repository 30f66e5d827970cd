package aws

import (
	"context"
	"encoding/json"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"
)

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// MessageHandler processes one message body. A returned error leaves the
// message on the queue so it is redelivered after the visibility timeout.
type MessageHandler func(ctx context.Context, body string) error

// SQSConsumer long-polls one queue.
type SQSConsumer struct {
	client   sqsAPI
	queueURL string
	log      *zap.Logger
}

func NewSQSConsumer(cfg sdkaws.Config, queueURL string, log *zap.Logger) *SQSConsumer {
	return &SQSConsumer{client: sqs.NewFromConfig(cfg), queueURL: queueURL, log: log}
}

// StartPolling runs until ctx is cancelled.
func (c *SQSConsumer) StartPolling(ctx context.Context, handler MessageHandler) error {
	c.log.Info("starting SQS polling", zap.String("queue", c.queueURL))
	for {
		select {
		case <-ctx.Done():
			c.log.Info("SQS polling stopped")
			return ctx.Err()
		default:
			if err := c.pollOnce(ctx, handler); err != nil && ctx.Err() == nil {
				c.log.Warn("error polling SQS", zap.Error(err))
			}
		}
	}
}

func (c *SQSConsumer) pollOnce(ctx context.Context, handler MessageHandler) error {
	result, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            &c.queueURL,
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     20,
		VisibilityTimeout:   30,
	})
	if err != nil {
		return fmt.Errorf("failed to receive messages: %w", err)
	}

	for _, msg := range result.Messages {
		if msg.Body == nil {
			continue
		}
		if err := handler(ctx, UnwrapSNSEnvelope(*msg.Body)); err != nil {
			c.log.Warn("failed to process message", zap.Error(err))
			continue
		}
		if _, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
			QueueUrl:      &c.queueURL,
			ReceiptHandle: msg.ReceiptHandle,
		}); err != nil {
			c.log.Warn("failed to delete message", zap.Error(err))
		}
	}
	return nil
}

// UnwrapSNSEnvelope returns the inner message of an SNS notification
// delivered to SQS without raw delivery, or body unchanged otherwise.
func UnwrapSNSEnvelope(body string) string {
	var envelope struct {
		Type    string `json:"Type"`
		Message string `json:"Message"`
	}
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		return body
	}
	if envelope.Type == "Notification" && envelope.Message != "" {
		return envelope.Message
	}
	return body
}
