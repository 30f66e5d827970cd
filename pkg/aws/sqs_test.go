package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeQueue struct {
	messages []types.Message
	deleted  []string
}

func (f *fakeQueue) ReceiveMessage(context.Context, *sqs.ReceiveMessageInput, ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	out := &sqs.ReceiveMessageOutput{Messages: f.messages}
	f.messages = nil
	return out, nil
}

func (f *fakeQueue) DeleteMessage(_ context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, *in.ReceiptHandle)
	return &sqs.DeleteMessageOutput{}, nil
}

func str(s string) *string { return &s }

func TestPollOnceDeletesOnlyHandledMessages(t *testing.T) {
	q := &fakeQueue{messages: []types.Message{
		{Body: str(`{"type":"order.created","id":"ok"}`), ReceiptHandle: str("r1")},
		{Body: str(`{"type":"order.created","id":"bad"}`), ReceiptHandle: str("r2")},
		{ReceiptHandle: str("r3")},
	}}
	consumer := &SQSConsumer{client: q, queueURL: "http://queue", log: zap.NewNop()}

	var seen []string
	err := consumer.pollOnce(context.Background(), func(_ context.Context, body string) error {
		seen = append(seen, body)
		if body == `{"type":"order.created","id":"bad"}` {
			return errors.New("boom")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, seen, 2)
	assert.Equal(t, []string{"r1"}, q.deleted)
}

func TestUnwrapSNSEnvelope(t *testing.T) {
	wrapped := `{"Type":"Notification","Message":"{\"id\":\"1\"}"}`
	assert.Equal(t, `{"id":"1"}`, UnwrapSNSEnvelope(wrapped))
	assert.Equal(t, `{"id":"1"}`, UnwrapSNSEnvelope(`{"id":"1"}`))
	assert.Equal(t, "plain", UnwrapSNSEnvelope("plain"))
}
