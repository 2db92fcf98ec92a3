package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// sqsAPI is the minimal SQS interface required by Client.
// *sqs.Client from aws-sdk-go-v2 satisfies this interface.
type sqsAPI interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Client sends message bodies to a single fixed queue.
type Client struct {
	api      sqsAPI
	queueURL string
}

// New creates a Client that sends to queueURL.
func New(api sqsAPI, queueURL string) (*Client, error) {
	if api == nil {
		return nil, errors.New("queue: api must not be nil")
	}
	queueURL = strings.TrimSpace(queueURL)
	if queueURL == "" {
		return nil, errors.New("queue: queue url must not be empty")
	}
	return &Client{api: api, queueURL: queueURL}, nil
}

// SendMessage enqueues body and returns the SQS message id.
func (c *Client) SendMessage(ctx context.Context, body string) (string, error) {
	if body == "" {
		return "", errors.New("queue: body is required")
	}
	out, err := c.api.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(c.queueURL),
		MessageBody: aws.String(body),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"RequestType": {
				DataType:    aws.String("String"),
				StringValue: aws.String("DiningSuggestion"),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("queue: send message: %w", err)
	}
	if out == nil || out.MessageId == nil {
		return "", errors.New("queue: send message: missing message id")
	}
	return *out.MessageId, nil
}
