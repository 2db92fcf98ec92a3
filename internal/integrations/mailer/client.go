package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

const charset = "utf-8"

// sesAPI is the minimal SES interface required by Client.
type sesAPI interface {
	SendEmail(ctx context.Context, in *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// Client sends HTML email through Amazon SES.
type Client struct {
	api sesAPI
}

// New creates a new mailer Client.
func New(api sesAPI) (*Client, error) {
	if api == nil {
		return nil, errors.New("mailer: api must not be nil")
	}
	return &Client{api: api}, nil
}

// SendEmail delivers one HTML message and returns the SES message id.
func (c *Client) SendEmail(ctx context.Context, from, to, subject, htmlBody string) (string, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" || to == "" {
		return "", errors.New("mailer: sender and recipient are required")
	}
	out, err := c.api.SendEmail(ctx, &ses.SendEmailInput{
		Source:      aws.String(from),
		Destination: &types.Destination{ToAddresses: []string{to}},
		Message: &types.Message{
			Subject: &types.Content{Charset: aws.String(charset), Data: aws.String(subject)},
			Body: &types.Body{
				Html: &types.Content{Charset: aws.String(charset), Data: aws.String(htmlBody)},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("mailer: send email: %w", err)
	}
	if out == nil || out.MessageId == nil {
		return "", errors.New("mailer: send email: missing message id")
	}
	return *out.MessageId, nil
}
