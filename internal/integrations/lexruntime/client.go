package lexruntime

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lexruntimev2"
)

const defaultLocaleID = "en_US"

// lexAPI is the minimal Lex V2 runtime interface required by Client.
// *lexruntimev2.Client satisfies this interface.
type lexAPI interface {
	RecognizeText(ctx context.Context, in *lexruntimev2.RecognizeTextInput, optFns ...func(*lexruntimev2.Options)) (*lexruntimev2.RecognizeTextOutput, error)
}

// Reply is the bot's answer to one user utterance.
type Reply struct {
	Messages    []string
	IntentName  string
	IntentState string
}

// Client forwards user text to a single bot alias.
type Client struct {
	api        lexAPI
	botID      string
	botAliasID string
	localeID   string
}

// New creates a Client bound to one bot alias. An empty localeID means en_US.
func New(api lexAPI, botID, botAliasID, localeID string) (*Client, error) {
	if api == nil {
		return nil, errors.New("lexruntime: api must not be nil")
	}
	botID, botAliasID = strings.TrimSpace(botID), strings.TrimSpace(botAliasID)
	if botID == "" || botAliasID == "" {
		return nil, errors.New("lexruntime: bot id and alias id are required")
	}
	localeID = strings.TrimSpace(localeID)
	if localeID == "" {
		localeID = defaultLocaleID
	}
	return &Client{api: api, botID: botID, botAliasID: botAliasID, localeID: localeID}, nil
}

// RecognizeText sends text within sessionID and returns the plain-text
// messages the bot produced. Non-text messages (cards) are skipped.
func (c *Client) RecognizeText(ctx context.Context, sessionID, text string) (Reply, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return Reply{}, errors.New("lexruntime: session id is required")
	}
	if strings.TrimSpace(text) == "" {
		return Reply{}, errors.New("lexruntime: text is required")
	}

	out, err := c.api.RecognizeText(ctx, &lexruntimev2.RecognizeTextInput{
		BotId:      aws.String(c.botID),
		BotAliasId: aws.String(c.botAliasID),
		LocaleId:   aws.String(c.localeID),
		SessionId:  aws.String(sessionID),
		Text:       aws.String(text),
	})
	if err != nil {
		return Reply{}, fmt.Errorf("lexruntime: recognize text: %w", err)
	}
	if out == nil {
		return Reply{}, errors.New("lexruntime: recognize text: empty response")
	}

	var reply Reply
	for _, m := range out.Messages {
		if m.Content == nil || *m.Content == "" {
			continue
		}
		reply.Messages = append(reply.Messages, *m.Content)
	}
	if out.SessionState != nil && out.SessionState.Intent != nil {
		reply.IntentName = aws.ToString(out.SessionState.Intent.Name)
		reply.IntentState = string(out.SessionState.Intent.State)
	}
	return reply, nil
}
