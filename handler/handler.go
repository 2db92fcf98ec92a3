package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
)

const correlationHeader = "X-Correlation-Id"

var newCorrelationID = func() string { return uuid.NewString() }

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// correlationID returns the caller's X-Correlation-Id (header names are
// matched case-insensitively) or a fresh one.
func correlationID(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, correlationHeader) && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return newCorrelationID()
}

func responseHeaders(corrID string) map[string]string {
	return map[string]string{
		"Content-Type":                 "application/json",
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Headers": "Content-Type," + correlationHeader,
		"Access-Control-Allow-Methods": "OPTIONS,POST",
		correlationHeader:              corrID,
	}
}

func jsonResponse(status int, corrID string, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"INTERNAL_ERROR"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    responseHeaders(corrID),
		Body:       string(body),
	}
}

func errorJSON(status int, corrID, code, message string) events.APIGatewayProxyResponse {
	return jsonResponse(status, corrID, errorResponse{Error: code, Message: message})
}
