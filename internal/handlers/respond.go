package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// Error codes returned in the "code" field of 4xx/5xx bodies.
const (
	CodeMissingParameter        = "MissingParameter"
	CodeInvalidParameter        = "InvalidParameter"
	CodeInvalidPlan             = "InvalidPlan"
	CodeNoActiveSubscription    = "NoActiveSubscription"
	CodeUpstreamAuthFailure     = "UpstreamAuthFailure"
	CodeUpstreamFailure         = "UpstreamFailure"
	CodeUnauthorized            = "Unauthorized"
	CodeInvalidWebhookSignature = "InvalidWebhookSignature"
)

// apiError is a failure that maps onto a specific status and body.
type apiError struct {
	Status  int
	Code    string
	Message string
	// Billing routes answer with {success:false,...}.
	Billing bool
	Headers map[string]string
}

func (e *apiError) Error() string { return e.Code + ": " + e.Message }

func (e *apiError) response() (events.APIGatewayV2HTTPResponse, error) {
	body := map[string]any{
		"error": e.Message,
		"code":  e.Code,
	}
	if e.Billing {
		body["success"] = false
	}
	resp, err := jsonResp(e.Status, body)
	for k, v := range e.Headers {
		resp.Headers[k] = v
	}
	return resp, err
}

func jsonResp(status int, v any) (events.APIGatewayV2HTTPResponse, error) {
	b, _ := json.Marshal(v)
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers: map[string]string{
			"content-type":                "application/json",
			"access-control-allow-origin": "*",
		},
		Body: string(b),
	}, nil
}

func errResp(status int, msg string) (events.APIGatewayV2HTTPResponse, error) {
	return jsonResp(status, map[string]any{
		"error": msg,
	})
}

func htmlResp(status int, html string) (events.APIGatewayV2HTTPResponse, error) {
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers: map[string]string{
			"content-type": "text/html; charset=utf-8",
		},
		Body: html,
	}, nil
}

func redirect(location string) (events.APIGatewayV2HTTPResponse, error) {
	return events.APIGatewayV2HTTPResponse{
		StatusCode: http.StatusFound,
		Headers: map[string]string{
			"location": location,
		},
	}, nil
}

func method(req events.APIGatewayV2HTTPRequest) string {
	return strings.ToUpper(req.RequestContext.HTTP.Method)
}

// header looks a header up case-insensitively; API Gateway lowercases names
// but local callers may not.
func header(req events.APIGatewayV2HTTPRequest, name string) string {
	if v, ok := req.Headers[strings.ToLower(name)]; ok {
		return v
	}
	for k, v := range req.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func body(req events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if req.IsBase64Encoded {
		return base64.StdEncoding.DecodeString(req.Body)
	}
	return []byte(req.Body), nil
}
