package handlers

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
)

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ISO 8601 with milliseconds, UTC.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

func (rt *Router) health() (events.APIGatewayV2HTTPResponse, error) {
	return jsonResp(http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: rt.d.Now().UTC().Format(timestampLayout),
	})
}

func (rt *Router) page(ctx context.Context, name string) func() (events.APIGatewayV2HTTPResponse, error) {
	return func() (events.APIGatewayV2HTTPResponse, error) {
		html, err := rt.d.Pages.Get(ctx, name)
		if err != nil {
			return events.APIGatewayV2HTTPResponse{}, err
		}
		return htmlResp(http.StatusOK, html)
	}
}
