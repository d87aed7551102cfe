package app

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"testing"

	"salelock/internal/config"
	"salelock/internal/db/dbtest"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNeedsAWS(t *testing.T) {
	assert.False(t, NeedsAWS(config.Config{APIKey: "k", APISecret: "s"}))
	assert.True(t, NeedsAWS(config.Config{SessionsTable: "sessions"}))
	assert.True(t, NeedsAWS(config.Config{PagesBucket: "pages"}))
	assert.True(t, NeedsAWS(config.Config{APISecretParam: "/salelock/secret"}))
}

func TestNewRouterRejectsBadKey(t *testing.T) {
	_, err := NewRouter(config.Config{APIKey: "k", APISecret: "s", TokenEncKeyB64: "short"}, Clients{})
	assert.Error(t, err)
}

func TestNewRouterServesRequests(t *testing.T) {
	cfg := config.Config{
		APIKey:          "k",
		APISecret:       "s",
		Host:            "lock.example.com",
		SessionsTable:   "sessions",
		OAuthStateTable: "states",
		TokenEncKeyB64:  base64.StdEncoding.EncodeToString([]byte(strings.Repeat("x", 32))),
	}
	ddb := dbtest.New()
	rt, err := NewRouter(cfg, Clients{DDB: ddb})
	require.NoError(t, err)

	req := events.APIGatewayV2HTTPRequest{
		RawPath:               "/api/auth",
		QueryStringParameters: map[string]string{"shop": "demo.myshopify.com"},
	}
	req.RequestContext.HTTP.Method = http.MethodGet

	resp, err := rt.Handle(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Contains(t, resp.Headers["location"], "https://demo.myshopify.com/admin/oauth/authorize")
	assert.Contains(t, resp.Headers["location"], "redirect_uri=https%3A%2F%2Flock.example.com%2Fapi%2Fauth%2Fcallback")
	assert.Equal(t, 1, ddb.Len("states"))
}
