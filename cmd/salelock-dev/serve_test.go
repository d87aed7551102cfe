package main

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapterTranslatesRequest(t *testing.T) {
	var got events.APIGatewayV2HTTPRequest
	h := func(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		got = req
		return events.APIGatewayV2HTTPResponse{
			StatusCode: http.StatusCreated,
			Headers:    map[string]string{"content-type": "application/json"},
			Body:       `{"ok":true}`,
		}, nil
	}
	srv := httptest.NewServer(Adapter(h))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/webhooks/shop/redact?shop=demo.myshopify.com", strings.NewReader(`{"shop_id":1}`))
	require.NoError(t, err)
	req.Header.Set("X-Shopify-Topic", "shop/redact")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, `{"ok":true}`, string(body))

	assert.Equal(t, "/api/webhooks/shop/redact", got.RawPath)
	assert.Equal(t, "shop=demo.myshopify.com", got.RawQueryString)
	assert.Equal(t, "demo.myshopify.com", got.QueryStringParameters["shop"])
	assert.Equal(t, "shop/redact", got.Headers["x-shopify-topic"])
	assert.Equal(t, http.MethodPost, got.RequestContext.HTTP.Method)
	assert.Equal(t, `{"shop_id":1}`, got.Body)
	assert.False(t, got.IsBase64Encoded)
	assert.NotEmpty(t, got.RequestContext.RequestID)
}

func TestAdapterEncodesBinaryBodies(t *testing.T) {
	var got events.APIGatewayV2HTTPRequest
	h := func(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		got = req
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusOK}, nil
	}
	rec := httptest.NewRecorder()
	Adapter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("\xff\xfe")))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, got.IsBase64Encoded)
	raw, err := base64.StdEncoding.DecodeString(got.Body)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xfe}, raw)
}

func TestAdapterHandlerError(t *testing.T) {
	h := func(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		return events.APIGatewayV2HTTPResponse{}, assert.AnError
	}
	rec := httptest.NewRecorder()
	Adapter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h := func(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusOK}, nil
	}
	assert.NoError(t, serve(ctx, "127.0.0.1:0", h))
}
