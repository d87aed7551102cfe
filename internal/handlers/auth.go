package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"salelock/internal/logging"
	"salelock/internal/shopify"

	"github.com/aws/aws-lambda-go/events"
)

func (rt *Router) authBegin(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	raw := req.QueryStringParameters["shop"]
	if strings.TrimSpace(raw) == "" {
		return events.APIGatewayV2HTTPResponse{}, &apiError{Status: http.StatusBadRequest, Code: CodeMissingParameter, Message: "Missing shop parameter"}
	}
	shop := shopify.NormalizeShop(raw)
	if !shopify.IsValidShopDomain(shop) {
		return events.APIGatewayV2HTTPResponse{}, &apiError{Status: http.StatusBadRequest, Code: CodeInvalidParameter, Message: "invalid shop (expected like your-store.myshopify.com)"}
	}

	state, err := shopify.RandomState(24)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, fmt.Errorf("generate state: %w", err)
	}
	if err := rt.d.States.Put(ctx, state, shop); err != nil {
		logging.FromContext(ctx).Error().Err(err).Str("shop", shop).Msg("OAuth begin failed")
		return events.APIGatewayV2HTTPResponse{}, oauthFailed()
	}

	logging.FromContext(ctx).Info().Str("shop", shop).Msg("OAuth begin")
	return redirect(rt.d.Shopify.AuthorizeURL(shop, state))
}

func oauthFailed() *apiError {
	return &apiError{Status: http.StatusInternalServerError, Code: CodeUpstreamAuthFailure, Message: "OAuth failed"}
}

// authCallback completes the install. Every failure answers 500 "OAuth
// failed"; the cause only goes to the log.
func (rt *Router) authCallback(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	log := logging.FromContext(ctx)

	params, err := callbackParams(req)
	if err != nil {
		log.Error().Err(err).Msg("OAuth callback error")
		return events.APIGatewayV2HTTPResponse{}, oauthFailed()
	}

	shop := shopify.NormalizeShop(params["shop"])
	code := strings.TrimSpace(params["code"])
	fail := func(stage string, err error) (events.APIGatewayV2HTTPResponse, error) {
		log.Error().Err(err).Str("shop", shop).Str("stage", stage).Msg("OAuth callback error")
		return events.APIGatewayV2HTTPResponse{}, oauthFailed()
	}

	if !shopify.IsValidShopDomain(shop) || code == "" {
		return fail("params", errors.New("missing required oauth params"))
	}
	if err := rt.d.Shopify.VerifyQueryHMAC(params); err != nil {
		return fail("hmac", err)
	}
	if err := rt.d.States.Consume(ctx, params["state"], shop); err != nil {
		return fail("state", err)
	}

	tok, err := rt.d.Shopify.ExchangeCode(ctx, shop, code)
	if err != nil {
		return fail("exchange", err)
	}
	if err := rt.d.Sessions.Save(ctx, shop, *tok); err != nil {
		return fail("session", err)
	}

	if err := rt.d.Notifier.Installed(ctx, shop, tok.Scope); err != nil {
		log.Warn().Err(err).Str("shop", shop).Msg("Install notification failed")
	}

	log.Info().Str("shop", shop).Str("scope", tok.Scope).Msg("App installed")
	return redirect(rt.d.Shopify.AppAdminURL(shop))
}

// callbackParams prefers the raw query string so the HMAC is computed over
// the exact values Shopify signed.
func callbackParams(req events.APIGatewayV2HTTPRequest) (map[string]string, error) {
	if req.RawQueryString != "" {
		return shopify.ParseQuery(req.RawQueryString)
	}
	out := make(map[string]string, len(req.QueryStringParameters))
	for k, v := range req.QueryStringParameters {
		out[k] = v
	}
	return out, nil
}

// session resolves the offline session of the shop named by the request's
// App Bridge session token.
func (rt *Router) session(ctx context.Context, req events.APIGatewayV2HTTPRequest) (*shopify.Session, error) {
	authz := header(req, "Authorization")
	token, ok := strings.CutPrefix(authz, "Bearer ")
	if !ok {
		return nil, unauthorized("")
	}

	shop, err := rt.d.Shopify.VerifySessionToken(token)
	if err != nil {
		logging.FromContext(ctx).Info().Err(err).Msg("Session token rejected")
		return nil, unauthorized("")
	}

	sess, err := rt.d.Sessions.Load(ctx, shop)
	if err != nil {
		if errors.Is(err, shopify.ErrNoSession) {
			return nil, unauthorized(shop)
		}
		return nil, err
	}
	return sess, nil
}

// unauthorized asks App Bridge to re-run OAuth when the shop is known.
func unauthorized(shop string) *apiError {
	e := &apiError{Status: http.StatusUnauthorized, Code: CodeUnauthorized, Message: "Unauthorized"}
	if shop != "" {
		e.Headers = map[string]string{
			"x-shopify-api-request-failure-reauthorize":     "1",
			"x-shopify-api-request-failure-reauthorize-url": "/api/auth?shop=" + url.QueryEscape(shop),
		}
	}
	return e
}
