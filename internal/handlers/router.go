package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"salelock/internal/billing"
	"salelock/internal/logging"
	"salelock/internal/notify"
	"salelock/internal/pages"
	"salelock/internal/shopify"

	"github.com/aws/aws-lambda-go/events"
)

// Deps are the collaborators the router dispatches to. They are built once
// per process (see cmd/salelock) and shared by every request.
type Deps struct {
	Shopify  *shopify.Client
	Sessions *shopify.SessionStore
	States   *shopify.StateStore
	Dedupe   *shopify.WebhookDeduper
	Billing  *billing.Service
	Notifier *notify.InstallNotifier
	Pages    *pages.Source

	VerifyWebhooks bool
	Now            func() time.Time
}

// Router dispatches API Gateway HTTP API requests on their exact path.
type Router struct {
	d Deps
}

func NewRouter(d Deps) *Router {
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Router{d: d}
}

// Handle is the Lambda entry point. It never returns an error to the
// runtime; failures become 500 responses.
func (rt *Router) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (resp events.APIGatewayV2HTTPResponse, _ error) {
	ctx, _ = logging.WithRequestID(ctx, req.RequestContext.RequestID)
	log := logging.FromContext(ctx)

	defer func() {
		if p := recover(); p != nil {
			log.Error().Str("path", req.RawPath).Interface("panic", p).Msg("Handler panic")
			resp, _ = internalError()
		}
	}()

	resp, err := rt.dispatch(ctx, req)
	if err != nil {
		var ae *apiError
		if errors.As(err, &ae) {
			log.Info().Str("path", req.RawPath).Str("code", ae.Code).Int("status", ae.Status).Msg("Request rejected")
			resp, _ = ae.response()
			return resp, nil
		}
		log.Error().Err(err).Str("path", req.RawPath).Msg("Handler error")
		resp, _ = internalError()
	}
	return resp, nil
}

func internalError() (events.APIGatewayV2HTTPResponse, error) {
	return jsonResp(http.StatusInternalServerError, map[string]any{
		"error":   "Internal server error",
		"message": "The request could not be completed.",
	})
}

func (rt *Router) dispatch(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	// Route by path + method
	switch req.RawPath {
	case "/api/health", "/health":
		return rt.only(req, rt.health, http.MethodGet, http.MethodHead)
	case "/privacy":
		return rt.only(req, rt.page(ctx, pages.Privacy), http.MethodGet, http.MethodHead)
	case "/terms":
		return rt.only(req, rt.page(ctx, pages.Terms), http.MethodGet, http.MethodHead)
	case "/", "", "/api", "/api/index":
		return rt.only(req, rt.page(ctx, pages.Home), http.MethodGet, http.MethodHead)
	case "/api/auth":
		return rt.only(req, func() (events.APIGatewayV2HTTPResponse, error) { return rt.authBegin(ctx, req) }, http.MethodGet)
	case shopify.CallbackPath:
		return rt.only(req, func() (events.APIGatewayV2HTTPResponse, error) { return rt.authCallback(ctx, req) }, http.MethodGet)
	case "/api/webhooks/customers/data_request",
		"/api/webhooks/customers/redact",
		"/api/webhooks/shop/redact",
		"/api/webhooks/app/uninstalled":
		return rt.only(req, func() (events.APIGatewayV2HTTPResponse, error) { return rt.webhook(ctx, req) }, http.MethodPost)
	case "/api/billing/status":
		return rt.only(req, func() (events.APIGatewayV2HTTPResponse, error) { return rt.billingStatus(ctx, req) }, http.MethodGet)
	case "/api/billing/subscribe":
		return rt.only(req, func() (events.APIGatewayV2HTTPResponse, error) { return rt.billingSubscribe(ctx, req) }, http.MethodPost)
	case "/api/billing/cancel":
		return rt.only(req, func() (events.APIGatewayV2HTTPResponse, error) { return rt.billingCancel(ctx, req) }, http.MethodPost)
	case "/api/settings":
		return rt.only(req, func() (events.APIGatewayV2HTTPResponse, error) { return rt.settings(ctx, req) }, http.MethodGet)
	default:
		return errResp(http.StatusNotFound, "Not found")
	}
}

func (rt *Router) only(req events.APIGatewayV2HTTPRequest, h func() (events.APIGatewayV2HTTPResponse, error), methods ...string) (events.APIGatewayV2HTTPResponse, error) {
	m := method(req)
	for _, allowed := range methods {
		if m == allowed {
			return h()
		}
	}
	return errResp(http.StatusMethodNotAllowed, fmt.Sprintf("method %s not allowed", m))
}
