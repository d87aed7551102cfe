package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"salelock/internal/billing"
	"salelock/internal/logging"

	"github.com/aws/aws-lambda-go/events"
)

type subscribeRequest struct {
	Plan string `json:"plan"`
}

// billingFailure maps billing errors to {success:false} bodies. Upstream
// detail stays in the log.
func billingFailure(ctx context.Context, op string, err error) error {
	var ae *apiError
	switch {
	case errors.As(err, &ae):
		ae.Billing = true
		return ae
	case errors.Is(err, billing.ErrInvalidPlan):
		return &apiError{Status: http.StatusBadRequest, Code: CodeInvalidPlan, Message: "Invalid plan", Billing: true}
	case errors.Is(err, billing.ErrNoActiveSubscription):
		return &apiError{Status: http.StatusBadRequest, Code: CodeNoActiveSubscription, Message: "No active subscription found", Billing: true}
	}
	logging.FromContext(ctx).Error().Err(err).Str("op", op).Msg("Billing request failed")
	return &apiError{Status: http.StatusInternalServerError, Code: CodeUpstreamFailure, Message: "Billing request failed", Billing: true}
}

func (rt *Router) billingStatus(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	sess, err := rt.session(ctx, req)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, billingFailure(ctx, "status", err)
	}
	st, err := rt.d.Billing.Status(ctx, sess)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, billingFailure(ctx, "status", err)
	}
	return jsonResp(http.StatusOK, map[string]any{
		"success":               true,
		"subscriptions":         st.Subscriptions,
		"hasActiveSubscription": st.HasActiveSubscription,
	})
}

func (rt *Router) billingSubscribe(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	sess, err := rt.session(ctx, req)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, billingFailure(ctx, "subscribe", err)
	}

	// An unreadable body has no plan, which is an invalid plan.
	var in subscribeRequest
	if raw, err := body(req); err == nil {
		_ = json.Unmarshal(raw, &in)
	}

	url, err := rt.d.Billing.Subscribe(ctx, sess, in.Plan)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, billingFailure(ctx, "subscribe", err)
	}
	logging.FromContext(ctx).Info().Str("shop", sess.Shop).Str("plan", in.Plan).Msg("Subscription requested")
	return jsonResp(http.StatusOK, map[string]any{
		"success":         true,
		"confirmationUrl": url,
	})
}

func (rt *Router) billingCancel(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	sess, err := rt.session(ctx, req)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, billingFailure(ctx, "cancel", err)
	}
	res, err := rt.d.Billing.Cancel(ctx, sess)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, billingFailure(ctx, "cancel", err)
	}
	logging.FromContext(ctx).Info().Str("shop", sess.Shop).Msg("Subscription cancelled")
	return jsonResp(http.StatusOK, map[string]any{
		"success": true,
		"result":  res,
	})
}

const settingsMessage = "Sale Discount Lock is active! Configure settings in the Checkout Editor."

func (rt *Router) settings(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	sess, err := rt.session(ctx, req)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	return jsonResp(http.StatusOK, map[string]any{
		"success": true,
		"shop":    sess.Shop,
		"message": settingsMessage,
		"documentation": map[string]string{
			"setup":   "Add the Sale Discount Lock block to your checkout in the Checkout Editor.",
			"toggle":  "Turn on Sale Mode to remove discount codes at checkout. Gift cards still apply.",
			"message": "Set Sale Message to customize the banner shown to buyers.",
		},
	})
}
