package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"salelock/internal/logging"
	"salelock/internal/shopify"

	"github.com/aws/aws-lambda-go/events"
)

var webhookTopics = map[string]string{
	"/api/webhooks/customers/data_request": shopify.TopicCustomersDataRequest,
	"/api/webhooks/customers/redact":       shopify.TopicCustomersRedact,
	"/api/webhooks/shop/redact":            shopify.TopicShopRedact,
	"/api/webhooks/app/uninstalled":        shopify.TopicAppUninstalled,
}

// webhookPayload holds the few fields we log. GDPR payloads carry more.
type webhookPayload struct {
	ShopID     json.Number `json:"shop_id"`
	ShopDomain string      `json:"shop_domain"`
	Customer   *struct {
		ID json.Number `json:"id"`
	} `json:"customer"`
}

// webhook acknowledges the GDPR and uninstall topics. The app keeps no
// customer data, so beyond logging the only side effect is dropping the
// session on uninstall.
func (rt *Router) webhook(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	topic := webhookTopics[req.RawPath]
	shop := shopify.NormalizeShop(header(req, "X-Shopify-Shop-Domain"))
	log := logging.FromContext(ctx).With().Str("topic", topic).Str("shop", shop).Logger()

	raw, err := body(req)
	if err != nil {
		log.Warn().Err(err).Msg("Webhook body not decodable")
		raw = nil
	}

	if rt.d.VerifyWebhooks {
		if err := rt.d.Shopify.VerifyWebhookHMAC(raw, header(req, "X-Shopify-Hmac-Sha256")); err != nil {
			return events.APIGatewayV2HTTPResponse{}, &apiError{Status: http.StatusUnauthorized, Code: CodeInvalidWebhookSignature, Message: "Invalid webhook signature"}
		}
	}

	if h := header(req, "X-Shopify-Topic"); h != "" && shopify.TopicFromHeader(h) != topic {
		log.Warn().Str("header_topic", h).Msg("Webhook topic header does not match path")
	}

	dup, err := rt.d.Dedupe.Claim(ctx, header(req, "X-Shopify-Webhook-Id"), shop, topic)
	if err != nil {
		log.Warn().Err(err).Msg("Webhook dedupe failed")
	}
	if dup {
		log.Info().Str("webhook_id", header(req, "X-Shopify-Webhook-Id")).Msg("Duplicate webhook")
		return ack()
	}

	var p webhookPayload
	if len(strings.TrimSpace(string(raw))) > 0 {
		dec := json.NewDecoder(strings.NewReader(string(raw)))
		dec.UseNumber()
		if err := dec.Decode(&p); err != nil {
			log.Warn().Err(err).Msg("Webhook payload is not JSON")
		}
	}
	if shop == "" {
		shop = shopify.NormalizeShop(p.ShopDomain)
	}

	switch topic {
	case shopify.TopicCustomersDataRequest:
		log.Info().Msg("Customer data request received")
	case shopify.TopicCustomersRedact:
		ev := log.Info()
		if p.Customer != nil {
			ev = ev.Str("customer_id", p.Customer.ID.String())
		}
		ev.Msg("Customer redact request received")
	case shopify.TopicShopRedact:
		log.Info().Str("shop_id", p.ShopID.String()).Msg("Shop redact request received")
	case shopify.TopicAppUninstalled:
		log.Info().Msg("App uninstalled")
		if rt.d.Sessions != nil && rt.d.Sessions.Table != "" && shop != "" {
			if err := rt.d.Sessions.Delete(ctx, shop); err != nil {
				log.Warn().Err(err).Msg("Session delete failed")
			}
		}
	}
	return ack()
}

func ack() (events.APIGatewayV2HTTPResponse, error) {
	return jsonResp(http.StatusOK, map[string]any{"success": true})
}
