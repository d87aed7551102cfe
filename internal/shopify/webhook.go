package shopify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"salelock/internal/db"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Webhook topics this app subscribes to.
const (
	TopicCustomersDataRequest = "CUSTOMERS_DATA_REQUEST"
	TopicCustomersRedact      = "CUSTOMERS_REDACT"
	TopicShopRedact           = "SHOP_REDACT"
	TopicAppUninstalled       = "APP_UNINSTALLED"
)

// TopicFromHeader converts "customers/data_request" to CUSTOMERS_DATA_REQUEST.
func TopicFromHeader(h string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(h), "/", "_"))
}

// VerifyWebhookHMAC checks X-Shopify-Hmac-Sha256, the base64 HMAC-SHA256 of
// the raw body.
func (c *Client) VerifyWebhookHMAC(body []byte, headerB64 string) error {
	headerB64 = strings.TrimSpace(headerB64)
	if headerB64 == "" || c.APISecret == "" {
		return ErrInvalidHMAC
	}
	got, err := base64.StdEncoding.DecodeString(headerB64)
	if err != nil {
		return ErrInvalidHMAC
	}
	if !hmac.Equal(got, c.webhookMAC(body)) {
		return ErrInvalidHMAC
	}
	return nil
}

// SignWebhook returns the header value Shopify would send for body.
func (c *Client) SignWebhook(body []byte) string {
	return base64.StdEncoding.EncodeToString(c.webhookMAC(body))
}

func (c *Client) webhookMAC(body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(c.APISecret))
	_, _ = mac.Write(body)
	return mac.Sum(nil)
}

// WebhookDeduper records webhook ids so redelivered webhooks can be spotted.
type WebhookDeduper struct {
	DDB   db.Client
	Table string
	TTL   time.Duration
	Now   func() time.Time
}

// Claim returns (isDuplicate, error). An unconfigured table or a missing id
// never reports a duplicate.
func (d *WebhookDeduper) Claim(ctx context.Context, webhookID, shopDomain, topic string) (bool, error) {
	if d == nil || d.DDB == nil || strings.TrimSpace(d.Table) == "" {
		return false, nil
	}
	webhookID = strings.TrimSpace(webhookID)
	if webhookID == "" {
		return false, nil
	}

	now := time.Now().UTC()
	if d.Now != nil {
		now = d.Now().UTC()
	}
	ttl := d.TTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}

	_, err := d.DDB.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.Table),
		Item: map[string]types.AttributeValue{
			"PK":        &types.AttributeValueMemberS{Value: fmt.Sprintf("WH#%s", webhookID)},
			"Shop":      &types.AttributeValueMemberS{Value: shopDomain},
			"Topic":     &types.AttributeValueMemberS{Value: topic},
			"CreatedAt": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
			"ExpiresAt": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", now.Add(ttl).Unix())},
		},
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}
