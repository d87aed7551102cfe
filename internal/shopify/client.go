package shopify

import (
	"errors"
	"net/http"
	"strings"
)

var (
	// ErrUpstream marks failures talking to Shopify.
	ErrUpstream = errors.New("shopify upstream failure")
	// ErrInvalidHMAC is returned when a signed request does not verify.
	ErrInvalidHMAC = errors.New("invalid hmac")
)

// Client holds the app credentials and transport shared by the OAuth,
// GraphQL and webhook helpers. It is built once per process and passed
// explicitly to whoever needs it.
type Client struct {
	APIKey     string
	APISecret  string
	Scopes     string
	APIVersion string
	AppURL     string // public base URL of this backend, e.g. https://host

	HTTPClient *http.Client

	// AdminURL maps a shop domain to its admin base URL. Tests point it at
	// an httptest server; nil means https://<shop>.
	AdminURL func(shop string) string
}

func (c *Client) adminURL(shop string) string {
	if c.AdminURL != nil {
		return strings.TrimRight(c.AdminURL(shop), "/")
	}
	return "https://" + shop
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// AppAdminURL is where merchants land after install or billing approval.
func (c *Client) AppAdminURL(shop string) string {
	return "https://" + shop + "/admin/apps/" + c.APIKey
}

func IsValidShopDomain(shop string) bool {
	if !strings.HasSuffix(shop, ".myshopify.com") {
		return false
	}
	if strings.Contains(shop, "/") || strings.Contains(shop, " ") {
		return false
	}
	return len(shop) >= len("a.myshopify.com")
}

// NormalizeShop lowercases and trims a shop parameter.
func NormalizeShop(shop string) string {
	return strings.ToLower(strings.TrimSpace(shop))
}
