package shopify

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/oauth2"
)

const CallbackPath = "/api/auth/callback"

// Token is the result of an offline access-token exchange.
type Token struct {
	AccessToken string
	Scope       string
}

func (c *Client) oauthConfig(shop string) *oauth2.Config {
	base := c.adminURL(shop)
	return &oauth2.Config{
		ClientID:     c.APIKey,
		ClientSecret: c.APISecret,
		// Shopify wants a comma separated scope list, so it is passed as a
		// single element.
		Scopes: []string{c.Scopes},
		Endpoint: oauth2.Endpoint{
			AuthURL:   base + "/admin/oauth/authorize",
			TokenURL:  base + "/admin/oauth/access_token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: strings.TrimRight(c.AppURL, "/") + CallbackPath,
	}
}

// AuthorizeURL is the install/consent URL the merchant is redirected to.
func (c *Client) AuthorizeURL(shop, state string) string {
	return c.oauthConfig(shop).AuthCodeURL(state)
}

// ExchangeCode trades the callback code for an offline access token.
func (c *Client) ExchangeCode(ctx context.Context, shop, code string) (*Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient())
	tok, err := c.oauthConfig(shop).Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: token exchange: %v", ErrUpstream, err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", ErrUpstream)
	}
	scope, _ := tok.Extra("scope").(string)
	return &Token{AccessToken: tok.AccessToken, Scope: scope}, nil
}

// VerifyQueryHMAC checks the hmac parameter Shopify adds to OAuth redirects.
func (c *Client) VerifyQueryHMAC(params map[string]string) error {
	provided := strings.TrimSpace(params["hmac"])
	if provided == "" || c.APISecret == "" {
		return ErrInvalidHMAC
	}
	expected := c.SignQuery(params)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(provided))) {
		return ErrInvalidHMAC
	}
	return nil
}

// SignQuery computes the hex hmac over every parameter except hmac and
// signature, sorted by key.
func (c *Client) SignQuery(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "hmac" || k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, params[k]))
	}

	mac := hmac.New(sha256.New, []byte(c.APISecret))
	_, _ = mac.Write([]byte(strings.Join(parts, "&")))
	return hex.EncodeToString(mac.Sum(nil))
}

// ParseQuery flattens a raw query string into single values.
func ParseQuery(raw string) (map[string]string, error) {
	vals, err := url.ParseQuery(raw)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(vals))
	for k, v := range vals {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out, nil
}

func RandomState(nBytes int) (string, error) {
	if nBytes <= 0 {
		return "", errors.New("state length must be positive")
	}
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
