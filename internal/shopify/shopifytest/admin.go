// Package shopifytest runs a fake Shopify admin (OAuth token endpoint and
// the billing GraphQL operations) on an httptest server.
package shopifytest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"salelock/internal/shopify"
)

type Call struct {
	Token     string
	Operation string
	Variables map[string]any
}

type Admin struct {
	Server *httptest.Server

	mu sync.Mutex

	// AccessToken is handed out by the token endpoint.
	AccessToken string
	// FailToken makes the token endpoint answer 400.
	FailToken bool
	// Subscriptions is returned by activeSubscriptions.
	Subscriptions []map[string]any
	// ConfirmationURL is returned by appSubscriptionCreate.
	ConfirmationURL string
	// UserErrors are attached to mutation responses.
	UserErrors []map[string]any
	// GraphQLStatus overrides the GraphQL HTTP status when non-zero.
	GraphQLStatus int

	Calls []Call
}

func NewAdmin() *Admin {
	a := &Admin{AccessToken: "shpat_test", ConfirmationURL: "https://demo.myshopify.com/admin/charges/1/confirm"}
	a.Server = httptest.NewServer(http.HandlerFunc(a.serve))
	return a
}

func (a *Admin) Close() { a.Server.Close() }

// Configure points c at the fake server.
func (a *Admin) Configure(c *shopify.Client) *shopify.Client {
	c.HTTPClient = a.Server.Client()
	c.AdminURL = func(string) string { return a.Server.URL }
	return c
}

// Update mutates the fake's canned responses under its lock.
func (a *Admin) Update(fn func(a *Admin)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn(a)
}

func (a *Admin) Recorded() []Call {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Call(nil), a.Calls...)
}

func (a *Admin) serve(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	if r.URL.Path == "/admin/oauth/access_token" {
		if a.FailToken {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"invalid_request"}`)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": a.AccessToken, "scope": "read_checkouts,write_checkouts"})
		return
	}

	if !strings.HasSuffix(r.URL.Path, "/graphql.json") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if a.GraphQLStatus != 0 {
		w.WriteHeader(a.GraphQLStatus)
		return
	}

	var body struct {
		Query     string         `json:"query"`
		Variables map[string]any `json:"variables"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	op := "activeSubscriptions"
	switch {
	case strings.Contains(body.Query, "appSubscriptionCreate"):
		op = "appSubscriptionCreate"
	case strings.Contains(body.Query, "appSubscriptionCancel"):
		op = "appSubscriptionCancel"
	}
	a.Calls = append(a.Calls, Call{Token: r.Header.Get("X-Shopify-Access-Token"), Operation: op, Variables: body.Variables})

	userErrors := a.UserErrors
	if userErrors == nil {
		userErrors = []map[string]any{}
	}

	var data map[string]any
	switch op {
	case "appSubscriptionCreate":
		data = map[string]any{"appSubscriptionCreate": map[string]any{
			"confirmationUrl": a.ConfirmationURL,
			"appSubscription": map[string]any{"id": "gid://shopify/AppSubscription/99", "status": "PENDING"},
			"userErrors":      userErrors,
		}}
	case "appSubscriptionCancel":
		data = map[string]any{"appSubscriptionCancel": map[string]any{
			"appSubscription": map[string]any{"id": body.Variables["id"], "status": "CANCELLED"},
			"userErrors":      userErrors,
		}}
	default:
		subs := a.Subscriptions
		if subs == nil {
			subs = []map[string]any{}
		}
		data = map[string]any{"currentAppInstallation": map[string]any{"activeSubscriptions": subs}}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}
