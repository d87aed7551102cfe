package shopify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"salelock/internal/db"
	"salelock/internal/db/dbtest"
	"salelock/internal/security"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(srv *httptest.Server) *Client {
	c := &Client{
		APIKey:     "api-key",
		APISecret:  "api-secret",
		Scopes:     "read_checkouts,write_checkouts",
		APIVersion: "2024-10",
		AppURL:     "https://lock.example.com",
	}
	if srv != nil {
		c.HTTPClient = srv.Client()
		c.AdminURL = func(string) string { return srv.URL }
	}
	return c
}

func TestIsValidShopDomain(t *testing.T) {
	assert.True(t, IsValidShopDomain("demo.myshopify.com"))
	assert.False(t, IsValidShopDomain("demo.example.com"))
	assert.False(t, IsValidShopDomain("evil.com/x.myshopify.com"))
	assert.False(t, IsValidShopDomain(".myshopify.com"))
	assert.Equal(t, "demo.myshopify.com", NormalizeShop("  Demo.MyShopify.com "))
}

func TestAuthorizeURL(t *testing.T) {
	c := testClient(nil)
	raw := c.AuthorizeURL("demo.myshopify.com", "st4te")

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "demo.myshopify.com", u.Host)
	assert.Equal(t, "/admin/oauth/authorize", u.Path)
	q := u.Query()
	assert.Equal(t, "api-key", q.Get("client_id"))
	assert.Equal(t, "read_checkouts,write_checkouts", q.Get("scope"))
	assert.Equal(t, "https://lock.example.com/api/auth/callback", q.Get("redirect_uri"))
	assert.Equal(t, "st4te", q.Get("state"))
}

func TestExchangeCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/oauth/access_token", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "api-key", r.PostForm.Get("client_id"))
		assert.Equal(t, "api-secret", r.PostForm.Get("client_secret"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"shpat_1","scope":"write_checkouts"}`)
	}))
	defer srv.Close()

	tok, err := testClient(srv).ExchangeCode(context.Background(), "demo.myshopify.com", "the-code")
	require.NoError(t, err)
	assert.Equal(t, "shpat_1", tok.AccessToken)
	assert.Equal(t, "write_checkouts", tok.Scope)
}

func TestExchangeCodeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_request"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := testClient(srv).ExchangeCode(context.Background(), "demo.myshopify.com", "bad")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestVerifyQueryHMAC(t *testing.T) {
	c := testClient(nil)
	params := map[string]string{"code": "abc", "shop": "demo.myshopify.com", "state": "s", "timestamp": "1"}
	params["hmac"] = c.SignQuery(params)
	require.NoError(t, c.VerifyQueryHMAC(params))

	params["code"] = "tampered"
	assert.ErrorIs(t, c.VerifyQueryHMAC(params), ErrInvalidHMAC)

	delete(params, "hmac")
	assert.ErrorIs(t, c.VerifyQueryHMAC(params), ErrInvalidHMAC)
}

func TestParseQuery(t *testing.T) {
	m, err := ParseQuery("shop=demo.myshopify.com&code=1&code=2")
	require.NoError(t, err)
	assert.Equal(t, "demo.myshopify.com", m["shop"])
	assert.Equal(t, "1", m["code"])
}

func TestRandomState(t *testing.T) {
	a, err := RandomState(24)
	require.NoError(t, err)
	b, err := RandomState(24)
	require.NoError(t, err)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)

	_, err = RandomState(0)
	assert.Error(t, err)
}

func TestPostGraphQL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/api/2024-10/graphql.json", r.URL.Path)
		assert.Equal(t, "shpat_1", r.Header.Get("X-Shopify-Access-Token"))
		var body struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body.Query, "shop")
		assert.Equal(t, "x", body.Variables["v"])
		_, _ = io.WriteString(w, `{"data":{"shop":{"name":"Demo"}}}`)
	}))
	defer srv.Close()

	type shopData struct {
		Shop struct {
			Name string `json:"name"`
		} `json:"shop"`
	}
	res, err := PostGraphQL[shopData](context.Background(), testClient(srv), "demo.myshopify.com", "shpat_1", `{ shop { name } }`, map[string]any{"v": "x"})
	require.NoError(t, err)
	assert.Equal(t, "Demo", res.Data.Shop.Name)
}

func TestPostGraphQLErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.Header.Get("X-Shopify-Access-Token"), "bad") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `{"errors":[{"message":"Throttled","extensions":{"code":"THROTTLED"}}]}`)
	}))
	defer srv.Close()

	_, err := PostGraphQL[map[string]any](context.Background(), testClient(srv), "demo.myshopify.com", "bad", "{}", nil)
	assert.ErrorIs(t, err, ErrUpstream)

	_, err = PostGraphQL[map[string]any](context.Background(), testClient(srv), "demo.myshopify.com", "ok", "{}", nil)
	require.ErrorIs(t, err, ErrUpstream)
	assert.Contains(t, err.Error(), "Throttled (THROTTLED)")
}

func TestWebhookHMAC(t *testing.T) {
	c := testClient(nil)
	body := []byte(`{"shop_id":1}`)
	sig := c.SignWebhook(body)

	require.NoError(t, c.VerifyWebhookHMAC(body, sig))
	assert.ErrorIs(t, c.VerifyWebhookHMAC([]byte(`{}`), sig), ErrInvalidHMAC)
	assert.ErrorIs(t, c.VerifyWebhookHMAC(body, ""), ErrInvalidHMAC)
	assert.ErrorIs(t, c.VerifyWebhookHMAC(body, "%%%"), ErrInvalidHMAC)
	assert.ErrorIs(t, c.VerifyWebhookHMAC(body, base64.StdEncoding.EncodeToString([]byte("x"))), ErrInvalidHMAC)
}

func TestTopicFromHeader(t *testing.T) {
	assert.Equal(t, TopicCustomersDataRequest, TopicFromHeader("customers/data_request"))
	assert.Equal(t, TopicAppUninstalled, TopicFromHeader(" app/uninstalled "))
}

func TestWebhookDeduper(t *testing.T) {
	fake := dbtest.New()
	d := &WebhookDeduper{DDB: fake, Table: "dedupe"}
	ctx := context.Background()

	dup, err := d.Claim(ctx, "wh-1", "demo.myshopify.com", TopicShopRedact)
	require.NoError(t, err)
	assert.False(t, dup)

	dup, err = d.Claim(ctx, "wh-1", "demo.myshopify.com", TopicShopRedact)
	require.NoError(t, err)
	assert.True(t, dup)

	dup, err = d.Claim(ctx, "", "demo.myshopify.com", TopicShopRedact)
	require.NoError(t, err)
	assert.False(t, dup)

	var unconfigured *WebhookDeduper
	dup, err = unconfigured.Claim(ctx, "wh-1", "demo.myshopify.com", TopicShopRedact)
	require.NoError(t, err)
	assert.False(t, dup)
}

func newCipher(t *testing.T) *security.TokenCipher {
	t.Helper()
	c, err := security.NewTokenCipher(base64.StdEncoding.EncodeToString([]byte(strings.Repeat("z", 32))))
	require.NoError(t, err)
	return c
}

func TestSessionStoreRoundTrip(t *testing.T) {
	fake := dbtest.New()
	s := &SessionStore{DDB: fake, Table: "sessions", Cipher: newCipher(t)}
	ctx := context.Background()

	_, err := s.Load(ctx, "demo.myshopify.com")
	assert.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, s.Save(ctx, "demo.myshopify.com", Token{AccessToken: "shpat_1", Scope: "write_checkouts"}))
	item := fake.Item("sessions", "SHOP#demo.myshopify.com")
	require.NotNil(t, item)
	assert.NotContains(t, db.AttrS(item["AccessTokenEnc"]), "shpat_1")

	sess, err := s.Load(ctx, "demo.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, "shpat_1", sess.AccessToken)
	assert.Equal(t, "write_checkouts", sess.Scope)

	require.NoError(t, s.Delete(ctx, "demo.myshopify.com"))
	_, err = s.Load(ctx, "demo.myshopify.com")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessionStoreUnconfigured(t *testing.T) {
	var s *SessionStore
	assert.Error(t, s.Save(context.Background(), "demo.myshopify.com", Token{}))
	_, err := (&SessionStore{DDB: dbtest.New(), Table: "t"}).Load(context.Background(), "x")
	assert.Error(t, err)
}

func TestStateStore(t *testing.T) {
	fake := dbtest.New()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := &StateStore{DDB: fake, Table: "state", Now: func() time.Time { return now }}
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "abc", "demo.myshopify.com"))
	require.NoError(t, s.Consume(ctx, "abc", "demo.myshopify.com"))
	assert.ErrorIs(t, s.Consume(ctx, "abc", "demo.myshopify.com"), ErrInvalidState, "state is single use")

	require.NoError(t, s.Put(ctx, "def", "demo.myshopify.com"))
	assert.ErrorIs(t, s.Consume(ctx, "def", "other.myshopify.com"), ErrInvalidState)

	require.NoError(t, s.Put(ctx, "old", "demo.myshopify.com"))
	now = now.Add(11 * time.Minute)
	assert.ErrorIs(t, s.Consume(ctx, "old", "demo.myshopify.com"), ErrInvalidState)
}

func TestStateStoreDisabled(t *testing.T) {
	s := &StateStore{}
	require.NoError(t, s.Put(context.Background(), "abc", "demo.myshopify.com"))
	require.NoError(t, s.Consume(context.Background(), "anything", "demo.myshopify.com"))
}

func TestSessionToken(t *testing.T) {
	c := testClient(nil)
	tok, err := c.IssueSessionToken("demo.myshopify.com", time.Minute)
	require.NoError(t, err)

	shop, err := c.VerifySessionToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "demo.myshopify.com", shop)

	other := testClient(nil)
	other.APISecret = "different"
	_, err = other.VerifySessionToken(tok)
	assert.ErrorIs(t, err, ErrInvalidSessionToken)

	wrongAud := testClient(nil)
	wrongAud.APIKey = "someone-else"
	_, err = wrongAud.VerifySessionToken(tok)
	assert.ErrorIs(t, err, ErrInvalidSessionToken)

	expired, err := c.IssueSessionToken("demo.myshopify.com", -time.Minute)
	require.NoError(t, err)
	_, err = c.VerifySessionToken(expired)
	assert.ErrorIs(t, err, ErrInvalidSessionToken)

	_, err = c.VerifySessionToken("")
	assert.ErrorIs(t, err, ErrInvalidSessionToken)
}
