package billing

import (
	"context"
	"net/http"
	"testing"

	"salelock/internal/shopify"
	"salelock/internal/shopify/shopifytest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*Service, *shopifytest.Admin) {
	t.Helper()
	admin := shopifytest.NewAdmin()
	t.Cleanup(admin.Close)
	client := admin.Configure(&shopify.Client{APIKey: "api-key", APISecret: "secret", APIVersion: "2024-10"})
	return &Service{Client: client, Plans: DefaultPlans(), Test: true}, admin
}

var sess = &shopify.Session{Shop: "demo.myshopify.com", AccessToken: "shpat_test"}

func TestDefaultPlans(t *testing.T) {
	plans := DefaultPlans()
	assert.Equal(t, []string{"Basic Plan", "Pro Plan"}, plans.Names())

	basic, ok := plans.Lookup("Basic Plan")
	require.True(t, ok)
	assert.Equal(t, 2.99, basic.Amount)
	assert.Equal(t, 14, basic.TrialDays)
	assert.Equal(t, IntervalEvery30Days, basic.Interval)

	pro, ok := plans.Lookup("Pro Plan")
	require.True(t, ok)
	assert.Equal(t, 4.99, pro.Amount)

	_, ok = plans.Lookup("Nonexistent")
	assert.False(t, ok)
}

func TestHasActive(t *testing.T) {
	assert.False(t, HasActive(nil))
	assert.True(t, HasActive([]Subscription{{Status: "ACTIVE"}}))
	assert.False(t, HasActive([]Subscription{{Status: "PENDING"}, {Status: "ACTIVE"}}))
}

func TestStatus(t *testing.T) {
	svc, admin := newService(t)

	st, err := svc.Status(context.Background(), sess)
	require.NoError(t, err)
	assert.Empty(t, st.Subscriptions)
	assert.NotNil(t, st.Subscriptions)
	assert.False(t, st.HasActiveSubscription)

	admin.Update(func(a *shopifytest.Admin) {
		a.Subscriptions = []map[string]any{{"id": "gid://shopify/AppSubscription/1", "name": "Pro Plan", "status": "ACTIVE", "trialDays": 14}}
	})
	st, err = svc.Status(context.Background(), sess)
	require.NoError(t, err)
	require.Len(t, st.Subscriptions, 1)
	assert.Equal(t, "Pro Plan", st.Subscriptions[0].Name)
	assert.True(t, st.HasActiveSubscription)
	assert.Equal(t, "shpat_test", admin.Recorded()[0].Token)
}

func TestSubscribe(t *testing.T) {
	svc, admin := newService(t)

	url, err := svc.Subscribe(context.Background(), sess, "Basic Plan")
	require.NoError(t, err)
	assert.Equal(t, admin.ConfirmationURL, url)

	calls := admin.Recorded()
	require.Len(t, calls, 1)
	vars := calls[0].Variables
	assert.Equal(t, "Basic Plan", vars["name"])
	assert.Equal(t, "https://demo.myshopify.com/admin/apps/api-key", vars["returnUrl"])
	assert.Equal(t, float64(14), vars["trialDays"])
	assert.Equal(t, true, vars["test"])
}

func TestSubscribeInvalidPlan(t *testing.T) {
	svc, admin := newService(t)
	_, err := svc.Subscribe(context.Background(), sess, "Nonexistent")
	assert.ErrorIs(t, err, ErrInvalidPlan)
	assert.Empty(t, admin.Recorded())
}

func TestSubscribeUserErrors(t *testing.T) {
	svc, admin := newService(t)
	admin.Update(func(a *shopifytest.Admin) {
		a.UserErrors = []map[string]any{{"field": []string{"name"}, "message": "Name is taken"}}
	})
	_, err := svc.Subscribe(context.Background(), sess, "Pro Plan")
	require.ErrorIs(t, err, shopify.ErrUpstream)
	assert.Contains(t, err.Error(), "Name is taken")
}

func TestCancel(t *testing.T) {
	svc, admin := newService(t)

	_, err := svc.Cancel(context.Background(), sess)
	assert.ErrorIs(t, err, ErrNoActiveSubscription)

	admin.Update(func(a *shopifytest.Admin) {
		a.Subscriptions = []map[string]any{
			{"id": "gid://shopify/AppSubscription/1", "status": "ACTIVE"},
			{"id": "gid://shopify/AppSubscription/2", "status": "ACTIVE"},
		}
	})
	res, err := svc.Cancel(context.Background(), sess)
	require.NoError(t, err)
	require.NotNil(t, res.AppSubscriptionCancel.AppSubscription)
	assert.Equal(t, "gid://shopify/AppSubscription/1", res.AppSubscriptionCancel.AppSubscription.ID)
	assert.Equal(t, "CANCELLED", res.AppSubscriptionCancel.AppSubscription.Status)
}

func TestUpstreamFailure(t *testing.T) {
	svc, admin := newService(t)
	admin.Update(func(a *shopifytest.Admin) { a.GraphQLStatus = http.StatusInternalServerError })
	_, err := svc.Status(context.Background(), sess)
	assert.ErrorIs(t, err, shopify.ErrUpstream)
}
