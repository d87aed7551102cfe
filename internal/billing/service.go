package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"salelock/internal/shopify"
)

var (
	ErrInvalidPlan          = errors.New("invalid plan")
	ErrNoActiveSubscription = errors.New("no active subscription")
)

const StatusActive = "ACTIVE"

// Subscription is an app subscription as reported by Shopify. Nothing is
// stored locally.
type Subscription struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Status           string `json:"status"`
	CurrentPeriodEnd string `json:"currentPeriodEnd,omitempty"`
	TrialDays        int    `json:"trialDays"`
}

// Status is the billing state of one shop.
type Status struct {
	Subscriptions         []Subscription `json:"subscriptions"`
	HasActiveSubscription bool           `json:"hasActiveSubscription"`
}

// UserError is a GraphQL userErrors entry.
type UserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

// CancelResult is the data returned by appSubscriptionCancel.
type CancelResult struct {
	AppSubscriptionCancel struct {
		AppSubscription *struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"appSubscription"`
		UserErrors []UserError `json:"userErrors"`
	} `json:"appSubscriptionCancel"`
}

// Service proxies billing operations to the Admin GraphQL API.
type Service struct {
	Client *shopify.Client
	Plans  Plans
	// Test marks created charges as test charges (non-production).
	Test bool
}

const activeSubscriptionsQuery = `{
  currentAppInstallation {
    activeSubscriptions {
      id
      name
      status
      currentPeriodEnd
      trialDays
    }
  }
}`

const createSubscriptionMutation = `mutation appSubscriptionCreate($name: String!, $returnUrl: URL!, $trialDays: Int, $test: Boolean, $lineItems: [AppSubscriptionLineItemInput!]!) {
  appSubscriptionCreate(name: $name, returnUrl: $returnUrl, trialDays: $trialDays, test: $test, lineItems: $lineItems) {
    confirmationUrl
    appSubscription {
      id
      status
    }
    userErrors {
      field
      message
    }
  }
}`

const cancelSubscriptionMutation = `mutation appSubscriptionCancel($id: ID!) {
  appSubscriptionCancel(id: $id) {
    appSubscription {
      id
      status
    }
    userErrors {
      field
      message
    }
  }
}`

type activeSubscriptionsData struct {
	CurrentAppInstallation struct {
		ActiveSubscriptions []Subscription `json:"activeSubscriptions"`
	} `json:"currentAppInstallation"`
}

type createSubscriptionData struct {
	AppSubscriptionCreate struct {
		ConfirmationURL string      `json:"confirmationUrl"`
		UserErrors      []UserError `json:"userErrors"`
	} `json:"appSubscriptionCreate"`
}

// ActiveSubscriptions lists the shop's active subscriptions.
func (s *Service) ActiveSubscriptions(ctx context.Context, sess *shopify.Session) ([]Subscription, error) {
	resp, err := shopify.PostGraphQL[activeSubscriptionsData](ctx, s.Client, sess.Shop, sess.AccessToken, activeSubscriptionsQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("query active subscriptions: %w", err)
	}
	subs := resp.Data.CurrentAppInstallation.ActiveSubscriptions
	if subs == nil {
		subs = []Subscription{}
	}
	return subs, nil
}

// Status reports subscriptions plus whether the first one is ACTIVE.
func (s *Service) Status(ctx context.Context, sess *shopify.Session) (*Status, error) {
	subs, err := s.ActiveSubscriptions(ctx, sess)
	if err != nil {
		return nil, err
	}
	return &Status{
		Subscriptions:         subs,
		HasActiveSubscription: HasActive(subs),
	}, nil
}

// HasActive is true iff subs is non-empty and its first entry is ACTIVE.
func HasActive(subs []Subscription) bool {
	return len(subs) > 0 && subs[0].Status == StatusActive
}

// Subscribe requests a recurring charge for planName and returns the URL the
// merchant must visit to approve it.
func (s *Service) Subscribe(ctx context.Context, sess *shopify.Session, planName string) (string, error) {
	plan, ok := s.Plans.Lookup(planName)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidPlan, planName)
	}

	vars := map[string]any{
		"name":      plan.Name,
		"returnUrl": s.Client.AppAdminURL(sess.Shop),
		"trialDays": plan.TrialDays,
		"test":      s.Test,
		"lineItems": []map[string]any{{
			"plan": map[string]any{
				"appRecurringPricingDetails": map[string]any{
					"price": map[string]any{
						"amount":       plan.Amount,
						"currencyCode": plan.CurrencyCode,
					},
					"interval": plan.Interval,
				},
			},
		}},
	}

	resp, err := shopify.PostGraphQL[createSubscriptionData](ctx, s.Client, sess.Shop, sess.AccessToken, createSubscriptionMutation, vars)
	if err != nil {
		return "", fmt.Errorf("create subscription: %w", err)
	}
	out := resp.Data.AppSubscriptionCreate
	if err := userErrorsErr(out.UserErrors); err != nil {
		return "", fmt.Errorf("create subscription: %w", err)
	}
	if out.ConfirmationURL == "" {
		return "", fmt.Errorf("create subscription: %w: missing confirmationUrl", shopify.ErrUpstream)
	}
	return out.ConfirmationURL, nil
}

// Cancel cancels the first active subscription.
func (s *Service) Cancel(ctx context.Context, sess *shopify.Session) (*CancelResult, error) {
	subs, err := s.ActiveSubscriptions(ctx, sess)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, ErrNoActiveSubscription
	}

	resp, err := shopify.PostGraphQL[CancelResult](ctx, s.Client, sess.Shop, sess.AccessToken, cancelSubscriptionMutation, map[string]any{"id": subs[0].ID})
	if err != nil {
		return nil, fmt.Errorf("cancel subscription: %w", err)
	}
	if err := userErrorsErr(resp.Data.AppSubscriptionCancel.UserErrors); err != nil {
		return nil, fmt.Errorf("cancel subscription: %w", err)
	}
	return &resp.Data, nil
}

func userErrorsErr(errs []UserError) error {
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Message)
	}
	return fmt.Errorf("%w: %s", shopify.ErrUpstream, strings.Join(msgs, "; "))
}
