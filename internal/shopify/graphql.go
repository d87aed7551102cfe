package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type GraphQLError struct {
	Message    string `json:"message"`
	Path       []any  `json:"path,omitempty"`
	Extensions struct {
		Code string `json:"code,omitempty"`
	} `json:"extensions,omitempty"`
}

type GraphQLResponse[T any] struct {
	Data   T              `json:"data"`
	Errors []GraphQLError `json:"errors"`
}

// Err folds GraphQL level errors into one error, or nil.
func (r *GraphQLResponse[T]) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		if e.Extensions.Code != "" {
			msgs = append(msgs, e.Message+" ("+e.Extensions.Code+")")
		} else {
			msgs = append(msgs, e.Message)
		}
	}
	return fmt.Errorf("%w: %s", ErrUpstream, strings.Join(msgs, "; "))
}

// PostGraphQL runs one Admin API GraphQL request for shopDomain. Non-2xx
// statuses and GraphQL errors are both returned as errors wrapping
// ErrUpstream.
func PostGraphQL[T any](ctx context.Context, c *Client, shopDomain, accessToken string, query string, variables any) (*GraphQLResponse[T], error) {
	endpoint := fmt.Sprintf("%s/admin/api/%s/graphql.json", c.adminURL(shopDomain), c.APIVersion)

	body := map[string]any{
		"query":     query,
		"variables": variables,
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", accessToken)

	res, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer res.Body.Close()

	raw, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: graphql http %d", ErrUpstream, res.StatusCode)
	}

	var out GraphQLResponse[T]
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: decode graphql response: %v", ErrUpstream, err)
	}
	if err := out.Err(); err != nil {
		return &out, err
	}
	return &out, nil
}
