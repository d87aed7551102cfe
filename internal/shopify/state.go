package shopify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"salelock/internal/db"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var ErrInvalidState = errors.New("invalid or expired state")

// StateStore persists OAuth state nonces between begin and callback. With no
// table configured it is disabled: Put is a no-op and Consume accepts any
// state.
type StateStore struct {
	DDB   db.Client
	Table string
	TTL   time.Duration
	Now   func() time.Time
}

func (s *StateStore) enabled() bool {
	return s != nil && s.DDB != nil && strings.TrimSpace(s.Table) != ""
}

func (s *StateStore) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func statePK(state string) string {
	return "STATE#" + state
}

func (s *StateStore) Put(ctx context.Context, state, shop string) error {
	if !s.enabled() {
		return nil
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	exp := s.now().Add(ttl).Unix()

	_, err := s.DDB.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.Table),
		Item: map[string]types.AttributeValue{
			"PK":             &types.AttributeValueMemberS{Value: statePK(state)},
			"Shop":           &types.AttributeValueMemberS{Value: shop},
			"ExpiresAtEpoch": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", exp)},
		},
	})
	return err
}

// Consume validates state against shop and deletes it (one-time use).
func (s *StateStore) Consume(ctx context.Context, state, shop string) error {
	if !s.enabled() {
		return nil
	}
	if strings.TrimSpace(state) == "" {
		return ErrInvalidState
	}

	out, err := s.DDB.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.Table),
		Key:       db.Key(statePK(state)),
	})
	if err != nil {
		return err
	}
	if out.Item == nil {
		return ErrInvalidState
	}

	// one-time state cleanup
	_, _ = s.DDB.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.Table),
		Key:       db.Key(statePK(state)),
	})

	if db.AttrS(out.Item["Shop"]) != shop {
		return fmt.Errorf("%w: shop mismatch", ErrInvalidState)
	}
	if n, ok := out.Item["ExpiresAtEpoch"].(*types.AttributeValueMemberN); ok {
		exp, err := strconv.ParseInt(n.Value, 10, 64)
		if err == nil && s.now().Unix() > exp {
			return fmt.Errorf("%w: expired", ErrInvalidState)
		}
	}
	return nil
}
