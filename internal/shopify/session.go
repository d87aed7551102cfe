package shopify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"salelock/internal/db"
	"salelock/internal/security"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

var ErrNoSession = errors.New("shop has no stored session")

// SessionItem mirrors the DynamoDB structure of an offline session.
// PK = SHOP#<shopDomain>
type SessionItem struct {
	PK             string `dynamodbav:"PK"`
	Shop           string `dynamodbav:"Shop"`
	AccessTokenEnc string `dynamodbav:"AccessTokenEnc"`
	Scope          string `dynamodbav:"Scope"`
	CreatedAt      string `dynamodbav:"CreatedAt"`
}

// Session is a decrypted offline session.
type Session struct {
	Shop        string
	AccessToken string
	Scope       string
}

// SessionStore keeps one offline session per shop.
type SessionStore struct {
	DDB    db.Client
	Table  string
	Cipher *security.TokenCipher
}

func sessionPK(shop string) string {
	return fmt.Sprintf("SHOP#%s", shop)
}

func (s *SessionStore) check() error {
	if s == nil || s.DDB == nil || strings.TrimSpace(s.Table) == "" {
		return errors.New("SESSIONS_TABLE not configured")
	}
	if s.Cipher == nil {
		return errors.New("token cipher not configured")
	}
	return nil
}

// Save encrypts and stores the access token for shop.
func (s *SessionStore) Save(ctx context.Context, shop string, tok Token) error {
	if err := s.check(); err != nil {
		return err
	}
	enc, err := s.Cipher.Seal(tok.AccessToken)
	if err != nil {
		return fmt.Errorf("encrypt token: %w", err)
	}
	item, err := attributevalue.MarshalMap(SessionItem{
		PK:             sessionPK(shop),
		Shop:           shop,
		AccessTokenEnc: enc,
		Scope:          tok.Scope,
		CreatedAt:      time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	_, err = s.DDB.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.Table),
		Item:      item,
	})
	return err
}

// Load returns the decrypted session, or ErrNoSession.
func (s *SessionStore) Load(ctx context.Context, shop string) (*Session, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	out, err := s.DDB.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.Table),
		Key:       db.Key(sessionPK(shop)),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoSession, shop)
	}

	var item SessionItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, err
	}
	if strings.TrimSpace(item.AccessTokenEnc) == "" {
		return nil, fmt.Errorf("%w: %s has no AccessTokenEnc", ErrNoSession, shop)
	}
	token, err := s.Cipher.Open(item.AccessTokenEnc)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt token: %w", err)
	}
	return &Session{Shop: item.Shop, AccessToken: token, Scope: item.Scope}, nil
}

// Delete drops the stored session for shop.
func (s *SessionStore) Delete(ctx context.Context, shop string) error {
	if err := s.check(); err != nil {
		return err
	}
	_, err := s.DDB.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.Table),
		Key:       db.Key(sessionPK(shop)),
	})
	return err
}
