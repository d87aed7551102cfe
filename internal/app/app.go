// Package app assembles the backend from configuration. Both the Lambda
// binary and the local dev server start here.
package app

import (
	"context"
	"fmt"
	"time"

	"salelock/internal/billing"
	"salelock/internal/config"
	"salelock/internal/db"
	"salelock/internal/handlers"
	"salelock/internal/logging"
	"salelock/internal/notify"
	"salelock/internal/pages"
	"salelock/internal/security"
	"salelock/internal/shopify"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

const (
	oauthStateTTL = 10 * time.Minute
	webhookTTL    = 7 * 24 * time.Hour
)

// Clients are the AWS collaborators. Nil members disable the feature that
// needs them.
type Clients struct {
	DDB db.Client
	SNS notify.Publisher
	S3  pages.ObjectGetter
}

// NeedsAWS reports whether cfg references any AWS resource.
func NeedsAWS(cfg config.Config) bool {
	return cfg.NeedsSSM() ||
		cfg.SessionsTable != "" || cfg.OAuthStateTable != "" || cfg.WebhookDedupeTable != "" ||
		cfg.InstallTopicArn != "" || cfg.PagesBucket != ""
}

// Load reads the environment, resolves secrets and builds the router.
func Load(ctx context.Context) (config.Config, *handlers.Router, error) {
	cfg := config.FromEnv()
	logging.Init(logging.Config{Format: cfg.LogFormat, Level: cfg.LogLevel, Component: "salelock"})

	var clients Clients
	if NeedsAWS(cfg) {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return cfg, nil, fmt.Errorf("load aws config: %w", err)
		}
		if err := cfg.ResolveSecrets(ctx, ssm.NewFromConfig(awsCfg)); err != nil {
			return cfg, nil, err
		}
		clients = clientsFromConfig(cfg, awsCfg)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, nil, err
	}
	rt, err := NewRouter(cfg, clients)
	return cfg, rt, err
}

func clientsFromConfig(cfg config.Config, awsCfg aws.Config) Clients {
	var c Clients
	if cfg.SessionsTable != "" || cfg.OAuthStateTable != "" || cfg.WebhookDedupeTable != "" {
		c.DDB = db.NewDynamoClientFromConfig(awsCfg)
	}
	if cfg.InstallTopicArn != "" {
		c.SNS = sns.NewFromConfig(awsCfg)
	}
	if cfg.PagesBucket != "" {
		c.S3 = s3.NewFromConfig(awsCfg)
	}
	return c
}

// NewRouter wires handlers from an already resolved configuration.
func NewRouter(cfg config.Config, c Clients) (*handlers.Router, error) {
	client := &shopify.Client{
		APIKey:     cfg.APIKey,
		APISecret:  cfg.APISecret,
		Scopes:     cfg.Scopes,
		APIVersion: cfg.APIVersion,
		AppURL:     cfg.AppURL(),
	}

	var cipher *security.TokenCipher
	if cfg.TokenEncKeyB64 != "" {
		var err error
		if cipher, err = security.NewTokenCipher(cfg.TokenEncKeyB64); err != nil {
			return nil, fmt.Errorf("token cipher: %w", err)
		}
	}

	log := logging.Logger()
	if c.DDB == nil {
		log.Warn().Msg("No DynamoDB client; sessions and OAuth state are not persisted")
	}

	return handlers.NewRouter(handlers.Deps{
		Shopify:  client,
		Sessions: &shopify.SessionStore{DDB: c.DDB, Table: cfg.SessionsTable, Cipher: cipher},
		States:   &shopify.StateStore{DDB: c.DDB, Table: cfg.OAuthStateTable, TTL: oauthStateTTL},
		Dedupe:   &shopify.WebhookDeduper{DDB: c.DDB, Table: cfg.WebhookDedupeTable, TTL: webhookTTL},
		Billing: &billing.Service{
			Client: client,
			Plans:  billing.DefaultPlans(),
			Test:   !cfg.Production,
		},
		Notifier:       &notify.InstallNotifier{SNS: c.SNS, TopicArn: cfg.InstallTopicArn},
		Pages:          &pages.Source{S3: c.S3, Bucket: cfg.PagesBucket, Log: log},
		VerifyWebhooks: cfg.VerifyWebhooks,
	}), nil
}
