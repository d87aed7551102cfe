package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"
)

const (
	DefaultScopes     = "read_checkouts,write_checkouts"
	DefaultAPIVersion = "2024-10"
	DefaultHost       = "code-block-wheat.vercel.app"
	DefaultPort       = 3000
)

// Config is the backend configuration, read once per cold start.
type Config struct {
	APIKey     string
	APISecret  string
	Scopes     string
	APIVersion string
	Host       string
	Port       int
	Production bool

	TokenEncKeyB64 string

	SessionsTable      string
	OAuthStateTable    string
	WebhookDedupeTable string

	VerifyWebhooks  bool
	InstallTopicArn string
	PagesBucket     string

	LogLevel  string
	LogFormat string

	// SSM parameter names; when set they override the plain env values.
	APISecretParam   string
	TokenEncKeyParam string
}

// ParameterGetter is the subset of the SSM client used to resolve secrets.
type ParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// LoadDotEnv loads a .env file into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// FromEnv reads the configuration from environment variables.
func FromEnv() Config {
	c := Config{
		APIKey:             env("SHOPIFY_API_KEY"),
		APISecret:          env("SHOPIFY_API_SECRET"),
		Scopes:             env("SHOPIFY_SCOPES"),
		APIVersion:         env("SHOPIFY_API_VERSION"),
		Host:               strings.TrimPrefix(strings.TrimPrefix(env("HOST"), "https://"), "http://"),
		Port:               DefaultPort,
		Production:         strings.EqualFold(env("NODE_ENV"), "production") || strings.EqualFold(env("APP_ENV"), "production"),
		TokenEncKeyB64:     env("TOKEN_ENC_KEY_B64"),
		SessionsTable:      env("SESSIONS_TABLE"),
		OAuthStateTable:    env("OAUTH_STATE_TABLE"),
		WebhookDedupeTable: env("WEBHOOK_DEDUPE_TABLE"),
		VerifyWebhooks:     boolEnv("WEBHOOK_VERIFY_HMAC"),
		InstallTopicArn:    env("INSTALL_TOPIC_ARN"),
		PagesBucket:        env("PAGES_BUCKET"),
		LogLevel:           env("LOG_LEVEL"),
		LogFormat:          env("LOG_FORMAT"),
		APISecretParam:     env("SHOPIFY_API_SECRET_PARAM"),
		TokenEncKeyParam:   env("TOKEN_ENC_KEY_PARAM"),
	}
	c.Host = strings.TrimRight(c.Host, "/")

	if c.Scopes == "" {
		c.Scopes = DefaultScopes
	}
	if c.APIVersion == "" {
		c.APIVersion = DefaultAPIVersion
	}
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if p, err := strconv.Atoi(env("PORT")); err == nil && p > 0 && p < 65536 {
		c.Port = p
	}
	return c
}

// ResolveSecrets fills secrets from SSM Parameter Store for every *Param
// field that is set. A nil client is only allowed when no parameter is set.
func (c *Config) ResolveSecrets(ctx context.Context, client ParameterGetter) error {
	lookups := []struct {
		name string
		dst  *string
	}{
		{c.APISecretParam, &c.APISecret},
		{c.TokenEncKeyParam, &c.TokenEncKeyB64},
	}
	for _, l := range lookups {
		if l.name == "" {
			continue
		}
		if client == nil {
			return fmt.Errorf("ssm client required to resolve %s", l.name)
		}
		out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
			Name:           aws.String(l.name),
			WithDecryption: aws.Bool(true),
		})
		if err != nil {
			return fmt.Errorf("get parameter %s: %w", l.name, err)
		}
		if out.Parameter == nil || aws.ToString(out.Parameter.Value) == "" {
			return fmt.Errorf("parameter %s is empty", l.name)
		}
		*l.dst = aws.ToString(out.Parameter.Value)
	}
	return nil
}

// NeedsSSM reports whether ResolveSecrets will call Parameter Store.
func (c Config) NeedsSSM() bool {
	return c.APISecretParam != "" || c.TokenEncKeyParam != ""
}

// Validate reports the required settings that are missing.
func (c Config) Validate() error {
	var missing []string
	if c.APIKey == "" {
		missing = append(missing, "SHOPIFY_API_KEY")
	}
	if c.APISecret == "" {
		missing = append(missing, "SHOPIFY_API_SECRET")
	}
	if c.SessionsTable != "" && c.TokenEncKeyB64 == "" {
		missing = append(missing, "TOKEN_ENC_KEY_B64")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// AppURL is the public base URL of the backend.
func (c Config) AppURL() string {
	return "https://" + c.Host
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func boolEnv(key string) bool {
	b, err := strconv.ParseBool(env(key))
	return err == nil && b
}
