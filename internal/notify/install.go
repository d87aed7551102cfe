package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// Publisher is the subset of *sns.Client used here.
type Publisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// InstallNotifier tells the app operator about new installs through an SNS
// topic (usually with an email subscription).
type InstallNotifier struct {
	SNS      Publisher
	TopicArn string
	Now      func() time.Time
}

// Enabled reports whether a topic is configured.
func (n *InstallNotifier) Enabled() bool {
	return n != nil && n.SNS != nil && strings.TrimSpace(n.TopicArn) != ""
}

// Installed publishes an install message for shop. It is a no-op when not
// configured.
func (n *InstallNotifier) Installed(ctx context.Context, shop, scope string) error {
	if !n.Enabled() {
		return nil
	}
	now := time.Now().UTC()
	if n.Now != nil {
		now = n.Now().UTC()
	}

	subject, message := buildInstallMessage(shop, scope, now)
	_, err := n.SNS.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.TopicArn),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	})
	if err != nil {
		return fmt.Errorf("publish install notification: %w", err)
	}
	return nil
}

func buildInstallMessage(shop, scope string, at time.Time) (subject string, body string) {
	subject = fmt.Sprintf("Sale Discount Lock: installed on %s", shop)

	lines := []string{
		"Sale Discount Lock install",
		"",
		fmt.Sprintf("Shop: %s", shop),
	}
	if scope != "" {
		lines = append(lines, fmt.Sprintf("Scope: %s", scope))
	}
	lines = append(lines, "", fmt.Sprintf("InstalledAt: %s", at.Format(time.RFC3339)))

	return subject, strings.Join(lines, "\n")
}
