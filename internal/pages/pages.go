// Package pages serves the static home, privacy and terms pages. Copies are
// embedded in the binary; a bucket, when configured, overrides them.
package pages

import (
	"context"
	"embed"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

//go:embed static/*.html
var static embed.FS

const (
	Home    = "index"
	Privacy = "privacy"
	Terms   = "terms"
)

// ObjectGetter is the subset of the S3 client used for overrides.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type Source struct {
	S3     ObjectGetter
	Bucket string
	Log    zerolog.Logger
}

// Embedded returns the compiled-in copy of a page.
func Embedded(name string) (string, error) {
	b, err := static.ReadFile("static/" + name + ".html")
	if err != nil {
		return "", fmt.Errorf("unknown page %q", name)
	}
	return string(b), nil
}

// Get returns the page HTML. Any bucket failure falls back to the embedded
// copy.
func (s *Source) Get(ctx context.Context, name string) (string, error) {
	if s != nil && s.S3 != nil && strings.TrimSpace(s.Bucket) != "" {
		html, err := s.fromBucket(ctx, name)
		if err == nil {
			return html, nil
		}
		s.Log.Warn().Err(err).Str("page", name).Str("bucket", s.Bucket).Msg("page override unavailable, using embedded copy")
	}
	return Embedded(name)
}

func (s *Source) fromBucket(ctx context.Context, name string) (string, error) {
	out, err := s.S3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(name + ".html"),
	})
	if err != nil {
		return "", err
	}
	defer out.Body.Close()
	b, err := io.ReadAll(out.Body)
	if err != nil {
		return "", err
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return "", fmt.Errorf("empty object %s.html", name)
	}
	return string(b), nil
}
