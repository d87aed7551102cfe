package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"salelock/internal/app"
	"salelock/internal/logging"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// LambdaHandler is the signature of the deployed function.
type LambdaHandler func(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error)

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the Lambda handler over plain HTTP",
		Long: `Run the backend locally behind an HTTP server that translates requests
into API Gateway HTTP API events.

Examples:
  salelock-dev serve
  salelock-dev serve --port 8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, router, err := app.Load(ctx)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			return serve(ctx, fmt.Sprintf(":%d", cfg.Port), router.Handle)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 3000, "listen port (defaults to PORT)")
	return cmd
}

func serve(ctx context.Context, addr string, h LambdaHandler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           Adapter(h),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log := logging.Logger()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("Listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Adapter turns a Lambda handler into an http.Handler. Header names are
// lowercased the way API Gateway delivers them.
func Adapter(h LambdaHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ev, err := toEvent(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		resp, err := h(r.Context(), ev)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeResponse(w, resp)
	})
}

func toEvent(r *http.Request) (events.APIGatewayV2HTTPRequest, error) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return events.APIGatewayV2HTTPRequest{}, err
	}

	ev := events.APIGatewayV2HTTPRequest{
		RawPath:        r.URL.Path,
		RawQueryString: r.URL.RawQuery,
		Headers:        map[string]string{},
	}
	for k, vs := range r.Header {
		ev.Headers[strings.ToLower(k)] = strings.Join(vs, ",")
	}
	if q := r.URL.Query(); len(q) > 0 {
		ev.QueryStringParameters = make(map[string]string, len(q))
		for k, vs := range q {
			ev.QueryStringParameters[k] = strings.Join(vs, ",")
		}
	}
	if utf8.Valid(raw) {
		ev.Body = string(raw)
	} else {
		ev.Body = base64.StdEncoding.EncodeToString(raw)
		ev.IsBase64Encoded = true
	}
	ev.RequestContext.HTTP.Method = r.Method
	ev.RequestContext.HTTP.Path = r.URL.Path
	ev.RequestContext.HTTP.SourceIP = r.RemoteAddr
	ev.RequestContext.HTTP.UserAgent = r.UserAgent()
	ev.RequestContext.RequestID = uuid.NewString()
	return ev, nil
}

func writeResponse(w http.ResponseWriter, resp events.APIGatewayV2HTTPResponse) {
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	for k, vs := range resp.MultiValueHeaders {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	if resp.IsBase64Encoded {
		b, err := base64.StdEncoding.DecodeString(resp.Body)
		if err == nil {
			_, _ = w.Write(b)
			return
		}
	}
	_, _ = io.WriteString(w, resp.Body)
}
