package main

import (
	"context"

	"salelock/internal/app"
	"salelock/internal/logging"

	"github.com/aws/aws-lambda-go/lambda"
)

func main() {
	_, router, err := app.Load(context.Background())
	if err != nil {
		l := logging.Logger()
		l.Fatal().Err(err).Msg("startup failed")
	}
	lambda.Start(router.Handle)
}
