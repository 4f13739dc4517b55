package main

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	bazaar "github.com/xenking/bookbazaar/internal/app"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		cfg, err := bazaar.LoadConfig()
		if err != nil {
			return errors.Wrap(err, "config")
		}
		return bazaar.Run(ctx, lg, m, cfg)
	})
}
