//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"

	"github.com/janhq/reno-server/internal/config"
)

func CreateApplication(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Application, func(), error) {
	wire.Build(
		InfrastructureProvider,
		ServiceProvider,
		InterfacesProvider,
		wire.Struct(new(Application), "*"),
	)
	return nil, nil, nil
}
