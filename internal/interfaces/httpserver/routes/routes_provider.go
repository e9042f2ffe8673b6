// Package routes collects the HTTP route providers for dependency injection.
package routes

import (
	"github.com/google/wire"

	"github.com/janhq/reno-server/internal/interfaces/httpserver/handlers"
	v1 "github.com/janhq/reno-server/internal/interfaces/httpserver/routes/v1"
)

var RouteProvider = wire.NewSet(
	// Handlers
	handlers.NewChatHandler,
	handlers.NewConversationHandler,

	// Routes
	v1.NewV1Route,
)
