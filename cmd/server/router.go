// List of all REST API endpoints being used by Wishful can be found here.

package main

import (
	"Wishful/internal/auth"
	"Wishful/internal/config"
	"Wishful/internal/invitation"
	"Wishful/internal/metrics"
	"Wishful/internal/notify"
	"Wishful/internal/product"
	"Wishful/internal/room"
	"Wishful/internal/socket"
	"Wishful/internal/sse"
	"Wishful/internal/storage"
	"Wishful/internal/template"
	"Wishful/internal/user"
	"Wishful/internal/wishlist"
	"Wishful/pkg/db"
	"Wishful/pkg/globalcontext"
	"Wishful/pkg/log"
	"Wishful/pkg/middlewares"
	"Wishful/pkg/validations"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Router mounts every API of Wishful on router and returns the event stream service, it needs a shutdown of its own.
func Router(router *gin.Engine, cfg config.Config, dbwrp *db.RedisDB, registry *room.Registry, broker notify.Broker, logger log.Logger) sse.Service {
	ctx := context.Background()

	router.Use(globalcontext.UniqueIDMiddleware(logger))
	router.Use(middlewares.CorrelationMiddleware())
	router.Use(middlewares.CORSMiddleware(cfg.CORSOrig))

	// Custom validation tags used by the request bodies.
	validations.RegisterCustomValidations(ctx, logger)
	user.RegisterCustomValidationTags(ctx, logger)
	product.RegisterCustomValidationTags(ctx, logger)

	// This is the route to default path
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Welcome to Wishful!")
	})

	// Repositories
	userRepo := user.NewRepository(dbwrp)
	authRepo := auth.NewRepository(dbwrp)
	wishlistRepo := wishlist.NewRepository(dbwrp)
	productRepo := product.NewRepository(dbwrp)
	invitationRepo := invitation.NewRepository(dbwrp)
	templateRepo := template.NewRepository(dbwrp)

	// Built-in wishlist templates, only the first instance to start seeds them
	if err := template.Seed(ctx, templateRepo, logger); err != nil {
		logger.Fatal().Err(err).Msg("Couldn't seed built-in templates.")
	}

	// Authentication middlewares
	accAuth := auth.AuthMiddleware(logger, authRepo, "access_token", cfg.AccessSecret)
	refAuth := auth.AuthMiddleware(logger, authRepo, "refresh_token", cfg.RefreshSecret)

	projector := notify.NewProjector(userRepo, logger)
	notifier := notify.NewNotifier(broker, projector, logger)
	guard := wishlist.NewGuard(wishlistRepo, logger)

	auth.APIHandlers(router, auth.NewService(cfg.AccessSecret, cfg.RefreshSecret, userRepo, authRepo, logger), accAuth, refAuth,
		auth.CookieSettings{Domain: cfg.CookieDomain, Secure: cfg.CookieSecure}, logger)
	user.APIHandlers(router, user.NewService(userRepo, logger), accAuth, logger)
	wishlist.APIHandlers(router, wishlist.NewService(wishlistRepo, productRepo, projector, logger), accAuth, logger)
	product.APIHandlers(router, product.NewService(productRepo, guard, notifier, projector, logger), registry, accAuth, logger)
	invitation.APIHandlers(router, invitation.NewService(invitationRepo, userRepo, wishlistRepo, logger), accAuth, logger)
	template.APIHandlers(router, template.NewService(templateRepo, wishlistRepo, productRepo, projector, logger), accAuth, logger)
	metrics.APIHandlers(router, metrics.NewService(metrics.NewRepository(dbwrp), registry, logger), accAuth, logger)

	// Realtime transports
	socket.APIHandlers(router, registry, guard, accAuth, cfg.CORSOrig, socket.DefaultSettings(cfg.WSSendBuffer), logger)
	streams := sse.NewService(registry, guard, cfg.WSSendBuffer, logger)
	sse.APIHandlers(router, streams, accAuth, logger)

	// Product image uploads
	storageHandler, err := storage.NewTusdStorageHandler(cfg.UploadPath, cfg.MaxUploadSize, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Couldn't create the upload handler.")
	}
	storage.APIHandlers(router, storageHandler, accAuth, storage.UploadStorageMiddleware(cfg.UploadPath, cfg.MaxUploadSize, logger), logger)

	return streams
}
