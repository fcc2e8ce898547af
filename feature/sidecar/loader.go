package sidecar

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"sidecar-sync/feature/progress"
	"sidecar-sync/feature/sidecar/library"
	"sidecar-sync/feature/sidecar/reconcile"
	"sidecar-sync/feature/sidecar/transport"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	handler *Handler
}

// NewFeature creates a new sidecar sync feature.
func NewFeature(
	store *library.Store,
	trans transport.Transport,
	pipeline *reconcile.Pipeline,
	cfg reconcile.Config,
	remote *progress.Client,
	logger *zap.Logger,
) *Feature {
	svc := NewService(store, trans, pipeline, cfg, remote, logger)
	h := NewHandler(svc)
	return &Feature{service: svc, handler: h}
}

// Service exposes the underlying service, for callers that run sync passes
// outside the HTTP surface.
func (f *Feature) Service() *Service {
	return f.service
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "sidecar"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return true
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}
