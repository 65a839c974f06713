package api

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/facelocker/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/facelocker/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/facelocker/internal/api/middleware"
)

type Dependencies struct {
	FaceService handler.FaceService
	Images      handler.ImageOpener
	DB          handler.Pinger
	// APIKey protects /api when set.
	APIKey string
	// RecognizeRateLimit is the per-IP budget of recognitions per minute.
	RecognizeRateLimit int
}

type Router struct {
	app         *fiber.App
	logger      *slog.Logger
	deps        *Dependencies
	rateLimiter *middleware.RateLimiter
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(logger),
		AppName:               "Facelocker API",
		BodyLimit:             handler.MaxBodySize,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          60 * time.Second,
		DisableStartupMessage: true,
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Swagger documentation (no auth required)
	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	var db handler.Pinger
	if r.deps != nil {
		db = r.deps.DB
	}
	healthHandler := handler.NewHealthHandler(db, r.logger)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	if r.deps == nil {
		return
	}

	if r.deps.Images != nil {
		staticHandler := handler.NewStaticHandler(r.deps.Images)
		r.app.Get("/static/faces/:user_id/:file", staticHandler.FaceImage)
	}

	api := r.app.Group("/api")
	api.Use(middleware.Auth(r.deps.APIKey))

	faceHandler := handler.NewFaceHandler(r.deps.FaceService, r.logger)
	api.Post("/faces", faceHandler.Enroll)
	api.Post("/faces/batch", faceHandler.EnrollBatch)
	api.Get("/faces", faceHandler.List)
	api.Delete("/faces/by-user/:user_id", faceHandler.DeleteByOwner)
	api.Delete("/faces/:face_id", faceHandler.Delete)

	r.rateLimiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Max:    r.deps.RecognizeRateLimit,
		Window: time.Minute,
	})
	recognizeHandler := handler.NewRecognizeHandler(r.deps.FaceService, r.logger)
	api.Post("/recognize", r.rateLimiter.Handler(), recognizeHandler.Recognize)
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

// Shutdown stops accepting connections and waits up to timeout for in-flight
// requests to finish.
func (r *Router) Shutdown(timeout time.Duration) error {
	if r.rateLimiter != nil {
		r.rateLimiter.Stop()
	}
	return r.app.ShutdownWithTimeout(timeout)
}
