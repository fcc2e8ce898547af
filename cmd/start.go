package cmd

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"sidecar-sync/core/config"
	"sidecar-sync/core/database"
	"sidecar-sync/core/loader"
	"sidecar-sync/core/logger"
	"sidecar-sync/core/middleware/auth"
	"sidecar-sync/core/middleware/rayid"
	"sidecar-sync/feature/progress"
	"sidecar-sync/feature/sidecar"
	"sidecar-sync/feature/sidecar/fields"
	"sidecar-sync/feature/sidecar/library"
	"sidecar-sync/feature/sidecar/reconcile"
	"sidecar-sync/feature/sidecar/transport"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the sidecar sync server",
	Long:  `Starts the HTTP server and initializes all enabled features.`,
	Run: func(cmd *cobra.Command, args []string) {
		// 1. Load Configuration
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		// 2. Initialize Logger
		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		// 3. Connect to the library database and migrate
		db, err := database.Connect(cfg.Database)
		if err != nil {
			logg.Fatal("Failed to connect to library database", zap.Error(err))
		}
		store := library.NewStore(db, logg)
		if err := store.Migrate(); err != nil {
			logg.Fatal("Failed to migrate library database", zap.Error(err))
		}

		// 4. Initialize the device transport
		trans, err := transport.New(cfg.Transport)
		if err != nil {
			logg.Fatal("Failed to create device transport", zap.Error(err))
		}
		logg.Info("Device transport ready", zap.String("kind", cfg.Transport.Kind))

		// 5. Reconciliation pipeline and optional remote progress client
		pipeline := reconcile.New(fields.Default(), cfg.Sync, store, logg)

		var remote *progress.Client
		if cfg.Progress.Enabled {
			remote, err = progress.NewClient(cfg.Progress)
			if err != nil {
				logg.Fatal("Failed to create progress client", zap.Error(err))
			}
			logg.Info("Remote progress enabled", zap.String("server", cfg.Progress.Server))
		}

		// 6. Initialize Fiber App
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true, // We will log our own startup message
		})

		// 7. Initialize Feature Loader
		mgr := loader.NewManager()
		mgr.Register(sidecar.NewFeature(store, trans, pipeline, cfg.Sync, remote, logg))

		// Middleware Registration
		// 1. RayID (Must be first to trace everything)
		app.Use(rayid.New())

		// 2. Logging Middleware (Custom to use Zap + RayID)
		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		// 3. Auth (Protect API)
		app.Use(auth.New(cfg.Server.ApiKey))

		// 8. Load Features
		loaded, err := mgr.LoadAll(app)
		if err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}
		logg.Info("Features loaded", zap.Strings("features", loaded))

		// 9. Start Server
		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port))
			if err := app.Listen(":" + cfg.Server.Port); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 10. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		_ = app.Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
