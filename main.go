package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fabrino-server/config"
	"fabrino-server/database"
	"fabrino-server/handlers"
	"fabrino-server/models"
	"fabrino-server/services"
	"fabrino-server/supabase"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

const (
	sessionSweepInterval = time.Minute
	shutdownTimeout      = 15 * time.Second
)

// backend is everything the storefront reads and writes. Both the REST
// gateway and the direct Postgres gateway implement it.
type backend interface {
	services.ProductLister
	services.ProductWriter
	services.ProfileStore
	services.OrderStore
}

func main() {
	app := &cli.App{
		Name:   "fabrino-server",
		Usage:  "Fabrino storefront API",
		Before: setup,
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API (default)",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "create the storefront tables in DATABASE_URL",
				Action: migrate,
			},
			{
				Name:  "seed",
				Usage: "insert the shipped catalogue into the backend",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "force", Usage: "seed even when products already exist"},
				},
				Action: seed,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("fabrino-server exited with an error")
	}
}

func setup(*cli.Context) error {
	if err := config.Load(); err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	configureLogging(config.AppConfig)
	return nil
}

func configureLogging(cfg *config.Config) {
	if strings.EqualFold(cfg.LogFormat, "text") {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&log.JSONFormatter{})
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("Unknown LOG_LEVEL, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

// connections holds the backend clients built from the configuration. A
// DATABASE_URL takes over data access from the REST gateway; auth and
// storage always go through the hosted backend.
type connections struct {
	db     *database.DB
	client *supabase.Client
	auth   *supabase.AuthClient
	store  backend
}

func connect(cfg *config.Config) (*connections, error) {
	conns := &connections{}

	if cfg.SupabaseEnabled() {
		client, err := supabase.New(supabase.Config{URL: cfg.SupabaseURL, APIKey: cfg.SupabaseAnonKey})
		if err != nil {
			return nil, fmt.Errorf("create backend client: %w", err)
		}
		conns.client = client
		conns.auth = supabase.NewAuth(client, cfg.SupabaseJWTSecret)
		conns.store = supabase.NewGateway(client)
	}

	if cfg.DatabaseURL != "" {
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		conns.db = db
		conns.store = database.NewGateway(db)
		log.Info("Using direct database access for storefront data")
	}

	return conns, nil
}

func (c *connections) Close() {
	if c.db != nil {
		c.db.Close()
	}
}

func serve(c *cli.Context) error {
	cfg := config.AppConfig

	conns, err := connect(cfg)
	if err != nil {
		return err
	}
	defer conns.Close()
	if conns.store == nil {
		log.Warn("No backend configured, serving the shipped catalogue with local-only checkout")
	}

	catalogue := services.NewCatalogue(conns.store)
	// Fetch logs its own failures and leaves the fallback in place.
	_ = catalogue.Fetch(c.Context)

	var orders services.OrderPlacer
	if conns.store != nil {
		var publisher services.OrderEventPublisher
		if len(cfg.KafkaBrokers) > 0 {
			events, err := services.NewOrderEvents(cfg.KafkaBrokers, cfg.OrderEventsTopic)
			if err != nil {
				log.WithError(err).Warn("Order events disabled")
			} else {
				defer events.Close()
				publisher = events
			}
		}
		orders = services.NewOrderSaga(conns.store, publisher)
	}

	pace := services.SleepPacer
	if !cfg.CheckoutPacing {
		pace = services.NoPacer
	}
	sessions := services.NewSessionStore(cfg.SessionTTL, services.CheckoutOptions{
		Orders: orders,
		Strict: cfg.CheckoutStrict,
		Pace:   pace,
	})

	var images services.ImageStore
	switch {
	case cfg.CloudinaryURL != "":
		store, err := services.NewCloudinaryStore(cfg.CloudinaryURL)
		if err != nil {
			log.WithError(err).Error("Cloudinary unavailable, image uploads disabled")
		} else {
			images = store
		}
	case conns.client != nil:
		images = services.NewBucketStore(conns.client.Storage().From(cfg.StorageBucket))
	}

	var (
		profileStore  services.ProfileStore
		authenticator handlers.Authenticator
	)
	if conns.auth != nil {
		profileStore = conns.store
		authenticator = conns.auth

		tracker := services.NewIdentityTracker(conns.auth, sessions, conns.store)
		tracker.Start()
		defer tracker.Close()
	}

	scheduler, err := services.NewScheduler(catalogue, sessions, cfg.CatalogueRefreshSpec, sessionSweepInterval)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	handlers.InitializeHandlers(handlers.Dependencies{
		Catalogue:    catalogue,
		Sessions:     sessions,
		Editor:       services.NewCatalogueEditor(conns.store, images, catalogue, cfg.StorageBucket),
		Profiles:     services.NewProfileService(profileStore),
		Muse:         services.NewMuse(cfg.GeminiBaseURL, cfg.GeminiKey(), cfg.GeminiModel),
		Auth:         authenticator,
		AdminKeyHash: cfg.AdminKeyHash,
		SessionTTL:   cfg.SessionTTL,
		MusePerMin:   cfg.MuseRatePerMinute,
		Production:   cfg.IsProduction(),
	})

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.ServerPort,
		Handler:           handlers.NewHandler(cfg.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{"addr": srv.Addr, "environment": cfg.Environment}).Info("Starting Fabrino Server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Shutting down server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	log.Info("Server exited")
	return nil
}

func migrate(*cli.Context) error {
	cfg := config.AppConfig
	if cfg.DatabaseURL == "" {
		return errors.New("migrate requires DATABASE_URL")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	return db.InitializeTables()
}

func seed(c *cli.Context) error {
	conns, err := connect(config.AppConfig)
	if err != nil {
		return err
	}
	defer conns.Close()
	if conns.store == nil {
		return errors.New("seed requires SUPABASE_URL and SUPABASE_ANON_KEY, or DATABASE_URL")
	}

	existing, err := conns.store.ListProducts(c.Context)
	if err != nil {
		return err
	}
	if len(existing) > 0 && !c.Bool("force") {
		log.WithField("count", len(existing)).Info("Backend already has products, skipping seed (use --force to seed anyway)")
		return nil
	}

	for _, p := range services.FallbackProducts() {
		if err := conns.store.InsertProduct(c.Context, models.InputFrom(p)); err != nil {
			return fmt.Errorf("seed %q: %w", p.Name, err)
		}
		log.WithField("name", p.Name).Info("Seeded product")
	}
	return nil
}
