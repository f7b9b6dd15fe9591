package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/fjod/go_shop/config"
	"github.com/fjod/go_shop/internal/cache"
	"github.com/fjod/go_shop/internal/events"
	h "github.com/fjod/go_shop/internal/http"
	"github.com/fjod/go_shop/internal/repository"
	"github.com/fjod/go_shop/internal/service"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

type storage struct {
	db       *mongo.Database
	carts    repository.CartRepository
	products repository.ProductRepository
	users    repository.UserRepository
}

type App struct {
	ctx         context.Context
	cfg         config.Config
	storage     storage
	redisClient *redis.Client
	cartCache   cache.CartCache
	publisher   events.Publisher
	httpServer  *http.Server
}

func New(ctx context.Context, cfg config.Config) *App {
	app := &App{ctx: ctx, cfg: cfg}

	app.initLogger()
	app.initStorage()
	app.initCache()
	app.initEvents()
	app.initHTTPServer()

	return app
}

func (app *App) initLogger() {
	level, _ := app.cfg.SlogLevel()
	opts := &slog.HandlerOptions{Level: level}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, opts))
	slog.SetDefault(logger)
}

func (app *App) initStorage() {
	const op = "App.initStorage"

	migrationsURL, err := app.cfg.MigrationsURL()
	if err != nil {
		app.fallDown(op, err)
	}
	if err := repository.RunMigrations(migrationsURL, app.cfg.Mongo.MigrationsPath); err != nil {
		app.fallDown(op, err)
	}

	ctx, cancel := context.WithTimeout(app.ctx, 10*time.Second)
	defer cancel()

	db, err := repository.ConnectMongoDB(ctx, app.cfg.Mongo.URI, app.cfg.Mongo.Database)
	if err != nil {
		app.fallDown(op, err)
	}

	app.storage = storage{
		db:       db,
		carts:    repository.NewMongoCartRepository(db),
		products: repository.NewMongoProductRepository(db),
		users:    repository.NewMongoUserRepository(db),
	}
	slog.Info("connected to MongoDB", "op", op, "database", app.cfg.Mongo.Database)
}

func (app *App) initCache() {
	const op = "App.initCache"

	app.redisClient = redis.NewClient(&redis.Options{
		Addr:     app.cfg.Redis.Addr,
		Password: app.cfg.Redis.Password,
		DB:       app.cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(app.ctx, 5*time.Second)
	defer cancel()
	if err := app.redisClient.Ping(ctx).Err(); err != nil {
		// carts are still served from MongoDB while Redis is down
		slog.Warn("redis unavailable", "op", op, "addr", app.cfg.Redis.Addr, "err", err)
	}

	app.cartCache = cache.NewBreakerCache(
		cache.NewRedisCache(app.redisClient),
		cache.BreakerSettings{Name: "cart-cache"},
	)
}

func (app *App) initEvents() {
	const op = "App.initEvents"

	if len(app.cfg.Kafka.Brokers) == 0 {
		slog.Info("no kafka brokers configured, cart events disabled", "op", op)
		app.publisher = events.NopPublisher{}
		return
	}
	app.publisher = events.NewKafkaPublisher(app.cfg.Kafka.CartTopic, app.cfg.Kafka.Brokers...)
}

func (app *App) initHTTPServer() {
	const op = "App.initHTTPServer"

	if app.cfg.Auth.JWTSecret == "" {
		app.fallDown(op, errors.New("auth.jwt_secret is required"))
	}

	catalog := service.NewCatalogService(app.storage.products)
	carts := service.NewCartService(
		app.storage.carts,
		app.storage.products,
		app.storage.users,
		app.cartCache,
		app.publisher,
		service.WithMaxAttempts(app.cfg.Cart.MaxRetries),
	)

	router := h.NewRouter(catalog, carts, h.RouterConfig{
		JWTSecret:      []byte(app.cfg.Auth.JWTSecret),
		RequestTimeout: app.cfg.HTTP.RequestTimeout,
	})

	app.httpServer = &http.Server{
		Addr:         app.cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: app.cfg.HTTP.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Run serves HTTP in the background; stop is called if the server dies.
func (app *App) Run(stop context.CancelFunc) {
	const op = "App.Run"

	go func() {
		slog.Info("HTTP server starting", "op", op, "addr", app.cfg.HTTP.Addr)
		if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "op", op, "err", err)
			stop()
		}
	}()
}

func (app *App) Close(ctx context.Context) {
	const op = "App.Close"

	slog.Info("shutting down server...", "op", op)
	if err := app.httpServer.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "op", op, "err", err)
	}
	if err := app.publisher.Close(); err != nil {
		slog.Error("failed to close publisher", "op", op, "err", err)
	}
	if err := app.redisClient.Close(); err != nil {
		slog.Error("failed to close redis client", "op", op, "err", err)
	}
	if err := app.storage.db.Client().Disconnect(ctx); err != nil {
		slog.Error("failed to disconnect MongoDB", "op", op, "err", err)
	}
	slog.Info("server exited", "op", op)
}

func (app *App) fallDown(op string, err error) {
	slog.Error("failed to start", "op", op, "err", err)
	os.Exit(1)
}
