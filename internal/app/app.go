package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"redirect-manager/internal/config"
	"redirect-manager/internal/database"
	"redirect-manager/internal/handler"
	"redirect-manager/internal/middleware"
	"redirect-manager/internal/model"
	"redirect-manager/internal/proxy"
	"redirect-manager/internal/repository"
	"redirect-manager/internal/router"
	"redirect-manager/internal/service"
)

type App struct {
	server *http.Server
	db     *database.DB
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	pool := db.Pool
	userRepo := repository.NewUserRepository(pool)
	refreshTokenRepo := repository.NewRefreshTokenRepository(pool)
	apiTokenRepo := repository.NewAPITokenRepository(pool)
	redirectRepo := repository.NewRedirectRepository(pool)
	slog.Info("database ready")

	jwtService := service.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL)
	authService := service.NewAuthService(userRepo, refreshTokenRepo, jwtService,
		cfg.TokenHashPeppers, cfg.TokenHashAlgo, cfg.RefreshTokenTTL)
	apiTokenService := service.NewAPITokenService(apiTokenRepo, slog.Default(),
		cfg.TokenHashPeppers, cfg.TokenHashAlgo)
	userService := service.NewUserService(userRepo, refreshTokenRepo, cfg.PasswordHashCost)

	directResolver := service.NewDirectResolver(redirectRepo)
	var resolver interface {
		Resolve(ctx context.Context, path string) (*model.RuleMatch, error)
		Purge()
	} = directResolver
	if cfg.CacheEnabled {
		resolver = service.NewCachedResolver(directResolver, cfg.CacheTTL)
		slog.Info("resolution cache enabled", "ttl", cfg.CacheTTL.String())
	}
	redirectService := service.NewRedirectService(redirectRepo, resolver)

	if err := bootstrapAdmin(context.Background(), cfg, userRepo, userService); err != nil {
		db.Close()
		return nil, err
	}

	forwarder, err := proxy.NewForwarder(cfg.ProxyTargetURL, cfg.ProxyTimeout,
		cfg.ProxyHopByHop, cfg.ProxyCustomHeaders, slog.Default())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize proxy forwarder: %w", err)
	}

	authMiddleware := middleware.NewAuthMiddleware(jwtService, apiTokenService, userRepo)
	authHandler := handler.NewAuthHandler(authService, jwtService, cfg.RefreshTokenTTL)
	userHandler := handler.NewUserHandler(userService)
	apiTokenHandler := handler.NewAPITokenHandler(apiTokenService)
	redirectHandler := handler.NewRedirectHandler(redirectService)
	resolveHandler := handler.NewResolveHandler(redirectService, forwarder)

	appRouter := router.New(cfg, authMiddleware, authHandler, userHandler,
		apiTokenHandler, redirectHandler, resolveHandler)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{server: server, db: db}, nil
}

// bootstrapAdmin creates the configured first admin account when no user
// with that name exists yet. Without it a fresh deployment has no way to
// log in.
func bootstrapAdmin(ctx context.Context, cfg *config.Config, users *repository.UserRepository, userService *service.UserService) error {
	if cfg.BootstrapAdminUsername == "" || cfg.BootstrapAdminPassword == "" {
		return nil
	}

	_, err := users.FindByUsername(ctx, cfg.BootstrapAdminUsername)
	if err == nil {
		return nil
	}
	if !errors.Is(err, model.ErrUserNotFound) {
		return fmt.Errorf("failed to check bootstrap admin: %w", err)
	}

	_, err = userService.Create(ctx, model.CreateUserRequest{
		Username: cfg.BootstrapAdminUsername,
		Password: cfg.BootstrapAdminPassword,
		Role:     model.RoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("failed to create bootstrap admin: %w", err)
	}

	slog.Info("bootstrap admin created", "username", cfg.BootstrapAdminUsername)
	return nil
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	defer a.db.Close()

	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
