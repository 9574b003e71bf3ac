package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/go-pkgz/auth/v2"
	"github.com/go-pkgz/auth/v2/avatar"
	"github.com/go-pkgz/auth/v2/logger"
	"github.com/go-pkgz/auth/v2/provider"
	"github.com/go-pkgz/auth/v2/token"
	"github.com/spf13/afero"
	"gopkg.in/natefinch/lumberjack.v2"

	"reeltrack/config"
	"reeltrack/handlers"
	"reeltrack/internal/docstore"
	mongostore "reeltrack/internal/docstore/mongo"
	sqlitestore "reeltrack/internal/docstore/sqlite"
	"reeltrack/services/accounts"
	"reeltrack/services/catalog"
	"reeltrack/services/medialist"
	"reeltrack/services/watchcache"
	"reeltrack/utils"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to the settings file (default <data>/reeltrack.toml)")
		dataDir    = flag.String("data", "./data", "data directory")
	)
	flag.Parse()

	if *configPath == "" {
		*configPath = filepath.Join(*dataDir, "reeltrack.toml")
	}

	fs := afero.NewOsFs()

	configManager, err := config.NewManager(fs, *configPath, *dataDir)
	if err != nil {
		log.Fatalf("[main] failed to load configuration: %v", err)
	}
	settings, err := configManager.Load()
	if err != nil {
		log.Fatalf("[main] failed to load configuration: %v", err)
	}

	if settings.Log.Path != "" {
		log.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   settings.Log.Path,
			MaxSize:    settings.Log.MaxSizeMB,
			MaxBackups: settings.Log.MaxBackups,
			MaxAge:     settings.Log.MaxAgeDays,
		}))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, settings)
	if err != nil {
		log.Fatalf("[main] failed to open document store: %v", err)
	}
	defer closeStore()

	accountsService, err := accounts.NewService(fs, settings.Server.DataDir)
	if err != nil {
		log.Fatalf("[main] failed to load accounts: %v", err)
	}

	listService := medialist.NewService(store)
	cacheManager := watchcache.NewManager(listService)
	catalogClient := catalog.NewClient(settings.Catalog.APIKey, settings.Catalog.BaseURL)
	if !catalogClient.HasCredentials() {
		log.Printf("[main] no catalog api key configured; discovery and search will fail")
	}

	authService := newAuthService(settings, accountsService)

	router := utils.NewRouter()

	authRoutes, avatarRoutes := authService.Handlers()
	router.PathPrefix("/auth").Handler(authRoutes)
	router.PathPrefix("/avatar").Handler(avatarRoutes)

	profileHandler := handlers.NewProfileHandler(accountsService, cacheManager, settings.Auth.AllowSignup)
	// Signup runs before a session exists, so it is registered outside the
	// authenticated subrouter.
	router.HandleFunc("/api/signup", profileHandler.Signup).Methods(http.MethodPost)

	api := router.PathPrefix("/api").Subrouter()
	middleware := authService.Middleware()
	api.Use(middleware.Auth)

	handlers.NewCatalogHandler(catalogClient).Register(api)
	handlers.NewMediaHandler(listService, cacheManager, accountsService).Register(api)
	profileHandler.Register(api)

	addr := settings.Server.Host + ":" + strconv.Itoa(settings.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		log.Printf("[main] reeltrack listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[main] server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("[main] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[main] shutdown error: %v", err)
	}
}

// openStore picks the document store backend from settings.
func openStore(ctx context.Context, settings *config.Settings) (docstore.Store, func(), error) {
	switch settings.Database.Backend {
	case "mongo":
		store, err := mongostore.New(ctx, mongostore.Config{
			URI:      settings.Database.MongoURI,
			Database: settings.Database.MongoDatabase,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close(context.Background()) }, nil
	default:
		store, err := sqlitestore.New(sqlitestore.Config{
			DatabasePath: settings.Database.SQLitePath,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	}
}

// newAuthService builds the session auth service with a direct credential
// provider backed by the local accounts registry.
func newAuthService(settings *config.Settings, accountsService *accounts.Service) *auth.Service {
	secret := settings.Auth.Secret

	service := auth.NewService(auth.Opts{
		SecretReader: token.SecretFunc(func(aud string) (string, error) {
			return secret, nil
		}),
		TokenDuration:  time.Duration(settings.Auth.TokenHours) * time.Hour,
		CookieDuration: time.Duration(settings.Auth.CookieDays) * 24 * time.Hour,
		Issuer:         "reeltrack",
		URL:            settings.Server.BaseURL,
		SecureCookies:  settings.Auth.SecureCookies,
		AvatarStore:    avatar.NewLocalFS(filepath.Join(settings.Server.DataDir, "avatars")),
		Validator: token.ValidatorFunc(func(_ string, claims token.Claims) bool {
			return claims.User != nil
		}),
		Logger:         logger.Std,
	})

	service.AddDirectProvider("local", provider.CredCheckerFunc(
		func(user, password string) (bool, error) {
			_, ok := accountsService.Verify(user, password)
			return ok, nil
		}))

	return service
}
