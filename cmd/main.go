package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"docvault/internal/auth"
	"docvault/internal/config"
	"docvault/internal/handler"
	"docvault/internal/ratelimit"
	"docvault/internal/repository"
	"docvault/internal/service"
	"docvault/internal/service/s3"
)

func connectWithRetry(cfg *config.Config, maxAttempts int, delay time.Duration) (*sqlx.DB, error) {
	dsn := cfg.Database.GetDSN()

	// Сначала подключаемся к системной базе postgres и при необходимости
	// создаем рабочую базу
	pgDSN := strings.Replace(dsn, "dbname="+cfg.Database.Name, "dbname=postgres", 1)
	pgDB, err := sqlx.Connect("postgres", pgDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres database: %v", err)
	}
	defer pgDB.Close()

	var exists bool
	err = pgDB.Get(&exists, "SELECT EXISTS(SELECT datname FROM pg_catalog.pg_database WHERE datname = $1)", cfg.Database.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to check database existence: %v", err)
	}

	if !exists {
		log.Printf("Database %s does not exist, creating...", cfg.Database.Name)
		_, err = pgDB.Exec("CREATE DATABASE " + cfg.Database.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %v", err)
		}
	}

	var db *sqlx.DB
	for i := 0; i < maxAttempts; i++ {
		db, err = sqlx.Connect("postgres", dsn)
		if err == nil {
			return db, nil
		}

		log.Printf("Failed to connect to database (attempt %d/%d): %v", i+1, maxAttempts, err)
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %v", maxAttempts, err)
}

func runMigrations(cfg *config.Config) error {
	databaseURL := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	var m *migrate.Migrate
	var err error

	for i := 0; i < 5; i++ {
		m, err = migrate.New("file://migrations", databaseURL)
		if err == nil {
			break
		}
		log.Printf("Failed to create migrate instance (attempt %d/5): %v", i+1, err)
		time.Sleep(time.Second * 5)
	}

	if err != nil {
		return fmt.Errorf("failed to create migrate instance after retries: %w", err)
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if dirty {
		log.Printf("Found dirty database state at version %d, attempting to force version", version)
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to force version: %w", err)
		}
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func main() {
	// Загружаем конфигурации
	appConfig, err := config.NewConfig(".app.env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := connectWithRetry(appConfig, 5, time.Second*5)
	if err != nil {
		log.Fatalf("Failed to connect to database after retries: %v", err)
	}
	defer db.Close()

	if err := runMigrations(appConfig); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	// Инициализация S3 клиента
	s3Config, err := s3.NewConfig(".s3.env")
	if err != nil {
		log.Fatalf("Failed to load S3 config: %v", err)
	}

	s3Client, err := s3.NewClient(s3Config)
	if err != nil {
		log.Fatalf("Failed to create S3 client: %v", err)
	}

	// Проверка bearer-токенов внешнего сервиса аутентификации
	authConfig, err := auth.NewConfig(".auth.env")
	if err != nil {
		log.Fatalf("Failed to load auth config: %v", err)
	}
	verifier := auth.NewVerifier(authConfig)

	// Инициализация репозиториев
	companyRepo := repository.NewCompanyRepository(db)
	folderRepo := repository.NewFolderRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	shareRepo := repository.NewShareRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	// Инициализация сервисов
	permissionService := service.NewPermissionService(companyRepo, documentRepo, shareRepo)
	companyService := service.NewCompanyService(companyRepo, folderRepo, permissionService)
	folderService := service.NewFolderService(folderRepo, permissionService)
	documentService := service.NewDocumentService(documentRepo, folderRepo, permissionService, s3Client)
	shareService := service.NewShareService(shareRepo, permissionService)
	tokenService := service.NewTokenService(tokenRepo, documentRepo, auditRepo)

	// Инициализация хендлеров
	companyHandler := handler.NewCompanyHandler(companyService)
	folderHandler := handler.NewFolderHandler(folderService)
	documentHandler := handler.NewDocumentHandler(documentService, tokenService, permissionService, appConfig.Server.BaseURL)
	shareHandler := handler.NewShareHandler(shareService)
	deliveryHandler := handler.NewDeliveryHandler(tokenService, s3Client)

	// Лимитер на неаутентифицированной поверхности выдачи
	deliveryLimiter := ratelimit.NewMemoryStore(5, 10)

	// Настройка HTTP роутера
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// HTTP маршруты
	r.Route("/v1", func(r chi.Router) {
		// Выдача по одноразовым токенам: без аутентификации, с лимитером
		r.Group(func(r chi.Router) {
			r.Use(ratelimit.Middleware(deliveryLimiter))
			r.Get("/documents/stream/{token}", deliveryHandler.Stream)
			r.Get("/documents/download/{token}", deliveryHandler.Download)
		})

		// Все остальное требует bearer-токен
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(verifier))

			r.Route("/companies", func(r chi.Router) {
				r.Post("/", companyHandler.CreateCompany)
				r.Get("/{companyID}", companyHandler.GetCompany)
				r.Post("/{companyID}/documents", documentHandler.Upload)
				r.Get("/{companyID}/folders/structure", folderHandler.GetStructure)
				r.Post("/{companyID}/shares", shareHandler.ShareCompany)
				r.Delete("/{companyID}/shares/{userID}", shareHandler.RevokeCompanyShare)
			})

			r.Route("/folders", func(r chi.Router) {
				r.Post("/", folderHandler.CreateFolder)
				r.Put("/{folderID}/rename", folderHandler.RenameFolder)
				r.Put("/{folderID}/move", folderHandler.MoveFolder)
			})

			r.Route("/documents/{uuid}", func(r chi.Router) {
				r.Get("/", documentHandler.GetDocument)
				r.Delete("/", documentHandler.DeleteDocument)
				r.Get("/versions", documentHandler.GetVersions)
				r.Post("/generate-token", documentHandler.GenerateToken)
				r.Post("/editor-url", documentHandler.EditorURL)
				r.Post("/shares", shareHandler.ShareDocument)
				r.Delete("/shares/{userID}", shareHandler.RevokeDocumentShare)
			})

			r.Get("/shares/shared-with-me", shareHandler.GetSharedWithMe)
		})
	})

	// Создаем HTTP сервер
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", appConfig.Server.Port),
		Handler: r,
	}

	// Канал для сигналов завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Запускаем HTTP сервер
	go func() {
		log.Printf("Starting HTTP server on port %s", appConfig.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	// Фоновая уборка: терминальные delivery-токены и простаивающие
	// записи лимитера
	cleanupTicker := time.NewTicker(1 * time.Hour)
	go func() {
		for {
			select {
			case <-cleanupTicker.C:
				ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
				removed, err := tokenRepo.DeleteTerminal(ctx)
				cancel()
				if err != nil {
					log.Printf("Error during token cleanup: %v", err)
				} else if removed > 0 {
					log.Printf("Token cleanup removed %d terminal tokens", removed)
				}
				deliveryLimiter.Cleanup(24 * time.Hour)
			case <-quit:
				cleanupTicker.Stop()
				return
			}
		}
	}()

	// Ожидаем сигнал завершения
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server forced to shutdown: %v", err)
	}

	if err := db.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	}

	log.Println("Server exited properly")
}
