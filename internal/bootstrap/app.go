package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"policydesk-backend/internal/documents"
	"policydesk-backend/internal/export"
	"policydesk-backend/internal/llm"
	openai "policydesk-backend/internal/llm/openai"
	"policydesk-backend/internal/processing"
	"policydesk-backend/internal/settings"
	"policydesk-backend/internal/shared/config"
	"policydesk-backend/internal/shared/server"
	"policydesk-backend/internal/shared/storage/db"
	"policydesk-backend/internal/shared/storage/object"
	localstore "policydesk-backend/internal/shared/storage/object/local"
	miniostore "policydesk-backend/internal/shared/storage/object/minio"
	s3store "policydesk-backend/internal/shared/storage/object/s3"
	"policydesk-backend/internal/summaries"
)

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore

	DocumentsRepo documents.DocumentsRepo
	SummariesRepo summaries.Repo
	SettingsRepo  settings.Repo

	DocumentsService  *documents.Service
	SummariesService  *summaries.Service
	ProcessingService *processing.Service
	SettingsService   *settings.Service
	ExportService     *export.Service

	DocumentsHandler  *documents.Handler
	SummariesHandler  *summaries.Handler
	ProcessingHandler *processing.Handler
	SettingsHandler   *settings.Handler
	ExportHandler     *export.Handler
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		Router: nil,
		DB:     sqlDB,
		Store:  store,
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:            app.Config,
		DocumentsHandler:  app.DocumentsHandler,
		SummariesHandler:  app.SummariesHandler,
		ProcessingHandler: app.ProcessingHandler,
		SettingsHandler:   app.SettingsHandler,
		ExportHandler:     app.ExportHandler,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: migrations failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "minio":
		return miniostore.New(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildLLM(cfg config.Config) (llm.Client, error) {
	if cfg.ExtractionProvider != "openai" {
		return llm.PlaceholderClient{}, nil
	}
	if strings.TrimSpace(cfg.ExtractionAPIKey) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: OPENAI_API_KEY empty; extraction runs against the placeholder client")
			return llm.PlaceholderClient{}, nil
		}
		return nil, fmt.Errorf("OPENAI_API_KEY is required when EXTRACTION_PROVIDER=openai")
	}
	return openai.NewClient(cfg.ExtractionAPIKey, cfg.ExtractionModel)
}

func buildServices(app *App) error {
	var docRepo documents.DocumentsRepo
	var versionRepo summaries.Repo
	var settingsRepo settings.Repo

	if app.DB != nil {
		docRepo = &documents.PGRepo{DB: app.DB}
		versionRepo = &summaries.PGRepo{DB: app.DB}
		settingsRepo = &settings.PGRepo{DB: app.DB}
	} else {
		memDocs := documents.NewMemoryRepo()
		docRepo = memDocs
		versionRepo = summaries.NewMemoryRepo(memDocs)
		settingsRepo = settings.NewMemoryRepo()
	}

	llmClient, err := buildLLM(app.Config)
	if err != nil {
		return err
	}

	docSvc := &documents.Service{Repo: docRepo}
	versionSvc := &summaries.Service{Repo: versionRepo, Docs: docRepo}
	settingsSvc := settings.NewService(settingsRepo)
	processingSvc := &processing.Service{
		Docs:     docRepo,
		Versions: versionRepo,
		Store:    app.Store,
		LLM:      llmClient,
		Provider: app.Config.ExtractionProvider,
		Model:    app.Config.ExtractionModel,
		Timeout:  app.Config.ExtractionTimeout,
	}
	exportSvc := export.NewService(docRepo, settingsSvc)

	app.DocumentsRepo = docRepo
	app.SummariesRepo = versionRepo
	app.SettingsRepo = settingsRepo
	app.DocumentsService = docSvc
	app.SummariesService = versionSvc
	app.ProcessingService = processingSvc
	app.SettingsService = settingsSvc
	app.ExportService = exportSvc
	app.DocumentsHandler = documents.NewHandler(docSvc)
	app.SummariesHandler = summaries.NewHandler(versionSvc)
	app.ProcessingHandler = processing.NewHandler(processingSvc)
	app.SettingsHandler = settings.NewHandler(settingsSvc)
	app.ExportHandler = export.NewHandler(exportSvc)

	if app.DocumentsHandler == nil || app.ProcessingHandler == nil || app.SummariesHandler == nil {
		return errors.New("failed to initialize handlers")
	}

	return nil
}
