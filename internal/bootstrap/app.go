package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-tailor-backend/internal/jobsearch"
	"resume-tailor-backend/internal/llm"
	"resume-tailor-backend/internal/llm/ollama"
	"resume-tailor-backend/internal/render"
	"resume-tailor-backend/internal/resumes"
	"resume-tailor-backend/internal/shared/config"
	"resume-tailor-backend/internal/shared/server"
	"resume-tailor-backend/internal/shared/storage/db"
	"resume-tailor-backend/internal/shared/storage/object"
	localstore "resume-tailor-backend/internal/shared/storage/object/local"
	s3store "resume-tailor-backend/internal/shared/storage/object/s3"
	"resume-tailor-backend/internal/tailoring"
)

// App holds shared dependencies, wired and ready to serve.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	LLM    llm.Client

	ResumesRepo   resumes.Repo
	TailoringRepo tailoring.Repo

	SearchService    *jobsearch.Service
	ResumesService   *resumes.Service
	TailoringService *tailoring.Service

	SearchHandler    *jobsearch.Handler
	ResumeHandler    *resumes.Handler
	TailoringHandler *tailoring.Handler
	RenderHandler    *render.Handler
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

	llmClient, err := buildLLM(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		LLM:    llmClient,
	}
	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:           app.Config,
		SearchHandler:    app.SearchHandler,
		ResumeHandler:    app.ResumeHandler,
		TailoringHandler: app.TailoringHandler,
		RenderHandler:    app.RenderHandler,
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
		_ = sqlDB.Close()
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: migrations failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildLLM(cfg config.Config) (llm.Client, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.LLMProvider)) {
	case "", "ollama":
		return ollama.NewClient(cfg.OllamaBaseURL, cfg.LLMModel)
	default:
		log.Printf("bootstrap: unknown LLM_PROVIDER %q; using placeholder client", cfg.LLMProvider)
		return llm.PlaceholderClient{}, nil
	}
}

func buildServices(app *App) {
	if app.DB != nil {
		app.ResumesRepo = &resumes.PGRepo{DB: app.DB}
		app.TailoringRepo = &tailoring.PGRepo{DB: app.DB}
	} else {
		app.ResumesRepo = resumes.NewMemoryRepo()
		app.TailoringRepo = tailoring.NewMemoryRepo()
	}

	app.SearchService = jobsearch.NewService(
		jobsearch.NewRemoteOKSource(app.Config.RemoteOKURL, nil),
		jobsearch.NewWWRSource(app.Config.WWRBoardURL, nil),
	)
	app.ResumesService = resumes.NewService(
		app.ResumesRepo,
		app.Store,
		app.LLM,
		app.Config.UploadPrefix,
		app.Config.TaskTimeout,
	)
	app.TailoringService = tailoring.NewService(
		app.TailoringRepo,
		app.ResumesRepo,
		app.Store,
		app.LLM,
		app.Config.TailoredPrefix,
		app.Config.TaskTimeout,
	)

	app.SearchHandler = jobsearch.NewHandler(app.SearchService)
	app.ResumeHandler = resumes.NewHandler(app.ResumesService)
	app.TailoringHandler = tailoring.NewHandler(app.TailoringService)
	app.RenderHandler = render.NewHandler(app.Store, app.Config.TailoredPrefix)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
