package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/inkwelldocs/inkwell/internal/cache"
	"github.com/inkwelldocs/inkwell/internal/config"
	db "github.com/inkwelldocs/inkwell/internal/core/database"
	"github.com/inkwelldocs/inkwell/internal/core/lang"
	"github.com/inkwelldocs/inkwell/internal/core/llm"
	"github.com/inkwelldocs/inkwell/internal/core/ner"
	"github.com/inkwelldocs/inkwell/internal/core/ocr"
	objectclient "github.com/inkwelldocs/inkwell/internal/core/object-client"
	"github.com/inkwelldocs/inkwell/internal/index"
	"github.com/inkwelldocs/inkwell/internal/jobs"
	"github.com/inkwelldocs/inkwell/internal/services"
)

type App struct {
	DBClient     *db.DatabaseClient
	ObjectClient *objectclient.S3Client
	Embedder     *llm.GeminiEmbedder
	QABackend    *llm.GeminiQA
	Cache        *cache.RedisCache
	Server       *Server

	log *zap.Logger
}

func NewApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("database init: %w", err)
	}
	log.Info("database initialized and ready")

	objClient, err := objectclient.NewS3Client(appCtx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("object client init: %w", err)
	}
	log.Info("object client initialized and ready")

	embedder, err := llm.NewGeminiEmbedder(appCtx, cfg.AIAPIKey, cfg.EmbedModel)
	if err != nil {
		return nil, fmt.Errorf("embedder init: %w", err)
	}
	qaBackend, err := llm.NewGeminiQA(appCtx, cfg.AIAPIKey, cfg.QAModel, cfg.QAModelPro)
	if err != nil {
		return nil, fmt.Errorf("qa backend init: %w", err)
	}

	embeddingCache := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisDB, log)
	vectorIndex := index.NewPgvector(dbClient.DB())

	embeddingSvc := services.NewEmbeddingService(embedder, embeddingCache)
	retrievalSvc := services.NewRetrievalService(dbClient, vectorIndex, embeddingSvc, log)

	qaSvc := services.NewQAService(qaBackend, log)
	qaSvc.MaxContextChars = cfg.QAMaxContextChars

	extractionSvc := services.NewExtractionService(
		dbClient,
		objClient,
		ocr.NewPDFPageReader(),
		ocr.NewPDFRasterizer(),
		ocr.NewTesseract(cfg.OCRLanguages),
		lang.NewDetector(),
		log,
	)
	extractionSvc.Bucket = cfg.BucketName
	extractionSvc.MinTextLength = cfg.OCRMinTextLength
	extractionSvc.ChunkSize = cfg.ChunkSize
	extractionSvc.ChunkOverlap = cfg.ChunkOverlap
	extractionSvc.ScratchDir = cfg.ScratchDir

	documentSvc := services.NewDocumentService(dbClient, objClient, cfg.BucketName)
	userSvc := services.NewUserService(dbClient)
	jobStore := jobs.NewStore()

	server := NewServer(cfg, &Handlers{
		Users:      userSvc,
		Documents:  documentSvc,
		Extraction: extractionSvc,
		Retrieval:  retrievalSvc,
		QA:         qaSvc,
		Entities:   ner.NewProseExtractor(),
		DB:         dbClient,
		Jobs:       jobStore,
	}, log)

	return &App{
		DBClient:     dbClient,
		ObjectClient: objClient,
		Embedder:     embedder,
		QABackend:    qaBackend,
		Cache:        embeddingCache,
		Server:       server,
		log:          log,
	}, nil
}

func (a *App) Close() {
	if a.Embedder != nil {
		_ = a.Embedder.Close()
	}
	if a.QABackend != nil {
		_ = a.QABackend.Close()
	}
	if a.Cache != nil {
		_ = a.Cache.Close()
	}
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
