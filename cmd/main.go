package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/lshigami/fluency/config"
	"github.com/lshigami/fluency/database"
	adminctrl "github.com/lshigami/fluency/internal/controller/admin"
	userctrl "github.com/lshigami/fluency/internal/controller/user"
	"github.com/lshigami/fluency/internal/logger"
	"github.com/lshigami/fluency/internal/metrics"
	"github.com/lshigami/fluency/internal/objectstore"
	"github.com/lshigami/fluency/internal/repository"
	"github.com/lshigami/fluency/internal/service"
	"github.com/lshigami/fluency/internal/worker"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// @title Reading Fluency Evaluation API
// @version 1.0
// @description Scores read-aloud recordings: comprehension answers, transcription, AI evaluation and LUS normalisation.
// @BasePath /api/v1
func main() {
	app := fx.New(
		fx.NopLogger,

		// Core Application Components
		fx.Provide(
			config.NewConfig,
			database.NewDatabase,
			NewGinEngine,
		),

		// Repositories Layer
		fx.Provide(
			repository.NewPassageRepository,
			repository.NewQuestionRepository,
			repository.NewRecordingRepository,
			repository.NewAssessmentRepository,
			repository.NewAIEvaluationRepository,
		),

		// External clients
		fx.Provide(
			NewBlobStore,
			NewTranscriber,
			NewLanguageModel,
			func(cfg *config.Config) *worker.Queue { return worker.NewQueue(cfg.Worker.QueueSize) },
		),

		// Services Layer
		fx.Provide(
			func(cfg *config.Config) service.LUSConverterService {
				return service.NewLUSConverterService(cfg.Evaluation.Weights)
			},
			func(cfg *config.Config, blobs objectstore.BlobStore, t service.Transcriber) service.TranscriptionService {
				return service.NewTranscriptionService(blobs, t, cfg.Evaluation.TranscriptionTimeout)
			},
			func(cfg *config.Config, llm service.LanguageModel) service.AIEvaluationService {
				return service.NewAIEvaluationService(llm, cfg.Evaluation.EvaluationTimeout)
			},
			func(
				cfg *config.Config,
				recordingRepo repository.RecordingRepository,
				questionRepo repository.QuestionRepository,
				assessmentRepo repository.AssessmentRepository,
			) service.RubricService {
				return service.NewRubricService(recordingRepo, questionRepo, assessmentRepo, cfg.Evaluation.CorrectnessThreshold)
			},
			func(
				cfg *config.Config,
				recordingRepo repository.RecordingRepository,
				passageRepo repository.PassageRepository,
				aiEvaluationRepo repository.AIEvaluationRepository,
				transcription service.TranscriptionService,
				aiEvaluation service.AIEvaluationService,
				lusConverter service.LUSConverterService,
				queue *worker.Queue,
			) service.EvaluationService {
				return service.NewEvaluationService(recordingRepo, passageRepo, aiEvaluationRepo,
					transcription, aiEvaluation, lusConverter, queue, cfg.Evaluation.DefaultLanguage)
			},
			service.NewStatisticsService,
			service.NewPassageService,
			service.NewRecordingService,
		),

		// API Controllers Layer
		fx.Provide(
			userctrl.NewPassageController,
			userctrl.NewRecordingController,
			adminctrl.NewContentAdminController,
			adminctrl.NewEvaluationAdminController,
		),

		fx.Invoke(InitLogger),
		fx.Invoke(AutoMigrateDB),
		fx.Invoke(StartWorkers),
		fx.Invoke(RegisterRoutesAndStartServer),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-app.Done()
	log.Info().Msg("Application shutting down gracefully...")

	stopCtx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

func InitLogger(cfg *config.Config) {
	logger.Init(cfg.Log.Level, cfg.Log.Pretty)
}

func AutoMigrateDB(db *gorm.DB) error {
	return database.AutoMigrate(db)
}

// NewBlobStore provides the MinIO store and makes sure its bucket exists.
func NewBlobStore(lc fx.Lifecycle, cfg *config.Config) (objectstore.BlobStore, error) {
	store, err := objectstore.NewMinioStore(cfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := store.EnsureBucket(ctx); err != nil {
				log.Warn().Err(err).Msg("Could not verify audio bucket, transcription may fail")
			}
			return nil
		},
	})
	return store, nil
}

// NewTranscriber picks the speech-to-text backend from STT_PROVIDER.
func NewTranscriber(lc fx.Lifecycle, cfg *config.Config) (service.Transcriber, error) {
	if cfg.Speech.Provider != "google" {
		log.Info().Str("endpoint", cfg.Speech.Endpoint).Str("model", cfg.Speech.Model).Msg("Using HTTP speech-to-text backend")
		return service.NewHTTPTranscriber(cfg), nil
	}

	t, err := service.NewGoogleSpeechTranscriber(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	log.Info().Msg("Using Google Cloud Speech-to-Text backend")
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return t.Close() },
	})
	return t, nil
}

func NewLanguageModel(lc fx.Lifecycle, cfg *config.Config) (service.LanguageModel, error) {
	llm, err := service.NewGeminiLLMService(cfg)
	if err != nil {
		return nil, err
	}
	if closer, ok := llm.(io.Closer); ok {
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error { return closer.Close() },
		})
	}
	return llm, nil
}

// StartWorkers runs the evaluation pool for the lifetime of the app. On
// stop the queue is closed and queued tasks are drained.
func StartWorkers(lc fx.Lifecycle, cfg *config.Config, queue *worker.Queue, evaluations service.EvaluationService) {
	pool := worker.NewPool(cfg.Worker.Count, queue, evaluations.HandleTask)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			pool.Start(context.Background())
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return pool.Shutdown(ctx)
		},
	})
}

func NewGinEngine(cfg *config.Config) *gin.Engine {
	if cfg.Log.Pretty {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = 32 << 20

	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		log.Info().
			Str("client_ip", param.ClientIP).
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status_code", param.StatusCode).
			Dur("latency", param.Latency).
			Str("user_agent", param.Request.UserAgent()).
			Str("error_message", param.ErrorMessage).
			Msg("gin_request")
		return ""
	}))
	r.Use(gin.Recovery())
	r.Use(metrics.GinMiddleware())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	return r
}

// RegisterRoutesAndStartServer configures API routes and manages server lifecycle.
func RegisterRoutesAndStartServer(
	lc fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	passageCtrl *userctrl.PassageController,
	recordingCtrl *userctrl.RecordingController,
	contentCtrl *adminctrl.ContentAdminController,
	evaluationCtrl *adminctrl.EvaluationAdminController,
) {
	api := router.Group("/api/v1")
	passageCtrl.RegisterRoutes(api)
	recordingCtrl.RegisterRoutes(api)
	contentCtrl.RegisterRoutes(api)
	evaluationCtrl.RegisterRoutes(api)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Reading evaluation API server starting on port %s", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal().Err(err).Msg("Server ListenAndServe failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Server shutting down...")
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}
