package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/paavan-1234/minutes-backend/config"
	"github.com/paavan-1234/minutes-backend/internal/analysis"
	"github.com/paavan-1234/minutes-backend/internal/api/handlers"
	"github.com/paavan-1234/minutes-backend/internal/api/middleware"
	"github.com/paavan-1234/minutes-backend/internal/api/routes"
	"github.com/paavan-1234/minutes-backend/internal/cache"
	"github.com/paavan-1234/minutes-backend/internal/logger"
	"github.com/paavan-1234/minutes-backend/internal/metrics"
	"github.com/paavan-1234/minutes-backend/internal/progress"
	"github.com/paavan-1234/minutes-backend/internal/providers/llm"
	"github.com/paavan-1234/minutes-backend/internal/providers/stt"
	mongorepo "github.com/paavan-1234/minutes-backend/internal/repositories/mongo"
	pgrepo "github.com/paavan-1234/minutes-backend/internal/repositories/postgres"
	"github.com/paavan-1234/minutes-backend/internal/services"
	"github.com/paavan-1234/minutes-backend/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/api/option"
)

func runServe(cmd *cobra.Command) error {
	s, err := config.LoadSettings()
	if err != nil {
		return err
	}
	log := logger.New()
	log.SetLevel(logger.ParseLevel(s.LogLevel))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Init PostgreSQL
	if err := config.InitPostgres(s, log); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	log.Info("PostgreSQL connected")

	// Init Redis (optional)
	redisOK, err := config.InitRedis(s)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if redisOK {
		log.Info("Redis connected")
		defer config.RedisClient.Close()
	}

	// Init MongoDB (optional)
	mongoOK, err := config.InitMongo(s)
	if err != nil {
		return fmt.Errorf("mongo: %w", err)
	}
	if mongoOK {
		if err := config.EnsureMongoIndexes(); err != nil {
			return fmt.Errorf("mongo indexes: %w", err)
		}
		log.Info("MongoDB connected")
		defer config.MongoClient.Disconnect(context.Background())
	}

	var gopts []option.ClientOption
	if s.GCPCredentialsFile != "" {
		gopts = append(gopts, option.WithCredentialsFile(s.GCPCredentialsFile))
	}

	sttProvider, err := newSTT(ctx, s, gopts)
	if err != nil {
		return fmt.Errorf("stt: %w", err)
	}
	defer sttProvider.Close()

	accurate, fast, err := newLLMs(ctx, s, gopts)
	if err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	defer accurate.Close()

	temps, err := storage.NewTempStore(s.UploadDir)
	if err != nil {
		return fmt.Errorf("upload dir: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	pm, err := metrics.NewPipeline(reg)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	db := config.PostgresDB
	meetings := pgrepo.NewMeetingRepo(db)
	transcripts := pgrepo.NewTranscriptRepo(db)
	emotions := pgrepo.NewEmotionSegmentRepo(db)
	summaries := pgrepo.NewSummaryRepo(db)
	tasks := pgrepo.NewTaskRepo(db)

	// redis backs both cache and progress when present; otherwise everything stays in process
	var (
		detailCache cache.Cache
		broker      progress.Broker
	)
	if redisOK {
		detailCache = cache.NewRedisCache(config.RedisClient, "minutes:", s.CacheTTL)
		broker = progress.NewRedisBroker(config.RedisClient)
	} else {
		detailCache = cache.NewMemoryCache(s.CacheTTL)
		broker = progress.NewMemoryBroker()
	}

	var runs mongorepo.RunRepository
	if mongoOK {
		runs = mongorepo.NewRunRepo(config.MongoDB)
	}

	deps := services.IngestionDeps{
		Temps:       temps,
		STT:         sttProvider,
		Language:    s.STTLanguage,
		Tone:        analysis.NewToneAnalyzer(accurate),
		SegmentTone: analysis.NewSegmentToneAnalyzer(fast),
		Writer:      services.NewMeetingWriter(meetings, transcripts, emotions, summaries, tasks, s.DBTimeout),
		Tracker:     services.NewRunTracker(runs, broker, pm, log, s.RunTTL),
		Metrics:     pm,
		Timeouts: services.Timeouts{
			STT:     s.STTTimeout,
			LLM:     s.LLMTimeout,
			Archive: s.ArchiveTimeout,
		},
	}
	if s.EnableSummary {
		deps.Summaries = analysis.NewSummaryExtractor(accurate)
	}
	if s.GCSBucket != "" {
		up, err := storage.NewGCSUploader(ctx, s.GCSBucket, gopts...)
		if err != nil {
			return fmt.Errorf("gcs: %w", err)
		}
		defer up.Close()
		deps.Archive = up
	}

	meetingSvc := services.NewMeetingService(meetings, transcripts, emotions, summaries, tasks, detailCache, s.CacheTTL, log)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))
	routes.RegisterRoutes(r, routes.Deps{
		Meetings: handlers.NewMeetingHandler(services.NewIngestionService(deps), meetingSvc, s.MaxUploadMB),
		Runs:     handlers.NewRunHandler(services.NewRunService(runs), broker),
		Gatherer: reg,
	})

	return serve(ctx, log, r, ":"+s.Port)
}

func newSTT(ctx context.Context, s *config.Settings, gopts []option.ClientOption) (stt.Provider, error) {
	if s.STTProvider == "whisper" {
		return stt.NewWhisper(s.WhisperBaseURL, s.WhisperAPIKey, s.WhisperModel, nil), nil
	}
	return stt.NewGoogleSpeech(ctx, gopts...)
}

// newLLMs returns the accurate and fast tier providers. Closing the accurate one
// releases the shared client.
func newLLMs(ctx context.Context, s *config.Settings, gopts []option.ClientOption) (llm.Provider, llm.Provider, error) {
	if s.LLMProvider == "openai" {
		return llm.NewOpenAIChat(s.OpenAIBaseURL, s.OpenAIAPIKey, s.LLMModelAccurate, nil),
			llm.NewOpenAIChat(s.OpenAIBaseURL, s.OpenAIAPIKey, s.LLMModelFast, nil),
			nil
	}
	accurate, err := llm.NewVertexGemini(ctx, s.GCPProject, s.GCPLocation, s.LLMModelAccurate, gopts...)
	if err != nil {
		return nil, nil, err
	}
	return accurate, accurate.WithModel(s.LLMModelFast), nil
}

func serve(ctx context.Context, log logrus.FieldLogger, h http.Handler, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
