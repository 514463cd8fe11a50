package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hanulsoft/blogpilot/config"
	"github.com/hanulsoft/blogpilot/internal/api/v1/handlers"
	"github.com/hanulsoft/blogpilot/internal/app"
	"github.com/hanulsoft/blogpilot/internal/browser"
	"github.com/hanulsoft/blogpilot/internal/constants"
	"github.com/hanulsoft/blogpilot/internal/credentials"
	"github.com/hanulsoft/blogpilot/internal/db"
	"github.com/hanulsoft/blogpilot/internal/db/repos"
	"github.com/hanulsoft/blogpilot/internal/events"
	"github.com/hanulsoft/blogpilot/internal/logger"
	"github.com/hanulsoft/blogpilot/internal/pipeline"
	"github.com/hanulsoft/blogpilot/internal/ratelimit"
	"github.com/hanulsoft/blogpilot/internal/services"
	"github.com/hanulsoft/blogpilot/internal/types"
)

func main() {
	// .env is optional in production, the environment may already be set
	_ = godotenv.Load()

	logger.InitializeAndConfigure()

	database, err := db.New(db.Options{
		SQLitePath: config.GetEnv(constants.EnvDBPath, db.DefaultSQLitePath),
		DSN:        os.Getenv(constants.EnvDBDSN),
	})
	if err != nil {
		logger.Fatalf("failed to open database: %v", err)
	}
	if err := db.Migrate(database); err != nil {
		logger.Fatalf("failed to migrate database: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events.Start(ctx)

	limiter := ratelimit.New(map[string]ratelimit.Budget{
		constants.ServiceGemini:       {Limit: 15, Window: time.Minute},
		constants.ServicePollinations: {Limit: 10, Window: time.Minute},
	})

	credStore := credentials.NewEnvStore()
	// Read the key per request so a key exported after startup is picked up
	geminiKey := func() string {
		creds, _ := credStore.Get()
		return creds.APIKeys[constants.ServiceGemini]
	}

	headless := config.GetEnv(constants.EnvHeadless, "true") == "true"

	jobRepo := repos.NewJobRepository(database)
	postRepo := repos.NewPostRepository(database)

	trendService := services.NewTrendService()
	geminiService := services.NewGeminiService(geminiKey, limiter)
	crawlerService := services.NewCrawlerService()

	var runner *services.JobRunner
	orchestrator := pipeline.New(pipeline.Config{
		Trends:  trendService,
		Content: geminiService,
		Images:  services.NewPollinationsService(limiter),
		NewAutomator: func(ctx context.Context) (pipeline.Automator, error) {
			return browser.NewSession(ctx, headless)
		},
		Creds:      credStore,
		Posts:      postRepo,
		References: crawlerService,
		Emit:       func(ev types.ProgressEvent) { runner.Record(ev) },
	})
	runner = services.NewJobRunner(jobRepo, postRepo, orchestrator.Run)

	topics := handlers.NewTopicHandler(geminiService, trendService, crawlerService)
	server := app.NewApp(runner, topics)

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		if active, ok := runner.Active(); ok {
			_ = runner.Cancel(active)
		}
		_ = server.ShutdownWithTimeout(10 * time.Second)
	}()

	addr := config.GetEnv(constants.EnvListenAddr, ":8080")
	logger.Infof("listening on %s", addr)
	if err := server.Listen(addr); err != nil {
		logger.Fatalf("server stopped: %v", err)
	}
}
