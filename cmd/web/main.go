package main

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/Manty2503/demo-final/internal/ai"
	"github.com/Manty2503/demo-final/internal/broker"
	"github.com/Manty2503/demo-final/internal/envstruct"
	"github.com/Manty2503/demo-final/internal/errors"
	"github.com/Manty2503/demo-final/internal/interview"
	"github.com/Manty2503/demo-final/internal/logging"
	"github.com/Manty2503/demo-final/internal/pprofserver"
	"github.com/Manty2503/demo-final/internal/questions"
	"github.com/Manty2503/demo-final/internal/realtime"
	"github.com/Manty2503/demo-final/internal/repositories"
	"github.com/Manty2503/demo-final/internal/sqlite"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
)

type application struct {
	logger         *slog.Logger
	cfg            config
	sessionManager *scs.SessionManager
	interviews     *repositories.InterviewRepository
	realtime       *realtime.Client
	evaluator      *ai.Evaluator
	catalog        questions.Catalog
	statuses       *broker.ChannelBroker[string, interview.Status]
	upgrader       websocket.Upgrader
}

type config struct {
	// Addr is the address to listen on. It's possible to choose the address dynamically with localhost:0.
	Addr string `env:"PARLEY_ADDR" envDefault:"localhost:4000"`
	// PprofPort is the loopback port for pprof. Empty disables the profiler.
	PprofPort string `env:"PARLEY_PPROF_PORT" envDefault:""`
	// SqliteURL is the URL to the SQLite database. You can use ":memory:" for an ethereal in-memory database.
	SqliteURL string `env:"PARLEY_SQLITE_URL" envDefault:"./parley.sqlite3"`
	// OpenAIAPIKey is the long-lived API key. It never leaves the server.
	OpenAIAPIKey       string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL      string        `env:"PARLEY_OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	RealtimeModel      string        `env:"PARLEY_REALTIME_MODEL" envDefault:"gpt-4o-realtime-preview-2024-12-17"`
	Voice              string        `env:"PARLEY_VOICE" envDefault:"alloy"`
	TranscriptionModel string        `env:"PARLEY_TRANSCRIPTION_MODEL" envDefault:"whisper-1"`
	VADSilence         time.Duration `env:"PARLEY_VAD_SILENCE" envDefault:"500ms"`
	EvaluationModel    string        `env:"PARLEY_EVALUATION_MODEL" envDefault:"gpt-4o-2024-08-06"`
	MaxSummaryLength   int           `env:"PARLEY_MAX_SUMMARY_LENGTH" envDefault:"1000"`
	// QuestionsFile is a YAML question catalog. Empty uses the bundled catalog.
	QuestionsFile      string        `env:"PARLEY_QUESTIONS_FILE" envDefault:""`
	ChannelOpenTimeout time.Duration `env:"PARLEY_CHANNEL_OPEN_TIMEOUT" envDefault:"10s"`
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		err error
		cfg config
		db  *sqlite.Database
	)

	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Initialise pprof listening on localhost so that it's not open to the world.
	if cfg.PprofPort != "" {
		if _, err = pprofserver.Launch(ctx, cfg.PprofPort, logger); err != nil {
			return errors.Wrap(err, "launch pprof server")
		}
	}

	if db, err = sqlite.NewDatabase(ctx, cfg.SqliteURL, logger); err != nil {
		return errors.Wrap(err, "open database", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "failed to close database", errors.SlogError(closeErr))
		}
	}()

	catalog, err := questions.LoadFile(cfg.QuestionsFile)
	if err != nil {
		return errors.Wrap(err, "load question catalog")
	}

	evaluator, err := ai.NewEvaluator(ai.Config{
		APIKey:           cfg.OpenAIAPIKey,
		BaseURL:          cfg.OpenAIBaseURL,
		Model:            cfg.EvaluationModel,
		MaxSummaryLength: cfg.MaxSummaryLength,
	}, logger)
	if err != nil {
		return errors.Wrap(err, "new evaluator")
	}

	sessionStore := sqlite3store.NewWithCleanupInterval(db.ReadWrite, 24*time.Hour) //nolint:mnd // daily
	defer sessionStore.StopCleanup()
	sessionManager := scs.New()
	sessionManager.Store = sessionStore
	sessionManager.Lifetime = 12 * time.Hour //nolint:mnd // half a day
	sessionManager.Cookie.Secure = true
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode

	statuses := broker.NewChannelBroker[string, interview.Status]()
	go statuses.Start(ctx)

	app := application{
		logger:         logger,
		cfg:            cfg,
		sessionManager: sessionManager,
		interviews:     repositories.NewInterviewRepository(db, logger),
		realtime: realtime.NewClient(realtime.Config{
			BaseURL:            cfg.OpenAIBaseURL,
			APIKey:             cfg.OpenAIAPIKey,
			Model:              cfg.RealtimeModel,
			Voice:              cfg.Voice,
			Modalities:         []string{"audio", "text"},
			TranscriptionModel: cfg.TranscriptionModel,
			VADSilence:         cfg.VADSilence,
		}, nil, logger),
		evaluator: evaluator,
		catalog:   catalog,
		statuses:  statuses,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024, //nolint:mnd // realtime events are small
			WriteBufferSize: 1024, //nolint:mnd // realtime events are small
		},
	}

	if err = app.configureAndStartServer(ctx, cfg.Addr); err != nil {
		return errors.Wrap(err, "start server")
	}
	return nil
}

func main() {
	ctx := context.Background()
	logger := logging.NewLogger(os.Stdout, slog.LevelDebug)

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.LogAttrs(ctx, slog.LevelError, "failure loading .env", errors.SlogError(err))
		os.Exit(1)
	}

	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		os.Exit(1)
	}
}
