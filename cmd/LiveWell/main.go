package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BTreeMap/LiveWell/internal/api"
	"github.com/BTreeMap/LiveWell/internal/flow"
	"github.com/BTreeMap/LiveWell/internal/genai"
	"github.com/BTreeMap/LiveWell/internal/lockfile"
	"github.com/BTreeMap/LiveWell/internal/planner"
	"github.com/BTreeMap/LiveWell/internal/scheduler"
	"github.com/BTreeMap/LiveWell/internal/store"
	"github.com/BTreeMap/LiveWell/internal/twiliowhatsapp"
	"github.com/BTreeMap/LiveWell/internal/util"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for LiveWell state data
	DefaultStateDir = "/var/lib/livewell"
	// DefaultLogLevel is used when LOG_LEVEL is unset or invalid
	DefaultLogLevel = "info"
)

func main() {
	// Load environment configuration
	config := loadEnvironmentConfig()

	// Initialize structured logger
	initializeLogger(config.LogLevel)

	// Parse command line flags
	flags, err := parseCommandLineFlags(flag.CommandLine, os.Args[1:], config)
	if err != nil {
		slog.Error("Failed to parse flags", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Bootstrapping LiveWell with configured modules")
	if err := run(ctx, flags, config); err != nil {
		slog.Error("LiveWell failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("LiveWell exited successfully")
}

// Config holds environment configuration
type Config struct {
	StateDir                string
	StoreDSN                string
	SessionTTL              time.Duration
	MaxSessions             int
	OpenAIKey               string
	OpenAIModel             string
	GenAIDebug              bool
	SuggesterEnabled        bool
	SuggesterTimeout        time.Duration
	APIAddr                 string
	TwilioAccountSID        string
	TwilioAuthToken         string
	TwilioFromNumber        string
	TwilioValidateSignature bool
	TwilioWebhookURL        string
	LogLevel                string
}

// Flags holds command line flag values
type Flags struct {
	stateDir         *string
	storeDSN         *string
	sessionTTL       *time.Duration
	maxSessions      *int
	openaiKey        *string
	openaiModel      *string
	suggester        *bool
	suggesterTimeout *time.Duration
	apiAddr          *string
	webhookURL       *string
}

// initializeLogger sets up structured logging on stdout at the given level.
func initializeLogger(level string) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(level)}))
	slog.SetDefault(logger)
}

// parseLogLevel maps debug|info|warn|error onto a slog level, defaulting to info.
func parseLogLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return l
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	dsn := os.Getenv("SESSION_STORE_DSN")
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}

	config := Config{
		StateDir:                util.GetEnv("LIVEWELL_STATE_DIR", DefaultStateDir),
		StoreDSN:                dsn,
		SessionTTL:              util.ParseDurationEnv("SESSION_TTL", store.DefaultSessionTTL),
		MaxSessions:             util.ParseIntEnv("SESSION_MAX_SESSIONS", 0),
		OpenAIKey:               os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:             util.GetEnv("OPENAI_MODEL", genai.DefaultModel),
		GenAIDebug:              util.ParseBoolEnv("GENAI_DEBUG", false),
		SuggesterEnabled:        util.ParseBoolEnv("SUGGESTER_ENABLED", true),
		SuggesterTimeout:        util.ParseDurationEnv("SUGGESTER_TIMEOUT", planner.DefaultSuggestTimeout),
		APIAddr:                 util.GetEnv("API_ADDR", api.DefaultAddr),
		TwilioAccountSID:        os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:         os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber:        os.Getenv("TWILIO_FROM_NUMBER"),
		TwilioValidateSignature: util.ParseBoolEnv("TWILIO_VALIDATE_SIGNATURE", false),
		TwilioWebhookURL:        os.Getenv("TWILIO_WEBHOOK_URL"),
		LogLevel:                util.GetEnv("LOG_LEVEL", DefaultLogLevel),
	}

	slog.Debug("environment variables loaded",
		"LIVEWELL_STATE_DIR", config.StateDir,
		"SESSION_STORE_DSN_SET", config.StoreDSN != "",
		"SESSION_TTL", config.SessionTTL,
		"SESSION_MAX_SESSIONS", config.MaxSessions,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"OPENAI_MODEL", config.OpenAIModel,
		"SUGGESTER_ENABLED", config.SuggesterEnabled,
		"SUGGESTER_TIMEOUT", config.SuggesterTimeout,
		"API_ADDR", config.APIAddr,
		"TWILIO_ACCOUNT_SID_SET", config.TwilioAccountSID != "",
		"TWILIO_VALIDATE_SIGNATURE", config.TwilioValidateSignature)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(fs *flag.FlagSet, args []string, config Config) (Flags, error) {
	flags := Flags{
		stateDir:         fs.String("state-dir", config.StateDir, "state directory for LiveWell data (overrides $LIVEWELL_STATE_DIR)"),
		storeDSN:         fs.String("store-dsn", config.StoreDSN, "session store DSN: postgres DSN, redis:// URL or SQLite path; empty keeps sessions in memory (overrides $SESSION_STORE_DSN or $DATABASE_URL)"),
		sessionTTL:       fs.Duration("session-ttl", config.SessionTTL, "idle session lifetime, 0 disables expiry (overrides $SESSION_TTL)"),
		maxSessions:      fs.Int("max-sessions", config.MaxSessions, "in-memory session capacity, 0 is unbounded (overrides $SESSION_MAX_SESSIONS)"),
		openaiKey:        fs.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		openaiModel:      fs.String("openai-model", config.OpenAIModel, "OpenAI chat model (overrides $OPENAI_MODEL)"),
		suggester:        fs.Bool("suggester", config.SuggesterEnabled, "use the generative plan suggester when an API key is set (overrides $SUGGESTER_ENABLED)"),
		suggesterTimeout: fs.Duration("suggester-timeout", config.SuggesterTimeout, "deadline for one plan suggestion (overrides $SUGGESTER_TIMEOUT)"),
		apiAddr:          fs.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		webhookURL:       fs.String("twilio-webhook-url", config.TwilioWebhookURL, "public URL of /twilio/messages used for signature checks (overrides $TWILIO_WEBHOOK_URL)"),
	}

	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"storeDSN_set", *flags.storeDSN != "",
		"sessionTTL", *flags.sessionTTL,
		"maxSessions", *flags.maxSessions,
		"openaiKeySet", *flags.openaiKey != "",
		"openaiModel", *flags.openaiModel,
		"suggester", *flags.suggester,
		"suggesterTimeout", *flags.suggesterTimeout,
		"apiAddr", *flags.apiAddr)

	return flags, nil
}

// run wires the modules together and serves until ctx is cancelled.
func run(ctx context.Context, flags Flags, config Config) error {
	storeOpts := buildStoreOptions(flags)
	if store.DetectDSNType(*flags.storeDSN) == store.BackendSQLite {
		lock, err := lockfile.AcquireLock(*flags.stateDir)
		if err != nil {
			return err
		}
		defer lock.Release()
	}

	st, err := store.Open(storeOpts...)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Warn("Failed to close session store", "error", err)
		}
	}()

	if purger, ok := st.(scheduler.Purger); ok && *flags.sessionTTL > 0 {
		sched := scheduler.NewScheduler()
		defer sched.Stop()
		if err := scheduler.SchedulePurge(sched, purger, store.DefaultCleanupInterval); err != nil {
			return fmt.Errorf("failed to schedule session purge: %w", err)
		}
		slog.Debug("Session purge scheduled", "interval", store.DefaultCleanupInterval)
	}

	plannerOpts := buildPlannerOptions(flags, buildGenAIOptions(flags, config))
	checkin := flow.NewCheckinService(st, flow.WithPlanner(planner.New(plannerOpts...)))

	apiOpts := buildAPIOptions(flags, config)
	if dedup, ok := st.(store.DedupRepo); ok {
		apiOpts = append(apiOpts, api.WithDedup(dedup))
	}
	slog.Debug("Module options counts", "store", len(storeOpts), "planner", len(plannerOpts), "api", len(apiOpts))
	return api.NewServer(checkin, apiOpts...).Run(ctx)
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	storeOpts := []store.Option{store.WithTTL(*flags.sessionTTL)}
	switch store.DetectDSNType(*flags.storeDSN) {
	case store.BackendPostgres:
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_type", "postgresql", "dsn_set", true)
		storeOpts = append(storeOpts, store.WithPostgresDSN(*flags.storeDSN))
	case store.BackendRedis:
		slog.Debug("Detected Redis URL, configuring Redis store", "dsn_type", "redis")
		storeOpts = append(storeOpts, store.WithRedisURL(*flags.storeDSN))
	case store.BackendSQLite:
		slog.Debug("Detected SQLite DSN, configuring SQLite store", "dsn_type", "sqlite", "db_path", *flags.storeDSN)
		storeOpts = append(storeOpts, store.WithSQLiteDSN(*flags.storeDSN))
	default:
		slog.Debug("No session store DSN provided, will use in-memory store", "max_sessions", *flags.maxSessions)
		if *flags.maxSessions > 0 {
			storeOpts = append(storeOpts, store.WithMaxSessions(*flags.maxSessions))
		}
	}
	return storeOpts
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(flags Flags, config Config) []genai.Option {
	var genaiOpts []genai.Option
	if *flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
	}
	if *flags.openaiModel != "" {
		genaiOpts = append(genaiOpts, genai.WithModel(*flags.openaiModel))
	}
	if config.GenAIDebug {
		genaiOpts = append(genaiOpts, genai.WithDebugMode(true, *flags.stateDir))
	}
	return genaiOpts
}

// buildPlannerOptions attaches the generative suggester when it is enabled and
// a GenAI client can be built. Without it every plan comes from the fallback.
func buildPlannerOptions(flags Flags, genaiOpts []genai.Option) []planner.Option {
	plannerOpts := []planner.Option{planner.WithTimeout(*flags.suggesterTimeout)}
	if !*flags.suggester {
		slog.Info("Plan suggester disabled, using deterministic plans only")
		return plannerOpts
	}
	client, err := genai.NewClient(genaiOpts...)
	if err != nil {
		if errors.Is(err, genai.ErrAPIKeyMissing) {
			slog.Info("No OpenAI API key set, using deterministic plans only")
		} else {
			slog.Warn("Failed to create GenAI client, using deterministic plans only", "error", err)
		}
		return plannerOpts
	}
	slog.Info("Plan suggester enabled", "model", client.Model(), "timeout", *flags.suggesterTimeout)
	return append(plannerOpts, planner.WithSuggester(flow.NewGenAISuggester(client)))
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags, config Config) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}

	sender, err := twiliowhatsapp.NewClient(
		twiliowhatsapp.WithAccountSID(config.TwilioAccountSID),
		twiliowhatsapp.WithAuthToken(config.TwilioAuthToken),
		twiliowhatsapp.WithFromNumber(config.TwilioFromNumber),
	)
	if err != nil {
		slog.Info("Twilio sender not configured, /twilio/welcome disabled", "reason", err)
	} else {
		apiOpts = append(apiOpts, api.WithSender(sender))
	}

	if config.TwilioValidateSignature {
		if config.TwilioAuthToken == "" {
			slog.Warn("TWILIO_VALIDATE_SIGNATURE set without TWILIO_AUTH_TOKEN, webhook signatures will not be checked")
		} else {
			apiOpts = append(apiOpts, api.WithWebhookValidation(config.TwilioAuthToken, *flags.webhookURL))
		}
	}
	return apiOpts
}
