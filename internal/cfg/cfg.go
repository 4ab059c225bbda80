// Package cfg holds the application configuration of the clinic server.
package cfg

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"
)

// MinJWTSecretLength is the shortest accepted session signing secret, in bytes.
const MinJWTSecretLength = 32

const maxCosmeticDelay = time.Minute

// Config adds app-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int

	DatabaseURL string
	SQLitePath  string

	JWTSecret   string
	StaffToken  string
	CORSOrigins string

	ClaudeAPIKey      string
	ClaudeModel       string
	ChatMaxToolRounds int

	SlackWebhookURL         string
	FirebaseCredentialsFile string
	TelegramToken           string

	TriageDelay       time.Duration
	PhotoStepInterval time.Duration
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL")
	fs.StringVar(&c.SQLitePath, "sqlite-path", "", "SQLite database file (used when database-url is empty; both empty = in-memory store)")
	fs.StringVar(&c.JWTSecret, "jwt-secret", "", "secret for signing patient session tokens (at least 32 bytes)")
	fs.StringVar(&c.StaffToken, "staff-token", "", "bearer token for staff endpoints (empty = staff endpoints disabled)")
	fs.StringVar(&c.CORSOrigins, "cors-origins", "*", "comma-separated origins allowed to call the API")
	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for the Claude doctor chat assistant (empty = canned replies)")
	fs.StringVar(&c.ClaudeModel, "claude-model", "claude-sonnet-4-20250514", "Claude model for the doctor chat assistant")
	fs.IntVar(&c.ChatMaxToolRounds, "chat-max-tool-rounds", 6, "tool rounds per chat reply before falling back (1..20)")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for clinic staff notifications")
	fs.StringVar(&c.FirebaseCredentialsFile, "firebase-credentials-file", "", "Firebase service account JSON for push notifications")
	fs.StringVar(&c.TelegramToken, "telegram-token", "", "Telegram bot token for the urgency quiz bot")
	fs.DurationVar(&c.TriageDelay, "triage-delay", 2*time.Second, "pause before an urgency result is revealed (0..1m)")
	fs.DurationVar(&c.PhotoStepInterval, "photo-step-interval", 800*time.Millisecond, "pause between photo analysis progress steps (0..1m)")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	if c.DatabaseURL != "" && c.SQLitePath != "" {
		errs = append(errs, errors.New("DATABASE_URL and SQLITE_PATH are mutually exclusive"))
	}

	if len(c.JWTSecret) < MinJWTSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", MinJWTSecretLength))
	}

	// Model settings only matter when the assistant is enabled
	if c.ClaudeAPIKey != "" {
		if c.ClaudeModel == "" {
			errs = append(errs, errors.New("CLAUDE_MODEL is required when CLAUDE_API_KEY is set"))
		}
		if c.ChatMaxToolRounds < 1 || c.ChatMaxToolRounds > 20 {
			errs = append(errs, fmt.Errorf("invalid CHAT_MAX_TOOL_ROUNDS %d (must be 1..20)", c.ChatMaxToolRounds))
		}
	}

	if c.SlackWebhookURL != "" && !strings.HasPrefix(c.SlackWebhookURL, "https://") {
		errs = append(errs, errors.New("SLACK_WEBHOOK_URL must be an https URL"))
	}

	if c.TriageDelay < 0 || c.TriageDelay > maxCosmeticDelay {
		errs = append(errs, fmt.Errorf("invalid TRIAGE_DELAY %s (must be 0..1m)", c.TriageDelay))
	}
	if c.PhotoStepInterval < 0 || c.PhotoStepInterval > maxCosmeticDelay {
		errs = append(errs, fmt.Errorf("invalid PHOTO_STEP_INTERVAL %s (must be 0..1m)", c.PhotoStepInterval))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// AllowedOrigins splits CORSOrigins into trimmed, non-empty origins.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// StoreKind names the store selected by the database settings.
func (c *Config) StoreKind() string {
	switch {
	case c.DatabaseURL != "":
		return "postgres"
	case c.SQLitePath != "":
		return "sqlite"
	default:
		return "memory"
	}
}
