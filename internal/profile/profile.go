package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start the main server.
type Profile struct {
	// Server
	Mode        string // dev, prod
	Addr        string // bind address
	Data        string // data directory (sqlite database, local state)
	Driver      string // sqlite, postgres
	DSN         string // database connection string
	InstanceURL string // public URL of this instance
	Version     string
	Port        int

	// API auth
	JWTSecret string // HS256 secret for API bearer tokens

	// Primary push-notification backend
	PushBaseURL        string  // base URL of the push dispatch API
	PushAPIKey         string  // bearer token for the push API
	PushTimeoutSeconds int     // per-call timeout for push requests
	PushRatePerSecond  float64 // client-side rate limit for push requests

	// Legacy/alternate notification backend
	TelegramBotToken string // empty disables the Telegram backend
	TelegramChatID   int64  // chat that receives reminders, single-user deployments

	// Offline queue
	QueueScanSeconds   int // local fire-check interval
	QueueReplaySeconds int // network replay interval
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvOrDefaultFloat returns environment variable value as float64 or default value.
func getEnvOrDefaultFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// HasTelegramBackend returns true if the Telegram fallback backend is configured.
func (p *Profile) HasTelegramBackend() bool {
	return p.TelegramBotToken != ""
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.JWTSecret = getEnvOrDefault("REMINDWISE_JWT_SECRET", p.JWTSecret)

	p.PushBaseURL = getEnvOrDefault("REMINDWISE_PUSH_BASE_URL", "")
	p.PushAPIKey = getEnvOrDefault("REMINDWISE_PUSH_API_KEY", "")
	p.PushTimeoutSeconds = getEnvOrDefaultInt("REMINDWISE_PUSH_TIMEOUT_SECONDS", 8)
	p.PushRatePerSecond = getEnvOrDefaultFloat("REMINDWISE_PUSH_RATE_PER_SECOND", 20)

	p.TelegramBotToken = getEnvOrDefault("REMINDWISE_TELEGRAM_BOT_TOKEN", "")
	if chatID, err := strconv.ParseInt(os.Getenv("REMINDWISE_TELEGRAM_CHAT_ID"), 10, 64); err == nil {
		p.TelegramChatID = chatID
	}

	p.QueueScanSeconds = getEnvOrDefaultInt("REMINDWISE_QUEUE_SCAN_SECONDS", 60)
	p.QueueReplaySeconds = getEnvOrDefaultInt("REMINDWISE_QUEUE_REPLAY_SECONDS", 300)
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}

	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported driver %q, expected sqlite or postgres", p.Driver)
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "remindwise")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/remindwise"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir

	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("remindwise_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("dsn required for postgres driver")
	}

	if p.QueueScanSeconds <= 0 {
		p.QueueScanSeconds = 60
	}
	if p.QueueReplaySeconds <= 0 {
		p.QueueReplaySeconds = 300
	}
	if p.PushTimeoutSeconds <= 0 {
		p.PushTimeoutSeconds = 8
	}

	return nil
}
