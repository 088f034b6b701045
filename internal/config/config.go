package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/park285/scorepad/pkg/scoredto"
)

type AppConfig struct {
	ListenAddr string

	RedisURL       string
	GameTTLSec     int
	StoreTimeoutMS int

	CORSAllowedOrigins []string
	MaxBodyBytes       int

	AdminTokenHeader string
	SessionIDHeader  string

	MessagesDir string

	DatabaseURL string

	NATSURL           string
	NATSToken         string
	NATSSubjectPrefix string
}

func (c *AppConfig) GameTTL() time.Duration { return time.Duration(c.GameTTLSec) * time.Second }

func (c *AppConfig) StoreTimeout() time.Duration {
	return time.Duration(c.StoreTimeoutMS) * time.Millisecond
}

// LoadDotEnv loads variables from path when the file exists. Variables
// already set in the environment win.
func LoadDotEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:         ":8080",
		GameTTLSec:         86400,
		StoreTimeoutMS:     2000,
		CORSAllowedOrigins: []string{"*"},
		MaxBodyBytes:       1 << 20,
		AdminTokenHeader:   scoredto.HeaderAdminToken,
		SessionIDHeader:    scoredto.HeaderSessionID,
		NATSSubjectPrefix:  "games",
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	if n, ok := positiveInt("GAME_TTL_SEC"); ok {
		cfg.GameTTLSec = n
	}
	if n, ok := positiveInt("STORE_TIMEOUT_MS"); ok {
		cfg.StoreTimeoutMS = n
	}
	if origins := splitList(os.Getenv("CORS_ALLOWED_ORIGINS")); len(origins) > 0 {
		cfg.CORSAllowedOrigins = origins
	}
	if n, ok := positiveInt("MAX_BODY_BYTES"); ok {
		cfg.MaxBodyBytes = n
	}
	if v := strings.TrimSpace(os.Getenv("ADMIN_TOKEN_HEADER")); v != "" {
		cfg.AdminTokenHeader = v
	}
	if v := strings.TrimSpace(os.Getenv("SESSION_ID_HEADER")); v != "" {
		cfg.SessionIDHeader = v
	}
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	// Optional collaborators
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.NATSURL = strings.TrimSpace(os.Getenv("NATS_URL"))
	cfg.NATSToken = strings.TrimSpace(os.Getenv("NATS_TOKEN"))
	if v := strings.TrimSpace(os.Getenv("NATS_SUBJECT_PREFIX")); v != "" {
		cfg.NATSSubjectPrefix = strings.Trim(v, ".")
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if strings.EqualFold(cfg.AdminTokenHeader, cfg.SessionIDHeader) {
		return nil, errors.New("ADMIN_TOKEN_HEADER and SESSION_ID_HEADER must differ")
	}
	return cfg, nil
}

func positiveInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
