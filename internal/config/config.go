package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App        AppConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Auth       AuthConfig
	Transport  TransportConfig
	Classifier ClassifierConfig
	Routing    RoutingConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters for operator logins.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// TransportConfig covers the messaging gateway and its session store.
type TransportConfig struct {
	BridgeURL          string
	SessionStoreDir    string
	FaultThreshold     int
	SendTimeoutSeconds int
}

// ClassifierConfig points at the remote intent classification service.
type ClassifierConfig struct {
	BaseURL                string
	HealthTimeoutSeconds   int
	ClassifyTimeoutSeconds int
}

// RoutingConfig tunes the conversation router.
type RoutingConfig struct {
	QueuePolicy     string
	GreetingReply   string
	StatusReply     string
	NewTicketReply  string
	HandoffReply    string
	FallbackReply   string
	HandoffKeywords []string
}

// Queue selection policies. "first" picks the first active queue;
// "skills" picks the queue with the largest skill overlap.
const (
	QueuePolicyFirst  = "first"
	QueuePolicySkills = "skills"
)

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	policy := strings.ToLower(getEnv("ROUTING_QUEUE_POLICY", QueuePolicyFirst))
	if policy != QueuePolicyFirst && policy != QueuePolicySkills {
		return nil, fmt.Errorf("invalid ROUTING_QUEUE_POLICY: %q", policy)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "zapdesk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Transport: TransportConfig{
			BridgeURL:          getEnv("TRANSPORT_BRIDGE_URL", ""),
			SessionStoreDir:    getEnv("TRANSPORT_SESSION_DIR", ".transport_session"),
			FaultThreshold:     getEnvAsInt("TRANSPORT_FAULT_THRESHOLD", 5),
			SendTimeoutSeconds: getEnvAsInt("TRANSPORT_SEND_TIMEOUT_SECONDS", 5),
		},
		Classifier: ClassifierConfig{
			BaseURL:                getEnv("CLASSIFIER_URL", "http://127.0.0.1:5000"),
			HealthTimeoutSeconds:   getEnvAsInt("CLASSIFIER_HEALTH_TIMEOUT_SECONDS", 3),
			ClassifyTimeoutSeconds: getEnvAsInt("CLASSIFIER_TIMEOUT_SECONDS", 3),
		},
		Routing: RoutingConfig{
			QueuePolicy:     policy,
			GreetingReply:   getEnv("ROUTING_GREETING_REPLY", "Olá! Como posso ajudar? Descreva seu problema para abrir um chamado."),
			StatusReply:     getEnv("ROUTING_STATUS_REPLY", "Você não possui chamados abertos no momento."),
			NewTicketReply:  getEnv("ROUTING_NEW_TICKET_REPLY", "Seu chamado foi aberto. Um técnico irá atendê-lo em breve."),
			HandoffReply:    getEnv("ROUTING_HANDOFF_REPLY", "Certo, um atendente humano foi acionado."),
			FallbackReply:   getEnv("ROUTING_FALLBACK_REPLY", "Desculpe, não entendi. Descreva seu problema para abrir um chamado."),
			HandoffKeywords: splitList(getEnv("ROUTING_HANDOFF_KEYWORDS", "#atendente,#humano,falar com atendente")),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// SendTimeout returns the outbound transport send timeout.
func (t TransportConfig) SendTimeout() time.Duration {
	if t.SendTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(t.SendTimeoutSeconds) * time.Second
}

// HealthTimeout returns the readiness probe timeout.
func (c ClassifierConfig) HealthTimeout() time.Duration {
	if c.HealthTimeoutSeconds <= 0 {
		return 3 * time.Second
	}
	return time.Duration(c.HealthTimeoutSeconds) * time.Second
}

// ClassifyTimeout returns the per-request classification timeout.
func (c ClassifierConfig) ClassifyTimeout() time.Duration {
	if c.ClassifyTimeoutSeconds <= 0 {
		return 3 * time.Second
	}
	return time.Duration(c.ClassifyTimeoutSeconds) * time.Second
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
