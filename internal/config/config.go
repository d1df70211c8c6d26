package config

import (
	"fmt"
	"log"

	"github.com/caarlos0/env/v10"
)

// Version da aplicação, exposta no health check.
const Version = "1.2.0"

type Config struct {
	App      AppConfig
	DB       DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Log      LogConfig
	Storage  StorageConfig
	Sync     SyncConfig
	Firebase FirebaseConfig
	CRM      CRMConfig
	Evo      EvoConfig
	Operator OperatorConfig
	Booth    BoothConfig
}

type AppConfig struct {
	Env     string `env:"APP_ENV" envDefault:"development"`
	Port    string `env:"PORT" envDefault:"8080"`
	BaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`
}

type StorageConfig struct {
	Driver  string `env:"DB_DRIVER" envDefault:"sqlite"`
	DataDir string `env:"DATA_DIR" envDefault:"./data"`
}

type DatabaseConfig struct {
	URL      string `env:"DATABASE_URL"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     int    `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	Name     string `env:"DB_NAME" envDefault:"conecta"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
}

// DSN retorna a string de conexão em formato aceito pelo pgxpool.
func (cfg DatabaseConfig) DSN() string {
	if cfg.URL != "" {
		return cfg.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode,
	)
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	Enabled  bool   `env:"REDIS_ENABLED" envDefault:"false"`
}

type JWTConfig struct {
	Secret   string `env:"JWT_SECRET,required"`
	ExpHours int    `env:"JWT_EXP_HOURS" envDefault:"24"`
}

type LogConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"debug"`
}

// SyncConfig controla o sincronizador e o monitor de conectividade.
// Os intervalos de referência vêm da operação em evento: varredura e
// verificação de conectividade a cada 30s, pausa de 500ms entre leads.
type SyncConfig struct {
	IntervalSeconds  int    `env:"SYNC_INTERVAL_SECONDS" envDefault:"30"`
	LeadPacingMillis int    `env:"SYNC_LEAD_PACING_MS" envDefault:"500"`
	StepPacingMillis int    `env:"SYNC_STEP_PACING_MS" envDefault:"2000"`
	ProbeAddr        string `env:"SYNC_PROBE_ADDR" envDefault:"1.1.1.1:443"`
	CallTimeoutSecs  int    `env:"SYNC_CALL_TIMEOUT_SECONDS" envDefault:"20"`
}

// FirebaseConfig aponta para o banco remoto (Firestore via REST).
type FirebaseConfig struct {
	ProjectID string `env:"FIREBASE_PROJECT_ID"`
	APIKey    string `env:"FIREBASE_API_KEY"`
	UserID    string `env:"FIREBASE_USER_ID"`
	BaseURL   string `env:"FIREBASE_BASE_URL" envDefault:"https://firestore.googleapis.com/v1"`
}

type CRMConfig struct {
	EspoURL    string `env:"ESPO_URL"`
	EspoAPIKey string `env:"ESPO_API_KEY"`
}

// EvoConfig aponta para o gateway de mensagens estilo Evolution API.
type EvoConfig struct {
	BaseURL string `env:"EVO_URL"`
	APIKey  string `env:"EVO_APIKEY"`
}

// OperatorConfig é a credencial do operador do estande. A senha é um
// hash bcrypt gerado na provisão do equipamento.
type OperatorConfig struct {
	Email        string `env:"OPERATOR_EMAIL" envDefault:"operador@dgenny.local"`
	PasswordHash string `env:"OPERATOR_PASSWORD_HASH"`
}

type BoothConfig struct {
	FormURL string `env:"BOOTH_FORM_URL"`
	RateLimitConfig
}

type RateLimitConfig struct {
	Enabled       bool   `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	Requests      int    `env:"RATE_LIMIT_REQUESTS" envDefault:"30"`
	WindowSeconds int    `env:"RATE_LIMIT_WINDOW_SECONDS" envDefault:"60"`
	Prefix        string `env:"RATE_LIMIT_PREFIX" envDefault:"ratelimit:leads"`
}

// Load carrega as configurações da aplicação.
func Load() Config {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("config: não foi possível carregar variáveis: %v", err)
	}
	return cfg
}
