package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix は設定を上書きする環境変数の接頭辞です。
const EnvPrefix = "STAFFING_"

// ストレージドライバー名です。
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

const (
	defaultHTTPAddr        = ":8080"
	defaultShutdownTimeout = 10 * time.Second
	defaultTokenTTL        = 24 * time.Hour
	defaultBcryptCost      = 12
	defaultMongoTimeout    = 10 * time.Second
	defaultCacheTTL        = 5 * time.Minute
	defaultMailTimeout     = 30 * time.Second
	defaultSampleRatio     = 0.1
)

// Config はアプリケーション全体の設定を表現します。
type Config struct {
	Server    ServerConfig    `yaml:"server" envPrefix:"SERVER_"`
	Log       LogConfig       `yaml:"log" envPrefix:"LOG_"`
	Storage   StorageConfig   `yaml:"storage" envPrefix:"STORAGE_"`
	Database  DatabaseConfig  `yaml:"database" envPrefix:"DATABASE_"`
	Mongo     MongoConfig     `yaml:"mongo" envPrefix:"MONGO_"`
	Redis     RedisConfig     `yaml:"redis" envPrefix:"REDIS_"`
	Auth      AuthConfig      `yaml:"auth" envPrefix:"AUTH_"`
	Mail      MailConfig      `yaml:"mail" envPrefix:"MAIL_"`
	Telemetry TelemetryConfig `yaml:"telemetry" envPrefix:"TELEMETRY_"`
}

// ServerConfig は HTTP / gRPC リスナーに関する設定です。
type ServerConfig struct {
	HTTPAddr           string        `yaml:"http_addr" env:"HTTP_ADDR"`
	GRPCAddr           string        `yaml:"grpc_addr" env:"GRPC_ADDR"`
	AllowedOrigins     []string      `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
	ShutdownTimeout    time.Duration `yaml:"-"`
	ShutdownTimeoutRaw string        `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// LogConfig はロガーの設定です。
type LogConfig struct {
	Mode  string `yaml:"mode" env:"MODE"`
	Level string `yaml:"level" env:"LEVEL"`
}

// StorageConfig は永続化先の選択です。
type StorageConfig struct {
	Driver string `yaml:"driver" env:"DRIVER"`
}

// DatabaseConfig は PostgreSQL 接続に関する設定です。
type DatabaseConfig struct {
	Host               string        `yaml:"host" env:"HOST"`
	Port               int           `yaml:"port" env:"PORT"`
	User               string        `yaml:"user" env:"USER"`
	Password           string        `yaml:"password" env:"PASSWORD"`
	Name               string        `yaml:"name" env:"NAME"`
	SSLMode            string        `yaml:"ssl_mode" env:"SSL_MODE"`
	MaxOpenConns       int           `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns       int           `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime    time.Duration `yaml:"-"`
	ConnMaxIdleTime    time.Duration `yaml:"-"`
	ConnMaxLifetimeRaw string        `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
	ConnMaxIdleTimeRaw string        `yaml:"conn_max_idle_time" env:"CONN_MAX_IDLE_TIME"`
}

// MongoConfig は MongoDB 接続に関する設定です。
type MongoConfig struct {
	URI          string        `yaml:"uri" env:"URI"`
	Database     string        `yaml:"database" env:"DATABASE"`
	Transactions bool          `yaml:"transactions" env:"TRANSACTIONS"`
	Timeout      time.Duration `yaml:"-"`
	TimeoutRaw   string        `yaml:"timeout" env:"TIMEOUT"`
}

// RedisConfig は給与予算キャッシュ用 Redis の設定です。Addr が空の場合キャッシュは無効です。
type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"ADDR"`
	Password string        `yaml:"password" env:"PASSWORD"`
	DB       int           `yaml:"db" env:"DB"`
	TTL      time.Duration `yaml:"-"`
	TTLRaw   string        `yaml:"ttl" env:"TTL"`
}

// AuthConfig は認証トークンとパスワードハッシュの設定です。
type AuthConfig struct {
	JWTSecret   string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	Issuer      string        `yaml:"issuer" env:"ISSUER"`
	BcryptCost  int           `yaml:"bcrypt_cost" env:"BCRYPT_COST"`
	TokenTTL    time.Duration `yaml:"-"`
	TokenTTLRaw string        `yaml:"token_ttl" env:"TOKEN_TTL"`
}

// MailConfig は SendGrid 経由のメール送信設定です。APIKey が空の場合送信しません。
type MailConfig struct {
	SendGridAPIKey string        `yaml:"sendgrid_api_key" env:"SENDGRID_API_KEY"`
	BaseURL        string        `yaml:"base_url" env:"BASE_URL"`
	FromEmail      string        `yaml:"from_email" env:"FROM_EMAIL"`
	FromName       string        `yaml:"from_name" env:"FROM_NAME"`
	Timeout        time.Duration `yaml:"-"`
	TimeoutRaw     string        `yaml:"timeout" env:"TIMEOUT"`
}

// TelemetryConfig はトレース出力の設定です。
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" env:"ENABLED"`
	ServiceName  string  `yaml:"service_name" env:"SERVICE_NAME"`
	Environment  string  `yaml:"environment" env:"ENVIRONMENT"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	OTLPInsecure bool    `yaml:"otlp_insecure" env:"OTLP_INSECURE"`
	SampleRatio  float64 `yaml:"sample_ratio" env:"SAMPLE_RATIO"`
}

// Load は指定されたパスから設定ファイルを読み込み、環境変数で上書きします。
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validateAndNormalize() error {
	if err := c.Server.validateAndNormalize(); err != nil {
		return err
	}

	c.Log.Mode = strings.ToLower(strings.TrimSpace(c.Log.Mode))
	if c.Log.Mode == "" {
		c.Log.Mode = "development"
	}

	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case "":
		c.Storage.Driver = DriverPostgres
		fallthrough
	case DriverPostgres:
		if err := c.Database.validateAndNormalize(); err != nil {
			return err
		}
	case DriverMongo:
		if err := c.Mongo.validateAndNormalize(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("config: storage.driver %q is not supported", c.Storage.Driver)
	}

	if err := c.Redis.validateAndNormalize(); err != nil {
		return err
	}
	if err := c.Auth.validateAndNormalize(); err != nil {
		return err
	}
	if err := c.Mail.validateAndNormalize(); err != nil {
		return err
	}

	c.Telemetry.validateAndNormalize()
	return nil
}

func (s *ServerConfig) validateAndNormalize() error {
	if s.HTTPAddr == "" {
		s.HTTPAddr = defaultHTTPAddr
	}

	timeout, err := parseDurationAllowEmpty(s.ShutdownTimeoutRaw)
	if err != nil {
		return fmt.Errorf("config: server.shutdown_timeout: %w", err)
	}
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	s.ShutdownTimeout = timeout
	return nil
}

func (d *DatabaseConfig) validateAndNormalize() error {
	if d.Host == "" {
		return fmt.Errorf("config: database.host must be set")
	}
	if d.Port == 0 {
		return fmt.Errorf("config: database.port must be set")
	}
	if d.User == "" {
		return fmt.Errorf("config: database.user must be set")
	}
	if d.Password == "" {
		return fmt.Errorf("config: database.password must be set")
	}
	if d.Name == "" {
		return fmt.Errorf("config: database.name must be set")
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}

	lifetime, err := parseDurationAllowEmpty(d.ConnMaxLifetimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_lifetime: %w", err)
	}
	d.ConnMaxLifetime = lifetime

	idleTime, err := parseDurationAllowEmpty(d.ConnMaxIdleTimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_idle_time: %w", err)
	}
	d.ConnMaxIdleTime = idleTime

	return nil
}

func (m *MongoConfig) validateAndNormalize() error {
	if m.URI == "" {
		return fmt.Errorf("config: mongo.uri must be set")
	}
	if m.Database == "" {
		return fmt.Errorf("config: mongo.database must be set")
	}

	timeout, err := parseDurationAllowEmpty(m.TimeoutRaw)
	if err != nil {
		return fmt.Errorf("config: mongo.timeout: %w", err)
	}
	if timeout <= 0 {
		timeout = defaultMongoTimeout
	}
	m.Timeout = timeout
	return nil
}

func (r *RedisConfig) validateAndNormalize() error {
	ttl, err := parseDurationAllowEmpty(r.TTLRaw)
	if err != nil {
		return fmt.Errorf("config: redis.ttl: %w", err)
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	r.TTL = ttl
	return nil
}

func (a *AuthConfig) validateAndNormalize() error {
	if strings.TrimSpace(a.JWTSecret) == "" {
		return fmt.Errorf("config: auth.jwt_secret must be set")
	}
	if a.BcryptCost == 0 {
		a.BcryptCost = defaultBcryptCost
	}
	if a.BcryptCost < 4 || a.BcryptCost > 31 {
		return fmt.Errorf("config: auth.bcrypt_cost must be between 4 and 31")
	}

	ttl, err := parseDurationAllowEmpty(a.TokenTTLRaw)
	if err != nil {
		return fmt.Errorf("config: auth.token_ttl: %w", err)
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	a.TokenTTL = ttl
	return nil
}

func (m *MailConfig) validateAndNormalize() error {
	timeout, err := parseDurationAllowEmpty(m.TimeoutRaw)
	if err != nil {
		return fmt.Errorf("config: mail.timeout: %w", err)
	}
	if timeout <= 0 {
		timeout = defaultMailTimeout
	}
	m.Timeout = timeout

	if m.SendGridAPIKey != "" && m.FromEmail == "" {
		return fmt.Errorf("config: mail.from_email must be set when sendgrid_api_key is set")
	}
	return nil
}

func (t *TelemetryConfig) validateAndNormalize() {
	if t.ServiceName == "" {
		t.ServiceName = "staffing-api"
	}
	if t.SampleRatio <= 0 || t.SampleRatio > 1 {
		t.SampleRatio = defaultSampleRatio
	}
}

func parseDurationAllowEmpty(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	return d, nil
}

// DSN は pgx 用の接続文字列を返します。認証情報はエスケープされます。
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + strconv.Itoa(d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}
