package config

import (
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	Environment string `env:"APP_ENV" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME" envDefault:"lgcert"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	JWTAccessSecret      string `env:"JWT_ACCESS_SECRET" envDefault:"change-me-access"`
	JWTRefreshSecret     string `env:"JWT_REFRESH_SECRET" envDefault:"change-me-refresh"`
	JWTAccessTTLMinutes  int    `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"30"`
	JWTRefreshTTLHours   int    `env:"JWT_REFRESH_TTL_HOURS" envDefault:"168"`
	SuperAdminEmail      string `env:"SUPERADMIN_EMAIL" envDefault:"superadmin@lgcert.local"`
	SuperAdminPassword   string `env:"SUPERADMIN_PASSWORD" envDefault:"ChangeMe123!"`
	RateLimitPerMinute   int64  `env:"RATE_LIMIT_PER_MINUTE" envDefault:"100"`
	CORSOrigins          string `env:"CORS_ORIGINS" envDefault:"http://localhost:5173,http://127.0.0.1:5173"`
	PublicBaseURL        string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:5173"`
	APIBaseURL           string `env:"API_BASE_URL" envDefault:"http://localhost:8080"`
	UploadDir            string `env:"UPLOAD_DIR" envDefault:"./uploads"`
	StaleApplicationHour int    `env:"STALE_APPLICATION_HOURS" envDefault:"72"`

	// Redis
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"lgcert.events"`
	KafkaGroupID string   `env:"KAFKA_GROUP_ID" envDefault:"lgcert-notifier"`

	// Payments
	PaymentGateway string `env:"PAYMENT_GATEWAY" envDefault:"mock"`
	RazorpayKey    string `env:"RAZORPAY_KEY_ID"`
	RazorpaySecret string `env:"RAZORPAY_KEY_SECRET"`
	Currency       string `env:"PAYMENT_CURRENCY" envDefault:"NGN"`
	// mock gateway only: settle every charge without visiting the checkout page
	PaymentAutoCapture bool `env:"PAYMENT_AUTO_CAPTURE" envDefault:"false"`

	// NIN registry; empty URL selects the in-memory registry
	NINRegistryURL string        `env:"NIN_REGISTRY_URL"`
	NINRegistryKey string        `env:"NIN_REGISTRY_KEY"`
	NINCacheTTL    time.Duration `env:"NIN_CACHE_TTL" envDefault:"24h"`

	// SMTP
	SMTPHost      string `env:"SMTP_HOST"`
	SMTPPort      string `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername  string `env:"SMTP_USERNAME"`
	SMTPPassword  string `env:"SMTP_PASSWORD"`
	SMTPFromName  string `env:"SMTP_FROM_NAME" envDefault:"LG Indigene Certificates"`
	SMTPFromEmail string `env:"SMTP_FROM_EMAIL"`

	// FCM
	FCMCredentialsPath string `env:"FCM_CREDENTIALS_PATH"`
	FCMProjectID       string `env:"FCM_PROJECT_ID"`
}

// Load reads .env (when present) and the process environment into a Config.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file, using environment variables")
	}

	cfg, err := Parse()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	return cfg
}

// Parse reads the process environment only.
func Parse() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) AccessTTL() time.Duration {
	return time.Duration(c.JWTAccessTTLMinutes) * time.Minute
}

func (c *Config) RefreshTTL() time.Duration {
	return time.Duration(c.JWTRefreshTTLHours) * time.Hour
}

func (c *Config) StaleAfter() time.Duration {
	return time.Duration(c.StaleApplicationHour) * time.Hour
}

// PaymentReturnURL is the portal page the gateway sends the browser back to.
func (c *Config) PaymentReturnURL() string {
	return strings.TrimRight(c.PublicBaseURL, "/") + "/payments/return"
}

func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// VerifyURL is the public page that checks a certificate by identifier.
func (c *Config) VerifyURL(certificateID string) string {
	return strings.TrimRight(c.PublicBaseURL, "/") + "/verify?certificateId=" + certificateID
}
