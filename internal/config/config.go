package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every runtime setting of the server.
type Config struct {
	ServerPort string
	UploadsDir string
	StaticDir  string
	AppBaseURL string

	CORSAllowedOrigins []string

	DB   DBConfig
	JWT  JWTConfig
	OTP  OTPConfig
	Mail MailConfig

	InitialAdminEmail          string
	RequireInvitationOTP       bool
	AllowAdminSelfRegistration bool

	LogLevel  string
	LogFormat string
}

// JWTConfig configures the session token issuer.
type JWTConfig struct {
	SecretKey  string
	Expiration time.Duration
}

// OTPConfig configures the SMS verification gateway.
type OTPConfig struct {
	BaseURL     string
	AccountSID  string
	AuthToken   string
	ServiceSID  string
	CountryCode string
	Timeout     time.Duration
}

// Enabled reports whether gateway credentials are present.
func (c OTPConfig) Enabled() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.ServiceSID != ""
}

// MailConfig configures the invitation mail transport.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// Enabled reports whether an SMTP host is configured.
func (c MailConfig) Enabled() bool {
	return c.Host != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("UPLOADS_DIR", "uploads")
	v.SetDefault("STATIC_DIR", "")
	v.SetDefault("APP_BASE_URL", "http://localhost:5173")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_HOST", "")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("JWT_SECRET_KEY", "")
	v.SetDefault("JWT_EXPIRATION_MINUTES", 60)

	v.SetDefault("OTP_BASE_URL", "https://verify.twilio.com")
	v.SetDefault("OTP_ACCOUNT_SID", "")
	v.SetDefault("OTP_AUTH_TOKEN", "")
	v.SetDefault("OTP_SERVICE_SID", "")
	v.SetDefault("OTP_COUNTRY_CODE", "+65")
	v.SetDefault("OTP_TIMEOUT_SECONDS", 10)

	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASS", "")
	v.SetDefault("MAIL_FROM", "")
	v.SetDefault("MAIL_TIMEOUT_SECONDS", 15)

	v.SetDefault("INITIAL_ADMIN_EMAIL", "")
	v.SetDefault("REQUIRE_INVITATION_OTP", false)
	v.SetDefault("ALLOW_ADMIN_SELF_REGISTRATION", false)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

// Load reads configuration from the environment. Values from a .env file
// must already be exported (see godotenv.Load in main).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		ServerPort:         v.GetString("SERVER_PORT"),
		UploadsDir:         v.GetString("UPLOADS_DIR"),
		StaticDir:          v.GetString("STATIC_DIR"),
		AppBaseURL:         strings.TrimRight(v.GetString("APP_BASE_URL"), "/"),
		CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		JWT: JWTConfig{
			SecretKey:  v.GetString("JWT_SECRET_KEY"),
			Expiration: time.Duration(v.GetInt("JWT_EXPIRATION_MINUTES")) * time.Minute,
		},
		OTP: OTPConfig{
			BaseURL:     strings.TrimRight(v.GetString("OTP_BASE_URL"), "/"),
			AccountSID:  v.GetString("OTP_ACCOUNT_SID"),
			AuthToken:   v.GetString("OTP_AUTH_TOKEN"),
			ServiceSID:  v.GetString("OTP_SERVICE_SID"),
			CountryCode: v.GetString("OTP_COUNTRY_CODE"),
			Timeout:     time.Duration(v.GetInt("OTP_TIMEOUT_SECONDS")) * time.Second,
		},
		Mail: MailConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			Username: v.GetString("SMTP_USER"),
			Password: v.GetString("SMTP_PASS"),
			From:     v.GetString("MAIL_FROM"),
			Timeout:  time.Duration(v.GetInt("MAIL_TIMEOUT_SECONDS")) * time.Second,
		},
		InitialAdminEmail:          strings.ToLower(strings.TrimSpace(v.GetString("INITIAL_ADMIN_EMAIL"))),
		RequireInvitationOTP:       v.GetBool("REQUIRE_INVITATION_OTP"),
		AllowAdminSelfRegistration: v.GetBool("ALLOW_ADMIN_SELF_REGISTRATION"),
		LogLevel:                   strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat:                  strings.ToLower(v.GetString("LOG_FORMAT")),
	}

	dbCfg, err := loadDBConfig(v)
	if err != nil {
		return nil, err
	}
	cfg.DB = *dbCfg

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWT.SecretKey == "" {
		return errors.New("JWT_SECRET_KEY not set in environment")
	}
	if c.JWT.Expiration <= 0 {
		return fmt.Errorf("JWT_EXPIRATION_MINUTES must be positive, got %s", c.JWT.Expiration)
	}
	if c.OTP.CountryCode == "" || !strings.HasPrefix(c.OTP.CountryCode, "+") {
		return fmt.Errorf("OTP_COUNTRY_CODE must start with '+', got %q", c.OTP.CountryCode)
	}
	if c.OTP.Timeout <= 0 || c.Mail.Timeout <= 0 {
		return errors.New("OTP_TIMEOUT_SECONDS and MAIL_TIMEOUT_SECONDS must be positive")
	}
	if c.Mail.Enabled() && c.Mail.From == "" {
		return errors.New("MAIL_FROM is required when SMTP_HOST is set")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
