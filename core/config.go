package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host            string
		Address         string
		DebugAddress    string
		PublicBaseURL   string
		ShutdownTimeout time.Duration
		SessionMaxAge   time.Duration
		SecureCookies   bool
		ShareLinkTTL    time.Duration
	}

	DatabaseConfig struct {
		Engine        string // sqlite3 | postgres
		Name          string
		Host          string
		Port          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	SMTPConfig struct {
		Host     string
		Port     int
		User     string
		Password string
	}

	EmailConfig struct {
		Backend        string // console | sendgrid | smtp
		DefaultFrom    string
		SendgridApiKey string
		SMTP           SMTPConfig
	}

	UploadsConfig struct {
		Dir     string
		URL     string
		MaxSize int64
	}

	AdminConfig struct {
		Username string
		Password string
	}

	Config struct {
		Env             string
		Debug           bool
		TestMode        bool
		AppName         string
		SecretKey       string
		Build           string
		WorkDir         string
		RollbarToken    string
		LogLevel        string
		DefaultCurrency string
		DefaultLocale   string
		Server          ServerConfig
		Database        DatabaseConfig
		Email           EmailConfig
		Uploads         UploadsConfig
		Admin           AdminConfig
	}
)

func (c DatabaseConfig) Address() string {
	if c.Port == "" {
		return c.Host
	}
	return c.Host + ":" + c.Port
}

// NewConfig loads the configuration from defaults, `config/.env.<env>` and the environment.
// Environment variables are prefixed by the env name, e.g. `PROD_DATABASE_ENGINE=postgres`.
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	v.SetDefault("debug", true)
	v.SetDefault("appName", "QuickReceipt")
	v.SetDefault("secretKey", "k1v0-rcp)xn7$+93=qa&uoxh2(h!x)#*d4(#zt4h^$dffm2ewq")
	v.SetDefault("build", "dev")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("defaultCurrency", "MAD")
	v.SetDefault("defaultLocale", "fr")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugAddress", ":4000")
	v.SetDefault("server.publicBaseURL", "http://localhost:8000")
	v.SetDefault("server.shutdownTimeout", 10*time.Second)
	v.SetDefault("server.sessionMaxAge", 7*24*time.Hour)
	v.SetDefault("server.secureCookies", false)
	v.SetDefault("server.shareLinkTTL", 30*24*time.Hour)

	v.SetDefault("database.engine", "sqlite3")
	v.SetDefault("database.name", "quickreceipt.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("email.backend", "console")
	v.SetDefault("email.defaultFrom", "QuickReceipt <noreply@localhost>")
	v.SetDefault("email.sendgridApiKey", "")
	v.SetDefault("email.smtp.host", "localhost")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.user", "")
	v.SetDefault("email.smtp.password", "")

	v.SetDefault("uploads.dir", filepath.Join("static", "uploads"))
	v.SetDefault("uploads.url", "/static/uploads")
	v.SetDefault("uploads.maxSize", 5*1024*1024)

	v.SetDefault("admin.username", "")
	v.SetDefault("admin.password", "")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, PROD
	if env == "" {
		env = "DEV"
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		Env:             strings.ToLower(env),
		Debug:           v.GetBool("debug"),
		TestMode:        env == "TEST",
		AppName:         v.GetString("appName"),
		SecretKey:       v.GetString("secretKey"),
		Build:           v.GetString("build"),
		WorkDir:         wd,
		RollbarToken:    v.GetString("rollbarToken"),
		LogLevel:        v.GetString("log.level"),
		DefaultCurrency: v.GetString("defaultCurrency"),
		DefaultLocale:   v.GetString("defaultLocale"),
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Address:         v.GetString("server.address"),
			DebugAddress:    v.GetString("server.debugAddress"),
			PublicBaseURL:   strings.TrimRight(v.GetString("server.publicBaseURL"), "/"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
			SessionMaxAge:   v.GetDuration("server.sessionMaxAge"),
			SecureCookies:   v.GetBool("server.secureCookies"),
			ShareLinkTTL:    v.GetDuration("server.shareLinkTTL"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Name:          v.GetString("database.name"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Email: EmailConfig{
			Backend:        v.GetString("email.backend"),
			DefaultFrom:    v.GetString("email.defaultFrom"),
			SendgridApiKey: v.GetString("email.sendgridApiKey"),
			SMTP: SMTPConfig{
				Host:     v.GetString("email.smtp.host"),
				Port:     v.GetInt("email.smtp.port"),
				User:     v.GetString("email.smtp.user"),
				Password: v.GetString("email.smtp.password"),
			},
		},
		Uploads: UploadsConfig{
			Dir:     v.GetString("uploads.dir"),
			URL:     strings.TrimRight(v.GetString("uploads.url"), "/"),
			MaxSize: v.GetInt64("uploads.maxSize"),
		},
		Admin: AdminConfig{
			Username: v.GetString("admin.username"),
			Password: v.GetString("admin.password"),
		},
	}
	if !filepath.IsAbs(conf.Uploads.Dir) {
		conf.Uploads.Dir = filepath.Join(wd, conf.Uploads.Dir)
	}
	return conf
}
