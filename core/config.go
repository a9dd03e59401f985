package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const devSecretKey = "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy"

type (
	ServerConfig struct {
		Address            string
		Host               string
		DebugHost          string
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine                 string
		Host                   string
		Port                   int
		Name                   string
		User                   string
		Password               string
		AdminUser              string
		AdminPassword          string
		Encrypt                string
		TrustServerCertificate bool
		MaxOpenConns           int
		MaxIdleConns           int
		ConnTimeout            time.Duration
	}

	BackupConfig struct {
		Dir           string
		ServerDir     string // backup dir as seen by the database server; defaults to Dir
		Prefix        string
		RetentionDays int
		AutoEnabled   bool
		AutoSchedule  string
	}

	Config struct {
		Env              string
		Build            string
		AppName          string
		Debug            bool
		TestMode         bool
		WorkDir          string
		SecretKey        string
		RollbarToken     string
		SendgridApiKey   string
		FrontendBaseURL  string
		ContactRecipient string
		Server           ServerConfig
		Database         DatabaseConfig
		Backup           BackupConfig

		defaultFromEmail string
	}
)

func (c *Config) DefaultFromEmail() mail.Address {
	if addr, err := mail.ParseAddress(c.defaultFromEmail); err == nil {
		return *addr
	}
	return mail.Address{Name: c.AppName, Address: c.defaultFromEmail}
}

func (c *Config) SetDefaultFromEmail(addr string) {
	c.defaultFromEmail = addr
}

func (dc DatabaseConfig) Address() string {
	return net.JoinHostPort(dc.Host, strconv.Itoa(dc.Port))
}

// Validate refuses insecure development settings outside of DEV & TEST.
func (c *Config) Validate() error {
	if c.Env == "PROD" && c.SecretKey == devSecretKey {
		return fmt.Errorf("config: %s_SECRETKEY must be set in production", c.Env)
	}
	if c.Backup.RetentionDays < 0 {
		return fmt.Errorf("config: backup.retentionDays must be positive (got %d)", c.Backup.RetentionDays)
	}
	return nil
}

func newViper(env, workDir string) *viper.Viper {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "EduTrack")
	v.SetDefault("secretKey", devSecretKey)
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("frontendBaseUrl", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "EduTrack <noreply@localhost>")
	v.SetDefault("contactRecipient", "admin@localhost")

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 24*time.Hour)

	v.SetDefault("database.engine", "sqlserver")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 1433)
	v.SetDefault("database.name", "EduTrack")
	v.SetDefault("database.user", "edutrack")
	v.SetDefault("database.password", "Edutrack!2023")
	v.SetDefault("database.adminUser", "sa")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.encrypt", "disable")
	v.SetDefault("database.trustServerCertificate", true)
	v.SetDefault("database.maxOpenConns", 20)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connTimeout", 30*time.Second)

	v.SetDefault("backup.dir", filepath.Join(workDir, "backups"))
	v.SetDefault("backup.serverDir", "")
	v.SetDefault("backup.prefix", "")
	v.SetDefault("backup.retentionDays", 30)
	v.SetDefault("backup.autoEnabled", false)
	v.SetDefault("backup.autoSchedule", "0 2 * * *")

	if env == "TEST" {
		v.SetDefault("testMode", true)
	}

	// DEV_DATABASE_HOST -> database.host
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// loadDotEnv loads config/.env.<env> if it exists (ignored if it does not).
func loadDotEnv(env, workDir string) error {
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return fmt.Errorf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	return nil
}

// NewConfig reads the app configuration from defaults, the optional dotenv file & the environment.
func NewConfig() *Config {
	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	workDir := os.Getenv("WORKDIR")
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			log.Fatal(err)
		}
		workDir = wd
	}
	if err := loadDotEnv(env, workDir); err != nil {
		log.Fatal(err)
	}

	conf := configFromViper(env, workDir, newViper(env, workDir))
	if err := conf.Validate(); err != nil {
		log.Fatal(err)
	}
	return conf
}

func configFromViper(env, workDir string, v *viper.Viper) *Config {
	conf := &Config{
		Env:              env,
		Build:            v.GetString("build"),
		AppName:          v.GetString("appName"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		WorkDir:          workDir,
		SecretKey:        v.GetString("secretKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		FrontendBaseURL:  v.GetString("frontendBaseUrl"),
		ContactRecipient: v.GetString("contactRecipient"),
		Server: ServerConfig{
			Address:            v.GetString("server.address"),
			Host:               v.GetString("server.host"),
			DebugHost:          v.GetString("server.debugHost"),
			ShutdownTimeout:    v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta: v.GetDuration("server.jwtExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:                 v.GetString("database.engine"),
			Host:                   v.GetString("database.host"),
			Port:                   v.GetInt("database.port"),
			Name:                   v.GetString("database.name"),
			User:                   v.GetString("database.user"),
			Password:               v.GetString("database.password"),
			AdminUser:              v.GetString("database.adminUser"),
			AdminPassword:          v.GetString("database.adminPassword"),
			Encrypt:                v.GetString("database.encrypt"),
			TrustServerCertificate: v.GetBool("database.trustServerCertificate"),
			MaxOpenConns:           v.GetInt("database.maxOpenConns"),
			MaxIdleConns:           v.GetInt("database.maxIdleConns"),
			ConnTimeout:            v.GetDuration("database.connTimeout"),
		},
		Backup: BackupConfig{
			Dir:           v.GetString("backup.dir"),
			ServerDir:     v.GetString("backup.serverDir"),
			Prefix:        v.GetString("backup.prefix"),
			RetentionDays: v.GetInt("backup.retentionDays"),
			AutoEnabled:   v.GetBool("backup.autoEnabled"),
			AutoSchedule:  v.GetString("backup.autoSchedule"),
		},
		defaultFromEmail: v.GetString("defaultFromEmail"),
	}
	if conf.Backup.Prefix == "" {
		conf.Backup.Prefix = conf.Database.Name
	}
	return conf
}

// NewTestConfig returns the configuration used by tests: TEST env, no dotenv lookup.
func NewTestConfig() *Config {
	wd, _ := os.Getwd()
	return configFromViper("TEST", wd, newViper("TEST", wd))
}
