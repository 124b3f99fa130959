package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var config = viper.New()

type Config struct {
	AppEnv     string `mapstructure:"APP_ENV"`
	AppName    string `mapstructure:"APP_NAME"`
	AppVersion string `mapstructure:"APP_VERSION"`
	Server     struct {
		Addr         string        `mapstructure:"ADDR"`
		ReadTimeout  time.Duration `mapstructure:"READ_TIMEOUT"`
		WriteTimeout time.Duration `mapstructure:"WRITE_TIMEOUT"`
		IdleTimeout  time.Duration `mapstructure:"IDLE_TIMEOUT"`
	} `mapstructure:"HTTP_SERVER"`
	TLS struct {
		Enable   bool   `mapstructure:"ENABLE"`
		CertPath string `mapstructure:"CERT_PATH"`
		KeyPath  string `mapstructure:"KEY_PATH"`
	} `mapstructure:"TLS"`
	Database struct {
		Host           string `mapstructure:"HOST"`
		Port           string `mapstructure:"PORT"`
		DBNAME         string `mapstructure:"DBNAME"`
		User           string `mapstructure:"USER"`
		Password       string `mapstructure:"PASSWORD"`
		SSLMode        string `mapstructure:"SSLMODE"`
		Timezone       string `mapstructure:"TIMEZONE"`
		ConnectionPool struct {
			MaxIdleConn     int           `mapstructure:"MAX_IDLE_CONN"`
			MaxOpenConns    int           `mapstructure:"MAX_OPEN_CONNS"`
			ConnMaxLifetime time.Duration `mapstructure:"CONN_MAX_LIFETIME"`
			ConnMaxIdleTime time.Duration `mapstructure:"CONN_MAX_IDLE_TIME"`
		} `mapstructure:"CONNECTION_POOL"`
	} `mapstructure:"DATABASE"`
	Redis struct {
		Addr        string        `mapstructure:"ADDR"`
		Password    string        `mapstructure:"PASSWORD"`
		DB          int           `mapstructure:"DB"`
		PoolSize    int           `mapstructure:"POOL_SIZE"`
		PoolTimeout time.Duration `mapstructure:"POOL_TIMEOUT"`
	} `mapstructure:"REDIS"`
	Strava struct {
		ClientID       string        `mapstructure:"CLIENT_ID"`
		ClientSecret   string        `mapstructure:"CLIENT_SECRET"`
		BaseURL        string        `mapstructure:"BASE_URL"`
		TokenURL       string        `mapstructure:"TOKEN_URL"`
		PerPage        int           `mapstructure:"PER_PAGE"`
		MaxPages       int           `mapstructure:"MAX_PAGES"`
		RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	} `mapstructure:"STRAVA"`
	Sync struct {
		Cooldown          time.Duration `mapstructure:"COOLDOWN"`
		FetchTimeout      time.Duration `mapstructure:"FETCH_TIMEOUT"`
		LockTTL           time.Duration `mapstructure:"LOCK_TTL"`
		TokenSafetyMargin time.Duration `mapstructure:"TOKEN_SAFETY_MARGIN"`
	} `mapstructure:"SYNC"`
	Ranking struct {
		TopN     int           `mapstructure:"TOP_N"`
		Interval time.Duration `mapstructure:"INTERVAL"`
	} `mapstructure:"RANKING"`
}

var Module = fx.Module("config", fx.Provide(LoadConfig))

func LoadConfig() *Config {
	config.SetConfigName("config")
	config.SetConfigType("yaml")
	config.AddConfigPath(".")

	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AutomaticEnv()

	setDefaults()

	if err := config.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			zap.L().Error("failed to read config file", zap.Error(err))
			os.Exit(1)
		}
	}

	var cfg Config
	if err := config.Unmarshal(&cfg); err != nil {
		zap.L().Error("failed to unmarshal config", zap.Error(err))
		os.Exit(1)
	}

	return &cfg
}

func setDefaults() {
	config.SetDefault("APP_ENV", "development")
	config.SetDefault("APP_NAME", "goreal-engine")
	config.SetDefault("HTTP_SERVER.ADDR", "8080")
	config.SetDefault("HTTP_SERVER.READ_TIMEOUT", 15*time.Second)
	config.SetDefault("HTTP_SERVER.WRITE_TIMEOUT", 30*time.Second)
	config.SetDefault("HTTP_SERVER.IDLE_TIMEOUT", time.Minute)
	config.SetDefault("STRAVA.BASE_URL", "https://www.strava.com/api/v3")
	config.SetDefault("STRAVA.TOKEN_URL", "https://www.strava.com/oauth/token")
	config.SetDefault("STRAVA.PER_PAGE", 50)
	config.SetDefault("STRAVA.MAX_PAGES", 10)
	config.SetDefault("STRAVA.REQUEST_TIMEOUT", 10*time.Second)
	config.SetDefault("SYNC.COOLDOWN", 15*time.Minute)
	config.SetDefault("SYNC.FETCH_TIMEOUT", time.Minute)
	config.SetDefault("SYNC.LOCK_TTL", 2*time.Minute)
	config.SetDefault("SYNC.TOKEN_SAFETY_MARGIN", time.Hour)
	config.SetDefault("RANKING.TOP_N", 50)
	config.SetDefault("RANKING.INTERVAL", time.Hour)
}
