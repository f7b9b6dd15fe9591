package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configFileEnvName = "SHOP_CONFIG_FILE"
	envPrefix         = "SHOP"
)

type httpServer struct {
	Addr            string        `mapstructure:"addr"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type mongo struct {
	URI            string `mapstructure:"uri"`
	Database       string `mapstructure:"database"`
	MigrationsPath string `mapstructure:"migrations_path"`
}

type redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type kafka struct {
	Brokers   []string `mapstructure:"brokers"`
	CartTopic string   `mapstructure:"cart_topic"`
}

type auth struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type cart struct {
	MaxRetries int `mapstructure:"max_retries"`
}

type Config struct {
	LogLevel string     `mapstructure:"log_level"`
	HTTP     httpServer `mapstructure:"http"`
	Mongo    mongo      `mapstructure:"mongo"`
	Redis    redis      `mapstructure:"redis"`
	Kafka    kafka      `mapstructure:"kafka"`
	Auth     auth       `mapstructure:"auth"`
	Cart     cart       `mapstructure:"cart"`
}

var defaults = map[string]any{
	"log_level":             "info",
	"http.addr":             ":8080",
	"http.request_timeout":  30 * time.Second,
	"http.shutdown_timeout": 10 * time.Second,
	"mongo.uri":             "mongodb://localhost:27017",
	"mongo.database":        "shop",
	"mongo.migrations_path": "internal/repository/migrations",
	"redis.addr":            "localhost:6379",
	"redis.password":        "",
	"redis.db":              0,
	"kafka.brokers":         []string{},
	"kafka.cart_topic":      "cart-events",
	"auth.jwt_secret":       "",
	"cart.max_retries":      5,
}

// Load reads the optional config file named by --config or SHOP_CONFIG_FILE,
// then lets SHOP_* environment variables override any key. It exits the
// process on failure.
func Load() Config {
	cfg, err := load(os.Args[1:])
	if err != nil {
		die(err)
	}
	return cfg
}

func load(args []string) (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path, err := getConfigFilepath(args)
	if err != nil {
		return Config{}, err
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.UnmarshalExact(&cfg); err != nil {
		return Config{}, err
	}
	if _, err := cfg.SlogLevel(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func getConfigFilepath(args []string) (string, error) {
	cmdLine := pflag.NewFlagSet("shop", pflag.ContinueOnError)
	arg := cmdLine.String("config", "", "config file")
	if err := cmdLine.Parse(args); err != nil {
		return "", err
	}
	if env, ok := os.LookupEnv(configFileEnvName); ok {
		return env, nil
	}
	return *arg, nil
}

func die(err error) {
	fmt.Printf("failed to load config: %v\n", err)
	os.Exit(2)
}

func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// MigrationsURL is the Mongo URI with the database as its path, the form
// golang-migrate expects.
func (c Config) MigrationsURL() (string, error) {
	u, err := url.Parse(c.Mongo.URI)
	if err != nil {
		return "", fmt.Errorf("mongo.uri: %w", err)
	}
	u.Path = "/" + c.Mongo.Database
	return u.String(), nil
}

func (c Config) Print() {
	tmpl := `
	General:
	LogLevel=%q

	HTTP:
	Addr=%q
	RequestTimeout=%s
	ShutdownTimeout=%s

	Mongo:
	Database=%q
	MigrationsPath=%q

	Redis:
	Addr=%q
	DB=%d

	Kafka:
	Brokers=%q
	CartTopic=%q

	Cart:
	MaxRetries=%d

`
	fmt.Println("Loaded config:")
	fmt.Printf(
		strings.TrimLeft(tmpl, "\n"),
		c.LogLevel,
		c.HTTP.Addr,
		c.HTTP.RequestTimeout,
		c.HTTP.ShutdownTimeout,
		c.Mongo.Database,
		c.Mongo.MigrationsPath,
		c.Redis.Addr,
		c.Redis.DB,
		c.Kafka.Brokers,
		c.Kafka.CartTopic,
		c.Cart.MaxRetries,
	)
}
