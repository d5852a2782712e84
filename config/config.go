// Package config loads the server settings from defaults, an optional config file,
// .env files and TUITION_* environment variables, in increasing precedence.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const envPrefix = "TUITION"

// Store drivers
const (
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Env   string `mapstructure:"env"`
	Debug bool   `mapstructure:"debug"`
	// Seed imports the example document when the store has no students.
	Seed bool `mapstructure:"seed"`

	Server struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"server"`

	Store struct {
		Driver string `mapstructure:"driver"`
	} `mapstructure:"store"`

	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	Postgres struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"postgres"`

	Auth struct {
		// JWTSecret verifies bearer tokens issued by the identity provider.
		JWTSecret string `mapstructure:"jwt_secret"`
	} `mapstructure:"auth"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")
	v.SetDefault("debug", false)
	v.SetDefault("seed", false)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("store.driver", DriverRedis)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("postgres.dsn", "postgres://localhost:5432/tuition?sslmode=disable")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("log.level", "info")
}

// Load builds the configuration. configFile may be empty.
func Load(configFile string) (*Config, error) {
	// .env.<env> wins over .env; variables already set in the process win over both
	env := strings.ToLower(os.Getenv(envPrefix + "_ENV"))
	if env == "" {
		env = "dev"
	}
	for _, path := range []string{".env." + env, ".env"} {
		if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "loading %s", path)
		}
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config file %s", configFile)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	if err := conf.validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case DriverRedis, DriverPostgres, DriverMemory:
	default:
		return errors.Errorf("unknown store driver %q", c.Store.Driver)
	}
	return nil
}
