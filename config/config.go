// Package config loads the application configuration from defaults, an
// optional library.yaml, a .env file and LIBRARY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"library-lending/logger"
)

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Storage selects and locates the persistence backend.
type Storage struct {
	Backend    string `mapstructure:"backend" json:"backend" validate:"required,oneof=file sqlite"`
	Dir        string `mapstructure:"dir" json:"dir"`
	BooksFile  string `mapstructure:"books_file" json:"booksFile" validate:"required"`
	UsersFile  string `mapstructure:"users_file" json:"usersFile" validate:"required"`
	LoansFile  string `mapstructure:"loans_file" json:"loansFile" validate:"required"`
	SQLitePath string `mapstructure:"sqlite_path" json:"sqlitePath" validate:"required"`
}

// Config holds all configuration options.
type Config struct {
	Storage Storage    `mapstructure:"storage" json:"storage"`
	Log     logger.Log `mapstructure:"log" json:"log"`
}

// SetDefaults registers every key with its default so that environment
// variables are picked up for all of them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("storage.dir", "storage")
	v.SetDefault("storage.books_file", "books")
	v.SetDefault("storage.users_file", "users")
	v.SetDefault("storage.loans_file", "loans")
	v.SetDefault("storage.sqlite_path", "library.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load reads configuration into a Config. If configFile is empty,
// library.yaml is looked up in the working directory and may be absent.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	SetDefaults(v)
	v.SetEnvPrefix("LIBRARY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("library")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// BooksPath is the books file, resolved against Dir unless absolute.
func (s Storage) BooksPath() string { return s.resolve(s.BooksFile) }

// UsersPath is the users file, resolved against Dir unless absolute.
func (s Storage) UsersPath() string { return s.resolve(s.UsersFile) }

// LoansPath is the loans file, resolved against Dir unless absolute.
func (s Storage) LoansPath() string { return s.resolve(s.LoansFile) }

func (s Storage) resolve(name string) string {
	if filepath.IsAbs(name) || s.Dir == "" {
		return name
	}
	return filepath.Join(s.Dir, name)
}
