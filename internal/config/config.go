package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"script-translator/internal/parser"
	"script-translator/internal/session"
	"script-translator/internal/textutil"
)

type Config struct {
	SourceLanguage    string
	FallbackLanguages []string
	WorkerCount       int
	TextFilter        textutil.Filter
	ExportFormat      session.Format
	MemoryDSN         string
	Include           []string
	Exclude           []string
	LogLevel          string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found, using environment variables")
	}

	return &Config{
		SourceLanguage:    getEnv("SOURCE_LANGUAGE", "ja"),
		FallbackLanguages: getEnvList("FALLBACK_LANGUAGES", parser.DefaultLanguages),
		WorkerCount:       getEnvInt("WORKER_COUNT", 4),
		TextFilter:        textutil.Filter(strings.ToLower(getEnv("TEXT_FILTER", string(textutil.FilterLetters)))),
		ExportFormat:      session.Format(strings.ToLower(getEnv("EXPORT_FORMAT", string(session.JSON)))),
		MemoryDSN:         getEnv("MEMORY_DSN", ""),
		Include:           getEnvList("INCLUDE", nil),
		Exclude:           getEnvList("EXCLUDE", nil),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}
}

// Validate reports the first invalid setting of each field.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.SourceLanguage, validation.Required),
		validation.Field(&c.WorkerCount, validation.Required, validation.Min(1), validation.Max(256)),
		validation.Field(&c.TextFilter, validation.Required, validation.In(textutil.FilterAny, textutil.FilterLetters, textutil.FilterCJK)),
		validation.Field(&c.ExportFormat, validation.Required, validation.In(session.JSON, session.TSV)),
		validation.Field(&c.LogLevel, validation.Required, validation.By(func(v interface{}) error {
			if _, err := zerolog.ParseLevel(v.(string)); err != nil {
				return fmt.Errorf("unknown log level")
			}
			return nil
		})),
	)
}

// ParseOptions returns the parser options implied by the configuration.
func (c *Config) ParseOptions() parser.Options {
	return parser.Options{
		SourceLanguage:    c.SourceLanguage,
		FallbackLanguages: c.FallbackLanguages,
		Filter:            c.TextFilter,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// getEnvList splits a comma-separated variable, dropping blank items.
func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
