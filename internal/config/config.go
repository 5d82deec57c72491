package config

import "github.com/caarlos0/env/v9"

type Config struct {
	Port       string `env:"PORT" envDefault:"8080"`
	DBUser     string `env:"POSTGRES_USER,required"`
	DBPassword string `env:"POSTGRES_PASSWORD,required"`
	DBHost     string `env:"POSTGRES_HOST,required"`
	DBPort     string `env:"POSTGRES_PORT" envDefault:"5432"`
	DBName     string `env:"POSTGRES_NAME,required"`
	DBSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`

	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	ChatModel    string `env:"GEMINI_CHAT_MODEL" envDefault:"gemini-2.5-flash"`
	EmbedModel   string `env:"GEMINI_EMBED_MODEL" envDefault:"gemini-embedding-001"`
	EmbedDim     int    `env:"EMBED_DIM" envDefault:"768"`

	ChatTopK          int     `env:"CHAT_TOP_K" envDefault:"8"`
	ChatMinSimilarity float64 `env:"CHAT_MIN_SIMILARITY" envDefault:"0.3"`
	ChatHistoryLimit  int     `env:"CHAT_HISTORY_LIMIT" envDefault:"10"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
