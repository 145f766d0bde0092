package config

import (
	"log"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	App struct {
		Env       string `env:"APP_ENV" env-default:"development"`
		Port      int    `env:"APP_PORT" env-default:"8080"`
		SentryUrl string `env:"SENTRY_URL"`
	}
	Api struct {
		BaseURL        string  `env:"API_BASE_URL" env-default:"https://api.gastrofolly.com"`
		TimeoutSeconds int     `env:"API_TIMEOUT_SECONDS" env-default:"30"`
		RequestsPerSec float64 `env:"API_REQUESTS_PER_SEC" env-default:"10"`
		RequestBurst   int     `env:"API_REQUEST_BURST" env-default:"20"`
	}
	Feed struct {
		PageLimit              int `env:"FEED_PAGE_LIMIT" env-default:"20"`
		SearchDebounceMs       int `env:"FEED_SEARCH_DEBOUNCE_MS" env-default:"500"`
		TrendingRefreshMinutes int `env:"FEED_TRENDING_REFRESH_MINUTES" env-default:"30"`
	}
	Autoplay struct {
		DebounceMs int `env:"AUTOPLAY_DEBOUNCE_MS" env-default:"0"`
	}
	Composer struct {
		MaxImages         int `env:"COMPOSER_MAX_IMAGES" env-default:"10"`
		UploadConcurrency int `env:"COMPOSER_UPLOAD_CONCURRENCY" env-default:"4"`
	}
}

var (
	once sync.Once
	cfg  *Config
)

func New() (*Config, error) {
	once.Do(func() {
		cfg = &Config{}
		if err := cleanenv.ReadEnv(cfg); err != nil {
			help, _ := cleanenv.GetDescription(cfg, nil)
			log.Fatalf("Failed to read configuration: %v\n%v", err, help)
		}
	})
	return cfg, nil
}
