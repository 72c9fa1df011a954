package config

import (
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db" validate:"gte=0"`
		TTL      string `yaml:"ttl"`

		// SessionHistory caps stored quiz records per user.
		SessionHistory int64 `yaml:"sessionHistory" validate:"gte=0"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Questions struct {
		Path string `yaml:"path"`
		TTL  string `yaml:"ttl"`
	} `yaml:"questions"`
	Game struct {
		Quiz struct {
			QuestionCount int    `yaml:"questionCount" validate:"gte=1,lte=100"`
			Countdown     string `yaml:"countdown"`
			AnswerDelay   string `yaml:"answerDelay"`
		} `yaml:"quiz"`
		Rapid struct {
			Duration         string `yaml:"duration"`
			PointsPerCorrect int    `yaml:"pointsPerCorrect" validate:"gte=1"`
			PerfectBonus     int    `yaml:"perfectBonus" validate:"gte=0"`
		} `yaml:"rapid"`
		Subtract struct {
			StartScore int `yaml:"startScore" validate:"gte=2,lte=1001"`
		} `yaml:"subtract"`
		TickInterval   string `yaml:"tickInterval"`
		Timezone       string `yaml:"timezone" validate:"omitempty,timezone"`
		PersistTimeout string `yaml:"persistTimeout"`
	} `yaml:"game"`
	Log struct {
		Level  string `yaml:"level" validate:"omitempty,oneof=trace debug info warn warning error fatal panic"`
		Format string `yaml:"format" validate:"omitempty,oneof=json text"`
	} `yaml:"log"`
}

// Default returns the settings used when a key is absent from the file.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Redis.TTL = "10m"
	cfg.Redis.SessionHistory = 50
	cfg.Questions.TTL = "10m"
	cfg.Game.Quiz.QuestionCount = 10
	cfg.Game.Quiz.Countdown = "3s"
	cfg.Game.Quiz.AnswerDelay = "3s"
	cfg.Game.Rapid.Duration = "30s"
	cfg.Game.Rapid.PointsPerCorrect = 10
	cfg.Game.Rapid.PerfectBonus = 50
	cfg.Game.Subtract.StartScore = 501
	cfg.Game.TickInterval = "100ms"
	cfg.Game.Timezone = "UTC"
	cfg.Game.PersistTimeout = "5s"
	cfg.Log.Format = "json"
	return cfg
}

// Load reads YAML config from path on top of Default and validates it.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks field ranges and that every duration parses.
func Validate(cfg Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	durations := map[string]string{
		"redis.ttl":             cfg.Redis.TTL,
		"questions.ttl":         cfg.Questions.TTL,
		"game.quiz.countdown":   cfg.Game.Quiz.Countdown,
		"game.quiz.answerDelay": cfg.Game.Quiz.AnswerDelay,
		"game.rapid.duration":   cfg.Game.Rapid.Duration,
		"game.tickInterval":     cfg.Game.TickInterval,
		"game.persistTimeout":   cfg.Game.PersistTimeout,
	}
	for key, raw := range durations {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("invalid config: %s: %w", key, err)
		}
	}
	return nil
}

// Location resolves the timezone used for daily streaks and "today".
func (c Config) Location() (*time.Location, error) {
	if c.Game.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Game.Timezone)
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
