package config

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server     Server
	Database   Database
	Log        Log
	Gemini     Gemini
	Speech     Speech
	Minio      Minio
	Evaluation Evaluation
	Worker     Worker
}

type Server struct {
	Port string
}

type Database struct {
	Host     string
	Port     string
	User     string
	Password string `json:"-"`
	Name     string
	SSLMode  string
}

type Log struct {
	Level  string
	Pretty bool
}

type Gemini struct {
	APIKey string `json:"-"`
	Model  string
}

// Speech selects the speech-to-text backend. Provider is "http" for any
// Whisper-compatible endpoint or "google" for Cloud Speech-to-Text.
type Speech struct {
	Provider        string
	Endpoint        string
	APIKey          string `json:"-"`
	Model           string
	CredentialsFile string
}

type Minio struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string `json:"-"`
	BucketName      string
	UseSSL          bool
}

type Evaluation struct {
	TranscriptionTimeout time.Duration
	EvaluationTimeout    time.Duration
	DefaultLanguage      string
	CorrectnessThreshold float64
	Weights              LUSWeights
}

// LUSWeights are the per-metric weights of the LUS composite. They are
// applied as-is and are expected to sum to 1.
type LUSWeights struct {
	Accuracy      float64
	Fluency       float64
	Pronunciation float64
	Speed         float64
	Comprehension float64
}

func DefaultLUSWeights() LUSWeights {
	return LUSWeights{
		Accuracy:      0.35,
		Fluency:       0.25,
		Pronunciation: 0.20,
		Speed:         0.10,
		Comprehension: 0.10,
	}
}

func (w LUSWeights) Sum() float64 {
	return w.Accuracy + w.Fluency + w.Pronunciation + w.Speed + w.Comprehension
}

type Worker struct {
	Count     int
	QueueSize int
}

func NewConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("Error reading config file")
	}

	var config Config

	config.Server.Port = v.GetString("SERVER_PORT")
	config.Database.Host = v.GetString("DATABASE_HOST")
	config.Database.Port = v.GetString("DATABASE_PORT")
	config.Database.User = v.GetString("DATABASE_USER")
	config.Database.Password = v.GetString("DATABASE_PASSWORD")
	config.Database.Name = v.GetString("DATABASE_NAME")
	config.Database.SSLMode = v.GetString("DATABASE_SSLMODE")

	config.Log.Level = v.GetString("LOG_LEVEL")
	config.Log.Pretty = v.GetBool("LOG_PRETTY")

	config.Gemini.APIKey = v.GetString("GEMINI_API_KEY")
	config.Gemini.Model = v.GetString("GEMINI_MODEL")

	config.Speech.Provider = v.GetString("STT_PROVIDER")
	config.Speech.Endpoint = v.GetString("STT_ENDPOINT")
	config.Speech.APIKey = v.GetString("STT_API_KEY")
	config.Speech.Model = v.GetString("STT_MODEL")
	config.Speech.CredentialsFile = v.GetString("GOOGLE_CREDENTIALS_FILE")

	config.Minio.Endpoint = v.GetString("MINIO_ENDPOINT")
	config.Minio.AccessKeyID = v.GetString("MINIO_ACCESS_KEY_ID")
	config.Minio.SecretAccessKey = v.GetString("MINIO_SECRET_ACCESS_KEY")
	config.Minio.BucketName = v.GetString("MINIO_BUCKET_NAME")
	config.Minio.UseSSL = v.GetBool("MINIO_USE_SSL")

	config.Evaluation.TranscriptionTimeout = v.GetDuration("TRANSCRIPTION_TIMEOUT")
	config.Evaluation.EvaluationTimeout = v.GetDuration("EVALUATION_TIMEOUT")
	config.Evaluation.DefaultLanguage = v.GetString("DEFAULT_LANGUAGE")
	config.Evaluation.CorrectnessThreshold = v.GetFloat64("CORRECTNESS_THRESHOLD")
	config.Evaluation.Weights = LUSWeights{
		Accuracy:      v.GetFloat64("LUS_WEIGHT_ACCURACY"),
		Fluency:       v.GetFloat64("LUS_WEIGHT_FLUENCY"),
		Pronunciation: v.GetFloat64("LUS_WEIGHT_PRONUNCIATION"),
		Speed:         v.GetFloat64("LUS_WEIGHT_SPEED"),
		Comprehension: v.GetFloat64("LUS_WEIGHT_COMPREHENSION"),
	}

	config.Worker.Count = v.GetInt("WORKER_COUNT")
	config.Worker.QueueSize = v.GetInt("QUEUE_SIZE")

	if err := config.Validate(); err != nil {
		return nil, err
	}

	log.Info().Interface("config", config).Msg("Config loaded")
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	weights := DefaultLUSWeights()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("DATABASE_PORT", "5432")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	v.SetDefault("STT_PROVIDER", "http")
	v.SetDefault("STT_MODEL", "whisper-1")
	v.SetDefault("MINIO_BUCKET_NAME", "recordings")
	v.SetDefault("TRANSCRIPTION_TIMEOUT", 60*time.Second)
	v.SetDefault("EVALUATION_TIMEOUT", 30*time.Second)
	v.SetDefault("DEFAULT_LANGUAGE", "en-US")
	v.SetDefault("CORRECTNESS_THRESHOLD", 90.0)
	v.SetDefault("LUS_WEIGHT_ACCURACY", weights.Accuracy)
	v.SetDefault("LUS_WEIGHT_FLUENCY", weights.Fluency)
	v.SetDefault("LUS_WEIGHT_PRONUNCIATION", weights.Pronunciation)
	v.SetDefault("LUS_WEIGHT_SPEED", weights.Speed)
	v.SetDefault("LUS_WEIGHT_COMPREHENSION", weights.Comprehension)
	v.SetDefault("WORKER_COUNT", 4)
	v.SetDefault("QUEUE_SIZE", 256)
}

func (c *Config) Validate() error {
	if c.Evaluation.CorrectnessThreshold < 0 || c.Evaluation.CorrectnessThreshold > 100 {
		return fmt.Errorf("correctness threshold %.2f is out of range (0-100)", c.Evaluation.CorrectnessThreshold)
	}
	w := c.Evaluation.Weights
	for name, value := range map[string]float64{
		"accuracy": w.Accuracy, "fluency": w.Fluency, "pronunciation": w.Pronunciation,
		"speed": w.Speed, "comprehension": w.Comprehension,
	} {
		if value < 0 {
			return fmt.Errorf("lus weight %s must not be negative, got %.2f", name, value)
		}
	}
	if w.Sum() <= 0 {
		return fmt.Errorf("lus weights must not all be zero")
	}
	if c.Evaluation.TranscriptionTimeout <= 0 || c.Evaluation.EvaluationTimeout <= 0 {
		return fmt.Errorf("external call timeouts must be positive")
	}
	if c.Worker.Count < 1 {
		return fmt.Errorf("worker count must be at least 1, got %d", c.Worker.Count)
	}
	if c.Worker.QueueSize < 1 {
		return fmt.Errorf("queue size must be at least 1, got %d", c.Worker.QueueSize)
	}
	switch c.Speech.Provider {
	case "http", "google":
	default:
		return fmt.Errorf("unsupported speech provider %q", c.Speech.Provider)
	}
	return nil
}
