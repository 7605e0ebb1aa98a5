package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/paavan-1234/minutes-backend/internal/providers/stt"
	"github.com/spf13/viper"
)

// Settings is every knob the service reads from the environment.
type Settings struct {
	Port string

	PostgresURI string
	RedisURL    string // empty disables redis cache and pub/sub
	MongoURI    string // empty disables the run audit log
	MongoDB     string

	GCSBucket          string // empty disables the archive copy
	GCPCredentialsFile string
	GCPProject         string
	GCPLocation        string

	STTProvider    string // google|whisper
	STTLanguage    string
	WhisperBaseURL string
	WhisperAPIKey  string
	WhisperModel   string

	LLMProvider      string // vertex|openai
	OpenAIBaseURL    string
	OpenAIAPIKey     string
	LLMModelAccurate string
	LLMModelFast     string
	EnableSummary    bool

	STTTimeout     time.Duration
	LLMTimeout     time.Duration
	DBTimeout      time.Duration
	ArchiveTimeout time.Duration

	UploadDir   string
	MaxUploadMB int64

	CacheTTL time.Duration
	RunTTL   time.Duration

	LogLevel  string
	LogFormat string
}

var defaults = map[string]any{
	"PORT":             "8080",
	"MONGO_DB":         "minutes",
	"GCP_LOCATION":     "us-central1",
	"STT_PROVIDER":     "google",
	"STT_LANGUAGE":     "en-US",
	"WHISPER_BASE_URL": "https://api.openai.com/v1",
	"WHISPER_MODEL":    "whisper-1",
	"LLM_PROVIDER":     "vertex",
	"OPENAI_BASE_URL":  "https://api.openai.com/v1",
	"ENABLE_SUMMARY":   true,
	"STT_TIMEOUT":      "5m",
	"LLM_TIMEOUT":      "60s",
	"DB_TIMEOUT":       "10s",
	"ARCHIVE_TIMEOUT":  "2m",
	"MAX_UPLOAD_MB":    100,
	"CACHE_TTL":        "10m",
	"RUN_TTL":          "168h",
	"LOG_LEVEL":        "info",
	"LOG_FORMAT":       "json",
}

// model names per provider when LLM_MODEL_* is unset
var defaultModels = map[string][2]string{
	"vertex": {"gemini-1.5-pro", "gemini-1.5-flash"},
	"openai": {"gpt-4o", "gpt-4o-mini"},
}

// LoadSettings reads .env (when present) and the process environment.
func LoadSettings() (*Settings, error) {
	_ = godotenv.Load()
	return readSettings(viper.New())
}

func readSettings(v *viper.Viper) (*Settings, error) {
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	s := &Settings{
		Port:               v.GetString("PORT"),
		PostgresURI:        v.GetString("POSTGRES_URI"),
		RedisURL:           firstNonEmpty(v.GetString("REDIS_URL"), v.GetString("REDIS_URI"), v.GetString("REDIS_ADDR")),
		MongoURI:           v.GetString("MONGO_URI"),
		MongoDB:            v.GetString("MONGO_DB"),
		GCSBucket:          v.GetString("GCS_BUCKET"),
		GCPCredentialsFile: v.GetString("GCP_CREDENTIALS_FILE"),
		GCPProject:         v.GetString("GCP_PROJECT"),
		GCPLocation:        v.GetString("GCP_LOCATION"),
		STTProvider:        strings.ToLower(v.GetString("STT_PROVIDER")),
		STTLanguage:        v.GetString("STT_LANGUAGE"),
		WhisperBaseURL:     v.GetString("WHISPER_BASE_URL"),
		WhisperAPIKey:      v.GetString("WHISPER_API_KEY"),
		WhisperModel:       v.GetString("WHISPER_MODEL"),
		LLMProvider:        strings.ToLower(v.GetString("LLM_PROVIDER")),
		OpenAIBaseURL:      v.GetString("OPENAI_BASE_URL"),
		OpenAIAPIKey:       v.GetString("OPENAI_API_KEY"),
		LLMModelAccurate:   v.GetString("LLM_MODEL_ACCURATE"),
		LLMModelFast:       v.GetString("LLM_MODEL_FAST"),
		EnableSummary:      v.GetBool("ENABLE_SUMMARY"),
		STTTimeout:         v.GetDuration("STT_TIMEOUT"),
		LLMTimeout:         v.GetDuration("LLM_TIMEOUT"),
		DBTimeout:          v.GetDuration("DB_TIMEOUT"),
		ArchiveTimeout:     v.GetDuration("ARCHIVE_TIMEOUT"),
		UploadDir:          v.GetString("UPLOAD_DIR"),
		MaxUploadMB:        v.GetInt64("MAX_UPLOAD_MB"),
		CacheTTL:           v.GetDuration("CACHE_TTL"),
		RunTTL:             v.GetDuration("RUN_TTL"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		LogFormat:          v.GetString("LOG_FORMAT"),
	}

	if err := s.validate(); err != nil {
		return nil, err
	}
	if limit := s.TranscriberLimitMB(); limit > 0 && s.MaxUploadMB > limit {
		s.MaxUploadMB = limit
	}
	if m, ok := defaultModels[s.LLMProvider]; ok {
		if s.LLMModelAccurate == "" {
			s.LLMModelAccurate = m[0]
		}
		if s.LLMModelFast == "" {
			s.LLMModelFast = m[1]
		}
	}
	return s, nil
}

func (s *Settings) validate() error {
	switch s.STTProvider {
	case "google", "whisper":
	default:
		return fmt.Errorf("STT_PROVIDER must be google or whisper, got %q", s.STTProvider)
	}
	switch s.LLMProvider {
	case "vertex", "openai":
	default:
		return fmt.Errorf("LLM_PROVIDER must be vertex or openai, got %q", s.LLMProvider)
	}
	if s.LLMProvider == "vertex" && s.GCPProject == "" {
		return fmt.Errorf("GCP_PROJECT is required when LLM_PROVIDER=vertex")
	}
	if s.MaxUploadMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", s.MaxUploadMB)
	}
	for name, d := range map[string]time.Duration{
		"STT_TIMEOUT":     s.STTTimeout,
		"LLM_TIMEOUT":     s.LLMTimeout,
		"DB_TIMEOUT":      s.DBTimeout,
		"ARCHIVE_TIMEOUT": s.ArchiveTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	return nil
}

// TranscriberLimitMB is the largest upload the configured transcriber can take,
// or 0 when it reads archived audio from Cloud Storage and has no byte cap.
func (s *Settings) TranscriberLimitMB() int64 {
	switch {
	case s.STTProvider == "whisper":
		return stt.MaxWhisperBytes >> 20
	case s.GCSBucket == "":
		return stt.MaxInlineBytes >> 20
	default:
		return 0
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
