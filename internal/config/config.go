package config

import (
	"errors"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

type Config struct {
	LLM       LLMConfig      `yaml:"llm"`
	EmbedLLM  LLMConfig      `yaml:"embed_llm"`
	Questions QuestionConfig `yaml:"questions"`
	RAG       RAGConfig      `yaml:"rag"`
	Study     StudyConfig    `yaml:"study"`
	Database  DatabaseConfig `yaml:"database"`
	Server    ServerConfig   `yaml:"server"`
	Log       LogConfig      `yaml:"log"`
}

// LLMConfig describes one inference endpoint.
type LLMConfig struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	Key      string `yaml:"key"`
	Model    string `yaml:"model"`
}

type QuestionConfig struct {
	NumQuestions  int   `yaml:"num_questions"`
	MaxLength     int   `yaml:"max_length"`
	MaxInputWords int   `yaml:"max_input_words"`
	MaxWords      int   `yaml:"max_words"`
	Seed          int64 `yaml:"seed"`
}

type RAGConfig struct {
	WordsPerChunk int    `yaml:"words_per_chunk"`
	TopK          int    `yaml:"top_k"`
	EncryptionKey string `yaml:"encryption_key"`
	Compress      bool   `yaml:"compress"`
}

type StudyConfig struct {
	UploadsDir      string `yaml:"uploads_dir"`
	DataDir         string `yaml:"data_dir"`
	QuickChunks     int    `yaml:"quick_chunks"`
	FlashcardChunks int    `yaml:"flashcard_chunks"`
	PreviewChars    int    `yaml:"preview_chars"`
}

type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

type ServerConfig struct {
	Port    string `yaml:"port"`
	AppName string `yaml:"app_name"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// LoadConfig reads the YAML file at path, applies environment overrides and
// fills defaults. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyEnv() {
	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.LLM.BaseURL, "LLM_BASE_URL")
	setString(&c.LLM.Key, "LLM_API_KEY")
	setString(&c.LLM.Model, "LLM_MODEL")
	setString(&c.EmbedLLM.Provider, "EMBED_PROVIDER")
	setString(&c.EmbedLLM.BaseURL, "EMBED_BASE_URL")
	setString(&c.EmbedLLM.Key, "EMBED_API_KEY")
	setString(&c.EmbedLLM.Model, "EMBED_MODEL")
	setString(&c.Database.DSN, "DATABASE_URL")
	setString(&c.Database.Password, "DATABASE_PASSWORD")
	setString(&c.RAG.EncryptionKey, "EMBEDDINGS_ENCRYPTION_KEY")
	setString(&c.Server.Port, "PORT")
	setString(&c.Log.Level, "LOG_LEVEL")
	if v := os.Getenv("DATABASE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Database.Enabled = b
		}
	}
}

func (c *Config) applyDefaults() {
	defaultLLM(&c.LLM, "llama3.2")
	defaultLLM(&c.EmbedLLM, "all-minilm")

	q := &c.Questions
	if q.NumQuestions <= 0 {
		q.NumQuestions = 2
	}
	if q.MaxLength <= 0 {
		q.MaxLength = 64
	}
	if q.MaxInputWords <= 0 {
		q.MaxInputWords = 400
	}
	if q.MaxWords <= 0 {
		q.MaxWords = 12
	}

	if c.RAG.WordsPerChunk <= 0 {
		c.RAG.WordsPerChunk = 1000
	}
	if c.RAG.TopK <= 0 {
		c.RAG.TopK = 3
	}

	s := &c.Study
	if s.UploadsDir == "" {
		s.UploadsDir = "data/uploads"
	}
	if s.DataDir == "" {
		s.DataDir = "data"
	}
	if s.QuickChunks <= 0 {
		s.QuickChunks = 5
	}
	if s.FlashcardChunks <= 0 {
		s.FlashcardChunks = 20
	}
	if s.PreviewChars <= 0 {
		s.PreviewChars = 800
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "pgdriver"
	}
	if c.Server.Port == "" {
		c.Server.Port = "8501"
	}
	if c.Server.AppName == "" {
		c.Server.AppName = "Study Assistant"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func defaultLLM(l *LLMConfig, model string) {
	if l.Provider == "" {
		l.Provider = ProviderOllama
	}
	if l.BaseURL == "" && l.Provider == ProviderOllama {
		l.BaseURL = "http://localhost:11434"
	}
	if l.Model == "" {
		l.Model = model
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
