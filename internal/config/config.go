package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port         int              `json:"port"`
	JWTSecret    string           `json:"jwt_secret"`
	AuthDisabled bool             `json:"auth_disabled"`
	CORSOrigins  []string         `json:"cors_origins"`
	LogConfig    logger.LogConfig `json:"log_config"`
	Database     DatabaseConfig   `json:"database"`
	FileStore    FileStoreConfig  `json:"file_store"`
	AI           AIConfig         `json:"ai"`
	Chunk        ChunkConfig      `json:"chunk"`
	Search       SearchConfig     `json:"search"`
	OrphanSweep  string           `json:"orphan_sweep_spec"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type AIConfig struct {
	Provider   string      `json:"provider"`
	EmbedModel string      `json:"embed_model"`
	Data       interface{} `json:"data"`
}

type ChunkConfig struct {
	Size    int `json:"size"`
	Overlap int `json:"overlap"`
}

type SearchConfig struct {
	DefaultLimit    int `json:"default_limit"`
	CandidateFactor int `json:"candidate_factor"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if !cfg.AuthDisabled && cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret is required unless auth_disabled is set")
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	if cfg.AI.Provider == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	if cfg.AI.EmbedModel == "" {
		return nil, fmt.Errorf("ai.embed_model is required")
	}
	if cfg.Chunk.Size <= 0 {
		cfg.Chunk.Size = 1000
	}
	if cfg.Chunk.Overlap < 0 || cfg.Chunk.Overlap >= cfg.Chunk.Size {
		cfg.Chunk.Overlap = cfg.Chunk.Size / 5
	}
	if cfg.Search.DefaultLimit <= 0 {
		cfg.Search.DefaultLimit = 10
	}
	if cfg.Search.CandidateFactor <= 0 {
		cfg.Search.CandidateFactor = 20
	}
	if cfg.OrphanSweep == "" {
		cfg.OrphanSweep = "*/10 * * * *"
	}
	return &cfg, nil
}
