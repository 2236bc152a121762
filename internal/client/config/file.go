package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/ballot/internal/flagx"
	"gopkg.in/yaml.v3"
)

// FileConfig is a DTO used exclusively for decoding config files. Pointer
// fields tell an absent key from an empty one.
type FileConfig struct {
	ServerBaseURL  *string   `json:"server_base_url" yaml:"server_base_url"`
	RequestTimeout *Duration `json:"request_timeout" yaml:"request_timeout"`
	SessionDBPath  *string   `json:"session_db_path" yaml:"session_db_path"`
	LogLevel       *string   `json:"log_level" yaml:"log_level"`
	LogFile        *string   `json:"log_file" yaml:"log_file"`
}

// parseFile overlays Config with values loaded from the file named by -c or
// -config. Without either flag it does nothing. Read or decode errors panic.
func parseFile(cfg *Config) {
	path := flagx.ConfigPath(os.Args[1:])
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	fc, err := decodeFile(path, data)
	if err != nil {
		panic(err)
	}
	fc.apply(cfg)
}

func decodeFile(path string, data []byte) (*FileConfig, error) {
	var fc FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &fc); err != nil {
			return nil, err
		}
	}
	return &fc, nil
}

func (fc *FileConfig) apply(cfg *Config) {
	if fc.ServerBaseURL != nil {
		cfg.ServerBaseURL = *fc.ServerBaseURL
	}
	if fc.RequestTimeout != nil {
		cfg.RequestTimeout = fc.RequestTimeout.Duration
	}
	if fc.SessionDBPath != nil {
		cfg.SessionDBPath = *fc.SessionDBPath
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = *fc.LogLevel
	}
	if fc.LogFile != nil {
		cfg.LogFile = *fc.LogFile
	}
}
