package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"labreport/internal/errors"
)

// ConfigFileEnv names the environment variable pointing at an optional YAML file
const ConfigFileEnv = "LABREPORT_CONFIG"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig
	AI        AIConfig
	Analysis  AnalysisConfig
	Chart     ChartConfig
	Upload    UploadConfig
	Batch     BatchConfig
	Profiling ProfilingConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port        string
	GinMode     string
	PreviewPort string
	ReportsDir  string   // where generated reports are saved; empty disables saving
	CORSOrigins []string // browser origins allowed to call the API
}

// AIConfig holds narrative LLM settings
type AIConfig struct {
	APIKey              string
	Model               string
	BaseURL             string
	Temperature         float64
	MaxTokens           int
	Timeout             time.Duration
	FallbackToHeuristic bool
}

// Enabled reports whether an LLM can be called
func (c AIConfig) Enabled() bool {
	return c.APIKey != ""
}

// AnalysisConfig holds regression and report settings
type AnalysisConfig struct {
	MinDataPoints  int
	ResultRowCap   int // rows kept in an analysis result table
	DisplayRowCap  int // rows rendered per experiment in a report
	LenientNumeric bool
}

// ChartConfig holds chart rendering settings
type ChartConfig struct {
	WidthCm  float64
	HeightCm float64
	DPI      int
	Timeout  time.Duration
}

// UploadConfig holds upload limits
type UploadConfig struct {
	MaxFileSizeMB         int
	MaxSheetsPerBatch     int
	MaxDataPointsPerSheet int
	MaxPDFSizeMB          int
}

// MaxFileSizeBytes converts the megabyte limit
func (c UploadConfig) MaxFileSizeBytes() int64 {
	return int64(c.MaxFileSizeMB) * 1024 * 1024
}

// MaxPDFSizeBytes converts the manual upload limit
func (c UploadConfig) MaxPDFSizeBytes() int64 {
	return int64(c.MaxPDFSizeMB) * 1024 * 1024
}

// BatchConfig holds batch execution settings
type BatchConfig struct {
	Workers          int
	NarrativeTimeout time.Duration
}

// ProfilingConfig holds performance profiling settings
type ProfilingConfig struct {
	Port    string
	Enabled bool
}

// Load reads configuration from the environment and, when LABREPORT_CONFIG
// is set, from that YAML file. Environment variables take precedence.
func Load() (*Config, error) {
	return LoadFile(os.Getenv(ConfigFileEnv))
}

// LoadFile is Load with an explicit config file; an empty path skips the file
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
	}

	config := &Config{
		Server:    loadServerConfig(v),
		AI:        loadAIConfig(v),
		Analysis:  loadAnalysisConfig(v),
		Chart:     loadChartConfig(v),
		Upload:    loadUploadConfig(v),
		Batch:     loadBatchConfig(v),
		Profiling: loadProfilingConfig(v),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("gin_mode", "debug")
	v.SetDefault("preview_port", "8081")
	v.SetDefault("reports_dir", "")
	v.SetDefault("cors_origins", "http://localhost:3000")

	v.SetDefault("llm_api_key", "")
	v.SetDefault("openai_api_key", "")
	v.SetDefault("llm_model", "gpt-4.1-mini")
	v.SetDefault("llm_base_url", "")
	v.SetDefault("llm_temperature", 0.7)
	v.SetDefault("llm_max_tokens", 8192)
	v.SetDefault("llm_timeout", 60*time.Second)
	v.SetDefault("llm_fallback_heuristic", true)

	v.SetDefault("min_data_points", 5)
	v.SetDefault("result_row_cap", 50)
	v.SetDefault("display_row_cap", 20)
	v.SetDefault("lenient_numeric", false)

	v.SetDefault("chart_width_cm", 25.4)
	v.SetDefault("chart_height_cm", 15.24)
	v.SetDefault("chart_dpi", 150)
	v.SetDefault("chart_timeout", 30*time.Second)

	v.SetDefault("max_file_size_mb", 10)
	v.SetDefault("max_sheets_per_batch", 10)
	v.SetDefault("max_data_points_per_sheet", 1000)
	v.SetDefault("max_pdf_size_mb", 20)

	v.SetDefault("batch_workers", 4)
	v.SetDefault("narrative_timeout", 120*time.Second)

	v.SetDefault("pprof_port", "6060")
	v.SetDefault("pprof_enabled", false)
}

func loadServerConfig(v *viper.Viper) ServerConfig {
	return ServerConfig{
		Port:        v.GetString("port"),
		GinMode:     v.GetString("gin_mode"),
		PreviewPort: v.GetString("preview_port"),
		ReportsDir:  v.GetString("reports_dir"),
		CORSOrigins: splitList(v.GetString("cors_origins")),
	}
}

func loadAIConfig(v *viper.Viper) AIConfig {
	key := v.GetString("llm_api_key")
	if key == "" {
		key = v.GetString("openai_api_key")
	}
	return AIConfig{
		APIKey:              key,
		Model:               v.GetString("llm_model"),
		BaseURL:             v.GetString("llm_base_url"),
		Temperature:         v.GetFloat64("llm_temperature"),
		MaxTokens:           v.GetInt("llm_max_tokens"),
		Timeout:             v.GetDuration("llm_timeout"),
		FallbackToHeuristic: v.GetBool("llm_fallback_heuristic"),
	}
}

func loadAnalysisConfig(v *viper.Viper) AnalysisConfig {
	return AnalysisConfig{
		MinDataPoints:  v.GetInt("min_data_points"),
		ResultRowCap:   v.GetInt("result_row_cap"),
		DisplayRowCap:  v.GetInt("display_row_cap"),
		LenientNumeric: v.GetBool("lenient_numeric"),
	}
}

func loadChartConfig(v *viper.Viper) ChartConfig {
	return ChartConfig{
		WidthCm:  v.GetFloat64("chart_width_cm"),
		HeightCm: v.GetFloat64("chart_height_cm"),
		DPI:      v.GetInt("chart_dpi"),
		Timeout:  v.GetDuration("chart_timeout"),
	}
}

func loadUploadConfig(v *viper.Viper) UploadConfig {
	return UploadConfig{
		MaxFileSizeMB:         v.GetInt("max_file_size_mb"),
		MaxSheetsPerBatch:     v.GetInt("max_sheets_per_batch"),
		MaxDataPointsPerSheet: v.GetInt("max_data_points_per_sheet"),
		MaxPDFSizeMB:          v.GetInt("max_pdf_size_mb"),
	}
}

func loadBatchConfig(v *viper.Viper) BatchConfig {
	return BatchConfig{
		Workers:          v.GetInt("batch_workers"),
		NarrativeTimeout: v.GetDuration("narrative_timeout"),
	}
}

func loadProfilingConfig(v *viper.Viper) ProfilingConfig {
	return ProfilingConfig{
		Port:    v.GetString("pprof_port"),
		Enabled: v.GetBool("pprof_enabled"),
	}
}

func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return errors.ConfigInvalid("PORT is required")
	}
	switch config.Server.GinMode {
	case "debug", "release", "test":
	default:
		return errors.ConfigInvalid(fmt.Sprintf("GIN_MODE must be debug, release or test, got %q", config.Server.GinMode))
	}
	if config.AI.Temperature < 0 || config.AI.Temperature > 2 {
		return errors.ConfigInvalid("LLM_TEMPERATURE must be between 0 and 2")
	}
	if config.AI.MaxTokens <= 0 {
		return errors.ConfigInvalid("LLM_MAX_TOKENS must be positive")
	}
	if config.Analysis.MinDataPoints < 2 {
		return errors.ConfigInvalid("MIN_DATA_POINTS must be at least 2")
	}
	if config.Analysis.ResultRowCap < 1 || config.Analysis.DisplayRowCap < 1 {
		return errors.ConfigInvalid("row caps must be at least 1")
	}
	if config.Chart.WidthCm <= 0 || config.Chart.HeightCm <= 0 || config.Chart.DPI <= 0 {
		return errors.ConfigInvalid("chart dimensions and DPI must be positive")
	}
	if config.Upload.MaxFileSizeMB <= 0 {
		return errors.ConfigInvalid("MAX_FILE_SIZE_MB must be positive")
	}
	if config.Upload.MaxPDFSizeMB <= 0 {
		return errors.ConfigInvalid("MAX_PDF_SIZE_MB must be positive")
	}
	if config.Upload.MaxSheetsPerBatch < 0 || config.Upload.MaxDataPointsPerSheet < 0 {
		return errors.ConfigInvalid("upload limits must not be negative")
	}
	if config.Batch.Workers < 1 {
		return errors.ConfigInvalid("BATCH_WORKERS must be at least 1")
	}
	return nil
}

// splitList parses a comma separated list, dropping blanks
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
