package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderDashScope = "dashscope"
	ProviderGemini    = "gemini"

	// DashScopeKeyPlaceholder ships in .env.example and is treated as "no key configured".
	DashScopeKeyPlaceholder = "sk-your-dashscope-api-key-here"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Storage  StorageConfig
	Worker   WorkerConfig
	LLM      LLMConfig
	OCR      OCRConfig
	Breaker  BreakerConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type StorageConfig struct {
	UploadPath  string
	MaxFileSize int64
}

type WorkerConfig struct {
	Concurrency  int
	QueueSize    int
	PollInterval time.Duration
}

type LLMConfig struct {
	Provider         string
	DashScopeAPIKey  string
	DashScopeBaseURL string
	GeminiAPIKey     string
	ResumeModel      string
	ContractModel    string
	Timeout          time.Duration
	OutputLanguage   string
}

type OCRConfig struct {
	AliyunAccessKeyID     string
	AliyunAccessKeySecret string
	AliyunEndpoint        string

	BaiduAPIKey    string
	BaiduSecretKey string
	BaiduBaseURL   string

	TencentSecretID  string
	TencentSecretKey string
	TencentRegion    string

	TesseractPath string
	TesseractLang string

	Timeout time.Duration
}

type BreakerConfig struct {
	Enabled          bool
	MinRequests      uint32
	FailureRatio     float64
	OpenTimeout      time.Duration
	HalfOpenMaxCalls uint32
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using default values.")
	}

	provider := getEnv("LLM_PROVIDER", ProviderDashScope)
	resumeModel, contractModel := "qwen-max", "qwen-plus"
	if provider == ProviderGemini {
		resumeModel, contractModel = "gemini-2.5-flash", "gemini-2.5-flash"
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8000"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "resume_polisher"),
		},
		Storage: StorageConfig{
			UploadPath:  getEnv("UPLOAD_PATH", "./uploads"),
			MaxFileSize: getEnvAsInt64("MAX_FILE_SIZE", 10*1024*1024),
		},
		Worker: WorkerConfig{
			Concurrency:  getEnvAsInt("WORKER_CONCURRENCY", 2),
			QueueSize:    getEnvAsInt("WORKER_QUEUE_SIZE", 100),
			PollInterval: getEnvAsDuration("WORKER_POLL_INTERVAL", "10s"),
		},
		LLM: LLMConfig{
			Provider:         provider,
			DashScopeAPIKey:  getEnv("DASHSCOPE_API_KEY", ""),
			DashScopeBaseURL: getEnv("DASHSCOPE_BASE_URL", "https://dashscope.aliyuncs.com/compatible-mode/v1/"),
			GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
			ResumeModel:      getEnv("LLM_RESUME_MODEL", resumeModel),
			ContractModel:    getEnv("LLM_CONTRACT_MODEL", contractModel),
			Timeout:          getEnvAsDuration("LLM_TIMEOUT", "120s"),
			OutputLanguage:   getEnv("OUTPUT_LANGUAGE", "English"),
		},
		OCR: OCRConfig{
			AliyunAccessKeyID:     getEnv("ALIYUN_ACCESS_KEY_ID", ""),
			AliyunAccessKeySecret: getEnv("ALIYUN_ACCESS_KEY_SECRET", ""),
			AliyunEndpoint:        getEnv("ALIYUN_OCR_ENDPOINT", "ocr-api.cn-hangzhou.aliyuncs.com"),
			BaiduAPIKey:           getEnv("BAIDU_OCR_API_KEY", ""),
			BaiduSecretKey:        getEnv("BAIDU_OCR_SECRET_KEY", ""),
			BaiduBaseURL:          getEnv("BAIDU_OCR_BASE_URL", "https://aip.baidubce.com"),
			TencentSecretID:       getEnv("TENCENT_SECRET_ID", ""),
			TencentSecretKey:      getEnv("TENCENT_SECRET_KEY", ""),
			TencentRegion:         getEnv("TENCENT_OCR_REGION", "ap-beijing"),
			TesseractPath:         getEnv("TESSERACT_PATH", "tesseract"),
			TesseractLang:         getEnv("TESSERACT_LANG", "chi_sim+eng"),
			Timeout:               getEnvAsDuration("OCR_TIMEOUT", "30s"),
		},
		Breaker: BreakerConfig{
			Enabled:          getEnvAsBool("BREAKER_ENABLED", true),
			MinRequests:      uint32(getEnvAsInt("BREAKER_MIN_REQUESTS", 5)),
			FailureRatio:     getEnvAsFloat("BREAKER_FAILURE_RATIO", 0.6),
			OpenTimeout:      getEnvAsDuration("BREAKER_OPEN_TIMEOUT", "30s"),
			HalfOpenMaxCalls: uint32(getEnvAsInt("BREAKER_HALF_OPEN_MAX_CALLS", 1)),
		},
	}
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// LLMCredential returns the process-wide API key of the configured provider,
// or "" when none is configured.
func (c *Config) LLMCredential() string {
	if c.LLM.Provider == ProviderGemini {
		return c.LLM.GeminiAPIKey
	}
	if c.LLM.DashScopeAPIKey == DashScopeKeyPlaceholder {
		return ""
	}
	return c.LLM.DashScopeAPIKey
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
