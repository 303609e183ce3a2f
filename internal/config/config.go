package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config 描述了 AgentNexus 在启动阶段需要加载的核心配置。
type Config struct {
	Server       ServerConfig       `json:"server"`
	Storage      StorageConfig      `json:"storage"`
	TaskQueue    QueueConfig        `json:"task_queue"`
	LLM          LLMConfig          `json:"llm"`
	Directory    DirectoryConfig    `json:"directory"`
	Orchestrator OrchestratorConfig `json:"orchestrator"`
	Webhook      WebhookConfig      `json:"webhook"`
	PageFetch    PageFetchConfig    `json:"page_fetch"`
	Feedback     FeedbackConfig     `json:"feedback"`
	Logging      LoggingConfig      `json:"logging"`
	Runtime      RuntimeConfig      `json:"runtime"`
}

// ServerConfig 控制 API 服务的监听地址等参数。
type ServerConfig struct {
	Address string `json:"address"`
}

// StorageConfig 统一描述任务存储后端的连接信息。
type StorageConfig struct {
	TaskStore TaskStoreConfig `json:"task_store"`
}

// TaskStoreConfig 支持 file、memory 与 mysql 三种驱动。
type TaskStoreConfig struct {
	Driver       string `json:"driver"`
	DSN          string `json:"dsn"`
	MaxOpenConns int    `json:"max_open_conns"`
	MaxIdleConns int    `json:"max_idle_conns"`
}

// QueueConfig 描述任务队列的驱动与连接方式。
type QueueConfig struct {
	Driver   string         `json:"driver"`
	Worker   int            `json:"worker"`
	Redis    RedisConfig    `json:"redis"`
	RabbitMQ RabbitMQConfig `json:"rabbitmq"`
}

// RedisConfig 描述 Redis 队列的连接参数。
type RedisConfig struct {
	Address   string `json:"address"`
	Password  string `json:"password"`
	DB        int    `json:"db"`
	Queue     string `json:"queue"`
	BlockWait int    `json:"block_wait_seconds"`
}

// RabbitMQConfig 描述 RabbitMQ 队列的连接参数。
type RabbitMQConfig struct {
	URL        string `json:"url"`
	Queue      string `json:"queue"`
	Prefetch   int    `json:"prefetch"`
	Durable    bool   `json:"durable"`
	AutoDelete bool   `json:"auto_delete"`
}

// LLMConfig 用于配置生成式回复后端的调用方式。
type LLMConfig struct {
	Provider string       `json:"provider"`
	OpenAI   OpenAIConfig `json:"openai"`
}

// OpenAIConfig 描述 Chat Completions 后端所需的信息。
// APIKey 为空时会从 APIKeyEnv 指定的环境变量读取。
type OpenAIConfig struct {
	APIKey         string `json:"api_key"`
	APIKeyEnv      string `json:"api_key_env"`
	BaseURL        string `json:"base_url"`
	Model          string `json:"model"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	MaxTokens      int    `json:"max_tokens"`
}

// Timeout 返回大模型调用的超时时间。
func (c OpenAIConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ResolveAPIKey 返回清洗后的 API Key。配置文件与环境变量里
// 经常混入换行、空格或复制时带上的引号，这里统一剥掉。
func (c OpenAIConfig) ResolveAPIKey() string {
	key := c.APIKey
	if strings.TrimSpace(key) == "" && c.APIKeyEnv != "" {
		key = os.Getenv(c.APIKeyEnv)
	}
	return SanitizeAPIKey(key)
}

// SanitizeAPIKey 去除密钥两端的空白与引号字符。
func SanitizeAPIKey(raw string) string {
	key := strings.TrimSpace(raw)
	key = strings.Trim(key, `"'`)
	return strings.TrimSpace(key)
}

// DirectoryConfig 描述外部智能体目录服务。
type DirectoryConfig struct {
	BaseURL        string `json:"base_url"`
	CatalogPath    string `json:"catalog_path"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// OrchestratorConfig 控制任务编排器的行为。
type OrchestratorConfig struct {
	MinProcessingDelayMS int `json:"min_processing_delay_ms"`
}

// MinProcessingDelay 返回任务进入 processing 后的最小停留时间。
// 前端的输入指示器依赖这个延迟，属于刻意保留的产品行为。
func (c OrchestratorConfig) MinProcessingDelay() time.Duration {
	if c.MinProcessingDelayMS < 0 {
		return 0
	}
	if c.MinProcessingDelayMS == 0 {
		return time.Second
	}
	return time.Duration(c.MinProcessingDelayMS) * time.Millisecond
}

// WebhookConfig 控制出站回调的超时。
type WebhookConfig struct {
	TimeoutSeconds int `json:"timeout_seconds"`
}

// Timeout 返回回调的总超时时间。
func (c WebhookConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PageFetchConfig 控制网页抓取工具的行为。
type PageFetchConfig struct {
	TimeoutSeconds int `json:"timeout_seconds"`
	MaxBodyBytes   int `json:"max_body_bytes"`
}

// FeedbackConfig 描述反馈收集的导出密钥。
type FeedbackConfig struct {
	ExportKey string `json:"export_key"`
}

// LoggingConfig 对应 pkg/logger 的初始化参数。
type LoggingConfig struct {
	Level   string         `json:"level"`
	Format  string         `json:"format"`
	Outputs []string       `json:"outputs"`
	Audit   AuditLogConfig `json:"audit"`
}

// AuditLogConfig 控制审计日志输出。
type AuditLogConfig struct {
	Enabled    bool   `json:"enabled"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// RuntimeConfig 用于放置运行时的通用参数。
type RuntimeConfig struct {
	DataDir string `json:"data_dir"`
}

// Load 负责解析指定路径的 JSON 配置文件。
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("配置文件路径为空")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开配置文件失败: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	cfg.applyDefaults(filepath.Dir(path))
	return &cfg, nil
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}

	if c.Storage.TaskStore.Driver == "" {
		c.Storage.TaskStore.Driver = "file"
	}

	if c.TaskQueue.Driver == "" {
		c.TaskQueue.Driver = "memory"
	}
	if c.TaskQueue.Worker <= 0 {
		c.TaskQueue.Worker = 1
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.OpenAI.APIKeyEnv == "" {
		c.LLM.OpenAI.APIKeyEnv = "NEXUS_OPENAI_API_KEY"
	}
	if c.LLM.OpenAI.MaxTokens <= 0 {
		c.LLM.OpenAI.MaxTokens = 500
	}

	if c.Directory.CatalogPath != "" && !filepath.IsAbs(c.Directory.CatalogPath) {
		c.Directory.CatalogPath = filepath.Join(baseDir, c.Directory.CatalogPath)
	}

	if c.PageFetch.TimeoutSeconds <= 0 {
		c.PageFetch.TimeoutSeconds = 8
	}
	if c.PageFetch.MaxBodyBytes <= 0 {
		c.PageFetch.MaxBodyBytes = 100_000
	}

	if c.Runtime.DataDir == "" {
		c.Runtime.DataDir = filepath.Join(baseDir, "data")
	} else if !filepath.IsAbs(c.Runtime.DataDir) {
		c.Runtime.DataDir = filepath.Join(baseDir, c.Runtime.DataDir)
	}
}
