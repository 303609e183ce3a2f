package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"AgentNexus/internal/agent"
	"AgentNexus/internal/api"
	"AgentNexus/internal/config"
	"AgentNexus/internal/directory"
	"AgentNexus/internal/feedback"
	"AgentNexus/internal/llm"
	"AgentNexus/internal/llm/ghost"
	"AgentNexus/internal/llm/openai"
	"AgentNexus/internal/observability/alerting"
	"AgentNexus/internal/task"
	"AgentNexus/internal/tools"
	"AgentNexus/internal/webhook"
	"AgentNexus/pkg/logger"
)

// main 是 AgentNexus 守护进程的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("nexusd 运行失败: %v", err)
	}
}

func run(ctx context.Context) error {
	configPath := os.Getenv("NEXUS_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("configs", "nexus.json")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Outputs: cfg.Logging.Outputs,
		Audit: logger.AuditConfig{
			Enabled:    cfg.Logging.Audit.Enabled,
			Path:       cfg.Logging.Audit.Path,
			MaxSizeMB:  cfg.Logging.Audit.MaxSizeMB,
			MaxBackups: cfg.Logging.Audit.MaxBackups,
			MaxAgeDays: cfg.Logging.Audit.MaxAgeDays,
		},
	}); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	llmClient, err := createLLMClient(cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Runtime.DataDir, 0o755); err != nil {
		return err
	}

	taskStore, err := createTaskStore(cfg)
	if err != nil {
		return err
	}

	taskQueue, err := createTaskQueue(cfg)
	if err != nil {
		_ = taskStore.Close()
		return err
	}

	// 智能体目录：本地 YAML 名录兜底，远端目录优先。
	var agentDirectory directory.Provider
	if cfg.Directory.CatalogPath != "" {
		catalog, err := directory.LoadStaticCatalog(cfg.Directory.CatalogPath)
		if err != nil {
			return err
		}
		agentDirectory = catalog
	}
	if cfg.Directory.BaseURL != "" {
		var opts []directory.ClientOption
		if agentDirectory != nil {
			opts = append(opts, directory.WithFallback(agentDirectory))
		}
		if cfg.Directory.TimeoutSeconds > 0 {
			opts = append(opts, directory.WithHTTPClient(&http.Client{
				Timeout: time.Duration(cfg.Directory.TimeoutSeconds) * time.Second,
			}))
		}
		agentDirectory = directory.NewClient(cfg.Directory.BaseURL, opts...)
	}

	fetcher := tools.NewPageFetcher(
		time.Duration(cfg.PageFetch.TimeoutSeconds)*time.Second,
		tools.WithMaxBodyBytes(cfg.PageFetch.MaxBodyBytes),
	)
	ag := agent.New(llmClient,
		agent.WithLLMTimeout(cfg.LLM.OpenAI.Timeout()),
		agent.WithMaxTokens(cfg.LLM.OpenAI.MaxTokens),
		agent.WithPageFetcher(fetcher),
	)

	notifier := webhook.NewNotifier(cfg.Webhook.Timeout())
	responders := []task.Responder{
		task.NewGenerativeResponder(ag, task.WithResponderDirectory(agentDirectory)),
		task.NewWebhookResponder(notifier),
		task.NewSimulatedResponder(""),
	}

	taskService := task.NewService(taskStore, taskQueue,
		task.WithServiceDirectory(agentDirectory),
	)
	defer func() { _ = taskService.Close() }()

	orchestrator := task.NewOrchestrator(taskStore, taskQueue, responders,
		task.WithWorkerCount(cfg.TaskQueue.Worker),
		task.WithOrchestratorLogger(logger.Named("orchestrator")),
		task.WithMinProcessingDelay(cfg.Orchestrator.MinProcessingDelay()),
		task.WithAlertDispatcher(alerting.NewFanout(&alerting.LogNotifier{})),
	)

	orchestratorCtx, orchestratorCancel := context.WithCancel(ctx)
	defer orchestratorCancel()

	go func() {
		if err := orchestrator.Start(orchestratorCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.L().Error("任务编排器异常退出", "error", err)
		}
	}()

	server := api.NewServer(cfg.Server.Address, ag, taskService, feedback.NewService(),
		api.WithDirectory(agentDirectory),
		api.WithFeedbackExportKey(cfg.Feedback.ExportKey),
	)

	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func createLLMClient(cfg *config.Config) (llm.Client, error) {
	switch cfg.LLM.Provider {
	case "ghost":
		// 离线模式：确定性的规则引擎直接充当生成后端。
		return ghost.NewEngine(), nil
	case "", "openai":
		apiKey := cfg.LLM.OpenAI.ResolveAPIKey()
		if apiKey == "" {
			return nil, errors.New("OpenAI provider 需要配置 api_key 或 api_key_env")
		}
		return openai.NewClient(openai.Config{
			APIKey:  apiKey,
			BaseURL: cfg.LLM.OpenAI.BaseURL,
			Model:   cfg.LLM.OpenAI.Model,
			Timeout: cfg.LLM.OpenAI.Timeout(),
		})
	default:
		return nil, fmt.Errorf("未知的大模型 provider: %s", cfg.LLM.Provider)
	}
}

func createTaskStore(cfg *config.Config) (task.Store, error) {
	switch cfg.Storage.TaskStore.Driver {
	case "", "file":
		return task.NewFileStore(cfg.Runtime.DataDir)
	case "memory":
		return task.NewMemoryStore(), nil
	case "mysql":
		return task.NewMySQLStore(task.MySQLConfig{
			DSN:          cfg.Storage.TaskStore.DSN,
			MaxOpenConns: cfg.Storage.TaskStore.MaxOpenConns,
			MaxIdleConns: cfg.Storage.TaskStore.MaxIdleConns,
		})
	default:
		return nil, fmt.Errorf("未知的任务存储驱动: %s", cfg.Storage.TaskStore.Driver)
	}
}

func createTaskQueue(cfg *config.Config) (task.Queue, error) {
	switch cfg.TaskQueue.Driver {
	case "", "memory":
		return task.NewMemoryQueue(1024), nil
	case "redis":
		return task.NewRedisQueue(task.RedisQueueConfig{
			Address:   cfg.TaskQueue.Redis.Address,
			Password:  cfg.TaskQueue.Redis.Password,
			DB:        cfg.TaskQueue.Redis.DB,
			Queue:     cfg.TaskQueue.Redis.Queue,
			BlockWait: time.Duration(cfg.TaskQueue.Redis.BlockWait) * time.Second,
		})
	case "rabbitmq":
		return task.NewRabbitMQQueue(task.RabbitMQConfig{
			URL:        cfg.TaskQueue.RabbitMQ.URL,
			Queue:      cfg.TaskQueue.RabbitMQ.Queue,
			Prefetch:   cfg.TaskQueue.RabbitMQ.Prefetch,
			Durable:    cfg.TaskQueue.RabbitMQ.Durable,
			AutoDelete: cfg.TaskQueue.RabbitMQ.AutoDelete,
		})
	default:
		return nil, fmt.Errorf("未知的队列驱动: %s", cfg.TaskQueue.Driver)
	}
}
