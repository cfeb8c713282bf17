package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/tucpd/listening-app/pkg/api"
	"github.com/tucpd/listening-app/pkg/config"
	"github.com/tucpd/listening-app/pkg/notify"
	"github.com/tucpd/listening-app/pkg/player"
	"github.com/tucpd/listening-app/pkg/queue"
	"github.com/tucpd/listening-app/pkg/storage"
	"github.com/tucpd/listening-app/pkg/transcriber"
	"github.com/tucpd/listening-app/pkg/worker"
)

// App 应用上下文
type App struct {
	config    *config.Config
	hub       *notify.Hub
	engine    *player.Engine
	queue     queue.Queue
	worker    *worker.Worker
	library   storage.Source
	redis     *redis.Client
	publisher *notify.RedisPublisher
	server    *api.Server
}

func main() {
	// 1. 加载配置
	configPath := os.Getenv("LISTENLOOP_CONFIG")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("❌ 加载配置失败: %v", err)
	}
	log.Println("✓ 配置加载成功")

	app := &App{config: cfg}

	// 2. 初始化 Redis（状态广播 + 转录缓存）
	if cfg.Redis.Enabled {
		app.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := app.redis.Ping(ctx).Err()
		cancel()
		if err != nil {
			log.Printf("⚠️ Redis 连接失败，禁用状态广播与缓存: %v", err)
			app.redis.Close()
			app.redis = nil
		} else {
			log.Printf("✓ Redis 连接成功: %s", cfg.Redis.Addr)
		}
	}

	// 3. 初始化播放引擎；设备命令经 Hub 推送给浏览器
	app.hub = notify.NewHub(cfg.Server.HubBufferSize)
	app.engine = player.NewEngine(notify.NewDeviceFacade(app.hub), player.Config{
		SentenceTolerance: cfg.Player.SentenceTolerance,
		NotifyMinDelta:    cfg.Player.NotifyMinDelta,
		DefaultRate:       cfg.Player.DefaultRate,
		MinRate:           cfg.Player.MinRate,
		MaxRate:           cfg.Player.MaxRate,
	})
	log.Printf("✓ 播放引擎初始化成功 (会话: %s)", app.engine.SessionID())

	if app.redis != nil {
		app.publisher = notify.NewRedisPublisher(app.redis, cfg.Redis.ChannelPrefix, app.engine.SessionID())
		app.engine.Subscribe(app.publisher.Observe)
		log.Printf("✓ 状态广播频道: %s", app.publisher.Channel())
	}

	// 4. 初始化设备事件队列（根据配置选择类型）
	switch cfg.Queue.Type {
	case "memory":
		app.queue = queue.NewMemoryQueue(cfg.Queue.BufferSize)
		log.Println("✓ 使用内存队列")
	case "rabbitmq":
		rq, err := queue.NewRabbitMQQueue(
			cfg.Queue.RabbitMQ.URL,
			cfg.Queue.RabbitMQ.QueueName,
			cfg.Queue.RabbitMQ.Prefetch,
			cfg.MessageTTLDuration(),
		)
		if err != nil {
			log.Fatalf("❌ 连接 RabbitMQ 失败: %v", err)
		}
		app.queue = rq
		log.Printf("✓ 使用 RabbitMQ 队列: %s", cfg.Queue.RabbitMQ.QueueName)
	default:
		log.Fatalf("❌ 不支持的队列类型: %s", cfg.Queue.Type)
	}

	// 5. 初始化转录来源
	app.library, err = app.buildLibrary()
	if err != nil {
		log.Fatalf("❌ 初始化转录来源失败: %v", err)
	}

	// 6. 启动 Worker
	app.worker = worker.NewWorker(app.queue, app.engine)
	app.worker.Start()
	log.Println("✓ Worker 已启动")

	// 7. 初始化 HTTP 接口
	opts := []api.Option{api.WithLibrary(app.library)}
	if cfg.OpenAI.APIKey != "" {
		wc := transcriber.NewWhisperClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model, cfg.OpenAI.MaxRetries)
		opts = append(opts, api.WithTranscriber(wc))
		log.Println("✓ 转录接口已启用")
	} else {
		log.Println("⚠️ 未配置 OpenAI API Key，转录接口未启用")
	}
	app.server = api.NewServer(app.engine, app.hub, app.queue, opts...)

	if cfg.Library.SeedDemo {
		if err := app.engine.AddTrack(*storage.DemoTrack(cfg.Library.DemoAudioURL)); err != nil {
			log.Printf("⚠️ 加载演示转录失败: %v", err)
		}
	}

	router := app.setupRouter()
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	log.Printf("🚀 ListenLoop 服务器启动在 http://localhost:%d", cfg.Server.Port)
	log.Printf("📝 配置信息:")
	log.Printf("   - 队列类型: %s", cfg.Queue.Type)
	log.Printf("   - 句子循环窗口: %.1f 秒", cfg.Player.SentenceTolerance)
	log.Printf("   - 播放速度: %.2f - %.2f", cfg.Player.MinRate, cfg.Player.MaxRate)

	// 8. 优雅关闭
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ 服务器启动失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 正在关闭服务器...")
	app.shutdown(srv)
	log.Println("✓ 服务器已关闭")
}

// buildLibrary 内存曲目库；配置了 Postgres 时读取转录服务的结果表，Redis 可用时加缓存
func (app *App) buildLibrary() (storage.Source, error) {
	cfg := app.config
	if cfg.Postgres.DSN == "" {
		mem := storage.NewMemorySource()
		if cfg.Library.SeedDemo {
			if err := mem.Save(storage.DemoTrack(cfg.Library.DemoAudioURL)); err != nil {
				return nil, err
			}
		}
		log.Println("✓ 使用内存曲目库")
		return mem, nil
	}

	pg, err := storage.NewPostgresSource(cfg.Postgres.DSN, cfg.Postgres.Limit)
	if err != nil {
		return nil, err
	}
	if app.redis == nil {
		return pg, nil
	}

	cache := storage.NewRedisCache(app.redis, cfg.Redis.ChannelPrefix, cfg.CacheTTLDuration())
	log.Printf("✓ 转录缓存已启用 (TTL: %v)", cfg.CacheTTLDuration())
	return storage.NewCachedSource(cache, pg), nil
}

// setupRouter 设置路由
func (app *App) setupRouter() *gin.Engine {
	r := gin.Default()

	if dir := app.config.Server.MediaDir; dir != "" {
		r.Static("/media", dir)
	}
	app.server.Register(r)

	return r
}

// shutdown 先停止接收请求，再关闭队列让 Worker 退出
func (app *App) shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("⚠️ HTTP 服务器关闭超时: %v", err)
	}
	app.server.Close()

	app.worker.Stop()
	if err := app.queue.Close(); err != nil {
		log.Printf("⚠️ 关闭队列失败: %v", err)
	}
	select {
	case <-app.worker.Done():
	case <-ctx.Done():
		log.Println("⚠️ 等待 Worker 退出超时")
	}

	if app.publisher != nil {
		app.publisher.Close()
	}
	if err := app.library.Close(); err != nil {
		log.Printf("⚠️ 关闭转录来源失败: %v", err)
	}
	if app.redis != nil {
		app.redis.Close()
	}
}
