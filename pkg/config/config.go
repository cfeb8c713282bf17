package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// Config 应用配置
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Queue    QueueConfig    `yaml:"queue"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Player   PlayerConfig   `yaml:"player"`
	Library  LibraryConfig  `yaml:"library"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port          int    `yaml:"port"`
	MediaDir      string `yaml:"media_dir"`       // 音频文件目录，挂载到 /media
	HubBufferSize int    `yaml:"hub_buffer_size"` // 每个 SSE 订阅者的缓冲
}

// QueueConfig 设备事件队列配置
type QueueConfig struct {
	Type       string         `yaml:"type"` // memory | rabbitmq
	BufferSize int            `yaml:"buffer_size"`
	RabbitMQ   RabbitMQConfig `yaml:"rabbitmq"`
}

// RabbitMQConfig RabbitMQ 配置
type RabbitMQConfig struct {
	URL        string `yaml:"url"`
	QueueName  string `yaml:"queue_name"`
	Prefetch   int    `yaml:"prefetch"`
	MessageTTL int    `yaml:"message_ttl_ms"` // tick 事件过期即无意义
}

// RedisConfig Redis 配置（状态广播 + 转录缓存）
type RedisConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Addr          string `yaml:"addr"`
	Password      string `yaml:"password"`
	DB            int    `yaml:"db"`
	ChannelPrefix string `yaml:"channel_prefix"`
	CacheTTL      int    `yaml:"cache_ttl_minutes"`
}

// PostgresConfig 转录来源数据库
type PostgresConfig struct {
	DSN   string `yaml:"dsn"`
	Limit int    `yaml:"limit"`
}

// OpenAIConfig OpenAI 配置；未设置 api_key 时不启用转录接口
type OpenAIConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	MaxRetries int    `yaml:"max_retries"`
}

// PlayerConfig 播放引擎参数
type PlayerConfig struct {
	SentenceTolerance float64 `yaml:"sentence_tolerance"`
	NotifyMinDelta    float64 `yaml:"notify_min_delta"`
	DefaultRate       float64 `yaml:"default_rate"`
	MinRate           float64 `yaml:"min_rate"`
	MaxRate           float64 `yaml:"max_rate"`
}

// LibraryConfig 曲目库配置
type LibraryConfig struct {
	SeedDemo     bool   `yaml:"seed_demo"`
	DemoAudioURL string `yaml:"demo_audio_url"`
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	return Parse(data)
}

// Parse 解析 YAML 并验证
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	return &config, nil
}

// Validate 验证配置并填充默认值
func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		c.Server.Port = 8080
	}
	if c.Server.HubBufferSize <= 0 {
		c.Server.HubBufferSize = 64
	}

	switch c.Queue.Type {
	case "":
		c.Queue.Type = "memory"
	case "memory", "rabbitmq":
	default:
		return fmt.Errorf("不支持的队列类型: %s", c.Queue.Type)
	}
	if c.Queue.BufferSize <= 0 {
		c.Queue.BufferSize = 256
	}
	if c.Queue.Type == "rabbitmq" {
		if c.Queue.RabbitMQ.URL == "" {
			return fmt.Errorf("rabbitmq 队列需要配置 url")
		}
		if c.Queue.RabbitMQ.QueueName == "" {
			c.Queue.RabbitMQ.QueueName = "listenloop.device-events"
		}
		if c.Queue.RabbitMQ.Prefetch <= 0 {
			c.Queue.RabbitMQ.Prefetch = 32
		}
		if c.Queue.RabbitMQ.MessageTTL <= 0 {
			c.Queue.RabbitMQ.MessageTTL = 5000
		}
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			c.Redis.Addr = "localhost:6379"
		}
		if c.Redis.ChannelPrefix == "" {
			c.Redis.ChannelPrefix = "listenloop"
		}
		if c.Redis.CacheTTL <= 0 {
			c.Redis.CacheTTL = 60
		}
	}

	if c.Postgres.Limit <= 0 {
		c.Postgres.Limit = 100
	}

	if c.OpenAI.APIKey == "your-openai-api-key-here" {
		c.OpenAI.APIKey = ""
	}
	if c.OpenAI.MaxRetries <= 0 {
		c.OpenAI.MaxRetries = 3
	}

	p := &c.Player
	if p.SentenceTolerance < 0 {
		return fmt.Errorf("player.sentence_tolerance 不能为负数")
	}
	if p.SentenceTolerance == 0 {
		p.SentenceTolerance = 1.0
	}
	if p.NotifyMinDelta <= 0 {
		p.NotifyMinDelta = 0.1
	}
	if p.MinRate <= 0 {
		p.MinRate = 0.5
	}
	if p.MaxRate <= 0 {
		p.MaxRate = 1.5
	}
	if p.MinRate > p.MaxRate {
		return fmt.Errorf("player.min_rate (%.2f) 大于 player.max_rate (%.2f)", p.MinRate, p.MaxRate)
	}
	if p.DefaultRate == 0 {
		p.DefaultRate = 1.0
	}
	if p.DefaultRate < p.MinRate || p.DefaultRate > p.MaxRate {
		return fmt.Errorf("player.default_rate %.2f 超出 [%.2f, %.2f]", p.DefaultRate, p.MinRate, p.MaxRate)
	}

	if c.Library.DemoAudioURL == "" {
		c.Library.DemoAudioURL = "/media/test_audio.mp3"
	}

	return nil
}

// CacheTTLDuration 转录缓存过期时间
func (c *Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.Redis.CacheTTL) * time.Minute
}

// MessageTTLDuration 设备事件在 RabbitMQ 中的存活时间
func (c *Config) MessageTTLDuration() time.Duration {
	return time.Duration(c.Queue.RabbitMQ.MessageTTL) * time.Millisecond
}
