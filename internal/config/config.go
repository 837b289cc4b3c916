package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App       AppConfig
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Elastic   ElasticConfig
	AI        AIConfig
	Storage   StorageConfig
	Widget    WidgetConfig
	RateLimit RateLimitConfig
}

// AppConfig 应用配置
type AppConfig struct {
	Name        string
	Environment string
	Version     string
	Debug       bool
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host         string
	Port         int
	Mode         string
	ReadTimeout  int
	WriteTimeout int
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// ElasticConfig Elasticsearch配置
type ElasticConfig struct {
	Host        string
	Username    string
	Password    string
	IndexPrefix string
}

// AIConfig AI配置
type AIConfig struct {
	Provider string
	OpenAI   OpenAIConfig
}

// OpenAIConfig OpenAI配置
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout int
}

// StorageConfig 附件存储配置
type StorageConfig struct {
	Type      string // local 或 minio
	BasePath  string
	URLPrefix string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// WidgetConfig 挂件运行参数
type WidgetConfig struct {
	SessionTimeoutMinutes int // 会话空闲超时，租户配置可覆盖
	SweepIntervalMinutes  int // 过期会话扫描间隔
	MaxMessageLength      int // 消息字符数上限
	TenantCacheTTLSeconds int // 租户配置缓存时长
	AssistantTimeoutSecs  int // 单次助手回合超时
}

// RateLimitConfig 限流配置，值为每分钟允许的请求数
type RateLimitConfig struct {
	ConfigRead    int
	SessionCreate int
	MessageSend   int
	FileUpload    int
	TenantCeiling int // 租户全局上限
}

var globalConfig *Config

// Load 加载配置
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// 环境变量
	v.SetEnvPrefix("WIDGET_GATEWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	globalConfig = &cfg
	return &cfg, nil
}

// Get 获取全局配置
func Get() *Config {
	if globalConfig == nil {
		panic("config not loaded")
	}
	return globalConfig
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// GetAddr 获取服务器地址
func (c *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetAddr 获取 Redis 地址
func (c *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "widget-gateway")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.debug", true)

	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.readTimeout", 30)
	// 写超时要覆盖一次完整的助手回合
	v.SetDefault("server.writeTimeout", 90)

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "widget_gateway")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.maxLifetime", 300)

	// Redis
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// Elastic
	v.SetDefault("elastic.host", "http://localhost:9200")
	v.SetDefault("elastic.indexPrefix", "widget_gateway")

	// AI
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.openai.baseUrl", "https://api.openai.com/v1")
	v.SetDefault("ai.openai.model", "gpt-4o-mini")
	v.SetDefault("ai.openai.timeout", 60)

	// Storage
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.basePath", "./data/uploads")
	v.SetDefault("storage.urlPrefix", "/files")

	// Widget
	v.SetDefault("widget.sessionTimeoutMinutes", 30)
	v.SetDefault("widget.sweepIntervalMinutes", 5)
	v.SetDefault("widget.maxMessageLength", 2000)
	v.SetDefault("widget.tenantCacheTTLSeconds", 30)
	v.SetDefault("widget.assistantTimeoutSecs", 60)

	// RateLimit
	v.SetDefault("ratelimit.configRead", 60)
	v.SetDefault("ratelimit.sessionCreate", 10)
	v.SetDefault("ratelimit.messageSend", 20)
	v.SetDefault("ratelimit.fileUpload", 5)
	v.SetDefault("ratelimit.tenantCeiling", 600)
}
