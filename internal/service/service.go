// Package service 组装挂件网关的业务服务
package service

import (
	"log"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"

	"github.com/tidechat/widget-gateway/internal/config"
	"github.com/tidechat/widget-gateway/internal/repository"
	"github.com/tidechat/widget-gateway/internal/service/assistant"
	"github.com/tidechat/widget-gateway/internal/service/conversation"
	"github.com/tidechat/widget-gateway/internal/service/file"
	"github.com/tidechat/widget-gateway/internal/service/knowledge"
	"github.com/tidechat/widget-gateway/internal/service/ratelimit"
	"github.com/tidechat/widget-gateway/internal/service/session"
	"github.com/tidechat/widget-gateway/internal/service/tenant"
)

// Services 服务集合
type Services struct {
	Tenant       *tenant.Service
	RateLimit    *ratelimit.Limiter
	Session      *session.Service
	Conversation *conversation.Service
	Knowledge    *knowledge.Service
	Assistant    *assistant.Dispatcher
	File         *file.Service

	Config *config.Config
}

// NewServices 创建所有服务
// 外部依赖不可用时尽量降级而不是启动失败：
// Redis 缺失退回进程内限流，ES 缺失退回数据库关键词检索，
// 模型未配置时所有回合走兜底回复
func NewServices(repo *repository.Repositories, cfg *config.Config, redisClient *redis.Client) (*Services, error) {
	tenantSvc, err := tenant.NewService(repo.Tenant, time.Duration(cfg.Widget.TenantCacheTTLSeconds)*time.Second)
	if err != nil {
		return nil, err
	}

	var store ratelimit.Store
	if redisClient != nil {
		store = ratelimit.NewRedisStore(redisClient)
	} else {
		log.Printf("Warning: redis unavailable, using in-process rate limit counters")
		memStore := ratelimit.NewMemoryStore()
		memStore.StartCleanup(5 * time.Minute)
		store = memStore
	}
	limiter := ratelimit.NewLimiter(store, ratelimit.OptionsFromConfig(cfg.RateLimit))

	sessionSvc := session.NewService(repo.Session)
	convSvc := conversation.NewService(repo.Message)

	knowledgeSvc := knowledge.NewService(
		newESSearcher(cfg),
		cfg.Elastic.IndexPrefix+"_articles",
		repo.Article,
	)

	collab, err := assistant.NewEinoCollaborator(cfg.AI.OpenAI)
	if err != nil {
		log.Printf("Warning: assistant model unavailable, turns will use fallback replies: %v", err)
		collab = nil
	}
	dispatcher := assistant.NewDispatcher(
		collab,
		assistant.DefaultRegistry(knowledgeSvc),
		convSvc,
		time.Duration(cfg.Widget.AssistantTimeoutSecs)*time.Second,
	)

	fileSvc, err := file.NewServiceFromConfig(repo.Attachment, cfg.Storage)
	if err != nil {
		return nil, err
	}

	return &Services{
		Tenant:       tenantSvc,
		RateLimit:    limiter,
		Session:      sessionSvc,
		Conversation: convSvc,
		Knowledge:    knowledgeSvc,
		Assistant:    dispatcher,
		File:         fileSvc,
		Config:       cfg,
	}, nil
}

// newESSearcher 创建 ES 搜索器，失败时返回 nil 走关键词检索
func newESSearcher(cfg *config.Config) knowledge.ESSearcher {
	if cfg.Elastic.Host == "" {
		return nil
	}

	esClient, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.Elastic.Host},
		Username:  cfg.Elastic.Username,
		Password:  cfg.Elastic.Password,
	})
	if err != nil {
		log.Printf("Warning: failed to create es client: %v", err)
		return nil
	}

	return knowledge.NewESSearcher(esClient)
}
