package file

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/tidechat/widget-gateway/internal/config"
	"github.com/tidechat/widget-gateway/internal/gateway"
	"github.com/tidechat/widget-gateway/internal/model"
)

// AttachmentRepository 附件记录访问
type AttachmentRepository interface {
	Create(attachment *model.Attachment) error
	GetByID(id string) (*model.Attachment, error)
	Delete(id string) error
}

// Service 附件服务
type Service struct {
	repo        AttachmentRepository
	storage     Storage
	storageType StorageType
}

// NewService 创建附件服务
func NewService(repo AttachmentRepository, storage Storage, storageType StorageType) *Service {
	return &Service{
		repo:        repo,
		storage:     storage,
		storageType: storageType,
	}
}

// NewServiceFromConfig 从配置创建附件服务
func NewServiceFromConfig(repo AttachmentRepository, cfg config.StorageConfig) (*Service, error) {
	var storage Storage
	var err error
	storageType := StorageType(cfg.Type)

	switch storageType {
	case StorageTypeLocal:
		basePath := cfg.BasePath
		if basePath == "" {
			basePath = "./data/uploads"
		}
		urlPrefix := cfg.URLPrefix
		if urlPrefix == "" {
			urlPrefix = "/files"
		}
		storage, err = NewLocalStorage(basePath, urlPrefix)

	case StorageTypeMinIO:
		if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" || cfg.Bucket == "" {
			return nil, fmt.Errorf("missing required MinIO config")
		}
		urlPrefix := cfg.URLPrefix
		if urlPrefix == "" {
			urlPrefix = fmt.Sprintf("%s/%s", cfg.Endpoint, cfg.Bucket)
		}
		storage, err = NewMinIOStorage(&MinIOConfig{
			Endpoint:   cfg.Endpoint,
			AccessKey:  cfg.AccessKey,
			SecretKey:  cfg.SecretKey,
			BucketName: cfg.Bucket,
			UseSSL:     cfg.UseSSL,
			URLPrefix:  urlPrefix,
		})

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}

	return NewService(repo, storage, storageType), nil
}

const mb = int64(1 << 20)

// Validate 按租户配置校验文件，在读取内容之前调用
func Validate(fileName, contentType string, size int64, settings model.WidgetSettings) error {
	if fileName == "" {
		return gateway.ValidationFailed("file name is required")
	}
	if size <= 0 {
		return gateway.ValidationFailed("file is empty")
	}

	maxBytes := int64(settings.MaxFileSizeMB) * mb
	if strings.HasPrefix(contentType, "image/") {
		maxBytes = int64(settings.MaxImageSizeMB) * mb
	}
	if size > maxBytes {
		return gateway.FileTooLarge(size, maxBytes)
	}

	if len(settings.AllowedFileTypes) > 0 {
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), ".")
		allowed := false
		for _, t := range settings.AllowedFileTypes {
			if strings.ToLower(t) == ext {
				allowed = true
				break
			}
		}
		if !allowed {
			return gateway.UnsupportedFileType(ext)
		}
	}
	return nil
}

// SaveAttachmentRequest 保存附件请求
type SaveAttachmentRequest struct {
	FileName    string
	ContentType string
	Size        int64
	Purpose     string
	Reader      io.Reader
}

// SaveAttachment 校验并保存会话附件
func (s *Service) SaveAttachment(ctx context.Context, tenant *model.Tenant, session *model.WidgetSession, req *SaveAttachmentRequest) (*model.Attachment, error) {
	if err := Validate(req.FileName, req.ContentType, req.Size, tenant.EffectiveWidgetSettings()); err != nil {
		return nil, err
	}

	filePath, err := s.storage.Save(ctx, &SaveRequest{
		FileName:    req.FileName,
		ContentType: req.ContentType,
		Size:        req.Size,
		Reader:      req.Reader,
		TenantID:    tenant.ID,
		SessionID:   session.ID,
	})
	if err != nil {
		return nil, gateway.StorageFailure(err)
	}

	attachment := &model.Attachment{
		ID:          uuid.New().String(),
		TenantID:    tenant.ID,
		SessionID:   session.ID,
		FileName:    req.FileName,
		ContentType: req.ContentType,
		FileSize:    req.Size,
		Purpose:     req.Purpose,
		StorageType: string(s.storageType),
		FilePath:    filePath,
	}

	if err := s.repo.Create(attachment); err != nil {
		// 如果数据库保存失败，删除已保存的文件
		_ = s.storage.Delete(ctx, filePath)
		return nil, gateway.StorageFailure(err)
	}

	return attachment, nil
}

// GetAttachment 获取附件记录与内容
func (s *Service) GetAttachment(ctx context.Context, id string) (*model.Attachment, io.ReadCloser, error) {
	attachment, err := s.repo.GetByID(id)
	if err != nil {
		return nil, nil, gateway.StorageFailure(err)
	}

	reader, err := s.storage.Get(ctx, attachment.FilePath)
	if err != nil {
		return nil, nil, gateway.StorageFailure(err)
	}
	return attachment, reader, nil
}

// AttachmentURL 获取附件访问 URL
func (s *Service) AttachmentURL(attachment *model.Attachment) string {
	return s.storage.GetURL(attachment.FilePath)
}
