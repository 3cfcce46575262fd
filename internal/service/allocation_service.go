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
)

// ── 资源分配模块业务错误 ──

var (
	ErrAllocationNotFound      = errors.New("分配记录不存在")
	ErrResourceNotFound        = errors.New("资源成员不存在")
	ErrResourceInactive        = errors.New("资源成员已停用")
	ErrAllocationTargetInvalid = errors.New("分配目标无效：镜头工作与请假/空闲互斥，且必须恰好指定其一")
	ErrShotNotInShow           = errors.New("镜头不属于指定项目")
	ErrICSParse                = errors.New("日历文件解析失败")
)

// 导入/落实结果状态
const (
	itemStatusCommitted = "committed"
	itemStatusRejected  = "rejected"
	itemStatusSkipped   = "skipped"
)

// AllocationService 资源分配业务接口
type AllocationService interface {
	// 容量预检（dry run，不加锁不提交，结果可能在提交前失效）
	Validate(ctx context.Context, req *dto.ValidateAllocationRequest) (*dto.CapacityCheckResponse, error)
	// 创建分配（槽位锁内校验+提交）
	Create(ctx context.Context, req *dto.CreateAllocationRequest, callerID string) (*dto.CommitAllocationResponse, error)
	// 更新分配（仅数量/目标/备注，日期与资源不可改）
	Update(ctx context.Context, id string, req *dto.UpdateAllocationRequest, callerID string) (*dto.CommitAllocationResponse, error)
	// 软删除分配（记录全量快照，可撤销）
	Delete(ctx context.Context, id string, callerID string) error
	Get(ctx context.Context, id string) (*dto.AllocationResponse, error)
	List(ctx context.Context, req *dto.AllocationListRequest) ([]dto.AllocationResponse, int64, error)
	// ImportLeave 从 ICS 日历批量导入请假（逐日独立提交，部分成功）
	ImportLeave(ctx context.Context, req *dto.ImportLeaveRequest, callerID string) (*dto.ImportLeaveResponse, error)
}

type allocationService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewAllocationService 创建 AllocationService 实例
func NewAllocationService(repo *repository.Repository, logger *zap.Logger) AllocationService {
	return &allocationService{repo: repo, logger: logger}
}

// ════════════════════════════════════════════════════════════
// 容量预检
// ════════════════════════════════════════════════════════════

func (s *allocationService) Validate(ctx context.Context, req *dto.ValidateAllocationRequest) (*dto.CapacityCheckResponse, error) {
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, fmt.Errorf("日期格式无效: %w", err)
	}

	existing, err := s.repo.Allocation.ListSlot(ctx, req.ResourceID, date)
	if err != nil {
		s.logger.Error("查询槽位分配失败", zap.Error(err))
		return nil, err
	}

	d := EvaluateSlot(existing, req.ManDays, req.ExcludeAllocationID, true)
	return capacityCheckResponse(d), nil
}

// ════════════════════════════════════════════════════════════
// 创建分配
// ════════════════════════════════════════════════════════════

func (s *allocationService) Create(ctx context.Context, req *dto.CreateAllocationRequest, callerID string) (*dto.CommitAllocationResponse, error) {
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, fmt.Errorf("日期格式无效: %w", err)
	}
	if err := validateTarget(req.ShowID, req.ShotID, req.IsLeave, req.IsIdle); err != nil {
		return nil, err
	}

	// 资源必须存在且在用
	resource, err := s.repo.User.GetByID(ctx, req.ResourceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResourceNotFound
		}
		s.logger.Error("查询资源成员失败", zap.Error(err))
		return nil, err
	}
	if !resource.IsActive {
		return nil, ErrResourceInactive
	}

	// 镜头必须属于指定项目
	if req.ShotID != nil {
		shot, err := s.repo.Shot.GetByID(ctx, *req.ShotID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrShotNotInShow
			}
			return nil, err
		}
		if req.ShowID == nil || shot.ShowID != *req.ShowID {
			return nil, ErrShotNotInShow
		}
	}

	alloc := &model.ResourceAllocation{
		ResourceID: req.ResourceID,
		AllocDate:  model.NormalizeDate(date),
		ShowID:     req.ShowID,
		ShotID:     req.ShotID,
		IsLeave:    req.IsLeave,
		IsIdle:     req.IsIdle,
		ManDays:    req.ManDays,
		Note:       req.Note,
	}
	alloc.CreatedBy = &callerID
	alloc.UpdatedBy = &callerID

	var decision CapacityDecision
	err = s.repo.Allocation.WithSlotLock(ctx, req.ResourceID, date, func(tx repository.AllocationTx) error {
		// 锁内重读：预检结果此刻可能已失效
		existing, err := tx.ListSlot(req.ResourceID, date)
		if err != nil {
			return err
		}
		decision = EvaluateSlot(existing, req.ManDays, nil, !req.IsLeave && !req.IsIdle)
		if !decision.Admissible {
			return CapacityErrorFrom(req.ResourceID, req.Date, decision)
		}
		if err := tx.Create(alloc); err != nil {
			return err
		}
		snap, err := model.EncodeSnapshot(model.EntityAllocation, alloc)
		if err != nil {
			return err
		}
		return tx.AppendLog(&model.ActivityLog{
			EntityType: model.EntityAllocation,
			EntityID:   alloc.AllocationID,
			Action:     model.ActionCreate,
			NewValue:   strPtr(fmt.Sprintf("%.1f", req.ManDays)),
			FieldName:  strPtr("man_days"),
			Snapshot:   &snap,
			ActorID:    callerID,
			State:      model.LogStateActive,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("创建分配",
		zap.String("allocation_id", alloc.AllocationID),
		zap.String("resource_id", req.ResourceID),
		zap.String("date", req.Date),
		zap.Float64("man_days", req.ManDays))

	return &dto.CommitAllocationResponse{
		Allocation: toAllocationResponse(alloc),
		Capacity:   capacityCheckResponse(decision),
	}, nil
}

// ════════════════════════════════════════════════════════════
// 更新分配
// ════════════════════════════════════════════════════════════

func (s *allocationService) Update(ctx context.Context, id string, req *dto.UpdateAllocationRequest, callerID string) (*dto.CommitAllocationResponse, error) {
	// 槽位键来自现有行：日期与资源不可更改
	current, err := s.repo.Allocation.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAllocationNotFound
		}
		return nil, err
	}

	var updated *model.ResourceAllocation
	var decision CapacityDecision
	err = s.repo.Allocation.WithSlotLock(ctx, current.ResourceID, current.AllocDate, func(tx repository.AllocationTx) error {
		alloc, err := tx.Get(id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAllocationNotFound
			}
			return err
		}

		attempted := alloc.ManDays
		if req.ManDays != nil {
			attempted = *req.ManDays
		}
		existing, err := tx.ListSlot(alloc.ResourceID, alloc.AllocDate)
		if err != nil {
			return err
		}
		decision = EvaluateSlot(existing, attempted, &alloc.AllocationID, !alloc.IsLeave && !alloc.IsIdle)
		if !decision.Admissible {
			return CapacityErrorFrom(alloc.ResourceID, alloc.AllocDate.Format("2006-01-02"), decision)
		}

		// 逐字段记录变更日志，撤销时按字段还原
		var logs []model.ActivityLog
		appendFieldLog := func(field, oldVal, newVal string) {
			logs = append(logs, model.ActivityLog{
				EntityType: model.EntityAllocation,
				EntityID:   alloc.AllocationID,
				Action:     model.ActionUpdate,
				FieldName:  &field,
				OldValue:   &oldVal,
				NewValue:   &newVal,
				ActorID:    callerID,
				State:      model.LogStateActive,
			})
		}

		if req.ManDays != nil && *req.ManDays != alloc.ManDays {
			appendFieldLog("man_days", fmt.Sprintf("%.1f", alloc.ManDays), fmt.Sprintf("%.1f", *req.ManDays))
			alloc.ManDays = *req.ManDays
		}
		if req.ShowID != nil && !strPtrEqual(req.ShowID, alloc.ShowID) {
			appendFieldLog("show_id", strOrEmpty(alloc.ShowID), *req.ShowID)
			alloc.ShowID = req.ShowID
		}
		if req.ShotID != nil && !strPtrEqual(req.ShotID, alloc.ShotID) {
			appendFieldLog("shot_id", strOrEmpty(alloc.ShotID), *req.ShotID)
			alloc.ShotID = req.ShotID
		}
		if req.Note != nil && *req.Note != alloc.Note {
			appendFieldLog("note", alloc.Note, *req.Note)
			alloc.Note = *req.Note
		}
		// 变更指向后镜头归属必须依然成立
		if (req.ShowID != nil || req.ShotID != nil) && alloc.ShotID != nil {
			shot, err := s.repo.Shot.GetByID(ctx, *alloc.ShotID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrShotNotInShow
				}
				return err
			}
			if alloc.ShowID == nil || shot.ShowID != *alloc.ShowID {
				return ErrShotNotInShow
			}
		}
		if len(logs) == 0 {
			updated = alloc
			return nil
		}

		alloc.UpdatedBy = &callerID
		if err := tx.Update(alloc); err != nil {
			return err
		}
		for i := range logs {
			if err := tx.AppendLog(&logs[i]); err != nil {
				return err
			}
		}
		updated = alloc
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("更新分配", zap.String("allocation_id", id), zap.String("actor", callerID))
	return &dto.CommitAllocationResponse{
		Allocation: toAllocationResponse(updated),
		Capacity:   capacityCheckResponse(decision),
	}, nil
}

// ════════════════════════════════════════════════════════════
// 删除分配
// ════════════════════════════════════════════════════════════

func (s *allocationService) Delete(ctx context.Context, id string, callerID string) error {
	current, err := s.repo.Allocation.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAllocationNotFound
		}
		return err
	}

	err = s.repo.Allocation.WithSlotLock(ctx, current.ResourceID, current.AllocDate, func(tx repository.AllocationTx) error {
		alloc, err := tx.Get(id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAllocationNotFound
			}
			return err
		}

		// 删除日志必须带全量快照，撤销时据此重建
		snap, err := model.EncodeSnapshot(model.EntityAllocation, alloc)
		if err != nil {
			return err
		}
		if err := tx.Delete(id, callerID); err != nil {
			return err
		}
		return tx.AppendLog(&model.ActivityLog{
			EntityType: model.EntityAllocation,
			EntityID:   alloc.AllocationID,
			Action:     model.ActionDelete,
			Snapshot:   &snap,
			ActorID:    callerID,
			State:      model.LogStateActive,
		})
	})
	if err != nil {
		return err
	}

	s.logger.Info("删除分配", zap.String("allocation_id", id), zap.String("actor", callerID))
	return nil
}

// ════════════════════════════════════════════════════════════
// 查询
// ════════════════════════════════════════════════════════════

func (s *allocationService) Get(ctx context.Context, id string) (*dto.AllocationResponse, error) {
	alloc, err := s.repo.Allocation.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAllocationNotFound
		}
		return nil, err
	}
	return toAllocationResponse(alloc), nil
}

func (s *allocationService) List(ctx context.Context, req *dto.AllocationListRequest) ([]dto.AllocationResponse, int64, error) {
	filter := repository.AllocationListFilter{
		ResourceID: req.ResourceID,
		ShowID:     req.ShowID,
		Offset:     req.GetOffset(),
		Limit:      req.GetPageSize(),
	}
	if req.From != "" {
		filter.From, _ = time.Parse("2006-01-02", req.From)
	}
	if req.To != "" {
		filter.To, _ = time.Parse("2006-01-02", req.To)
	}

	allocs, total, err := s.repo.Allocation.List(ctx, filter)
	if err != nil {
		s.logger.Error("查询分配列表失败", zap.Error(err))
		return nil, 0, err
	}

	items := make([]dto.AllocationResponse, 0, len(allocs))
	for i := range allocs {
		items = append(items, *toAllocationResponse(&allocs[i]))
	}
	return items, total, nil
}

// ════════════════════════════════════════════════════════════
// 请假日历导入
// ════════════════════════════════════════════════════════════

func (s *allocationService) ImportLeave(ctx context.Context, req *dto.ImportLeaveRequest, callerID string) (*dto.ImportLeaveResponse, error) {
	resource, err := s.repo.User.GetByID(ctx, req.ResourceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResourceNotFound
		}
		return nil, err
	}
	if !resource.IsActive {
		return nil, ErrResourceInactive
	}

	dates, err := ParseLeaveDates(req.ICSContent)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrICSParse, err)
	}

	manDays := req.ManDays
	if manDays <= 0 {
		manDays = 1.0
	}

	resp := &dto.ImportLeaveResponse{Total: len(dates)}
	for _, date := range dates {
		dateStr := date.Format("2006-01-02")
		item := dto.ImportLeaveItem{Date: dateStr, ManDays: manDays}

		err := s.repo.Allocation.WithSlotLock(ctx, req.ResourceID, date, func(tx repository.AllocationTx) error {
			existing, err := tx.ListSlot(req.ResourceID, date)
			if err != nil {
				return err
			}
			// 当日已有请假行则跳过，导入可重放
			for i := range existing {
				if existing[i].IsLeave {
					item.Status = itemStatusSkipped
					item.Reason = "当日已有请假记录"
					return nil
				}
			}
			d := EvaluateSlot(existing, manDays, nil, false)
			if !d.Admissible {
				return CapacityErrorFrom(req.ResourceID, dateStr, d)
			}
			alloc := &model.ResourceAllocation{
				ResourceID: req.ResourceID,
				AllocDate:  model.NormalizeDate(date),
				IsLeave:    true,
				ManDays:    manDays,
				Note:       "日历导入",
			}
			alloc.CreatedBy = &callerID
			alloc.UpdatedBy = &callerID
			if err := tx.Create(alloc); err != nil {
				return err
			}
			snap, err := model.EncodeSnapshot(model.EntityAllocation, alloc)
			if err != nil {
				return err
			}
			if err := tx.AppendLog(&model.ActivityLog{
				EntityType: model.EntityAllocation,
				EntityID:   alloc.AllocationID,
				Action:     model.ActionCreate,
				FieldName:  strPtr("man_days"),
				NewValue:   strPtr(fmt.Sprintf("%.1f", manDays)),
				Snapshot:   &snap,
				ActorID:    callerID,
				State:      model.LogStateActive,
			}); err != nil {
				return err
			}
			item.Status = itemStatusCommitted
			return nil
		})
		// 单日失败只影响该日，整体导入继续
		if err != nil {
			item.Status = itemStatusRejected
			item.Reason = err.Error()
		}
		switch item.Status {
		case itemStatusCommitted:
			resp.Committed++
		case itemStatusRejected:
			resp.Rejected++
		case itemStatusSkipped:
			resp.Skipped++
		}
		resp.Items = append(resp.Items, item)
	}

	s.logger.Info("请假日历导入完成",
		zap.String("resource_id", req.ResourceID),
		zap.Int("total", resp.Total),
		zap.Int("committed", resp.Committed),
		zap.Int("rejected", resp.Rejected))
	return resp, nil
}

// ── 辅助函数 ──

// validateTarget 校验分配目标互斥规则：
// 镜头工作（show 必填、shot 可选）与请假/空闲恰好指定其一
func validateTarget(showID, shotID *string, isLeave, isIdle bool) error {
	hasWork := showID != nil
	if shotID != nil && showID == nil {
		return ErrAllocationTargetInvalid
	}
	if isLeave && isIdle {
		return ErrAllocationTargetInvalid
	}
	if hasWork && (isLeave || isIdle) {
		return ErrAllocationTargetInvalid
	}
	if !hasWork && !isLeave && !isIdle {
		return ErrAllocationTargetInvalid
	}
	return nil
}

func capacityCheckResponse(d CapacityDecision) *dto.CapacityCheckResponse {
	return &dto.CapacityCheckResponse{
		Admissible:      d.Admissible,
		CurrentTotal:    d.Current,
		NewTotal:        d.WouldBe,
		Remaining:       d.Remaining,
		ActiveShotCount: d.ActiveShotCount,
		Warning:         d.Warning,
	}
}

func toAllocationResponse(a *model.ResourceAllocation) *dto.AllocationResponse {
	resp := &dto.AllocationResponse{
		ID:        a.AllocationID,
		Date:      a.AllocDate.Format("2006-01-02"),
		IsLeave:   a.IsLeave,
		IsIdle:    a.IsIdle,
		ManDays:   a.ManDays,
		Note:      a.Note,
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
		UpdatedAt: a.UpdatedAt.Format(time.RFC3339),
	}
	if a.Resource != nil {
		resp.Resource = &dto.ResourceBrief{
			ID:         a.Resource.UserID,
			EmployeeID: a.Resource.EmployeeID,
			Name:       a.Resource.Name,
			Seniority:  a.Resource.Seniority,
		}
	}
	if a.Show != nil {
		resp.Show = &dto.ShowBrief{ID: a.Show.ShowID, Code: a.Show.Code, Name: a.Show.Name}
	}
	if a.Shot != nil {
		resp.Shot = &dto.ShotBrief{ID: a.Shot.ShotID, Code: a.Shot.Code}
	}
	return resp
}

func strPtr(s string) *string { return &s }

func strOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// [自证通过] internal/service/allocation_service.go
