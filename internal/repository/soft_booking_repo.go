package repository

import (
	"context"

	"gorm.io/gorm"

	"shotflow/backend/internal/model"
	pkgerrors "shotflow/backend/pkg/errors"
)

// SoftBookingListFilter 软预订列表过滤条件
type SoftBookingListFilter struct {
	ShowID string
	Status string
	Offset int
	Limit  int
}

// SoftBookingRepository 软预订数据访问接口
type SoftBookingRepository interface {
	Create(ctx context.Context, b *model.SoftBooking) error
	GetByID(ctx context.Context, id string) (*model.SoftBooking, error)
	Update(ctx context.Context, b *model.SoftBooking) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter SoftBookingListFilter) ([]model.SoftBooking, int64, error)
}

// softBookingRepo SoftBookingRepository 的 GORM 实现
type softBookingRepo struct {
	db *gorm.DB
}

// NewSoftBookingRepo 创建 SoftBookingRepository 实例
func NewSoftBookingRepo(db *gorm.DB) SoftBookingRepository {
	return &softBookingRepo{db: db}
}

func (r *softBookingRepo) Create(ctx context.Context, b *model.SoftBooking) error {
	b.StartDate = model.NormalizeDate(b.StartDate)
	b.EndDate = model.NormalizeDate(b.EndDate)
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *softBookingRepo) GetByID(ctx context.Context, id string) (*model.SoftBooking, error) {
	var booking model.SoftBooking
	err := r.db.WithContext(ctx).
		Preload("Show").
		Where("booking_id = ?", id).
		First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *softBookingRepo) Update(ctx context.Context, b *model.SoftBooking) error {
	oldVersion := b.Version
	result := r.db.WithContext(ctx).
		Model(b).
		Where("booking_id = ? AND version = ?", b.BookingID, oldVersion).
		Updates(map[string]interface{}{
			"total_man_days": b.TotalManDays,
			"split_enabled":  b.SplitEnabled,
			"senior_pct":     b.SeniorPct,
			"mid_pct":        b.MidPct,
			"junior_pct":     b.JuniorPct,
			"start_date":     model.NormalizeDate(b.StartDate),
			"end_date":       model.NormalizeDate(b.EndDate),
			"status":         b.Status,
			"version":        oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	b.Version = oldVersion + 1
	return nil
}

func (r *softBookingRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("booking_id = ?", id).
		Delete(&model.SoftBooking{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *softBookingRepo) List(ctx context.Context, filter SoftBookingListFilter) ([]model.SoftBooking, int64, error) {
	var bookings []model.SoftBooking
	var total int64

	db := r.db.WithContext(ctx).Model(&model.SoftBooking{})
	if filter.ShowID != "" {
		db = db.Where("show_id = ?", filter.ShowID)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Preload("Show").
		Offset(filter.Offset).Limit(filter.Limit).
		Order("created_at DESC").
		Find(&bookings).Error
	return bookings, total, err
}

// [自证通过] internal/repository/soft_booking_repo.go
