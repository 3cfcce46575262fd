package model

import "time"

// 软预订状态常量
const (
	BookingStatusForecast     = "forecast"     // 仅预测，未落实
	BookingStatusPartial      = "partial"      // 部分落实（存在被容量拒绝的条目）
	BookingStatusMaterialized = "materialized" // 全部落实
)

// SoftBooking 软预订表 — 对应 soft_bookings
//
// 预测级承诺：show + 部门 + 日期区间 + 总人天。本身不受单日容量约束；
// 落实（materialize）产生的逐日逐层级分配行受单日容量约束。
// split_enabled 时三个百分比之和必须为 100（容差 0.01）。
type SoftBooking struct {
	BookingID    string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"booking_id"`
	ShowID       string    `gorm:"type:uuid;not null"                             json:"show_id"`
	ManagerID    string    `gorm:"type:uuid;not null"                             json:"manager_id"`
	DepartmentID string    `gorm:"type:uuid;not null"                             json:"department_id"`
	TotalManDays float64   `gorm:"type:numeric(6,1);not null"                     json:"total_man_days"`
	StartDate    time.Time `gorm:"type:date;not null"                             json:"start_date"`
	EndDate      time.Time `gorm:"type:date;not null"                             json:"end_date"`
	SplitEnabled bool      `gorm:"not null;default:false"                         json:"split_enabled"`
	SeniorPct    float64   `gorm:"type:numeric(5,2);not null;default:0"           json:"senior_pct"`
	MidPct       float64   `gorm:"type:numeric(5,2);not null;default:0"           json:"mid_pct"`
	JuniorPct    float64   `gorm:"type:numeric(5,2);not null;default:0"           json:"junior_pct"`
	Status       string    `gorm:"type:varchar(20);not null;default:'forecast'"   json:"status"`
	VersionedModel

	// 关联
	Show       *Show       `gorm:"foreignKey:ShowID;references:ShowID"             json:"show,omitempty"`
	Manager    *User       `gorm:"foreignKey:ManagerID;references:UserID"          json:"manager,omitempty"`
	Department *Department `gorm:"foreignKey:DepartmentID;references:DepartmentID" json:"department,omitempty"`
}

// TableName 指定表名
func (SoftBooking) TableName() string { return "soft_bookings" }

// [自证通过] internal/model/soft_booking.go
