package model

import "time"

// ApplicationNote 申请备注表：对应 application_notes（只追加）
// Seq 由数据库分配，按 Seq 倒序即最新在前
type ApplicationNote struct {
	Seq           int64     `gorm:"primaryKey;autoIncrement"                       json:"-"`
	NoteID        string    `gorm:"type:uuid;not null;default:gen_random_uuid()"   json:"id"`
	ApplicationID string    `gorm:"type:uuid;not null;index"                       json:"application_id"`
	AuthorID      *string   `gorm:"type:uuid"                                      json:"author_id"`
	AuthorName    string    `gorm:"type:varchar(255);not null"                     json:"author_name"`
	NoteText      string    `gorm:"type:text;not null"                             json:"note_text"`
	CreatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;autoCreateTime:false" json:"created_at"`
}

// TableName 指定表名
func (ApplicationNote) TableName() string { return "application_notes" }
