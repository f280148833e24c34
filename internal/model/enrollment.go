package model

import "time"

type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentCancelled EnrollmentStatus = "cancelled"
)

// Enrollment 把学生和课程关联起来，只有 active 状态允许提交测验。
type Enrollment struct {
	BaseModel

	UserID      uint             `gorm:"index;type:bigint unsigned" json:"userId"`
	CourseID    uint             `gorm:"index;type:bigint unsigned" json:"courseId"`
	Status      EnrollmentStatus `gorm:"size:50;not null;default:active" json:"status"`
	EnrolledAt  time.Time        `json:"enrolledAt"`
	CompletedAt *time.Time       `json:"completedAt,omitempty"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

func (e *Enrollment) IsActive() bool {
	return e.Status == EnrollmentActive
}

// Course 仅承载测验归属与讲师组分配所需的最小字段。
type Course struct {
	BaseModel

	Title        string `gorm:"size:255;not null" json:"title"`
	InstructorID uint   `gorm:"index;type:bigint unsigned" json:"instructorId"`
}

func (Course) TableName() string {
	return "courses"
}

// CourseSection 对应讲师分组，人工评分队列按它过滤可见范围。
type CourseSection struct {
	BaseModel

	CourseID     uint   `gorm:"index;type:bigint unsigned" json:"courseId"`
	Name         string `gorm:"size:255;not null" json:"name"`
	InstructorID uint   `gorm:"index;type:bigint unsigned" json:"instructorId"`
}

func (CourseSection) TableName() string {
	return "course_sections"
}
