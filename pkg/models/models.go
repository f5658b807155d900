package models

import "time"

// Domain models matching the database schema in db/migrations.

type Role string

const (
	RoleEngineer     Role = "engineer"
	RoleAdmin        Role = "admin"
	RoleLimitedAdmin Role = "limited_admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleEngineer, RoleAdmin, RoleLimitedAdmin:
		return true
	}
	return false
}

// IsAdmin reports whether r grants access to the administrative console.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleLimitedAdmin
}

type Status string

const (
	StatusPlanning Status = "planning"
	StatusExecuted Status = "executed"
)

type RecipientType string

const (
	RecipientAll      RecipientType = "all"
	RecipientSpecific RecipientType = "specific"
)

// DefaultWeeklyHours is the weekly requirement assigned when none is given.
const DefaultWeeklyHours = 40

type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	FullName     string    `json:"full_name" db:"full_name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Created      time.Time `json:"created_at" db:"created_at"`
}

type Engineer struct {
	ID                    string    `json:"id" db:"id"`
	UserID                *string   `json:"user_id,omitempty" db:"user_id"`
	EmployeeID            string    `json:"employee_id" db:"employee_id"`
	FullName              string    `json:"full_name" db:"full_name"`
	Email                 string    `json:"email" db:"email"`
	Role                  Role      `json:"role" db:"role"`
	WeeklyHourRequirement float64   `json:"weekly_hour_requirement" db:"weekly_hour_requirement"`
	IsActive              bool      `json:"is_active" db:"is_active"`
	Created               time.Time `json:"created_at" db:"created_at"`
	Updated               time.Time `json:"updated_at" db:"updated_at"`
}

// EngineerRef is the denormalised engineer data carried by activity reads.
type EngineerRef struct {
	FullName   string `json:"full_name"`
	EmployeeID string `json:"employee_id"`
}

type DailyActivity struct {
	ID           string         `json:"id" db:"id"`
	EngineerID   string         `json:"engineer_id" db:"engineer_id"`
	ActivityDate Date           `json:"activity_date" db:"activity_date"`
	CustomerName string         `json:"customer_name" db:"customer_name"`
	SiteLocation string         `json:"site_location" db:"site_location"`
	Notes        string         `json:"notes" db:"notes"`
	Status       Status         `json:"status" db:"status"`
	TotalHours   float64        `json:"total_hours" db:"total_hours"`
	SubmittedAt  time.Time      `json:"submitted_at" db:"submitted_at"`
	Updated      time.Time      `json:"updated_at" db:"updated_at"`
	Version      int64          `json:"version" db:"version"`
	Engineer     EngineerRef    `json:"engineer"`
	Hours        []ActivityHour `json:"activity_hours"`
}

type ActivityHour struct {
	ID                string  `json:"id" db:"id"`
	DailyActivityID   string  `json:"daily_activity_id" db:"daily_activity_id"`
	ServiceCategoryID string  `json:"service_category_id" db:"service_category_id"`
	CategoryName      string  `json:"category_name,omitempty"`
	Hours             float64 `json:"hours" db:"hours"`
	Description       string  `json:"description,omitempty" db:"description"`
}

type ServiceCategory struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description,omitempty" db:"description"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	Created     time.Time `json:"created_at" db:"created_at"`
}

type Notification struct {
	ID                  string        `json:"id" db:"id"`
	Message             string        `json:"message" db:"message"`
	RecipientType       RecipientType `json:"recipient_type" db:"recipient_type"`
	RecipientEngineerID *string       `json:"recipient_engineer_id,omitempty" db:"recipient_engineer_id"`
	SentBy              string        `json:"sent_by" db:"sent_by"`
	SentAt              time.Time     `json:"sent_at" db:"sent_at"`
	IsRead              bool          `json:"is_read"`
}
