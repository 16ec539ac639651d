package models

import "time"

type TechnicianStatus string

const (
	TechnicianAvailable TechnicianStatus = "available"
	TechnicianOnJob     TechnicianStatus = "on_job"
	TechnicianOffDuty   TechnicianStatus = "off_duty"
)

const (
	RoleTechnician = "technician"
	RoleAdmin      = "admin"
	RoleManager    = "manager"
	RoleSuperadmin = "superadmin"
)

type Technician struct {
	ID                 string           `json:"id"`
	Name               string           `json:"name"`
	Email              string           `json:"email,omitempty"`
	Phone              string           `json:"phone,omitempty"`
	Role               string           `json:"role"`
	Status             TechnicianStatus `json:"status"`
	Rating             float64          `json:"rating"`
	TotalJobsCompleted int              `json:"total_jobs_completed"`
	Skills             []string         `json:"skills,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// ScheduleEntry is one weekly working-hours row. DayOfWeek follows
// time.Weekday numbering: 0=Sunday .. 6=Saturday. A technician with no row
// for a day is treated as available with default hours.
type ScheduleEntry struct {
	TechnicianID string `json:"technician_id"`
	DayOfWeek    int    `json:"day_of_week"`
	StartTime    string `json:"start_time"` // HH:MM
	EndTime      string `json:"end_time"`   // HH:MM
	IsAvailable  bool   `json:"is_available"`
}

// TimeOffRange covers whole days, bounds inclusive.
type TimeOffRange struct {
	ID           string    `json:"id"`
	TechnicianID string    `json:"technician_id"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	Reason       string    `json:"reason,omitempty"`
}

// Covers reports whether date falls inside the range, comparing calendar
// days in UTC.
func (r TimeOffRange) Covers(date time.Time) bool {
	day := date.UTC().Truncate(24 * time.Hour)
	start := r.StartDate.UTC().Truncate(24 * time.Hour)
	end := r.EndDate.UTC().Truncate(24 * time.Hour)
	return !day.Before(start) && !day.After(end)
}
