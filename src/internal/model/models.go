package model

import "time"

type Role string

const (
	RoleCitizen    Role = "citizen"
	RoleTechnician Role = "technician"
	RoleTeamLeader Role = "team_leader"
	RoleManager    Role = "manager"
	RoleAdmin      Role = "admin"
)

// Permission sets are checked once at the API boundary, never inside handlers.
var rolePermissions = map[Role][]string{
	RoleCitizen:    {"view_own_incidents", "create_incidents", "update_own_profile"},
	RoleTechnician: {"update_job_progress", "view_assigned_jobs"},
	RoleTeamLeader: {"manage_team", "update_job_progress", "view_team_incidents", "view_assigned_jobs"},
	RoleManager:    {"manage_teams", "allocate_jobs", "view_all_incidents", "manage_users"},
}

func IsValidRole(r Role) bool {
	switch r {
	case RoleCitizen, RoleTechnician, RoleTeamLeader, RoleManager, RoleAdmin:
		return true
	default:
		return false
	}
}

// HasPermission reports whether the role grants the given action. Admin
// passes every check.
func (r Role) HasPermission(action string) bool {
	if r == RoleAdmin {
		return true
	}
	for _, p := range rolePermissions[r] {
		if p == action {
			return true
		}
	}
	return false
}

type Priority string

const (
	PriorityP0 Priority = "P0"
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
)

func IsValidPriority(p Priority) bool {
	switch p {
	case PriorityP0, PriorityP1, PriorityP2:
		return true
	default:
		return false
	}
}

type IncidentStatus string

const (
	IncidentReported   IncidentStatus = "reported"
	IncidentVerified   IncidentStatus = "verified"
	IncidentInProgress IncidentStatus = "in_progress"
	IncidentResolved   IncidentStatus = "resolved"
)

func IsValidIncidentStatus(s IncidentStatus) bool {
	switch s {
	case IncidentReported, IncidentVerified, IncidentInProgress, IncidentResolved:
		return true
	default:
		return false
	}
}

// CanTransition reports whether an explicit status update may move an
// incident from one status to the next. Allocation (reported -> verified)
// and unassign (any -> reported) go through their own operations, not here.
func (s IncidentStatus) CanTransition(next IncidentStatus) bool {
	switch s {
	case IncidentVerified:
		return next == IncidentInProgress
	case IncidentInProgress:
		return next == IncidentResolved
	default:
		return false
	}
}

type JobCardStatus string

const (
	JobCardAssigned   JobCardStatus = "assigned"
	JobCardInProgress JobCardStatus = "in_progress"
	JobCardCompleted  JobCardStatus = "completed"
)

func IsValidJobCardStatus(s JobCardStatus) bool {
	switch s {
	case JobCardAssigned, JobCardInProgress, JobCardCompleted:
		return true
	default:
		return false
	}
}

// CanTransition only allows the forward chain assigned -> in_progress ->
// completed. A completed card is immutable.
func (s JobCardStatus) CanTransition(next JobCardStatus) bool {
	switch s {
	case JobCardAssigned:
		return next == JobCardInProgress
	case JobCardInProgress:
		return next == JobCardCompleted
	default:
		return false
	}
}

type User struct {
	UserID       string    `json:"user_id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

type TeamMember struct {
	UserID    string `json:"user_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
}

type Team struct {
	TeamID         string       `json:"team_id"`
	TeamName       string       `json:"team_name"`
	Description    string       `json:"description"`
	Specialization string       `json:"specialization"`
	LeaderID       string       `json:"leader_id"`
	Members        []TeamMember `json:"members"`
	CreatedAt      time.Time    `json:"created_at,omitempty"`
}

type Incident struct {
	IncidentID      string         `json:"incident_id"`
	IncidentNumber  string         `json:"incident_number"`
	Description     string         `json:"description"`
	Category        string         `json:"category"`
	Priority        Priority       `json:"priority"`
	Status          IncidentStatus `json:"status"`
	Location        string         `json:"location"`
	Latitude        *float64       `json:"latitude,omitempty"`
	Longitude       *float64       `json:"longitude,omitempty"`
	ReporterContact string         `json:"reporter_contact,omitempty"`
	ReporterID      string         `json:"reporter_id,omitempty"`
	AssignedTeamID  *string        `json:"assigned_team_id,omitempty"`
	CreatedAt       time.Time      `json:"created_at,omitempty"`
	ResolvedAt      *time.Time     `json:"resolved_at,omitempty"`
}

type JobCard struct {
	JobCardID                string        `json:"job_card_id"`
	IncidentID               string        `json:"incident_id"`
	TeamID                   string        `json:"team_id"`
	Priority                 Priority      `json:"priority"`
	Description              string        `json:"description"`
	EstimatedDurationMinutes int           `json:"estimated_duration_minutes"`
	Status                   JobCardStatus `json:"status"`
	CreatedAt                time.Time     `json:"created_at,omitempty"`
	SupersededAt             *time.Time    `json:"superseded_at,omitempty"`
}

// Active means the card still represents live work: not completed and not
// superseded by an unassign.
func (j JobCard) Active() bool {
	return j.SupersededAt == nil && j.Status != JobCardCompleted
}

type ActivityEntry struct {
	EntryID    int64     `json:"entry_id"`
	IncidentID string    `json:"incident_id,omitempty"`
	ActorID    string    `json:"actor_id,omitempty"`
	Kind       string    `json:"kind"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

type AppError string

func (e AppError) Error() string { return string(e) }

const (
	ErrNotFound     = AppError("NOT_FOUND")
	ErrConflict     = AppError("CONFLICT")
	ErrInvalidState = AppError("INVALID_STATE")
)
