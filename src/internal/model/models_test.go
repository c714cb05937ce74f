package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoleHasPermission(t *testing.T) {
	assert.True(t, RoleCitizen.HasPermission("create_incidents"))
	assert.False(t, RoleCitizen.HasPermission("allocate_jobs"))

	assert.True(t, RoleTechnician.HasPermission("update_job_progress"))
	assert.False(t, RoleTechnician.HasPermission("manage_teams"))

	assert.True(t, RoleTeamLeader.HasPermission("update_job_progress"))
	assert.True(t, RoleManager.HasPermission("allocate_jobs"))
	assert.True(t, RoleManager.HasPermission("manage_teams"))

	assert.True(t, RoleAdmin.HasPermission("allocate_jobs"))
	assert.True(t, RoleAdmin.HasPermission("anything_at_all"))

	assert.False(t, Role("intruder").HasPermission("create_incidents"))
}

func TestIsValidRole(t *testing.T) {
	assert.True(t, IsValidRole(RoleCitizen))
	assert.True(t, IsValidRole(RoleAdmin))
	assert.False(t, IsValidRole(Role("superuser")))
	assert.False(t, IsValidRole(Role("")))
}

func TestIncidentStatusTransitions(t *testing.T) {
	cases := []struct {
		from    IncidentStatus
		to      IncidentStatus
		allowed bool
	}{
		{IncidentVerified, IncidentInProgress, true},
		{IncidentInProgress, IncidentResolved, true},
		{IncidentReported, IncidentVerified, false},
		{IncidentReported, IncidentResolved, false},
		{IncidentVerified, IncidentResolved, false},
		{IncidentResolved, IncidentInProgress, false},
		{IncidentResolved, IncidentReported, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.allowed, c.from.CanTransition(c.to), "%s -> %s", c.from, c.to)
	}
}

func TestJobCardStatusTransitions(t *testing.T) {
	cases := []struct {
		from    JobCardStatus
		to      JobCardStatus
		allowed bool
	}{
		{JobCardAssigned, JobCardInProgress, true},
		{JobCardInProgress, JobCardCompleted, true},
		{JobCardAssigned, JobCardCompleted, false},
		{JobCardCompleted, JobCardInProgress, false},
		{JobCardCompleted, JobCardAssigned, false},
		{JobCardInProgress, JobCardAssigned, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.allowed, c.from.CanTransition(c.to), "%s -> %s", c.from, c.to)
	}
}

func TestJobCardActive(t *testing.T) {
	now := time.Now()

	assert.True(t, JobCard{Status: JobCardAssigned}.Active())
	assert.True(t, JobCard{Status: JobCardInProgress}.Active())
	assert.False(t, JobCard{Status: JobCardCompleted}.Active())
	assert.False(t, JobCard{Status: JobCardAssigned, SupersededAt: &now}.Active())
}

func TestUserFullName(t *testing.T) {
	u := User{FirstName: "Ada", LastName: "Nkosi"}
	assert.Equal(t, "Ada Nkosi", u.FullName())
}
