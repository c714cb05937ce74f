package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type User struct {
	UserID    string `json:"user_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

type Team struct {
	TeamID   string `json:"team_id"`
	TeamName string `json:"team_name"`
	LeaderID string `json:"leader_id"`
	Members  []struct {
		UserID string `json:"user_id"`
	} `json:"members"`
}

type Incident struct {
	IncidentID     string  `json:"incident_id"`
	IncidentNumber string  `json:"incident_number"`
	Status         string  `json:"status"`
	Priority       string  `json:"priority"`
	AssignedTeamID *string `json:"assigned_team_id"`
}

type JobCard struct {
	JobCardID  string `json:"job_card_id"`
	IncidentID string `json:"incident_id"`
	TeamID     string `json:"team_id"`
	Status     string `json:"status"`
}

type IntegrationTestSuite struct {
	suite.Suite
	baseURL string
	client  *http.Client

	managerToken    string
	technicianToken string
	citizenToken    string

	managerID    string
	technicianID string
	citizenID    string
}

func (suite *IntegrationTestSuite) SetupSuite() {
	suite.baseURL = "http://localhost:8080/api"
	suite.client = &http.Client{Timeout: 10 * time.Second}
	suite.waitForService()
	suite.registerAccounts()
}

func (suite *IntegrationTestSuite) waitForService() {
	for i := 0; i < 30; i++ {
		resp, err := http.Get(suite.baseURL + "/health")
		if err == nil && resp.StatusCode == http.StatusOK {
			fmt.Println("✅ Service is ready!")
			return
		}
		fmt.Printf("⏳ Waiting for service... (attempt %d/30)\n", i+1)
		time.Sleep(1 * time.Second)
	}
	suite.T().Fatal("❌ Service failed to start within 30 seconds")
}

func (suite *IntegrationTestSuite) registerAccounts() {
	t := suite.T()
	stamp := time.Now().UnixNano()

	suite.managerID, suite.managerToken = suite.signUp(t, fmt.Sprintf("manager-%d@example.com", stamp), "manager")
	suite.technicianID, suite.technicianToken = suite.signUp(t, fmt.Sprintf("tech-%d@example.com", stamp), "technician")
	suite.citizenID, suite.citizenToken = suite.signUp(t, fmt.Sprintf("citizen-%d@example.com", stamp), "citizen")
}

func (suite *IntegrationTestSuite) signUp(t *testing.T, email, role string) (string, string) {
	body := map[string]string{
		"first_name": "Test",
		"last_name":  role,
		"email":      email,
		"password":   "integration-pass",
		"role":       role,
	}
	resp, err := suite.doRequest("POST", "/submit", body, "")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode, "registration should succeed")

	var reg struct {
		User User `json:"user"`
	}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&reg))

	resp, err = suite.doRequest("POST", "/login", map[string]string{
		"email":    email,
		"password": "integration-pass",
	}, "")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "login should succeed")

	var login struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
		User    struct {
			ID    string `json:"id"`
			Email string `json:"email"`
			Role  string `json:"role"`
			Name  string `json:"name"`
		} `json:"user"`
	}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&login))
	assert.True(t, login.Success, "login response should carry success flag")
	assert.NotEmpty(t, login.Token)
	assert.Equal(t, reg.User.UserID, login.User.ID)
	assert.Equal(t, role, login.User.Role)
	assert.NotEmpty(t, login.User.Name)

	return reg.User.UserID, login.Token
}

func (suite *IntegrationTestSuite) TestDispatchFlow() {
	t := suite.T()

	team := suite.createTeam(t, fmt.Sprintf("crew-%d", time.Now().UnixNano()))

	resp, err := suite.doRequest("POST", "/incidents", map[string]any{
		"description": "Raw sewage surfacing in the street",
		"category":    "overflow",
		"priority":    "P1",
		"location":    "Main St 42",
	}, suite.citizenToken)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode, "citizen should be able to report")

	var incResp struct {
		Incident Incident `json:"incident"`
	}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&incResp))
	assert.Equal(t, "reported", incResp.Incident.Status)
	assert.NotEmpty(t, incResp.Incident.IncidentNumber)
	fmt.Println("✅ Incident reported")

	incidentID := incResp.Incident.IncidentID

	resp, err = suite.doRequest("GET", "/incidents/unallocated", nil, suite.managerToken)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	allocateBody := map[string]any{
		"team_id":                    team.TeamID,
		"description":                "Clear blockage and flush the line",
		"estimated_duration_minutes": 120,
	}
	resp, err = suite.doRequest("POST", "/incidents/"+incidentID+"/allocate", allocateBody, suite.managerToken)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode, "allocation should succeed")

	var cardResp struct {
		JobCard JobCard `json:"job_card"`
	}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&cardResp))
	assert.Equal(t, "assigned", cardResp.JobCard.Status)
	fmt.Println("✅ Incident allocated")

	resp, err = suite.doRequest("POST", "/incidents/"+incidentID+"/allocate", allocateBody, suite.managerToken)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "second allocation should conflict")
	fmt.Println("✅ Double allocation rejected")

	resp, err = suite.doRequest("GET", "/incidents/"+incidentID, nil, suite.managerToken)
	assert.NoError(t, err)
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&incResp))
	assert.Equal(t, "verified", incResp.Incident.Status, "allocation should move incident to verified")
	assert.NotNil(t, incResp.Incident.AssignedTeamID)

	cardID := cardResp.JobCard.JobCardID

	resp, err = suite.doRequest("PUT", "/job-cards/"+cardID+"/status", map[string]string{"status": "in_progress"}, suite.technicianToken)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "technician should advance the job card")

	resp, err = suite.doRequest("PUT", "/job-cards/"+cardID+"/status", map[string]string{"status": "completed"}, suite.technicianToken)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	fmt.Println("✅ Job card completed")

	resp, err = suite.doRequest("PUT", "/job-cards/"+cardID+"/status", map[string]string{"status": "in_progress"}, suite.technicianToken)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "completed job card should be immutable")
	fmt.Println("✅ Completed card immutable")

	resp, err = suite.doRequest("GET", "/stats", nil, suite.managerToken)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var stats struct {
		IncidentsByStatus map[string]int `json:"incidents_by_status"`
	}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.NotEmpty(t, stats.IncidentsByStatus)
	fmt.Println("✅ Dashboard stats served")

	resp, err = suite.doRequest("DELETE", "/teams/"+team.TeamID, nil, suite.managerToken)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode, "team with only completed work should be deletable")
	fmt.Println("✅ Team with historical work deleted")
}

func (suite *IntegrationTestSuite) TestUserDirectory() {
	t := suite.T()

	resp, err := suite.doRequest("GET", "/users", nil, suite.managerToken)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "manager should list users")

	var listing struct {
		Users []User `json:"users"`
	}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&listing))
	assert.NotEmpty(t, listing.Users)
	for _, u := range listing.Users {
		assert.NotEmpty(t, u.UserID)
		assert.NotEmpty(t, u.Email)
	}
	fmt.Println("✅ User directory served")

	resp, err = suite.doRequest("GET", "/users", nil, suite.citizenToken)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "citizen must not list users")
	fmt.Println("✅ User directory gated by role")
}

func (suite *IntegrationTestSuite) TestUnassignFlow() {
	t := suite.T()

	team := suite.createTeam(t, fmt.Sprintf("unassign-crew-%d", time.Now().UnixNano()))

	resp, err := suite.doRequest("POST", "/incidents", map[string]any{
		"description": "Manhole cover missing",
		"category":    "infrastructure",
		"priority":    "P2",
	}, suite.citizenToken)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var incResp struct {
		Incident Incident `json:"incident"`
	}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&incResp))
	incidentID := incResp.Incident.IncidentID

	resp, err = suite.doRequest("POST", "/incidents/"+incidentID+"/allocate", map[string]any{
		"team_id":                    team.TeamID,
		"description":                "Replace the cover",
		"estimated_duration_minutes": 45,
	}, suite.managerToken)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = suite.doRequest("POST", "/incidents/"+incidentID+"/unassign", nil, suite.managerToken)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "unassign should succeed")

	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&incResp))
	assert.Equal(t, "reported", incResp.Incident.Status, "unassign should return incident to reported")
	assert.Nil(t, incResp.Incident.AssignedTeamID)
	fmt.Println("✅ Incident unassigned back to queue")

	resp, err = suite.doRequest("POST", "/incidents/"+incidentID+"/allocate", map[string]any{
		"team_id":                    team.TeamID,
		"description":                "Second visit",
		"estimated_duration_minutes": 30,
	}, suite.managerToken)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode, "re-allocation after unassign should succeed")
	fmt.Println("✅ Re-allocation after unassign works")
}

func (suite *IntegrationTestSuite) TestErrorScenarios() {
	t := suite.T()

	resp, err := suite.doRequest("GET", "/incidents", nil, "")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "missing token should be rejected")
	fmt.Println("✅ Unauthenticated access rejected")

	resp, err = suite.doRequest("POST", "/teams", map[string]any{
		"team_name": "forbidden-team",
		"leader_id": suite.citizenID,
	}, suite.citizenToken)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "citizen must not manage teams")
	fmt.Println("✅ Role check enforced")

	resp, err = suite.doRequest("GET", "/incidents/00000000-0000-0000-0000-000000000000", nil, suite.managerToken)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "unknown incident should 404")

	email := fmt.Sprintf("dup-%d@example.com", time.Now().UnixNano())
	body := map[string]string{
		"first_name": "Dup",
		"last_name":  "User",
		"email":      email,
		"password":   "integration-pass",
	}
	resp, err = suite.doRequest("POST", "/submit", body, "")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = suite.doRequest("POST", "/submit", body, "")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "duplicate email should conflict")
	fmt.Println("✅ Duplicate registration rejected")

	teamName := fmt.Sprintf("dup-team-%d", time.Now().UnixNano())
	suite.createTeam(t, teamName)

	resp, err = suite.doRequest("POST", "/teams", map[string]any{
		"team_name": teamName,
		"leader_id": suite.technicianID,
	}, suite.managerToken)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "duplicate team name should conflict")
	fmt.Println("✅ Duplicate team rejected")
}

func (suite *IntegrationTestSuite) TestTeamDeletionGuard() {
	t := suite.T()

	team := suite.createTeam(t, fmt.Sprintf("busy-crew-%d", time.Now().UnixNano()))

	resp, err := suite.doRequest("POST", "/incidents", map[string]any{
		"description": "Pump station alarm",
		"priority":    "P0",
	}, suite.citizenToken)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var incResp struct {
		Incident Incident `json:"incident"`
	}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&incResp))

	resp, err = suite.doRequest("POST", "/incidents/"+incResp.Incident.IncidentID+"/allocate", map[string]any{
		"team_id":                    team.TeamID,
		"description":                "Investigate alarm",
		"estimated_duration_minutes": 60,
	}, suite.managerToken)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = suite.doRequest("DELETE", "/teams/"+team.TeamID, nil, suite.managerToken)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "team with active work must not be deleted")
	fmt.Println("✅ Busy team deletion rejected")

	resp, err = suite.doRequest("POST", "/incidents/"+incResp.Incident.IncidentID+"/unassign", nil, suite.managerToken)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = suite.doRequest("DELETE", "/teams/"+team.TeamID, nil, suite.managerToken)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode, "idle team deletion should succeed")
	fmt.Println("✅ Idle team deleted")
}

func (suite *IntegrationTestSuite) createTeam(t *testing.T, name string) Team {
	resp, err := suite.doRequest("POST", "/teams", map[string]any{
		"team_name":  name,
		"leader_id":  suite.technicianID,
		"member_ids": []string{suite.technicianID},
	}, suite.managerToken)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode, "team creation should succeed")

	var teamResp struct {
		Team Team `json:"team"`
	}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&teamResp))
	return teamResp.Team
}

func (suite *IntegrationTestSuite) doRequest(method, path string, body interface{}, token string) (*http.Response, error) {
	var req *http.Request
	var err error

	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req, err = http.NewRequest(method, suite.baseURL+path, bytes.NewBuffer(jsonBody))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, err = http.NewRequest(method, suite.baseURL+path, nil)
		if err != nil {
			return nil, err
		}
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return suite.client.Do(req)
}

func TestIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(IntegrationTestSuite))
}
