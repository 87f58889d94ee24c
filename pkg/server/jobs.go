package server

import (
	"encoding/json"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/fabricops/fabricctl/pkg/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxCronInterval = 5270400

var weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Dispatch jobs/instances/... and jobs/{jobType}/schedules/...
func (a *API) jobs(c *gin.Context) {
	parts := strings.Split(strings.Trim(c.Param("rest"), "/"), "/")
	method := c.Request.Method

	switch {
	case len(parts) == 1 && parts[0] == "instances" && method == http.MethodPost:
		a.runJob(c)
	case len(parts) == 2 && parts[0] == "instances" && method == http.MethodGet:
		a.getJob(c, parts[1])
	case len(parts) == 3 && parts[0] == "instances" && parts[2] == "cancel" && method == http.MethodPost:
		a.cancelJob(c, parts[1])
	case len(parts) == 2 && parts[1] == "schedules" && method == http.MethodGet:
		a.listSchedules(c, parts[0])
	case len(parts) == 2 && parts[1] == "schedules" && method == http.MethodPost:
		a.createSchedule(c, parts[0])
	case len(parts) == 3 && parts[1] == "schedules" && method == http.MethodGet:
		a.getSchedule(c, parts[0], parts[2])
	case len(parts) == 3 && parts[1] == "schedules" && method == http.MethodDelete:
		a.deleteSchedule(c, parts[0], parts[2])
	default:
		fabricError(c, http.StatusNotFound, "EntityNotFound", "%s %s not found", method, c.Request.URL.Path)
	}
}

func (a *API) runJob(c *gin.Context) {
	jobType := c.Query("jobType")
	if jobType == "" {
		fabricError(c, http.StatusBadRequest, "InvalidJobType", "jobType is required")
		return
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		fabricError(c, http.StatusRequestEntityTooLarge, "RequestBodyTooLarge", "failed to read request body: %s", err)
		return
	}
	var req struct {
		ExecutionData json.RawMessage `json:"executionData"`
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			fabricError(c, http.StatusBadRequest, "InvalidInput", "invalid JSON request body: %s", err)
			return
		}
	}

	s := a.Store
	s.mu.Lock()
	defer s.mu.Unlock()

	item := a.lookupItem(c, "")
	if item == nil {
		return
	}

	var failure *models.ErrorResponse
	if jobType == models.JobTypeTableMaintenance {
		if item.Type != itemTypeLakehouse {
			fabricError(c, http.StatusBadRequest, "InvalidJobType", "%s does not support %s", item.Type, jobType)
			return
		}
		var maintenance models.TableMaintenanceRequest
		if len(req.ExecutionData) == 0 || json.Unmarshal(req.ExecutionData, &maintenance) != nil || maintenance.TableName == "" {
			fabricError(c, http.StatusBadRequest, "InvalidInput", "executionData.tableName is required")
			return
		}
		if !slices.ContainsFunc(s.tables[item.ID], func(t models.Table) bool { return t.Name == maintenance.TableName }) {
			failure = &models.ErrorResponse{
				ErrorCode: "TableNotFound",
				Message:   "table " + maintenance.TableName + " does not exist",
			}
		}
	}

	j := &job{
		instance: models.JobInstance{
			ID:             uuid.NewString(),
			ItemID:         item.ID,
			JobType:        jobType,
			InvokeType:     "Manual",
			Status:         models.JobNotStarted,
			RootActivityID: uuid.NewString(),
			StartTimeUtc:   time.Now().UTC().Format(time.RFC3339),
		},
		failure: failure,
	}
	s.jobs[j.instance.ID] = j

	c.Header("Location", location(c, "/workspaces/"+item.WorkspaceID+"/items/"+item.ID+"/jobs/instances/"+j.instance.ID))
	a.retryAfter(c)
	c.Status(http.StatusAccepted)
}

// Callers hold the lock
func (a *API) lookupJob(c *gin.Context, id string) *job {
	item := a.lookupItem(c, "")
	if item == nil {
		return nil
	}
	j := a.Store.jobs[id]
	if j == nil || j.instance.ItemID != item.ID {
		fabricError(c, http.StatusNotFound, "ItemJobInstanceNotFound", "job instance %s not found", id)
		return nil
	}
	return j
}

func (a *API) getJob(c *gin.Context, id string) {
	a.Store.mu.Lock()
	defer a.Store.mu.Unlock()

	j := a.lookupJob(c, id)
	if j == nil {
		return
	}
	if !j.instance.Status.Terminal() {
		j.polls++
		switch {
		case j.polls < a.Configuration.OperationPolls:
			j.instance.Status = models.JobInProgress
		case j.failure != nil:
			j.instance.Status = models.JobFailed
			j.instance.FailureReason = j.failure
		default:
			j.instance.Status = models.JobCompleted
		}
		if j.instance.Status.Terminal() {
			j.instance.EndTimeUtc = time.Now().UTC().Format(time.RFC3339)
		}
	}
	c.JSON(http.StatusOK, j.instance)
}

func (a *API) cancelJob(c *gin.Context, id string) {
	a.Store.mu.Lock()
	defer a.Store.mu.Unlock()

	j := a.lookupJob(c, id)
	if j == nil {
		return
	}
	if !j.instance.Status.Terminal() {
		j.instance.Status = models.JobCancelled
		j.instance.EndTimeUtc = time.Now().UTC().Format(time.RFC3339)
	}
	c.Header("Location", location(c, strings.TrimSuffix(strings.TrimPrefix(c.Request.URL.Path, "/v1"), "/cancel")))
	c.Status(http.StatusAccepted)
}

func (a *API) listSchedules(c *gin.Context, jobType string) {
	s := a.Store
	s.mu.Lock()
	defer s.mu.Unlock()

	item := a.lookupItem(c, "")
	if item == nil {
		return
	}
	respondPage(c, a.Configuration.PageSize, slices.Clone(s.schedules[scheduleKey(item.ID, jobType)]))
}

func (a *API) createSchedule(c *gin.Context, jobType string) {
	var req models.CreateScheduleRequest
	if !bindJSON(c, &req) {
		return
	}
	if msg := validateSchedule(req.Configuration); msg != "" {
		fabricError(c, http.StatusBadRequest, "InvalidScheduleConfiguration", "%s", msg)
		return
	}

	s := a.Store
	s.mu.Lock()
	defer s.mu.Unlock()

	item := a.lookupItem(c, "")
	if item == nil {
		return
	}
	schedule := models.ItemSchedule{
		ID:              uuid.NewString(),
		Enabled:         req.Enabled,
		CreatedDateTime: time.Now().UTC().Format(time.RFC3339),
		Configuration:   req.Configuration,
	}
	if claims, ok := c.Keys["claims"].(map[string]any); ok {
		if oid, _ := claims["oid"].(string); oid != "" {
			schedule.Owner = &models.Principal{ID: oid, Type: "User"}
		}
	}
	key := scheduleKey(item.ID, jobType)
	s.schedules[key] = append(s.schedules[key], schedule)

	c.Header("Location", location(c, strings.TrimPrefix(c.Request.URL.Path, "/v1")+"/"+schedule.ID))
	c.JSON(http.StatusCreated, schedule)
}

func (a *API) getSchedule(c *gin.Context, jobType, id string) {
	s := a.Store
	s.mu.Lock()
	defer s.mu.Unlock()

	item := a.lookupItem(c, "")
	if item == nil {
		return
	}
	i := slices.IndexFunc(s.schedules[scheduleKey(item.ID, jobType)], func(sc models.ItemSchedule) bool { return sc.ID == id })
	if i < 0 {
		fabricError(c, http.StatusNotFound, "ItemScheduleNotFound", "schedule %s not found", id)
		return
	}
	c.JSON(http.StatusOK, s.schedules[scheduleKey(item.ID, jobType)][i])
}

func (a *API) deleteSchedule(c *gin.Context, jobType, id string) {
	s := a.Store
	s.mu.Lock()
	defer s.mu.Unlock()

	item := a.lookupItem(c, "")
	if item == nil {
		return
	}
	key := scheduleKey(item.ID, jobType)
	before := len(s.schedules[key])
	s.schedules[key] = slices.DeleteFunc(s.schedules[key], func(sc models.ItemSchedule) bool { return sc.ID == id })
	if len(s.schedules[key]) == before {
		fabricError(c, http.StatusNotFound, "ItemScheduleNotFound", "schedule %s not found", id)
		return
	}
	c.Status(http.StatusOK)
}

// Problem with a schedule configuration, empty when valid
func validateSchedule(cfg models.ScheduleConfig) string {
	if cfg.StartDateTime == "" || cfg.EndDateTime == "" || cfg.LocalTimeZoneID == "" {
		return "startDateTime, endDateTime and localTimeZoneId are required"
	}
	start, err1 := parseScheduleTime(cfg.StartDateTime)
	end, err2 := parseScheduleTime(cfg.EndDateTime)
	if err1 != nil || err2 != nil {
		return "startDateTime and endDateTime must be ISO 8601 timestamps"
	}
	if !end.After(start) {
		return "endDateTime must be after startDateTime"
	}

	switch cfg.Type {
	case models.ScheduleCron:
		if cfg.Interval < 1 || cfg.Interval > maxCronInterval {
			return "interval must be between 1 and 5270400 minutes"
		}
	case models.ScheduleDaily:
		if len(cfg.Times) == 0 {
			return "times are required"
		}
	case models.ScheduleWeekly:
		if len(cfg.Times) == 0 || len(cfg.Weekdays) == 0 {
			return "times and weekdays are required"
		}
		for _, day := range cfg.Weekdays {
			if !slices.Contains(weekdays, day) {
				return "invalid weekday " + day
			}
		}
	case models.ScheduleMonthly:
		if len(cfg.Times) == 0 || cfg.Recurrence < 1 || cfg.Occurrence == nil {
			return "times, recurrence and occurrence are required"
		}
	default:
		return "unsupported schedule type " + cfg.Type
	}
	for _, t := range cfg.Times {
		if _, err := time.Parse("15:04", t); err != nil {
			return "invalid time " + t
		}
	}
	return ""
}

// Schedule timestamps are local to localTimeZoneId, an offset is optional
func parseScheduleTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse(models.ScheduleTimeLayout, value)
}
