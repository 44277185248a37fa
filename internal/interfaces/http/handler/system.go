package handler

import (
	"runtime"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taic/backend/internal/infrastructure/scheduler"
)

// SystemHandler serves service metadata and the maintenance job history.
type SystemHandler struct {
	BaseHandler
	startTime time.Time
	// jobScheduler is nil when background jobs are disabled.
	jobScheduler *scheduler.Scheduler
}

func NewSystemHandler(jobScheduler *scheduler.Scheduler) *SystemHandler {
	return &SystemHandler{startTime: time.Now(), jobScheduler: jobScheduler}
}

// SystemInfoResponse describes the running service.
type SystemInfoResponse struct {
	Name      string `json:"name" example:"TAIC Marketplace API"`
	Version   string `json:"version" example:"1.0.0"`
	GoVersion string `json:"go_version" example:"go1.25.5"`
	Uptime    string `json:"uptime" example:"1h30m45s"`
}

// GetSystemInfo godoc
// @ID           getSystemInfo
// @Summary      Get system information
// @Description  Returns the service name, version and uptime
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=SystemInfoResponse}
// @Router       /system/info [get]
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	h.Success(c, SystemInfoResponse{
		Name:      "TAIC Marketplace API",
		Version:   "1.0.0",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}

// PingResponse is the liveness probe payload.
type PingResponse struct {
	Message   string `json:"message" example:"pong"`
	Timestamp string `json:"timestamp" example:"2026-01-23T12:00:00Z"`
}

// Ping godoc
// @ID           pingSystem
// @Summary      Ping the API
// @Description  Liveness check
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=PingResponse}
// @Router       /system/ping [get]
func (h *SystemHandler) Ping(c *gin.Context) {
	h.Success(c, PingResponse{
		Message:   "pong",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// MaintenanceJobResponse is one entry of the background job history.
type MaintenanceJobResponse struct {
	ID          string     `json:"id"`
	Type        string     `json:"type" example:"PAYOUT_SWEEP"`
	Status      string     `json:"status" example:"SUCCESS"`
	Summary     string     `json:"summary,omitempty" example:"due=3 sent=3 retried=0 failed=0"`
	Error       string     `json:"error,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	RetryCount  int        `json:"retry_count"`
}

// MaintenanceJobsResponse holds the job history page.
type MaintenanceJobsResponse struct {
	SchedulerEnabled bool                     `json:"scheduler_enabled"`
	Jobs             []MaintenanceJobResponse `json:"jobs"`
}

// ListMaintenanceJobs godoc
// @ID           listMaintenanceJobs
// @Summary      List recent maintenance job runs
// @Description  Returns the in-memory history of background job runs (payout sweeps, reservation expiry, webhook cleanup), newest first
// @Tags         system
// @Produce      json
// @Param        type query string false "Filter by job type" Enums(PAYOUT_SWEEP, RESERVATION_EXPIRY, WEBHOOK_CLEANUP)
// @Param        limit query int false "Max entries to return" default(20)
// @Success      200 {object} dto.Response{data=MaintenanceJobsResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/system/jobs [get]
func (h *SystemHandler) ListMaintenanceJobs(c *gin.Context) {
	if h.jobScheduler == nil {
		h.Success(c, MaintenanceJobsResponse{SchedulerEnabled: false, Jobs: []MaintenanceJobResponse{}})
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 200 {
			h.BadRequest(c, "limit must be an integer between 1 and 200")
			return
		}
		limit = n
	}

	var jobs []*scheduler.Job
	if raw := c.Query("type"); raw != "" {
		jobType, ok := parseJobType(raw)
		if !ok {
			h.BadRequest(c, "Unknown job type: "+raw)
			return
		}
		jobs = h.jobScheduler.GetJobHistoryByType(jobType, limit)
	} else {
		jobs = h.jobScheduler.GetJobHistory(limit)
	}

	out := make([]MaintenanceJobResponse, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, MaintenanceJobResponse{
			ID:          job.ID.String(),
			Type:        string(job.Type),
			Status:      string(job.Status),
			Summary:     job.Summary,
			Error:       job.Error,
			StartedAt:   job.StartedAt,
			CompletedAt: job.CompletedAt,
			RetryCount:  job.RetryCount,
		})
	}
	h.Success(c, MaintenanceJobsResponse{SchedulerEnabled: true, Jobs: out})
}

func parseJobType(raw string) (scheduler.JobType, bool) {
	for _, t := range scheduler.AllJobTypes() {
		if string(t) == raw {
			return t, true
		}
	}
	return "", false
}
