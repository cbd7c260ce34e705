package delivery

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"taskflow-backend/internal/task/domain"
	"taskflow-backend/internal/task/repository"
	"taskflow-backend/internal/task/scheduler"
	"taskflow-backend/internal/task/usecase"

	"github.com/gin-gonic/gin"
)

// Reconciler runs one reconciliation pass on demand
type Reconciler interface {
	RunOnce(ctx context.Context) *scheduler.BatchReport
}

// TaskHandler handles work and task HTTP requests
type TaskHandler struct {
	works      usecase.WorkUsecase
	engine     usecase.SchedulingEngine
	dueDates   usecase.DueDateManager
	reconciler Reconciler
}

// NewTaskHandler creates a new TaskHandler. reconciler may be nil.
func NewTaskHandler(svc *usecase.Services, reconciler Reconciler) *TaskHandler {
	return &TaskHandler{
		works:      svc.Works,
		engine:     svc.Engine,
		dueDates:   svc.DueDates,
		reconciler: reconciler,
	}
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

type publishRequest struct {
	ScheduleFirst *bool `json:"schedule_first"`
}

type autoDueRequest struct {
	Start       *time.Time `json:"start"`
	SpacingDays int        `json:"spacing_days"`
}

type dueRequest struct {
	DueDate time.Time `json:"due_date" binding:"required"`
	Source  string    `json:"source"`
}

type snoozeRequest struct {
	Days int `json:"days"`
}

type bulkDueRequest struct {
	Dues map[string]time.Time `json:"dues" binding:"required"`
}

// CreateWork creates a draft work with its tasks
// POST /api/works
func (h *TaskHandler) CreateWork(c *gin.Context) {
	var req usecase.CreateWorkInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	work, err := h.works.CreateWork(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, work)
}

// ListWorks returns works, newest first
// GET /api/works?status=published
func (h *TaskHandler) ListWorks(c *gin.Context) {
	var status *string
	if s := c.Query("status"); s != "" {
		status = &s
	}

	works, err := h.works.ListWorks(c.Request.Context(), status)
	if err != nil {
		respondError(c, err)
		return
	}
	if works == nil {
		works = []*domain.Work{}
	}
	c.JSON(http.StatusOK, gin.H{"works": works, "total": len(works)})
}

// GetWork returns a work with its tasks in schedule order
// GET /api/works/:id
func (h *TaskHandler) GetWork(c *gin.Context) {
	work, err := h.works.GetWork(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, work)
}

// UpdateWorkStatus moves a work through its lifecycle
// PATCH /api/works/:id/status
func (h *TaskHandler) UpdateWorkStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	work, err := h.works.UpdateWorkStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, work)
}

// PublishWork publishes a work and schedules its first task
// POST /api/works/:id/publish
func (h *TaskHandler) PublishWork(c *gin.Context) {
	var req publishRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	scheduleFirst := req.ScheduleFirst == nil || *req.ScheduleFirst

	result, err := h.works.PublishWork(c.Request.Context(), c.Param("id"), scheduleFirst)
	if result == nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, result, err)
}

// AutoDueDates fills in missing due dates for a work's open tasks
// POST /api/works/:id/auto-due-dates
func (h *TaskHandler) AutoDueDates(c *gin.Context) {
	var req autoDueRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	result, err := h.dueDates.AutoAssign(c.Request.Context(), c.Param("id"), req.Start, req.SpacingDays)
	if err != nil {
		respondError(c, err)
		return
	}
	respondBulk(c, result)
}

// ConfirmSchedule applies user-confirmed due dates to a work's tasks
// PUT /api/works/:id/schedule
func (h *TaskHandler) ConfirmSchedule(c *gin.Context) {
	var req bulkDueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.dueDates.ConfirmSchedule(c.Request.Context(), c.Param("id"), req.Dues)
	if err != nil {
		respondError(c, err)
		return
	}
	respondBulk(c, result)
}

// DeleteWork deletes a work, its tasks and their mirrors
// DELETE /api/works/:id
func (h *TaskHandler) DeleteWork(c *gin.Context) {
	if err := h.works.DeleteWork(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Work deleted successfully"})
}

// CreateTask appends a task to a work
// POST /api/works/:id/tasks
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req usecase.CreateTaskInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.works.CreateTask(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// ListTasks returns tasks in schedule order
// GET /api/tasks?work_id=&status=&due_before=&due_after=&open=true&mirrored=true
func (h *TaskHandler) ListTasks(c *gin.Context) {
	filter, err := parseTaskFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tasks, err := h.works.ListTasks(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	if tasks == nil {
		tasks = []*domain.Task{}
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks, "total": len(tasks)})
}

func parseTaskFilter(c *gin.Context) (repository.TaskFilter, error) {
	filter := repository.TaskFilter{WorkID: c.Query("work_id"), Query: c.Query("q")}

	if s := c.Query("status"); s != "" {
		status := domain.ParseTaskStatus(s)
		filter.Status = &status
	}
	for key, dst := range map[string]**time.Time{"due_before": &filter.DueBefore, "due_after": &filter.DueAfter} {
		if v := c.Query(key); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return filter, fmt.Errorf("invalid %s: %v", key, err)
			}
			*dst = &t
		}
	}
	for key, dst := range map[string]*bool{"open": &filter.ExcludeCompleted, "mirrored": &filter.HasRemote} {
		if v := c.Query(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return filter, fmt.Errorf("invalid %s: %v", key, err)
			}
			*dst = b
		}
	}
	return filter, nil
}

// GetTask returns a specific task
// GET /api/tasks/:id
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, err := h.works.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// UpdateTaskStatus moves a task through its lifecycle
// PATCH /api/tasks/:id/status
func (h *TaskHandler) UpdateTaskStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.works.UpdateTaskStatus(c.Request.Context(), c.Param("id"), req.Status)
	if task == nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, task, err)
}

// SetDueDate changes a task's due date and pushes it to the mirror
// PUT /api/tasks/:id/due
func (h *TaskHandler) SetDueDate(c *gin.Context) {
	var req dueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	source, ok := domain.ParseDueSource(req.Source)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown source " + req.Source})
		return
	}
	// sync is reserved for changes pulled from the remote list
	if source == domain.SourceSync {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source sync cannot be set over the API"})
		return
	}

	ctx := c.Request.Context()
	id := c.Param("id")
	setErr := h.dueDates.SetDueDate(ctx, id, req.DueDate, source)
	if setErr != nil && !usecase.IsStale(setErr) {
		respondError(c, setErr)
		return
	}

	task, err := h.works.GetTask(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, task, setErr)
}

// SnoozeTask pushes a task's due date back by a number of days
// POST /api/tasks/:id/snooze
func (h *TaskHandler) SnoozeTask(c *gin.Context) {
	var req snoozeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	task, err := h.dueDates.Snooze(c.Request.Context(), c.Param("id"), req.Days)
	if task == nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, task, err)
}

// CompleteTask completes a task and advances its work
// POST /api/tasks/:id/complete
func (h *TaskHandler) CompleteTask(c *gin.Context) {
	result, err := h.engine.Complete(c.Request.Context(), c.Param("id"))
	if result == nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, result, err)
}

// ScheduleTask makes sure the task has a live mirror
// POST /api/tasks/:id/schedule
func (h *TaskHandler) ScheduleTask(c *gin.Context) {
	task, err := h.engine.EnsureScheduled(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// SyncTask pulls completion and due-date drift from the mirror
// POST /api/tasks/:id/sync
func (h *TaskHandler) SyncTask(c *gin.Context) {
	result, err := h.engine.SyncFromRemote(c.Request.Context(), c.Param("id"))
	if result == nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, result, err)
}

// DeleteTask deletes a task and its mirror
// DELETE /api/tasks/:id
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	if err := h.works.DeleteTask(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

// BulkSetDueDates sets several due dates at once; failures are reported per task
// POST /api/tasks/due/bulk
func (h *TaskHandler) BulkSetDueDates(c *gin.Context) {
	var req bulkDueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	respondBulk(c, h.dueDates.BulkSet(c.Request.Context(), req.Dues))
}

// Reconcile runs one reconciliation pass immediately
// POST /api/reconcile
func (h *TaskHandler) Reconcile(c *gin.Context) {
	if h.reconciler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "reconciliation is not configured"})
		return
	}

	report := h.reconciler.RunOnce(c.Request.Context())
	status := http.StatusOK
	if report.Skipped {
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"report": report, "failures": report.Failures()})
}
