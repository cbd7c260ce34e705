package delivery

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts work, task and reconcile routes on rg
func (h *TaskHandler) RegisterRoutes(rg *gin.RouterGroup) {
	works := rg.Group("/works")
	{
		works.POST("", h.CreateWork)
		works.GET("", h.ListWorks)
		works.GET("/:id", h.GetWork)
		works.PATCH("/:id/status", h.UpdateWorkStatus)
		works.POST("/:id/publish", h.PublishWork)
		works.POST("/:id/auto-due-dates", h.AutoDueDates)
		works.PUT("/:id/schedule", h.ConfirmSchedule)
		works.DELETE("/:id", h.DeleteWork)
		works.POST("/:id/tasks", h.CreateTask)
	}

	tasks := rg.Group("/tasks")
	{
		tasks.GET("", h.ListTasks)
		tasks.POST("/due/bulk", h.BulkSetDueDates)
		tasks.GET("/:id", h.GetTask)
		tasks.PATCH("/:id/status", h.UpdateTaskStatus)
		tasks.PUT("/:id/due", h.SetDueDate)
		tasks.POST("/:id/snooze", h.SnoozeTask)
		tasks.POST("/:id/complete", h.CompleteTask)
		tasks.POST("/:id/schedule", h.ScheduleTask)
		tasks.POST("/:id/sync", h.SyncTask)
		tasks.DELETE("/:id", h.DeleteTask)
	}

	rg.POST("/reconcile", h.Reconcile)
}
