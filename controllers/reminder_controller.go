package controllers

import (
	"net/http"
	"time"

	"github.com/agrox-fyp/agrox-api/apperrors"
	"github.com/agrox-fyp/agrox-api/config"
	"github.com/agrox-fyp/agrox-api/services"
	"github.com/agrox-fyp/agrox-api/utils"
	"github.com/gin-gonic/gin"
)

// CreateReminderRequest represents the request body for tracking a planted crop
type CreateReminderRequest struct {
	CropName     string `json:"crop_name" binding:"required,max=100"`
	PlantingDate string `json:"planting_date" binding:"required"`
	FieldName    string `json:"field_name" binding:"required,max=100"`
}

// MarkTaskDoneRequest represents the request body for completing a crop task
type MarkTaskDoneRequest struct {
	ReminderID uint   `json:"reminder_id" binding:"required,gt=0"`
	TaskType   string `json:"task_type" binding:"required"`
}

func reminderService() *services.ReminderService {
	return services.NewReminderService(config.GetDB(), services.GetMailService())
}

// CreateReminder handles POST /api/v1/reminders
func CreateReminder(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req CreateReminderRequest
	if !bindJSON(c, &req) {
		return
	}

	reminder, err := reminderService().Create(c.Request.Context(), userID, req.CropName, req.FieldName, req.PlantingDate)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Reminder created successfully",
		"data":    reminder,
	})
}

// ListReminders handles GET /api/v1/reminders
func ListReminders(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	reminders, err := reminderService().List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    reminders,
	})
}

// MarkReminderTaskDone handles POST /api/v1/reminders/mark-task-done
func MarkReminderTaskDone(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req MarkTaskDoneRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := reminderService().MarkTaskDone(c.Request.Context(), userID, req.ReminderID, req.TaskType); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Task marked as done",
	})
}

// TriggerReminders handles POST /api/v1/reminders/trigger - runs today's batch.
// When REMINDER_JOB_KEY is set the caller must present it in X-Job-Key.
func TriggerReminders(c *gin.Context) {
	if key := config.GetConfig().ReminderJobKey; key != "" {
		if !utils.EqualConstantTime(c.GetHeader("X-Job-Key"), key) {
			respondError(c, apperrors.Unauthorized("Invalid job key"))
			return
		}
	}

	result, err := reminderService().SendDailyReminders(c.Request.Context(), time.Now())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}
