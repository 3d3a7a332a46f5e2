package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/agrox-fyp/agrox-api/apperrors"
	"github.com/agrox-fyp/agrox-api/models"
	"gorm.io/gorm"
)

// ReminderService manages crop-care schedules and the daily reminder emails
type ReminderService struct {
	db   *gorm.DB
	mail MailService
}

// NewReminderService creates a reminder service
func NewReminderService(db *gorm.DB, mail MailService) *ReminderService {
	return &ReminderService{db: db, mail: mail}
}

// ReminderView is a reminder with its task states as returned to clients
type ReminderView struct {
	ID           uint                                 `json:"id"`
	CropName     string                               `json:"crop_name"`
	FieldName    string                               `json:"field_name"`
	PlantingDate string                               `json:"planting_date"`
	Tasks        map[models.TaskType]models.TaskState `json:"tasks"`
	CropStatus   string                               `json:"crop_status"`
	CreatedAt    time.Time                            `json:"created_at"`
}

// BatchResult summarises one run of the daily reminder job
type BatchResult struct {
	Day        string `json:"day"`
	Recipients int    `json:"recipients"`
	Sent       int    `json:"sent"`
	Failed     int    `json:"failed"`
}

func toReminderView(r *models.CropReminder) ReminderView {
	tasks := make(map[models.TaskType]models.TaskState, len(models.TaskSchedule))
	for _, entry := range models.TaskSchedule {
		tasks[entry.Task] = r.Task(entry.Task)
	}
	status := "pending"
	if r.Completed() {
		status = "completed"
	}
	return ReminderView{
		ID:           r.ID,
		CropName:     r.CropName,
		FieldName:    r.FieldName,
		PlantingDate: r.PlantingDate,
		Tasks:        tasks,
		CropStatus:   status,
		CreatedAt:    r.CreatedAt,
	}
}

// Create stores a reminder whose task dates are derived from plantingDate (YYYY-MM-DD)
func (s *ReminderService) Create(ctx context.Context, userID uint, cropName, fieldName, plantingDate string) (*ReminderView, error) {
	planted, err := time.Parse(models.DateLayout, plantingDate)
	if err != nil {
		return nil, apperrors.Validation("planting_date must be a date in YYYY-MM-DD format")
	}

	reminder := models.NewCropReminder(userID, strings.TrimSpace(cropName), strings.TrimSpace(fieldName), planted)
	if err := s.db.WithContext(ctx).Create(reminder).Error; err != nil {
		return nil, apperrors.Internal("Failed to create reminder", err)
	}
	view := toReminderView(reminder)
	return &view, nil
}

// List returns the user's reminders, newest first
func (s *ReminderService) List(ctx context.Context, userID uint) ([]ReminderView, error) {
	var reminders []models.CropReminder
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Find(&reminders).Error; err != nil {
		return nil, apperrors.Internal("Failed to load reminders", err)
	}

	views := make([]ReminderView, 0, len(reminders))
	for i := range reminders {
		views = append(views, toReminderView(&reminders[i]))
	}
	return views, nil
}

// MarkTaskDone flags one task of the user's reminder as done
func (s *ReminderService) MarkTaskDone(ctx context.Context, userID, reminderID uint, taskName string) error {
	task, err := models.ParseTaskType(taskName)
	if err != nil {
		return apperrors.Validation("task_type must be one of: land_preparation, seed_sowing, first_irrigation, second_irrigation, urea_dose")
	}
	_, doneColumn := task.Columns()

	res := s.db.WithContext(ctx).Model(&models.CropReminder{}).
		Where("id = ? AND user_id = ?", reminderID, userID).
		Update(doneColumn, true)
	if res.Error != nil {
		return apperrors.Internal("Failed to update reminder", res.Error)
	}
	if res.RowsAffected == 0 {
		// The row may already be done; distinguish that from a missing reminder
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.CropReminder{}).
			Where("id = ? AND user_id = ?", reminderID, userID).Count(&count).Error; err != nil {
			return apperrors.Internal("Failed to load reminder", err)
		}
		if count == 0 {
			return apperrors.NotFound("Reminder")
		}
	}
	return nil
}

type dueTask struct {
	ReminderID uint
	CropName   string
	FieldName  string
	Email      string
	FullName   string
}

type recipientTasks struct {
	name  string
	lines []string
}

func (s *ReminderService) dueTasks(ctx context.Context, task models.TaskType, day string) ([]dueTask, error) {
	dateColumn, doneColumn := task.Columns()

	var rows []dueTask
	err := s.db.WithContext(ctx).Table("crop_reminders").
		Select("crop_reminders.id AS reminder_id, crop_reminders.crop_name, crop_reminders.field_name, users.email, users.full_name").
		Joins("JOIN users ON users.id = crop_reminders.user_id AND users.deleted_at IS NULL").
		Where("crop_reminders."+dateColumn+" = ?", day).
		Where("crop_reminders."+doneColumn+" = ?", false).
		Where("users.email <> ''").
		Order("crop_reminders.id").
		Scan(&rows).Error
	return rows, err
}

// SendDailyReminders emails every user with a task due on day. A failed
// recipient is logged and counted and does not stop the batch.
func (s *ReminderService) SendDailyReminders(ctx context.Context, day time.Time) (*BatchResult, error) {
	dayStr := day.Format(models.DateLayout)
	byEmail := make(map[string]*recipientTasks)

	for _, entry := range models.TaskSchedule {
		rows, err := s.dueTasks(ctx, entry.Task, dayStr)
		if err != nil {
			return nil, apperrors.Internal("Failed to load due reminders", err)
		}
		for _, row := range rows {
			rt, ok := byEmail[row.Email]
			if !ok {
				rt = &recipientTasks{name: row.FullName}
				byEmail[row.Email] = rt
			}
			line := fmt.Sprintf("- %s for %s", entry.Label, row.CropName)
			if row.FieldName != "" {
				line += fmt.Sprintf(" (%s)", row.FieldName)
			}
			rt.lines = append(rt.lines, line)
		}
	}

	emails := make([]string, 0, len(byEmail))
	for email := range byEmail {
		emails = append(emails, email)
	}
	sort.Strings(emails)

	result := &BatchResult{Day: dayStr, Recipients: len(emails)}
	for _, email := range emails {
		if err := ctx.Err(); err != nil {
			return result, apperrors.FromError(err)
		}
		rt := byEmail[email]
		msg := Email{
			To:      email,
			Subject: fmt.Sprintf("AgroX crop reminders for %s", dayStr),
			Text: fmt.Sprintf("Hello %s,\n\nThese crop-care tasks are due today:\n%s\n\nMark them done in the AgroX app once finished.",
				rt.name, strings.Join(rt.lines, "\n")),
		}
		if err := s.mail.Send(ctx, msg); err != nil {
			log.Printf("reminders: send to %s failed: %v", email, err)
			result.Failed++
			continue
		}
		result.Sent++
	}

	log.Printf("reminders: %s recipients=%d sent=%d failed=%d", dayStr, result.Recipients, result.Sent, result.Failed)
	return result, nil
}
