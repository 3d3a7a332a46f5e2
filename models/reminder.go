package models

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date format used for reminder and rental dates
const DateLayout = "2006-01-02"

// TaskType is one of the five crop-care steps tracked by a reminder
type TaskType string

const (
	TaskLandPreparation  TaskType = "land_preparation"
	TaskSeedSowing       TaskType = "seed_sowing"
	TaskFirstIrrigation  TaskType = "first_irrigation"
	TaskSecondIrrigation TaskType = "second_irrigation"
	TaskUreaDose         TaskType = "urea_dose"
)

// TaskSchedule lists the tasks in order with their offset in days from planting
var TaskSchedule = []struct {
	Task   TaskType
	Offset int
	Label  string
}{
	{TaskLandPreparation, 0, "Land preparation"},
	{TaskSeedSowing, 14, "Seed sowing"},
	{TaskFirstIrrigation, 20, "First irrigation"},
	{TaskSecondIrrigation, 28, "Second irrigation"},
	{TaskUreaDose, 35, "Urea dose"},
}

// ParseTaskType converts a client supplied task name into a TaskType
func ParseTaskType(s string) (TaskType, error) {
	for _, entry := range TaskSchedule {
		if string(entry.Task) == s {
			return entry.Task, nil
		}
	}
	return "", fmt.Errorf("unknown task type %q", s)
}

// Columns returns the date and done columns backing the task
func (t TaskType) Columns() (dateColumn, doneColumn string) {
	switch t {
	case TaskLandPreparation:
		return "land_preparation_date", "land_preparation_done"
	case TaskSeedSowing:
		return "seed_sowing_date", "seed_sowing_done"
	case TaskFirstIrrigation:
		return "first_irrigation_date", "first_irrigation_done"
	case TaskSecondIrrigation:
		return "second_irrigation_date", "second_irrigation_done"
	case TaskUreaDose:
		return "urea_dose_date", "urea_dose_done"
	}
	panic(fmt.Sprintf("models: unhandled task type %q", t))
}

// CropReminder tracks the care schedule of one planted field
type CropReminder struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	UserID               uint      `gorm:"not null;index" json:"user_id"`
	CropName             string    `gorm:"size:100;not null" json:"crop_name"`
	FieldName            string    `gorm:"size:100" json:"field_name"`
	PlantingDate         string    `gorm:"size:10;not null" json:"planting_date"`
	LandPreparationDate  string    `gorm:"size:10;not null;index" json:"-"`
	LandPreparationDone  bool      `gorm:"not null;default:false" json:"-"`
	SeedSowingDate       string    `gorm:"size:10;not null;index" json:"-"`
	SeedSowingDone       bool      `gorm:"not null;default:false" json:"-"`
	FirstIrrigationDate  string    `gorm:"size:10;not null;index" json:"-"`
	FirstIrrigationDone  bool      `gorm:"not null;default:false" json:"-"`
	SecondIrrigationDate string    `gorm:"size:10;not null;index" json:"-"`
	SecondIrrigationDone bool      `gorm:"not null;default:false" json:"-"`
	UreaDoseDate         string    `gorm:"size:10;not null;index" json:"-"`
	UreaDoseDone         bool      `gorm:"not null;default:false" json:"-"`
	CreatedAt            time.Time `json:"created_at"`
}

func (CropReminder) TableName() string {
	return "crop_reminders"
}

// NewCropReminder computes every task date from the planting date
func NewCropReminder(userID uint, cropName, fieldName string, planted time.Time) *CropReminder {
	date := func(offset int) string {
		return planted.AddDate(0, 0, offset).Format(DateLayout)
	}
	return &CropReminder{
		UserID:               userID,
		CropName:             cropName,
		FieldName:            fieldName,
		PlantingDate:         planted.Format(DateLayout),
		LandPreparationDate:  date(0),
		SeedSowingDate:       date(14),
		FirstIrrigationDate:  date(20),
		SecondIrrigationDate: date(28),
		UreaDoseDate:         date(35),
	}
}

// TaskState is the date and completion of a single task
type TaskState struct {
	Date string `json:"date"`
	Done bool   `json:"done"`
}

// Task returns the state of the given task
func (r *CropReminder) Task(t TaskType) TaskState {
	switch t {
	case TaskLandPreparation:
		return TaskState{r.LandPreparationDate, r.LandPreparationDone}
	case TaskSeedSowing:
		return TaskState{r.SeedSowingDate, r.SeedSowingDone}
	case TaskFirstIrrigation:
		return TaskState{r.FirstIrrigationDate, r.FirstIrrigationDone}
	case TaskSecondIrrigation:
		return TaskState{r.SecondIrrigationDate, r.SecondIrrigationDone}
	case TaskUreaDose:
		return TaskState{r.UreaDoseDate, r.UreaDoseDone}
	}
	return TaskState{}
}

// Completed is true once all five tasks are done
func (r *CropReminder) Completed() bool {
	for _, entry := range TaskSchedule {
		if !r.Task(entry.Task).Done {
			return false
		}
	}
	return true
}
