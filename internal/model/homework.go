package model

import (
	"time"

	"github.com/google/uuid"
)

type HomeworkType string

const (
	HomeworkTypeHomework HomeworkType = "homework"
	HomeworkTypeTest     HomeworkType = "test"
	HomeworkTypeProject  HomeworkType = "project"
)

// Valid проверяет известен ли тип
func (t HomeworkType) Valid() bool {
	switch t {
	case HomeworkTypeHomework, HomeworkTypeTest, HomeworkTypeProject:
		return true
	}
	return false
}

type Homework struct {
	ID           int64        `json:"id"`
	ScholiumID   int64        `json:"scholium_id"`
	SubjectID    *int64       `json:"subject_id"` // может быть nil
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	DueDate      time.Time    `json:"due_date"`
	HomeworkType HomeworkType `json:"homework_type"`
	StartTime    *string      `json:"start_time"` // HH:MM
	EndTime      *string      `json:"end_time"`   // HH:MM
	CreatedBy    uuid.UUID    `json:"created_by"`
	CreatedAt    time.Time    `json:"created_at"`
	Completed    bool         `json:"completed"` // заполняется для конкретного пользователя
}
