package main

import (
	"fmt"
	"os"
	"time"

	"github.com/xuanlam2007/scholium/internal/controller/common"
	"github.com/xuanlam2007/scholium/internal/model"
	"github.com/xuanlam2007/scholium/internal/timeslot"
)

func main() {
	now := time.Now()
	monday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for monday.Weekday() != time.Monday {
		monday = monday.AddDate(0, 0, -1)
	}

	mathID, physicsID := int64(1), int64(2)
	subjects := []*model.Subject{
		{ID: mathID, Name: "Math", Color: "#3b82f6"},
		{ID: physicsID, Name: "Physics", Color: "#f59e0b"},
	}

	// Тестовые задания на разные дни и слоты сетки по умолчанию
	homework := []*model.Homework{
		{ID: 1, SubjectID: &mathID, Title: "Algebra worksheet", DueDate: monday,
			HomeworkType: model.HomeworkTypeHomework, StartTime: strPtr("07:00")},
		{ID: 2, SubjectID: &physicsID, Title: "Kinematics quiz", DueDate: monday.AddDate(0, 0, 1),
			HomeworkType: model.HomeworkTypeTest, StartTime: strPtr("09:35")},
		{ID: 3, SubjectID: &mathID, Title: "Geometry project", DueDate: monday.AddDate(0, 0, 3),
			HomeworkType: model.HomeworkTypeProject, Completed: true},
		{ID: 4, Title: "Reading", DueDate: monday.AddDate(0, 0, 4),
			HomeworkType: model.HomeworkTypeHomework, StartTime: strPtr("13:00")},
	}

	imageData, err := common.GenerateTimetableImage(common.Timetable{
		Title:    "Demo scholium",
		Week:     monday,
		Slots:    timeslot.Defaults(),
		Homework: homework,
		Subjects: subjects,
	})
	if err != nil {
		fmt.Printf("Ошибка генерации изображения: %v\n", err)
		os.Exit(1)
	}

	filename := "timetable.png"
	if len(os.Args) > 1 {
		filename = os.Args[1]
	}
	if err := os.WriteFile(filename, imageData, 0644); err != nil {
		fmt.Printf("Ошибка сохранения файла: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Изображение сохранено в %s\n", filename)
	fmt.Printf("Неделя: %s - %s\n", monday.Format("02.01.2006"), monday.AddDate(0, 0, 6).Format("02.01.2006"))
	fmt.Printf("Заданий: %d\n", len(homework))
}

func strPtr(s string) *string {
	return &s
}
