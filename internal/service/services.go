package service

import (
	"go.uber.org/zap"

	"github.com/xuanlam2007/scholium/internal/access"
	"github.com/xuanlam2007/scholium/internal/notifier"
)

// Repositories хранилища, из которых собираются сервисы
type Repositories struct {
	Scholiums ScholiumRepository
	Members   MemberRepository
	Homework  HomeworkRepository
	Subjects  SubjectRepository
}

// Services все сервисы приложения над одним набором хранилищ
type Services struct {
	Scholiums *ScholiumService
	Members   *MemberService
	TimeSlots *TimeSlotService
	Homework  *HomeworkService
	Subjects  *SubjectService
}

// NewServices собирает сервисы с общим Resolver
func NewServices(repos Repositories, cipher *AccessIDCipher, n notifier.Notifier, logger *zap.Logger) *Services {
	resolver := access.NewResolver(repos.Members)
	return &Services{
		Scholiums: NewScholiumService(repos.Scholiums, repos.Members, resolver, cipher, n, logger),
		Members:   NewMemberService(repos.Members, resolver, n, logger),
		TimeSlots: NewTimeSlotService(repos.Scholiums, resolver, n, logger),
		Homework:  NewHomeworkService(repos.Homework, repos.Subjects, resolver, n, logger),
		Subjects:  NewSubjectService(repos.Subjects, resolver, n, logger),
	}
}
