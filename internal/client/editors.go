package client

import (
	"context"

	"github.com/xuanlam2007/scholium/internal/model"
	"github.com/xuanlam2007/scholium/internal/timeslot"
)

// SlotAPI серверные операции над сеткой
type SlotAPI interface {
	GetSlots(ctx context.Context, scholiumID int64) ([]model.TimeSlot, error)
	EditSlot(ctx context.Context, scholiumID int64, index int, field timeslot.Field, value string) ([]model.TimeSlot, error)
	AddSlot(ctx context.Context, scholiumID int64) ([]model.TimeSlot, error)
	RemoveSlot(ctx context.Context, scholiumID int64, index int) ([]model.TimeSlot, error)
}

// SlotEditor редактор сетки: локальная проверка, оптимистичная
// правка, откат при отказе сервера
type SlotEditor struct {
	api        SlotAPI
	scholiumID int64
	slots      *Optimistic[[]model.TimeSlot]
}

func NewSlotEditor(api SlotAPI, scholiumID int64, initial []model.TimeSlot) *SlotEditor {
	return &SlotEditor{
		api:        api,
		scholiumID: scholiumID,
		slots:      NewOptimistic(timeslot.Clone(initial)),
	}
}

func (e *SlotEditor) Slots() []model.TimeSlot {
	return timeslot.Clone(e.slots.Value())
}

// Reload перечитывает сетку с сервера
func (e *SlotEditor) Reload(ctx context.Context) error {
	slots, err := e.api.GetSlots(ctx, e.scholiumID)
	if err != nil {
		return err
	}
	e.slots.Set(slots)
	return nil
}

// Edit меняет границу слота. Ошибка проверки возвращается без запроса.
func (e *SlotEditor) Edit(ctx context.Context, index int, field timeslot.Field, value string) error {
	local, err := timeslot.ApplyEdit(e.slots.Value(), index, field, value)
	if err != nil {
		return err
	}
	_, err = e.slots.Apply(ctx, local, func(ctx context.Context) ([]model.TimeSlot, error) {
		return e.api.EditSlot(ctx, e.scholiumID, index, field, value)
	})
	return err
}

// Add добавляет слот после последнего; при полной сетке ничего не делает
func (e *SlotEditor) Add(ctx context.Context) error {
	local, added, err := timeslot.Append(e.slots.Value())
	if err != nil || !added {
		return err
	}
	_, err = e.slots.Apply(ctx, local, func(ctx context.Context) ([]model.TimeSlot, error) {
		return e.api.AddSlot(ctx, e.scholiumID)
	})
	return err
}

func (e *SlotEditor) Remove(ctx context.Context, index int) error {
	local, err := timeslot.Remove(e.slots.Value(), index)
	if err != nil {
		return err
	}
	_, err = e.slots.Apply(ctx, local, func(ctx context.Context) ([]model.TimeSlot, error) {
		return e.api.RemoveSlot(ctx, e.scholiumID, index)
	})
	return err
}

// PermissionAPI серверные операции над правами участника
type PermissionAPI interface {
	UpdatePermissions(ctx context.Context, memberID int64, perms model.Permissions) error
	SetCohost(ctx context.Context, memberID int64, isCohost bool) error
}

// PermissionToggle переключатели прав одного участника
type PermissionToggle struct {
	api      PermissionAPI
	memberID int64
	role     *Optimistic[model.MemberRole]
}

func NewPermissionToggle(api PermissionAPI, member *model.Member) *PermissionToggle {
	return &PermissionToggle{
		api:      api,
		memberID: member.ID,
		role: NewOptimistic(model.MemberRole{
			IsHost:           member.IsHost,
			IsCohost:         member.IsCohost,
			CanAddHomework:   member.CanAddHomework,
			CanCreateSubject: member.CanCreateSubject,
		}),
	}
}

func (p *PermissionToggle) Role() model.MemberRole {
	return p.role.Value()
}

// Set принимает состояние участника после refresh
func (p *PermissionToggle) Set(member *model.Member) {
	p.role.Set(model.MemberRole{
		IsHost:           member.IsHost,
		IsCohost:         member.IsCohost,
		CanAddHomework:   member.CanAddHomework,
		CanCreateSubject: member.CanCreateSubject,
	})
}

func (p *PermissionToggle) ToggleAddHomework(ctx context.Context) error {
	next := p.role.Value()
	next.CanAddHomework = !next.CanAddHomework
	return p.updatePermissions(ctx, next)
}

func (p *PermissionToggle) ToggleCreateSubject(ctx context.Context) error {
	next := p.role.Value()
	next.CanCreateSubject = !next.CanCreateSubject
	return p.updatePermissions(ctx, next)
}

func (p *PermissionToggle) updatePermissions(ctx context.Context, next model.MemberRole) error {
	_, err := p.role.Apply(ctx, next, func(ctx context.Context) (model.MemberRole, error) {
		perms := model.Permissions{CanAddHomework: next.CanAddHomework, CanCreateSubject: next.CanCreateSubject}
		if err := p.api.UpdatePermissions(ctx, p.memberID, perms); err != nil {
			return model.MemberRole{}, err
		}
		return next, nil
	})
	return err
}

// ToggleCohost повышение даёт все права, понижение сохраняет текущие
func (p *PermissionToggle) ToggleCohost(ctx context.Context) error {
	next := p.role.Value()
	next.IsCohost = !next.IsCohost
	if next.IsCohost {
		next.CanAddHomework = model.AllPermissions.CanAddHomework
		next.CanCreateSubject = model.AllPermissions.CanCreateSubject
	}
	_, err := p.role.Apply(ctx, next, func(ctx context.Context) (model.MemberRole, error) {
		if err := p.api.SetCohost(ctx, p.memberID, next.IsCohost); err != nil {
			return model.MemberRole{}, err
		}
		return next, nil
	})
	return err
}
