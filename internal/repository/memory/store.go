// Package memory реализация хранилищ в памяти процесса, для STORE=memory и тестов.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xuanlam2007/scholium/internal/model"
	"github.com/xuanlam2007/scholium/internal/repository/base"
	"github.com/xuanlam2007/scholium/internal/service"
)

type completionKey struct {
	homeworkID int64
	userID     uuid.UUID
}

// Store общее состояние всех репозиториев с каскадным удалением.
// slotMu сериализует правки сетки со сменой ролей; порядок захвата slotMu, затем mu.
type Store struct {
	slotMu      sync.Mutex
	mu          sync.RWMutex
	nextID      int64
	scholiums   map[int64]*model.Scholium
	members     map[int64]*model.Member
	homework    map[int64]*model.Homework
	subjects    map[int64]*model.Subject
	completions map[completionKey]time.Time
}

// NewStore создаёт пустое хранилище
func NewStore() *Store {
	return &Store{
		scholiums:   make(map[int64]*model.Scholium),
		members:     make(map[int64]*model.Member),
		homework:    make(map[int64]*model.Homework),
		subjects:    make(map[int64]*model.Subject),
		completions: make(map[completionKey]time.Time),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) Scholiums() *ScholiumRepository { return &ScholiumRepository{s} }
func (s *Store) Members() *MemberRepository { return &MemberRepository{s} }
func (s *Store) Homework() *HomeworkRepository { return &HomeworkRepository{s} }
func (s *Store) Subjects() *SubjectRepository { return &SubjectRepository{s} }

func copyScholium(sc *model.Scholium) *model.Scholium {
	c := *sc
	c.TimeSlots = append([]byte(nil), sc.TimeSlots...)
	return &c
}

func copyMember(m *model.Member) *model.Member {
	c := *m
	return &c
}

// ============ Группы ============

type ScholiumRepository struct{ s *Store }

func (r *ScholiumRepository) CreateWithHost(_ context.Context, sc *model.Scholium, host *model.Member) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.scholiums {
		if existing.AccessIDDigest == sc.AccessIDDigest {
			return errDuplicateAccessID
		}
	}

	now := time.Now()
	sc.ID = r.s.id()
	sc.CreatedAt, sc.UpdatedAt = now, now
	r.s.scholiums[sc.ID] = copyScholium(sc)

	host.ID = r.s.id()
	host.ScholiumID = sc.ID
	host.JoinedAt = now
	r.s.members[host.ID] = copyMember(host)
	return nil
}

func (r *ScholiumRepository) GetByID(_ context.Context, id int64) (*model.Scholium, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if sc, ok := r.s.scholiums[id]; ok {
		return copyScholium(sc), nil
	}
	return nil, nil
}

func (r *ScholiumRepository) GetByAccessDigest(_ context.Context, digest string) (*model.Scholium, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, sc := range r.s.scholiums {
		if sc.AccessIDDigest == digest {
			return copyScholium(sc), nil
		}
	}
	return nil, nil
}

func (r *ScholiumRepository) ListByUser(_ context.Context, userID uuid.UUID) ([]*model.Scholium, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var result []*model.Scholium
	for _, m := range r.s.members {
		if m.UserID == userID {
			if sc, ok := r.s.scholiums[m.ScholiumID]; ok {
				result = append(result, copyScholium(sc))
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func (r *ScholiumRepository) Rename(_ context.Context, id int64, name string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sc, ok := r.s.scholiums[id]
	if !ok {
		return base.ErrNotFound
	}
	sc.Name = name
	sc.UpdatedAt = time.Now()
	return nil
}

func (r *ScholiumRepository) UpdateAccessID(_ context.Context, id int64, encrypted, digest string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sc, ok := r.s.scholiums[id]
	if !ok {
		return base.ErrNotFound
	}
	sc.EncryptedAccessID = encrypted
	sc.AccessIDDigest = digest
	sc.UpdatedAt = time.Now()
	return nil
}

func (r *ScholiumRepository) Delete(_ context.Context, id int64) (bool, error) {
	r.s.slotMu.Lock()
	defer r.s.slotMu.Unlock()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.scholiums[id]; !ok {
		return false, nil
	}
	delete(r.s.scholiums, id)

	for mid, m := range r.s.members {
		if m.ScholiumID == id {
			delete(r.s.members, mid)
		}
	}
	for hid, hw := range r.s.homework {
		if hw.ScholiumID == id {
			r.s.deleteHomeworkLocked(hid)
		}
	}
	for sid, sub := range r.s.subjects {
		if sub.ScholiumID == id {
			delete(r.s.subjects, sid)
		}
	}
	return true, nil
}

// UpdateTimeSlots выполняет fn под slotMu без mu, чтобы fn мог читать
// участников (проверка роли) через те же репозитории
func (r *ScholiumRepository) UpdateTimeSlots(_ context.Context, id int64, fn service.SlotMutator) error {
	r.s.slotMu.Lock()
	defer r.s.slotMu.Unlock()

	r.s.mu.RLock()
	sc, ok := r.s.scholiums[id]
	var current []byte
	if ok {
		current = append([]byte(nil), sc.TimeSlots...)
	}
	r.s.mu.RUnlock()
	if !ok {
		return base.ErrNotFound
	}

	next, err := fn(current)
	if err != nil {
		return err
	}
	if next == nil {
		return nil
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sc, ok = r.s.scholiums[id]
	if !ok {
		return base.ErrNotFound
	}
	sc.TimeSlots = append([]byte(nil), next...)
	sc.UpdatedAt = time.Now()
	return nil
}

// ============ Участники ============

type MemberRepository struct{ s *Store }

func (r *MemberRepository) Get(_ context.Context, scholiumID int64, userID uuid.UUID) (*model.Member, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, m := range r.s.members {
		if m.ScholiumID == scholiumID && m.UserID == userID {
			return copyMember(m), nil
		}
	}
	return nil, nil
}

func (r *MemberRepository) GetByID(_ context.Context, memberID int64) (*model.Member, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if m, ok := r.s.members[memberID]; ok {
		return copyMember(m), nil
	}
	return nil, nil
}

func (r *MemberRepository) ListByScholium(_ context.Context, scholiumID int64) ([]*model.Member, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var result []*model.Member
	for _, m := range r.s.members {
		if m.ScholiumID == scholiumID {
			result = append(result, copyMember(m))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].IsHost != result[j].IsHost {
			return result[i].IsHost
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *MemberRepository) Add(_ context.Context, m *model.Member) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.scholiums[m.ScholiumID]; !ok {
		return false, base.ErrNotFound
	}
	for _, existing := range r.s.members {
		if existing.ScholiumID == m.ScholiumID && existing.UserID == m.UserID {
			return false, nil
		}
	}
	m.ID = r.s.id()
	m.JoinedAt = time.Now()
	r.s.members[m.ID] = copyMember(m)
	return true, nil
}

func (r *MemberRepository) Delete(_ context.Context, memberID int64) (bool, error) {
	r.s.slotMu.Lock()
	defer r.s.slotMu.Unlock()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.members[memberID]; !ok {
		return false, nil
	}
	delete(r.s.members, memberID)
	return true, nil
}

func (r *MemberRepository) UpdatePermissions(_ context.Context, memberID int64, perms model.Permissions) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.members[memberID]
	if !ok || m.IsHost {
		return base.ErrNotFound
	}
	m.CanAddHomework = perms.CanAddHomework
	m.CanCreateSubject = perms.CanCreateSubject
	return nil
}

func (r *MemberRepository) SetCohost(_ context.Context, memberID int64, isCohost bool, perms model.Permissions) error {
	r.s.slotMu.Lock()
	defer r.s.slotMu.Unlock()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.members[memberID]
	if !ok || m.IsHost {
		return base.ErrNotFound
	}
	m.IsCohost = isCohost
	m.CanAddHomework = perms.CanAddHomework
	m.CanCreateSubject = perms.CanCreateSubject
	return nil
}

func (r *MemberRepository) TransferHost(_ context.Context, scholiumID, fromMemberID, toMemberID int64, newHost uuid.UUID) error {
	r.s.slotMu.Lock()
	defer r.s.slotMu.Unlock()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	from, ok := r.s.members[fromMemberID]
	if !ok || from.ScholiumID != scholiumID || !from.IsHost {
		return base.ErrNotFound
	}
	to, ok := r.s.members[toMemberID]
	if !ok || to.ScholiumID != scholiumID {
		return base.ErrNotFound
	}
	sc, ok := r.s.scholiums[scholiumID]
	if !ok {
		return base.ErrNotFound
	}

	from.IsHost, from.IsCohost = false, false
	to.IsHost, to.IsCohost = true, false
	to.CanAddHomework, to.CanCreateSubject = true, true
	sc.HostUserID = newHost
	sc.UpdatedAt = time.Now()
	return nil
}

// ============ Задания ============

type HomeworkRepository struct{ s *Store }

func copyHomework(hw *model.Homework) *model.Homework {
	c := *hw
	return &c
}

func (s *Store) deleteHomeworkLocked(id int64) {
	delete(s.homework, id)
	for key := range s.completions {
		if key.homeworkID == id {
			delete(s.completions, key)
		}
	}
}

func (r *HomeworkRepository) Create(_ context.Context, hw *model.Homework) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.scholiums[hw.ScholiumID]; !ok {
		return base.ErrNotFound
	}
	hw.ID = r.s.id()
	hw.CreatedAt = time.Now()
	r.s.homework[hw.ID] = copyHomework(hw)
	return nil
}

func (r *HomeworkRepository) GetByID(_ context.Context, id int64) (*model.Homework, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if hw, ok := r.s.homework[id]; ok {
		return copyHomework(hw), nil
	}
	return nil, nil
}

func (r *HomeworkRepository) ListByScholium(_ context.Context, scholiumID int64, userID uuid.UUID) ([]*model.Homework, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var result []*model.Homework
	for _, hw := range r.s.homework {
		if hw.ScholiumID != scholiumID {
			continue
		}
		c := copyHomework(hw)
		_, c.Completed = r.s.completions[completionKey{hw.ID, userID}]
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].DueDate.Equal(result[j].DueDate) {
			return result[i].DueDate.Before(result[j].DueDate)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *HomeworkRepository) Update(_ context.Context, hw *model.Homework) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.homework[hw.ID]
	if !ok {
		return base.ErrNotFound
	}
	updated := copyHomework(hw)
	updated.ScholiumID = existing.ScholiumID
	updated.CreatedBy = existing.CreatedBy
	updated.CreatedAt = existing.CreatedAt
	updated.Completed = false
	r.s.homework[hw.ID] = updated
	return nil
}

func (r *HomeworkRepository) Delete(_ context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.homework[id]; !ok {
		return false, nil
	}
	r.s.deleteHomeworkLocked(id)
	return true, nil
}

func (r *HomeworkRepository) ToggleCompletion(_ context.Context, homeworkID int64, userID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.homework[homeworkID]; !ok {
		return false, base.ErrNotFound
	}
	key := completionKey{homeworkID, userID}
	if _, done := r.s.completions[key]; done {
		delete(r.s.completions, key)
		return false, nil
	}
	r.s.completions[key] = time.Now()
	return true, nil
}

// ============ Предметы ============

type SubjectRepository struct{ s *Store }

func (r *SubjectRepository) Create(_ context.Context, subject *model.Subject) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.scholiums[subject.ScholiumID]; !ok {
		return base.ErrNotFound
	}
	subject.ID = r.s.id()
	subject.CreatedAt = time.Now()
	c := *subject
	r.s.subjects[subject.ID] = &c
	return nil
}

func (r *SubjectRepository) GetByID(_ context.Context, id int64) (*model.Subject, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if sub, ok := r.s.subjects[id]; ok {
		c := *sub
		return &c, nil
	}
	return nil, nil
}

func (r *SubjectRepository) ListByScholium(_ context.Context, scholiumID int64) ([]*model.Subject, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var result []*model.Subject
	for _, sub := range r.s.subjects {
		if sub.ScholiumID == scholiumID {
			c := *sub
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *SubjectRepository) Update(_ context.Context, subject *model.Subject) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.subjects[subject.ID]
	if !ok {
		return base.ErrNotFound
	}
	existing.Name = subject.Name
	existing.Color = subject.Color
	return nil
}

func (r *SubjectRepository) Delete(_ context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.subjects[id]; !ok {
		return false, nil
	}
	delete(r.s.subjects, id)
	for _, hw := range r.s.homework {
		if hw.SubjectID != nil && *hw.SubjectID == id {
			hw.SubjectID = nil
		}
	}
	return true, nil
}

var (
	_ service.ScholiumRepository = (*ScholiumRepository)(nil)
	_ service.MemberRepository   = (*MemberRepository)(nil)
	_ service.HomeworkRepository = (*HomeworkRepository)(nil)
	_ service.SubjectRepository  = (*SubjectRepository)(nil)
)
