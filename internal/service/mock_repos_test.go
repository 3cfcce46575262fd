package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"shotflow/backend/internal/model"
	"shotflow/backend/internal/repository"
	pkgerrors "shotflow/backend/pkg/errors"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User // key: user_id
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		user.UserID = "user-" + user.EmployeeID
	}
	if user.Version == 0 {
		user.Version = 1
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmployeeID(_ context.Context, employeeID string) (*model.User, error) {
	for _, u := range m.users {
		if u.EmployeeID == employeeID {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	if _, ok := m.users[user.UserID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) List(_ context.Context, filter repository.UserListFilter) ([]model.User, int64, error) {
	var all []model.User
	for _, u := range m.users {
		if filter.DepartmentID != "" && u.DepartmentID != filter.DepartmentID {
			continue
		}
		if filter.Seniority != "" && u.Seniority != filter.Seniority {
			continue
		}
		if filter.ActiveOnly && !u.IsActive {
			continue
		}
		if filter.Keyword != "" &&
			!strings.Contains(u.Name, filter.Keyword) &&
			!strings.Contains(u.EmployeeID, filter.Keyword) {
			continue
		}
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].EmployeeID < all[j].EmployeeID })
	return paginate(all, filter.Offset, filter.Limit), int64(len(all)), nil
}

func (m *mockUserRepo) CountByDepartment(_ context.Context, departmentID string) (int64, error) {
	var n int64
	for _, u := range m.users {
		if u.DepartmentID == departmentID {
			n++
		}
	}
	return n, nil
}

// ── Mock DepartmentRepository ──

type mockDeptRepo struct {
	departments map[string]*model.Department
}

func newMockDeptRepo() *mockDeptRepo {
	return &mockDeptRepo{departments: make(map[string]*model.Department)}
}

func (m *mockDeptRepo) Create(_ context.Context, dept *model.Department) error {
	if dept.DepartmentID == "" {
		dept.DepartmentID = "dept-" + dept.Name
	}
	m.departments[dept.DepartmentID] = dept
	return nil
}

func (m *mockDeptRepo) GetByID(_ context.Context, id string) (*model.Department, error) {
	if d, ok := m.departments[id]; ok {
		return d, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDeptRepo) GetByName(_ context.Context, name string) (*model.Department, error) {
	for _, d := range m.departments {
		if d.Name == name {
			return d, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDeptRepo) List(_ context.Context) ([]model.Department, error) {
	var out []model.Department
	for _, d := range m.departments {
		if d.IsActive {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *mockDeptRepo) ListAll(_ context.Context) ([]model.Department, error) {
	var out []model.Department
	for _, d := range m.departments {
		out = append(out, *d)
	}
	return out, nil
}

func (m *mockDeptRepo) Update(_ context.Context, dept *model.Department) error {
	m.departments[dept.DepartmentID] = dept
	return nil
}

// ── Mock ShowRepository / ShotRepository ──

type mockShowRepo struct {
	shows map[string]*model.Show
}

func newMockShowRepo() *mockShowRepo {
	return &mockShowRepo{shows: make(map[string]*model.Show)}
}

func (m *mockShowRepo) Create(_ context.Context, show *model.Show) error {
	if show.ShowID == "" {
		show.ShowID = "show-" + show.Code
	}
	m.shows[show.ShowID] = show
	return nil
}

func (m *mockShowRepo) GetByID(_ context.Context, id string) (*model.Show, error) {
	if s, ok := m.shows[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockShowRepo) GetByCode(_ context.Context, code string) (*model.Show, error) {
	for _, s := range m.shows {
		if s.Code == code {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockShowRepo) List(_ context.Context, status string, offset, limit int) ([]model.Show, int64, error) {
	var all []model.Show
	for _, s := range m.shows {
		if status != "" && s.Status != status {
			continue
		}
		all = append(all, *s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Code < all[j].Code })
	return paginate(all, offset, limit), int64(len(all)), nil
}

type mockShotRepo struct {
	shots map[string]*model.Shot
}

func newMockShotRepo() *mockShotRepo {
	return &mockShotRepo{shots: make(map[string]*model.Shot)}
}

func (m *mockShotRepo) Create(_ context.Context, shot *model.Shot) error {
	if shot.ShotID == "" {
		shot.ShotID = "shot-" + shot.Code
	}
	m.shots[shot.ShotID] = shot
	return nil
}

func (m *mockShotRepo) GetByID(_ context.Context, id string) (*model.Shot, error) {
	if s, ok := m.shots[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockShotRepo) ListByShow(_ context.Context, showID string) ([]model.Shot, error) {
	var out []model.Shot
	for _, s := range m.shots {
		if s.ShowID == showID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// ── Mock AllocationRepository ──
//
// 分配与活动日志共用同一个内存存储：真实实现里两者在同一个
// 槽位事务中提交，mock 用互斥锁 + 失败回滚模拟该语义。

type mockAllocationRepo struct {
	mu       sync.Mutex
	allocs   map[string]*model.ResourceAllocation
	logs     map[string]*model.ActivityLog
	allocSeq int
	logSeq   int

	// 预加载关联（测试需要时填充）
	resources map[string]*model.User
	shows     map[string]*model.Show
	shots     map[string]*model.Shot
}

func newMockAllocationRepo() *mockAllocationRepo {
	return &mockAllocationRepo{
		allocs:    make(map[string]*model.ResourceAllocation),
		logs:      make(map[string]*model.ActivityLog),
		resources: make(map[string]*model.User),
		shows:     make(map[string]*model.Show),
		shots:     make(map[string]*model.Shot),
	}
}

func (m *mockAllocationRepo) WithSlotLock(_ context.Context, _ string, _ time.Time, fn func(tx repository.AllocationTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// 事务语义：fn 返回错误时恢复值快照
	allocSnap := make(map[string]model.ResourceAllocation, len(m.allocs))
	for k, v := range m.allocs {
		allocSnap[k] = *v
	}
	logSnap := make(map[string]model.ActivityLog, len(m.logs))
	for k, v := range m.logs {
		logSnap[k] = *v
	}
	allocSeq, logSeq := m.allocSeq, m.logSeq

	if err := fn(&mockAllocationTx{repo: m}); err != nil {
		m.allocs = make(map[string]*model.ResourceAllocation, len(allocSnap))
		for k := range allocSnap {
			v := allocSnap[k]
			m.allocs[k] = &v
		}
		m.logs = make(map[string]*model.ActivityLog, len(logSnap))
		for k := range logSnap {
			v := logSnap[k]
			m.logs[k] = &v
		}
		m.allocSeq, m.logSeq = allocSeq, logSeq
		return err
	}
	return nil
}

func (m *mockAllocationRepo) GetByID(_ context.Context, id string) (*model.ResourceAllocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.allocs[id]
	if !ok || a.DeletedAt.Valid {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	m.attach(&cp)
	return &cp, nil
}

func (m *mockAllocationRepo) ListSlot(_ context.Context, resourceID string, date time.Time) ([]model.ResourceAllocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listSlotLocked(resourceID, date), nil
}

func (m *mockAllocationRepo) List(_ context.Context, filter repository.AllocationListFilter) ([]model.ResourceAllocation, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var all []model.ResourceAllocation
	for _, a := range m.allocs {
		if a.DeletedAt.Valid {
			continue
		}
		if filter.ResourceID != "" && a.ResourceID != filter.ResourceID {
			continue
		}
		if filter.ShowID != "" && (a.ShowID == nil || *a.ShowID != filter.ShowID) {
			continue
		}
		if !filter.From.IsZero() && a.AllocDate.Before(model.NormalizeDate(filter.From)) {
			continue
		}
		if !filter.To.IsZero() && a.AllocDate.After(model.NormalizeDate(filter.To)) {
			continue
		}
		cp := *a
		m.attach(&cp)
		all = append(all, cp)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].AllocDate.Equal(all[j].AllocDate) {
			return all[i].AllocDate.Before(all[j].AllocDate)
		}
		return all[i].AllocationID < all[j].AllocationID
	})
	return paginate(all, filter.Offset, filter.Limit), int64(len(all)), nil
}

func (m *mockAllocationRepo) SummarizeShow(_ context.Context, showID string, from, to time.Time) (int64, float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	var sum float64
	from = model.NormalizeDate(from)
	to = model.NormalizeDate(to)
	for _, a := range m.allocs {
		if a.DeletedAt.Valid || a.ShowID == nil || *a.ShowID != showID {
			continue
		}
		if a.AllocDate.Before(from) || a.AllocDate.After(to) {
			continue
		}
		count++
		sum += a.ManDays
	}
	return count, sum, nil
}

func (m *mockAllocationRepo) listSlotLocked(resourceID string, date time.Time) []model.ResourceAllocation {
	key := model.SlotKey(resourceID, date)
	var out []model.ResourceAllocation
	for _, a := range m.allocs {
		if !a.DeletedAt.Valid && model.SlotKey(a.ResourceID, a.AllocDate) == key {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AllocationID < out[j].AllocationID })
	return out
}

func (m *mockAllocationRepo) attach(a *model.ResourceAllocation) {
	if u, ok := m.resources[a.ResourceID]; ok {
		a.Resource = u
	}
	if a.ShowID != nil {
		if s, ok := m.shows[*a.ShowID]; ok {
			a.Show = s
		}
	}
	if a.ShotID != nil {
		if s, ok := m.shots[*a.ShotID]; ok {
			a.Shot = s
		}
	}
}

type mockAllocationTx struct {
	repo *mockAllocationRepo
}

func (t *mockAllocationTx) ListSlot(resourceID string, date time.Time) ([]model.ResourceAllocation, error) {
	return t.repo.listSlotLocked(resourceID, date), nil
}

func (t *mockAllocationTx) Get(id string) (*model.ResourceAllocation, error) {
	a, ok := t.repo.allocs[id]
	if !ok || a.DeletedAt.Valid {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

func (t *mockAllocationTx) Create(a *model.ResourceAllocation) error {
	if a.AllocationID == "" {
		t.repo.allocSeq++
		a.AllocationID = fmt.Sprintf("alloc-%03d", t.repo.allocSeq)
	}
	a.AllocDate = model.NormalizeDate(a.AllocDate)
	now := time.Now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	if a.Version == 0 {
		a.Version = 1
	}
	cp := *a
	t.repo.allocs[a.AllocationID] = &cp
	return nil
}

func (t *mockAllocationTx) Update(a *model.ResourceAllocation) error {
	stored, ok := t.repo.allocs[a.AllocationID]
	if !ok || stored.DeletedAt.Valid || stored.Version != a.Version {
		return pkgerrors.ErrOptimisticLock
	}
	a.Version++
	a.UpdatedAt = time.Now()
	cp := *a
	t.repo.allocs[a.AllocationID] = &cp
	return nil
}

func (t *mockAllocationTx) Delete(id string, deletedBy string) error {
	stored, ok := t.repo.allocs[id]
	if !ok || stored.DeletedAt.Valid {
		return gorm.ErrRecordNotFound
	}
	stored.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	stored.DeletedBy = &deletedBy
	return nil
}

func (t *mockAllocationTx) Restore(a *model.ResourceAllocation) error {
	stored, ok := t.repo.allocs[a.AllocationID]
	if !ok || !stored.DeletedAt.Valid {
		return gorm.ErrRecordNotFound
	}
	restored := *a
	restored.DeletedAt = gorm.DeletedAt{}
	restored.DeletedBy = nil
	restored.Version = a.Version + 1
	t.repo.allocs[a.AllocationID] = &restored
	a.Version = restored.Version
	return nil
}

func (t *mockAllocationTx) AppendLog(log *model.ActivityLog) error {
	if log.LogID == "" {
		t.repo.logSeq++
		log.LogID = fmt.Sprintf("log-%03d", t.repo.logSeq)
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	cp := *log
	t.repo.logs[log.LogID] = &cp
	return nil
}

func (t *mockAllocationTx) MarkLogReversed(logID string) error {
	stored, ok := t.repo.logs[logID]
	if !ok || stored.State != model.LogStateActive {
		return pkgerrors.ErrOptimisticLock
	}
	stored.State = model.LogStateReversed
	return nil
}

// ── Mock ActivityLogRepository ──
//
// 日志写入只发生在槽位事务内，本 mock 只提供查询视图。

type mockActivityLogRepo struct {
	store *mockAllocationRepo
}

func newMockActivityLogRepo(store *mockAllocationRepo) *mockActivityLogRepo {
	return &mockActivityLogRepo{store: store}
}

func (m *mockActivityLogRepo) GetByID(_ context.Context, id string) (*model.ActivityLog, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if l, ok := m.store.logs[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockActivityLogRepo) GetReversalOf(_ context.Context, logID string) (*model.ActivityLog, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, l := range m.store.logs {
		if l.ReversesID != nil && *l.ReversesID == logID {
			cp := *l
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockActivityLogRepo) List(_ context.Context, filter repository.ActivityLogListFilter) ([]model.ActivityLog, int64, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	var all []model.ActivityLog
	for _, l := range m.store.logs {
		if filter.EntityType != "" && l.EntityType != filter.EntityType {
			continue
		}
		if filter.EntityID != "" && l.EntityID != filter.EntityID {
			continue
		}
		if filter.Action != "" && l.Action != filter.Action {
			continue
		}
		if filter.FieldName != "" && (l.FieldName == nil || *l.FieldName != filter.FieldName) {
			continue
		}
		if filter.ActorID != "" && filter.ActorID != l.ActorID {
			continue
		}
		if filter.State != "" && l.State != filter.State {
			continue
		}
		if !filter.From.IsZero() && l.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && l.CreatedAt.After(filter.To) {
			continue
		}
		if filter.Keyword != "" && !logMatchesKeyword(l, filter.Keyword) {
			continue
		}
		all = append(all, *l)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].LogID > all[j].LogID
	})
	return paginate(all, filter.Offset, filter.Limit), int64(len(all)), nil
}

// logMatchesKeyword 与真实仓储保持一致：
// field_name / old_value / new_value 三列，大小写不敏感
func logMatchesKeyword(l *model.ActivityLog, kw string) bool {
	kw = strings.ToLower(kw)
	for _, col := range []*string{l.FieldName, l.OldValue, l.NewValue} {
		if col != nil && strings.Contains(strings.ToLower(*col), kw) {
			return true
		}
	}
	return false
}

// ── Mock SoftBookingRepository ──

type mockSoftBookingRepo struct {
	bookings map[string]*model.SoftBooking
	seq      int
}

func newMockSoftBookingRepo() *mockSoftBookingRepo {
	return &mockSoftBookingRepo{bookings: make(map[string]*model.SoftBooking)}
}

func (m *mockSoftBookingRepo) Create(_ context.Context, b *model.SoftBooking) error {
	if b.BookingID == "" {
		m.seq++
		b.BookingID = fmt.Sprintf("booking-%03d", m.seq)
	}
	b.StartDate = model.NormalizeDate(b.StartDate)
	b.EndDate = model.NormalizeDate(b.EndDate)
	if b.Version == 0 {
		b.Version = 1
	}
	cp := *b
	m.bookings[b.BookingID] = &cp
	return nil
}

func (m *mockSoftBookingRepo) GetByID(_ context.Context, id string) (*model.SoftBooking, error) {
	if b, ok := m.bookings[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSoftBookingRepo) Update(_ context.Context, b *model.SoftBooking) error {
	stored, ok := m.bookings[b.BookingID]
	if !ok || stored.Version != b.Version {
		return pkgerrors.ErrOptimisticLock
	}
	b.Version++
	cp := *b
	m.bookings[b.BookingID] = &cp
	return nil
}

func (m *mockSoftBookingRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.bookings[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.bookings, id)
	return nil
}

func (m *mockSoftBookingRepo) List(_ context.Context, filter repository.SoftBookingListFilter) ([]model.SoftBooking, int64, error) {
	var all []model.SoftBooking
	for _, b := range m.bookings {
		if filter.ShowID != "" && b.ShowID != filter.ShowID {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		all = append(all, *b)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].BookingID < all[j].BookingID })
	return paginate(all, filter.Offset, filter.Limit), int64(len(all)), nil
}

// ── Mock DeliveryRepository ──

type mockDeliveryRepo struct {
	schedules map[string]*model.DeliverySchedule
	execLogs  []*model.ScheduleExecutionLog
	seq       int
	execSeq   int
}

func newMockDeliveryRepo() *mockDeliveryRepo {
	return &mockDeliveryRepo{schedules: make(map[string]*model.DeliverySchedule)}
}

func (m *mockDeliveryRepo) Create(_ context.Context, s *model.DeliverySchedule) error {
	if s.ScheduleID == "" {
		m.seq++
		s.ScheduleID = fmt.Sprintf("sched-%03d", m.seq)
	}
	if s.Version == 0 {
		s.Version = 1
	}
	cp := *s
	m.schedules[s.ScheduleID] = &cp
	return nil
}

func (m *mockDeliveryRepo) GetByID(_ context.Context, id string) (*model.DeliverySchedule, error) {
	if s, ok := m.schedules[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDeliveryRepo) Update(_ context.Context, s *model.DeliverySchedule) error {
	stored, ok := m.schedules[s.ScheduleID]
	if !ok || stored.Version != s.Version {
		return pkgerrors.ErrOptimisticLock
	}
	s.Version++
	cp := *s
	m.schedules[s.ScheduleID] = &cp
	return nil
}

func (m *mockDeliveryRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.schedules[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.schedules, id)
	return nil
}

func (m *mockDeliveryRepo) List(_ context.Context, showID string, offset, limit int) ([]model.DeliverySchedule, int64, error) {
	var all []model.DeliverySchedule
	for _, s := range m.schedules {
		if showID != "" && s.ShowID != showID {
			continue
		}
		all = append(all, *s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].NextRunAt.Before(all[j].NextRunAt) })
	return paginate(all, offset, limit), int64(len(all)), nil
}

func (m *mockDeliveryRepo) ListDue(_ context.Context, now time.Time) ([]model.DeliverySchedule, error) {
	var out []model.DeliverySchedule
	for _, s := range m.schedules {
		if s.IsActive && !s.NextRunAt.After(now) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextRunAt.Before(out[j].NextRunAt) })
	return out, nil
}

func (m *mockDeliveryRepo) WithScheduleLock(_ context.Context, _ string, fn func(tx repository.DeliveryTx) error) error {
	return fn(&mockDeliveryTx{repo: m})
}

func (m *mockDeliveryRepo) CreateExecLog(_ context.Context, log *model.ScheduleExecutionLog) error {
	return (&mockDeliveryTx{repo: m}).CreateExecLog(log)
}

func (m *mockDeliveryRepo) ListExecLogs(_ context.Context, scheduleID string, offset, limit int) ([]model.ScheduleExecutionLog, int64, error) {
	var all []model.ScheduleExecutionLog
	for _, l := range m.execLogs {
		if scheduleID != "" && l.ScheduleID != scheduleID {
			continue
		}
		all = append(all, *l)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ExecutedAt.After(all[j].ExecutedAt) })
	return paginate(all, offset, limit), int64(len(all)), nil
}

func (m *mockDeliveryRepo) PruneExecLogs(_ context.Context, scheduleID string, before time.Time) (int64, error) {
	var kept []*model.ScheduleExecutionLog
	var deleted int64
	for _, l := range m.execLogs {
		if l.ExecutedAt.Before(before) && (scheduleID == "" || l.ScheduleID == scheduleID) {
			deleted++
			continue
		}
		kept = append(kept, l)
	}
	m.execLogs = kept
	return deleted, nil
}

type mockDeliveryTx struct {
	repo *mockDeliveryRepo
}

func (t *mockDeliveryTx) Get(scheduleID string) (*model.DeliverySchedule, error) {
	if s, ok := t.repo.schedules[scheduleID]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (t *mockDeliveryTx) CreateExecLog(log *model.ScheduleExecutionLog) error {
	if log.ExecutionID == "" {
		t.repo.execSeq++
		log.ExecutionID = fmt.Sprintf("exec-%03d", t.repo.execSeq)
	}
	cp := *log
	t.repo.execLogs = append(t.repo.execLogs, &cp)
	return nil
}

func (t *mockDeliveryTx) Advance(scheduleID string, next time.Time, version int) error {
	s, ok := t.repo.schedules[scheduleID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.NextRunAt = next
	s.Version = version
	return nil
}

// ── 公共辅助 ──

func paginate[T any](all []T, offset, limit int) []T {
	if offset >= len(all) {
		return nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end]
}

// newMockRepository 组装一套全内存 Repository
func newMockRepository() (*repository.Repository, *mockStores) {
	stores := &mockStores{
		users:       newMockUserRepo(),
		departments: newMockDeptRepo(),
		shows:       newMockShowRepo(),
		shots:       newMockShotRepo(),
		allocations: newMockAllocationRepo(),
		bookings:    newMockSoftBookingRepo(),
		deliveries:  newMockDeliveryRepo(),
	}
	// 预加载关联共享同一批底层数据
	stores.allocations.resources = stores.users.users
	stores.allocations.shows = stores.shows.shows
	stores.allocations.shots = stores.shots.shots
	repo := &repository.Repository{
		User:        stores.users,
		Department:  stores.departments,
		Show:        stores.shows,
		Shot:        stores.shots,
		Allocation:  stores.allocations,
		SoftBooking: stores.bookings,
		ActivityLog: newMockActivityLogRepo(stores.allocations),
		Delivery:    stores.deliveries,
	}
	return repo, stores
}

type mockStores struct {
	users       *mockUserRepo
	departments *mockDeptRepo
	shows       *mockShowRepo
	shots       *mockShotRepo
	allocations *mockAllocationRepo
	bookings    *mockSoftBookingRepo
	deliveries  *mockDeliveryRepo
}

// [自证通过] internal/service/mock_repos_test.go
