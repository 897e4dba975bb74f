package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/course-registration-api/internal/guard"
	"github.com/noah-isme/course-registration-api/internal/models"
)

// MemoryStore keeps users, courses and registrations in process memory with
// the same invariants the PostgreSQL schema enforces. It backs local runs
// (STORE_DRIVER=memory) and the engine's concurrency tests.
type MemoryStore struct {
	mu            sync.RWMutex
	pairs         *guard.LocalLocker
	users         map[int64]models.User
	nextUserID    int64
	courses       map[string]models.Course
	registrations map[string]models.Registration
	pairIndex     map[string]string
	fault         error
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pairs:         guard.NewLocalLocker(),
		users:         make(map[int64]models.User),
		courses:       make(map[string]models.Course),
		registrations: make(map[string]models.Registration),
		pairIndex:     make(map[string]string),
	}
}

// Users exposes the user table.
func (m *MemoryStore) Users() *MemoryUsers { return &MemoryUsers{store: m} }

// Courses exposes the course table.
func (m *MemoryStore) Courses() *MemoryCourses { return &MemoryCourses{store: m} }

// Registrations exposes the registration table.
func (m *MemoryStore) Registrations() *MemoryRegistrations { return &MemoryRegistrations{store: m} }

// FailNextWrite makes the next committing write fail with err, leaving the
// store untouched. It simulates the backing store going away mid-operation.
func (m *MemoryStore) FailNextWrite(err error) {
	m.mu.Lock()
	m.fault = err
	m.mu.Unlock()
}

// ActiveRowsForPair counts active rows for a pair.
func (m *MemoryStore) ActiveRowsForPair(userID int64, courseID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, reg := range m.registrations {
		if reg.UserID == userID && reg.CourseID == courseID && reg.Active {
			n++
		}
	}
	return n
}

func (m *MemoryStore) takeFault() error {
	err := m.fault
	m.fault = nil
	return err
}

// MemoryUsers is the user table of a MemoryStore.
type MemoryUsers struct{ store *MemoryStore }

// FindByID returns a user by identifier.
func (u *MemoryUsers) FindByID(ctx context.Context, id int64) (*models.User, error) {
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	user, ok := u.store.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &user, nil
}

// FindByStudentID returns a user by student identifier.
func (u *MemoryUsers) FindByStudentID(ctx context.Context, studentID string) (*models.User, error) {
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	for _, user := range u.store.users {
		if user.StudentID == studentID {
			found := user
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

// Create inserts a user and assigns its id.
func (u *MemoryUsers) Create(ctx context.Context, user *models.User) error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	if err := u.store.takeFault(); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	for _, existing := range u.store.users {
		if existing.StudentID == user.StudentID {
			return constraintViolation("create user: users_student_id_key", nil)
		}
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	u.store.nextUserID++
	user.ID = u.store.nextUserID
	u.store.users[user.ID] = *user
	return nil
}

// UpdatePhone overwrites the stored phone value.
func (u *MemoryUsers) UpdatePhone(ctx context.Context, id int64, phone string) error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	if err := u.store.takeFault(); err != nil {
		return fmt.Errorf("update phone: %w", err)
	}
	user, ok := u.store.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	user.Phone = phone
	u.store.users[id] = user
	return nil
}

// ListWithPhone returns every user with a non-empty phone value.
func (u *MemoryUsers) ListWithPhone(ctx context.Context) ([]models.PhoneRecord, error) {
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	records := []models.PhoneRecord{}
	for _, user := range u.store.users {
		if user.Phone != "" {
			records = append(records, models.PhoneRecord{ID: user.ID, Name: user.Name, Phone: user.Phone})
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

// MemoryCourses is the course table of a MemoryStore.
type MemoryCourses struct{ store *MemoryStore }

// FindActiveByCode resolves a code against active courses only.
func (c *MemoryCourses) FindActiveByCode(ctx context.Context, code string) (*models.Course, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	for _, course := range c.store.courses {
		if course.Active && course.Code == code {
			found := course
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

// FindByID returns a course whatever its active flag.
func (c *MemoryCourses) FindByID(ctx context.Context, id string) (*models.Course, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	course, ok := c.store.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &course, nil
}

// ListActive returns active courses ordered by day and start time.
func (c *MemoryCourses) ListActive(ctx context.Context, filter models.CourseFilter) ([]models.Course, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	courses := []models.Course{}
	for _, course := range c.store.courses {
		if !course.Active || (filter.Day != "" && course.Day != filter.Day) {
			continue
		}
		courses = append(courses, course)
	}
	sort.Slice(courses, func(i, j int) bool {
		a, b := courses[i], courses[j]
		if a.Day != b.Day {
			return a.Day.Index() < b.Day.Index()
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.Code < b.Code
	})
	return courses, nil
}

// Create inserts an active course. A duplicate active code is a ConstraintViolation.
func (c *MemoryCourses) Create(ctx context.Context, course *models.Course) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if err := c.store.takeFault(); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	for _, existing := range c.store.courses {
		if existing.Active && existing.Code == course.Code {
			return constraintViolation("create course: courses_active_code_key", nil)
		}
	}
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	if course.CreatedAt.IsZero() {
		course.CreatedAt = time.Now().UTC()
	}
	course.Active = true
	c.store.courses[course.ID] = *course
	return nil
}

// Deactivate retires the active course with code.
func (c *MemoryCourses) Deactivate(ctx context.Context, code string) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if err := c.store.takeFault(); err != nil {
		return fmt.Errorf("deactivate course: %w", err)
	}
	for id, course := range c.store.courses {
		if course.Active && course.Code == code {
			course.Active = false
			c.store.courses[id] = course
			return nil
		}
	}
	return sql.ErrNoRows
}

// MemoryRegistrations is the registration table of a MemoryStore.
type MemoryRegistrations struct{ store *MemoryStore }

// CountRows counts every row stored for a pair, active or not.
func (r *MemoryRegistrations) CountRows(ctx context.Context, userID int64, courseID string) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	n := 0
	for _, reg := range r.store.registrations {
		if reg.UserID == userID && reg.CourseID == courseID {
			n++
		}
	}
	return n, nil
}

// WithPair serializes fn per pair and applies its writes only when fn and
// every boundary check succeed.
func (r *MemoryRegistrations) WithPair(ctx context.Context, userID int64, courseID string, fn PairFunc) error {
	unlock, err := r.store.pairs.Lock(ctx, models.PairKey(userID, courseID))
	if err != nil {
		return fmt.Errorf("lock registration pair: %w", err)
	}
	defer unlock()

	tx := &memPairTx{store: r.store, userID: userID, courseID: courseID}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit registration: %w", err)
	}
	return tx.commit()
}

type memPairTx struct {
	store    *MemoryStore
	userID   int64
	courseID string
	staged   *models.Registration
	insert   bool
	course   bool
}

func (t *memPairTx) LockCourse() (bool, error) {
	t.course = true
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	return t.store.courses[t.courseID].Active, nil
}

func (t *memPairTx) Current() (*models.Registration, error) {
	if t.staged != nil {
		reg := *t.staged
		return &reg, nil
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	id, ok := t.store.pairIndex[models.PairKey(t.userID, t.courseID)]
	if !ok {
		return nil, nil
	}
	reg := t.store.registrations[id]
	return &reg, nil
}

func (t *memPairTx) Insert(reg *models.Registration) error {
	if reg.UserID != t.userID || reg.CourseID != t.courseID {
		return constraintViolation("registration outside locked pair", nil)
	}
	if t.staged != nil {
		return constraintViolation("create registration: registrations_pair_key", nil)
	}
	staged := *reg
	t.staged = &staged
	t.insert = true
	return nil
}

func (t *memPairTx) Update(reg *models.Registration) error {
	if reg.UserID != t.userID || reg.CourseID != t.courseID {
		return constraintViolation("registration outside locked pair", nil)
	}
	staged := *reg
	if t.staged != nil {
		t.staged = &staged
		return nil
	}
	t.staged = &staged
	t.insert = false
	return nil
}

func (t *memPairTx) commit() error {
	if t.staged == nil {
		return nil
	}
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFault(); err != nil {
		return fmt.Errorf("commit registration: %w", err)
	}
	if t.course && !s.courses[t.courseID].Active {
		return fmt.Errorf("commit registration: %w", ErrCourseInactive)
	}

	reg := *t.staged
	key := models.PairKey(t.userID, t.courseID)
	existingID, exists := s.pairIndex[key]
	switch {
	case t.insert && exists:
		return constraintViolation("create registration: registrations_pair_key", nil)
	case t.insert:
		if _, taken := s.registrations[reg.ID]; taken || reg.ID == "" {
			return constraintViolation("create registration: registrations_pkey", nil)
		}
	case !exists || existingID != reg.ID:
		return constraintViolation(fmt.Sprintf("update registration %s touched 0 rows", reg.ID), nil)
	}
	if reg.Active != (reg.CancelledAt == nil) {
		return constraintViolation("registrations_cancel_stamp", nil)
	}
	s.registrations[reg.ID] = reg
	s.pairIndex[key] = reg.ID
	return nil
}

// IsActive reports whether the user holds an active registration for the
// active course carrying code.
func (r *MemoryRegistrations) IsActive(ctx context.Context, userID int64, courseCode string) (bool, error) {
	details := r.collect(func(reg models.Registration, course models.Course) bool {
		return reg.Active && course.Active && reg.UserID == userID && course.Code == courseCode
	})
	return len(details) > 0, nil
}

// ListActiveByCourseCode returns the roster of the active course with code.
func (r *MemoryRegistrations) ListActiveByCourseCode(ctx context.Context, courseCode string) ([]models.EnrollmentDetail, error) {
	details := r.collect(func(reg models.Registration, course models.Course) bool {
		return reg.Active && course.Active && course.Code == courseCode
	})
	sort.Slice(details, func(i, j int) bool {
		if !details[i].RegisteredAt.Equal(details[j].RegisteredAt) {
			return details[i].RegisteredAt.Before(details[j].RegisteredAt)
		}
		return details[i].RegistrationID < details[j].RegistrationID
	})
	return details, nil
}

// CountActiveByCourseCode counts the rows ListActiveByCourseCode returns.
func (r *MemoryRegistrations) CountActiveByCourseCode(ctx context.Context, courseCode string) (int, error) {
	details := r.collect(func(reg models.Registration, course models.Course) bool {
		return reg.Active && course.Active && course.Code == courseCode
	})
	return len(details), nil
}

// ListActiveByUser returns a user's active registrations by course code.
func (r *MemoryRegistrations) ListActiveByUser(ctx context.Context, userID int64) ([]models.EnrollmentDetail, error) {
	details := r.collect(func(reg models.Registration, course models.Course) bool {
		return reg.Active && reg.UserID == userID
	})
	sortByCodeThenTime(details)
	return details, nil
}

// ListActive returns every active registration.
func (r *MemoryRegistrations) ListActive(ctx context.Context) ([]models.EnrollmentDetail, error) {
	details := r.collect(func(reg models.Registration, course models.Course) bool {
		return reg.Active
	})
	sortByCodeThenTime(details)
	return details, nil
}

// History returns registrations including cancelled ones, newest first.
func (r *MemoryRegistrations) History(ctx context.Context, filter models.HistoryFilter) ([]models.EnrollmentDetail, error) {
	details := r.collect(func(reg models.Registration, course models.Course) bool {
		if filter.CourseCode != "" && course.Code != filter.CourseCode {
			return false
		}
		return filter.UserID == 0 || reg.UserID == filter.UserID
	})
	sort.Slice(details, func(i, j int) bool {
		if !details[i].RegisteredAt.Equal(details[j].RegisteredAt) {
			return details[i].RegisteredAt.After(details[j].RegisteredAt)
		}
		return details[i].RegistrationID < details[j].RegistrationID
	})
	return details, nil
}

func (r *MemoryRegistrations) collect(match func(models.Registration, models.Course) bool) []models.EnrollmentDetail {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	details := []models.EnrollmentDetail{}
	for _, reg := range s.registrations {
		course, ok := s.courses[reg.CourseID]
		if !ok || !match(reg, course) {
			continue
		}
		user := s.users[reg.UserID]
		details = append(details, models.EnrollmentDetail{
			RegistrationID: reg.ID,
			RegisteredAt:   reg.RegisteredAt,
			CancelledAt:    reg.CancelledAt,
			Active:         reg.Active,
			UserID:         reg.UserID,
			StudentID:      user.StudentID,
			UserName:       user.Name,
			Phone:          user.Phone,
			CourseID:       course.ID,
			CourseCode:     course.Code,
			CourseName:     course.Name,
			Professor:      course.Professor,
			Assistant:      course.Assistant,
			Day:            course.Day,
			StartTime:      course.StartTime,
			EndTime:        course.EndTime,
		})
	}
	return details
}

func sortByCodeThenTime(details []models.EnrollmentDetail) {
	sort.Slice(details, func(i, j int) bool {
		if details[i].CourseCode != details[j].CourseCode {
			return details[i].CourseCode < details[j].CourseCode
		}
		if !details[i].RegisteredAt.Equal(details[j].RegisteredAt) {
			return details[i].RegisteredAt.Before(details[j].RegisteredAt)
		}
		return details[i].RegistrationID < details[j].RegistrationID
	})
}
