package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/smart-scheduler-api/internal/dto"
	"github.com/noah-isme/smart-scheduler-api/internal/models"
	"github.com/noah-isme/smart-scheduler-api/internal/planner"
	appErrors "github.com/noah-isme/smart-scheduler-api/pkg/errors"
)

// NoticeNoCombinations is shown when a change leaves no feasible schedule.
const NoticeNoCombinations = "There are no valid class combinations with the current selection."

const (
	modeFull   = "full"
	modeFilter = "filter"
)

type plannerCourseReader interface {
	FindByID(ctx context.Context, term int, id string) (*models.Course, error)
}

// PlannerConfig governs session lifetime and generation limits.
type PlannerConfig struct {
	SessionTTL      time.Duration
	CacheTTL        time.Duration
	MaxCombinations int
	MaxCourses      int
}

// PlannerService owns planner sessions and runs the schedule engine on every change.
type PlannerService struct {
	courses   plannerCourseReader
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	store     *sessionStore
	cfg       PlannerConfig
	now       func() time.Time
}

// NewPlannerService wires planner dependencies.
func NewPlannerService(courses plannerCourseReader, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg PlannerConfig) *PlannerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 2 * time.Hour
	}
	if cfg.MaxCourses <= 0 {
		cfg.MaxCourses = 10
	}
	svc := &PlannerService{
		courses:   courses,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
	svc.store = newSessionStore(cfg.SessionTTL, func() time.Time { return svc.now() })
	return svc
}

// plannerSession is the selection state of one student. Fields are guarded by mu,
// except lastSeen which the store refreshes without taking it.
type plannerSession struct {
	mu sync.Mutex

	id         string
	term       int
	courses    []models.Course
	candidates []planner.Schedule
	schedules  []planner.Schedule
	active     int
	pins       map[int]struct{}
	blocked    planner.BlockedGrid
	notice     string
	lastSeen   atomic.Int64
}

func newPlannerSession(term int, now time.Time) *plannerSession {
	session := &plannerSession{
		id:     uuid.NewString(),
		term:   term,
		active: -1,
		pins:   make(map[int]struct{}),
	}
	session.touch(now)
	return session
}

func (p *plannerSession) touch(now time.Time) {
	p.lastSeen.Store(now.UnixNano())
}

func (p *plannerSession) lastActive() time.Time {
	return time.Unix(0, p.lastSeen.Load())
}

func (p *plannerSession) activeSchedule() planner.Schedule {
	if p.active < 0 || p.active >= len(p.schedules) {
		return nil
	}
	return p.schedules[p.active]
}

func (p *plannerSession) pinList() []int {
	pins := make([]int, 0, len(p.pins))
	for number := range p.pins {
		pins = append(pins, number)
	}
	sort.Ints(pins)
	return pins
}

func (p *plannerSession) courseIndex(id string) int {
	for i, course := range p.courses {
		if course.ID == id {
			return i
		}
	}
	return -1
}

func (p *plannerSession) reset() {
	p.courses = nil
	p.candidates = nil
	p.schedules = nil
	p.active = -1
	p.pins = make(map[int]struct{})
	p.notice = ""
}

type sessionStore struct {
	ttl   time.Duration
	now   func() time.Time
	mu    sync.RWMutex
	items map[string]*plannerSession
}

func newSessionStore(ttl time.Duration, now func() time.Time) *sessionStore {
	return &sessionStore{ttl: ttl, now: now, items: make(map[string]*plannerSession)}
}

func (s *sessionStore) Save(session *plannerSession) {
	s.mu.Lock()
	s.items[session.id] = session
	s.mu.Unlock()
}

// Get returns a live session and refreshes its idle timer.
func (s *sessionStore) Get(id string) (*plannerSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.items[id]
	if !ok {
		return nil, false
	}
	now := s.now()
	if now.Sub(session.lastActive()) > s.ttl {
		delete(s.items, id)
		return nil, false
	}
	session.touch(now)
	return session, true
}

func (s *sessionStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[id]
	delete(s.items, id)
	return ok
}

func (s *sessionStore) Prune() (removed, remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, session := range s.items {
		if now.Sub(session.lastActive()) > s.ttl {
			delete(s.items, id)
			removed++
		}
	}
	return removed, len(s.items)
}

func (s *sessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// CreateSession opens an empty session for the requested term.
func (s *PlannerService) CreateSession(ctx context.Context, req dto.CreatePlannerSessionRequest) (*dto.PlannerSessionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid planner session payload")
	}
	if _, err := planner.ParseTermCode(req.Term); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unknown term code")
	}
	session := newPlannerSession(req.Term, s.now())
	s.store.Save(session)
	s.metrics.SetActiveSessions(s.store.Len())
	s.logger.Info("planner session created", zap.String("session_id", session.id), zap.Int("term", req.Term))
	return s.view(session), nil
}

// GetSession returns the current state of a session.
func (s *PlannerService) GetSession(ctx context.Context, id string) (*dto.PlannerSessionResponse, error) {
	return s.mutate(ctx, id, func(*plannerSession) error { return nil })
}

// DeleteSession discards a session.
func (s *PlannerService) DeleteSession(ctx context.Context, id string) error {
	if !s.store.Delete(id) {
		return appErrors.ErrSessionExpired
	}
	s.metrics.SetActiveSessions(s.store.Len())
	return nil
}

// SetTerm switches the term and clears courses, pins and schedules.
func (s *PlannerService) SetTerm(ctx context.Context, id string, req dto.SetTermRequest) (*dto.PlannerSessionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid term payload")
	}
	if _, err := planner.ParseTermCode(req.Term); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unknown term code")
	}
	return s.mutate(ctx, id, func(session *plannerSession) error {
		session.term = req.Term
		session.reset()
		return nil
	})
}

// AddCourse loads a course from the catalog and regenerates every schedule.
func (s *PlannerService) AddCourse(ctx context.Context, id string, req dto.AddCourseRequest) (*dto.PlannerSessionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	return s.mutate(ctx, id, func(session *plannerSession) error {
		if session.courseIndex(req.CourseID) >= 0 {
			return appErrors.Clone(appErrors.ErrConflict, "Course already selected.")
		}
		if len(session.courses) >= s.cfg.MaxCourses {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("at most %d courses can be selected", s.cfg.MaxCourses))
		}
		course, err := s.courses.FindByID(ctx, session.term, req.CourseID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "course not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
		}

		used := make([]string, 0, len(session.courses))
		for _, selected := range session.courses {
			used = append(used, selected.Color)
		}
		added := *course
		added.Color = planner.AssignColor(used)

		courses := append(append([]models.Course(nil), session.courses...), added)
		return s.regenerate(ctx, session, courses, session.pins, session.blocked, modeFull, true)
	})
}

// RemoveCourse drops a course and its pins, then regenerates.
func (s *PlannerService) RemoveCourse(ctx context.Context, id, courseID string) (*dto.PlannerSessionResponse, error) {
	return s.mutate(ctx, id, func(session *plannerSession) error {
		idx := session.courseIndex(courseID)
		if idx < 0 {
			return appErrors.Clone(appErrors.ErrNotFound, "course is not selected")
		}
		removed := session.courses[idx]
		courses := make([]models.Course, 0, len(session.courses)-1)
		courses = append(courses, session.courses[:idx]...)
		courses = append(courses, session.courses[idx+1:]...)

		pins := make(map[int]struct{}, len(session.pins))
		for number := range session.pins {
			if !courseHasSection(removed, number) {
				pins[number] = struct{}{}
			}
		}
		return s.regenerate(ctx, session, courses, pins, session.blocked, modeFull, false)
	})
}

// ClearCourses empties the selection.
func (s *PlannerService) ClearCourses(ctx context.Context, id string) (*dto.PlannerSessionResponse, error) {
	return s.mutate(ctx, id, func(session *plannerSession) error {
		session.reset()
		return nil
	})
}

// TogglePin pins a section of the active schedule, or unpins a pinned one.
// Pinning only narrows the current set; unpinning regenerates everything.
func (s *PlannerService) TogglePin(ctx context.Context, id string, sectionNumber int) (*dto.PlannerSessionResponse, error) {
	return s.mutate(ctx, id, func(session *plannerSession) error {
		pins := make(map[int]struct{}, len(session.pins)+1)
		for number := range session.pins {
			pins[number] = struct{}{}
		}
		if _, pinned := pins[sectionNumber]; pinned {
			delete(pins, sectionNumber)
			return s.regenerate(ctx, session, session.courses, pins, session.blocked, modeFull, false)
		}
		if !session.activeSchedule().Contains(sectionNumber) {
			return appErrors.Clone(appErrors.ErrValidation, "section is not part of the active schedule")
		}
		pins[sectionNumber] = struct{}{}
		return s.regenerate(ctx, session, session.courses, pins, session.blocked, modeFilter, false)
	})
}

// ToggleBlocked flips one blocked cell. Blocking narrows the current set;
// unblocking regenerates everything.
func (s *PlannerService) ToggleBlocked(ctx context.Context, id string, req dto.ToggleBlockedRequest) (*dto.PlannerSessionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid blocked slot payload")
	}
	return s.mutate(ctx, id, func(session *plannerSession) error {
		grid := session.blocked
		if grid.Toggle(req.Day, req.Slot) {
			return s.regenerate(ctx, session, session.courses, session.pins, grid, modeFilter, false)
		}
		return s.regenerate(ctx, session, session.courses, session.pins, grid, modeFull, false)
	})
}

// Next moves to the following schedule, staying on the last one at the end.
func (s *PlannerService) Next(ctx context.Context, id string) (*dto.PlannerSessionResponse, error) {
	return s.mutate(ctx, id, func(session *plannerSession) error {
		if session.active >= 0 && session.active < len(session.schedules)-1 {
			session.active++
		}
		return nil
	})
}

// Previous moves to the preceding schedule, staying on the first one at the start.
func (s *PlannerService) Previous(ctx context.Context, id string) (*dto.PlannerSessionResponse, error) {
	return s.mutate(ctx, id, func(session *plannerSession) error {
		if session.active > 0 {
			session.active--
		}
		return nil
	})
}

// ListPermutations pages through the filtered schedules of a session.
func (s *PlannerService) ListPermutations(ctx context.Context, id string, page models.Pagination) ([]dto.ScheduleView, *models.Pagination, error) {
	var views []dto.ScheduleView
	err := s.withSession(id, func(session *plannerSession) error {
		page.Normalize(20, 100)
		page.TotalCount = len(session.schedules)
		start, end := page.Bounds(len(session.schedules))
		views = make([]dto.ScheduleView, 0, end-start)
		for i := start; i < end; i++ {
			views = append(views, scheduleView(i, session.schedules[i], session.courses, session.pins))
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return views, &page, nil
}

// SessionSnapshot is a detached copy of a session's active schedule.
type SessionSnapshot struct {
	SessionID string
	Term      int
	Courses   []models.Course
	Active    planner.Schedule
}

// Snapshot copies the active schedule for background work such as exports.
func (s *PlannerService) Snapshot(ctx context.Context, id string) (*SessionSnapshot, error) {
	var snapshot *SessionSnapshot
	err := s.withSession(id, func(session *plannerSession) error {
		active := session.activeSchedule()
		if active == nil {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, "session has no active schedule")
		}
		snapshot = &SessionSnapshot{
			SessionID: session.id,
			Term:      session.term,
			Courses:   append([]models.Course(nil), session.courses...),
			Active:    append(planner.Schedule(nil), active...),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// PruneExpired drops idle sessions and reports how many were removed.
func (s *PlannerService) PruneExpired() int {
	removed, remaining := s.store.Prune()
	s.metrics.SetActiveSessions(remaining)
	if removed > 0 {
		s.logger.Debug("expired planner sessions pruned", zap.Int("removed", removed), zap.Int("remaining", remaining))
	}
	return removed
}

// RunJanitor prunes expired sessions on every tick until ctx is done.
func (s *PlannerService) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.PruneExpired()
		}
	}
}

// Generate runs the engine over caller-supplied courses without touching any session.
func (s *PlannerService) Generate(ctx context.Context, req dto.GenerateSchedulesRequest) (*dto.GenerateSchedulesResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation payload")
	}
	if len(req.Courses) > s.cfg.MaxCourses {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("at most %d courses can be selected", s.cfg.MaxCourses))
	}

	var grid planner.BlockedGrid
	for _, cell := range req.Blocked {
		if !planner.ValidCell(cell[0], cell[1]) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("blocked cell [%d,%d] is outside the week grid", cell[0], cell[1]))
		}
		grid[cell[0]][cell[1]] = true
	}

	var previous planner.Schedule
	if len(req.Previous) > 0 {
		var ok bool
		previous, ok = planner.FromSectionNumbers(req.Previous, req.Courses)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "previous schedule references unknown sections")
		}
	}

	start := time.Now()
	candidates, err := s.enumerate(req.Courses)
	if err != nil {
		return nil, err
	}
	schedules := planner.FilterSchedules(candidates, req.Pinned, grid)
	s.metrics.ObserveGeneration(modeFull, len(schedules), time.Since(start))

	active, _ := planner.ResolveActiveIndex(schedules, previous)
	limit := len(schedules)
	if req.Limit > 0 && req.Limit < limit {
		limit = req.Limit
	}
	pins := make(map[int]struct{}, len(req.Pinned))
	for _, number := range req.Pinned {
		pins[number] = struct{}{}
	}
	views := make([]dto.ScheduleView, 0, limit)
	for i := 0; i < limit; i++ {
		views = append(views, scheduleView(i, schedules[i], req.Courses, pins))
	}
	return &dto.GenerateSchedulesResponse{
		Count:       len(schedules),
		ActiveIndex: active,
		Infeasible:  len(schedules) == 0,
		Schedules:   views,
	}, nil
}

// withSession looks up a live session and runs fn while holding its lock.
func (s *PlannerService) withSession(id string, fn func(*plannerSession) error) error {
	session, ok := s.store.Get(id)
	if !ok {
		return appErrors.ErrSessionExpired
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	return fn(session)
}

func (s *PlannerService) mutate(ctx context.Context, id string, fn func(*plannerSession) error) (*dto.PlannerSessionResponse, error) {
	var resp *dto.PlannerSessionResponse
	err := s.withSession(id, func(session *plannerSession) error {
		if err := fn(session); err != nil {
			return err
		}
		resp = s.view(session)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// regenerate recomputes the schedules for the given selection and commits it to the
// session only when every step succeeds. Filter mode reuses the stored conflict-free
// set; full mode enumerates it again.
func (s *PlannerService) regenerate(ctx context.Context, session *plannerSession, courses []models.Course, pins map[int]struct{}, grid planner.BlockedGrid, mode string, reAlert bool) error {
	previous := session.activeSchedule()
	previousCount := len(session.schedules)

	if len(courses) == 0 {
		session.courses = nil
		session.candidates = nil
		session.schedules = nil
		session.active = -1
		session.pins = pins
		session.blocked = grid
		session.notice = ""
		return nil
	}

	start := time.Now()
	candidates := session.candidates
	if mode == modeFull {
		var err error
		candidates, err = s.conflictFree(ctx, session.term, courses)
		if err != nil {
			return err
		}
	}

	pinList := make([]int, 0, len(pins))
	for number := range pins {
		pinList = append(pinList, number)
	}
	sort.Ints(pinList)
	schedules := planner.FilterSchedules(candidates, pinList, grid)
	active, ok := planner.ResolveActiveIndex(schedules, previous)
	if !ok {
		active = -1
	}
	s.metrics.ObserveGeneration(mode, len(schedules), time.Since(start))

	session.courses = courses
	session.candidates = candidates
	session.schedules = schedules
	session.active = active
	session.pins = pins
	session.blocked = grid
	session.notice = ""
	if len(schedules) == 0 && (previousCount != 0 || reAlert) {
		session.notice = NoticeNoCombinations
	}

	s.logger.Debug("planner schedules regenerated",
		zap.String("session_id", session.id),
		zap.String("mode", mode),
		zap.Int("candidates", len(candidates)),
		zap.Int("schedules", len(schedules)),
		zap.Int("active", active),
	)
	return nil
}

// conflictFree returns every conflict-free schedule of the courses, served from the
// permutation cache when possible.
func (s *PlannerService) conflictFree(ctx context.Context, term int, courses []models.Course) ([]planner.Schedule, error) {
	key := PermutationKey(term, courses)
	var cached [][]int
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		schedules := make([]planner.Schedule, 0, len(cached))
		for _, numbers := range cached {
			schedule, ok := planner.FromSectionNumbers(numbers, courses)
			if !ok {
				schedules = nil
				break
			}
			schedules = append(schedules, schedule)
		}
		if schedules != nil {
			return schedules, nil
		}
		s.logger.Warn("stale permutation cache entry", zap.String("key", key))
	}

	schedules, err := s.enumerate(courses)
	if err != nil {
		return nil, err
	}

	if s.cache.Enabled() {
		payload := make([][]int, len(schedules))
		for i, schedule := range schedules {
			payload[i] = schedule.SectionNumbers()
		}
		_ = s.cache.Set(ctx, key, payload, s.cfg.CacheTTL)
	}
	return schedules, nil
}

func (s *PlannerService) enumerate(courses []models.Course) ([]planner.Schedule, error) {
	perCourse := planner.CourseBundles(courses)
	if total := planner.CountCombinations(perCourse); s.cfg.MaxCombinations > 0 && total > s.cfg.MaxCombinations {
		return nil, appErrors.Clone(appErrors.ErrTooManyCombinations,
			fmt.Sprintf("selection yields %d section combinations, the limit is %d", total, s.cfg.MaxCombinations))
	}
	return planner.RemoveConflicts(planner.GenerateCombinations(perCourse)), nil
}

func (s *PlannerService) view(session *plannerSession) *dto.PlannerSessionResponse {
	term := fmt.Sprintf("%d", session.term)
	if parsed, err := planner.ParseTermCode(session.term); err == nil {
		term = parsed.Label()
	}
	minCredits, maxCredits := planner.CourseCredits(session.courses)

	resp := &dto.PlannerSessionResponse{
		ID:              session.id,
		Term:            session.term,
		TermLabel:       term,
		Courses:         make([]dto.SelectedCourse, 0, len(session.courses)),
		SelectedCredits: dto.CreditRange{Min: minCredits, Max: maxCredits},
		Count:           len(session.schedules),
		ActiveIndex:     session.active,
		Pins:            session.pinList(),
		Blocked:         session.blocked.Slots(),
		Infeasible:      len(session.courses) > 0 && len(session.schedules) == 0,
		Notice:          session.notice,
		ExpiresAt:       session.lastActive().Add(s.cfg.SessionTTL),
	}
	for _, course := range session.courses {
		resp.Courses = append(resp.Courses, dto.SelectedCourse{
			ID:         course.ID,
			Name:       course.Name,
			Color:      course.Color,
			MinCredits: course.MinCredits,
			MaxCredits: course.MaxCredits,
			Sections:   course.SectionCount(),
		})
	}
	if resp.Blocked == nil {
		resp.Blocked = [][2]int{}
	}
	if active := session.activeSchedule(); active != nil {
		resp.Position = fmt.Sprintf("%d out of %d", session.active+1, len(session.schedules))
		view := scheduleView(session.active, active, session.courses, session.pins)
		resp.Active = &view
	}
	return resp
}

func scheduleView(index int, schedule planner.Schedule, courses []models.Course, pins map[int]struct{}) dto.ScheduleView {
	byID := make(map[string]models.Course, len(courses))
	for _, course := range courses {
		byID[course.ID] = course
	}
	decorate := func(sections []models.Section) []dto.ScheduledSection {
		out := make([]dto.ScheduledSection, 0, len(sections))
		for _, section := range sections {
			course := byID[section.ClassID]
			_, pinned := pins[section.SectionNumber]
			out = append(out, dto.ScheduledSection{
				Section:    section,
				CourseName: course.Name,
				Color:      course.Color,
				Pinned:     pinned,
			})
		}
		return out
	}
	minCredits, maxCredits := schedule.CreditRange()
	return dto.ScheduleView{
		Index:       index,
		Sections:    decorate(schedule.Meetings()),
		Unscheduled: decorate(schedule.Unscheduled()),
		MinCredits:  minCredits,
		MaxCredits:  maxCredits,
	}
}

func courseHasSection(course models.Course, sectionNumber int) bool {
	for _, sections := range course.Sections {
		for _, section := range sections {
			if section.SectionNumber == sectionNumber {
				return true
			}
		}
	}
	return false
}
