package memorystore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/open-rails/coursekit/access"
	"github.com/open-rails/coursekit/content"
)

// ContentStore is an in-memory access.ContentStore plus access.PolicyStore.
type ContentStore struct {
	mu        sync.Mutex
	courses   map[uuid.UUID]content.Course
	lessons   map[uuid.UUID]content.Lesson
	materials map[uuid.UUID]content.Material // keyed by lesson id
	policies  map[uuid.UUID]access.Policy    // keyed by school id
}

func NewContentStore() *ContentStore {
	return &ContentStore{
		courses:   make(map[uuid.UUID]content.Course),
		lessons:   make(map[uuid.UUID]content.Lesson),
		materials: make(map[uuid.UUID]content.Material),
		policies:  make(map[uuid.UUID]access.Policy),
	}
}

func (s *ContentStore) PutCourse(c content.Course) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.courses[c.ID] = c
}

func (s *ContentStore) PutLesson(l content.Lesson) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lessons[l.ID] = l
}

func (s *ContentStore) PutMaterial(m content.Material) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.materials[m.LessonID] = m
}

func (s *ContentStore) PutPolicy(schoolID uuid.UUID, p access.Policy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[schoolID] = p
}

func (s *ContentStore) GetCourse(ctx context.Context, schoolID, courseID uuid.UUID) (*content.Course, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.courses[courseID]
	if !ok || c.SchoolID != schoolID {
		return nil, nil
	}
	return &c, nil
}

func (s *ContentStore) GetLesson(ctx context.Context, schoolID, lessonID uuid.UUID) (*content.Lesson, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lessons[lessonID]
	if !ok || l.SchoolID != schoolID {
		return nil, nil
	}
	return &l, nil
}

func (s *ContentStore) GetMaterial(ctx context.Context, schoolID, lessonID uuid.UUID) (*content.Material, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lessons[lessonID]
	if !ok || l.SchoolID != schoolID {
		return nil, nil
	}
	m, ok := s.materials[lessonID]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (s *ContentStore) GetPolicy(ctx context.Context, schoolID uuid.UUID) (access.Policy, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policies[schoolID], nil
}

// CompletionStore is an in-memory certificates.CompletionSource.
type CompletionStore struct {
	mu        sync.Mutex
	content   *ContentStore
	completed map[string]time.Time // school:user:lesson
}

func NewCompletionStore(content *ContentStore) *CompletionStore {
	return &CompletionStore{content: content, completed: make(map[string]time.Time)}
}

func completionKey(schoolID, userID, lessonID uuid.UUID) string {
	return schoolID.String() + ":" + userID.String() + ":" + lessonID.String()
}

func (s *CompletionStore) MarkCompleted(ctx context.Context, schoolID, userID, lessonID uuid.UUID, at time.Time) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	key := completionKey(schoolID, userID, lessonID)
	if _, ok := s.completed[key]; !ok {
		s.completed[key] = at
	}
	return nil
}

func (s *CompletionStore) LessonCounts(ctx context.Context, schoolID, courseID, userID uuid.UUID) (published, completed int, err error) {
	_ = ctx
	s.content.mu.Lock()
	lessons := make([]content.Lesson, 0, len(s.content.lessons))
	for _, l := range s.content.lessons {
		lessons = append(lessons, l)
	}
	s.content.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range lessons {
		if l.SchoolID != schoolID || l.CourseID != courseID || !l.IsPublished {
			continue
		}
		published++
		if _, ok := s.completed[completionKey(schoolID, userID, l.ID)]; ok {
			completed++
		}
	}
	return published, completed, nil
}
