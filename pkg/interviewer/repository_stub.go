package interviewer

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"
)

type StubRepository struct {
	mu           sync.Mutex
	interviewers map[int]Interviewer
	tags         map[TagKind][]Tag
	nextId       int
	now          time.Time
}

func NewStubRepository() *StubRepository {
	return &StubRepository{
		interviewers: map[int]Interviewer{},
		tags:         map[TagKind][]Tag{},
		now:          time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *StubRepository) ListActive(_ context.Context, filter Filter, limit int) ([]Interviewer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]Interviewer, 0)
	for _, i := range s.interviewers {
		if !i.IsActive {
			continue
		}
		if filter.TechnologySlug != "" && !hasSlug(i.Technologies, filter.TechnologySlug) {
			continue
		}
		if filter.SubjectSlug != "" && !hasSlug(i.Subjects, filter.SubjectSlug) {
			continue
		}
		result = append(result, i)
	}
	sort.Slice(result, func(a, b int) bool {
		if result[a].CreatedAt.Equal(result[b].CreatedAt) {
			return result[a].Id > result[b].Id
		}
		return result[a].CreatedAt.After(result[b].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func hasSlug(tags []Tag, slug string) bool {
	return slices.ContainsFunc(tags, func(t Tag) bool { return t.Slug == slug })
}

func (s *StubRepository) Get(_ context.Context, id int) (Interviewer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.interviewers[id]
	if !ok {
		return Interviewer{}, ErrInterviewerNotFound
	}
	return i, nil
}

func (s *StubRepository) GetByUserId(_ context.Context, userId int) (Interviewer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, i := range s.interviewers {
		if i.UserId == userId {
			return i, nil
		}
	}
	return Interviewer{}, ErrInterviewerNotFound
}

func (s *StubRepository) Create(_ context.Context, interviewer Interviewer) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, i := range s.interviewers {
		if i.UserId == interviewer.UserId {
			return 0, ErrProfileExists
		}
	}
	s.nextId++
	interviewer.Id = s.nextId
	if interviewer.CreatedAt.IsZero() {
		s.now = s.now.Add(time.Minute)
		interviewer.CreatedAt = s.now
	}
	interviewer.UpdatedAt = interviewer.CreatedAt
	s.interviewers[interviewer.Id] = interviewer
	return interviewer.Id, nil
}

func (s *StubRepository) UpdateProfile(_ context.Context, id int, update ProfileUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.interviewers[id]
	if !ok {
		return ErrInterviewerNotFound
	}
	i.Bio = update.Bio
	i.Companies = update.Companies
	i.HourlyRateCents = update.HourlyRateCents
	if update.PhotoKey != "" {
		i.PhotoKey = update.PhotoKey
	}
	i.Technologies = s.pick(TechnologyTag, update.TechnologyIds)
	i.Subjects = s.pick(SubjectTag, update.SubjectIds)
	s.interviewers[id] = i
	return nil
}

func (s *StubRepository) pick(kind TagKind, ids []int) []Tag {
	picked := make([]Tag, 0)
	for _, t := range s.tags[kind] {
		if slices.Contains(ids, t.Id) {
			picked = append(picked, t)
		}
	}
	return picked
}

func (s *StubRepository) ListTags(_ context.Context, kind TagKind) ([]Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tags := slices.Clone(s.tags[kind])
	sort.Slice(tags, func(a, b int) bool { return tags[a].Name < tags[b].Name })
	return tags, nil
}

func (s *StubRepository) CreateTag(_ context.Context, kind TagKind, tag Tag) (Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tags[kind] {
		if t.Slug == tag.Slug || t.Name == tag.Name {
			return Tag{}, ErrTagExists
		}
	}
	s.nextId++
	tag.Id = s.nextId
	s.tags[kind] = append(s.tags[kind], tag)
	return tag, nil
}

func (s *StubRepository) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interviewers = map[int]Interviewer{}
	s.tags = map[TagKind][]Tag{}
	s.nextId = 0
}
