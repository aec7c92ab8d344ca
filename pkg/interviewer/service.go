package interviewer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/508dev/interview-service/pkg/storage"
	log "github.com/sirupsen/logrus"
)

const FeaturedLimit = 6

var ErrInvalidPhoto = errors.New("photo must be an image")

type Service interface {
	ListActive(ctx context.Context, filter Filter) ([]Interviewer, error)
	Featured(ctx context.Context) ([]Interviewer, error)
	GetActive(ctx context.Context, id int) (Interviewer, error)
	GetByUserId(ctx context.Context, userId int) (Interviewer, error)
	UpdateProfile(ctx context.Context, id int, update ProfileUpdate, photo *storage.Upload) (Interviewer, error)
	ListTechnologies(ctx context.Context) ([]Tag, error)
	ListSubjects(ctx context.Context) ([]Tag, error)
	CreateInterviewer(ctx context.Context, interviewer Interviewer) (Interviewer, error)
	CreateTag(ctx context.Context, kind TagKind, name, slug string) (Tag, error)
}

type ServiceImpl struct {
	repo    Repository
	storage storage.Storage
}

func NewService(repo Repository, store storage.Storage) *ServiceImpl {
	return &ServiceImpl{repo: repo, storage: store}
}

func (s *ServiceImpl) ListActive(ctx context.Context, filter Filter) ([]Interviewer, error) {
	return s.repo.ListActive(ctx, filter, 0)
}

func (s *ServiceImpl) Featured(ctx context.Context) ([]Interviewer, error) {
	return s.repo.ListActive(ctx, Filter{}, FeaturedLimit)
}

func (s *ServiceImpl) GetActive(ctx context.Context, id int) (Interviewer, error) {
	i, err := s.repo.Get(ctx, id)
	if err != nil {
		return Interviewer{}, err
	}
	if !i.IsActive {
		return Interviewer{}, ErrInterviewerNotFound
	}
	return i, nil
}

func (s *ServiceImpl) GetByUserId(ctx context.Context, userId int) (Interviewer, error) {
	return s.repo.GetByUserId(ctx, userId)
}

func (s *ServiceImpl) UpdateProfile(ctx context.Context, id int, update ProfileUpdate, photo *storage.Upload) (Interviewer, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Interviewer{}, err
	}
	if update.HourlyRateCents < 0 || update.HourlyRateCents > MaxRateCents {
		return Interviewer{}, ErrInvalidRate
	}

	update.PhotoKey = ""
	if photo != nil {
		if !strings.HasPrefix(photo.ContentType, "image/") {
			return Interviewer{}, ErrInvalidPhoto
		}
		key, err := storage.Store(ctx, s.storage, storage.PhotoPrefix, photo)
		if err != nil {
			return Interviewer{}, fmt.Errorf("could not store photo: %w", err)
		}
		update.PhotoKey = key
	}

	if err := s.repo.UpdateProfile(ctx, id, update); err != nil {
		if update.PhotoKey != "" {
			s.deletePhoto(ctx, update.PhotoKey)
		}
		return Interviewer{}, err
	}
	if update.PhotoKey != "" && current.PhotoKey != "" {
		s.deletePhoto(ctx, current.PhotoKey)
	}
	return s.repo.Get(ctx, id)
}

func (s *ServiceImpl) deletePhoto(ctx context.Context, key string) {
	if err := s.storage.Delete(ctx, key); err != nil {
		log.Errorf("failed to delete photo %s: %v", key, err)
	}
}

func (s *ServiceImpl) ListTechnologies(ctx context.Context) ([]Tag, error) {
	return s.repo.ListTags(ctx, TechnologyTag)
}

func (s *ServiceImpl) ListSubjects(ctx context.Context) ([]Tag, error) {
	return s.repo.ListTags(ctx, SubjectTag)
}

func (s *ServiceImpl) CreateInterviewer(ctx context.Context, interviewer Interviewer) (Interviewer, error) {
	if interviewer.UserId == 0 {
		return Interviewer{}, fmt.Errorf("user is required")
	}
	if strings.TrimSpace(interviewer.CalEventTypeId) == "" {
		return Interviewer{}, fmt.Errorf("cal.com event type is required")
	}
	if interviewer.HourlyRateCents < 0 || interviewer.HourlyRateCents > MaxRateCents {
		return Interviewer{}, ErrInvalidRate
	}
	id, err := s.repo.Create(ctx, interviewer)
	if err != nil {
		return Interviewer{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *ServiceImpl) CreateTag(ctx context.Context, kind TagKind, name, slug string) (Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Tag{}, fmt.Errorf("name is required")
	}
	if slug == "" {
		slug = Slugify(name)
	}
	if slug == "" {
		return Tag{}, fmt.Errorf("could not derive slug from %q", name)
	}
	return s.repo.CreateTag(ctx, kind, Tag{Name: name, Slug: slug})
}

// Slugify lowercases s and joins its alphanumeric runs with dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
		case r == '+':
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteString("plus")
			dash = false
		case r == '#':
			b.WriteString("sharp")
			dash = false
		default:
			dash = true
		}
	}
	return b.String()
}
