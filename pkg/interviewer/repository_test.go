package interviewer

import (
	"context"
	"os"
	"testing"

	"github.com/508dev/interview-service/internal/test_utils"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var pgContainer *postgres.PostgresContainer
var openDb func() *pgxpool.Pool

func TestMain(m *testing.M) {
	pgContainer, openDb = test_utils.TestWithDB()
	code := m.Run()
	if err := testcontainers.TerminateContainer(pgContainer); err != nil {
		log.Errorf("failed to terminate container: %s", err)
	}
	os.Exit(code)
}

func setupTestRepository(t *testing.T) (context.Context, *RepositoryImpl, *pgxpool.Pool) {
	ctx := context.Background()
	db := openDb()
	t.Cleanup(func() {
		db.Close()
		err := pgContainer.Restore(ctx)
		require.NoError(t, err)
	})
	return ctx, NewRepository(db), db
}

func TestRepositoryImpl_ListActive(t *testing.T) {
	t.Run("should return active interviewers newest first with tags", func(t *testing.T) {
		// given
		ctx, repo, db := setupTestRepository(t)
		first := test_utils.InsertInterviewer(t, db, true, 15000)
		second := test_utils.InsertInterviewer(t, db, true, 10000)
		test_utils.InsertInterviewer(t, db, false, 10000)
		_, err := db.Exec(ctx, "UPDATE interviewer SET created_at = now() - interval '1 day' WHERE id = $1", first)
		require.NoError(t, err)

		python, err := repo.CreateTag(ctx, TechnologyTag, Tag{Name: "Python", Slug: "python"})
		require.NoError(t, err)
		golang, err := repo.CreateTag(ctx, TechnologyTag, Tag{Name: "Go", Slug: "go"})
		require.NoError(t, err)
		require.NoError(t, repo.UpdateProfile(ctx, first, ProfileUpdate{Bio: "b", HourlyRateCents: 15000,
			TechnologyIds: []int{python.Id, golang.Id}}))

		// when
		list, err := repo.ListActive(ctx, Filter{}, 0)

		// then
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, second, list[0].Id)
		assert.Equal(t, first, list[1].Id)
		assert.Equal(t, []Tag{golang, python}, list[1].Technologies)
		assert.Equal(t, "Test", list[1].FirstName)
	})

	t.Run("should filter by technology and subject without duplicates", func(t *testing.T) {
		// given
		ctx, repo, db := setupTestRepository(t)
		match := test_utils.InsertInterviewer(t, db, true, 15000)
		techOnly := test_utils.InsertInterviewer(t, db, true, 15000)

		python, err := repo.CreateTag(ctx, TechnologyTag, Tag{Name: "Python", Slug: "python"})
		require.NoError(t, err)
		django, err := repo.CreateTag(ctx, TechnologyTag, Tag{Name: "Django", Slug: "django"})
		require.NoError(t, err)
		design, err := repo.CreateTag(ctx, SubjectTag, Tag{Name: "System Design", Slug: "system-design"})
		require.NoError(t, err)
		require.NoError(t, repo.UpdateProfile(ctx, match, ProfileUpdate{Bio: "b",
			TechnologyIds: []int{python.Id, django.Id}, SubjectIds: []int{design.Id}}))
		require.NoError(t, repo.UpdateProfile(ctx, techOnly, ProfileUpdate{Bio: "b",
			TechnologyIds: []int{python.Id}}))

		// when
		byTech, err := repo.ListActive(ctx, Filter{TechnologySlug: "python"}, 0)
		require.NoError(t, err)
		byBoth, err := repo.ListActive(ctx, Filter{TechnologySlug: "python", SubjectSlug: "system-design"}, 0)
		require.NoError(t, err)
		unknown, err := repo.ListActive(ctx, Filter{TechnologySlug: "rust"}, 0)
		require.NoError(t, err)

		// then
		assert.Len(t, byTech, 2)
		require.Len(t, byBoth, 1)
		assert.Equal(t, match, byBoth[0].Id)
		assert.Empty(t, unknown)
	})

	t.Run("should apply limit", func(t *testing.T) {
		ctx, repo, db := setupTestRepository(t)
		for n := 0; n < 8; n++ {
			test_utils.InsertInterviewer(t, db, true, 15000)
		}

		list, err := repo.ListActive(ctx, Filter{}, FeaturedLimit)

		require.NoError(t, err)
		assert.Len(t, list, FeaturedLimit)
	})
}

func TestRepositoryImpl_Get(t *testing.T) {
	ctx, repo, db := setupTestRepository(t)
	id := test_utils.InsertInterviewer(t, db, false, 12345)

	i, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, i.IsActive)
	assert.Equal(t, int64(12345), i.HourlyRateCents)
	assert.Equal(t, []string{"Google", "Meta", "Amazon"}, i.CompanyList())

	byUser, err := repo.GetByUserId(ctx, i.UserId)
	require.NoError(t, err)
	assert.Equal(t, id, byUser.Id)

	_, err = repo.Get(ctx, 424242)
	assert.ErrorIs(t, err, ErrInterviewerNotFound)
	_, err = repo.GetByUserId(ctx, 424242)
	assert.ErrorIs(t, err, ErrInterviewerNotFound)
}

func TestRepositoryImpl_UpdateProfile(t *testing.T) {
	t.Run("should replace tags and keep photo when key is empty", func(t *testing.T) {
		// given
		ctx, repo, db := setupTestRepository(t)
		id := test_utils.InsertInterviewer(t, db, true, 15000)
		python, err := repo.CreateTag(ctx, TechnologyTag, Tag{Name: "Python", Slug: "python"})
		require.NoError(t, err)
		golang, err := repo.CreateTag(ctx, TechnologyTag, Tag{Name: "Go", Slug: "go"})
		require.NoError(t, err)
		require.NoError(t, repo.UpdateProfile(ctx, id, ProfileUpdate{Bio: "v1", PhotoKey: "interviewers/a.jpg",
			TechnologyIds: []int{python.Id}}))

		// when
		err = repo.UpdateProfile(ctx, id, ProfileUpdate{Bio: "v2", Companies: "Stripe", HourlyRateCents: 20000,
			TechnologyIds: []int{golang.Id, 999999}})

		// then
		require.NoError(t, err)
		i, err := repo.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "v2", i.Bio)
		assert.Equal(t, "Stripe", i.Companies)
		assert.Equal(t, int64(20000), i.HourlyRateCents)
		assert.Equal(t, "interviewers/a.jpg", i.PhotoKey)
		assert.Equal(t, []Tag{golang}, i.Technologies)
		assert.Empty(t, i.Subjects)
	})

	t.Run("should report missing interviewer", func(t *testing.T) {
		ctx, repo, _ := setupTestRepository(t)

		err := repo.UpdateProfile(ctx, 424242, ProfileUpdate{Bio: "b"})

		assert.ErrorIs(t, err, ErrInterviewerNotFound)
	})
}

func TestRepositoryImpl_Tags(t *testing.T) {
	ctx, repo, _ := setupTestRepository(t)
	_, err := repo.CreateTag(ctx, SubjectTag, Tag{Name: "System Design", Slug: "system-design"})
	require.NoError(t, err)
	_, err = repo.CreateTag(ctx, SubjectTag, Tag{Name: "Behavioral", Slug: "behavioral"})
	require.NoError(t, err)

	_, err = repo.CreateTag(ctx, SubjectTag, Tag{Name: "Behavioral", Slug: "behavioral-2"})
	assert.ErrorIs(t, err, ErrTagExists)

	tags, err := repo.ListTags(ctx, SubjectTag)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "Behavioral", tags[0].Name)

	technologies, err := repo.ListTags(ctx, TechnologyTag)
	require.NoError(t, err)
	assert.Empty(t, technologies)
}

func TestRepositoryImpl_Create(t *testing.T) {
	ctx, repo, db := setupTestRepository(t)
	userId := test_utils.InsertUser(t, db, "Jane", "Doe")

	id, err := repo.Create(ctx, Interviewer{UserId: userId, Bio: "b", CalEventTypeId: "jane/60min", HourlyRateCents: 9000, IsActive: true})
	require.NoError(t, err)

	i, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", i.DisplayName())

	_, err = repo.Create(ctx, Interviewer{UserId: userId, Bio: "b", CalEventTypeId: "x"})
	assert.ErrorIs(t, err, ErrProfileExists)
}
