package cli

import (
	"context"
	"testing"

	"github.com/508dev/interview-service/pkg/interviewer"
	"github.com/508dev/interview-service/pkg/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var ctx = context.Background()

func setupAdmin(t *testing.T) (user.Service, *user.StubUserRepository, interviewer.Service) {
	users := user.NewStubUserRepository()
	t.Cleanup(users.Reset)
	return user.NewUserServiceWithCost(users, bcrypt.MinCost), users, interviewer.NewService(interviewer.NewStubRepository(), nil)
}

func validInterviewerOptions() *interviewerOptions {
	return &interviewerOptions{
		username:     "jane",
		email:        "jane@508.dev",
		firstName:    "Jane",
		lastName:     "Doe",
		password:     "secret123",
		calEventType: "jane/60min",
		rate:         "150.00",
	}
}

func TestCreateInterviewer(t *testing.T) {
	t.Run("should create login and active profile", func(t *testing.T) {
		// given
		users, _, interviewers := setupAdmin(t)

		// when
		i, err := createInterviewer(ctx, users, interviewers, validInterviewerOptions())

		// then
		require.NoError(t, err)
		assert.Equal(t, int64(15000), i.HourlyRateCents)
		assert.True(t, i.IsActive)
		u, err := users.Authenticate(ctx, "jane", "secret123")
		require.NoError(t, err)
		assert.Equal(t, u.Id, i.UserId)
	})

	t.Run("should remove the login when the profile can not be created", func(t *testing.T) {
		// given
		users, repo, interviewers := setupAdmin(t)
		opts := validInterviewerOptions()
		opts.calEventType = " "

		// when
		_, err := createInterviewer(ctx, users, interviewers, opts)

		// then
		require.Error(t, err)
		_, err = repo.GetUserByUsername(ctx, "jane")
		assert.ErrorIs(t, err, user.ErrUserNotFound)
	})

	t.Run("should allow retrying after a failed attempt", func(t *testing.T) {
		// given
		users, _, interviewers := setupAdmin(t)
		opts := validInterviewerOptions()
		opts.calEventType = ""
		_, err := createInterviewer(ctx, users, interviewers, opts)
		require.Error(t, err)

		// when
		_, err = createInterviewer(ctx, users, interviewers, validInterviewerOptions())

		// then
		assert.NoError(t, err)
	})

	t.Run("should reject invalid rate before creating the login", func(t *testing.T) {
		// given
		users, repo, interviewers := setupAdmin(t)
		opts := validInterviewerOptions()
		opts.rate = "lots"

		// when
		_, err := createInterviewer(ctx, users, interviewers, opts)

		// then
		assert.ErrorIs(t, err, interviewer.ErrInvalidRate)
		_, err = repo.GetUserByUsername(ctx, "jane")
		assert.ErrorIs(t, err, user.ErrUserNotFound)
	})
}

func TestParseTagKind(t *testing.T) {
	for input, expected := range map[string]interviewer.TagKind{
		"technology":   interviewer.TechnologyTag,
		" Technology ": interviewer.TechnologyTag,
		"subject":      interviewer.SubjectTag,
		"type":         interviewer.SubjectTag,
	} {
		kind, err := parseTagKind(input)
		require.NoError(t, err, input)
		assert.Equal(t, expected, kind, input)
	}

	_, err := parseTagKind("company")
	assert.Error(t, err)
}

func TestRootCmd(t *testing.T) {
	root := newRootCmd()

	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}

	assert.Subset(t, names, []string{"serve", "migrate", "create-interviewer", "create-tag", "set-password"})
	assert.Equal(t, defaultConfigPath, root.PersistentFlags().Lookup("config").DefValue)
}

func TestCreateTagCmd_RejectsUnknownKind(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"create-tag", "company", "Google"})

	err := root.Execute()

	assert.ErrorContains(t, err, "unknown tag kind")
}
