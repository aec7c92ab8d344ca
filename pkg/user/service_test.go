package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func setupServiceTest(t *testing.T) (*ServiceImpl, *StubUserRepository) {
	repo := NewStubUserRepository()
	t.Cleanup(repo.Reset)
	return NewUserServiceWithCost(repo, bcrypt.MinCost), repo
}

func TestServiceImpl_CreateUser(t *testing.T) {
	t.Run("should store a bcrypt hash instead of the password", func(t *testing.T) {
		// given
		service, repo := setupServiceTest(t)

		// when
		created, err := service.CreateUser(context.Background(), User{Username: "jane"}, "testpass123")

		// then
		require.NoError(t, err)
		stored, err := repo.GetUser(context.Background(), created.Id)
		require.NoError(t, err)
		assert.NotEqual(t, "testpass123", stored.PasswordHash)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("testpass123")))
	})

	t.Run("should reject short passwords", func(t *testing.T) {
		// given
		service, _ := setupServiceTest(t)

		// when
		_, err := service.CreateUser(context.Background(), User{Username: "jane"}, "short")

		// then
		assert.Error(t, err)
	})

	t.Run("should reject duplicate usernames", func(t *testing.T) {
		// given
		service, _ := setupServiceTest(t)
		_, err := service.CreateUser(context.Background(), User{Username: "jane"}, "testpass123")
		require.NoError(t, err)

		// when
		_, err = service.CreateUser(context.Background(), User{Username: "jane"}, "otherpass123")

		// then
		assert.ErrorIs(t, err, ErrUsernameTaken)
	})
}

func TestServiceImpl_Authenticate(t *testing.T) {
	t.Run("should return the user for valid credentials", func(t *testing.T) {
		// given
		service, _ := setupServiceTest(t)
		created, err := service.CreateUser(context.Background(), User{Username: "jane"}, "testpass123")
		require.NoError(t, err)

		// when
		u, err := service.Authenticate(context.Background(), "jane", "testpass123")

		// then
		require.NoError(t, err)
		assert.Equal(t, created.Id, u.Id)
	})

	t.Run("should reject a wrong password", func(t *testing.T) {
		// given
		service, _ := setupServiceTest(t)
		_, err := service.CreateUser(context.Background(), User{Username: "jane"}, "testpass123")
		require.NoError(t, err)

		// when
		_, err = service.Authenticate(context.Background(), "jane", "wrongpass")

		// then
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("should reject an unknown user with the same error", func(t *testing.T) {
		// given
		service, _ := setupServiceTest(t)

		// when
		_, err := service.Authenticate(context.Background(), "wronguser", "wrongpass")

		// then
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestServiceImpl_SetPassword(t *testing.T) {
	// given
	service, _ := setupServiceTest(t)
	created, err := service.CreateUser(context.Background(), User{Username: "jane"}, "testpass123")
	require.NoError(t, err)

	// when
	err = service.SetPassword(context.Background(), created.Id, "newpass12345")

	// then
	require.NoError(t, err)
	_, err = service.Authenticate(context.Background(), "jane", "newpass12345")
	assert.NoError(t, err)
	_, err = service.Authenticate(context.Background(), "jane", "testpass123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUser_FullName(t *testing.T) {
	assert.Equal(t, "John Doe", User{FirstName: "John", LastName: "Doe"}.FullName())
	assert.Equal(t, "John", User{FirstName: "John"}.FullName())
	assert.Equal(t, "", User{Username: "jdoe"}.FullName())
}
