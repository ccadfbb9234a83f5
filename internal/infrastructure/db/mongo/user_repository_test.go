//go:build integration

package mongo_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	drivermongo "go.mongodb.org/mongo-driver/mongo"

	"github.com/letwise/onboarding/internal/core/domain"
	"github.com/letwise/onboarding/internal/infrastructure/db/mongo"
)

var testDB *drivermongo.Database

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		panic("failed to start mongo container: " + err.Error())
	}

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		_ = container.Terminate(ctx)
		panic("failed to get mongo endpoint: " + err.Error())
	}

	client, db, err := mongo.Connect(ctx, mongo.Config{
		URI:      fmt.Sprintf("mongodb://%s", endpoint),
		Database: "onboarding_test",
	})
	if err != nil {
		_ = container.Terminate(ctx)
		panic("failed to connect to mongo: " + err.Error())
	}
	testDB = db

	if err := mongo.NewUserRepository(db).EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		_ = container.Terminate(ctx)
		panic("failed to create indexes: " + err.Error())
	}

	code := m.Run()

	_ = client.Disconnect(ctx)
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func newUser(email string, role domain.Role, p domain.Profile) *domain.User {
	now := time.Now().UTC()
	return &domain.User{
		UserKey:      email,
		Email:        email,
		PasswordHash: "$argon2id$hash",
		Role:         role,
		Profile:      p,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestUserRepository_InsertAndFind(t *testing.T) {
	ctx := context.Background()
	repo := mongo.NewUserRepository(testDB)

	profile := domain.TenantProfile{CurrentAddress: "1 High St", Smoker: "no", Miles: 10}
	id, err := repo.Insert(ctx, newUser("tenant@example.com", domain.RoleTenant, profile))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	byEmail, err := repo.FindByEmail(ctx, "tenant@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, id, byEmail.ID)
	assert.Equal(t, domain.RoleTenant, byEmail.Role)
	assert.Equal(t, profile, byEmail.Profile)

	byID, err := repo.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "tenant@example.com", byID.UserKey)

	byKey, err := repo.FindByUserKey(ctx, "tenant@example.com")
	require.NoError(t, err)
	require.NotNil(t, byKey)
	assert.Equal(t, id, byKey.ID)
}

func TestUserRepository_ServiceProfileRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := mongo.NewUserRepository(testDB)

	profile := domain.ServiceProfile{
		Availability: []string{"Mon", "Tue"},
		KeySkills:    []string{"plumbing"},
		Images:       []string{},
	}
	id, err := repo.Insert(ctx, newUser("cleaner@example.com", domain.RoleCleaner, profile))
	require.NoError(t, err)

	u, err := repo.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, u)
	got, ok := u.Profile.(domain.ServiceProfile)
	require.True(t, ok)
	assert.Equal(t, []string{"Mon", "Tue"}, got.Availability)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := mongo.NewUserRepository(testDB)

	_, err := repo.Insert(ctx, newUser("dup@example.com", domain.RoleLandlord, domain.LandlordProfile{NumberOfProperties: 1}))
	require.NoError(t, err)

	_, err = repo.Insert(ctx, newUser("dup@example.com", domain.RoleLandlord, domain.LandlordProfile{NumberOfProperties: 2}))
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
}

func TestUserRepository_Absent(t *testing.T) {
	ctx := context.Background()
	repo := mongo.NewUserRepository(testDB)

	u, err := repo.FindByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, u)

	u, err = repo.Get(ctx, "not-an-object-id")
	require.NoError(t, err)
	assert.Nil(t, u)

	u, err = repo.Get(ctx, "65f000000000000000000000")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestUserRepository_Patch(t *testing.T) {
	ctx := context.Background()
	repo := mongo.NewUserRepository(testDB)

	id, err := repo.Insert(ctx, newUser("patch@example.com", domain.RoleLandlord, domain.LandlordProfile{NumberOfProperties: 3}))
	require.NoError(t, err)

	hash := "$argon2id$new"
	require.NoError(t, repo.Patch(ctx, id, domain.UserPatch{PasswordHash: &hash}))

	u, err := repo.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, hash, u.PasswordHash)
	assert.Equal(t, domain.LandlordProfile{NumberOfProperties: 3}, u.Profile)

	err = repo.Patch(ctx, "65f000000000000000000000", domain.UserPatch{PasswordHash: &hash})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
