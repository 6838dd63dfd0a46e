package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/feedback_tag_server/internal/model"
	"github.com/qs3c/feedback_tag_server/internal/testutil"
)

func TestUserRepository_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)

	user := &model.User{Name: "John Doe"}
	require.NoError(t, repo.Create(user))
	assert.NotZero(t, user.ID)
	assert.Equal(t, 0, user.Count)
}

func TestUserRepository_DuplicateNamesAllowed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)

	a := testutil.TestUser(t, db, testutil.WithName("Jane Smith"))
	b := testutil.TestUser(t, db, testutil.WithName("Jane Smith"))
	assert.NotEqual(t, a.ID, b.ID)

	require.NoError(t, repo.IncrementCount(a.ID))

	foundA, err := repo.GetByID(a.ID)
	require.NoError(t, err)
	foundB, err := repo.GetByID(b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, foundA.Count)
	assert.Equal(t, 0, foundB.Count)
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)

	_, err := repo.GetByID(99999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUserRepository_ListByCount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)

	low := testutil.TestUser(t, db, testutil.WithName("low"), testutil.WithCount(3))
	high := testutil.TestUser(t, db, testutil.WithName("high"), testutil.WithCount(40))
	tieA := testutil.TestUser(t, db, testutil.WithName("tie-a"), testutil.WithCount(10))
	tieB := testutil.TestUser(t, db, testutil.WithName("tie-b"), testutil.WithCount(10))

	users, err := repo.ListByCount()
	require.NoError(t, err)
	require.Len(t, users, 4)
	assert.Equal(t, high.ID, users[0].ID)
	assert.Equal(t, tieA.ID, users[1].ID)
	assert.Equal(t, tieB.ID, users[2].ID)
	assert.Equal(t, low.ID, users[3].ID)
}

func TestUserRepository_List(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)

	first := testutil.TestUser(t, db, testutil.WithCount(1))
	second := testutil.TestUser(t, db, testutil.WithCount(99))

	users, err := repo.List()
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, first.ID, users[0].ID)
	assert.Equal(t, second.ID, users[1].ID)
}

func TestUserRepository_UpdateName(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)
	user := testutil.TestUser(t, db, testutil.WithName("Old Name"))

	require.NoError(t, repo.UpdateName(user.ID, "New Name"))

	found, err := repo.GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "New Name", found.Name)

	err = repo.UpdateName(99999, "x")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUserRepository_IncrementCount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)
	user := testutil.TestUser(t, db, testutil.WithCount(5))

	require.NoError(t, repo.IncrementCount(user.ID))
	require.NoError(t, repo.IncrementCountDirect(user.ID))

	updated, err := repo.GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, updated.Count)
}

func TestUserRepository_IncrementCount_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)

	assert.ErrorIs(t, repo.IncrementCount(99999), gorm.ErrRecordNotFound)
	assert.ErrorIs(t, repo.IncrementCountDirect(99999), gorm.ErrRecordNotFound)
}
