package repository

import (
	"context"
	"testing"

	"github.com/matic113/freelance-platform-sub003/internal/domain"
	"github.com/matic113/freelance-platform-sub003/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContractRepo_CreateAndGetByID(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteContractRepo(db)
	ctx := context.Background()

	c := testutil.NewTestContract("Website", testutil.WithTotal("1234.50"))
	c.Description = "Rebuild the marketing site"
	require.NoError(t, repo.Create(ctx, c))

	fetched, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, fetched.ID)
	assert.Equal(t, "Website", fetched.Title)
	assert.Equal(t, "Rebuild the marketing site", fetched.Description)
	assert.True(t, testutil.Dec("1234.50").Equal(fetched.TotalAmount))
	assert.Equal(t, "USD", fetched.Currency)
	assert.Equal(t, domain.ContractPending, fetched.Status)
	assert.Equal(t, c.StartDate.Format("2006-01-02"), fetched.StartDate.Format("2006-01-02"))
	assert.Equal(t, 1, fetched.Version)
	assert.True(t, c.CreatedAt.Equal(fetched.CreatedAt))
	assert.Nil(t, fetched.AcceptedAt)
}

func TestContractRepo_GetByID_NotFound(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteContractRepo(db)

	_, err := repo.GetByID(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestContractRepo_Create_DuplicateID(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteContractRepo(db)
	ctx := context.Background()

	c := testutil.NewTestContract("Website")
	require.NoError(t, repo.Create(ctx, c))
	assert.ErrorIs(t, repo.Create(ctx, c), domain.ErrConflict)
}

func TestContractRepo_ListByParty(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteContractRepo(db)
	ctx := context.Background()

	mine := testutil.NewTestContract("Mine")
	asFreelancer := testutil.NewTestContract("As freelancer", testutil.WithParties("other-client", testutil.ClientID))
	unrelated := testutil.NewTestContract("Unrelated", testutil.WithParties("x", "y"))
	for _, c := range []*domain.Contract{mine, asFreelancer, unrelated} {
		require.NoError(t, repo.Create(ctx, c))
	}

	list, err := repo.ListByParty(ctx, testutil.ClientID)
	require.NoError(t, err)
	ids := []string{}
	for _, c := range list {
		ids = append(ids, c.ID)
	}
	assert.ElementsMatch(t, []string{mine.ID, asFreelancer.ID}, ids)
}

func TestContractRepo_Update_BumpsVersion(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteContractRepo(db)
	ctx := context.Background()

	c := testutil.NewTestContract("Website")
	require.NoError(t, repo.Create(ctx, c))

	now := testutil.Now()
	require.NoError(t, c.Accept(now))
	require.NoError(t, repo.Update(ctx, c))
	assert.Equal(t, 2, c.Version)

	fetched, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ContractActive, fetched.Status)
	assert.Equal(t, 2, fetched.Version)
	require.NotNil(t, fetched.AcceptedAt)
	assert.True(t, now.Equal(*fetched.AcceptedAt))
}

func TestContractRepo_Update_StaleVersionConflicts(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteContractRepo(db)
	ctx := context.Background()

	c := testutil.NewTestContract("Website")
	require.NoError(t, repo.Create(ctx, c))

	first, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	second, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)

	require.NoError(t, first.Accept(testutil.Now()))
	require.NoError(t, repo.Update(ctx, first))

	require.NoError(t, second.Reject(testutil.Now()))
	err = repo.Update(ctx, second)
	assert.ErrorIs(t, err, domain.ErrConflict)

	stored, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ContractActive, stored.Status)
}
