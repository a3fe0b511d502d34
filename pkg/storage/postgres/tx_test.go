package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"navguard/pkg/domain"
	"navguard/pkg/storage"
	"navguard/pkg/storage/postgres"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newListing(t domain.ListingType, title string) domain.Listing {
	return domain.Listing{
		Type:     t,
		EditorID: domain.EditorID(uuid.New()),
		Title:    title,
		Status:   domain.ListingStatusActive,
	}
}

func TestPgSQL_Begin_SuccessAndAlreadyInTx(t *testing.T) {
	pg, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	txStorage, err := pg.Begin(ctx)
	require.NoError(t, err)
	require.NotNil(t, txStorage)

	inner, ok := txStorage.(*postgres.PgSQL)
	require.True(t, ok)
	_, isTx := inner.DB.(*sql.Tx)
	require.True(t, isTx)

	_, err = inner.Begin(ctx)
	require.ErrorIs(t, err, storage.ErrAlreadyInTx)

	require.NoError(t, inner.Rollback())
}

func TestPgSQL_CommitAndRollback_NotInTx(t *testing.T) {
	pg, cleanup := setupTestDB(t)
	defer cleanup()

	require.ErrorIs(t, pg.Commit(), storage.ErrNotInTx)
	require.ErrorIs(t, pg.Rollback(), storage.ErrNotInTx)
}

func TestPgSQL_Commit_PersistsListing(t *testing.T) {
	pg, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	txStorage, err := pg.Begin(ctx)
	require.NoError(t, err)

	stored, err := txStorage.StoreListings(ctx, newListing(domain.ListingTypeSalon, "Corner salon"))
	require.NoError(t, err)
	require.Len(t, stored, 1)

	require.NoError(t, txStorage.Commit())

	got, err := pg.ListingByID(ctx, stored[0].ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "Corner salon", got.Title)
}

func TestPgSQL_Rollback_DiscardsListing(t *testing.T) {
	pg, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	txStorage, err := pg.Begin(ctx)
	require.NoError(t, err)

	stored, err := txStorage.StoreListings(ctx, newListing(domain.ListingTypeJob, "Nail tech"))
	require.NoError(t, err)

	require.NoError(t, txStorage.Rollback())

	got, err := pg.ListingByID(ctx, stored[0].ID)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestPgSQL_WithTx_CommitAndRollback(t *testing.T) {
	pg, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	var committed domain.ListingID
	err := pg.WithTx(ctx, func(s storage.AllStorage) error {
		stored, e := s.StoreListings(ctx, newListing(domain.ListingTypeBooth, "Chair rental"))
		if e != nil {
			return e //nolint: wrapcheck
		}
		committed = stored[0].ID

		return nil
	})
	require.NoError(t, err)

	got, err := pg.ListingByID(ctx, committed)
	require.NoError(t, err)
	require.NotNil(t, got)

	boom := errors.New("boom")
	var discarded domain.ListingID
	err = pg.WithTx(ctx, func(s storage.AllStorage) error {
		stored, e := s.StoreListings(ctx, newListing(domain.ListingTypeBooth, "Second chair"))
		require.NoError(t, e)
		discarded = stored[0].ID

		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err = pg.ListingByID(ctx, discarded)
	require.NoError(t, err)
	require.Nil(t, got)
}
