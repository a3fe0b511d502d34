package listings_test

import (
	"context"
	"errors"
	"navguard/internal/listings"
	"navguard/pkg/domain"
	"navguard/pkg/serrors"
	"navguard/pkg/storage"
	"strings"
	"testing"
	"time"

	mocklistings "navguard/internal/listings/mock"
	mockstorage "navguard/pkg/storage/mock"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestService(t *testing.T) (*gomock.Controller, *mockstorage.MockStorage, *mocklistings.MockCacheInvalidator, listings.Service) {
	t.Helper()

	ctrl := gomock.NewController(t)
	st := mockstorage.NewMockStorage(ctrl)
	cache := mocklistings.NewMockCacheInvalidator(ctrl)
	s := listings.New(st, cache, listings.Options{MaxAttempts: 3})

	return ctrl, st, cache, s
}

// helper to wire Storage.WithTx to execute callback with a MockAllStorage.
func expectWithTx(
	t *testing.T,
	ctrl *gomock.Controller,
	m *mockstorage.MockStorage,
	fn func(tx *mockstorage.MockAllStorage)) {
	t.Helper()

	m.EXPECT().WithTx(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, cb func(storage.AllStorage) error) error {
			tx := mockstorage.NewMockAllStorage(ctrl)
			if fn != nil {
				fn(tx)
			}

			return cb(tx)
		},
	)
}

func storeWithID(id domain.ListingID) func(context.Context, ...domain.Listing) ([]domain.Listing, error) {
	return func(_ context.Context, in ...domain.Listing) ([]domain.Listing, error) {
		in[0].ID = id
		in[0].CreatedAt = time.Now()

		return in, nil
	}
}

func TestService_Create_SchedulesExpiration(t *testing.T) {
	ctrl, st, _, s := newTestService(t)

	id := domain.ListingID(uuid.New())
	editor := domain.EditorID(uuid.New())
	expiresAt := time.Now().Add(24 * time.Hour)

	expectWithTx(t, ctrl, st, func(tx *mockstorage.MockAllStorage) {
		tx.EXPECT().StoreListings(gomock.Any(), gomock.Any()).DoAndReturn(storeWithID(id))
		tx.EXPECT().AddJob(gomock.Any(), gomock.Any(), gomock.Nil()).DoAndReturn(
			func(_ context.Context, args river.JobArgs, _ *river.InsertOpts) (bool, error) {
				job, ok := args.(listings.ExpireListingJobArgs)
				require.True(t, ok)
				require.Equal(t, id.String(), job.ListingID)

				opts := job.InsertOpts()
				require.Equal(t, 3, opts.MaxAttempts)
				require.True(t, opts.ScheduledAt.Equal(expiresAt))

				return true, nil
			},
		)
	})

	listing, err := s.Create(context.Background(), editor, listings.NewListing{
		Type:      domain.ListingTypeSalon,
		Title:     "  Corner salon  ",
		ExpiresAt: expiresAt,
	})
	require.NoError(t, err)
	require.Equal(t, id, listing.ID)
	require.Equal(t, editor, listing.EditorID)
	require.Equal(t, "Corner salon", listing.Title)
	require.Equal(t, domain.ListingStatusActive, listing.Status)
}

func TestService_Create_WithoutExpirationSkipsJob(t *testing.T) {
	ctrl, st, _, s := newTestService(t)

	id := domain.ListingID(uuid.New())
	expectWithTx(t, ctrl, st, func(tx *mockstorage.MockAllStorage) {
		tx.EXPECT().StoreListings(gomock.Any(), gomock.Any()).DoAndReturn(storeWithID(id))
		tx.EXPECT().AddJob(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	})

	listing, err := s.Create(context.Background(), domain.EditorID{}, listings.NewListing{
		Type:  domain.ListingTypeBooth,
		Title: "Chair for rent",
	})
	require.NoError(t, err)
	require.True(t, listing.ExpiresAt.IsZero())
}

func TestService_Create_JobFailureFails(t *testing.T) {
	ctrl, st, _, s := newTestService(t)

	expectWithTx(t, ctrl, st, func(tx *mockstorage.MockAllStorage) {
		tx.EXPECT().StoreListings(gomock.Any(), gomock.Any()).DoAndReturn(storeWithID(domain.ListingID(uuid.New())))
		tx.EXPECT().AddJob(gomock.Any(), gomock.Any(), gomock.Nil()).Return(false, errors.New("queue down"))
	})

	_, err := s.Create(context.Background(), domain.EditorID{}, listings.NewListing{
		Type:      domain.ListingTypeJob,
		Title:     "Stylist wanted",
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.ErrorContains(t, err, "queue down")
}

func TestService_Create_Validation(t *testing.T) {
	tests := []struct {
		name    string
		listing listings.NewListing
	}{
		{name: "unknown type", listing: listings.NewListing{Type: "castle", Title: "x"}},
		{name: "blank title", listing: listings.NewListing{Type: domain.ListingTypeJob, Title: "   "}},
		{name: "long title", listing: listings.NewListing{Type: domain.ListingTypeJob, Title: strings.Repeat("a", 201)}},
		{name: "past expiration", listing: listings.NewListing{
			Type: domain.ListingTypeJob, Title: "x", ExpiresAt: time.Now().Add(-time.Minute),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, st, _, s := newTestService(t)
			st.EXPECT().WithTx(gomock.Any(), gomock.Any()).Times(0)

			_, err := s.Create(context.Background(), domain.EditorID{}, tt.listing)
			require.ErrorIs(t, err, serrors.ErrBadRequest)
		})
	}
}

func TestService_Get(t *testing.T) {
	id := domain.ListingID(uuid.New())
	ref := domain.ListingReference{Type: domain.ListingTypeSalon, ID: id.String()}

	t.Run("visible", func(t *testing.T) {
		_, st, _, s := newTestService(t)
		st.EXPECT().ListingByID(gomock.Any(), id).Return(&domain.Listing{
			ID: id, Type: domain.ListingTypeSalon, Status: domain.ListingStatusActive,
		}, nil)

		listing, err := s.Get(context.Background(), ref)
		require.NoError(t, err)
		require.Equal(t, id, listing.ID)
	})

	t.Run("missing", func(t *testing.T) {
		_, st, _, s := newTestService(t)
		st.EXPECT().ListingByID(gomock.Any(), id).Return(nil, nil)

		_, err := s.Get(context.Background(), ref)
		require.ErrorIs(t, err, serrors.ErrNotFound)
	})

	t.Run("other type", func(t *testing.T) {
		_, st, _, s := newTestService(t)
		st.EXPECT().ListingByID(gomock.Any(), id).Return(&domain.Listing{
			ID: id, Type: domain.ListingTypeBooth, Status: domain.ListingStatusActive,
		}, nil)

		_, err := s.Get(context.Background(), ref)
		require.ErrorIs(t, err, serrors.ErrNotFound)
	})

	t.Run("past expiration", func(t *testing.T) {
		_, st, _, s := newTestService(t)
		st.EXPECT().ListingByID(gomock.Any(), id).Return(&domain.Listing{
			ID: id, Type: domain.ListingTypeSalon, Status: domain.ListingStatusActive,
			ExpiresAt: time.Now().Add(-time.Second),
		}, nil)

		_, err := s.Get(context.Background(), ref)
		require.ErrorIs(t, err, serrors.ErrNotFound)
	})

	t.Run("malformed id", func(t *testing.T) {
		_, st, _, s := newTestService(t)
		st.EXPECT().ListingByID(gomock.Any(), gomock.Any()).Times(0)

		_, err := s.Get(context.Background(), domain.ListingReference{Type: domain.ListingTypeSalon, ID: "abc"})
		require.ErrorIs(t, err, serrors.ErrNotFound)
	})
}

func TestService_Expire_EvictsCache(t *testing.T) {
	_, st, cache, s := newTestService(t)

	id := domain.ListingID(uuid.New())
	expired := &domain.Listing{ID: id, Type: domain.ListingTypeJob, Status: domain.ListingStatusExpired}

	st.EXPECT().ExpireListing(gomock.Any(), id, gomock.Any()).Return(expired, nil)
	cache.EXPECT().Forget(gomock.Any(), domain.ListingReference{Type: domain.ListingTypeJob, ID: id.String()}).Return(nil)

	listing, err := s.Expire(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, domain.ListingStatusExpired, listing.Status)
}

func TestService_Expire_CacheFailureIsNotFatal(t *testing.T) {
	_, st, cache, s := newTestService(t)

	id := domain.ListingID(uuid.New())
	st.EXPECT().ExpireListing(gomock.Any(), id, gomock.Any()).Return(&domain.Listing{ID: id, Type: domain.ListingTypeJob}, nil)
	cache.EXPECT().Forget(gomock.Any(), gomock.Any()).Return(errors.New("redis down"))

	_, err := s.Expire(context.Background(), id)
	require.NoError(t, err)
}

func TestService_Expire_Missing(t *testing.T) {
	_, st, cache, s := newTestService(t)

	id := domain.ListingID(uuid.New())
	st.EXPECT().ExpireListing(gomock.Any(), id, gomock.Any()).Return(nil, nil)
	st.EXPECT().ListingByID(gomock.Any(), id).Return(nil, nil)
	cache.EXPECT().Forget(gomock.Any(), gomock.Any()).Times(0)

	_, err := s.Expire(context.Background(), id)
	require.ErrorIs(t, err, serrors.ErrNotFound)
}

func TestService_Expire_AlreadyExpired(t *testing.T) {
	_, st, _, s := newTestService(t)

	id := domain.ListingID(uuid.New())
	st.EXPECT().ExpireListing(gomock.Any(), id, gomock.Any()).Return(nil, nil)
	st.EXPECT().ListingByID(gomock.Any(), id).Return(&domain.Listing{ID: id, Status: domain.ListingStatusExpired}, nil)

	_, err := s.Expire(context.Background(), id)
	require.ErrorIs(t, err, serrors.ErrConflict)
}

func TestService_ExpireDue(t *testing.T) {
	_, st, cache, s := newTestService(t)

	due := []domain.Listing{
		{ID: domain.ListingID(uuid.New()), Type: domain.ListingTypeSalon},
		{ID: domain.ListingID(uuid.New()), Type: domain.ListingTypeOpportunity},
	}
	st.EXPECT().ExpireDueListings(gomock.Any(), gomock.Any()).Return(due, nil)
	cache.EXPECT().Forget(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	n, err := s.ExpireDue(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestService_NilCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mockstorage.NewMockStorage(ctrl)
	s := listings.New(st, nil, listings.Options{})

	st.EXPECT().ExpireDueListings(gomock.Any(), gomock.Any()).Return([]domain.Listing{{Type: domain.ListingTypeJob}}, nil)

	n, err := s.ExpireDue(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)
}
