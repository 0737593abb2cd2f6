package notification_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncup/syncup/internal/database/dbtest"
	"github.com/syncup/syncup/internal/notification"
)

func TestRepository_CreateListRead(t *testing.T) {
	pool := dbtest.Pool(t)
	repo := notification.NewRepository(pool)
	ctx := context.Background()
	companyID := dbtest.Company(t, pool, "Acme")
	userID := dbtest.User(t, pool, companyID, "ana@acme.io", "member")

	ns := []notification.Notification{
		{CompanyID: companyID, UserID: userID, Kind: notification.KindTaskAssigned, Title: "first"},
		{CompanyID: companyID, UserID: userID, Kind: notification.KindAnnouncement, Title: "second"},
	}
	require.NoError(t, repo.Create(ctx, ns))
	assert.NotEqual(t, uuid.Nil, ns[0].ID)

	count, err := repo.UnreadCount(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, repo.MarkRead(ctx, userID, ns[0].ID))
	assert.ErrorIs(t, repo.MarkRead(ctx, uuid.New(), ns[0].ID), notification.ErrNotificationNotFound)

	unread, err := repo.List(ctx, userID, true, 10)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "second", unread[0].Title)

	changed, err := repo.MarkAllRead(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)

	all, err := repo.List(ctx, userID, false, 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRepository_SentSince(t *testing.T) {
	pool := dbtest.Pool(t)
	repo := notification.NewRepository(pool)
	ctx := context.Background()
	companyID := dbtest.Company(t, pool, "Acme")
	ana := dbtest.User(t, pool, companyID, "ana@acme.io", "member")
	bo := dbtest.User(t, pool, companyID, "bo@acme.io", "member")

	require.NoError(t, repo.Create(ctx, []notification.Notification{
		{CompanyID: companyID, UserID: ana, Kind: notification.KindStandupReminder, Title: "reminder"},
	}))

	sent, err := repo.SentSince(ctx, []uuid.UUID{ana, bo}, notification.KindStandupReminder, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.True(t, sent[ana])
	assert.False(t, sent[bo])
}

func TestListener_ForwardsCommittedNotifications(t *testing.T) {
	pool := dbtest.Pool(t)
	repo := notification.NewRepository(pool)
	companyID := dbtest.Company(t, pool, "Acme")
	userID := dbtest.User(t, pool, companyID, "ana@acme.io", "member")

	hub := notification.NewHub(4)
	ctx, cancel := context.WithCancel(context.Background())
	events := hub.Subscribe(ctx, userID)

	done := make(chan struct{})
	go func() {
		defer close(done)
		notification.NewListener(pool, hub).Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	// LISTEN is issued asynchronously; keep publishing until one arrives.
	deadline := time.After(5 * time.Second)
	for {
		require.NoError(t, repo.Create(context.Background(), []notification.Notification{
			{CompanyID: companyID, UserID: userID, Kind: notification.KindTaskAssigned, Title: "realtime"},
		}))
		select {
		case e := <-events:
			assert.Equal(t, "realtime", e.Title)
			assert.Equal(t, userID, e.UserID)
			return
		case <-time.After(200 * time.Millisecond):
		case <-deadline:
			t.Fatal("no event received")
		}
	}
}
