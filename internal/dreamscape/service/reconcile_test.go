package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/dreamscape-events/dreamscape/internal/dreamscape/domain"
	"github.com/dreamscape-events/dreamscape/internal/dreamscape/service"
	"github.com/dreamscape-events/dreamscape/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestStatusReconciler_RunOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.signup(t, "Alice", "alice@example.com")

	now := e.clock.Now()
	elapsed := e.createEvent(t, a.ID, "Elapsed", now.Add(-time.Hour))
	cancelled := e.createEvent(t, a.ID, "Cancelled", now.Add(-time.Hour))
	upcoming := e.createEvent(t, a.ID, "Upcoming", now.Add(time.Hour))

	_, err := e.events.SetStatus(ctx, a.ID, cancelled.ID, "cancelled")
	require.NoError(t, err)

	r := service.NewStatusReconciler(e.store, slogx.Discard(), 0)
	r.Now = e.clock.Now
	require.Equal(t, service.DefaultReconcileInterval, r.Interval)

	require.EqualValues(t, 1, r.RunOnce(ctx))
	require.EqualValues(t, 0, r.RunOnce(ctx))

	for id, want := range map[string]domain.Status{
		elapsed.ID:   domain.StatusCompleted,
		cancelled.ID: domain.StatusCancelled,
		upcoming.ID:  domain.StatusPublished,
	} {
		got, err := e.store.Events().GetEvent(ctx, id)
		require.NoError(t, err)
		require.Equal(t, want, got.Status)
	}
}

func TestStatusReconciler_StartStop(t *testing.T) {
	e := newEnv(t)
	a := e.signup(t, "Alice", "alice@example.com")
	v := e.createEvent(t, a.ID, "Elapsed", e.clock.Now().Add(-time.Hour))

	r := service.NewStatusReconciler(e.store, slogx.Discard(), time.Hour)
	r.Now = e.clock.Now
	r.Start()
	require.Eventually(t, func() bool {
		got, err := e.store.Events().GetEvent(context.Background(), v.ID)
		return err == nil && got.Status == domain.StatusCompleted
	}, 5*time.Second, 10*time.Millisecond)
	r.Stop()
}

func TestStatusReconciler_StopWithoutStart(t *testing.T) {
	e := newEnv(t)
	r := service.NewStatusReconciler(e.store, slogx.Discard(), time.Hour)
	r.Stop()
}
