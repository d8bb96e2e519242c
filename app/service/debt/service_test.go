package debt

import (
	"context"
	"debtslayer/app/config"
	"debtslayer/app/service/settings"
	"debtslayer/app/service/storage"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*Service, *settings.Service) {
	t.Helper()

	store, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Shutdown() })

	deadline := time.Now().AddDate(0, 0, 10).Format(settings.DateLayout)
	cfg := &config.Config{
		Debt:     config.Debt{Total: 1_000_000, Deadline: deadline, Personality: "BALANCED"},
		Reminder: config.Reminder{Hour: 19},
	}

	settingsSvc, err := settings.NewService(context.Background(), store, cfg)
	require.NoError(t, err)

	svc, err := NewService(context.Background(), store, settingsSvc)
	require.NoError(t, err)

	return svc, settingsSvc
}

func TestSnapshotWithoutDeposits(t *testing.T) {
	svc, _ := newService(t)

	snap := svc.Snapshot()
	assert.Equal(t, int64(1_000_000), snap.State.RemainingDebt)
	assert.Equal(t, 10, snap.State.DaysRemaining)
	assert.Equal(t, int64(100_000), snap.State.DailyTarget)
	assert.Zero(t, snap.TodayDeposit)
	assert.False(t, snap.HasDeposits())
}

func TestRecordAndDeleteDeposits(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.RecordDeposit(ctx, 100_000, "manual")
	require.NoError(t, err)
	last, err := svc.RecordDeposit(ctx, 50_000, "chat")
	require.NoError(t, err)

	snap := svc.Snapshot()
	assert.Equal(t, int64(150_000), snap.State.TotalPaid)
	assert.Equal(t, int64(150_000), snap.TodayDeposit)
	assert.Equal(t, int64(850_000), snap.State.RemainingDebt)
	require.Len(t, snap.Deposits, 2)
	assert.Equal(t, last.ID, snap.Deposits[0].ID)

	deleted, ok, err := svc.DeleteLastDeposit(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(50_000), deleted.Amount)
	assert.Equal(t, int64(100_000), svc.Snapshot().State.TotalPaid)

	ok, err = svc.DeleteDeposit(ctx, 12345)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.RecordDeposit(ctx, 0, "chat")
	require.ErrorIs(t, err, storage.ErrInvalidAmount)
}

func TestRunFollowsSettingsChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc, settingsSvc := newService(t)

	updates, unsubscribe := svc.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	require.NoError(t, settingsSvc.SetTotalDebt(ctx, 2_000_000))

	require.Eventually(t, func() bool {
		select {
		case snap := <-updates:
			return snap.State.TotalDebt == 2_000_000
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
