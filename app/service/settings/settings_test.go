package settings

import (
	"context"
	"debtslayer/app/client/model"
	"debtslayer/app/config"
	"debtslayer/app/service/personality"
	"debtslayer/app/service/storage"
	"debtslayer/app/util/broadcast"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.Local)

func newService(t *testing.T, cfg *config.Config) (*Service, *storage.Store) {
	t.Helper()

	store, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Shutdown() })

	if cfg == nil {
		cfg = &config.Config{
			Debt:     config.Debt{Total: 3_000_000, Personality: "STRICT"},
			Reminder: config.Reminder{Hour: 19},
		}
	}

	svc := &Service{store: store, cfg: cfg}
	svc.now = func() time.Time { return fixedNow }
	svc.updates = broadcast.New[Snapshot]("settings", 4)
	require.NoError(t, svc.Reload(context.Background()))

	return svc, store
}

func TestDefaultsFromConfig(t *testing.T) {
	svc, store := newService(t, nil)

	snap := svc.Snapshot()
	assert.Equal(t, int64(3_000_000), snap.TotalDebt)
	assert.Equal(t, personality.Strict, snap.Personality)
	assert.Equal(t, 19, snap.ReminderHour)
	assert.Equal(t, "2026-03-31", snap.Deadline)
	assert.False(t, snap.CustomDeadline)
	assert.False(t, snap.OnboardingDone)

	// the initial deadline is persisted so it does not move on restart
	v, ok, err := store.Setting(context.Background(), keyInitialDeadline)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2026-03-31", v)
}

func TestDeadlinePrecedence(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, &config.Config{Debt: config.Debt{Total: 1_000_000, Deadline: "2026-06-30"}})

	assert.Equal(t, "2026-06-30", svc.Snapshot().Deadline)

	require.NoError(t, svc.SetDeadline(ctx, "2026-05-01"))
	assert.Equal(t, "2026-05-01", svc.Snapshot().Deadline)
	assert.True(t, svc.Snapshot().CustomDeadline)

	require.NoError(t, svc.ResetDeadline(ctx))
	assert.Equal(t, "2026-06-30", svc.Snapshot().Deadline)
}

func TestSetDeadlineRejectsPastAndToday(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, nil)

	require.ErrorIs(t, svc.SetDeadline(ctx, "2026-03-01"), ErrInvalidDeadline)
	require.ErrorIs(t, svc.SetDeadline(ctx, "2026-02-01"), ErrInvalidDeadline)
	require.ErrorIs(t, svc.SetDeadline(ctx, "01-04-2026"), ErrInvalidDeadline)
	require.NoError(t, svc.SetDeadline(ctx, "2026-03-02"))
}

func TestDeadlineTime(t *testing.T) {
	snap := Snapshot{Deadline: "2026-03-10"}
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), snap.DeadlineTime(time.UTC))
	assert.True(t, Snapshot{}.DeadlineTime(time.UTC).IsZero())
}

func TestSettersPublishUpdates(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, nil)

	updates, unsubscribe := svc.Subscribe()
	defer unsubscribe()

	require.NoError(t, svc.SetTotalDebt(ctx, 4_500_000))

	select {
	case snap := <-updates:
		assert.Equal(t, int64(4_500_000), snap.TotalDebt)
	case <-time.After(time.Second):
		t.Fatal("no settings update published")
	}

	require.ErrorIs(t, svc.SetTotalDebt(ctx, 0), ErrInvalidDebt)
	require.ErrorIs(t, svc.SetPersonality(ctx, "chaotic"), ErrInvalidMode)
	require.ErrorIs(t, svc.SetReminderTime(ctx, 24, 0), ErrInvalidTime)

	require.NoError(t, svc.SetPersonality(ctx, "gentle"))
	require.NoError(t, svc.SetReminderTime(ctx, 7, 30))

	snap := svc.Snapshot()
	assert.Equal(t, personality.Gentle, svc.PersonalityMode())
	assert.Equal(t, 7, snap.ReminderHour)
	assert.Equal(t, 30, snap.ReminderMinute)
}

func TestCompleteOnboardingClearsMessages(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, nil)

	_, err := store.SaveMessage(ctx, "halo", true)
	require.NoError(t, err)

	require.NoError(t, svc.CompleteOnboarding(ctx, 2_000_000, "2026-04-15"))

	snap := svc.Snapshot()
	assert.True(t, snap.OnboardingDone)
	assert.Equal(t, int64(2_000_000), snap.TotalDebt)
	assert.Equal(t, "2026-04-15", snap.Deadline)
	assert.Equal(t, "2026-03-01", snap.SetupDate)

	messages, err := store.Messages(ctx, time.Now().Format(storage.SessionDateLayout))
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestUsageSurvivesReloadAndResetsDaily(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, nil)

	require.NoError(t, svc.RecordRequest(ctx, "primary"))
	require.NoError(t, svc.RecordRequest(ctx, "primary"))
	require.NoError(t, svc.RecordTokens(ctx, model.Usage{PromptTokens: 10, CandidateTokens: 5, TotalTokens: 15}))

	require.NoError(t, svc.Reload(ctx))

	date, count := svc.DailyRequests("primary")
	assert.Equal(t, fixedNow.UTC().Format(DateLayout), date)
	assert.Equal(t, 2, count)
	assert.Equal(t, 15, svc.DailyUsage().Tokens.TotalTokens)

	svc.now = func() time.Time { return fixedNow.Add(48 * time.Hour) }
	_, count = svc.DailyRequests("primary")
	assert.Zero(t, count)
	assert.Zero(t, svc.DailyUsage().Tokens.TotalTokens)
}
