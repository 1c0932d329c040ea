package lifecycle

import (
	"context"
	"testing"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/vahti/cloud"
	"github.com/yairfalse/vahti/credentials"
	"github.com/yairfalse/vahti/executor"
	"github.com/yairfalse/vahti/policy"
	"github.com/yairfalse/vahti/reconciler"
	"github.com/yairfalse/vahti/scanner"
	"github.com/yairfalse/vahti/store"
	"github.com/yairfalse/vahti/telemetry"
	"github.com/yairfalse/vahti/types"
)

// fakeCloud backs both the inventory and the action surface
type fakeCloud struct {
	instanceStates map[string]string
	groupCapacity  map[string]types.CapacityState
	volumes        []cloud.Volume
	calls          []string
}

func newLifecycleFakeCloud() *fakeCloud {
	return &fakeCloud{
		instanceStates: make(map[string]string),
		groupCapacity:  make(map[string]types.CapacityState),
	}
}

func (f *fakeCloud) record(call string) { f.calls = append(f.calls, call) }

func (f *fakeCloud) InstanceState(ctx context.Context, id string) (string, error) {
	return f.instanceStates[id], nil
}

func (f *fakeCloud) StopInstance(ctx context.Context, id string) error {
	f.record("StopInstance:" + id)
	f.instanceStates[id] = "stopped"
	return nil
}

func (f *fakeCloud) StartInstance(ctx context.Context, id string) error {
	f.record("StartInstance:" + id)
	f.instanceStates[id] = "running"
	return nil
}

func (f *fakeCloud) ModifyInstanceType(ctx context.Context, id, class string) error {
	f.record("ModifyInstanceType:" + id + ":" + class)
	return nil
}

func (f *fakeCloud) TerminateInstance(ctx context.Context, id string) error {
	f.record("TerminateInstance:" + id)
	return nil
}

func (f *fakeCloud) DatabaseState(ctx context.Context, id string) (string, error) {
	return "available", nil
}

func (f *fakeCloud) StopDatabase(ctx context.Context, id string) error  { return nil }
func (f *fakeCloud) StartDatabase(ctx context.Context, id string) error { return nil }

func (f *fakeCloud) ModifyDatabaseClass(ctx context.Context, id, class string) error { return nil }
func (f *fakeCloud) DeleteDatabase(ctx context.Context, id string) error             { return nil }

func (f *fakeCloud) GroupCapacity(ctx context.Context, name string) (*types.CapacityState, error) {
	c := f.groupCapacity[name]
	return &c, nil
}

func (f *fakeCloud) SetGroupCapacity(ctx context.Context, name string, capacity types.CapacityState) error {
	f.groupCapacity[name] = capacity
	return nil
}

func (f *fakeCloud) ServiceCapacity(ctx context.Context, id string) (*types.CapacityState, error) {
	c := f.groupCapacity[id]
	return &c, nil
}

func (f *fakeCloud) SetServiceCapacity(ctx context.Context, id string, capacity types.CapacityState) error {
	f.groupCapacity[id] = capacity
	return nil
}

func (f *fakeCloud) DeleteVolume(ctx context.Context, id string) error {
	f.record("DeleteVolume:" + id)
	return nil
}

func (f *fakeCloud) ReleaseAddress(ctx context.Context, allocationID string) error {
	f.record("ReleaseAddress:" + allocationID)
	return nil
}

func (f *fakeCloud) DeleteNetworkInterface(ctx context.Context, id string) error {
	f.record("DeleteNetworkInterface:" + id)
	return nil
}

func (f *fakeCloud) ListVolumes(ctx context.Context) ([]cloud.Volume, error) {
	return f.volumes, nil
}

func (f *fakeCloud) ListAddresses(ctx context.Context) ([]cloud.Address, error) { return nil, nil }

func (f *fakeCloud) ListStoppedInstances(ctx context.Context) ([]cloud.Instance, error) {
	return nil, nil
}

func (f *fakeCloud) ListNetworkInterfaces(ctx context.Context) ([]cloud.NetworkInterface, error) {
	return nil, nil
}

func (f *fakeCloud) Region() string { return "eu-west-1" }

type fixture struct {
	coordinator *Coordinator
	store       *store.Store
	cloud       *fakeCloud
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	logger := telemetry.NewLogger("lifecycle-test")
	gate, err := policy.NewGate(context.Background(), logger)
	require.NoError(t, err)

	creds := credentials.NewStaticResolver("eu-west-1")
	creds.Add("user-42", "AKIATEST", "secret")

	fake := newLifecycleFakeCloud()
	exec := executor.NewExecutor(time.Second, 10*time.Millisecond, nil, logger)
	scan := scanner.NewScanner(7, logger)
	rec := reconciler.NewReconciler(st, nil, logger)

	c := NewCoordinator(st, scan, rec, exec, creds, gate, nil, logger,
		func(awssdk.Config) Cloud { return fake }, 5*time.Second)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = c.Close(ctx)
	})

	return &fixture{coordinator: c, store: st, cloud: fake}
}

func scheduleRequest() types.ScheduledAction {
	return types.ScheduledAction{
		ResourceID: "i-abc123",
		Name:       "nightly shutdown",
		Action:     types.ActionShutdown,
		CronExpr:   "0 18 * * 1-5",
		Timezone:   "Europe/Helsinki",
		OwnerID:    "user-42",
	}
}

func TestScheduleAction(t *testing.T) {
	f := newFixture(t)

	created, err := f.coordinator.ScheduleAction(context.Background(), scheduleRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.True(t, created.Active)
	// Resource kind inferred from the ID prefix
	assert.Equal(t, types.KindInstance, created.ResourceKind)

	stored, err := f.store.GetSchedule(created.ID, "user-42")
	require.NoError(t, err)
	assert.Equal(t, "nightly shutdown", stored.Name)
}

func TestScheduleActionNoCredentials(t *testing.T) {
	f := newFixture(t)

	req := scheduleRequest()
	req.OwnerID = "user-without-creds"

	_, err := f.coordinator.ScheduleAction(context.Background(), req)
	assert.ErrorIs(t, err, types.ErrNoCredentials)

	// Nothing was persisted
	schedules, err := f.store.ListSchedules("user-without-creds")
	require.NoError(t, err)
	assert.Empty(t, schedules)
}

func TestScheduleActionBadCron(t *testing.T) {
	f := newFixture(t)

	req := scheduleRequest()
	req.CronExpr = "not a cron"

	_, err := f.coordinator.ScheduleAction(context.Background(), req)
	assert.Error(t, err)
}

func TestUpdateScheduledAction(t *testing.T) {
	f := newFixture(t)
	created, err := f.coordinator.ScheduleAction(context.Background(), scheduleRequest())
	require.NoError(t, err)

	newExpr := "0 19 * * 1-5"
	updated, err := f.coordinator.UpdateScheduledAction(context.Background(),
		created.ID, "user-42", types.ScheduleUpdate{CronExpr: &newExpr})
	require.NoError(t, err)
	assert.Equal(t, newExpr, updated.CronExpr)
}

func TestUpdateBadCronLeavesScheduleIntact(t *testing.T) {
	f := newFixture(t)
	created, err := f.coordinator.ScheduleAction(context.Background(), scheduleRequest())
	require.NoError(t, err)

	bad := "garbage"
	_, err = f.coordinator.UpdateScheduledAction(context.Background(),
		created.ID, "user-42", types.ScheduleUpdate{CronExpr: &bad})
	assert.Error(t, err)

	stored, err := f.store.GetSchedule(created.ID, "user-42")
	require.NoError(t, err)
	assert.Equal(t, "0 18 * * 1-5", stored.CronExpr)
}

func TestUpdateWrongOwner(t *testing.T) {
	f := newFixture(t)
	created, err := f.coordinator.ScheduleAction(context.Background(), scheduleRequest())
	require.NoError(t, err)

	name := "hijacked"
	_, err = f.coordinator.UpdateScheduledAction(context.Background(),
		created.ID, "user-99", types.ScheduleUpdate{Name: &name})
	assert.ErrorIs(t, err, types.ErrNotFoundOrUnauthorized)
}

func TestPauseResumeCancel(t *testing.T) {
	f := newFixture(t)
	created, err := f.coordinator.ScheduleAction(context.Background(), scheduleRequest())
	require.NoError(t, err)

	require.NoError(t, f.coordinator.PauseSchedule(context.Background(), created.ID, "user-42"))
	stored, err := f.store.GetSchedule(created.ID, "user-42")
	require.NoError(t, err)
	assert.False(t, stored.Active)

	require.NoError(t, f.coordinator.ResumeSchedule(context.Background(), created.ID, "user-42"))
	stored, err = f.store.GetSchedule(created.ID, "user-42")
	require.NoError(t, err)
	assert.True(t, stored.Active)

	require.NoError(t, f.coordinator.CancelSchedule(context.Background(), created.ID, "user-42"))
	_, err = f.store.GetSchedule(created.ID, "user-42")
	assert.ErrorIs(t, err, types.ErrNotFoundOrUnauthorized)
}

func TestPausedScheduleDoesNotExecute(t *testing.T) {
	f := newFixture(t)
	f.cloud.instanceStates["i-abc123"] = "running"

	created, err := f.coordinator.ScheduleAction(context.Background(), scheduleRequest())
	require.NoError(t, err)
	require.NoError(t, f.coordinator.PauseSchedule(context.Background(), created.ID, "user-42"))

	// Even if a stale cron firing sneaks through, the runner re-reads
	// the store and refuses to act
	f.coordinator.runScheduledAction(*created)
	assert.Empty(t, f.cloud.calls)
}

func TestRunScheduledAction(t *testing.T) {
	f := newFixture(t)
	f.cloud.instanceStates["i-abc123"] = "running"

	created, err := f.coordinator.ScheduleAction(context.Background(), scheduleRequest())
	require.NoError(t, err)

	f.coordinator.runScheduledAction(*created)
	assert.Contains(t, f.cloud.calls, "StopInstance:i-abc123")

	stored, err := f.store.GetSchedule(created.ID, "user-42")
	require.NoError(t, err)
	assert.False(t, stored.LastRunAt.IsZero())
	assert.Contains(t, stored.LastOutcome, "success")
}

func TestRunVanishedScheduleCancels(t *testing.T) {
	f := newFixture(t)
	created, err := f.coordinator.ScheduleAction(context.Background(), scheduleRequest())
	require.NoError(t, err)

	// Delete behind the registry's back
	require.NoError(t, f.store.DeleteSchedule(created.ID, "user-42"))

	f.coordinator.runScheduledAction(*created)
	assert.Empty(t, f.cloud.calls)
}

func TestScaleDownPersistsCapacity(t *testing.T) {
	f := newFixture(t)
	f.cloud.groupCapacity["web-asg"] = types.CapacityState{Desired: 5, Min: 2, Max: 10}

	req := types.ScheduledAction{
		ResourceID:   "web-asg",
		ResourceKind: types.KindAutoScalingGroup,
		Name:         "evening scale down",
		Action:       types.ActionScaleDown,
		CronExpr:     "0 20 * * *",
		OwnerID:      "user-42",
	}
	created, err := f.coordinator.ScheduleAction(context.Background(), req)
	require.NoError(t, err)

	f.coordinator.runScheduledAction(*created)

	stored, err := f.store.GetSchedule(created.ID, "user-42")
	require.NoError(t, err)
	require.NotNil(t, stored.Metadata.Capacity)
	assert.Equal(t, int32(5), stored.Metadata.Capacity.Desired)
	assert.Equal(t, types.CapacityState{Desired: 0, Min: 0, Max: 10},
		f.cloud.groupCapacity["web-asg"])
}

func TestRebuildRegistersStoredSchedules(t *testing.T) {
	f := newFixture(t)

	// A schedule persisted outside this coordinator instance
	rec := scheduleRequest()
	rec.ID = "sched-persisted"
	rec.ResourceKind = types.KindInstance
	rec.Active = true
	require.NoError(t, f.store.PutSchedule(rec))

	require.NoError(t, f.coordinator.Rebuild(context.Background()))

	// Registered: pausing it goes through the registry without error
	require.NoError(t, f.coordinator.PauseSchedule(context.Background(), "sched-persisted", "user-42"))
}
