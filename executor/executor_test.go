package executor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/vahti/telemetry"
	"github.com/yairfalse/vahti/types"
)

// fakeCloud tracks instance and database states in memory and records
// every mutating call
type fakeCloud struct {
	instanceStates map[string]string
	databaseStates map[string]string
	groupCapacity  map[string]types.CapacityState
	calls          []string
	// stopSettles makes StopInstance move the state to stopped so the
	// resize wait loop finds it on the next poll
	stopSettles bool
}

func newFakeCloud() *fakeCloud {
	return &fakeCloud{
		instanceStates: make(map[string]string),
		databaseStates: make(map[string]string),
		groupCapacity:  make(map[string]types.CapacityState),
	}
}

func (f *fakeCloud) record(call string) { f.calls = append(f.calls, call) }

func (f *fakeCloud) InstanceState(ctx context.Context, id string) (string, error) {
	return f.instanceStates[id], nil
}

func (f *fakeCloud) StopInstance(ctx context.Context, id string) error {
	f.record("StopInstance:" + id)
	if f.stopSettles {
		f.instanceStates[id] = "stopped"
	} else {
		f.instanceStates[id] = "stopping"
	}
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
	return f.databaseStates[id], nil
}

func (f *fakeCloud) StopDatabase(ctx context.Context, id string) error {
	f.record("StopDatabase:" + id)
	return nil
}

func (f *fakeCloud) StartDatabase(ctx context.Context, id string) error {
	f.record("StartDatabase:" + id)
	return nil
}

func (f *fakeCloud) ModifyDatabaseClass(ctx context.Context, id, class string) error {
	f.record("ModifyDatabaseClass:" + id + ":" + class)
	return nil
}

func (f *fakeCloud) DeleteDatabase(ctx context.Context, id string) error {
	f.record("DeleteDatabase:" + id)
	return nil
}

func (f *fakeCloud) GroupCapacity(ctx context.Context, name string) (*types.CapacityState, error) {
	c := f.groupCapacity[name]
	return &c, nil
}

func (f *fakeCloud) SetGroupCapacity(ctx context.Context, name string, capacity types.CapacityState) error {
	f.record("SetGroupCapacity:" + name)
	f.groupCapacity[name] = capacity
	return nil
}

func (f *fakeCloud) ServiceCapacity(ctx context.Context, id string) (*types.CapacityState, error) {
	c := f.groupCapacity[id]
	return &c, nil
}

func (f *fakeCloud) SetServiceCapacity(ctx context.Context, id string, capacity types.CapacityState) error {
	f.record("SetServiceCapacity:" + id)
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

func newTestExecutor() *Executor {
	return NewExecutor(200*time.Millisecond, 10*time.Millisecond, nil,
		telemetry.NewLogger("executor-test"))
}

func instanceRequest(action types.ActionKind) Request {
	return Request{
		ResourceID:   "i-abc123",
		ResourceKind: types.KindInstance,
		Action:       action,
		OwnerID:      "user-42",
	}
}

func TestShutdownRunningInstance(t *testing.T) {
	cloud := newFakeCloud()
	cloud.instanceStates["i-abc123"] = "running"

	outcome, err := newTestExecutor().Execute(context.Background(), cloud,
		instanceRequest(types.ActionShutdown))
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.False(t, outcome.Skipped)
	assert.Contains(t, cloud.calls, "StopInstance:i-abc123")
}

func TestShutdownStoppedInstanceSkips(t *testing.T) {
	cloud := newFakeCloud()
	cloud.instanceStates["i-abc123"] = "stopped"

	outcome, err := newTestExecutor().Execute(context.Background(), cloud,
		instanceRequest(types.ActionShutdown))
	require.NoError(t, err)
	assert.True(t, outcome.Skipped)
	assert.Empty(t, cloud.calls)
}

func TestShutdownTransitionalStateFails(t *testing.T) {
	cloud := newFakeCloud()
	cloud.instanceStates["i-abc123"] = "pending"

	_, err := newTestExecutor().Execute(context.Background(), cloud,
		instanceRequest(types.ActionShutdown))
	assert.True(t, types.IsInvalidState(err))
	assert.Empty(t, cloud.calls)
}

func TestStartupStoppedInstance(t *testing.T) {
	cloud := newFakeCloud()
	cloud.instanceStates["i-abc123"] = "stopped"

	outcome, err := newTestExecutor().Execute(context.Background(), cloud,
		instanceRequest(types.ActionStartup))
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Contains(t, cloud.calls, "StartInstance:i-abc123")
}

func TestResizeRunningInstanceStopsAndRestarts(t *testing.T) {
	cloud := newFakeCloud()
	cloud.instanceStates["i-abc123"] = "running"
	cloud.stopSettles = true

	req := instanceRequest(types.ActionResize)
	req.Meta = &types.ActionMetadata{TargetClass: "m5.xlarge"}

	outcome, err := newTestExecutor().Execute(context.Background(), cloud, req)
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, []string{
		"StopInstance:i-abc123",
		"ModifyInstanceType:i-abc123:m5.xlarge",
		"StartInstance:i-abc123",
	}, cloud.calls)
}

func TestResizeStoppedInstanceInPlace(t *testing.T) {
	cloud := newFakeCloud()
	cloud.instanceStates["i-abc123"] = "stopped"

	req := instanceRequest(types.ActionResize)
	req.Meta = &types.ActionMetadata{TargetClass: "m5.xlarge"}

	_, err := newTestExecutor().Execute(context.Background(), cloud, req)
	require.NoError(t, err)
	assert.Equal(t, []string{"ModifyInstanceType:i-abc123:m5.xlarge"}, cloud.calls)
}

func TestResizeTimesOutWhenStopNeverSettles(t *testing.T) {
	cloud := newFakeCloud()
	cloud.instanceStates["i-abc123"] = "running"
	// stopSettles stays false: the instance hangs in stopping

	req := instanceRequest(types.ActionResize)
	req.Meta = &types.ActionMetadata{TargetClass: "m5.xlarge"}

	_, err := newTestExecutor().Execute(context.Background(), cloud, req)
	assert.ErrorIs(t, err, types.ErrResizeTimeout)
	assert.NotContains(t, cloud.calls, "ModifyInstanceType:i-abc123:m5.xlarge")
}

func TestResizeWithoutTargetClass(t *testing.T) {
	cloud := newFakeCloud()
	cloud.instanceStates["i-abc123"] = "stopped"

	_, err := newTestExecutor().Execute(context.Background(), cloud,
		instanceRequest(types.ActionResize))
	assert.Error(t, err)
}

func TestTerminateRequiresForce(t *testing.T) {
	cloud := newFakeCloud()
	cloud.instanceStates["i-abc123"] = "stopped"

	_, err := newTestExecutor().Execute(context.Background(), cloud,
		instanceRequest(types.ActionTerminate))
	assert.ErrorIs(t, err, types.ErrForceRequired)

	req := instanceRequest(types.ActionTerminate)
	req.Meta = &types.ActionMetadata{Force: true}
	outcome, err := newTestExecutor().Execute(context.Background(), cloud, req)
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Contains(t, cloud.calls, "TerminateInstance:i-abc123")
}

func TestScaleDownCapturesCapacity(t *testing.T) {
	cloud := newFakeCloud()
	cloud.groupCapacity["web-asg"] = types.CapacityState{Desired: 5, Min: 2, Max: 10}

	req := Request{
		ResourceID:   "web-asg",
		ResourceKind: types.KindAutoScalingGroup,
		Action:       types.ActionScaleDown,
		OwnerID:      "user-42",
	}
	outcome, err := newTestExecutor().Execute(context.Background(), cloud, req)
	require.NoError(t, err)

	require.NotNil(t, outcome.Capacity)
	assert.Equal(t, int32(5), outcome.Capacity.Desired)
	assert.Equal(t, int32(2), outcome.Capacity.Min)
	assert.Equal(t, types.CapacityState{Desired: 0, Min: 0, Max: 10},
		cloud.groupCapacity["web-asg"])
}

func TestScaleUpRestoresCapacity(t *testing.T) {
	cloud := newFakeCloud()
	cloud.groupCapacity["web-asg"] = types.CapacityState{Desired: 0, Min: 0, Max: 10}

	req := Request{
		ResourceID:   "web-asg",
		ResourceKind: types.KindAutoScalingGroup,
		Action:       types.ActionScaleUp,
		OwnerID:      "user-42",
		Meta: &types.ActionMetadata{
			Capacity: &types.CapacityState{Desired: 5, Min: 2, Max: 10},
		},
	}
	outcome, err := newTestExecutor().Execute(context.Background(), cloud, req)
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, types.CapacityState{Desired: 5, Min: 2, Max: 10},
		cloud.groupCapacity["web-asg"])
}

func TestScaleUpWithoutSavedCapacity(t *testing.T) {
	cloud := newFakeCloud()

	req := Request{
		ResourceID:   "web-asg",
		ResourceKind: types.KindAutoScalingGroup,
		Action:       types.ActionScaleUp,
		OwnerID:      "user-42",
	}
	_, err := newTestExecutor().Execute(context.Background(), cloud, req)
	assert.Error(t, err)
}

func TestCleanupDispatch(t *testing.T) {
	tests := []struct {
		kind     types.ResourceKind
		id       string
		wantCall string
	}{
		{types.KindVolume, "vol-1", "DeleteVolume:vol-1"},
		{types.KindAddress, "eipalloc-1", "ReleaseAddress:eipalloc-1"},
		{types.KindNetworkInterface, "eni-1", "DeleteNetworkInterface:eni-1"},
		{types.KindInstance, "i-1", "TerminateInstance:i-1"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			cloud := newFakeCloud()
			err := newTestExecutor().Cleanup(context.Background(), cloud, types.OrphanedResource{
				ResourceID:   tt.id,
				ResourceKind: tt.kind,
				OwnerID:      "user-42",
			})
			require.NoError(t, err)
			assert.Equal(t, []string{tt.wantCall}, cloud.calls)
		})
	}
}

func TestCleanupUnknownKind(t *testing.T) {
	cloud := newFakeCloud()
	err := newTestExecutor().Cleanup(context.Background(), cloud, types.OrphanedResource{
		ResourceID:   "db-1",
		ResourceKind: types.KindDatabase,
		OwnerID:      "user-42",
	})
	assert.Error(t, err)
}
