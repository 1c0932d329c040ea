package scanner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/vahti/cloud"
	"github.com/yairfalse/vahti/telemetry"
	"github.com/yairfalse/vahti/types"
)

type mockInventory struct {
	volumes    []cloud.Volume
	addresses  []cloud.Address
	stopped    []cloud.Instance
	interfaces []cloud.NetworkInterface
	err        error
}

func (m *mockInventory) ListVolumes(ctx context.Context) ([]cloud.Volume, error) {
	return m.volumes, m.err
}

func (m *mockInventory) ListAddresses(ctx context.Context) ([]cloud.Address, error) {
	return m.addresses, m.err
}

func (m *mockInventory) ListStoppedInstances(ctx context.Context) ([]cloud.Instance, error) {
	return m.stopped, m.err
}

func (m *mockInventory) ListNetworkInterfaces(ctx context.Context) ([]cloud.NetworkInterface, error) {
	return m.interfaces, m.err
}

func (m *mockInventory) Region() string { return "eu-west-1" }

func newTestScanner() *Scanner {
	return NewScanner(7, telemetry.NewLogger("scanner-test"))
}

func TestScanUnattachedVolumes(t *testing.T) {
	inv := &mockInventory{
		volumes: []cloud.Volume{
			{ID: "vol-orphan", State: "available", SizeGB: 50, Type: "gp3"},
			{ID: "vol-attached", State: "in-use", SizeGB: 100, Type: "gp3", Attached: true},
		},
	}

	orphans, err := newTestScanner().Scan(context.Background(), inv, "user-42")
	require.NoError(t, err)
	require.Len(t, orphans, 1)

	o := orphans[0]
	assert.Equal(t, "vol-orphan", o.ResourceID)
	assert.Equal(t, types.KindVolume, o.ResourceKind)
	assert.Equal(t, types.OrphanUnattached, o.Classification)
	assert.Equal(t, types.StatusDetected, o.Status)
	assert.Equal(t, "user-42", o.OwnerID)
	assert.InDelta(t, 4.0, o.MonthlyCost, 0.001)
}

func TestScanUnassociatedAddresses(t *testing.T) {
	inv := &mockInventory{
		addresses: []cloud.Address{
			{AllocationID: "eipalloc-orphan", PublicIP: "52.1.2.3"},
			{AllocationID: "eipalloc-in-use", PublicIP: "52.4.5.6", AssociationID: "eipassoc-1"},
		},
	}

	orphans, err := newTestScanner().Scan(context.Background(), inv, "user-42")
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, "eipalloc-orphan", orphans[0].ResourceID)
	assert.Equal(t, types.KindAddress, orphans[0].ResourceKind)
	assert.Equal(t, "52.1.2.3", orphans[0].Details.PublicIP)
}

func TestScanStoppedInstancesThreshold(t *testing.T) {
	stoppedAt := time.Now().Add(-10 * 24 * time.Hour)
	inv := &mockInventory{
		stopped: []cloud.Instance{
			{ID: "i-old", State: "stopped", Class: "m5.large", TransitionAt: stoppedAt},
			{ID: "i-recent", State: "stopped", Class: "m5.large", TransitionAt: time.Now().Add(-2 * 24 * time.Hour)},
			{ID: "i-unknown", State: "stopped", Class: "m5.large"},
		},
	}

	orphans, err := newTestScanner().Scan(context.Background(), inv, "user-42")
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, "i-old", orphans[0].ResourceID)
	assert.Equal(t, types.OrphanIdle, orphans[0].Classification)
	assert.Equal(t, 10, orphans[0].Details.StoppedDays)
	assert.Equal(t, stoppedAt, orphans[0].LastActiveAt)
}

func TestScanDetachedInterfaces(t *testing.T) {
	inv := &mockInventory{
		interfaces: []cloud.NetworkInterface{
			{ID: "eni-orphan", Status: "available", SubnetID: "subnet-1"},
			{ID: "eni-in-use", Status: "in-use", SubnetID: "subnet-1"},
		},
	}

	orphans, err := newTestScanner().Scan(context.Background(), inv, "user-42")
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, "eni-orphan", orphans[0].ResourceID)
	assert.Equal(t, types.KindNetworkInterface, orphans[0].ResourceKind)
}

func TestScanAbortsOnInventoryError(t *testing.T) {
	inv := &mockInventory{err: errors.New("throttled")}

	_, err := newTestScanner().Scan(context.Background(), inv, "user-42")
	assert.Error(t, err)
}

func TestVolumeRisk(t *testing.T) {
	tests := []struct {
		name string
		vol  cloud.Volume
		want types.RiskLevel
	}{
		{"small unnamed", cloud.Volume{SizeGB: 10}, types.RiskLow},
		{"named", cloud.Volume{SizeGB: 10, NameTag: "db-backup"}, types.RiskMedium},
		{"big", cloud.Volume{SizeGB: 200}, types.RiskMedium},
		{"huge", cloud.Volume{SizeGB: 500}, types.RiskHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, volumeRisk(tt.vol))
		})
	}
}

func TestStoppedInstanceRisk(t *testing.T) {
	assert.Equal(t, types.RiskHigh, stoppedInstanceRisk(8))
	assert.Equal(t, types.RiskMedium, stoppedInstanceRisk(45))
	assert.Equal(t, types.RiskLow, stoppedInstanceRisk(120))
}

func TestVolumeMonthlyCost(t *testing.T) {
	assert.InDelta(t, 10.0, volumeMonthlyCost("gp2", 100), 0.001)
	assert.InDelta(t, 8.0, volumeMonthlyCost("gp3", 100), 0.001)
	// Unknown types fall back to the default rate
	assert.InDelta(t, 10.0, volumeMonthlyCost("weird", 100), 0.001)
}
