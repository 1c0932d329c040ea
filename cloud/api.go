// Package cloud wraps the provider SDK behind small value types so the
// scanner and executor never handle raw SDK shapes or SDK error codes.
package cloud

import (
	"errors"
	"fmt"
	"time"

	"github.com/aws/smithy-go"

	"github.com/yairfalse/vahti/types"
)

// Instance is the slice of instance state the scheduler cares about
type Instance struct {
	ID           string
	State        string
	Class        string
	NameTag      string
	SubnetID     string
	TransitionAt time.Time
}

// Volume describes a block storage volume
type Volume struct {
	ID        string
	State     string
	SizeGB    int32
	Type      string
	NameTag   string
	Attached  bool
	CreatedAt time.Time
}

// Address describes an allocated elastic IP
type Address struct {
	AllocationID  string
	PublicIP      string
	AssociationID string
	NameTag       string
}

// NetworkInterface describes an ENI
type NetworkInterface struct {
	ID          string
	Status      string
	SubnetID    string
	Description string
	NameTag     string
}

// Database describes a managed database instance
type Database struct {
	ID     string
	State  string
	Class  string
	Engine string
}

// Running and stopped are the only states an action can proceed from.
// Anything else is transitional and the action must not fire.
const (
	StateRunning = "running"
	StateStopped = "stopped"
	// RDS uses different words for the same things
	StateAvailable = "available"
)

// mapError converts provider failures into the scheduler's error taxonomy.
// The caller already holds credentials for the account, so a missing
// resource and a missing permission are distinct, diagnosable failures.
func mapError(err error, resourceID string) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "InvalidInstanceID.NotFound", "InvalidVolume.NotFound",
			"InvalidAllocationID.NotFound", "InvalidNetworkInterfaceID.NotFound",
			"DBInstanceNotFound", "DBInstanceNotFoundFault",
			"ValidationError", "ServiceNotFoundException":
			return fmt.Errorf("%w: %s", types.ErrResourceNotFound, resourceID)
		case "UnauthorizedOperation", "AccessDenied", "AccessDeniedException":
			return fmt.Errorf("%w: %s", types.ErrUnauthorized, resourceID)
		}
		return &types.ProviderError{
			Code:    apiErr.ErrorCode(),
			Message: apiErr.ErrorMessage(),
			Err:     err,
		}
	}

	return &types.ProviderError{Message: err.Error(), Err: err}
}
