package types

import "strings"

// ResourceKind identifies what class of cloud resource an identifier points at.
// Kinds are tagged explicitly on records at creation time; inference from the
// identifier shape exists only as a fallback for untagged records.
type ResourceKind string

const (
	KindInstance         ResourceKind = "instance"
	KindDatabase         ResourceKind = "database"
	KindAutoScalingGroup ResourceKind = "asg"
	KindContainerService ResourceKind = "container-service"
	KindVolume           ResourceKind = "volume"
	KindAddress          ResourceKind = "address"
	KindNetworkInterface ResourceKind = "network-interface"
	KindUnknown          ResourceKind = ""
)

// Valid reports whether the kind is one vahti knows how to operate on.
func (k ResourceKind) Valid() bool {
	switch k {
	case KindInstance, KindDatabase, KindAutoScalingGroup, KindContainerService,
		KindVolume, KindAddress, KindNetworkInterface:
		return true
	}
	return false
}

// KindFromID guesses a resource kind from the identifier shape.
// Fallback only - records written by vahti carry an explicit kind.
func KindFromID(id string) ResourceKind {
	switch {
	case strings.HasPrefix(id, "i-"):
		return KindInstance
	case strings.HasPrefix(id, "vol-"):
		return KindVolume
	case strings.HasPrefix(id, "eipalloc-"):
		return KindAddress
	case strings.HasPrefix(id, "eni-"):
		return KindNetworkInterface
	case strings.HasPrefix(id, "db-"), strings.HasPrefix(id, "arn:aws:rds:"):
		return KindDatabase
	case strings.HasPrefix(id, "arn:aws:autoscaling:"):
		return KindAutoScalingGroup
	case strings.HasPrefix(id, "arn:aws:ecs:"):
		return KindContainerService
	}
	return KindUnknown
}
