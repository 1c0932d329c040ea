package scanner

import "strings"

// Rough us-east-1 on-demand rates. Good enough for ranking waste,
// not for billing.

// volumeGBMonth is the per-GB-month storage price by volume type
var volumeGBMonth = map[string]float64{
	"gp2":      0.10,
	"gp3":      0.08,
	"io1":      0.125,
	"io2":      0.125,
	"st1":      0.045,
	"sc1":      0.015,
	"standard": 0.05,
}

const defaultVolumeGBMonth = 0.10

// unusedAddressHourly is what the provider charges for an allocated but
// unassociated public IP
const unusedAddressHourly = 0.005

const hoursPerMonth = 730

// stoppedRootVolumeGB approximates the EBS storage a stopped instance
// keeps billing for when its real volumes are unknown
const stoppedRootVolumeGB = 30

// volumeMonthlyCost estimates what an unattached volume costs per month
func volumeMonthlyCost(volumeType string, sizeGB int32) float64 {
	rate, ok := volumeGBMonth[volumeType]
	if !ok {
		rate = defaultVolumeGBMonth
	}
	return rate * float64(sizeGB)
}

// addressMonthlyCost estimates what an unassociated address costs per month
func addressMonthlyCost() float64 {
	return unusedAddressHourly * hoursPerMonth
}

// stoppedInstanceMonthlyCost estimates the residual storage cost of a
// stopped instance. Compute billing stops, root volume billing does not.
func stoppedInstanceMonthlyCost(instanceClass string) float64 {
	gb := stoppedRootVolumeGB * classSizeFactor(instanceClass)
	return gb * defaultVolumeGBMonth
}

// classSizeFactor scales the root volume guess by instance size
func classSizeFactor(class string) float64 {
	switch {
	case strings.Contains(class, "xlarge"):
		return 4
	case strings.Contains(class, "large"):
		return 2
	default:
		return 1
	}
}
