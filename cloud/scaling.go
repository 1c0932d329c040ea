package cloud

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/ecs"

	"github.com/yairfalse/vahti/types"
)

// GroupCapacity returns the current capacity of an autoscaling group
func (a *AWS) GroupCapacity(ctx context.Context, name string) (*types.CapacityState, error) {
	output, err := a.asgClient.DescribeAutoScalingGroups(ctx,
		&autoscaling.DescribeAutoScalingGroupsInput{
			AutoScalingGroupNames: []string{name},
		})
	if err != nil {
		return nil, mapError(err, name)
	}
	if len(output.AutoScalingGroups) == 0 {
		return nil, fmt.Errorf("%w: %s", types.ErrResourceNotFound, name)
	}

	group := output.AutoScalingGroups[0]
	return &types.CapacityState{
		Desired: aws.ToInt32(group.DesiredCapacity),
		Min:     aws.ToInt32(group.MinSize),
		Max:     aws.ToInt32(group.MaxSize),
	}, nil
}

// SetGroupCapacity updates the desired, min and max size of an
// autoscaling group in one call
func (a *AWS) SetGroupCapacity(ctx context.Context, name string, capacity types.CapacityState) error {
	_, err := a.asgClient.UpdateAutoScalingGroup(ctx,
		&autoscaling.UpdateAutoScalingGroupInput{
			AutoScalingGroupName: aws.String(name),
			DesiredCapacity:      aws.Int32(capacity.Desired),
			MinSize:              aws.Int32(capacity.Min),
			MaxSize:              aws.Int32(capacity.Max),
		})
	return mapError(err, name)
}

// ServiceCapacity returns the desired count of a container service.
// The resource ID is "cluster/service".
func (a *AWS) ServiceCapacity(ctx context.Context, id string) (*types.CapacityState, error) {
	cluster, service, err := splitServiceID(id)
	if err != nil {
		return nil, err
	}

	output, err := a.ecsClient.DescribeServices(ctx, &ecs.DescribeServicesInput{
		Cluster:  aws.String(cluster),
		Services: []string{service},
	})
	if err != nil {
		return nil, mapError(err, id)
	}
	if len(output.Services) == 0 {
		return nil, fmt.Errorf("%w: %s", types.ErrResourceNotFound, id)
	}

	desired := output.Services[0].DesiredCount
	return &types.CapacityState{Desired: desired, Min: 0, Max: desired}, nil
}

// SetServiceCapacity updates the desired count of a container service
func (a *AWS) SetServiceCapacity(ctx context.Context, id string, capacity types.CapacityState) error {
	cluster, service, err := splitServiceID(id)
	if err != nil {
		return err
	}

	_, err = a.ecsClient.UpdateService(ctx, &ecs.UpdateServiceInput{
		Cluster:      aws.String(cluster),
		Service:      aws.String(service),
		DesiredCount: aws.Int32(capacity.Desired),
	})
	return mapError(err, id)
}

func splitServiceID(id string) (cluster, service string, err error) {
	cluster, service, ok := strings.Cut(id, "/")
	if !ok || cluster == "" || service == "" {
		return "", "", fmt.Errorf("service id %q must be cluster/service", id)
	}
	return cluster, service, nil
}
