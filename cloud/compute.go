package cloud

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// InstanceState returns the current lifecycle state of an instance
func (a *AWS) InstanceState(ctx context.Context, id string) (string, error) {
	inst, err := a.describeInstance(ctx, id)
	if err != nil {
		return "", err
	}
	return string(inst.State.Name), nil
}

// DescribeInstance returns the scheduler's view of an instance
func (a *AWS) DescribeInstance(ctx context.Context, id string) (*Instance, error) {
	inst, err := a.describeInstance(ctx, id)
	if err != nil {
		return nil, err
	}
	converted := convertInstance(*inst)
	return &converted, nil
}

func (a *AWS) describeInstance(ctx context.Context, id string) (*ec2types.Instance, error) {
	output, err := a.ec2Client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{id},
	})
	if err != nil {
		return nil, mapError(err, id)
	}

	for _, reservation := range output.Reservations {
		for _, inst := range reservation.Instances {
			if aws.ToString(inst.InstanceId) == id {
				return &inst, nil
			}
		}
	}
	return nil, fmt.Errorf("instance %s missing from describe output", id)
}

// StopInstance requests a stop. The state change is asynchronous.
func (a *AWS) StopInstance(ctx context.Context, id string) error {
	_, err := a.ec2Client.StopInstances(ctx, &ec2.StopInstancesInput{
		InstanceIds: []string{id},
	})
	return mapError(err, id)
}

// StartInstance requests a start. The state change is asynchronous.
func (a *AWS) StartInstance(ctx context.Context, id string) error {
	_, err := a.ec2Client.StartInstances(ctx, &ec2.StartInstancesInput{
		InstanceIds: []string{id},
	})
	return mapError(err, id)
}

// ModifyInstanceType changes the instance class. The instance must be
// stopped or the provider rejects the call.
func (a *AWS) ModifyInstanceType(ctx context.Context, id, class string) error {
	_, err := a.ec2Client.ModifyInstanceAttribute(ctx, &ec2.ModifyInstanceAttributeInput{
		InstanceId: aws.String(id),
		InstanceType: &ec2types.AttributeValue{
			Value: aws.String(class),
		},
	})
	return mapError(err, id)
}

// TerminateInstance permanently destroys an instance
func (a *AWS) TerminateInstance(ctx context.Context, id string) error {
	_, err := a.ec2Client.TerminateInstances(ctx, &ec2.TerminateInstancesInput{
		InstanceIds: []string{id},
	})
	return mapError(err, id)
}

// ListStoppedInstances returns every instance currently in the stopped state
func (a *AWS) ListStoppedInstances(ctx context.Context) ([]Instance, error) {
	var instances []Instance
	paginator := ec2.NewDescribeInstancesPaginator(a.ec2Client, &ec2.DescribeInstancesInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("instance-state-name"), Values: []string{"stopped"}},
		},
	})

	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, mapError(err, "")
		}
		for _, reservation := range output.Reservations {
			for _, inst := range reservation.Instances {
				instances = append(instances, convertInstance(inst))
			}
		}
	}

	return instances, nil
}

func convertInstance(inst ec2types.Instance) Instance {
	converted := Instance{
		ID:       aws.ToString(inst.InstanceId),
		State:    string(inst.State.Name),
		Class:    string(inst.InstanceType),
		SubnetID: aws.ToString(inst.SubnetId),
		NameTag:  nameTag(inst.Tags),
	}
	if at, ok := parseTransitionTime(aws.ToString(inst.StateTransitionReason)); ok {
		converted.TransitionAt = at
	}
	return converted
}

// parseTransitionTime extracts the timestamp EC2 embeds in the state
// transition reason, e.g. "User initiated (2024-01-15 10:30:45 GMT)".
func parseTransitionTime(reason string) (time.Time, bool) {
	start := strings.LastIndex(reason, "(")
	end := strings.LastIndex(reason, ")")
	if start < 0 || end <= start {
		return time.Time{}, false
	}
	at, err := time.Parse("2006-01-02 15:04:05 MST", reason[start+1:end])
	if err != nil {
		return time.Time{}, false
	}
	return at, true
}

func nameTag(tags []ec2types.Tag) string {
	for _, tag := range tags {
		if aws.ToString(tag.Key) == "Name" {
			return aws.ToString(tag.Value)
		}
	}
	return ""
}
