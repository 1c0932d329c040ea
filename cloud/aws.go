package cloud

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/rds"
)

// AWS implements resource operations against the AWS SDK v2 clients.
// One value is built per resolved owner config, so every call it makes
// runs under that owner's credentials.
type AWS struct {
	ec2Client *ec2.Client
	rdsClient *rds.Client
	asgClient *autoscaling.Client
	ecsClient *ecs.Client
	region    string
}

// New creates an AWS client bundle from a resolved owner config
func New(cfg aws.Config) *AWS {
	return &AWS{
		ec2Client: ec2.NewFromConfig(cfg),
		rdsClient: rds.NewFromConfig(cfg),
		asgClient: autoscaling.NewFromConfig(cfg),
		ecsClient: ecs.NewFromConfig(cfg),
		region:    cfg.Region,
	}
}

// Region returns the region this client bundle talks to
func (a *AWS) Region() string {
	return a.region
}
