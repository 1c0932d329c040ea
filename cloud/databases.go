package cloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
)

// DatabaseState returns the current lifecycle state of a database instance
func (a *AWS) DatabaseState(ctx context.Context, id string) (string, error) {
	db, err := a.describeDatabase(ctx, id)
	if err != nil {
		return "", err
	}
	return db.State, nil
}

func (a *AWS) describeDatabase(ctx context.Context, id string) (*Database, error) {
	output, err := a.rdsClient.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{
		DBInstanceIdentifier: aws.String(id),
	})
	if err != nil {
		return nil, mapError(err, id)
	}
	if len(output.DBInstances) == 0 {
		return nil, fmt.Errorf("database %s missing from describe output", id)
	}

	inst := output.DBInstances[0]
	return &Database{
		ID:     aws.ToString(inst.DBInstanceIdentifier),
		State:  aws.ToString(inst.DBInstanceStatus),
		Class:  aws.ToString(inst.DBInstanceClass),
		Engine: aws.ToString(inst.Engine),
	}, nil
}

// StopDatabase requests a stop. The state change is asynchronous.
func (a *AWS) StopDatabase(ctx context.Context, id string) error {
	_, err := a.rdsClient.StopDBInstance(ctx, &rds.StopDBInstanceInput{
		DBInstanceIdentifier: aws.String(id),
	})
	return mapError(err, id)
}

// StartDatabase requests a start. The state change is asynchronous.
func (a *AWS) StartDatabase(ctx context.Context, id string) error {
	_, err := a.rdsClient.StartDBInstance(ctx, &rds.StartDBInstanceInput{
		DBInstanceIdentifier: aws.String(id),
	})
	return mapError(err, id)
}

// ModifyDatabaseClass changes the instance class with immediate apply.
// Unlike compute instances the database keeps serving while it migrates.
func (a *AWS) ModifyDatabaseClass(ctx context.Context, id, class string) error {
	_, err := a.rdsClient.ModifyDBInstance(ctx, &rds.ModifyDBInstanceInput{
		DBInstanceIdentifier: aws.String(id),
		DBInstanceClass:      aws.String(class),
		ApplyImmediately:     aws.Bool(true),
	})
	return mapError(err, id)
}

// DeleteDatabase permanently destroys a database instance, taking a final
// snapshot named after the instance first
func (a *AWS) DeleteDatabase(ctx context.Context, id string) error {
	_, err := a.rdsClient.DeleteDBInstance(ctx, &rds.DeleteDBInstanceInput{
		DBInstanceIdentifier:      aws.String(id),
		FinalDBSnapshotIdentifier: aws.String(id + "-final"),
	})
	return mapError(err, id)
}
