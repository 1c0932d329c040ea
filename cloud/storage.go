package cloud

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
)

// ListVolumes returns every volume in the region
func (a *AWS) ListVolumes(ctx context.Context) ([]Volume, error) {
	var volumes []Volume
	paginator := ec2.NewDescribeVolumesPaginator(a.ec2Client, &ec2.DescribeVolumesInput{})

	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, mapError(err, "")
		}
		for _, vol := range output.Volumes {
			volumes = append(volumes, Volume{
				ID:        aws.ToString(vol.VolumeId),
				State:     string(vol.State),
				SizeGB:    aws.ToInt32(vol.Size),
				Type:      string(vol.VolumeType),
				NameTag:   nameTag(vol.Tags),
				Attached:  len(vol.Attachments) > 0,
				CreatedAt: aws.ToTime(vol.CreateTime),
			})
		}
	}

	return volumes, nil
}

// DeleteVolume destroys an unattached volume
func (a *AWS) DeleteVolume(ctx context.Context, id string) error {
	_, err := a.ec2Client.DeleteVolume(ctx, &ec2.DeleteVolumeInput{
		VolumeId: aws.String(id),
	})
	return mapError(err, id)
}

// ListAddresses returns every allocated elastic IP
func (a *AWS) ListAddresses(ctx context.Context) ([]Address, error) {
	output, err := a.ec2Client.DescribeAddresses(ctx, &ec2.DescribeAddressesInput{})
	if err != nil {
		return nil, mapError(err, "")
	}

	addresses := make([]Address, 0, len(output.Addresses))
	for _, addr := range output.Addresses {
		addresses = append(addresses, Address{
			AllocationID:  aws.ToString(addr.AllocationId),
			PublicIP:      aws.ToString(addr.PublicIp),
			AssociationID: aws.ToString(addr.AssociationId),
			NameTag:       nameTag(addr.Tags),
		})
	}
	return addresses, nil
}

// ReleaseAddress releases an elastic IP allocation
func (a *AWS) ReleaseAddress(ctx context.Context, allocationID string) error {
	_, err := a.ec2Client.ReleaseAddress(ctx, &ec2.ReleaseAddressInput{
		AllocationId: aws.String(allocationID),
	})
	return mapError(err, allocationID)
}

// ListNetworkInterfaces returns every ENI in the region
func (a *AWS) ListNetworkInterfaces(ctx context.Context) ([]NetworkInterface, error) {
	var interfaces []NetworkInterface
	paginator := ec2.NewDescribeNetworkInterfacesPaginator(a.ec2Client,
		&ec2.DescribeNetworkInterfacesInput{})

	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, mapError(err, "")
		}
		for _, eni := range output.NetworkInterfaces {
			interfaces = append(interfaces, NetworkInterface{
				ID:          aws.ToString(eni.NetworkInterfaceId),
				Status:      string(eni.Status),
				SubnetID:    aws.ToString(eni.SubnetId),
				Description: aws.ToString(eni.Description),
				NameTag:     nameTag(eni.TagSet),
			})
		}
	}

	return interfaces, nil
}

// DeleteNetworkInterface destroys a detached ENI
func (a *AWS) DeleteNetworkInterface(ctx context.Context, id string) error {
	_, err := a.ec2Client.DeleteNetworkInterface(ctx, &ec2.DeleteNetworkInterfaceInput{
		NetworkInterfaceId: aws.String(id),
	})
	return mapError(err, id)
}
