// Package credentials maps owners to cloud credentials. Every action and
// scan runs under the credentials of the owner who requested it, so a
// missing mapping fails fast before anything touches the provider.
package credentials

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"

	"github.com/yairfalse/vahti/types"
)

// Resolver resolves an owner to a ready-to-use AWS config
type Resolver interface {
	Resolve(ctx context.Context, ownerID string) (aws.Config, error)
}

// ProfileResolver maps owner IDs to entries in the shared AWS
// credentials file. The profile name is the owner ID.
type ProfileResolver struct {
	region string
}

// NewProfileResolver creates a resolver for the given region
func NewProfileResolver(region string) *ProfileResolver {
	return &ProfileResolver{region: region}
}

// Resolve loads the owner's profile from the shared config
func (r *ProfileResolver) Resolve(ctx context.Context, ownerID string) (aws.Config, error) {
	if ownerID == "" {
		return aws.Config{}, types.ErrNoCredentials
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(r.region),
		awsconfig.WithSharedConfigProfile(ownerID),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("%w: %s", types.ErrNoCredentials, ownerID)
	}

	// LoadDefaultConfig succeeds even when the profile has no usable keys,
	// so force a retrieval before handing the config out
	if _, err := cfg.Credentials.Retrieve(ctx); err != nil {
		return aws.Config{}, fmt.Errorf("%w: %s", types.ErrNoCredentials, ownerID)
	}

	return cfg, nil
}

// StaticResolver serves configs from a fixed in-memory map. Used in tests
// and single-tenant deployments.
type StaticResolver struct {
	mu      sync.RWMutex
	region  string
	byOwner map[string]aws.CredentialsProvider
}

// NewStaticResolver creates an empty static resolver
func NewStaticResolver(region string) *StaticResolver {
	return &StaticResolver{
		region:  region,
		byOwner: make(map[string]aws.CredentialsProvider),
	}
}

// Add registers static keys for an owner
func (r *StaticResolver) Add(ownerID, accessKey, secretKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byOwner[ownerID] = awscreds.NewStaticCredentialsProvider(accessKey, secretKey, "")
}

// Resolve returns the owner's config or ErrNoCredentials
func (r *StaticResolver) Resolve(_ context.Context, ownerID string) (aws.Config, error) {
	r.mu.RLock()
	provider, ok := r.byOwner[ownerID]
	r.mu.RUnlock()
	if !ok {
		return aws.Config{}, fmt.Errorf("%w: %s", types.ErrNoCredentials, ownerID)
	}

	return aws.Config{
		Region:      r.region,
		Credentials: provider,
	}, nil
}
