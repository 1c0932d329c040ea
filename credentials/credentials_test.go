package credentials

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/vahti/types"
)

func TestStaticResolver(t *testing.T) {
	r := NewStaticResolver("eu-west-1")
	r.Add("user-42", "AKIATEST", "secret")

	cfg, err := r.Resolve(context.Background(), "user-42")
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", cfg.Region)

	creds, err := cfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKIATEST", creds.AccessKeyID)
}

func TestStaticResolverUnknownOwner(t *testing.T) {
	r := NewStaticResolver("eu-west-1")

	_, err := r.Resolve(context.Background(), "user-99")
	assert.ErrorIs(t, err, types.ErrNoCredentials)
}

func TestProfileResolverEmptyOwner(t *testing.T) {
	r := NewProfileResolver("eu-west-1")

	_, err := r.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, types.ErrNoCredentials)
}
