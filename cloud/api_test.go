package cloud

import (
	"errors"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"

	"github.com/yairfalse/vahti/types"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantIs  error
		wantNil bool
	}{
		{
			name:    "nil passes through",
			err:     nil,
			wantNil: true,
		},
		{
			name:   "missing instance maps to resource not found",
			err:    &smithy.GenericAPIError{Code: "InvalidInstanceID.NotFound", Message: "no such instance"},
			wantIs: types.ErrResourceNotFound,
		},
		{
			name:   "missing database maps to resource not found",
			err:    &smithy.GenericAPIError{Code: "DBInstanceNotFoundFault", Message: "no such db"},
			wantIs: types.ErrResourceNotFound,
		},
		{
			name:   "unauthorized operation maps to unauthorized",
			err:    &smithy.GenericAPIError{Code: "UnauthorizedOperation", Message: "not allowed"},
			wantIs: types.ErrUnauthorized,
		},
		{
			name:   "access denied maps to unauthorized",
			err:    &smithy.GenericAPIError{Code: "AccessDeniedException", Message: "not allowed"},
			wantIs: types.ErrUnauthorized,
		},
		{
			name: "other api errors become provider errors",
			err:  &smithy.GenericAPIError{Code: "RequestLimitExceeded", Message: "slow down"},
		},
		{
			name: "plain errors become provider errors",
			err:  errors.New("connection reset"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.err, "i-abc123")
			if tt.wantNil {
				assert.NoError(t, got)
				return
			}
			if tt.wantIs != nil {
				assert.ErrorIs(t, got, tt.wantIs)
				return
			}
			var pe *types.ProviderError
			assert.ErrorAs(t, got, &pe)
		})
	}
}

func TestMapErrorKeepsKindsDistinct(t *testing.T) {
	notFound := mapError(&smithy.GenericAPIError{Code: "InvalidVolume.NotFound", Message: "gone"}, "vol-1")
	denied := mapError(&smithy.GenericAPIError{Code: "AccessDenied", Message: "no"}, "vol-1")

	assert.ErrorIs(t, notFound, types.ErrResourceNotFound)
	assert.NotErrorIs(t, notFound, types.ErrUnauthorized)
	assert.ErrorIs(t, denied, types.ErrUnauthorized)
	assert.NotErrorIs(t, denied, types.ErrResourceNotFound)
}

func TestParseTransitionTime(t *testing.T) {
	at, ok := parseTransitionTime("User initiated (2024-01-15 10:30:45 GMT)")
	assert.True(t, ok)
	assert.Equal(t, 2024, at.Year())
	assert.Equal(t, 15, at.Day())

	_, ok = parseTransitionTime("")
	assert.False(t, ok)

	_, ok = parseTransitionTime("no timestamp here")
	assert.False(t, ok)
}

func TestSplitServiceID(t *testing.T) {
	cluster, service, err := splitServiceID("prod/api")
	assert.NoError(t, err)
	assert.Equal(t, "prod", cluster)
	assert.Equal(t, "api", service)

	_, _, err = splitServiceID("just-a-service")
	assert.Error(t, err)

	_, _, err = splitServiceID("/api")
	assert.Error(t, err)
}
