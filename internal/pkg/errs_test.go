package pkg

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	cases := []struct {
		err  error
		want ErrKind
	}{
		{ErrSelfRelation, KindValidation},
		{ErrAlreadyRequested, KindValidation},
		{ErrAlreadyFollowing, KindValidation},
		{ErrNameTaken, KindValidation},
		{ErrEmptyMessage, KindValidation},
		{ErrMalformedPayload, KindValidation},
		{ErrCodeInvalid, KindValidation},
		{ErrWrongPassword, KindValidation},
		{ErrMissingField, KindValidation},
		{ErrNotAuthorized, KindAuthorization},
		{ErrUserNotFound, KindNotFound},
		{ErrRequestNotFound, KindNotFound},
		{ErrStoreUnavailable, KindTransient},
		{ErrNameSpaceExhausted, KindTransient},
		{errors.New("driver: bad connection"), KindTransient},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Kind(tc.err), "for %v", tc.err)
	}
}

func TestKindSeesWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("accept: %w", ErrRequestNotFound)
	assert.Equal(t, KindNotFound, Kind(wrapped))
}
