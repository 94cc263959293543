package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_ChildPolicy_Validate(t *testing.T) {
	for _, policy := range []ChildPolicy{
		ChildPolicyTerminate, ChildPolicyRequestCancel, ChildPolicyAbandon,
	} {
		require.NoError(t, policy.Validate())
	}

	for _, policy := range []ChildPolicy{"", "terminate", "RETAIN", "CANCEL"} {
		err := policy.Validate()

		var invalid *InvalidChildPolicyError
		require.ErrorAs(t, err, &invalid)
		require.Equal(t, policy, invalid.Policy)
	}
}

func Test_CloseStatus_Validate(t *testing.T) {
	for _, status := range []CloseStatus{
		CloseStatusCompleted, CloseStatusFailed, CloseStatusCanceled,
		CloseStatusTerminated, CloseStatusContinuedAsNew, CloseStatusTimedOut,
	} {
		require.NoError(t, status.Validate())
	}

	require.Error(t, CloseStatus("ABORTED").Validate())
	require.Error(t, CloseStatus("").Validate())
}

func Test_ResponseError_CarriesMessageAndStack(t *testing.T) {
	err := NewResponseError("rate exceeded")

	require.Equal(t, "rate exceeded", err.Message)
	require.EqualError(t, err, "response error: rate exceeded")
	require.NotEmpty(t, err.Stack())

	var respErr *ResponseError
	require.True(t, errors.As(err, &respErr))
}
