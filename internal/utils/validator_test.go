// internal/utils/validator_test.go
package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type registerForm struct {
	Username string `validate:"required,username"`
	Password string `validate:"required,strong_password"`
	Reason   string `validate:"omitempty,min=5"`
}

func TestValidateStructPasses(t *testing.T) {
	err := ValidateStruct(&registerForm{
		Username: "j_smith42",
		Password: "Str0ng!pass",
		Reason:   "damaged on return",
	})
	assert.NoError(t, err)
}

func TestStrongPasswordRejectsWeakOnes(t *testing.T) {
	weak := []string{"short1!", "alllowercase1!", "ALLUPPERCASE1!", "NoNumbers!!", "NoSpecial123"}
	for _, password := range weak {
		err := ValidateStruct(&registerForm{Username: "jsmith", Password: password})
		assert.Error(t, err, "password %q should fail", password)
	}
}

func TestUsernameFollowsNetIDShape(t *testing.T) {
	for _, username := range []string{"jsmith", "j.smith42", "j_smith"} {
		err := ValidateStruct(&registerForm{Username: username, Password: "Str0ng!pass"})
		assert.NoError(t, err, "username %q should pass", username)
	}

	for _, username := range []string{"ab", "42smith", "_smith", "has space", "bad-dash", "semi;colon"} {
		err := ValidateStruct(&registerForm{Username: username, Password: "Str0ng!pass"})
		assert.Error(t, err, "username %q should fail", username)
	}
}

func TestGetValidationErrorsMessages(t *testing.T) {
	err := ValidateStruct(&registerForm{Username: "jsmith", Password: "Str0ng!pass", Reason: "no"})
	require.Error(t, err)

	errors := GetValidationErrors(err)
	require.Len(t, errors, 1)
	assert.Equal(t, "reason", errors[0].Field)
	assert.Equal(t, "min", errors[0].Tag)
	assert.Contains(t, errors[0].Message, "at least 5")
}

func TestGetValidationErrorsNonValidatorError(t *testing.T) {
	assert.Empty(t, GetValidationErrors(assert.AnError))
}
