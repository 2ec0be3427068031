package validator

import (
	"context"
	"errors"
	"testing"

	"moviestore/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRegister() usecase.RegisterInput {
	return usecase.RegisterInput{
		FirstName:       "Ann",
		LastName:        "Lee",
		Email:           "ann@example.com",
		Password:        "secret1",
		PasswordConfirm: "secret1",
		FavoriteGenres:  []int{28, 12, 16, 35, 80},
	}
}

func messageOf(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, usecase.ErrValidation))
	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok)
	return he.Message
}

func TestValidateRegister(t *testing.T) {
	v := NewAuthValidator()
	ctx := context.Background()

	require.NoError(t, v.ValidateRegister(ctx, validRegister()))

	cases := map[string]struct {
		mutate func(in *usecase.RegisterInput)
		want   string
	}{
		"missing last name": {func(in *usecase.RegisterInput) { in.LastName = " " }, "All fields are required."},
		"missing confirm":   {func(in *usecase.RegisterInput) { in.PasswordConfirm = "" }, "All fields are required."},
		"mismatch":          {func(in *usecase.RegisterInput) { in.PasswordConfirm = "other" }, "Passwords do not match."},
		"four genres":       {func(in *usecase.RegisterInput) { in.FavoriteGenres = []int{28, 12, 16, 35} }, "Please select at least 5 genres."},
		"duplicate genres":  {func(in *usecase.RegisterInput) { in.FavoriteGenres = []int{28, 28, 12, 16, 35} }, "Please select at least 5 genres."},
		"unknown genre":     {func(in *usecase.RegisterInput) { in.FavoriteGenres = []int{28, 12, 16, 35, 1} }, "Unknown genre selected."},
		"bad email":         {func(in *usecase.RegisterInput) { in.Email = "ann" }, "Please enter a valid email address."},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			in := validRegister()
			tc.mutate(&in)
			assert.Equal(t, tc.want, messageOf(t, v.ValidateRegister(ctx, in)))
		})
	}
}

func TestValidateLogin(t *testing.T) {
	v := NewAuthValidator()
	ctx := context.Background()

	assert.NoError(t, v.ValidateLogin(ctx, "ann@example.com", "x"))
	assert.Equal(t, "Email and password are required.", messageOf(t, v.ValidateLogin(ctx, "", "x")))
	assert.Equal(t, "Please enter a valid email address.", messageOf(t, v.ValidateLogin(ctx, "ann@", "x")))
}

func TestValidatePasswordChange(t *testing.T) {
	v := NewAuthValidator()
	ctx := context.Background()

	ok := usecase.ChangePasswordInput{CurrentPassword: "old", NewPassword: "newpw1", ConfirmPassword: "newpw1"}
	assert.NoError(t, v.ValidatePasswordChange(ctx, ok))

	mismatch := ok
	mismatch.ConfirmPassword = "newpw2"
	assert.Equal(t, "New passwords do not match.", messageOf(t, v.ValidatePasswordChange(ctx, mismatch)))

	short := usecase.ChangePasswordInput{CurrentPassword: "old", NewPassword: "abc", ConfirmPassword: "abc"}
	assert.Equal(t, "Password should be at least 6 characters.", messageOf(t, v.ValidatePasswordChange(ctx, short)))
}

func TestValidateGenres_ExactlyTwo(t *testing.T) {
	v := NewAuthValidator()
	ctx := context.Background()

	assert.NoError(t, v.ValidateGenres(ctx, []int{28, 35}))
	for _, g := range [][]int{nil, {28}, {28, 35, 18}, {28, 28}} {
		assert.Equal(t, "Please select exactly 2 genres.", messageOf(t, v.ValidateGenres(ctx, g)))
	}
	assert.Equal(t, "Unknown genre selected.", messageOf(t, v.ValidateGenres(ctx, []int{28, 2})))
}

func TestValidateProfile(t *testing.T) {
	v := NewAuthValidator()
	assert.NoError(t, v.ValidateProfile(context.Background(), "Ann", "Lee"))
	assert.Equal(t, "First and last name are required.", messageOf(t, v.ValidateProfile(context.Background(), "Ann", "")))
}
