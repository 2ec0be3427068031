package usecase

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"moviestore/internal/domain/model"
	"moviestore/internal/infra/identity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSettingsGet_RefreshIsBestEffort(t *testing.T) {
	ctx := context.Background()
	uc := NewSettingsUsecase(new(MockIdentityService), new(MockAccountRepository), new(MockAuthValidator), nil)

	sess := passwordSession()
	sess.purchases = model.PurchaseHistory{{ID: 1, Title: "A"}}
	sess.refreshed = model.PurchaseHistory{{ID: 1, Title: "A"}, {ID: 2, Title: "B"}}

	res, err := uc.Get(ctx, sess)
	require.NoError(t, err)
	assert.Len(t, res.PurchaseHistory, 2)
	assert.True(t, res.CanEditProfile)
	assert.Equal(t, []int{28, 12}, res.FavoriteGenres)
	assert.NotEmpty(t, res.AvailableGenres)

	// 取り直しに失敗しても手元の履歴で返す
	sess.refreshErr = errors.New("ledger down")
	sess.refreshed = nil
	res, err = uc.Get(ctx, sess)
	require.NoError(t, err)
	assert.Len(t, res.PurchaseHistory, 2)
}

func TestSettingsGet_RequiresLogin(t *testing.T) {
	uc := NewSettingsUsecase(new(MockIdentityService), new(MockAccountRepository), new(MockAuthValidator), nil)

	_, err := uc.Get(context.Background(), &fakeSession{})
	assertHTTPError(t, err, http.StatusUnauthorized, "You must be logged in.")
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("password user", func(t *testing.T) {
		ids := new(MockIdentityService)
		accts := new(MockAccountRepository)
		v := new(MockAuthValidator)
		uc := NewSettingsUsecase(ids, accts, v, nil)

		v.On("ValidateProfile", ctx, " Anna ", "Li").Return(nil)
		ids.On("UpdateDisplayName", ctx, "u1", "Anna Li").Return(nil)
		accts.On("UpdateName", ctx, "u1", "Anna", "Li").Return(nil)

		sess := passwordSession()
		res, err := uc.UpdateProfile(ctx, sess, ProfileInput{FirstName: " Anna ", LastName: "Li"})
		require.NoError(t, err)
		assert.Equal(t, "Profile updated successfully.", res.Message)
		assert.Equal(t, "Anna", sess.user.FirstName)
	})

	t.Run("federated user is rejected", func(t *testing.T) {
		ids := new(MockIdentityService)
		uc := NewSettingsUsecase(ids, new(MockAccountRepository), new(MockAuthValidator), nil)

		sess := passwordSession()
		sess.user.Provider = model.ProviderGoogle
		_, err := uc.UpdateProfile(ctx, sess, ProfileInput{FirstName: "A", LastName: "B"})
		assert.True(t, errors.Is(err, ErrForbidden))
		ids.AssertNotCalled(t, "UpdateDisplayName", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ledger failure leaves session unchanged", func(t *testing.T) {
		ids := new(MockIdentityService)
		accts := new(MockAccountRepository)
		v := new(MockAuthValidator)
		uc := NewSettingsUsecase(ids, accts, v, nil)

		v.On("ValidateProfile", ctx, mock.Anything, mock.Anything).Return(nil)
		ids.On("UpdateDisplayName", ctx, "u1", mock.Anything).Return(nil)
		accts.On("UpdateName", ctx, "u1", mock.Anything, mock.Anything).Return(errors.New("unavailable"))

		sess := passwordSession()
		_, err := uc.UpdateProfile(ctx, sess, ProfileInput{FirstName: "X", LastName: "Y"})
		assertHTTPError(t, err, http.StatusBadGateway, "Failed to update profile.")
		assert.Equal(t, "Ann", sess.user.FirstName)
	})
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	in := ChangePasswordInput{CurrentPassword: "old-pw", NewPassword: "new-pw1", ConfirmPassword: "new-pw1"}

	t.Run("success", func(t *testing.T) {
		ids := new(MockIdentityService)
		v := new(MockAuthValidator)
		uc := NewSettingsUsecase(ids, new(MockAccountRepository), v, nil)

		v.On("ValidatePasswordChange", ctx, in).Return(nil)
		ids.On("Reauthenticate", ctx, "u1", "old-pw").Return(nil)
		ids.On("UpdatePassword", ctx, "u1", "new-pw1").Return(nil)

		res, err := uc.ChangePassword(ctx, passwordSession(), in)
		require.NoError(t, err)
		assert.Equal(t, "Password updated successfully.", res.Message)
	})

	t.Run("wrong current password", func(t *testing.T) {
		ids := new(MockIdentityService)
		v := new(MockAuthValidator)
		uc := NewSettingsUsecase(ids, new(MockAccountRepository), v, nil)

		v.On("ValidatePasswordChange", ctx, in).Return(nil)
		ids.On("Reauthenticate", ctx, "u1", "old-pw").Return(identity.ErrInvalidCredentials)

		_, err := uc.ChangePassword(ctx, passwordSession(), in)
		assertHTTPError(t, err, http.StatusUnauthorized, "Failed to update password. Please check your current password.")
		ids.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("mismatch never reaches identity service", func(t *testing.T) {
		ids := new(MockIdentityService)
		v := new(MockAuthValidator)
		uc := NewSettingsUsecase(ids, new(MockAccountRepository), v, nil)

		bad := ChangePasswordInput{CurrentPassword: "old-pw", NewPassword: "a", ConfirmPassword: "b"}
		v.On("ValidatePasswordChange", ctx, bad).Return(NewValidationError("New passwords do not match."))

		_, err := uc.ChangePassword(ctx, passwordSession(), bad)
		assertHTTPError(t, err, http.StatusBadRequest, "New passwords do not match.")
		ids.AssertNotCalled(t, "Reauthenticate", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestSetGenres(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		accts := new(MockAccountRepository)
		v := new(MockAuthValidator)
		uc := NewSettingsUsecase(new(MockIdentityService), accts, v, nil)

		v.On("ValidateGenres", ctx, []int{35, 18}).Return(nil)
		accts.On("UpdateFavoriteGenres", ctx, "u1", []int{35, 18}).Return(nil)

		sess := passwordSession()
		res, err := uc.SetGenres(ctx, sess, GenresInput{FavoriteGenres: []int{35, 18}})
		require.NoError(t, err)
		assert.Equal(t, "Genre preferences updated.", res.Message)
		assert.Equal(t, []int{35, 18}, sess.Genres())
	})

	t.Run("remote failure keeps old genres", func(t *testing.T) {
		accts := new(MockAccountRepository)
		v := new(MockAuthValidator)
		uc := NewSettingsUsecase(new(MockIdentityService), accts, v, nil)

		v.On("ValidateGenres", ctx, mock.Anything).Return(nil)
		accts.On("UpdateFavoriteGenres", ctx, "u1", mock.Anything).Return(errors.New("down"))

		sess := passwordSession()
		_, err := uc.SetGenres(ctx, sess, GenresInput{FavoriteGenres: []int{35, 18}})
		assertHTTPError(t, err, http.StatusBadGateway, "Failed to update genres.")
		assert.Equal(t, []int{28, 12}, sess.Genres())
	})
}
