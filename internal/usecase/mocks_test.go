package usecase

import (
	"context"
	"slices"
	"time"

	"moviestore/internal/domain/model"

	"github.com/stretchr/testify/mock"
)

// =====================
// Mock: IdentityService
// =====================

type MockIdentityService struct {
	mock.Mock
}

func (m *MockIdentityService) SignUp(ctx context.Context, email string, password string, displayName string) (model.Identity, error) {
	args := m.Called(ctx, email, password, displayName)
	id, _ := args.Get(0).(model.Identity)
	return id, args.Error(1)
}

func (m *MockIdentityService) SignIn(ctx context.Context, email string, password string) (model.Identity, error) {
	args := m.Called(ctx, email, password)
	id, _ := args.Get(0).(model.Identity)
	return id, args.Error(1)
}

func (m *MockIdentityService) SignInFederated(ctx context.Context, idToken string) (model.Identity, error) {
	args := m.Called(ctx, idToken)
	id, _ := args.Get(0).(model.Identity)
	return id, args.Error(1)
}

func (m *MockIdentityService) Reauthenticate(ctx context.Context, uid string, password string) error {
	args := m.Called(ctx, uid, password)
	return args.Error(0)
}

func (m *MockIdentityService) UpdatePassword(ctx context.Context, uid string, newPassword string) error {
	args := m.Called(ctx, uid, newPassword)
	return args.Error(0)
}

func (m *MockIdentityService) UpdateDisplayName(ctx context.Context, uid string, displayName string) error {
	args := m.Called(ctx, uid, displayName)
	return args.Error(0)
}

// =====================
// Mock: AccountRepository
// =====================

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) Create(ctx context.Context, acct *model.Account) error {
	args := m.Called(ctx, acct)
	return args.Error(0)
}

func (m *MockAccountRepository) FindByUID(ctx context.Context, uid string) (*model.Account, error) {
	args := m.Called(ctx, uid)
	a, _ := args.Get(0).(*model.Account)
	return a, args.Error(1)
}

func (m *MockAccountRepository) AppendPurchases(ctx context.Context, uid string, records []model.PurchaseRecord) error {
	args := m.Called(ctx, uid, records)
	return args.Error(0)
}

func (m *MockAccountRepository) UpdateName(ctx context.Context, uid string, firstName string, lastName string) error {
	args := m.Called(ctx, uid, firstName, lastName)
	return args.Error(0)
}

func (m *MockAccountRepository) UpdateFavoriteGenres(ctx context.Context, uid string, genres []int) error {
	args := m.Called(ctx, uid, genres)
	return args.Error(0)
}

// =====================
// Mock: AuthValidator
// =====================

type MockAuthValidator struct {
	mock.Mock
}

func (m *MockAuthValidator) ValidateRegister(ctx context.Context, in RegisterInput) error {
	args := m.Called(ctx, in)
	return args.Error(0)
}

func (m *MockAuthValidator) ValidateLogin(ctx context.Context, email string, password string) error {
	args := m.Called(ctx, email, password)
	return args.Error(0)
}

func (m *MockAuthValidator) ValidateProfile(ctx context.Context, firstName string, lastName string) error {
	args := m.Called(ctx, firstName, lastName)
	return args.Error(0)
}

func (m *MockAuthValidator) ValidatePasswordChange(ctx context.Context, in ChangePasswordInput) error {
	args := m.Called(ctx, in)
	return args.Error(0)
}

func (m *MockAuthValidator) ValidateGenres(ctx context.Context, genres []int) error {
	args := m.Called(ctx, genres)
	return args.Error(0)
}

// =====================
// Fake: TokenIssuer / Session
// =====================

type fakeTokens struct{}

func (fakeTokens) Issue(id model.Identity, now time.Time) (string, time.Time, error) {
	return "token-" + id.UID, now.Add(time.Hour), nil
}

// fakeSessionはStorefrontのセッション部分だけ真似る
type fakeSession struct {
	user       *model.UserSession
	genres     []int
	purchases  model.PurchaseHistory
	refreshed  model.PurchaseHistory
	refreshErr error
	setCalls   int
}

func (f *fakeSession) Identity() *model.UserSession {
	if f.user == nil {
		return nil
	}
	u := *f.user
	return &u
}

func (f *fakeSession) Login(ctx context.Context, user *model.UserSession) error {
	f.setCalls++
	f.user = user
	if user != nil {
		f.genres = slices.Clone(user.FavoriteGenres)
		f.purchases = user.Purchases
	} else {
		f.genres = nil
		f.purchases = nil
	}
	return nil
}

func (f *fakeSession) Logout(ctx context.Context) error {
	return f.Login(ctx, nil)
}

func (f *fakeSession) UpdateProfile(ctx context.Context, firstName string, lastName string) error {
	f.user.FirstName = firstName
	f.user.LastName = lastName
	return nil
}

func (f *fakeSession) SetGenres(ctx context.Context, genres []int) error {
	f.genres = slices.Clone(genres)
	return nil
}

func (f *fakeSession) Genres() []int {
	return slices.Clone(f.genres)
}

func (f *fakeSession) Purchases() model.PurchaseHistory {
	return slices.Clone(f.purchases)
}

func (f *fakeSession) RefreshPurchases(ctx context.Context) error {
	if f.refreshErr != nil {
		return f.refreshErr
	}
	f.purchases = f.purchases.Merge(f.refreshed)
	return nil
}

func passwordSession() *fakeSession {
	return &fakeSession{
		user: &model.UserSession{
			UID:       "u1",
			Email:     "a@example.com",
			FirstName: "Ann",
			LastName:  "Lee",
			Provider:  model.ProviderPassword,
		},
		genres:    []int{28, 12},
		purchases: model.PurchaseHistory{},
	}
}
