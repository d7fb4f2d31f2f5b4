package services

import (
	"context"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/brikvest/apiserver/config"
	"github.com/brikvest/apiserver/internal/cache"
	"github.com/brikvest/apiserver/internal/mail"
	"github.com/brikvest/apiserver/internal/store"
	"github.com/brikvest/apiserver/types"
)

// fakeUserStore is an in-memory user repository for service tests.
type fakeUserStore struct {
	mu     sync.Mutex
	nextID int
	users  map[int]types.User
	roles  map[int][]string
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{nextID: 1, users: map[int]types.User{}, roles: map[int][]string{}}
}

func (f *fakeUserStore) GetByID(_ context.Context, id int) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserStore) GetByReferralCode(_ context.Context, code string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.ReferralCode == code && code != "" {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserStore) Create(_ context.Context, user types.User, defaultRole string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return types.User{}, store.ErrConflict
		}
	}
	user.ID = f.nextID
	f.nextID++
	f.users[user.ID] = user
	f.roles[user.ID] = []string{defaultRole}
	return user, nil
}

func (f *fakeUserStore) MarkEmailVerified(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.EmailVerified = true
	f.users[id] = user
	return nil
}

// fakeRBACStore serves role and permission sets keyed by role name.
type fakeRBACStore struct {
	users *fakeUserStore
}

func (f *fakeRBACStore) UserRoles(_ context.Context, userID int) ([]string, error) {
	return f.users.roles[userID], nil
}

func (f *fakeRBACStore) UserPermissions(_ context.Context, userID int) ([]string, error) {
	var perms []string
	for _, role := range f.users.roles[userID] {
		if role == types.RoleUser {
			perms = append(perms, "user.read_own", "subscription.create_own")
		}
	}
	return perms, nil
}

func (f *fakeRBACStore) AssignRole(_ context.Context, userID int, roleName string) error {
	f.users.roles[userID] = append(f.users.roles[userID], roleName)
	return nil
}

func (f *fakeRBACStore) RemoveRole(_ context.Context, userID int, roleName string) error {
	roles := f.users.roles[userID]
	for i, r := range roles {
		if r == roleName {
			f.users.roles[userID] = append(roles[:i], roles[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

type fakeReferralStore struct {
	mu      sync.Mutex
	created []types.PartnerReferral
}

func (f *fakeReferralStore) Create(_ context.Context, ref types.PartnerReferral) (types.PartnerReferral, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ref.ID = len(f.created) + 1
	f.created = append(f.created, ref)
	return ref, nil
}

type authFixture struct {
	auth      *AuthService
	users     *fakeUserStore
	referrals *fakeReferralStore
	otp       *OTPService
	sessions  *SessionRegistry
	cache     *cache.Client
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	c := newTestCache(t)
	logger := zap.NewNop()
	users := newFakeUserStore()
	referrals := &fakeReferralStore{}
	rbac := NewRBACService(&fakeRBACStore{users: users}, c, logger)
	sessions := NewSessionRegistry(c, logger)
	otp := NewOTPService(c)
	tokens := NewTokenIssuer(config.JWTConfig{Secret: "secret", Issuer: "test"}, c)
	notifier := NewNotifier(nil, mail.NewMailer(config.SMTPConfig{}), logger)
	return &authFixture{
		auth:      NewAuthService(users, referrals, rbac, sessions, otp, tokens, notifier, logger),
		users:     users,
		referrals: referrals,
		otp:       otp,
		sessions:  sessions,
		cache:     c,
	}
}

func (f *authFixture) registerVerified(t *testing.T, email, password string) types.User {
	t.Helper()
	ctx := context.Background()
	user, err := f.auth.Register(ctx, RegisterInput{
		Email: email, Phone: "080" + email, FirstName: "Ada", LastName: "O", Password: password,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	code, err := f.otp.Generate(ctx, email)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	result, err := f.auth.VerifyEmail(ctx, email, code, "verify-device", "127.0.0.1")
	if err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}
	// Verification doubles as the first login.
	if result.Tokens.AccessToken == "" || result.Tokens.RefreshToken == "" {
		t.Fatal("VerifyEmail issued no tokens")
	}
	if _, err := f.auth.LogoutAll(ctx, user.ID); err != nil {
		t.Fatalf("LogoutAll: %v", err)
	}
	return user
}

func TestRegisterAssignsDefaultRole(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	user, err := f.auth.Register(ctx, RegisterInput{
		Email: "Ada@Example.com", Phone: "0801", FirstName: "Ada", LastName: "O", Password: "hunter22",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Email != "ada@example.com" {
		t.Fatalf("email not lowercased: %q", user.Email)
	}
	if user.EmailVerified {
		t.Fatal("new accounts must start unverified")
	}
	if roles := f.users.roles[user.ID]; len(roles) != 1 || roles[0] != types.RoleUser {
		t.Fatalf("roles = %v, want [USER]", roles)
	}
}

func TestRegisterPartnerGetsReferralCode(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	partner, err := f.auth.Register(ctx, RegisterInput{
		Email: "p@example.com", Phone: "0802", FirstName: "P", LastName: "A",
		Password: "hunter22", AccountType: types.AccountTypePartner,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if partner.ReferralCode == "" {
		t.Fatal("partner account has no referral code")
	}
	if roles := f.users.roles[partner.ID]; roles[0] != types.RolePartner {
		t.Fatalf("roles = %v, want [PARTNER]", roles)
	}

	referred, err := f.auth.Register(ctx, RegisterInput{
		Email: "r@example.com", Phone: "0803", FirstName: "R", LastName: "B",
		Password: "hunter22", ReferralCode: partner.ReferralCode,
	})
	if err != nil {
		t.Fatalf("Register referred: %v", err)
	}
	if len(f.referrals.created) != 1 {
		t.Fatalf("got %d referrals, want 1", len(f.referrals.created))
	}
	ref := f.referrals.created[0]
	if ref.PartnerID != partner.ID || ref.UserID != referred.ID || ref.Status != types.ReferralStatusSignedUp {
		t.Fatalf("unexpected referral: %+v", ref)
	}
}

func TestLoginRequiresVerifiedEmail(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	if _, err := f.auth.Register(ctx, RegisterInput{
		Email: "u@example.com", Phone: "0804", FirstName: "U", LastName: "V", Password: "hunter22",
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, err := f.auth.Login(ctx, LoginInput{Email: "u@example.com", Password: "hunter22"})
	if err != ErrEmailNotVerified {
		t.Fatalf("Login unverified = %v; want ErrEmailNotVerified", err)
	}
	// The rejected login dispatches a fresh verification code.
	if _, err := f.cache.Get(ctx, otpKey("u@example.com")); err != nil {
		t.Fatalf("no fresh otp after unverified login: %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	f.registerVerified(t, "u@example.com", "hunter22")

	if _, err := f.auth.Login(ctx, LoginInput{Email: "u@example.com", Password: "wrong"}); err != ErrInvalidCredentials {
		t.Fatalf("Login = %v; want ErrInvalidCredentials", err)
	}
	if _, err := f.auth.Login(ctx, LoginInput{Email: "ghost@example.com", Password: "hunter22"}); err != ErrInvalidCredentials {
		t.Fatalf("Login unknown email = %v; want ErrInvalidCredentials", err)
	}
}

func TestLoginIssuesSessionAndTokens(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	user := f.registerVerified(t, "u@example.com", "hunter22")

	res, err := f.auth.Login(ctx, LoginInput{
		Email: "u@example.com", Password: "hunter22", DeviceInfo: "cli", IP: "127.0.0.1",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Tokens.AccessToken == "" || res.Tokens.RefreshToken == "" {
		t.Fatal("missing tokens")
	}

	sessions, err := f.auth.Sessions(ctx, user.ID)
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].DeviceInfo != "cli" {
		t.Fatalf("sessions = %+v", sessions)
	}
}

func TestRefreshRotation(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	f.registerVerified(t, "u@example.com", "hunter22")

	res, err := f.auth.Login(ctx, LoginInput{Email: "u@example.com", Password: "hunter22"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	rotated, err := f.auth.Refresh(ctx, res.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if rotated.RefreshToken == res.Tokens.RefreshToken {
		t.Fatal("refresh token was not rotated")
	}

	// The consumed token is dead.
	if _, err := f.auth.Refresh(ctx, res.Tokens.RefreshToken); err != ErrInvalidToken {
		t.Fatalf("Refresh reused token = %v; want ErrInvalidToken", err)
	}
	// The replacement works.
	if _, err := f.auth.Refresh(ctx, rotated.RefreshToken); err != nil {
		t.Fatalf("Refresh rotated token: %v", err)
	}
}

func TestLogoutAllKillsRefresh(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	user := f.registerVerified(t, "u@example.com", "hunter22")

	first, err := f.auth.Login(ctx, LoginInput{Email: "u@example.com", Password: "hunter22", DeviceInfo: "a"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := f.auth.Login(ctx, LoginInput{Email: "u@example.com", Password: "hunter22", DeviceInfo: "b"}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	n, err := f.auth.LogoutAll(ctx, user.ID)
	if err != nil {
		t.Fatalf("LogoutAll: %v", err)
	}
	if n != 2 {
		t.Fatalf("LogoutAll removed %d sessions, want 2", n)
	}

	if _, err := f.auth.Refresh(ctx, first.Tokens.RefreshToken); err != ErrInvalidToken {
		t.Fatalf("Refresh after logout-all = %v; want ErrInvalidToken", err)
	}
}

func TestLogoutSessionOwnershipEnforced(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	user := f.registerVerified(t, "u@example.com", "hunter22")
	other := f.registerVerified(t, "o@example.com", "hunter22")

	if _, err := f.auth.Login(ctx, LoginInput{Email: "u@example.com", Password: "hunter22"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	sessions, err := f.auth.Sessions(ctx, user.ID)
	if err != nil || len(sessions) != 1 {
		t.Fatalf("Sessions = %v, %v", sessions, err)
	}

	if err := f.auth.LogoutSession(ctx, other.ID, sessions[0].SessionID); err != ErrForbidden {
		t.Fatalf("LogoutSession as other user = %v; want ErrForbidden", err)
	}
	if err := f.auth.LogoutSession(ctx, user.ID, sessions[0].SessionID); err != nil {
		t.Fatalf("LogoutSession: %v", err)
	}
}

func TestVerifyEmailAlreadyVerified(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	f.registerVerified(t, "u@example.com", "hunter22")

	if _, err := f.auth.VerifyEmail(ctx, "u@example.com", "123456", "", ""); err != ErrAlreadyVerified {
		t.Fatalf("VerifyEmail = %v; want ErrAlreadyVerified", err)
	}
	if err := f.auth.ResendOTP(ctx, "u@example.com"); err != ErrAlreadyVerified {
		t.Fatalf("ResendOTP = %v; want ErrAlreadyVerified", err)
	}
	// Unknown emails are not distinguishable.
	if err := f.auth.ResendOTP(ctx, "ghost@example.com"); err != nil {
		t.Fatalf("ResendOTP unknown = %v; want nil", err)
	}
}
