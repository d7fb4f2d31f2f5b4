package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/brikvest/apiserver/internal/ids"
	"github.com/brikvest/apiserver/internal/store"
	"github.com/brikvest/apiserver/types"
)

// userStore is the slice of the user repository the auth service consumes.
type userStore interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	GetByReferralCode(ctx context.Context, code string) (types.User, error)
	Create(ctx context.Context, user types.User, defaultRole string) (types.User, error)
	MarkEmailVerified(ctx context.Context, id int) error
}

type referralStore interface {
	Create(ctx context.Context, referral types.PartnerReferral) (types.PartnerReferral, error)
}

// RegisterInput carries a signup request.
type RegisterInput struct {
	Email        string
	Phone        string
	FirstName    string
	LastName     string
	Password     string
	AccountType  types.AccountType
	ReferralCode string
}

// LoginInput carries a login request plus the device metadata the
// session records.
type LoginInput struct {
	Email      string
	Password   string
	DeviceInfo string
	IP         string
}

// LoginResult is a token pair plus the authenticated user.
type LoginResult struct {
	User   types.User
	Tokens TokenPair
}

// AuthService implements registration, email verification, login,
// token refresh, and logout across devices.
type AuthService struct {
	users     userStore
	referrals referralStore
	rbac      *RBACService
	sessions  *SessionRegistry
	otp       *OTPService
	tokens    *TokenIssuer
	notifier  *Notifier
	logger    *zap.Logger
}

func NewAuthService(
	users userStore,
	referrals referralStore,
	rbac *RBACService,
	sessions *SessionRegistry,
	otp *OTPService,
	tokens *TokenIssuer,
	notifier *Notifier,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		referrals: referrals,
		rbac:      rbac,
		sessions:  sessions,
		otp:       otp,
		tokens:    tokens,
		notifier:  notifier,
		logger:    logger,
	}
}

// Register creates an unverified account with the default role and
// sends the verification code. Partner accounts get a referral code;
// signups carrying someone else's code are linked to that partner.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (types.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, err
	}

	accountType := in.AccountType
	if accountType == "" {
		accountType = types.AccountTypeIndividual
	}
	user := types.User{
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:        strings.TrimSpace(in.Phone),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		AccountType:  accountType,
		KYCStatus:    types.KYCStatusNone,
		PasswordHash: string(hash),
	}

	defaultRole := types.RoleUser
	if accountType == types.AccountTypePartner {
		defaultRole = types.RolePartner
		user.ReferralCode = ids.New()
	}

	var partner types.User
	if in.ReferralCode != "" {
		partner, err = s.users.GetByReferralCode(ctx, in.ReferralCode)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return types.User{}, err
		}
	}

	user, err = s.users.Create(ctx, user, defaultRole)
	if err != nil {
		return types.User{}, err
	}

	if partner.ID != 0 {
		_, err := s.referrals.Create(ctx, types.PartnerReferral{
			PartnerID: partner.ID,
			UserID:    user.ID,
			Status:    types.ReferralStatusSignedUp,
		})
		if err != nil {
			s.logger.Error("linking referral failed",
				zap.Int("user_id", user.ID), zap.Int("partner_id", partner.ID), zap.Error(err))
		}
	}

	code, err := s.otp.Generate(ctx, user.Email)
	if err != nil {
		s.logger.Error("generating verification code failed",
			zap.Int("user_id", user.ID), zap.Error(err))
		return user, nil
	}
	s.notifier.SendOTP(ctx, user.Email, user.FirstName, code)
	return user, nil
}

// VerifyEmail redeems the OTP, marks the account verified, and logs
// the device in so clients do not need a second round trip.
func (s *AuthService) VerifyEmail(ctx context.Context, email, code, deviceInfo, ip string) (LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return LoginResult{}, ErrInvalidOTP
		}
		return LoginResult{}, err
	}
	if user.EmailVerified {
		return LoginResult{}, ErrAlreadyVerified
	}
	if err := s.otp.Verify(ctx, user.Email, code); err != nil {
		return LoginResult{}, err
	}
	if err := s.users.MarkEmailVerified(ctx, user.ID); err != nil {
		return LoginResult{}, err
	}
	user.EmailVerified = true
	s.notifier.SendWelcome(ctx, user.Email, user.FirstName)

	return s.establishSession(ctx, user, deviceInfo, ip)
}

// ResendOTP issues a fresh verification code for an unverified account.
// It reports success even when the email is unknown, so the endpoint
// cannot be used to probe for accounts.
func (s *AuthService) ResendOTP(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	if user.EmailVerified {
		return ErrAlreadyVerified
	}
	code, err := s.otp.Generate(ctx, user.Email)
	if err != nil {
		return err
	}
	s.notifier.SendOTP(ctx, user.Email, user.FirstName, code)
	return nil
}

// Login authenticates the user, registers a session for the device,
// and issues a token pair.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn a comparison anyway to keep timing uniform.
			_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$0000000000000000000000.000000000000000000000000000000"), []byte(in.Password))
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}
	if !user.EmailVerified {
		// Nudge the user toward verification with a fresh code.
		if code, err := s.otp.Generate(ctx, user.Email); err == nil {
			s.notifier.SendOTP(ctx, user.Email, user.FirstName, code)
		} else {
			s.logger.Error("generating verification code failed",
				zap.Int("user_id", user.ID), zap.Error(err))
		}
		return LoginResult{}, ErrEmailNotVerified
	}

	return s.establishSession(ctx, user, in.DeviceInfo, in.IP)
}

// establishSession registers a device session and issues tokens for it.
func (s *AuthService) establishSession(ctx context.Context, user types.User, deviceInfo, ip string) (LoginResult, error) {
	sess, err := s.sessions.Create(ctx, user.ID, deviceInfo, ip)
	if err != nil {
		return LoginResult{}, err
	}
	roles, perms, err := s.rbac.RolesAndPermissions(ctx, user.ID)
	if err != nil {
		return LoginResult{}, err
	}
	tokens, err := s.tokens.Issue(ctx, user, sess, roles, perms)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{User: user, Tokens: tokens}, nil
}

// Refresh rotates a refresh token: the presented token is consumed,
// the session is validated and touched, and a new pair is issued. If
// the session behind the token is gone the rotation fails.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	record, err := s.tokens.Redeem(ctx, refreshToken)
	if err != nil {
		return TokenPair{}, err
	}

	sess, err := s.sessions.Get(ctx, record.SessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return TokenPair{}, ErrInvalidToken
		}
		return TokenPair{}, err
	}
	if err := s.sessions.Touch(ctx, sess.SessionID); err != nil {
		return TokenPair{}, err
	}

	user, err := s.users.GetByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return TokenPair{}, ErrInvalidToken
		}
		return TokenPair{}, err
	}
	roles, perms, err := s.rbac.RolesAndPermissions(ctx, user.ID)
	if err != nil {
		return TokenPair{}, err
	}
	return s.tokens.Issue(ctx, user, sess, roles, perms)
}

// LogoutSession ends one device session. Only the session owner may
// end it.
func (s *AuthService) LogoutSession(ctx context.Context, userID int, sessionID string) error {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.UserID != userID {
		return ErrForbidden
	}
	return s.sessions.Delete(ctx, sessionID)
}

// LogoutAll ends every session for the user, invalidating outstanding
// access tokens on the next guarded request.
func (s *AuthService) LogoutAll(ctx context.Context, userID int) (int, error) {
	return s.sessions.DeleteAllForUser(ctx, userID)
}

// Sessions lists the user's live device sessions.
func (s *AuthService) Sessions(ctx context.Context, userID int) ([]types.Session, error) {
	return s.sessions.List(ctx, userID)
}
