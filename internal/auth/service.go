package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/chronos/internal/database/models"
	"github.com/hugh/chronos/internal/referral"
	"github.com/hugh/chronos/pkg/crypto"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrOwnerPinNotSet     = errors.New("owner pin not set")
	ErrInvalidOwnerPin    = errors.New("invalid owner pin")
)

type Service struct {
	db        *gorm.DB
	jwt       *JWTService
	encryptor *crypto.Encryptor
	google    GoogleVerifier
	trial     time.Duration
	now       func() time.Time
}

type Options struct {
	// JWT issues session tokens; nil in header auth mode.
	JWT *JWTService
	// Google verifies access tokens on google-login; nil trusts the payload.
	Google      GoogleVerifier
	TrialPeriod time.Duration
}

func NewService(db *gorm.DB, encryptor *crypto.Encryptor, opts Options) *Service {
	return &Service{
		db:        db,
		jwt:       opts.JWT,
		encryptor: encryptor,
		google:    opts.Google,
		trial:     opts.TrialPeriod,
		now:       time.Now,
	}
}

type RegisterInput struct {
	Email        string
	Password     string
	Name         string
	ReferralCode string // from the chronos_referral_code cookie, optional
}

type LoginInput struct {
	Email    string
	Password string
}

type GoogleLoginInput struct {
	Email        string
	Name         string
	Picture      string
	AccessToken  string
	ReferralCode string
}

type AuthResponse struct {
	Token   string       `json:"token,omitempty"`
	User    *models.User `json:"user"`
	Created bool         `json:"-"`
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Register(ctx context.Context, input RegisterInput) (*AuthResponse, error) {
	email := NormalizeEmail(input.Email)

	var existing models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         input.Name,
		TrialEndsAt:  s.trialEnd(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := attachReferral(tx, &user, input.ReferralCode); err != nil {
			return err
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		return nil, err
	}

	return s.respond(&user, true)
}

func (s *Service) Login(ctx context.Context, input LoginInput) (*AuthResponse, error) {
	var user models.User
	if err := s.db.WithContext(ctx).
		Where("email = ?", NormalizeEmail(input.Email)).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !CheckPassword(input.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.respond(&user, false)
}

// GoogleLogin creates or updates the user behind a Google sign-in and marks
// the email verified. The profile in input is trusted unless a verifier is
// configured, in which case the access token must resolve to the same email.
func (s *Service) GoogleLogin(ctx context.Context, input GoogleLoginInput) (*AuthResponse, error) {
	email := NormalizeEmail(input.Email)

	if s.google != nil {
		profile, err := s.google.Verify(ctx, input.AccessToken)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrGoogleIdentityMismatch, err)
		}
		if profile.Email != email {
			return nil, ErrGoogleIdentityMismatch
		}
	}

	var user models.User
	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("email = ?", email).First(&user).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			created = true
			user = models.User{
				Email:         email,
				Name:          input.Name,
				Image:         input.Picture,
				EmailVerified: true,
				TrialEndsAt:   s.trialEnd(),
			}
			if err := attachReferral(tx, &user, input.ReferralCode); err != nil {
				return err
			}
			return tx.Create(&user).Error
		case err != nil:
			return err
		}

		updates := map[string]interface{}{"email_verified": true}
		if input.Name != "" {
			updates["name"] = input.Name
		}
		if input.Picture != "" {
			updates["image"] = input.Picture
		}
		if err := tx.Model(&user).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&user, "id = ?", user.ID).Error
	})
	if err != nil {
		return nil, err
	}

	return s.respond(&user, created)
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).
		Where("email = ?", NormalizeEmail(email)).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UpdateOwnerPin seals pin and stores it on the user. Length rules are
// enforced by the caller.
func (s *Service) UpdateOwnerPin(ctx context.Context, userID uuid.UUID, pin string) error {
	sealed, err := s.encryptor.Seal(pin)
	if err != nil {
		return fmt.Errorf("sealing owner pin: %w", err)
	}

	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("owner_pin_enc", sealed)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// GrantAdminAccess flips is_admin on the user with email when pin equals the
// owner PIN stored on that same user.
func (s *Service) GrantAdminAccess(ctx context.Context, email, pin string) (*models.User, error) {
	user, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !user.HasOwnerPin() {
		return nil, ErrOwnerPinNotSet
	}

	ok, err := s.encryptor.Matches(user.OwnerPinEnc, pin)
	if err != nil {
		return nil, fmt.Errorf("opening owner pin: %w", err)
	}
	if !ok {
		return nil, ErrInvalidOwnerPin
	}

	if err := s.db.WithContext(ctx).Model(user).Update("is_admin", true).Error; err != nil {
		return nil, err
	}
	user.IsAdmin = true
	return user, nil
}

func (s *Service) SetImage(ctx context.Context, userID uuid.UUID, url string) error {
	return s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("image", url).Error
}

// IssueToken returns a session token for user, or "" in header auth mode.
func (s *Service) IssueToken(user *models.User) (string, error) {
	if s.jwt == nil {
		return "", nil
	}
	return s.jwt.GenerateToken(user.ID, user.Email, user.IsAdmin)
}

func (s *Service) respond(user *models.User, created bool) (*AuthResponse, error) {
	token, err := s.IssueToken(user)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, User: user, Created: created}, nil
}

func (s *Service) trialEnd() *time.Time {
	if s.trial <= 0 {
		return nil
	}
	end := s.now().Add(s.trial).UTC()
	return &end
}

// attachReferral links a new user to the referral behind code. Malformed or
// unknown codes are ignored, matching how the capture cookie treats them.
func attachReferral(tx *gorm.DB, user *models.User, code string) error {
	if !referral.IsValidCode(code) {
		return nil
	}

	var ref models.Referral
	err := tx.Where("code = ?", code).First(&ref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	id := ref.ID
	user.ReferredByID = &id
	return nil
}
