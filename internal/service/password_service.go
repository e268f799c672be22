package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/schoolhub-api/internal/models"
	appErrors "github.com/noah-isme/schoolhub-api/pkg/errors"
)

const otpLength = 6

type memberDirectory interface {
	schoolRepository
	FindByMemberEmail(ctx context.Context, role models.Role, email string) ([]models.School, error)
}

type resetUserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	SetResetOTP(ctx context.Context, id string, hash *string, expiry *time.Time) error
	ResetPassword(ctx context.Context, id, passwordHash string) error
}

type otpNotifier interface {
	SendOTP(ctx context.Context, to, name, code string, ttl time.Duration) error
}

// OTPRequest asks for a reset code. SchoolID disambiguates teachers and students
// whose email is registered in more than one school.
type OTPRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Role     string `json:"role" validate:"required,role"`
	SchoolID string `json:"schoolId"`
}

// VerifyOTPRequest exchanges a reset code for a new password.
type VerifyOTPRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Role        string `json:"role" validate:"required,role"`
	SchoolID    string `json:"schoolId"`
	OTP         string `json:"otp" validate:"required,len=6,numeric"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=72"`
}

// PasswordService runs the email OTP password reset flow.
type PasswordService struct {
	schools   memberDirectory
	users     resetUserStore
	notifier  otpNotifier
	metrics   *MetricsService
	ttl       time.Duration
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewPasswordService constructs PasswordService. ttl defaults to ten minutes.
func NewPasswordService(schools memberDirectory, users resetUserStore, notifier otpNotifier, metrics *MetricsService, ttl time.Duration, validate *validator.Validate, logger *zap.Logger) *PasswordService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &PasswordService{schools: schools, users: users, notifier: notifier, metrics: metrics, ttl: ttl, validator: validate, logger: logger, now: time.Now}
}

// account is the located owner of a reset request.
type account struct {
	role   models.Role
	user   *models.User
	school *models.School
	id     string
	name   string
	email  string
	otp    *models.OTPState
}

// RequestOTP issues a code and emails it.
func (s *PasswordService) RequestOTP(ctx context.Context, req OTPRequest) error {
	return s.issue(ctx, req, "requested")
}

// ResendOTP issues a fresh code; the previous one stops working.
func (s *PasswordService) ResendOTP(ctx context.Context, req OTPRequest) error {
	return s.issue(ctx, req, "resent")
}

// VerifyOTP checks the code and, when it matches and has not expired, replaces
// the password and clears the code.
func (s *PasswordService) VerifyOTP(ctx context.Context, req VerifyOTPRequest) error {
	if err := validateStruct(s.validator, req, "otp verification"); err != nil {
		return err
	}
	role, _ := models.ParseRole(req.Role)
	acct, err := s.locate(ctx, role, req.Email, req.SchoolID)
	if err != nil {
		return err
	}

	if acct.otp == nil || acct.otp.Hash == "" {
		return appErrors.Clone(appErrors.ErrInvalidOTP, "no reset code outstanding")
	}
	if s.now().UTC().After(acct.otp.Expiry) {
		return appErrors.ErrOTPExpired
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.otp.Hash), []byte(req.OTP)) != nil {
		return appErrors.ErrInvalidOTP
	}

	hash, err := hashSecret(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.apply(ctx, acct, func(passwordHash *string, otp **models.OTPState) {
		*passwordHash = hash
		*otp = nil
	}); err != nil {
		return err
	}
	s.logger.Info("password reset", zap.String("role", string(acct.role)), zap.String("account_id", acct.id))
	return nil
}

func (s *PasswordService) issue(ctx context.Context, req OTPRequest, action string) error {
	req.Email = normalizeEmail(req.Email)
	if err := validateStruct(s.validator, req, "otp request"); err != nil {
		return err
	}
	role, _ := models.ParseRole(req.Role)
	acct, err := s.locate(ctx, role, req.Email, req.SchoolID)
	if err != nil {
		return err
	}

	code, err := randomDigits(otpLength)
	if err != nil {
		return internalErr(err, "failed to generate otp")
	}
	hash, err := hashSecret(code)
	if err != nil {
		return err
	}
	state := &models.OTPState{Hash: hash, Expiry: s.now().UTC().Add(s.ttl)}
	if err := s.apply(ctx, acct, func(_ *string, otp **models.OTPState) {
		*otp = state
	}); err != nil {
		return err
	}

	if err := s.notifier.SendOTP(ctx, acct.email, acct.name, code, s.ttl); err != nil {
		return internalErr(err, "failed to send otp email")
	}
	s.metrics.RecordOTPIssued(string(acct.role))
	s.logger.Info("otp "+action, zap.String("role", string(acct.role)), zap.String("account_id", acct.id))
	return nil
}

// apply lets fn edit the account's password hash and OTP state, then persists
// the result. Admin changes go to the users row, member changes through the aggregate.
func (s *PasswordService) apply(ctx context.Context, acct *account, fn func(passwordHash *string, otp **models.OTPState)) error {
	if acct.role == models.RoleAdmin {
		password := ""
		otp := acct.otp
		fn(&password, &otp)
		if password != "" {
			if err := s.users.ResetPassword(ctx, acct.id, password); err != nil {
				return storeErr(err, "user")
			}
			return nil
		}
		var hash *string
		var expiry *time.Time
		if otp != nil {
			hash, expiry = &otp.Hash, &otp.Expiry
		}
		if err := s.users.SetResetOTP(ctx, acct.id, hash, expiry); err != nil {
			return storeErr(err, "user")
		}
		return nil
	}

	_, err := mutateSchool(ctx, s.schools, acct.school, func(draft *models.School) error {
		switch acct.role {
		case models.RoleTeacher:
			idx := teacherIndex(draft, acct.id)
			if idx < 0 {
				return notFoundErr("account not found")
			}
			fn(&draft.Teachers[idx].PasswordHash, &draft.Teachers[idx].ResetOTP)
		case models.RoleStudent:
			idx := studentIndex(draft, acct.id)
			if idx < 0 {
				return notFoundErr("account not found")
			}
			fn(&draft.Students[idx].PasswordHash, &draft.Students[idx].ResetOTP)
		}
		return nil
	})
	return err
}

func (s *PasswordService) locate(ctx context.Context, role models.Role, email, schoolID string) (*account, error) {
	email = normalizeEmail(email)
	if role == models.RoleAdmin {
		user, err := s.users.FindByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, notFoundErr("account not found")
			}
			return nil, internalErr(err, "failed to load account")
		}
		acct := &account{role: role, user: user, id: user.ID, name: user.Email, email: user.Email}
		if user.ResetOTPHash != nil && user.ResetOTPExpiry != nil {
			acct.otp = &models.OTPState{Hash: *user.ResetOTPHash, Expiry: *user.ResetOTPExpiry}
		}
		return acct, nil
	}

	var candidates []models.School
	if schoolID != "" {
		school, err := s.schools.FindByID(ctx, schoolID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, notFoundErr("account not found")
			}
			return nil, internalErr(err, "failed to load school")
		}
		candidates = []models.School{*school}
	} else {
		found, err := s.schools.FindByMemberEmail(ctx, role, email)
		if err != nil {
			return nil, internalErr(err, "failed to look up account")
		}
		candidates = found
	}

	var matches []*account
	for i := range candidates {
		if acct := memberAccount(&candidates[i], role, email); acct != nil {
			matches = append(matches, acct)
		}
	}
	switch len(matches) {
	case 0:
		return nil, notFoundErr("account not found")
	case 1:
		return matches[0], nil
	default:
		return nil, validationErr("email is registered in several schools; schoolId is required")
	}
}

func memberAccount(school *models.School, role models.Role, email string) *account {
	switch role {
	case models.RoleTeacher:
		for _, t := range school.Teachers {
			if strings.EqualFold(t.Email, email) {
				return &account{role: role, school: school, id: t.ID, name: t.Name, email: t.Email, otp: t.ResetOTP}
			}
		}
	case models.RoleStudent:
		for _, st := range school.Students {
			if strings.EqualFold(st.Email, email) {
				return &account{role: role, school: school, id: st.ID, name: st.Name, email: st.Email, otp: st.ResetOTP}
			}
		}
	}
	return nil
}
