package service

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/bike-service/internal/db"
	"github.com/ukydev/bike-service/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const msgInvalidCredentials = "Invalid credentials"

// PasswordHasher hashes and verifies credentials.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	CheckPassword(password, hash string) bool
	ValidatePassword(password string) error
}

// TokenIssuer signs credential tokens for authenticated accounts.
type TokenIssuer interface {
	GenerateToken(user *models.User) (string, error)
}

// RegisterInput is the data needed to open an account.
type RegisterInput struct {
	Name     string      `validate:"required"`
	Email    string      `validate:"required,email"`
	Password string      `validate:"required"`
	Role     models.Role `validate:"omitempty"`
}

// ProfileUpdate holds the self-editable profile fields. Empty means unchanged.
type ProfileUpdate struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// IdentityService owns accounts and credential verification.
type IdentityService struct {
	users  db.UserCollection
	hasher PasswordHasher
	tokens TokenIssuer
	logger log.FieldLogger

	// dummyHash is compared against when the email is unknown.
	dummyHash string
}

// fallbackDummyHash is a cost-10 bcrypt hash of an unused password.
const fallbackDummyHash = "$2b$10$MCalvdgK0pOOACgxv9vVYeTzDfsbZ3.4LZhvOQaUPWQJSre3lv5qS"

// NewIdentityService creates the account service.
func NewIdentityService(users db.UserCollection, hasher PasswordHasher, tokens TokenIssuer, logger log.FieldLogger) *IdentityService {
	dummyHash, err := hasher.HashPassword("not-a-real-password")
	if err != nil {
		logger.WithError(err).Warn("Failed to hash dummy password, using built-in hash")
		dummyHash = fallbackDummyHash
	}
	return &IdentityService{users: users, hasher: hasher, tokens: tokens, logger: logger, dummyHash: dummyHash}
}

// Register opens an account. Role defaults to user.
func (s *IdentityService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Email = normalizeEmail(in.Email)
	if err := checkInput(in); err != nil {
		return nil, err
	}
	if in.Role == "" {
		in.Role = models.RoleUser
	}
	if !models.IsValidRole(in.Role) {
		return nil, validationError("Invalid role")
	}
	if err := s.hasher.ValidatePassword(in.Password); err != nil {
		return nil, validationError(err.Error())
	}
	return s.createAccount(ctx, in.Name, in.Email, "", in.Password, in.Role)
}

// createAccount hashes the password and inserts the account, enforcing email uniqueness.
func (s *IdentityService) createAccount(ctx context.Context, name, email, phone, password string, role models.Role) (*models.User, error) {
	if _, err := s.users.FindUserByEmail(ctx, email); err == nil {
		return nil, conflictError("Email already registered")
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil, unexpectedError("look up email", err)
	}

	hash, err := s.hasher.HashPassword(password)
	if err != nil {
		return nil, unexpectedError("hash password", err)
	}

	now := time.Now().UTC()
	user := models.User{
		ID:           primitive.NewObjectID(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Phone:        phone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.InsertUser(ctx, user); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return nil, conflictError("Email already registered")
		}
		return nil, unexpectedError("insert user", err)
	}

	s.logger.WithFields(log.Fields{"user_id": user.ID.Hex(), "role": user.Role}).Info("Account created")
	user.PasswordHash = ""
	return &user, nil
}

// Authenticate verifies email and password. Unknown email and wrong password
// produce the same error.
func (s *IdentityService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, validationError("Email and password are required")
	}

	user, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			return nil, unexpectedError("look up email", err)
		}
		// Burn a comparison so response time does not reveal unknown emails.
		s.hasher.CheckPassword(password, s.dummyHash)
		return nil, authError(msgInvalidCredentials)
	}

	if !s.hasher.CheckPassword(password, user.PasswordHash) {
		return nil, authError(msgInvalidCredentials)
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID.Hex()); err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID.Hex()).Warn("Failed to update last login")
	}

	user.PasswordHash = ""
	return user, nil
}

// Login authenticates and issues a token.
func (s *IdentityService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return "", nil, err
	}
	token, err := s.tokens.GenerateToken(user)
	if err != nil {
		return "", nil, unexpectedError("generate token", err)
	}
	return token, user, nil
}

// GetByID returns the account without its password hash.
func (s *IdentityService) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, notFoundError("User not found")
		}
		return nil, unexpectedError("find user", err)
	}
	user.PasswordHash = ""
	return user, nil
}

// UpdateProfile changes the caller's own name, address and phone.
func (s *IdentityService) UpdateProfile(ctx context.Context, caller models.Identity, in ProfileUpdate) (*models.User, error) {
	user, err := s.users.FindUserByID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, notFoundError("User not found")
		}
		return nil, unexpectedError("find user", err)
	}

	if in.Name != "" {
		user.Name = in.Name
	}
	if in.Address != "" {
		user.Address = in.Address
	}
	if in.Phone != "" {
		user.Phone = in.Phone
	}

	if err := s.users.UpdateUser(ctx, caller.UserID, *user); err != nil {
		return nil, unexpectedError("update user", err)
	}
	user.PasswordHash = ""
	return user, nil
}

// ChangePassword replaces the caller's password after verifying the current one.
func (s *IdentityService) ChangePassword(ctx context.Context, caller models.Identity, current, next string) error {
	if current == "" || next == "" {
		return validationError("Current password and new password are required")
	}
	if err := s.hasher.ValidatePassword(next); err != nil {
		return validationError(err.Error())
	}

	user, err := s.users.FindUserByID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return notFoundError("User not found")
		}
		return unexpectedError("find user", err)
	}
	if !s.hasher.CheckPassword(current, user.PasswordHash) {
		return authError("Current password is incorrect")
	}

	hash, err := s.hasher.HashPassword(next)
	if err != nil {
		return unexpectedError("hash password", err)
	}
	user.PasswordHash = hash
	if err := s.users.UpdateUser(ctx, caller.UserID, *user); err != nil {
		return unexpectedError("update user", err)
	}
	return nil
}

// ListUsers returns every account. Admin only.
func (s *IdentityService) ListUsers(ctx context.Context, caller models.Identity) ([]models.User, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	users, err := s.users.FindUsers(ctx)
	if err != nil {
		return nil, unexpectedError("list users", err)
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, nil
}

// EnsureAdmin creates the bootstrap admin account unless it already exists.
func (s *IdentityService) EnsureAdmin(ctx context.Context, name, email, password string) (*models.User, bool, error) {
	email = normalizeEmail(email)
	existing, err := s.users.FindUserByEmail(ctx, email)
	if err == nil {
		if existing.Role != models.RoleAdmin {
			return nil, false, conflictError("Bootstrap admin email belongs to a non-admin account")
		}
		existing.PasswordHash = ""
		return existing, false, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, false, unexpectedError("look up email", err)
	}

	if name == "" {
		name = "Administrator"
	}
	user, err := s.Register(ctx, RegisterInput{Name: name, Email: email, Password: password, Role: models.RoleAdmin})
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}
