// Package auth is the identity side of the forum: accounts, login sessions and
// profile edits.
package auth

import (
	"baseroom/store"
	"baseroom/types"
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
)

const maxUsernameLength = 150

// ErrInvalidCredentials is returned for an unknown username and for a wrong
// password alike.
var ErrInvalidCredentials = errors.New("Username or password is incorrect")

var validate = validator.New()

type Service struct {
	Store  store.Adapter
	Secret string
	TTL    time.Duration
}

func NewService(s store.Adapter, secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = time.Hour * 672 // 28 days
	}
	return &Service{Store: s, Secret: secret, TTL: ttl}
}

type RegisterInput struct {
	Username  string `form:"username" json:"username"`
	Email     string `form:"email" json:"email"`
	Password1 string `form:"password1" json:"password1"`
	Password2 string `form:"password2" json:"password2"`
}

type LoginInput struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

type ProfileInput struct {
	Username string `form:"username" json:"username"`
	Email    string `form:"email" json:"email"`
}

func normalizeUsername(username string) (string, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return "", store.Invalid("username", "This field is required.")
	}
	if len([]rune(username)) > maxUsernameLength {
		return "", store.Invalid("username", "Ensure this value has at most 150 characters.")
	}
	for _, r := range username {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("@.+-_", r) {
			continue
		}
		return "", store.Invalid("username", "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
	}
	return username, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", nil
	}
	if err := validate.Var(email, "email"); err != nil {
		return "", store.Invalid("email", "Enter a valid email address.")
	}
	return strings.ToLower(email), nil
}

func validatePassword(password1, password2 string) error {
	if password1 == "" {
		return store.Invalid("password1", "This field is required.")
	}
	if password1 != password2 {
		return store.Invalid("password2", "The two password fields didn't match.")
	}
	if len([]rune(password1)) < 8 {
		return store.Invalid("password1", "This password is too short. It must contain at least 8 characters.")
	}
	if strings.IndexFunc(password1, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
		return store.Invalid("password1", "This password is entirely numeric.")
	}
	return nil
}

// Register creates an account. The username is stored lowercase.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*types.User, error) {
	username, err := normalizeUsername(in.Username)
	if err != nil {
		return nil, err
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password1, in.Password2); err != nil {
		return nil, err
	}

	hashedPassword, err := hashPassword(in.Password1)
	if err != nil {
		return nil, err
	}

	user := &types.User{Username: username, Email: email, Password: hashedPassword}
	if err := s.Store.UserCreate(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, store.Invalid("username", "A user with that username or email already exists.")
		}
		return nil, err
	}
	return user, nil
}

// Login checks the credentials. A missing account is reported exactly like a
// wrong password.
func (s *Service) Login(ctx context.Context, in LoginInput) (*types.User, error) {
	username := strings.ToLower(strings.TrimSpace(in.Username))

	user, err := s.Store.UserGetByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		checkPassword(string(dummyHash), in.Password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !checkPassword(user.Password, in.Password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// UpdateProfile edits the actor's own account.
func (s *Service) UpdateProfile(ctx context.Context, actor *types.User, in ProfileInput) (*types.User, error) {
	if actor == nil {
		return nil, store.ErrUnauthenticated
	}
	username, err := normalizeUsername(in.Username)
	if err != nil {
		return nil, err
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}

	updated := *actor
	updated.Username = username
	updated.Email = email
	if err := s.Store.UserUpdate(ctx, &updated); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, store.Invalid("username", "A user with that username or email already exists.")
		}
		return nil, err
	}
	return &updated, nil
}

// IssueToken signs a session token for user.
func (s *Service) IssueToken(user *types.User) (string, error) {
	return generateJWT(user, s.Secret, s.TTL)
}

// Authenticate resolves a session token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (*types.User, error) {
	userID, err := parseJWT(token, s.Secret)
	if err != nil {
		return nil, err
	}
	return s.Store.UserGet(ctx, userID)
}
