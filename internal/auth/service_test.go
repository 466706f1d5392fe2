package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/chirp/internal/model"
	"github.com/hitoshi/chirp/internal/repository"
	"github.com/hitoshi/chirp/internal/token"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn       func(ctx context.Context, id int64) (*model.User, error)
	findByUsernameFn func(ctx context.Context, username string) (*model.User, error)
	createFn         func(ctx context.Context, user *model.User) (int64, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.findByUsernameFn != nil {
		return m.findByUsernameFn(ctx, username)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) (int64, error) {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return 1, nil
}

// --- compile-time interface checks ---
var _ repository.UserRepository = (*mockUserRepo)(nil)

func newTestTokenService() *token.Service {
	return token.NewService(token.ServiceConfig{
		Secret:  "test-jwt-secret-32bytes-long!!!!",
		Expires: time.Hour,
	})
}

// --- テスト ---

func TestSignup_NewUser_IssuesVerifiableToken(t *testing.T) {
	ctx := context.Background()
	tokenSvc := newTestTokenService()

	var createdUser *model.User
	userRepo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) (int64, error) {
			createdUser = user
			return 7, nil
		},
	}

	svc := NewService(userRepo, tokenSvc, ServiceConfig{BcryptCost: bcrypt.MinCost})

	cred, err := svc.Signup(ctx, SignupInput{
		Username: "ellie",
		Password: "secret",
		Name:     "Ellie",
		Email:    "ellie@example.com",
	})
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	if cred.UserID != 7 {
		t.Errorf("UserID = %d, want %d", cred.UserID, 7)
	}
	if cred.Username != "ellie" {
		t.Errorf("Username = %q, want %q", cred.Username, "ellie")
	}

	// 返却トークンを検証すると同じuserIdに解決されること
	subjectID, err := tokenSvc.Verify(cred.Token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if subjectID != cred.UserID {
		t.Errorf("token subject = %d, want %d", subjectID, cred.UserID)
	}

	// パスワードは平文で保存されないこと
	if createdUser == nil {
		t.Fatal("expected user to be created")
	}
	if createdUser.Password == "secret" {
		t.Error("password must not be stored in plain text")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(createdUser.Password), []byte("secret")); err != nil {
		t.Errorf("stored password hash does not match: %v", err)
	}
}

func TestSignup_DuplicateUsername_ReturnsDuplicateUser(t *testing.T) {
	ctx := context.Background()
	userRepo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return &model.User{ID: 1, Username: username}, nil
		},
	}

	svc := NewService(userRepo, newTestTokenService(), ServiceConfig{BcryptCost: bcrypt.MinCost})

	_, err := svc.Signup(ctx, SignupInput{Username: "taken", Password: "pw"})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeDuplicateUser {
		t.Errorf("Signup() error = %v, want DUPLICATE_USER", err)
	}
}

func TestSignup_InsertRace_ReturnsDuplicateUser(t *testing.T) {
	ctx := context.Background()
	userRepo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) (int64, error) {
			return 0, fmt.Errorf("%w: %s", repository.ErrDuplicateUsername, user.Username)
		},
	}

	svc := NewService(userRepo, newTestTokenService(), ServiceConfig{BcryptCost: bcrypt.MinCost})

	_, err := svc.Signup(ctx, SignupInput{Username: "raced", Password: "pw"})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeDuplicateUser {
		t.Errorf("Signup() error = %v, want DUPLICATE_USER", err)
	}
}

func TestLogin_ValidCredentials_ReturnsCredential(t *testing.T) {
	ctx := context.Background()
	hashed, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	userRepo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return &model.User{ID: 3, Username: username, Password: string(hashed)}, nil
		},
	}
	tokenSvc := newTestTokenService()
	svc := NewService(userRepo, tokenSvc, ServiceConfig{BcryptCost: bcrypt.MinCost})

	cred, err := svc.Login(ctx, "ellie", "secret")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if cred.UserID != 3 {
		t.Errorf("UserID = %d, want %d", cred.UserID, 3)
	}

	subjectID, err := tokenSvc.Verify(cred.Token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if subjectID != 3 {
		t.Errorf("token subject = %d, want %d", subjectID, 3)
	}
}

func TestLogin_WrongPassword_ReturnsLoginFailed(t *testing.T) {
	ctx := context.Background()
	hashed, _ := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)

	userRepo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return &model.User{ID: 3, Username: username, Password: string(hashed)}, nil
		},
	}
	svc := NewService(userRepo, newTestTokenService(), ServiceConfig{BcryptCost: bcrypt.MinCost})

	_, err := svc.Login(ctx, "ellie", "wrong")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeLoginFailed {
		t.Errorf("Login() error = %v, want LOGIN_FAILED", err)
	}
}

func TestLogin_UnknownUser_ReturnsLoginFailed(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&mockUserRepo{}, newTestTokenService(), ServiceConfig{BcryptCost: bcrypt.MinCost})

	_, err := svc.Login(ctx, "nobody", "secret")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeLoginFailed {
		t.Errorf("Login() error = %v, want LOGIN_FAILED", err)
	}
}

func TestGetUser_MissingUser_ReturnsUserNotFound(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&mockUserRepo{}, newTestTokenService(), ServiceConfig{BcryptCost: bcrypt.MinCost})

	_, err := svc.GetUser(ctx, 99)

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("GetUser() error = %v, want USER_NOT_FOUND", err)
	}
}
