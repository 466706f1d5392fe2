// Package auth はユーザー登録・ログイン・セッショントークン発行を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/chirp/internal/model"
	"github.com/hitoshi/chirp/internal/repository"
)

// TokenIssuer はセッショントークンの発行インターフェース。
// token.Serviceの部分集合として定義する。
type TokenIssuer interface {
	Issue(userID int64) (string, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	BcryptCost int // パスワードハッシュのコストパラメータ
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	issuer   TokenIssuer
	config   ServiceConfig
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, issuer TokenIssuer, config ServiceConfig) *Service {
	return &Service{
		userRepo: userRepo,
		issuer:   issuer,
		config:   config,
	}
}

// SignupInput はユーザー登録の入力。ハンドラー層で検証済みであること。
type SignupInput struct {
	Username string
	Password string
	Name     string
	Email    string
	URL      string
}

// Credential はログイン・登録成功時に返す認証情報。
type Credential struct {
	Token    string
	UserID   int64
	Username string
}

// Signup は新規ユーザーを登録し、セッショントークンを発行する。
// ユーザー名が登録済みの場合はDuplicateUserエラーを返す。
// 事前チェックと一意制約の二段構えで、同時登録のレースも重複エラーに
// 正規化される。
func (s *Service) Signup(ctx context.Context, input SignupInput) (*Credential, error) {
	existing, err := s.userRepo.FindByUsername(ctx, input.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateUserError(input.Username)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	userID, err := s.userRepo.Create(ctx, &model.User{
		Username:  input.Username,
		Password:  string(hashed),
		Name:      input.Name,
		Email:     input.Email,
		URL:       input.URL,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, model.NewDuplicateUserError(input.Username)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	tokenString, err := s.issuer.Issue(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("new user signed up",
		slog.Int64("user_id", userID),
		slog.String("username", input.Username),
	)

	return &Credential{
		Token:    tokenString,
		UserID:   userID,
		Username: input.Username,
	}, nil
}

// Login はユーザー名とパスワードを検証し、セッショントークンを発行する。
// ユーザー不在とパスワード不一致は区別せず、どちらもLoginFailedを返す。
func (s *Service) Login(ctx context.Context, username, password string) (*Credential, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}
	if user == nil {
		return nil, model.NewLoginFailedError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, model.NewLoginFailedError()
	}

	tokenString, err := s.issuer.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("user logged in",
		slog.Int64("user_id", user.ID),
		slog.String("username", username),
	)

	return &Credential{
		Token:    tokenString,
		UserID:   user.ID,
		Username: username,
	}, nil
}

// GetUser は指定IDのユーザーを取得する。
// 認可ゲート通過後の/auth/me等で使用する。見つからない場合は
// UserNotFoundエラーを返す（削除済みアカウントのトークン対策）。
func (s *Service) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	return user, nil
}
