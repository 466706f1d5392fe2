// Package token はセッショントークンの発行・検証を提供する。
//
// トークンはHS256署名付きJWTで、サブジェクトのユーザーIDと発行・
// 失効時刻のみを運ぶ。認可情報は一切含まない（ベアラ型）。
// 失効までの期間は発行時に固定され、リフレッシュ・ローテーションは
// 存在しない。期限切れは再ログインを強制する。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrTokenInvalid は署名不正・形式不正のトークンを示す。
	ErrTokenInvalid = errors.New("token is invalid")
	// ErrTokenExpired は期限切れのトークンを示す。
	// 認可ゲートはErrTokenInvalidと区別せずに扱う（境界での情報秘匿）。
	ErrTokenExpired = errors.New("token is expired")
)

// Claims はセッショントークンのペイロード。
type Claims struct {
	UserID int64 `json:"id"`
	jwt.RegisteredClaims
}

// ServiceConfig はトークンサービスの設定。
type ServiceConfig struct {
	Secret  string        // HS256署名シークレット（プロセス全体で単一）
	Expires time.Duration // 発行時に固定されるトークン有効期間
}

// Service はセッショントークンの発行・検証を行う。
// 署名シークレットと有効期間は起動時に注入され、以後変更されない。
type Service struct {
	secret  []byte
	expires time.Duration
}

// NewService はServiceを生成する。
func NewService(config ServiceConfig) *Service {
	return &Service{
		secret:  []byte(config.Secret),
		expires: config.Expires,
	}
}

// Issue は指定ユーザーIDを埋め込んだ署名付きトークンを発行する。
// トークン構築以外の副作用はない。
func (s *Service) Issue(userID int64) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expires)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// Verify はトークンの署名と有効期限を検証し、サブジェクトの
// ユーザーIDを返す。失敗時はErrTokenInvalidまたはErrTokenExpiredを
// 返す。サブジェクトがユーザーディレクトリに存在するかどうかの
// 確認は認可ゲートの責務であり、ここでは行わない。
func (s *Service) Verify(tokenString string) (int64, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrTokenExpired
		}
		return 0, ErrTokenInvalid
	}

	return claims.UserID, nil
}

// Expires はトークンの有効期間を返す。Cookie Max-Ageの算出に使用する。
func (s *Service) Expires() time.Duration {
	return s.expires
}

// HashSecret は静的なサーバーシークレットから軽量なアンチフォージェリ
// トークンを導出する。
//
// 意図的に最小コストのbcryptを使用する。これはパスワードハッシュでは
// なく安価な完全性スタンプであり、反復コストを上げる意味がないという
// 既知のトレードオフ。セッションごとのnonceとの比較も行われないため、
// 実際の偽造耐性は限定的である。
func HashSecret(secret string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(hashed), nil
}

// CompareSecret は導出値が指定シークレットから生成されたものか検証する。
func CompareSecret(derived, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(derived), []byte(secret)) == nil
}
