// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/hitoshi/chirp/internal/model"
)

// tokenCookieName はセッショントークンを保持するCookieの名前。
const tokenCookieName = "token"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// identityContextKey は解決済みIdentityを格納するためのキー。
	identityContextKey = contextKey("identity")
	// tokenContextKey は提示されたトークン原文を格納するためのキー。
	tokenContextKey = contextKey("token")
)

// TokenVerifier はトークン検証のインターフェース。
// token.Serviceの部分集合として定義する。
type TokenVerifier interface {
	Verify(tokenString string) (int64, error)
}

// UserFinder はトークンのサブジェクト解決に必要なインターフェース。
// repository.UserRepositoryの部分集合として定義する。
type UserFinder interface {
	FindByID(ctx context.Context, id int64) (*model.User, error)
}

// tokenExtractor はリクエストからトークンを取り出す戦略。
// 成功時はトークンとtrueを返す。
type tokenExtractor func(r *http.Request) (string, bool)

// bearerToken はAuthorization: Bearerヘッダーからトークンを取り出す。
func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	t := strings.TrimPrefix(auth, "Bearer ")
	return t, t != ""
}

// cookieToken はtokenクッキーからトークンを取り出す。
func cookieToken(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(tokenCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// extractors はトークン取り出し戦略の適用順。
// ヘッダーを優先し、無ければCookieにフォールバックする。
var extractors = []tokenExtractor{bearerToken, cookieToken}

// NewAuthMiddleware は認可ゲートのミドルウェアを返す。
//
// 保護ハンドラーの実行前に、リクエストから単一のIdentityを解決する。
//  1. トークンをBearerヘッダー、次にtokenクッキーの順で探す。
//  2. どちらにも無い場合は404を返す（保護ルートの存在を匿名アクセスに
//     対して確認させない、意図的な秘匿方針）。
//  3. 検証に失敗した場合は401を返す。期限切れと改竄は区別しない。
//  4. サブジェクトをユーザーディレクトリで再解決する。存在しない場合は
//     署名が有効でも401を返す（削除済みアカウントのトークン対策）。
//  5. 成功時はIdentityとトークン原文をコンテキストに載せて続行する。
//
// リアルタイム接続のハンドシェイクにも同じミドルウェアを適用する。
// 接続確立後の再検証は行わないため、接続中のトークン期限切れは
// 切断を引き起こさない（既知の制限）。
func NewAuthMiddleware(verifier TokenVerifier, users UserFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. トークンの取り出し
			var tokenString string
			var found bool
			for _, extract := range extractors {
				if tokenString, found = extract(r); found {
					break
				}
			}
			if !found {
				WriteErrorResponse(w, http.StatusNotFound, model.NewTokenMissingError())
				return
			}

			// 2. 署名と有効期限の検証
			userID, err := verifier.Verify(tokenString)
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewAuthFailedError())
				return
			}

			// 3. サブジェクトをユーザーディレクトリで再解決
			user, err := users.FindByID(r.Context(), userID)
			if err != nil || user == nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewAuthFailedError())
				return
			}

			// 4. Identityとトークンをコンテキストに注入
			ctx := context.WithValue(r.Context(), identityContextKey, model.Identity{
				UserID:   user.ID,
				Username: user.Username,
			})
			ctx = context.WithValue(ctx, tokenContextKey, tokenString)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext はリクエストコンテキストから解決済みIdentityを取得する。
// 認可ゲートを通過したリクエストでのみ有効。
func IdentityFromContext(ctx context.Context) (model.Identity, error) {
	identity, ok := ctx.Value(identityContextKey).(model.Identity)
	if !ok || identity.UserID == 0 {
		return model.Identity{}, fmt.Errorf("identity not found in context")
	}
	return identity, nil
}

// TokenFromContext はリクエストコンテキストから提示トークン原文を取得する。
func TokenFromContext(ctx context.Context) (string, error) {
	tokenString, ok := ctx.Value(tokenContextKey).(string)
	if !ok || tokenString == "" {
		return "", fmt.Errorf("token not found in context")
	}
	return tokenString, nil
}

// ContextWithIdentity はコンテキストにIdentityとトークンを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithIdentity(ctx context.Context, identity model.Identity, tokenString string) context.Context {
	ctx = context.WithValue(ctx, identityContextKey, identity)
	return context.WithValue(ctx, tokenContextKey, tokenString)
}
