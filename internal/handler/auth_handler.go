// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/hitoshi/chirp/internal/auth"
	"github.com/hitoshi/chirp/internal/middleware"
	"github.com/hitoshi/chirp/internal/model"
)

// tokenCookieName はセッショントークンを保持するCookieの名前。
// 認可ゲートが読むCookie名と一致させる。
const tokenCookieName = "token"

// CookieConfig はセッションCookieの発行属性。
type CookieConfig struct {
	Secure bool
	Domain string
	MaxAge time.Duration // トークンの有効期間と一致させる
}

// AuthHandler は認証関連のHTTPハンドラー。
type AuthHandler struct {
	service *auth.Service
	cookie  CookieConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service *auth.Service, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		cookie:  cookie,
	}
}

// signupRequest はユーザー登録リクエストのボディ。
type signupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	URL      string `json:"url"`
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// credentialResponse は登録・ログイン成功時のレスポンス。
type credentialResponse struct {
	Token    string `json:"token"`
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
}

// meResponse は/auth/meのレスポンス。
type meResponse struct {
	Username string `json:"username"`
	UserID   int64  `json:"userId"`
	Token    string `json:"token"`
}

// validateSignup は登録入力を検証し、最初の違反をエラーとして返す。
// 長さは文字数（rune）で数える。
func validateSignup(req signupRequest) *model.APIError {
	if utf8.RuneCountInString(req.Username) < 3 {
		return model.NewValidationError("ユーザー名は3文字以上で入力してください。")
	}
	if utf8.RuneCountInString(req.Password) < 3 {
		return model.NewValidationError("パスワードは3文字以上で入力してください。")
	}
	if req.Name == "" {
		return model.NewValidationError("名前を入力してください。")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return model.NewValidationError("メールアドレスの形式が正しくありません。")
	}
	if req.URL != "" {
		if u, err := url.Parse(req.URL); err != nil || u.Scheme == "" || u.Host == "" {
			return model.NewValidationError("URLの形式が正しくありません。")
		}
	}
	return nil
}

// Signup はユーザー登録を処理する。
// 成功時は201とともに認証情報を返し、セッションCookieを設定する。
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("リクエストボディの形式が正しくありません。"))
		return
	}

	if apiErr := validateSignup(req); apiErr != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	cred, err := h.service.Signup(r.Context(), auth.SignupInput{
		Username: req.Username,
		Password: req.Password,
		Name:     req.Name,
		Email:    req.Email,
		URL:      req.URL,
	})
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeDuplicateUser {
			middleware.WriteErrorResponse(w, http.StatusConflict, apiErr)
			return
		}
		slog.Error("signup failed", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	h.setSessionCookie(w, cred.Token)
	writeJSON(w, http.StatusCreated, credentialResponse{
		Token:    cred.Token,
		UserID:   cred.UserID,
		Username: cred.Username,
	})
}

// Login はログインを処理する。
// 認証失敗時は401を返す。ユーザー不在とパスワード不一致は区別しない。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("リクエストボディの形式が正しくありません。"))
		return
	}

	if req.Username == "" || req.Password == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("ユーザー名とパスワードを入力してください。"))
		return
	}

	cred, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeLoginFailed {
			middleware.WriteErrorResponse(w, http.StatusUnauthorized, apiErr)
			return
		}
		slog.Error("login failed", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	h.setSessionCookie(w, cred.Token)
	writeJSON(w, http.StatusOK, credentialResponse{
		Token:    cred.Token,
		UserID:   cred.UserID,
		Username: cred.Username,
	})
}

// Logout はセッションCookieを破棄する。
// トークン自体の失効は行わない（有効期限まで署名は有効なまま）。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.cookie.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "ログアウトしました。",
	})
}

// Me は認可ゲートを通過した呼び出し元自身の情報を返す。
// クライアントのセッション復元（ページリロード時）に使用される。
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewAuthFailedError())
		return
	}
	tokenString, err := middleware.TokenFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewAuthFailedError())
		return
	}

	writeJSON(w, http.StatusOK, meResponse{
		Username: identity.Username,
		UserID:   identity.UserID,
		Token:    tokenString,
	})
}

// setSessionCookie はセッショントークンをHttpOnly Cookieとして設定する。
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, tokenString string) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookieName,
		Value:    tokenString,
		Path:     "/",
		Domain:   h.cookie.Domain,
		MaxAge:   int(h.cookie.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}
