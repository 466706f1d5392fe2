// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, tweet, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeDuplicateUser    = "DUPLICATE_USER"
	ErrCodeLoginFailed      = "LOGIN_FAILED"
	ErrCodeTokenMissing     = "TOKEN_MISSING"
	ErrCodeAuthFailed       = "AUTH_FAILED"
	ErrCodeTweetNotFound    = "TWEET_NOT_FOUND"
	ErrCodeNotTweetOwner    = "NOT_TWEET_OWNER"
	ErrCodeUserNotFound     = "USER_NOT_FOUND"
)

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  message,
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewDuplicateUserError はユーザー名重複エラーを生成する。
func NewDuplicateUserError(username string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateUser,
		Message:  fmt.Sprintf("このユーザー名は既に登録されています: %s", username),
		Category: "auth",
		Action:   "別のユーザー名を指定してください。",
	}
}

// NewLoginFailedError はログイン失敗エラーを生成する。
// ユーザー不在とパスワード不一致を区別しない。
func NewLoginFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeLoginFailed,
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewTokenMissingError はトークン未提示エラーを生成する。
// 保護ルートの存在を匿名アクセスに対して秘匿するため、
// 境界では404として扱われる。
func NewTokenMissingError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenMissing,
		Message:  "リソースが見つかりません。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewAuthFailedError は認証失敗エラーを生成する。
// 署名不正・期限切れ・ユーザー消失のいずれも同一に扱い、
// 失敗理由を外部に漏らさない。
func NewAuthFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthFailed,
		Message:  "認証に失敗しました。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewTweetNotFoundError はツイート未検出エラーを生成する。
// ストレージ障害も方針としてこのエラーに集約される。
func NewTweetNotFoundError(tweetID int64) *APIError {
	return &APIError{
		Code:     ErrCodeTweetNotFound,
		Message:  fmt.Sprintf("指定されたツイートが見つかりません: %d", tweetID),
		Category: "tweet",
		Action:   "ツイートIDを確認してください。",
	}
}

// NewNotTweetOwnerError は所有権不一致エラーを生成する。
func NewNotTweetOwnerError(tweetID int64) *APIError {
	return &APIError{
		Code:     ErrCodeNotTweetOwner,
		Message:  fmt.Sprintf("このツイートを変更する権限がありません: %d", tweetID),
		Category: "tweet",
		Action:   "自分のツイートのみ編集・削除できます。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}
