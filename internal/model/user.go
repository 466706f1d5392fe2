// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// Passwordにはbcryptハッシュのみを格納し、平文は保持しない。
type User struct {
	ID        int64
	Username  string
	Password  string
	Name      string
	Email     string
	URL       string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Identity は認証済みリクエストに紐付くユーザー参照を表す。
// 認可ゲートがトークン検証後にユーザーディレクトリから解決し、
// リクエストコンテキストに格納する。発行後は不変。
type Identity struct {
	UserID   int64
	Username string
}
