// Package model はドメインモデルを定義する。
package model

import "time"

// Tweet は投稿を表す。
// UserIDは作成時に確定し、以後変更されない（所有権は移転しない）。
// Username/Name/URLは読み取り時にusersテーブルとJOINして埋められる
// 非正規化フィールドで、一覧・単体取得・ブロードキャストの全経路で
// 同じ結合ビューを通る。
type Tweet struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	UserID    int64     `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	URL       string    `json:"url,omitempty"`
}
