// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/chirp/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
// パスワード検証データ（bcryptハッシュ）の保管を担う。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)

	// FindByUsername は指定ユーザー名のユーザーを取得する。
	// 見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// Create はユーザーを作成し、採番されたIDを返す。
	// ユーザー名の一意制約違反はErrDuplicateUsernameでラップして返す。
	Create(ctx context.Context, user *model.User) (int64, error)
}

// TweetRepository はツイートデータの永続化インターフェース。
// 読み取り系は常にusersテーブルと結合し、投稿者のusername/name/urlを
// 非正規化して返す。
type TweetRepository interface {
	// ListAll は全ツイートを作成日時の降順で返す。
	ListAll(ctx context.Context) ([]*model.Tweet, error)

	// ListByUsername は指定ユーザーのツイートを作成日時の降順で返す。
	// 該当ユーザーの投稿が無い場合は空スライスを返す（エラーではない）。
	ListByUsername(ctx context.Context, username string) ([]*model.Tweet, error)

	// FindByID は指定IDのツイートを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Tweet, error)

	// Create はツイートを作成し、採番されたIDを返す。
	Create(ctx context.Context, text string, userID int64) (int64, error)

	// UpdateText はツイート本文を更新する。
	// 所有権チェックは呼び出し側（サービス層）の責務であり、ここでは行わない。
	UpdateText(ctx context.Context, id int64, text string) error

	// Delete は指定IDのツイートを削除する。
	Delete(ctx context.Context, id int64) error
}
