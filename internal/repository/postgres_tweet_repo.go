package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/chirp/internal/model"
)

// selectJoined は全読み取り経路で共有する結合ビュー。
// 一覧・単体取得・作成直後の再読み込みのすべてがこのSELECTを通るため、
// レスポンスとブロードキャストのペイロードには常に投稿者の
// username/name/urlが含まれる。
const selectJoined = `
	SELECT t.id, t.text, t.user_id, t.created_at,
	       u.username, u.name, COALESCE(u.url, '')
	FROM tweets t
	INNER JOIN users u ON u.id = t.user_id`

// PostgresTweetRepo はPostgreSQLを使用したツイートリポジトリ。
type PostgresTweetRepo struct {
	db *sql.DB
}

// NewPostgresTweetRepo はPostgresTweetRepoを生成する。
func NewPostgresTweetRepo(db *sql.DB) *PostgresTweetRepo {
	return &PostgresTweetRepo{db: db}
}

// ListAll は全ツイートを作成日時の降順で返す。
func (r *PostgresTweetRepo) ListAll(ctx context.Context) ([]*model.Tweet, error) {
	rows, err := r.db.QueryContext(ctx,
		selectJoined+` ORDER BY t.created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tweets: %w", err)
	}
	defer rows.Close()

	return scanTweets(rows)
}

// ListByUsername は指定ユーザーのツイートを作成日時の降順で返す。
func (r *PostgresTweetRepo) ListByUsername(ctx context.Context, username string) ([]*model.Tweet, error) {
	rows, err := r.db.QueryContext(ctx,
		selectJoined+` WHERE u.username = $1 ORDER BY t.created_at DESC`,
		username,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tweets by username: %w", err)
	}
	defer rows.Close()

	return scanTweets(rows)
}

// FindByID は指定IDのツイートを取得する。見つからない場合はnilを返す。
func (r *PostgresTweetRepo) FindByID(ctx context.Context, id int64) (*model.Tweet, error) {
	tweet := &model.Tweet{}
	err := r.db.QueryRowContext(ctx,
		selectJoined+` WHERE t.id = $1`,
		id,
	).Scan(
		&tweet.ID, &tweet.Text, &tweet.UserID, &tweet.CreatedAt,
		&tweet.Username, &tweet.Name, &tweet.URL,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find tweet: %w", err)
	}

	return tweet, nil
}

// Create はツイートを作成し、採番されたIDを返す。
func (r *PostgresTweetRepo) Create(ctx context.Context, text string, userID int64) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO tweets (text, user_id) VALUES ($1, $2) RETURNING id`,
		text, userID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert tweet: %w", err)
	}

	return id, nil
}

// UpdateText はツイート本文を更新する。
func (r *PostgresTweetRepo) UpdateText(ctx context.Context, id int64, text string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tweets SET text = $1, updated_at = now() WHERE id = $2`,
		text, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update tweet: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("tweet not found: %d", id)
	}

	return nil
}

// Delete は指定IDのツイートを削除する。
func (r *PostgresTweetRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM tweets WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete tweet: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("tweet not found: %d", id)
	}

	return nil
}

// scanTweets は複数行のSELECT結果をmodel.Tweetのスライスに変換する。
// 0件の場合も空スライスを返す（nilではない）。
func scanTweets(rows *sql.Rows) ([]*model.Tweet, error) {
	tweets := []*model.Tweet{}
	for rows.Next() {
		tweet := &model.Tweet{}
		if err := rows.Scan(
			&tweet.ID, &tweet.Text, &tweet.UserID, &tweet.CreatedAt,
			&tweet.Username, &tweet.Name, &tweet.URL,
		); err != nil {
			return nil, fmt.Errorf("failed to scan tweet: %w", err)
		}
		tweets = append(tweets, tweet)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tweets: %w", err)
	}

	return tweets, nil
}

// compile-time interface check
var _ TweetRepository = (*PostgresTweetRepo)(nil)
