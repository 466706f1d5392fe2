package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/chirp/internal/model"
)

// ErrDuplicateUsername はユーザー名の一意制約違反を示す。
// 事前チェックをすり抜けた同時登録レースでも、INSERT時の制約違反を
// このエラーに正規化する。
var ErrDuplicateUsername = errors.New("username already taken")

// uniqueViolation はPostgreSQLのunique_violationエラーコード。
const uniqueViolation = "23505"

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT id, username, password, name, email, COALESCE(url, ''), created_at, updated_at
		 FROM users WHERE id = $1`,
		id,
	))
}

// FindByUsername は指定ユーザー名のユーザーを取得する。
// 見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT id, username, password, name, email, COALESCE(url, ''), created_at, updated_at
		 FROM users WHERE username = $1`,
		username,
	))
}

// Create はユーザーを作成し、採番されたIDを返す。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (username, password, name, email, url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)
		 RETURNING id`,
		user.Username, user.Password, user.Name, user.Email, user.URL,
		user.CreatedAt, user.UpdatedAt,
	).Scan(&id)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return 0, fmt.Errorf("%w: %s", ErrDuplicateUsername, user.Username)
		}
		return 0, fmt.Errorf("failed to insert user: %w", err)
	}

	return id, nil
}

// scanOne は1行のSELECT結果をmodel.Userに変換する。
func (r *PostgresUserRepo) scanOne(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(
		&user.ID, &user.Username, &user.Password, &user.Name,
		&user.Email, &user.URL, &user.CreatedAt, &user.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
