// Package tweet はツイートの取得・作成・更新・削除と変更通知を提供する。
package tweet

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/chirp/internal/model"
	"github.com/hitoshi/chirp/internal/realtime"
	"github.com/hitoshi/chirp/internal/repository"
	"github.com/hitoshi/chirp/internal/security"
)

// ライブ接続に配信されるイベントのコマンド名。
const (
	CommandCreate = "create"
	CommandUpdate = "update"
	CommandDelete = "delete"
)

// Service はツイートのユースケースを提供する。
//
// 変更系操作（Create/Update/Remove）は状態変更のみを行い、
// 配信はPublish系メソッドに分離されている。ハンドラーはHTTPレスポンスを
// 書き込んだ後にPublishを呼ぶことで、レスポンスが配信に先行する順序を保証する。
type Service struct {
	tweets         repository.TweetRepository
	sanitizer      security.ContentSanitizerService
	getBroadcaster func() realtime.Broadcaster
}

// NewService は新しいServiceを生成する。
// getBroadcasterは配信先の遅延解決に使う。サーバー起動順の都合で
// Hubがまだ存在しない時点でServiceを構築できるようにするためで、
// nilを返す間はPublishは何もしない。
func NewService(
	tweets repository.TweetRepository,
	sanitizer security.ContentSanitizerService,
	getBroadcaster func() realtime.Broadcaster,
) *Service {
	return &Service{
		tweets:         tweets,
		sanitizer:      sanitizer,
		getBroadcaster: getBroadcaster,
	}
}

// List はツイート一覧を作成日時の降順で返す。
// usernameが空でない場合は該当ユーザーの投稿のみに絞り込む。
// 絞り込み結果が空でもエラーにはならず、空スライスを返す。
func (s *Service) List(ctx context.Context, username string) ([]*model.Tweet, error) {
	if username != "" {
		tweets, err := s.tweets.ListByUsername(ctx, username)
		if err != nil {
			return nil, fmt.Errorf("failed to list tweets by username: %w", err)
		}
		return tweets, nil
	}

	tweets, err := s.tweets.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tweets: %w", err)
	}
	return tweets, nil
}

// GetByID は指定IDのツイートを返す。
// 存在しない場合はTWEET_NOT_FOUNDを返す。
func (s *Service) GetByID(ctx context.Context, id int64) (*model.Tweet, error) {
	tw, err := s.tweets.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find tweet: %w", err)
	}
	if tw == nil {
		return nil, model.NewTweetNotFoundError(id)
	}
	return tw, nil
}

// Create はツイートを作成し、投稿者情報を結合した完全なレコードを返す。
// 本文は保存前にサニタイズされる。
func (s *Service) Create(ctx context.Context, actor model.Identity, text string) (*model.Tweet, error) {
	sanitized := s.sanitizer.Sanitize(text)

	id, err := s.tweets.Create(ctx, sanitized, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to create tweet: %w", err)
	}

	tw, err := s.tweets.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read back created tweet: %w", err)
	}
	if tw == nil {
		return nil, fmt.Errorf("created tweet %d not found on read back", id)
	}

	slog.Info("tweet created",
		slog.Int64("tweet_id", tw.ID),
		slog.Int64("user_id", actor.UserID),
	)

	return tw, nil
}

// Update はツイート本文を更新し、更新後の完全なレコードを返す。
// 所有権の検証は書き込みの前に行う。対象が存在しなければTWEET_NOT_FOUND、
// 投稿者以外が呼んだ場合はNOT_TWEET_OWNERを返し、状態は変更されない。
func (s *Service) Update(ctx context.Context, actor model.Identity, id int64, text string) (*model.Tweet, error) {
	current, err := s.tweets.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find tweet: %w", err)
	}
	if current == nil {
		return nil, model.NewTweetNotFoundError(id)
	}
	if current.UserID != actor.UserID {
		slog.Warn("update rejected: not tweet owner",
			slog.Int64("tweet_id", id),
			slog.Int64("owner_id", current.UserID),
			slog.Int64("actor_id", actor.UserID),
		)
		return nil, model.NewNotTweetOwnerError(id)
	}

	sanitized := s.sanitizer.Sanitize(text)

	if err := s.tweets.UpdateText(ctx, id, sanitized); err != nil {
		return nil, fmt.Errorf("failed to update tweet: %w", err)
	}

	updated, err := s.tweets.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read back updated tweet: %w", err)
	}
	if updated == nil {
		return nil, model.NewTweetNotFoundError(id)
	}

	slog.Info("tweet updated",
		slog.Int64("tweet_id", id),
		slog.Int64("user_id", actor.UserID),
	)

	return updated, nil
}

// Remove はツイートを削除する。
// Updateと同じく、所有権の検証を書き込みの前に行う。
func (s *Service) Remove(ctx context.Context, actor model.Identity, id int64) error {
	current, err := s.tweets.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find tweet: %w", err)
	}
	if current == nil {
		return model.NewTweetNotFoundError(id)
	}
	if current.UserID != actor.UserID {
		slog.Warn("delete rejected: not tweet owner",
			slog.Int64("tweet_id", id),
			slog.Int64("owner_id", current.UserID),
			slog.Int64("actor_id", actor.UserID),
		)
		return model.NewNotTweetOwnerError(id)
	}

	if err := s.tweets.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete tweet: %w", err)
	}

	slog.Info("tweet deleted",
		slog.Int64("tweet_id", id),
		slog.Int64("user_id", actor.UserID),
	)

	return nil
}

// PublishCreated は作成イベントを全ライブ接続に配信する。
func (s *Service) PublishCreated(tw *model.Tweet) {
	s.publish(realtime.Event{Command: CommandCreate, Data: tw})
}

// PublishUpdated は更新イベントを全ライブ接続に配信する。
func (s *Service) PublishUpdated(tw *model.Tweet) {
	s.publish(realtime.Event{Command: CommandUpdate, Data: tw})
}

// PublishDeleted は削除イベントを全ライブ接続に配信する。
// レコードは既に存在しないため、dataは数値のIDそのもの。
func (s *Service) PublishDeleted(id int64) {
	s.publish(realtime.Event{Command: CommandDelete, Data: id})
}

func (s *Service) publish(event realtime.Event) {
	if s.getBroadcaster == nil {
		return
	}
	broadcaster := s.getBroadcaster()
	if broadcaster == nil {
		return
	}
	broadcaster.Broadcast(event)
}
