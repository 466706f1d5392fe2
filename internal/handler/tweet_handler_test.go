package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/hitoshi/chirp/internal/model"
	"github.com/hitoshi/chirp/internal/security"
	"github.com/hitoshi/chirp/internal/token"
	"github.com/hitoshi/chirp/internal/tweet"
)

func TestCreateTweet_ShortText_Returns400(t *testing.T) {
	f := newFixture(t)
	alice := f.signup(t, "alice")

	w := f.do(t, http.MethodPost, "/tweets", alice.Token, map[string]string{"text": "ab"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if resp["code"] != "VALIDATION_FAILED" {
		t.Errorf("code = %q, want VALIDATION_FAILED", resp["code"])
	}
}

func TestCreateTweet_TextLengthCountsRunes(t *testing.T) {
	f := newFixture(t)
	alice := f.signup(t, "alice")

	// 2文字（6バイト）はバイト数では通るが文字数では不足
	w := f.do(t, http.MethodPost, "/tweets", alice.Token, map[string]string{"text": "あい"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("2-rune text: status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	w = f.do(t, http.MethodPost, "/tweets", alice.Token, map[string]string{"text": "あいう"})
	if w.Code != http.StatusCreated {
		t.Errorf("3-rune text: status = %d, want %d", w.Code, http.StatusCreated)
	}
}

func TestUpdateTweet_ShortText_Returns400(t *testing.T) {
	f := newFixture(t)
	alice := f.signup(t, "alice")

	w := f.do(t, http.MethodPost, "/tweets", alice.Token, map[string]string{"text": "valid tweet"})
	created := decodeTweet(t, w)

	w = f.do(t, http.MethodPut, "/tweets/1", alice.Token, map[string]string{"text": "ab"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	// 検証失敗で状態は変わらない
	w = f.do(t, http.MethodGet, "/tweets/1", alice.Token, nil)
	if got := decodeTweet(t, w); got.Text != created.Text {
		t.Errorf("text = %q, want unchanged %q", got.Text, created.Text)
	}
}

func TestGetTweet_NonNumericID_Returns404(t *testing.T) {
	f := newFixture(t)
	alice := f.signup(t, "alice")

	w := f.do(t, http.MethodGet, "/tweets/abc", alice.Token, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestCreateTweet_SanitizesMarkup(t *testing.T) {
	f := newFixture(t)
	alice := f.signup(t, "alice")

	w := f.do(t, http.MethodPost, "/tweets", alice.Token, map[string]string{
		"text": `safe <img src=x onerror=alert(1)> text`,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d", w.Code)
	}
	created := decodeTweet(t, w)
	if created.Text != "safe  text" {
		t.Errorf("text = %q, want markup stripped", created.Text)
	}
}

// failingTweetRepo は常にストレージ障害を返すリポジトリ。
type failingTweetRepo struct{}

func (failingTweetRepo) ListAll(ctx context.Context) ([]*model.Tweet, error) {
	return nil, errors.New("storage down")
}
func (failingTweetRepo) ListByUsername(ctx context.Context, username string) ([]*model.Tweet, error) {
	return nil, errors.New("storage down")
}
func (failingTweetRepo) FindByID(ctx context.Context, id int64) (*model.Tweet, error) {
	return nil, errors.New("storage down")
}
func (failingTweetRepo) Create(ctx context.Context, text string, userID int64) (int64, error) {
	return 0, errors.New("storage down")
}
func (failingTweetRepo) UpdateText(ctx context.Context, id int64, text string) error {
	return errors.New("storage down")
}
func (failingTweetRepo) Delete(ctx context.Context, id int64) error {
	return errors.New("storage down")
}

// ストレージ障害は方針として404に集約される。
func TestTweetHandler_StorageFailure_CollapsesTo404(t *testing.T) {
	userRepo := newMemUserRepo()
	tokenService := token.NewService(token.ServiceConfig{Secret: "s", Expires: time.Hour})
	tweetService := tweet.NewService(failingTweetRepo{}, security.NewContentSanitizer(), nil)

	router := NewRouter(RouterDeps{
		AuthHandler:       NewAuthHandler(nil, CookieConfig{}),
		TweetHandler:      NewTweetHandler(tweetService),
		StreamHandler:     NewStreamHandler(nil),
		TokenVerifier:     tokenService,
		UserFinder:        userRepo,
		Logger:            slog.New(slog.NewJSONHandler(io.Discard, nil)),
		CSRFSecret:        "s",
		CORSAllowedOrigin: "http://localhost:3000",
	})

	id, err := userRepo.Create(context.Background(), &model.User{Username: "alice", Name: "アリス"})
	if err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	tokenString, err := tokenService.Issue(id)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	f := &fixture{router: router}
	for _, tc := range []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, "/tweets", nil},
		{http.MethodGet, "/tweets/1", nil},
		{http.MethodPost, "/tweets", map[string]string{"text": "valid text"}},
		{http.MethodPut, "/tweets/1", map[string]string{"text": "valid text"}},
		{http.MethodDelete, "/tweets/1", nil},
	} {
		w := f.do(t, tc.method, tc.path, tokenString, tc.body)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s %s: status = %d, want %d", tc.method, tc.path, w.Code, http.StatusNotFound)
		}
	}
}
