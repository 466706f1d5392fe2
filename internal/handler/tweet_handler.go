package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/chirp/internal/middleware"
	"github.com/hitoshi/chirp/internal/model"
	"github.com/hitoshi/chirp/internal/tweet"
)

// TweetHandler はツイート関連のHTTPハンドラー。
//
// 変更系のハンドラーはレスポンスを書き込んでからPublishを呼ぶ。
// この順序により、呼び出し元へのHTTPレスポンスがライブ配信に
// 必ず先行する。
type TweetHandler struct {
	service *tweet.Service
}

// NewTweetHandler はTweetHandlerを生成する。
func NewTweetHandler(service *tweet.Service) *TweetHandler {
	return &TweetHandler{service: service}
}

// tweetRequest はツイート作成・更新リクエストのボディ。
type tweetRequest struct {
	Text string `json:"text"`
}

// validateText はツイート本文を検証する。長さは文字数（rune）で数える。
func validateText(text string) *model.APIError {
	if utf8.RuneCountInString(text) < 3 {
		return model.NewValidationError("ツイートは3文字以上で入力してください。")
	}
	return nil
}

// List はツイート一覧を返す。username クエリで投稿者を絞り込める。
func (h *TweetHandler) List(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")

	tweets, err := h.service.List(r.Context(), username)
	if err != nil {
		h.writeServiceError(w, err, 0)
		return
	}

	writeJSON(w, http.StatusOK, tweets)
}

// Get は単一ツイートを返す。
func (h *TweetHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := tweetIDParam(w, r)
	if !ok {
		return
	}

	tw, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, id)
		return
	}

	writeJSON(w, http.StatusOK, tw)
}

// Create はツイートを作成する。
// 201レスポンスを返した後に、作成イベントを全ライブ接続に配信する。
func (h *TweetHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewAuthFailedError())
		return
	}

	var req tweetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("リクエストボディの形式が正しくありません。"))
		return
	}
	if apiErr := validateText(req.Text); apiErr != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	created, err := h.service.Create(r.Context(), identity, req.Text)
	if err != nil {
		h.writeServiceError(w, err, 0)
		return
	}

	writeJSON(w, http.StatusCreated, created)
	h.service.PublishCreated(created)
}

// Update はツイート本文を更新する。投稿者本人のみが実行できる。
// 200レスポンスを返した後に、更新イベントを全ライブ接続に配信する。
func (h *TweetHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewAuthFailedError())
		return
	}

	id, ok := tweetIDParam(w, r)
	if !ok {
		return
	}

	var req tweetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("リクエストボディの形式が正しくありません。"))
		return
	}
	if apiErr := validateText(req.Text); apiErr != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	updated, err := h.service.Update(r.Context(), identity, id, req.Text)
	if err != nil {
		h.writeServiceError(w, err, id)
		return
	}

	writeJSON(w, http.StatusOK, updated)
	h.service.PublishUpdated(updated)
}

// Delete はツイートを削除する。投稿者本人のみが実行できる。
// 200レスポンスを返した後に、削除イベントを全ライブ接続に配信する。
func (h *TweetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewAuthFailedError())
		return
	}

	id, ok := tweetIDParam(w, r)
	if !ok {
		return
	}

	if err := h.service.Remove(r.Context(), identity, id); err != nil {
		h.writeServiceError(w, err, id)
		return
	}

	w.WriteHeader(http.StatusOK)
	h.service.PublishDeleted(id)
}

// tweetIDParam はパスパラメータからツイートIDを取り出す。
// 数値でない場合は404を書き込みfalseを返す。
func tweetIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewTweetNotFoundError(0))
		return 0, false
	}
	return id, true
}

// writeServiceError はサービス層のエラーをHTTPレスポンスに変換する。
//
// 所有権エラーは403、検出不能は404。それ以外の予期しない失敗
// （ストレージ障害を含む）は詳細をログに残した上で、方針として
// 404に集約する。ツイートリソースの障害詳細を境界の外に出さない。
func (h *TweetHandler) writeServiceError(w http.ResponseWriter, err error, id int64) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case model.ErrCodeNotTweetOwner:
			middleware.WriteErrorResponse(w, http.StatusForbidden, apiErr)
			return
		case model.ErrCodeTweetNotFound:
			middleware.WriteErrorResponse(w, http.StatusNotFound, apiErr)
			return
		}
	}

	slog.Error("tweet operation failed", slog.String("error", err.Error()))
	middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewTweetNotFoundError(id))
}
