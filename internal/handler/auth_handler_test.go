package handler

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestSignup_Validation(t *testing.T) {
	f := newFixture(t)

	valid := map[string]string{
		"username": "alice",
		"password": "pass123",
		"name":     "アリス",
		"email":    "alice@example.com",
	}

	tests := []struct {
		name     string
		override map[string]string
	}{
		{"short username", map[string]string{"username": "ab"}},
		{"short password", map[string]string{"password": "ab"}},
		{"empty name", map[string]string{"name": ""}},
		{"malformed email", map[string]string{"email": "not-an-email"}},
		{"malformed url", map[string]string{"url": "::not a url::"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := map[string]string{}
			for k, v := range valid {
				body[k] = v
			}
			for k, v := range tt.override {
				body[k] = v
			}

			w := f.do(t, http.MethodPost, "/auth/signup", "", body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d (body: %s)", w.Code, http.StatusBadRequest, w.Body.String())
			}

			var resp map[string]string
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode error body: %v", err)
			}
			if resp["code"] != "VALIDATION_FAILED" {
				t.Errorf("code = %q, want VALIDATION_FAILED", resp["code"])
			}
		})
	}
}

func TestSignup_LengthCountsRunes(t *testing.T) {
	f := newFixture(t)

	// 2文字（6バイト）のユーザー名はバイト数では通るが文字数では不足
	w := f.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"username": "あい",
		"password": "pass123",
		"name":     "アイ",
		"email":    "ai@example.com",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("2-rune username: status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	w = f.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"username": "あいう",
		"password": "ぱすわ",
		"name":     "アイウ",
		"email":    "aiu@example.com",
	})
	if w.Code != http.StatusCreated {
		t.Errorf("3-rune username and password: status = %d, want %d", w.Code, http.StatusCreated)
	}
}

func TestSignup_OptionalURL_Accepted(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"username": "alice",
		"password": "pass123",
		"name":     "アリス",
		"email":    "alice@example.com",
		"url":      "https://alice.example.com",
	})
	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d (body: %s)", w.Code, http.StatusCreated, w.Body.String())
	}
}

func TestSignup_DuplicateUsername_Returns409(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "alice")

	w := f.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"username": "alice",
		"password": "other",
		"name":     "別のアリス",
		"email":    "other@example.com",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusConflict)
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if resp["code"] != "DUPLICATE_USER" {
		t.Errorf("code = %q, want DUPLICATE_USER", resp["code"])
	}
}

func TestSignup_SetsSessionCookie(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"username": "alice",
		"password": "pass123",
		"name":     "アリス",
		"email":    "alice@example.com",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d", w.Code)
	}

	var sessionCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "token" {
			sessionCookie = c
		}
	}
	if sessionCookie == nil {
		t.Fatal("expected token cookie to be set")
	}
	if !sessionCookie.HttpOnly {
		t.Error("token cookie must be HttpOnly")
	}
	if sessionCookie.Value == "" {
		t.Error("token cookie must carry the session token")
	}
	if sessionCookie.MaxAge <= 0 {
		t.Errorf("cookie MaxAge = %d, want positive", sessionCookie.MaxAge)
	}
}

func TestLogin_Success(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "alice")

	w := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "alice",
		"password": "pass123",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var cred credentialResponse
	if err := json.NewDecoder(w.Body).Decode(&cred); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if cred.Token == "" || cred.Username != "alice" {
		t.Errorf("credential = %+v, want token and username", cred)
	}
}

func TestLogin_WrongPassword_Returns401(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "alice")

	w := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "alice",
		"password": "wrong",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if resp["code"] != "LOGIN_FAILED" {
		t.Errorf("code = %q, want LOGIN_FAILED", resp["code"])
	}
}

func TestLogin_UnknownUser_SameErrorAsWrongPassword(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "ghost",
		"password": "whatever",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestLogout_ClearsCookie(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/auth/logout", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var cleared *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "token" {
			cleared = c
		}
	}
	if cleared == nil {
		t.Fatal("expected token cookie in response")
	}
	if cleared.MaxAge >= 0 || cleared.Value != "" {
		t.Errorf("cookie = %+v, want cleared (negative MaxAge, empty value)", cleared)
	}
}
