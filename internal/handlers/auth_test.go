package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AnshRaj112/macrolog-backend/internal/models"
	"github.com/AnshRaj112/macrolog-backend/internal/services"
	"github.com/AnshRaj112/macrolog-backend/pkg/utils"
)

type fakeAccounts struct {
	users map[string]*models.User
	pass  map[string]string
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{users: map[string]*models.User{}, pass: map[string]string{}}
}

func (f *fakeAccounts) UsernameAvailable(_ context.Context, username string) (bool, error) {
	if err := utils.ValidateUsername(username); err != nil {
		return false, err
	}
	_, taken := f.users[utils.NormalizeUsername(username)]
	return !taken, nil
}

func (f *fakeAccounts) CreateUser(ctx context.Context, username, password string) (*models.User, error) {
	ok, err := f.UsernameAvailable(ctx, username)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, services.ErrUsernameTaken
	}
	if len(password) < services.MinPasswordLength {
		return nil, &utils.ValidationError{Field: "password", Message: "Password must be at least 8 characters"}
	}
	u := &models.User{
		ID:        uuid.NewString(),
		Username:  utils.NormalizeUsername(username),
		CreatedAt: time.Now().UTC(),
		IsActive:  true,
	}
	f.users[u.Username] = u
	f.pass[u.Username] = password
	return u, nil
}

func (f *fakeAccounts) Authenticate(_ context.Context, username, password string) (*models.User, error) {
	name := utils.NormalizeUsername(username)
	u, ok := f.users[name]
	if !ok || f.pass[name] != password {
		return nil, services.ErrInvalidCredentials
	}
	return u, nil
}

type fakeSessionManager struct {
	active map[string]uuid.UUID
	err    error
}

func (f *fakeSessionManager) CreateSession(_ context.Context, userID uuid.UUID) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	token := "tok-" + userID.String()
	f.active[token] = userID
	return token, nil
}

func (f *fakeSessionManager) InvalidateSession(_ context.Context, token string) error {
	delete(f.active, token)
	return nil
}

func postJSON(t *testing.T, h http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	json.NewEncoder(&buf).Encode(body)
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/", &buf))
	return rec
}

func TestAuthHandler_SignupAndSignin(t *testing.T) {
	sessions := &fakeSessionManager{active: map[string]uuid.UUID{}}
	h := NewAuthHandler(newFakeAccounts(), sessions, zap.NewNop())

	rec := postJSON(t, h.Signup, credentialsRequest{Username: "Lifter_01", Password: "correct horse"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, body %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Errorf("signup body %s mentions the password", rec.Body.String())
	}

	tests := []struct {
		name       string
		handler    http.HandlerFunc
		body       interface{}
		wantStatus int
	}{
		{"duplicate username", h.Signup, credentialsRequest{Username: "lifter_01", Password: "another pass"}, http.StatusConflict},
		{"short password", h.Signup, credentialsRequest{Username: "runner", Password: "short"}, http.StatusBadRequest},
		{"bad username", h.Signup, credentialsRequest{Username: "_x", Password: "long enough"}, http.StatusBadRequest},
		{"wrong password", h.Signin, credentialsRequest{Username: "lifter_01", Password: "wrong horse"}, http.StatusUnauthorized},
		{"unknown user", h.Signin, credentialsRequest{Username: "nobody", Password: "correct horse"}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, tt.handler, tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}

	rec = postJSON(t, h.Signin, credentialsRequest{Username: "LIFTER_01", Password: "correct horse"})
	if rec.Code != http.StatusOK {
		t.Fatalf("signin status = %d, body %s", rec.Code, rec.Body.String())
	}
	var body authResponse
	json.NewDecoder(rec.Body).Decode(&body)
	if body.Token == "" || body.User == nil || body.User.Username != "lifter_01" {
		t.Fatalf("signin body = %+v", body)
	}
	if _, ok := sessions.active[body.Token]; !ok {
		t.Error("signin token was not stored as a session")
	}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+body.Token)
	rec = httptest.NewRecorder()
	h.Signout(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("signout status = %d", rec.Code)
	}
	if _, ok := sessions.active[body.Token]; ok {
		t.Error("signout left the session active")
	}
}

func TestAuthHandler_SessionFailure(t *testing.T) {
	accounts := newFakeAccounts()
	accounts.CreateUser(context.Background(), "eater", "long enough")
	h := NewAuthHandler(accounts, &fakeSessionManager{active: map[string]uuid.UUID{}, err: errors.New("redis down")}, zap.NewNop())

	rec := postJSON(t, h.Signin, credentialsRequest{Username: "eater", Password: "long enough"})
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestAuthHandler_CheckUsername(t *testing.T) {
	accounts := newFakeAccounts()
	accounts.CreateUser(context.Background(), "taken", "long enough")
	h := NewAuthHandler(accounts, &fakeSessionManager{active: map[string]uuid.UUID{}}, zap.NewNop())

	tests := []struct {
		username      string
		wantStatus    int
		wantAvailable bool
	}{
		{"fresh_name", http.StatusOK, true},
		{"TAKEN", http.StatusOK, false},
		{"a", http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		t.Run(tt.username, func(t *testing.T) {
			rec := postJSON(t, h.CheckUsername, checkUsernameRequest{Username: tt.username})
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body struct {
				Available bool `json:"available"`
			}
			json.NewDecoder(rec.Body).Decode(&body)
			if body.Available != tt.wantAvailable {
				t.Errorf("available = %v, want %v", body.Available, tt.wantAvailable)
			}
		})
	}
}
