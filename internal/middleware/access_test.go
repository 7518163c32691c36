package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/gameforum/internal/metrics"
	"github.com/hitoshi/gameforum/internal/model"
	"github.com/prometheus/client_golang/prometheus"
)

const loginPath = "/auth/login-page"

func requestAs(user *model.User, path string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if user != nil {
		req = req.WithContext(ContextWithUser(req.Context(), user))
	}
	return req
}

func TestRequireAuthenticated(t *testing.T) {
	ac := NewAccessControl(loginPath, nil, nil)

	t.Run("未認証はログインページへリダイレクト", func(t *testing.T) {
		handler := ac.RequireAuthenticated()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("protected handler must not be invoked")
		}))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestAs(nil, "/profile"))

		if w.Code != http.StatusFound {
			t.Errorf("status = %d, want 302", w.Code)
		}
		if loc := w.Header().Get("Location"); loc != loginPath {
			t.Errorf("Location = %q, want %q", loc, loginPath)
		}
		if strings.Contains(w.Body.String(), "profile") {
			t.Error("redirect body must not leak protected data")
		}
	})

	t.Run("認証済みは通過", func(t *testing.T) {
		reached := false
		handler := ac.RequireAuthenticated()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reached = true
		}))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestAs(&model.User{ID: "u1", Role: model.RoleMember}, "/profile"))

		if !reached {
			t.Fatal("handler should be called")
		}
		if cc := w.Header().Get("Cache-Control"); cc != "no-store" {
			t.Errorf("Cache-Control = %q, want no-store", cc)
		}
	})
}

func TestRequireRole(t *testing.T) {
	var pageStatus int
	var pageErr *model.AppError
	errorPage := func(w http.ResponseWriter, r *http.Request, status int, appErr *model.AppError) {
		pageStatus, pageErr = status, appErr
		w.WriteHeader(status)
	}

	tests := []struct {
		name       string
		user       *model.User
		wantStatus int
		wantReach  bool
	}{
		{"未認証", nil, http.StatusFound, false},
		{"一般ユーザー", &model.User{ID: "u1", Role: model.RoleMember}, http.StatusForbidden, false},
		{"管理者", &model.User{ID: "a1", Role: model.RoleAdmin}, http.StatusOK, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pageStatus, pageErr = 0, nil
			ac := NewAccessControl(loginPath, errorPage, nil)
			reached := false
			handler := ac.RequireRole(model.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				reached = true
			}))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, requestAs(tt.user, "/admin"))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if reached != tt.wantReach {
				t.Errorf("reached = %v, want %v", reached, tt.wantReach)
			}
			if tt.wantStatus == http.StatusForbidden {
				if pageStatus != http.StatusForbidden || pageErr == nil || pageErr.Code != model.ErrCodeForbidden {
					t.Errorf("error page = %d %+v", pageStatus, pageErr)
				}
				if w.Header().Get("Location") != "" {
					t.Error("forbidden must not redirect")
				}
			}
		})
	}
}

func TestAccessControl_RecordsDenials(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	ac := NewAccessControl(loginPath, nil, collector)
	noop := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	ac.RequireAuthenticated()(noop).ServeHTTP(httptest.NewRecorder(), requestAs(nil, "/"))
	ac.RequireRole(model.RoleAdmin)(noop).ServeHTTP(httptest.NewRecorder(), requestAs(&model.User{ID: "u1", Role: model.RoleMember}, "/admin"))

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	got := make(map[string]float64)
	for _, mf := range families {
		if mf.GetName() != "gameforum_access_denied_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			got[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
		}
	}
	if got["unauthenticated"] != 1 || got["role"] != 1 {
		t.Errorf("access_denied_total = %v, want unauthenticated=1 role=1", got)
	}
}

func TestWritePlainError(t *testing.T) {
	w := httptest.NewRecorder()
	WritePlainError(w, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusNotFound, model.NewPostNotFoundError("p1"))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if !strings.Contains(w.Body.String(), "投稿が見つかりません") {
		t.Errorf("body = %q", w.Body.String())
	}
}
