package user

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/gameforum/internal/model"
	"github.com/hitoshi/gameforum/internal/repository"
)

// --- モック ---

type mockUserRepo struct {
	findByIDFn    func(ctx context.Context, id string) (*model.User, error)
	findByEmailFn func(ctx context.Context, email string) (*model.User, error)
	listFn        func(ctx context.Context) ([]*model.User, error)
	updateRoleFn  func(ctx context.Context, id string, role model.Role) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(_ context.Context, _ *model.User) error {
	return nil
}

func (m *mockUserRepo) List(ctx context.Context) ([]*model.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockUserRepo) UpdateRole(ctx context.Context, id string, role model.Role) error {
	if m.updateRoleFn != nil {
		return m.updateRoleFn(ctx, id, role)
	}
	return nil
}

type mockPostLister struct {
	listByAuthorFn func(ctx context.Context, authorID string) ([]model.PostWithAuthor, error)
}

func (m *mockPostLister) ListByAuthor(ctx context.Context, authorID string) ([]model.PostWithAuthor, error) {
	if m.listByAuthorFn != nil {
		return m.listByAuthorFn(ctx, authorID)
	}
	return nil, nil
}

type mockInvalidator struct {
	invalidated []string
}

func (m *mockInvalidator) InvalidateUserSessions(_ context.Context, userID string) error {
	m.invalidated = append(m.invalidated, userID)
	return nil
}

var (
	adminUser  = &model.User{ID: "aaaaaaaa-0000-4000-8000-000000000001", Email: "admin@example.com", Role: model.RoleAdmin}
	memberUser = &model.User{ID: "bbbbbbbb-0000-4000-8000-000000000002", Email: "member@example.com", Role: model.RoleMember}
)

func appErrorCode(err error) string {
	var appErr *model.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// --- Profile ---

func TestProfile_ReturnsUserAndPosts(t *testing.T) {
	users := &mockUserRepo{
		findByIDFn: func(_ context.Context, id string) (*model.User, error) {
			if id == memberUser.ID {
				return memberUser, nil
			}
			return nil, nil
		},
	}
	posts := &mockPostLister{
		listByAuthorFn: func(_ context.Context, authorID string) ([]model.PostWithAuthor, error) {
			return []model.PostWithAuthor{{Post: model.Post{ID: "p1", AuthorID: authorID}}}, nil
		},
	}
	svc := NewService(users, posts, nil)

	profile, err := svc.Profile(context.Background(), memberUser.ID)
	if err != nil {
		t.Fatalf("Profile returned error: %v", err)
	}
	if profile.User.ID != memberUser.ID {
		t.Errorf("User = %+v", profile.User)
	}
	if len(profile.Posts) != 1 || profile.Posts[0].AuthorID != memberUser.ID {
		t.Errorf("Posts = %+v", profile.Posts)
	}
}

func TestProfile_UnknownUser_NotFound(t *testing.T) {
	svc := NewService(&mockUserRepo{}, &mockPostLister{}, nil)

	_, err := svc.Profile(context.Background(), "cccccccc-0000-4000-8000-000000000003")
	if code := appErrorCode(err); code != model.ErrCodeUserNotFound {
		t.Errorf("code = %q, want USER_NOT_FOUND", code)
	}
}

func TestProfile_NonUUID_NotFoundWithoutLookup(t *testing.T) {
	users := &mockUserRepo{
		findByIDFn: func(_ context.Context, id string) (*model.User, error) {
			return nil, errors.New("pq: invalid input syntax for type uuid: " + id)
		},
	}
	svc := NewService(users, &mockPostLister{}, nil)

	for _, id := range []string{"abc", "urn:uuid:" + memberUser.ID} {
		_, err := svc.Profile(context.Background(), id)
		if code := appErrorCode(err); code != model.ErrCodeUserNotFound {
			t.Errorf("Profile(%q) code = %q (err=%v), want USER_NOT_FOUND", id, code, err)
		}
	}
}

// --- SetRole ---

func TestSetRole_PromotesAndInvalidatesSessions(t *testing.T) {
	var gotID string
	var gotRole model.Role
	users := &mockUserRepo{
		updateRoleFn: func(_ context.Context, id string, role model.Role) error {
			gotID, gotRole = id, role
			return nil
		},
	}
	inv := &mockInvalidator{}
	svc := NewService(users, &mockPostLister{}, inv)

	if err := svc.SetRole(context.Background(), adminUser, memberUser.ID, "admin"); err != nil {
		t.Fatalf("SetRole returned error: %v", err)
	}
	if gotID != memberUser.ID || gotRole != model.RoleAdmin {
		t.Errorf("UpdateRole(%q, %q)", gotID, gotRole)
	}
	if len(inv.invalidated) != 1 || inv.invalidated[0] != memberUser.ID {
		t.Errorf("invalidated = %v, want [%s]", inv.invalidated, memberUser.ID)
	}
}

func TestSetRole_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		actor    *model.User
		target   string
		role     string
		wantCode string
	}{
		{"一般ユーザーは変更できない", memberUser, adminUser.ID, "member", model.ErrCodeForbidden},
		{"未ログイン", nil, memberUser.ID, "admin", model.ErrCodeForbidden},
		{"未定義のロール", adminUser, memberUser.ID, "owner", model.ErrCodeValidationFailed},
		{"自分自身", adminUser, adminUser.ID, "member", model.ErrCodeValidationFailed},
		{"UUIDでないID", adminUser, "abc", "admin", model.ErrCodeUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			users := &mockUserRepo{
				updateRoleFn: func(_ context.Context, _ string, _ model.Role) error {
					called = true
					return nil
				},
			}
			svc := NewService(users, &mockPostLister{}, &mockInvalidator{})

			err := svc.SetRole(context.Background(), tt.actor, tt.target, tt.role)
			if code := appErrorCode(err); code != tt.wantCode {
				t.Errorf("code = %q (err=%v), want %q", code, err, tt.wantCode)
			}
			if called {
				t.Error("UpdateRole must not be called")
			}
		})
	}
}

func TestSetRole_UnknownTarget_NotFound(t *testing.T) {
	users := &mockUserRepo{
		updateRoleFn: func(_ context.Context, _ string, _ model.Role) error {
			return repository.ErrNotFound
		},
	}
	inv := &mockInvalidator{}
	svc := NewService(users, &mockPostLister{}, inv)

	err := svc.SetRole(context.Background(), adminUser, "cccccccc-0000-4000-8000-000000000003", "admin")
	if code := appErrorCode(err); code != model.ErrCodeUserNotFound {
		t.Errorf("code = %q, want USER_NOT_FOUND", code)
	}
	if len(inv.invalidated) != 0 {
		t.Error("sessions must not be invalidated when the update fails")
	}
}

// --- GrantAdminByEmail ---

func TestGrantAdminByEmail(t *testing.T) {
	target := &model.User{ID: "u-9", Email: "first@example.com", Role: model.RoleMember}
	var lookedUp string
	users := &mockUserRepo{
		findByEmailFn: func(_ context.Context, email string) (*model.User, error) {
			lookedUp = email
			if email == target.Email {
				return target, nil
			}
			return nil, nil
		},
	}
	inv := &mockInvalidator{}
	svc := NewService(users, &mockPostLister{}, inv)

	u, err := svc.GrantAdminByEmail(context.Background(), " First@Example.com ")
	if err != nil {
		t.Fatalf("GrantAdminByEmail returned error: %v", err)
	}
	if lookedUp != "first@example.com" {
		t.Errorf("email not normalized: %q", lookedUp)
	}
	if u.Role != model.RoleAdmin {
		t.Errorf("Role = %q, want admin", u.Role)
	}

	if _, err := svc.GrantAdminByEmail(context.Background(), "nobody@example.com"); appErrorCode(err) != model.ErrCodeUserNotFound {
		t.Errorf("unknown email err = %v, want USER_NOT_FOUND", err)
	}
}
