package post

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hitoshi/gameforum/internal/model"
	"github.com/hitoshi/gameforum/internal/repository"
	"github.com/hitoshi/gameforum/internal/security"
)

// --- モック ---

type mockPostRepo struct {
	posts map[string]*model.Post

	findByIDFn func(ctx context.Context, id string) (*model.Post, error)
	createFn   func(ctx context.Context, p *model.Post) error
	deleted    []string
	lastFilter model.PostFilter
}

func newMockPostRepo(posts ...*model.Post) *mockPostRepo {
	m := &mockPostRepo{posts: make(map[string]*model.Post)}
	for _, p := range posts {
		m.posts[p.ID] = p
	}
	return m
}

func (m *mockPostRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	if p, ok := m.posts[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (m *mockPostRepo) Create(ctx context.Context, p *model.Post) error {
	if m.createFn != nil {
		return m.createFn(ctx, p)
	}
	m.posts[p.ID] = p
	return nil
}

func (m *mockPostRepo) Update(_ context.Context, id, title, content string) (*model.Post, error) {
	p, ok := m.posts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p.Title = title
	p.Content = content
	cp := *p
	return &cp, nil
}

func (m *mockPostRepo) Delete(_ context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.posts, id)
	return nil
}

func (m *mockPostRepo) List(_ context.Context, filter model.PostFilter) ([]model.PostWithAuthor, error) {
	m.lastFilter = filter
	var out []model.PostWithAuthor
	for _, p := range m.posts {
		if filter.AuthorID != "" && p.AuthorID != filter.AuthorID {
			continue
		}
		out = append(out, model.PostWithAuthor{Post: *p})
	}
	return out, nil
}

const (
	postID  = "11111111-1111-1111-1111-111111111111"
	otherID = "22222222-2222-2222-2222-222222222222"
)

var (
	userA = &model.Identity{ID: "user-a", Email: "a@example.com", Role: model.RoleMember}
	userB = &model.Identity{ID: "user-b", Email: "b@example.com", Role: model.RoleMember}
	admin = &model.Identity{ID: "admin", Email: "admin@example.com", Role: model.RoleAdmin}
)

func postByA() *model.Post {
	return &model.Post{ID: postID, AuthorID: userA.ID, Title: "original", Content: "original body"}
}

func newTestService(repo repository.PostRepository) *Service {
	return NewService(repo, security.NewPostSanitizer(), nil)
}

func appErrorCode(err error) string {
	var appErr *model.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// --- Create ---

func TestCreate_SetsAuthorAndSanitizes(t *testing.T) {
	repo := newMockPostRepo()
	svc := newTestService(repo)

	p, err := svc.Create(context.Background(), userA, "  <b>新作</b>レビュー ", `<p>面白い</p><script>alert(1)</script>`)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if p.AuthorID != userA.ID {
		t.Errorf("AuthorID = %q, want %q", p.AuthorID, userA.ID)
	}
	if p.Title != "新作レビュー" {
		t.Errorf("Title = %q", p.Title)
	}
	if strings.Contains(p.Content, "script") {
		t.Errorf("Content not sanitized: %q", p.Content)
	}
	if _, ok := repo.posts[p.ID]; !ok {
		t.Error("post was not persisted")
	}
}

func TestCreate_Validation(t *testing.T) {
	svc := newTestService(newMockPostRepo())

	tests := []struct {
		name, title, content string
	}{
		{"タイトルなし", "", "body"},
		{"空白のみのタイトル", "   ", "body"},
		{"本文なし", "title", ""},
		{"サニタイズ後に空になる本文", "title", "<script>x</script>"},
		{"長すぎるタイトル", strings.Repeat("あ", 256), "body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), userA, tt.title, tt.content)
			if code := appErrorCode(err); code != model.ErrCodeValidationFailed {
				t.Errorf("code = %q (err=%v), want VALIDATION_FAILED", code, err)
			}
		})
	}
}

func TestCreate_WithoutAuthor_Forbidden(t *testing.T) {
	svc := newTestService(newMockPostRepo())
	_, err := svc.Create(context.Background(), nil, "t", "c")
	if code := appErrorCode(err); code != model.ErrCodeForbidden {
		t.Errorf("code = %q, want FORBIDDEN", code)
	}
}

// --- 所有権 ---

func TestMutations_OwnershipMatrix(t *testing.T) {
	tests := []struct {
		name      string
		requester *model.Identity
		wantCode  string
	}{
		{"投稿者本人", userA, ""},
		{"他の一般ユーザー", userB, model.ErrCodeForbidden},
		{"管理者", admin, ""},
	}

	for _, tt := range tests {
		t.Run("編集フォーム/"+tt.name, func(t *testing.T) {
			svc := newTestService(newMockPostRepo(postByA()))
			_, err := svc.GetForEdit(context.Background(), tt.requester, postID)
			if code := appErrorCode(err); code != tt.wantCode || (tt.wantCode == "" && err != nil) {
				t.Errorf("GetForEdit err = %v, want code %q", err, tt.wantCode)
			}
		})

		t.Run("更新/"+tt.name, func(t *testing.T) {
			repo := newMockPostRepo(postByA())
			svc := newTestService(repo)
			_, err := svc.Update(context.Background(), tt.requester, postID, "edited", "edited body")
			if code := appErrorCode(err); code != tt.wantCode || (tt.wantCode == "" && err != nil) {
				t.Errorf("Update err = %v, want code %q", err, tt.wantCode)
			}
			stored := repo.posts[postID]
			if tt.wantCode != "" && stored.Title != "original" {
				t.Errorf("forbidden update modified the post: %+v", stored)
			}
			if tt.wantCode == "" && stored.Title != "edited" {
				t.Errorf("permitted update not applied: %+v", stored)
			}
			if stored.AuthorID != userA.ID {
				t.Errorf("AuthorID changed to %q", stored.AuthorID)
			}
		})

		t.Run("削除/"+tt.name, func(t *testing.T) {
			repo := newMockPostRepo(postByA())
			svc := newTestService(repo)
			err := svc.Delete(context.Background(), tt.requester, postID)
			if code := appErrorCode(err); code != tt.wantCode || (tt.wantCode == "" && err != nil) {
				t.Errorf("Delete err = %v, want code %q", err, tt.wantCode)
			}
			deleted := len(repo.deleted) > 0
			if deleted != (tt.wantCode == "") {
				t.Errorf("deleted = %v, want %v", deleted, tt.wantCode == "")
			}
		})
	}
}

func TestMutations_MissingPost_NotFoundBeforeOwnership(t *testing.T) {
	svc := newTestService(newMockPostRepo(postByA()))
	ctx := context.Background()

	// 他人でも存在しない投稿には404を返す
	for _, id := range []string{otherID, "not-a-uuid"} {
		if _, err := svc.GetForEdit(ctx, userB, id); appErrorCode(err) != model.ErrCodePostNotFound {
			t.Errorf("GetForEdit(%s) err = %v, want POST_NOT_FOUND", id, err)
		}
		if _, err := svc.Update(ctx, userB, id, "t", "c"); appErrorCode(err) != model.ErrCodePostNotFound {
			t.Errorf("Update(%s) err = %v, want POST_NOT_FOUND", id, err)
		}
		if err := svc.Delete(ctx, userB, id); appErrorCode(err) != model.ErrCodePostNotFound {
			t.Errorf("Delete(%s) err = %v, want POST_NOT_FOUND", id, err)
		}
	}
}

func TestMutations_NonCanonicalID_NotFoundWithoutLookup(t *testing.T) {
	repo := newMockPostRepo(postByA())
	repo.findByIDFn = func(_ context.Context, id string) (*model.Post, error) {
		// PostgreSQLのUUID列は標準形式以外を構文エラーにする
		return nil, errors.New("pq: invalid input syntax for type uuid: " + id)
	}
	svc := newTestService(repo)

	ids := []string{"urn:uuid:" + postID, "{" + postID + "}", "abc"}
	for _, id := range ids {
		if _, err := svc.GetForEdit(context.Background(), userA, id); appErrorCode(err) != model.ErrCodePostNotFound {
			t.Errorf("GetForEdit(%s) err = %v, want POST_NOT_FOUND", id, err)
		}
	}
}

func TestUpdate_ForbiddenTakesPrecedenceOverValidation(t *testing.T) {
	svc := newTestService(newMockPostRepo(postByA()))
	_, err := svc.Update(context.Background(), userB, postID, "", "")
	if code := appErrorCode(err); code != model.ErrCodeForbidden {
		t.Errorf("code = %q, want FORBIDDEN", code)
	}
}

func TestMutations_StoreError_IsNotAppError(t *testing.T) {
	repo := newMockPostRepo()
	repo.findByIDFn = func(_ context.Context, _ string) (*model.Post, error) {
		return nil, errors.New("connection refused")
	}
	svc := newTestService(repo)

	_, err := svc.GetForEdit(context.Background(), userA, postID)
	if err == nil {
		t.Fatal("expected error")
	}
	if appErrorCode(err) != "" {
		t.Errorf("store error should not be an AppError: %v", err)
	}
}

// --- 一覧 ---

func TestListByAuthor_FiltersByAuthor(t *testing.T) {
	repo := newMockPostRepo(postByA(), &model.Post{ID: otherID, AuthorID: userB.ID, Title: "b", Content: "b"})
	svc := newTestService(repo)

	posts, err := svc.ListByAuthor(context.Background(), userB.ID)
	if err != nil {
		t.Fatalf("ListByAuthor returned error: %v", err)
	}
	if repo.lastFilter.AuthorID != userB.ID {
		t.Errorf("filter = %+v", repo.lastFilter)
	}
	if len(posts) != 1 || posts[0].AuthorID != userB.ID {
		t.Errorf("posts = %+v", posts)
	}

	all, _ := svc.List(context.Background())
	if len(all) != 2 {
		t.Errorf("List returned %d posts, want 2", len(all))
	}
}
