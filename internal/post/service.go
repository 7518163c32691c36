// Package post は投稿の作成・閲覧・編集・削除のドメインロジックを提供する。
//
// 編集フォームの表示、編集の送信、削除はすべてloadForMutationを通り、
// 存在確認の後にauthz.AuthorizeMutationで所有権を検証する。
package post

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hitoshi/gameforum/internal/authz"
	"github.com/hitoshi/gameforum/internal/metrics"
	"github.com/hitoshi/gameforum/internal/model"
	"github.com/hitoshi/gameforum/internal/repository"
	"github.com/hitoshi/gameforum/internal/security"
)

// maxTitleLength はタイトルの最大文字数。postsテーブルのVARCHAR(255)に合わせる。
const maxTitleLength = 255

// Service は投稿のサービス層。
type Service struct {
	posts     repository.PostRepository
	sanitizer security.Sanitizer
	metrics   metrics.MetricsCollector
	now       func() time.Time
}

// NewService はServiceを生成する。collectorがnilの場合はメトリクスを記録しない。
func NewService(posts repository.PostRepository, sanitizer security.Sanitizer, collector metrics.MetricsCollector) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		posts:     posts,
		sanitizer: sanitizer,
		metrics:   collector,
		now:       time.Now,
	}
}

// List は全投稿を投稿者情報付きで新しい順に返す。
func (s *Service) List(ctx context.Context) ([]model.PostWithAuthor, error) {
	posts, err := s.posts.List(ctx, model.PostFilter{})
	if err != nil {
		return nil, fmt.Errorf("投稿一覧の取得に失敗しました: %w", err)
	}
	return posts, nil
}

// ListByAuthor は指定ユーザーの投稿を新しい順に返す。
func (s *Service) ListByAuthor(ctx context.Context, authorID string) ([]model.PostWithAuthor, error) {
	posts, err := s.posts.List(ctx, model.PostFilter{AuthorID: authorID})
	if err != nil {
		return nil, fmt.Errorf("投稿一覧の取得に失敗しました: %w", err)
	}
	return posts, nil
}

// Create は認証済みユーザーを投稿者として投稿を作成する。
func (s *Service) Create(ctx context.Context, author *model.Identity, title, content string) (*model.Post, error) {
	if author == nil || author.ID == "" {
		return nil, model.NewForbiddenError()
	}

	title, content, err := s.clean(title, content)
	if err != nil {
		return nil, err
	}

	now := s.now()
	p := &model.Post{
		ID:        uuid.New().String(),
		AuthorID:  author.ID,
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.posts.Create(ctx, p); err != nil {
		return nil, err
	}

	s.metrics.RecordPostMutation("create")
	slog.Info("post created",
		slog.String("post_id", p.ID),
		slog.String("user_id", author.ID),
	)
	return p, nil
}

// GetForEdit は編集フォーム表示用に投稿を取得する。
// 投稿者本人または管理者以外はFORBIDDENを返す。
func (s *Service) GetForEdit(ctx context.Context, requester *model.Identity, postID string) (*model.Post, error) {
	return s.loadForMutation(ctx, requester, postID)
}

// Update は投稿のタイトルと本文を更新する。投稿者は変更しない。
func (s *Service) Update(ctx context.Context, requester *model.Identity, postID, title, content string) (*model.Post, error) {
	if _, err := s.loadForMutation(ctx, requester, postID); err != nil {
		return nil, err
	}

	title, content, err := s.clean(title, content)
	if err != nil {
		return nil, err
	}

	updated, err := s.posts.Update(ctx, postID, title, content)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, model.NewPostNotFoundError(postID)
	}
	if err != nil {
		return nil, err
	}

	s.metrics.RecordPostMutation("update")
	slog.Info("post updated",
		slog.String("post_id", postID),
		slog.String("user_id", requester.ID),
		slog.Bool("as_admin", requester.ID != updated.AuthorID),
	)
	return updated, nil
}

// Delete は投稿を削除する。
func (s *Service) Delete(ctx context.Context, requester *model.Identity, postID string) error {
	p, err := s.loadForMutation(ctx, requester, postID)
	if err != nil {
		return err
	}

	if err := s.posts.Delete(ctx, postID); err != nil {
		return err
	}

	s.metrics.RecordPostMutation("delete")
	slog.Info("post deleted",
		slog.String("post_id", postID),
		slog.String("user_id", requester.ID),
		slog.Bool("as_admin", requester.ID != p.AuthorID),
	)
	return nil
}

// loadForMutation は投稿の存在を確認した後、変更権限を検証する。
func (s *Service) loadForMutation(ctx context.Context, requester *model.Identity, postID string) (*model.Post, error) {
	if !model.ValidID(postID) {
		return nil, model.NewPostNotFoundError(postID)
	}

	p, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, model.NewPostNotFoundError(postID)
	}

	if err := authz.AuthorizeMutation(p, requester); err != nil {
		s.metrics.RecordAccessDenied(metrics.DeniedOwnership)
		requesterID := ""
		if requester != nil {
			requesterID = requester.ID
		}
		slog.Warn("post mutation denied",
			slog.String("post_id", postID),
			slog.String("user_id", requesterID),
		)
		return nil, err
	}

	return p, nil
}

// clean はタイトルと本文をサニタイズし、空でないことを検証する。
func (s *Service) clean(title, content string) (string, string, error) {
	title = s.sanitizer.StripTags(title)
	content = s.sanitizer.SanitizeContent(content)

	switch {
	case title == "":
		return "", "", model.NewValidationError("タイトルを入力してください")
	case utf8.RuneCountInString(title) > maxTitleLength:
		return "", "", model.NewValidationError(fmt.Sprintf("タイトルは%d文字以内で入力してください", maxTitleLength))
	case content == "":
		return "", "", model.NewValidationError("本文を入力してください")
	}
	return title, content, nil
}
