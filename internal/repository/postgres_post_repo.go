package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/gameforum/internal/model"
)

// PostgresPostRepo はPostgreSQLを使用した投稿リポジトリ。
type PostgresPostRepo struct {
	db *sql.DB
}

// NewPostgresPostRepo はPostgresPostRepoを生成する。
func NewPostgresPostRepo(db *sql.DB) *PostgresPostRepo {
	return &PostgresPostRepo{db: db}
}

// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
func (r *PostgresPostRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	post := &model.Post{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, author_id, title, content, created_at, updated_at
		 FROM posts WHERE id = $1`,
		id,
	).Scan(&post.ID, &post.AuthorID, &post.Title, &post.Content, &post.CreatedAt, &post.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("投稿の取得に失敗しました: %w", err)
	}

	return post, nil
}

// Create は投稿を作成する。
func (r *PostgresPostRepo) Create(ctx context.Context, post *model.Post) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO posts (id, author_id, title, content, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		post.ID, post.AuthorID, post.Title, post.Content, post.CreatedAt, post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("投稿の作成に失敗しました: %w", err)
	}
	return nil
}

// Update は投稿のタイトルと本文を更新する。author_idは変更しない。
func (r *PostgresPostRepo) Update(ctx context.Context, id, title, content string) (*model.Post, error) {
	post := &model.Post{}
	err := r.db.QueryRowContext(ctx,
		`UPDATE posts SET title = $2, content = $3, updated_at = now()
		 WHERE id = $1
		 RETURNING id, author_id, title, content, created_at, updated_at`,
		id, title, content,
	).Scan(&post.ID, &post.AuthorID, &post.Title, &post.Content, &post.CreatedAt, &post.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("投稿の更新に失敗しました: %w", err)
	}

	return post, nil
}

// Delete は指定IDの投稿を削除する。
func (r *PostgresPostRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("投稿の削除に失敗しました: %w", err)
	}
	return nil
}

// List は投稿をusersとJOINし、作成日時の降順で返す。
// filter.AuthorIDが指定された場合はその投稿者の投稿のみを返す。
func (r *PostgresPostRepo) List(ctx context.Context, filter model.PostFilter) ([]model.PostWithAuthor, error) {
	query := `
		SELECT p.id, p.author_id, p.title, p.content, p.created_at, p.updated_at,
		       u.name, u.email
		FROM posts p
		JOIN users u ON u.id = p.author_id`

	var args []interface{}
	if filter.AuthorID != "" {
		query += " WHERE p.author_id = $1"
		args = append(args, filter.AuthorID)
	}
	query += " ORDER BY p.created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("投稿一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var posts []model.PostWithAuthor
	for rows.Next() {
		var pwa model.PostWithAuthor
		if err := rows.Scan(
			&pwa.ID, &pwa.AuthorID, &pwa.Title, &pwa.Content, &pwa.CreatedAt, &pwa.UpdatedAt,
			&pwa.AuthorName, &pwa.AuthorEmail,
		); err != nil {
			return nil, fmt.Errorf("投稿行の読み取りに失敗しました: %w", err)
		}
		posts = append(posts, pwa)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("投稿一覧の走査に失敗しました: %w", err)
	}

	return posts, nil
}

// compile-time interface check
var _ PostRepository = (*PostgresPostRepo)(nil)
