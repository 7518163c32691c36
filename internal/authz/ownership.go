// Package authz は投稿に対する所有者ベースの認可判定を提供する。
package authz

import "github.com/hitoshi/gameforum/internal/model"

// CanMutate はrequesterがpostを編集・削除できるかを判定する純粋関数。
// 投稿者本人、または管理者ロールの場合にtrueを返す。
func CanMutate(post *model.Post, requester *model.Identity) bool {
	if post == nil || requester == nil {
		return false
	}
	return requester.ID == post.AuthorID || requester.Role == model.RoleAdmin
}

// AuthorizeMutation はCanMutateの結果をエラーとして返す。
// 権限がない場合はFORBIDDENのAppErrorを返す。投稿の存在確認は呼び出し側で先に行うこと。
func AuthorizeMutation(post *model.Post, requester *model.Identity) error {
	if !CanMutate(post, requester) {
		return model.NewForbiddenError()
	}
	return nil
}
