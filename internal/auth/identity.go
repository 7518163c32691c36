package auth

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hitoshi/gameforum/internal/model"
)

// encodeIdentity はセッションに保存するユーザー識別情報をシリアライズする。
func encodeIdentity(identity *model.Identity) ([]byte, error) {
	if identity == nil || identity.ID == "" {
		return nil, errors.New("identity id is required")
	}
	data, err := json.Marshal(identity)
	if err != nil {
		return nil, fmt.Errorf("failed to encode identity: %w", err)
	}
	return data, nil
}

// decodeIdentity はセッションのペイロードからユーザー識別情報を復元する。
func decodeIdentity(data []byte) (*model.Identity, error) {
	var identity model.Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		return nil, fmt.Errorf("failed to decode identity: %w", err)
	}
	if identity.ID == "" {
		return nil, errors.New("identity id is missing")
	}
	return &identity, nil
}
