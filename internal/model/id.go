package model

import "github.com/google/uuid"

// ValidID はidがPostgreSQLのUUID列に渡せる36文字の標準形式かどうかを返す。
// urn:uuid: や波括弧付きの形式は受け付けない。
func ValidID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
