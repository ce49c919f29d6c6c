package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLockID(t *testing.T) {
	assert.Equal(t, LockID("campus-ai", "schema"), LockID("campus-ai", "schema"))
	assert.NotEqual(t, LockID("campus-ai", "schema"), LockID("campus-ai", "other"))
	// 区切りを含めてハッシュするため、連結結果が同じでも別のIDになる
	assert.NotEqual(t, LockID("ab", "c"), LockID("a", "bc"))
}
