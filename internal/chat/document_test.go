package chat

import (
	"testing"

	"github.com/procurement-tools/contractpilot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentUpdate(t *testing.T) {
	d := NewDocument()

	content, rev := d.Content()
	assert.Empty(t, content)
	assert.Equal(t, 0, rev)

	rev = d.Update("第一版")
	assert.Equal(t, 1, rev)

	rev = d.Update("第二版")
	assert.Equal(t, 2, rev)

	content, rev = d.Content()
	assert.Equal(t, "第二版", content)
	assert.Equal(t, 2, rev)
	assert.False(t, d.UpdatedAt().IsZero())
}

func TestDocumentSaveCompareAndSet(t *testing.T) {
	d := NewDocument()
	d.Update("第一版")

	rev, err := d.Save("编辑后的版本", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, rev)

	// A stale editor revision must not clobber newer content.
	rev, err = d.Save("基于旧版的编辑", 1)
	assert.ErrorIs(t, err, domain.ErrRevisionConflict)
	assert.Equal(t, 2, rev)

	content, _ := d.Content()
	assert.Equal(t, "编辑后的版本", content)
}
