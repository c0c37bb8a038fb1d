package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTripWithOffset(t *testing.T) {
	token, err := EncodeCursor(Cursor{Offset: 40})
	require.NoError(t, err)

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, 40, cursor.Offset)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	_, err := DecodeCursor("%%%")
	assert.ErrorIs(t, err, ErrInvalidPageToken)
}

func TestLimitClamps(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Pagination{}.Limit())
	assert.Equal(t, MaxPageSize, Pagination{PageSize: 1000}.Limit())
	assert.Equal(t, 5, Pagination{PageSize: 5}.Limit())
}

func TestBuildCursorPageInfo(t *testing.T) {
	type row struct{ id string }
	rows := []*row{{"a"}, {"b"}, {"c"}}

	page, info := BuildCursorPageInfo(rows, 2, func(r *row) string { return r.id })
	assert.Len(t, page, 2)
	assert.True(t, info.HasMore)
	assert.Equal(t, "b", info.NextPageToken)

	page, info = BuildCursorPageInfo(rows, 3, func(r *row) string { return r.id })
	assert.Len(t, page, 3)
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)
}
