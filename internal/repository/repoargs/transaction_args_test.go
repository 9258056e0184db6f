package repoargs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListForUserOffset(t *testing.T) {
	cases := []struct {
		name string
		args ListForUser
		want int64
	}{
		{name: "first page", args: ListForUser{Page: 1, PageSize: 10}, want: 0},
		{name: "zero page", args: ListForUser{Page: 0, PageSize: 10}, want: 0},
		{name: "third page", args: ListForUser{Page: 3, PageSize: 25}, want: 50},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			offset, err := tt.args.Offset()
			require.NoError(t, err)
			assert.Equal(t, tt.want, offset)
		})
	}
}

func TestListForUserOffset_Overflow(t *testing.T) {
	_, err := ListForUser{Page: 1<<62 + 1, PageSize: 4}.Offset()
	require.ErrorIs(t, err, ErrOffsetOverflow)

	_, err = ListForUser{Page: ^uint(0), PageSize: 100}.Offset()
	require.ErrorIs(t, err, ErrOffsetOverflow)
}
