package iching_test

import (
	"testing"

	"github.com/aretw0/hexcast/pkg/domain"
	"github.com/aretw0/hexcast/pkg/iching"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineValue_Table(t *testing.T) {
	tests := []struct {
		sum      int
		bit      uint8
		changing bool
	}{
		{6, 0, true},
		{7, 1, false},
		{8, 0, false},
		{9, 1, true},
	}
	for _, tt := range tests {
		v := domain.LineValue(tt.sum)
		assert.Equal(t, tt.bit, v.Bit(), "sum %d", tt.sum)
		assert.Equal(t, tt.changing, v.Changing(), "sum %d", tt.sum)
	}
}

func TestResolver_Manual(t *testing.T) {
	r := iching.NewResolver(nil)

	t.Run("All tails is old yin", func(t *testing.T) {
		toss, err := r.Manual(2, 2, 2)
		require.NoError(t, err)
		assert.Equal(t, 6, toss.Sum())
		assert.Equal(t, uint8(0), toss.Value().Bit())
		assert.True(t, toss.Value().Changing())
	})

	t.Run("All heads is old yang", func(t *testing.T) {
		toss, err := r.Manual(3, 3, 3)
		require.NoError(t, err)
		assert.Equal(t, uint8(1), toss.Value().Bit())
		assert.True(t, toss.Value().Changing())
	})

	t.Run("Two heads in any order is young yin", func(t *testing.T) {
		for _, draws := range [][]int{{3, 3, 2}, {3, 2, 3}, {2, 3, 3}} {
			toss, err := r.Manual(draws...)
			require.NoError(t, err)
			assert.Equal(t, domain.YoungYin, toss.Value())
			assert.False(t, toss.Value().Changing())
		}
	})

	t.Run("Rejects illegal values", func(t *testing.T) {
		_, err := r.Manual(3, 4, 2)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		var inputErr *domain.InvalidInputError
		require.ErrorAs(t, err, &inputErr)
		assert.Equal(t, "draws[1]", inputErr.Field)
	})

	t.Run("Rejects wrong count", func(t *testing.T) {
		_, err := r.Manual(3, 2)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		_, err = r.Manual(3, 2, 2, 3)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestResolver_RandomTossesAreLegal(t *testing.T) {
	r := iching.NewResolver(iching.NewSeededSource(42))
	for i := 0; i < 500; i++ {
		toss := r.Toss()
		assert.True(t, toss.Valid())
		assert.True(t, toss.Value().Valid())
	}
}

func TestSeededSource_Deterministic(t *testing.T) {
	a := iching.NewResolver(iching.NewSeededSource(7))
	b := iching.NewResolver(iching.NewSeededSource(7))
	for i := 0; i < 50; i++ {
		assert.Equal(t, a.Toss(), b.Toss())
	}
}

func TestParseToss(t *testing.T) {
	tests := []struct {
		in   string
		want domain.Toss
	}{
		{"3,2,2", domain.Toss{3, 2, 2}},
		{"3 2 2", domain.Toss{3, 2, 2}},
		{"HTT", domain.Toss{3, 2, 2}},
		{"h,t,h", domain.Toss{3, 2, 3}},
		{"222", domain.Toss{2, 2, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := iching.ParseToss(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "HT", "3,2,x", "4,2,2", "HTTH"} {
		_, err := iching.ParseToss(bad)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "input %q", bad)
	}
}

func TestTossForValue(t *testing.T) {
	for v := domain.OldYin; v <= domain.OldYang; v++ {
		toss, err := iching.TossForValue(v)
		require.NoError(t, err)
		assert.Equal(t, v, toss.Value())
	}
	_, err := iching.TossForValue(5)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
