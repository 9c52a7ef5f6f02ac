package util

import (
	"cmp"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/rand"
)

func TestReverseG(t *testing.T) {
	arr := []int32{1, 2, 3}
	rev := ReverseG(arr)
	assert.Equal(t, []int32{3, 2, 1}, rev)
	assert.Equal(t, []int32{1, 2, 3}, arr)
	assert.Empty(t, ReverseG([]int32{}))
}

func TestRoundFloat(t *testing.T) {
	assert.Equal(t, 1.23, RoundFloat(1.23456, 2))
	assert.Equal(t, -7.7957, RoundFloat(-7.79566, 4))
}

func TestLowerBound(t *testing.T) {
	rand.Seed(42)
	for i := 0; i < 50; i++ {
		arr := make([]int, rand.Intn(30))
		for j := range arr {
			arr[j] = rand.Intn(100)
		}
		sort.Ints(arr)
		target := rand.Intn(110)
		want := sort.SearchInts(arr, target)
		assert.Equal(t, want, LowerBound(arr, target, cmp.Compare[int]))
	}
}

func TestAbsInt64(t *testing.T) {
	assert.Equal(t, int64(5), AbsInt64(-5))
	assert.Equal(t, int64(5), AbsInt64(5))
}
