package util

import (
	"math"
)

func RoundFloat(val float64, precision uint) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}

func ReverseG[T any](arr []T) []T {
	copyArr := make([]T, len(arr)) // should do on the copy )
	copy(copyArr, arr)
	for i, j := 0, len(copyArr)-1; i < j; i, j = i+1, j-1 {
		copyArr[i], copyArr[j] = copyArr[j], copyArr[i]
	}
	return copyArr
}

// LowerBound returns the first index i in the sorted arr with compare(arr[i], target) >= 0,
// or len(arr) when there is none.
func LowerBound[T, K any](arr []T, target K, compare func(a T, b K) int) int {
	left := 0
	right := len(arr)
	for left < right {
		mid := left + (right-left)/2
		if compare(arr[mid], target) < 0 {
			left = mid + 1
		} else {
			right = mid
		}
	}
	return left
}

func AbsInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
