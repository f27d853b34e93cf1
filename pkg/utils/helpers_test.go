package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Helpers(t *testing.T) {
	t.Run("Should map with the element index", func(t *testing.T) {
		labels := Map([]string{"a", "b"}, func(v string, i uint64) string {
			if i == 0 {
				return v + "!"
			}
			return v
		})
		assert.Equal(t, []string{"a!", "b"}, labels)
	})
	t.Run("Should filter", func(t *testing.T) {
		assert.Equal(t, []int{2}, Filter([]int{1, 2, 3}, func(v int) bool { return v == 2 }))
	})
	t.Run("Should return an empty slice when nothing matches", func(t *testing.T) {
		assert.Equal(t, []int{}, Filter([]int{1, 3}, func(v int) bool { return v == 2 }))
	})
}
