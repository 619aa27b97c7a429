package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStackHeights(t *testing.T) {
	tests := []struct {
		name  string
		total int
		wants []int
		want  []int
	}{
		{"everything fits", 40, []int{4, 3, 2, 1, 1}, []int{6, 5, 4, 3, 22}},
		{"empty lists keep one row", 20, []int{0, 0, 0}, []int{3, 3, 14}},
		{"a long list leaves room for the rest", 20, []int{3, 50, 2, 1}, []int{5, 9, 3, 3}},
		{"too short for the minimums", 6, []int{2, 2, 2}, []int{3, 3, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stackHeights(tt.total, tt.wants))
		})
	}
}
