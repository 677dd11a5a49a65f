package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeInfo(t *testing.T) {
	tests := []struct {
		name  string
		base  map[string]interface{}
		patch map[string]interface{}
		want  map[string]interface{}
	}{
		{
			name:  "nil base takes the whole patch",
			base:  nil,
			patch: map[string]interface{}{"level": float64(3)},
			want:  map[string]interface{}{"level": float64(3)},
		},
		{
			name:  "scalar patch overwrites scalar base",
			base:  map[string]interface{}{"level": float64(1), "name": "old"},
			patch: map[string]interface{}{"level": float64(2)},
			want:  map[string]interface{}{"level": float64(2), "name": "old"},
		},
		{
			name: "nested objects deep-merge instead of replacing",
			base: map[string]interface{}{
				"settings": map[string]interface{}{"sound": true, "music": true},
			},
			patch: map[string]interface{}{
				"settings": map[string]interface{}{"sound": false},
			},
			want: map[string]interface{}{
				"settings": map[string]interface{}{"sound": false, "music": true},
			},
		},
		{
			name: "patch scalar replaces a nested object outright",
			base: map[string]interface{}{
				"settings": map[string]interface{}{"sound": true},
			},
			patch: map[string]interface{}{
				"settings": "reset",
			},
			want: map[string]interface{}{
				"settings": "reset",
			},
		},
		{
			name:  "patch adds a brand new key",
			base:  map[string]interface{}{"a": float64(1)},
			patch: map[string]interface{}{"b": float64(2)},
			want:  map[string]interface{}{"a": float64(1), "b": float64(2)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeInfo(tt.base, tt.patch)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMergeInfoDoesNotMutateBase(t *testing.T) {
	base := map[string]interface{}{"a": float64(1)}
	MergeInfo(base, map[string]interface{}{"a": float64(2)})
	assert.Equal(t, float64(1), base["a"])
}
