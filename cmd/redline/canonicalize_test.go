package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShortID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want string
	}{
		{"full uuid", "3f2a9c10-0000-4000-8000-000000000000", "3f2a9c10"},
		{"exactly eight", "abcd1234", "abcd1234"},
		{"shorter than eight", "ann-1", "ann-1"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shortID(tt.id))
		})
	}
}
