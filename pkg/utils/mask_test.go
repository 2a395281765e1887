package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskDSN(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "redis DSN with password",
			input:    "redis://:myredispass@redis.example.com:6379/0",
			expected: "redis://:***@redis.example.com:6379/0",
		},
		{
			name:     "DSN without password",
			input:    "redis://localhost:6379/0",
			expected: "redis://localhost:6379/0",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MaskDSN(tt.input))
		})
	}
}

func TestMaskToken(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "session id", input: "ABCD1234EFGH.prod_b_112_3", expected: "ABCD***"},
		{name: "short token", input: "abc", expected: "***"},
		{name: "exactly four", input: "abcd", expected: "***"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MaskToken(tt.input))
		})
	}
}
