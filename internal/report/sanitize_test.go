package report

import "testing"

func TestSanitizeHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain paragraph passes through",
			input:    "<p>Hello <strong>world</strong></p>",
			expected: "<p>Hello <strong>world</strong></p>",
		},
		{
			name:     "script body removed",
			input:    "<p>safe</p><script>alert(1)</script><p>after</p>",
			expected: "<p>safe</p><p>after</p>",
		},
		{
			name:     "style body removed",
			input:    "<style>body{display:none}</style>text",
			expected: "text",
		},
		{
			name:     "unknown tag dropped, content kept",
			input:    "<video src=x>watch</video>",
			expected: "watch",
		},
		{
			name:     "event handlers stripped",
			input:    `<p onclick="alert(1)">click</p>`,
			expected: "<p>click</p>",
		},
		{
			name:     "javascript link neutered",
			input:    `<a href="javascript:alert(1)">go</a>`,
			expected: "<a>go</a>",
		},
		{
			name:     "http link kept",
			input:    `<a href="https://example.com">go</a>`,
			expected: `<a href="https://example.com">go</a>`,
		},
		{
			name:     "unterminated script swallowed",
			input:    "<p>ok</p><script>evil",
			expected: "<p>ok</p>",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeHTML(tt.input); got != tt.expected {
				t.Errorf("SanitizeHTML(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "tags stripped",
			input:    "<p>Hello <strong>world</strong></p>",
			expected: "Hello world",
		},
		{
			name:     "blocks collapse to single spaces",
			input:    "<p>one</p><p>two</p>",
			expected: "one two",
		},
		{
			name:     "entities decoded",
			input:    "<p>a &amp; b</p>",
			expected: "a & b",
		},
		{
			name:     "script body dropped",
			input:    "before<script>alert(1)</script>after",
			expected: "before after",
		},
		{
			name:     "plain string untouched",
			input:    "just text",
			expected: "just text",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlainText(tt.input); got != tt.expected {
				t.Errorf("PlainText(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
