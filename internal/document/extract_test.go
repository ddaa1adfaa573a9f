package document

import (
	"strings"
	"testing"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "collapses internal whitespace",
			input:    "The  quick\tbrown\n\nfox",
			expected: "The quick brown fox",
		},
		{
			name:     "trims leading and trailing space",
			input:    "  hello world  \n",
			expected: "hello world",
		},
		{
			name:     "pdf style hard wrapped lines",
			input:    "This sentence was\nwrapped by the\nlayout engine.",
			expected: "This sentence was wrapped by the layout engine.",
		},
		{
			name:     "empty input",
			input:    "   \n\t ",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanText(tt.input); got != tt.expected {
				t.Errorf("CleanText(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestExtractPlainText(t *testing.T) {
	body := strings.Repeat("The ocean covers most of the planet. ", 3)

	got, err := Extract("notes.txt", []byte(body))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if strings.Contains(got, "  ") {
		t.Errorf("extracted text contains uncollapsed whitespace: %q", got)
	}
	if !strings.HasPrefix(got, "The ocean covers") {
		t.Errorf("unexpected extracted text: %q", got)
	}
}

func TestExtractRejectsUnsupportedType(t *testing.T) {
	_, err := Extract("slides.pptx", []byte("irrelevant"))
	if err == nil {
		t.Fatal("expected error for unsupported document type")
	}
	if !strings.Contains(err.Error(), "unsupported document type") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestExtractRejectsTooShortDocument(t *testing.T) {
	_, err := Extract("tiny.txt", []byte("too short"))
	if err == nil {
		t.Fatal("expected error for under-length document")
	}
	if !strings.Contains(err.Error(), "too little text") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestExtractRejectsBinaryGarbage(t *testing.T) {
	_, err := Extract("weird.txt", []byte{0xff, 0xfe, 0x00, 0x81})
	if err == nil {
		t.Fatal("expected error for non-UTF-8 input")
	}
}
