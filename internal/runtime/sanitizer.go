package runtime

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aretw0/panel/pkg/domain"
)

var (
	// DefaultMaxInputSize is 4KB (conservative default)
	DefaultMaxInputSize = 4096
	// EnvMaxInputSize is the environment variable to override the default
	EnvMaxInputSize = "PANEL_MAX_INPUT_SIZE"
)

// SanitizeQuestion cleans a user question by enforcing size limits,
// validating UTF-8, stripping dangerous control characters and trimming
// surrounding whitespace. A question that is blank afterwards is rejected
// with domain.ErrEmptyQuestion.
func SanitizeQuestion(input string) (string, error) {
	limit := getMaxInputSize()
	if len(input) > limit {
		// Reject rather than truncate: a cut question would be a different question.
		return "", fmt.Errorf("%w: size=%d limit=%d", domain.ErrInputTooLarge, len(input), limit)
	}

	if !utf8.ValidString(input) {
		return "", domain.ErrInvalidUTF8
	}

	// Keep \n, \t and \r. Drop ESC, NUL, BEL and friends so nothing the user
	// types can poison logs or repaint the terminal.
	if strings.ContainsFunc(input, isUnsafeControl) {
		var b strings.Builder
		b.Grow(len(input))
		for _, r := range input {
			if !isUnsafeControl(r) {
				b.WriteRune(r)
			}
		}
		input = b.String()
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return "", domain.ErrEmptyQuestion
	}
	return input, nil
}

func isUnsafeControl(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r'
}

func getMaxInputSize() int {
	if val := os.Getenv(EnvMaxInputSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxInputSize
}
