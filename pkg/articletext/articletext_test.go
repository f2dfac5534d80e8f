package articletext

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReadingTime(t *testing.T) {
	long := strings.Repeat("word ", 451)

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "empty", content: "", want: "1 min read"},
		{name: "short", content: "just a few words", want: "1 min read"},
		{name: "exactly one minute", content: strings.Repeat("w ", 225), want: "1 min read"},
		{name: "rounds up", content: strings.Repeat("w ", 226), want: "2 min read"},
		{name: "three minutes", content: long, want: "3 min read"},
		{name: "html stripped", content: "<p>" + strings.Repeat("<b>w</b> ", 226) + "</p>", want: "2 min read"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReadingTime(tt.content))
		})
	}
}

func TestPlainTextSeparatesBlocks(t *testing.T) {
	text := plainText("<p>one</p><p>two</p>")
	assert.Equal(t, []string{"one", "two"}, strings.Fields(text))
}

func TestDisplayDate(t *testing.T) {
	now := time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)
	published := time.Date(2024, 11, 28, 8, 30, 0, 0, time.UTC)

	assert.Equal(t, "November 28, 2024", DisplayDate(&published, now))
	assert.Equal(t, "March 9, 2025", DisplayDate(nil, now))
	assert.Equal(t, "March 9, 2025", DisplayDate(&time.Time{}, now))
}

func TestHeadlineTail(t *testing.T) {
	assert.Equal(t, " Markets rally", HeadlineTail("BREAKING Markets rally"))
	assert.Equal(t, "", HeadlineTail("Solo"))
	assert.Equal(t, "", HeadlineTail(""))
}
