// Package articletext derives presentation strings (reading time, display
// date, headline tail) from article fields.
package articletext

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// WordsPerMinute is the average reading speed used by ReadingTime.
const WordsPerMinute = 225

// DisplayLayout renders dates as "January 2, 2006".
const DisplayLayout = "January 2, 2006"

// ReadingTime estimates how long content takes to read, as "N min read".
// HTML markup is stripped before counting words; the minimum is one minute.
func ReadingTime(content string) string {
	words := len(strings.Fields(plainText(content)))
	minutes := (words + WordsPerMinute - 1) / WordsPerMinute
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("%d min read", minutes)
}

func plainText(content string) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	if !strings.Contains(content, "<") {
		return content
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return content
	}
	// Separate block text so adjacent elements don't merge into one word.
	var b strings.Builder
	doc.Find("body").Contents().Each(func(_ int, s *goquery.Selection) {
		b.WriteString(s.Text())
		b.WriteByte(' ')
	})
	return b.String()
}

// DisplayDate formats t in DisplayLayout, falling back to now when t is nil.
func DisplayDate(t *time.Time, now time.Time) string {
	if t == nil || t.IsZero() {
		return now.Format(DisplayLayout)
	}
	return t.Format(DisplayLayout)
}

// HeadlineTail drops the first word of a title, keeping the leading space of
// the remainder. Titles of one word become "".
func HeadlineTail(title string) string {
	first, _, found := strings.Cut(title, " ")
	if !found {
		return ""
	}
	return title[len(first):]
}
