package services

import (
	"fmt"
	"github.com/PuerkitoBio/goquery"
	"github.com/maxaizer/dou-jobs-bot/internal/domain/models"
	"github.com/maxaizer/dou-jobs-bot/internal/logger"
	"github.com/maxaizer/dou-jobs-bot/internal/metrics"
	log "github.com/sirupsen/logrus"
	"iter"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	DefaultMessageLimit = 4096
	truncationMarker    = "...\n\n"
	titleEllipsis       = "…"
	escapable           = "_*[`"
)

type section struct {
	class string
	label string
}

var sections = []section{
	{class: "requirements", label: "Необхідні навички"},
	{class: "additionalskils", label: "Буде плюсом"},
	{class: "bonuses", label: "Пропонуємо"},
	{class: "duty", label: "Обов'язки"},
	{class: "project", label: "Про проект"},
}

var (
	horizontalSpaces = regexp.MustCompile(`[ \t]+`)
	newlines         = regexp.MustCompile(`\n+`)
	markdownEscaper  = strings.NewReplacer("_", `\_`, "*", `\*`, "[", `\[`, "`", "\\`")
	markdownStripper = strings.NewReplacer("*", "", "_", "", "[", "", "]", "", "`", "")
)

// FeedNormalizer turns raw feed entries into vacancies with Telegram Markdown text.
type FeedNormalizer struct {
	messageLimit int
}

func NewFeedNormalizer(messageLimit int) *FeedNormalizer {
	if messageLimit <= 0 {
		messageLimit = DefaultMessageLimit
	}
	return &FeedNormalizer{messageLimit: messageLimit}
}

// Normalize lazily yields a vacancy per well-formed entry in feed order. Malformed entries
// are logged and skipped.
func (n *FeedNormalizer) Normalize(entries []models.FeedEntry) iter.Seq[models.Vacancy] {
	return func(yield func(models.Vacancy) bool) {
		for _, entry := range entries {
			vacancy, err := n.normalizeEntry(entry)
			if err != nil {
				metrics.SkippedFeedEntriesCounter.Inc()
				log.WithField(logger.ErrorTypeField, logger.ErrorTypeFeedParse).
					Warnf("skipping feed entry %q: %v", entry.Link, err)
				continue
			}
			if !yield(vacancy) {
				return
			}
		}
	}
}

func (n *FeedNormalizer) normalizeEntry(entry models.FeedEntry) (vacancy models.Vacancy, err error) {

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while parsing entry: %v", r)
		}
	}()

	if entry.PublishedAt == nil {
		return vacancy, fmt.Errorf("missing published date")
	}
	if strings.TrimSpace(entry.Link) == "" {
		return vacancy, fmt.Errorf("missing link")
	}

	body, err := renderSections(entry.Body)
	if err != nil {
		return vacancy, err
	}

	title := markdownStripper.Replace(entry.Title)
	link, err := n.linkSegment(title, entry.Link)
	if err != nil {
		return vacancy, err
	}

	return models.Vacancy{
		URL:         entry.Link,
		Title:       entry.Title,
		Text:        n.fit(fmt.Sprintf("*%s*\n\n", title)+body, link),
		PublishedAt: *entry.PublishedAt,
	}, nil
}

// linkSegment renders the trailing link. The URL is never cut, the title inside the link
// is shortened when the segment and the truncation marker would not fit into the limit.
func (n *FeedNormalizer) linkSegment(title, url string) (string, error) {
	link := fmt.Sprintf("*Посилання*\n[%s](%s)", title, url)
	over := utf8.RuneCountInString(link) + utf8.RuneCountInString(truncationMarker) - n.messageLimit
	if over <= 0 {
		return link, nil
	}

	runes := []rune(title)
	keep := len(runes) - over - utf8.RuneCountInString(titleEllipsis)
	if keep < 0 {
		return "", fmt.Errorf("link does not fit into %d characters", n.messageLimit)
	}
	short := strings.TrimSpace(string(runes[:keep])) + titleEllipsis
	return fmt.Sprintf("*Посилання*\n[%s](%s)", short, url), nil
}

// fit keeps the link intact and cuts the text so the whole message stays within the limit.
// A cut never leaves a bold label open or an escape without its character.
func (n *FeedNormalizer) fit(text, link string) string {
	if utf8.RuneCountInString(text)+utf8.RuneCountInString(link) <= n.messageLimit {
		return text + link
	}

	keep := n.messageLimit - utf8.RuneCountInString(truncationMarker) - utf8.RuneCountInString(link)
	runes := []rune(text)
	keep = min(max(keep, 0), len(runes))

	cut := strings.TrimSuffix(string(runes[:keep]), `\`)
	if open := lastOpenBold(cut); open >= 0 {
		cut = cut[:open]
	}
	cut = strings.TrimRight(cut, " \n")

	return cut + truncationMarker + link
}

// lastOpenBold returns the byte offset of an unmatched opening "*", or -1 when every bold
// span is closed. Escaped characters do not count.
func lastOpenBold(s string) int {
	open := -1
	escaped := false
	for i, r := range s {
		switch {
		case escaped:
			escaped = false
		case r == '\\' && i+1 < len(s) && strings.ContainsRune(escapable, rune(s[i+1])):
			escaped = true
		case r == '*' && open >= 0:
			open = -1
		case r == '*':
			open = i
		}
	}
	return open
}

func renderSections(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse body: %w", err)
	}

	var sb strings.Builder
	for _, s := range sections {
		text := sectionText(doc, s.class)
		if text == "" {
			continue
		}
		sb.WriteString(fmt.Sprintf("*%s*\n%s\n\n", s.label, text))
	}
	return sb.String(), nil
}

func sectionText(doc *goquery.Document, class string) string {
	block := doc.Find("div." + class).First().Find("div.text").First()
	if block.Length() == 0 {
		return ""
	}

	block.Find("br").ReplaceWithHtml("\n")

	text := strings.ReplaceAll(block.Text(), "\r", "")
	text = horizontalSpaces.ReplaceAllString(text, " ")
	text = newlines.ReplaceAllString(text, "\n")
	text = markdownEscaper.Replace(text)
	return strings.TrimSpace(text)
}
