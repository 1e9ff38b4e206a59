package services

import (
	"github.com/maxaizer/dou-jobs-bot/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"slices"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func Test_Normalize_RendersSectionsInFixedOrder(t *testing.T) {

	published := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	entry := models.FeedEntry{
		Title: "Senior Go *Engineer*",
		Body: `<div class="duty"><div class="text">Build  <span>services</span></div></div>` +
			`<div class="requirements"><div class="text">3+ years of Go<br><br>PostgreSQL	 and_more</div></div>`,
		Link:        "https://jobs.dou.ua/1",
		PublishedAt: &published,
	}

	vacancies := slices.Collect(NewFeedNormalizer(DefaultMessageLimit).Normalize([]models.FeedEntry{entry}))
	require.Len(t, vacancies, 1)

	assert.Equal(t, "*Senior Go Engineer*\n\n"+
		"*Необхідні навички*\n3+ years of Go\nPostgreSQL and\\_more\n\n"+
		"*Обов'язки*\nBuild services\n\n"+
		"*Посилання*\n[Senior Go Engineer](https://jobs.dou.ua/1)", vacancies[0].Text)
	assert.Equal(t, "Senior Go *Engineer*", vacancies[0].Title)
	assert.Equal(t, "https://jobs.dou.ua/1", vacancies[0].URL)
	assert.Equal(t, published, vacancies[0].PublishedAt)
}

func Test_Normalize_SkipsMalformedEntries(t *testing.T) {

	now := time.Now()
	entries := []models.FeedEntry{
		{Title: "no date", Link: "https://jobs.dou.ua/1"},
		{Title: "no link", PublishedAt: &now},
		{Title: "ok", Link: "https://jobs.dou.ua/3", PublishedAt: &now},
	}

	vacancies := slices.Collect(NewFeedNormalizer(DefaultMessageLimit).Normalize(entries))
	require.Len(t, vacancies, 1)
	assert.Equal(t, "https://jobs.dou.ua/3", vacancies[0].URL)
	assert.Equal(t, "*ok*\n\n*Посилання*\n[ok](https://jobs.dou.ua/3)", vacancies[0].Text)
}

func Test_Normalize_IsLazy(t *testing.T) {

	now := time.Now()
	entries := []models.FeedEntry{
		{Title: "first", Link: "https://jobs.dou.ua/1", PublishedAt: &now},
		{Title: "second", Link: "https://jobs.dou.ua/2", PublishedAt: &now},
	}

	var seen []string
	for vacancy := range NewFeedNormalizer(DefaultMessageLimit).Normalize(entries) {
		seen = append(seen, vacancy.URL)
		break
	}
	assert.Equal(t, []string{"https://jobs.dou.ua/1"}, seen)
}

func Test_Normalize_TruncatesAndKeepsLink(t *testing.T) {

	now := time.Now()
	entry := models.FeedEntry{
		Title:       "Go",
		Body:        `<div class="project"><div class="text">` + strings.Repeat("проект ", 2000) + `</div></div>`,
		Link:        "https://jobs.dou.ua/companies/acme/vacancies/1/",
		PublishedAt: &now,
	}
	link := "*Посилання*\n[Go](https://jobs.dou.ua/companies/acme/vacancies/1/)"

	for _, limit := range []int{256, 1000, DefaultMessageLimit} {
		vacancies := slices.Collect(NewFeedNormalizer(limit).Normalize([]models.FeedEntry{entry}))
		require.Len(t, vacancies, 1)

		text := vacancies[0].Text
		assert.LessOrEqual(t, utf8.RuneCountInString(text), limit)
		assert.True(t, strings.HasSuffix(text, "...\n\n"+link), "limit %d", limit)
	}
}

func Test_Normalize_TruncationDropsDanglingEscape(t *testing.T) {

	now := time.Now()
	// heading and label take 25 runes, the link segment 18, the marker 5: the cut keeps
	// 77 runes of a 100 rune limit, the last of which is the escape of "_"
	entry := models.FeedEntry{
		Title:       "T",
		Body:        `<div class="requirements"><div class="text">` + strings.Repeat("a", 51) + "_" + strings.Repeat("b", 100) + `</div></div>`,
		Link:        "u",
		PublishedAt: &now,
	}

	vacancies := slices.Collect(NewFeedNormalizer(100).Normalize([]models.FeedEntry{entry}))
	require.Len(t, vacancies, 1)

	assert.Equal(t, "*T*\n\n*Необхідні навички*\n"+strings.Repeat("a", 51)+"...\n\n*Посилання*\n[T](u)", vacancies[0].Text)
}

func unescapedStars(s string) int {
	count := 0
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\\' && i+1 < len(s) && strings.IndexByte("_*[`", s[i+1]) >= 0:
			i++
		case s[i] == '*':
			count++
		}
	}
	return count
}

func Test_Normalize_TruncationNeverLeavesLabelOpen(t *testing.T) {

	now := time.Now()
	// heading, the requirements label and its text take 65 runes, the link segment 45 and the
	// marker 5: the cut keeps 70 runes and ends inside the next label
	entry := models.FeedEntry{
		Title: "T",
		Body: `<div class="requirements"><div class="text">` + strings.Repeat("a", 38) + `</div></div>` +
			`<div class="additionalskils"><div class="text">` + strings.Repeat("b", 200) + `</div></div>`,
		Link:        "https://jobs.dou.ua/v/123456",
		PublishedAt: &now,
	}

	vacancies := slices.Collect(NewFeedNormalizer(120).Normalize([]models.FeedEntry{entry}))
	require.Len(t, vacancies, 1)

	text := vacancies[0].Text
	assert.Equal(t, "*T*\n\n*Необхідні навички*\n"+strings.Repeat("a", 38)+
		"...\n\n*Посилання*\n[T](https://jobs.dou.ua/v/123456)", text)
	assert.Zero(t, unescapedStars(text)%2)
}

func Test_Normalize_TruncatedTextIsAlwaysBalanced(t *testing.T) {

	now := time.Now()
	entry := models.FeedEntry{
		Title: "Go *developer*",
		Body: `<div class="requirements"><div class="text">Go_lang * PostgreSQL [SQL]</div></div>` +
			`<div class="additionalskils"><div class="text">` + strings.Repeat("k8s_ ", 20) + `</div></div>` +
			`<div class="bonuses"><div class="text">` + strings.Repeat("*remote* ", 20) + `</div></div>` +
			`<div class="duty"><div class="text">` + strings.Repeat("code ", 20) + `</div></div>`,
		Link:        "https://jobs.dou.ua/companies/acme/vacancies/7/",
		PublishedAt: &now,
	}

	for limit := 80; limit <= 600; limit++ {
		vacancies := slices.Collect(NewFeedNormalizer(limit).Normalize([]models.FeedEntry{entry}))
		require.Len(t, vacancies, 1, "limit %d", limit)

		text := vacancies[0].Text
		assert.LessOrEqual(t, utf8.RuneCountInString(text), limit, "limit %d", limit)
		assert.Zero(t, unescapedStars(text)%2, "limit %d: %q", limit, text)
		assert.True(t, strings.HasSuffix(text, "(https://jobs.dou.ua/companies/acme/vacancies/7/)"), "limit %d", limit)
	}
}

func Test_Normalize_ShortensLinkTitleToFitLimit(t *testing.T) {

	now := time.Now()
	entry := models.FeedEntry{
		Title:       strings.Repeat("Т", 200),
		Body:        `<div class="duty"><div class="text">Build services</div></div>`,
		Link:        "https://jobs.dou.ua/companies/acme/vacancies/1/",
		PublishedAt: &now,
	}

	vacancies := slices.Collect(NewFeedNormalizer(120).Normalize([]models.FeedEntry{entry}))
	require.Len(t, vacancies, 1)

	text := vacancies[0].Text
	assert.Equal(t, 120, utf8.RuneCountInString(text))
	assert.True(t, strings.HasPrefix(text, "...\n\n*Посилання*\n["), text)
	assert.True(t, strings.HasSuffix(text, "…](https://jobs.dou.ua/companies/acme/vacancies/1/)"), text)
	assert.Zero(t, unescapedStars(text)%2)
}

func Test_Normalize_SkipsEntryWhoseLinkCannotFit(t *testing.T) {

	now := time.Now()
	entry := models.FeedEntry{
		Title:       "Go",
		Link:        "https://jobs.dou.ua/companies/acme/vacancies/1/",
		PublishedAt: &now,
	}

	assert.Empty(t, slices.Collect(NewFeedNormalizer(40).Normalize([]models.FeedEntry{entry})))
}
