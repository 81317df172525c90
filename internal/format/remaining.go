// Package format renders countdown snapshots as localised labels.
package format

import (
	"fmt"

	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/hanko-field/promoclock/internal/countdown"
)

const (
	keyStartsIn = "Starts in %s"
	keyEndsIn   = "Ends in %s"
	keyEnded    = "Ended"
	keyDays     = "%d days"
)

var (
	supported = []language.Tag{language.English, language.Japanese}
	matcher   = language.NewMatcher(supported)
	messages  = newCatalog()
)

func newCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	mustSet(b.Set(language.English, keyDays, plural.Selectf(1, "%d", plural.One, "%d day", plural.Other, "%d days")))
	mustSet(b.SetString(language.English, keyStartsIn, keyStartsIn))
	mustSet(b.SetString(language.English, keyEndsIn, keyEndsIn))
	mustSet(b.SetString(language.English, keyEnded, keyEnded))

	mustSet(b.SetString(language.Japanese, keyDays, "%d日"))
	mustSet(b.SetString(language.Japanese, keyStartsIn, "開始まで %s"))
	mustSet(b.SetString(language.Japanese, keyEndsIn, "終了まで %s"))
	mustSet(b.SetString(language.Japanese, keyEnded, "終了"))
	return b
}

func mustSet(err error) {
	if err != nil {
		panic(fmt.Sprintf("format: build catalog: %v", err))
	}
}

// Negotiate picks the supported language best matching an Accept-Language
// style string. Unknown or empty input yields English.
func Negotiate(lang string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(lang)
	if err != nil || len(tags) == 0 {
		return language.English
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return language.English
	}
	return supported[idx]
}

// Remaining renders tr as "Starts in 1 day 02:03:04", "Ends in 00:09:59" or
// "Ended", in the language negotiated from lang.
func Remaining(tr countdown.TimeRemaining, lang string) string {
	p := message.NewPrinter(Negotiate(lang), message.Catalog(messages))
	if tr.State == countdown.Expired {
		return p.Sprintf(keyEnded)
	}
	clock := fmt.Sprintf("%02d:%02d:%02d", tr.Hours, tr.Minutes, tr.Seconds)
	if tr.Days > 0 {
		clock = p.Sprintf(keyDays, tr.Days) + " " + clock
	}
	if tr.State == countdown.NotStarted {
		return p.Sprintf(keyStartsIn, clock)
	}
	return p.Sprintf(keyEndsIn, clock)
}
