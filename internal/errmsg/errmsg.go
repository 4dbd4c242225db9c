/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package errmsg turns the error ids passed back to the login pages into
// readable text.
package errmsg

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

const (
	NoToken          = "NoToken"
	InvalidSessionID = "InvalidSessionID"

	unknownKey = "unknown-error"
)

var cat = func() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))

	_ = b.SetString(language.English, NoToken, "Did you forget to connect? ;)")
	_ = b.SetString(language.English, InvalidSessionID, "This session does not exist.")
	_ = b.SetString(language.English, unknownKey, "Unknown error: %s")

	_ = b.SetString(language.German, NoToken, "Hast du vergessen dich zu verbinden? ;)")
	_ = b.SetString(language.German, InvalidSessionID, "Diese Session existiert nicht.")
	_ = b.SetString(language.German, unknownKey, "Unbekannter Fehler: %s")

	return b
}()

var supported = []language.Tag{language.English, language.German}

var known = map[string]bool{
	NoToken:          true,
	InvalidSessionID: true,
}

var matcher = language.NewMatcher(supported)

// Message formats id as "<id>: <text>" in the closest supported language.
func Message(tag language.Tag, id string) string {
	_, idx, _ := matcher.Match(tag)
	p := message.NewPrinter(supported[idx], message.Catalog(cat))

	if !known[id] {
		return p.Sprintf(unknownKey, id)
	}
	return id + ": " + p.Sprintf(id)
}
