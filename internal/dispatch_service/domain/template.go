package domain

import (
	"regexp"
	"strings"

	"github.com/kirimwa/dispatch-service/internal/core_domain"
)

// Placeholder tokens accepted in message templates.
const (
	TokenName        = "{name}"
	TokenNameURLSafe = "{name_urlsafe}"
	// TokenTo is a deprecated alias for TokenNameURLSafe, kept so templates
	// written against the old token keep rendering identically.
	TokenTo = "{to}"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// RenderTemplate substitutes placeholder tokens in a message template with
// per-contact values:
//
//	{name}         -> contact name verbatim
//	{name_urlsafe} -> contact name with whitespace runs collapsed to '+'
//	{to}           -> same as {name_urlsafe} (deprecated alias)
//
// Unknown tokens are left untouched. Pure function, safe for concurrent use.
func RenderTemplate(template string, contact core_domain.Contact) string {
	urlSafeName := whitespaceRun.ReplaceAllString(contact.Name, "+")
	return strings.NewReplacer(
		TokenName, contact.Name,
		TokenNameURLSafe, urlSafeName,
		TokenTo, urlSafeName,
	).Replace(template)
}
