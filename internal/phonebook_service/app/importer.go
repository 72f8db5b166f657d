package app

import (
	"bufio"
	"bytes"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/kirimwa/dispatch-service/internal/core_domain"
	"github.com/kirimwa/dispatch-service/internal/phonebook_service/domain"
)

// Format identifies a supported contact file format.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatTXT     Format = "txt"
	FormatVCard   Format = "vcard"
	FormatUnknown Format = ""
)

// DetectFormat resolves the file format from the upload's filename extension,
// falling back to the declared content type.
func DetectFormat(filename, contentType string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FormatCSV
	case ".txt":
		return FormatTXT
	case ".vcf", ".vcard":
		return FormatVCard
	}
	switch {
	case strings.Contains(contentType, "csv"):
		return FormatCSV
	case strings.Contains(contentType, "vcard"):
		return FormatVCard
	case strings.HasPrefix(contentType, "text/plain"):
		return FormatTXT
	}
	return FormatUnknown
}

// Importer parses uploaded contact files into pending contacts with fresh ids.
type Importer struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewImporter(logger *slog.Logger) *Importer {
	return &Importer{
		logger: logger.With("component", "contact_importer"),
		now:    time.Now,
	}
}

// Import parses content in the given format. Every parsed contact gets a
// unique id minted from a millisecond-epoch base plus its position, status
// pending, and a digits-only phone. Unparseable rows are dropped silently;
// a file with zero usable rows is an error.
func (im *Importer) Import(content []byte, format Format) ([]core_domain.Contact, error) {
	var entries []parsedEntry
	switch format {
	case FormatCSV, FormatTXT:
		entries = parseDelimited(content)
	case FormatVCard:
		entries = parseVCard(content)
	default:
		return nil, domain.ErrUnsupportedFormat
	}

	now := im.now().UTC()
	base := now.UnixMilli()
	contacts := make([]core_domain.Contact, 0, len(entries))
	for i, e := range entries {
		contact := core_domain.NewContact(base+int64(i), e.name, e.phone, now)
		if contact.Name == "" || contact.Phone == "" {
			continue
		}
		contacts = append(contacts, contact)
	}
	if len(contacts) == 0 {
		return nil, domain.ErrNoValidContacts
	}
	im.logger.Info("Parsed contact file", "format", format, "rows", len(entries), "imported", len(contacts))
	return contacts, nil
}

type parsedEntry struct {
	name  string
	phone string
}

// parseDelimited handles CSV and plain text files: one contact per line,
// "name,phone". Surrounding quotes are stripped per field; lines with fewer
// than two non-empty fields are dropped, which also discards header rows
// since their phone column holds no digits.
func parseDelimited(content []byte) []parsedEntry {
	var entries []parsedEntry
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) < 2 {
			continue
		}
		name := stripQuotes(strings.TrimSpace(parts[0]))
		phone := core_domain.NormalizePhone(stripQuotes(strings.TrimSpace(parts[1])))
		if name == "" || phone == "" {
			continue
		}
		entries = append(entries, parsedEntry{name: name, phone: phone})
	}
	return entries
}

func stripQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// parseVCard handles vCard 2.1/3.0/4.0 exports. Per card: name from FN,
// falling back to N (given + family); phone from the first TEL property.
// Cards missing either are dropped.
func parseVCard(content []byte) []parsedEntry {
	var entries []parsedEntry
	var fn, n, tel string
	inCard := false

	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		upper := strings.ToUpper(line)
		switch {
		case upper == "BEGIN:VCARD":
			inCard = true
			fn, n, tel = "", "", ""
		case upper == "END:VCARD":
			if inCard {
				name := fn
				if name == "" {
					name = n
				}
				phone := core_domain.NormalizePhone(tel)
				if name != "" && phone != "" {
					entries = append(entries, parsedEntry{name: name, phone: phone})
				}
			}
			inCard = false
		case !inCard:
			// Skip stray lines outside a card.
		case strings.HasPrefix(upper, "FN:") || strings.HasPrefix(upper, "FN;"):
			fn = propertyValue(line)
		case strings.HasPrefix(upper, "N:") || strings.HasPrefix(upper, "N;"):
			n = structuredName(propertyValue(line))
		case strings.HasPrefix(upper, "TEL:") || strings.HasPrefix(upper, "TEL;"):
			if tel == "" {
				tel = propertyValue(line)
			}
		}
	}
	return entries
}

// propertyValue returns everything after the first colon, so parameterized
// properties like "TEL;TYPE=CELL:+62..." resolve to their value.
func propertyValue(line string) string {
	if idx := strings.Index(line, ":"); idx >= 0 {
		return strings.TrimSpace(line[idx+1:])
	}
	return ""
}

// structuredName converts an N value "Family;Given;Additional;..." into
// "Given Family".
func structuredName(value string) string {
	parts := strings.Split(value, ";")
	family := strings.TrimSpace(parts[0])
	given := ""
	if len(parts) > 1 {
		given = strings.TrimSpace(parts[1])
	}
	return strings.TrimSpace(given + " " + family)
}
