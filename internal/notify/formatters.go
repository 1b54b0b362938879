package notify

import (
	"fmt"
	"strings"
	"time"

	"nsiwatch/internal/store"
)

// Formatter renders one update notification for a freshly persisted
// passport. link is the authority deep link for that exact version.
type Formatter interface {
	Format(p *store.Passport, link string) string
}

// ForStyle returns the formatter for a dictionary's configured style.
// Unknown styles fall back to the default formatter.
func ForStyle(s Style) Formatter {
	switch s {
	case StyleImportant:
		return ImportantFormatter{}
	case StyleMinor:
		return MinorFormatter{}
	default:
		return DefaultFormatter{}
	}
}

// Silent reports whether a notification computed at local time t must
// be delivered without sound. The window [22:00, 08:00) applies to
// every formatter variant.
func Silent(t time.Time) bool {
	h := t.Hour()
	return h >= 22 || h < 8
}

var monthTags = [...]string{
	"jan", "feb", "mar", "apr", "may", "jun",
	"jul", "aug", "sep", "oct", "nov", "dec",
}

// Hashtags builds the tag line: a sanitized short-name token and a
// month-year token derived from the passport's publish time.
func Hashtags(p *store.Passport) string {
	var tags []string

	name := strings.NewReplacer(" ", "_", "/", "_").Replace(p.ShortName)
	if runes := []rune(name); len(runes) > 20 {
		name = string(runes[:20])
	}
	if name != "" {
		tags = append(tags, "#"+name)
	}

	if !p.LastUpdate.IsZero() {
		tags = append(tags, fmt.Sprintf("#%s%d",
			monthTags[p.LastUpdate.Month()-1], p.LastUpdate.Year()))
	}

	return strings.Join(tags, " ")
}

func formatPublishTime(p *store.Passport) string {
	return p.LastUpdate.Format("15:04 02.01.2006")
}

// ImportantFormatter: full detail with warning framing and hashtags.
type ImportantFormatter struct{}

func (ImportantFormatter) Format(p *store.Passport, link string) string {
	return fullDetail("⚠️ Important update", p, link)
}

// DefaultFormatter: full detail with ordinary framing and hashtags.
type DefaultFormatter struct{}

func (DefaultFormatter) Format(p *store.Passport, link string) string {
	return fullDetail("🔄 Dictionary update", p, link)
}

// MinorFormatter: one-line compact notice for frequently updated
// dictionaries. No hashtags.
type MinorFormatter struct{}

func (MinorFormatter) Format(p *store.Passport, link string) string {
	return fmt.Sprintf("📝 %s v%s\n   %s ↗ %s", p.ShortName, p.Version, p.OID, link)
}

func fullDetail(title string, p *store.Passport, link string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", title)
	fmt.Fprintf(&b, "📋 %s\n", p.ShortName)
	fmt.Fprintf(&b, "ID: %s\n", p.OID)
	fmt.Fprintf(&b, "Version: %s\n", p.Version)
	fmt.Fprintf(&b, "Time: %s\n", formatPublishTime(p))
	fmt.Fprintf(&b, "\n💡 Changes:\n%s\n", FormatReleaseNotes(p.ReleaseNotes))
	fmt.Fprintf(&b, "\n🔗 %s", link)

	if tags := Hashtags(p); tags != "" {
		b.WriteString("\n\n")
		b.WriteString(tags)
	}
	return b.String()
}
