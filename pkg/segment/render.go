package segment

import "strings"

// DefaultHeaderTemplate is the banner written at the top of every output file.
// {banner} expands to "<prefix> - <title>" (or just the title without a
// prefix) and {use} to "USE <database>;\n\n" (or nothing without a database).
const DefaultHeaderTemplate = `-- ==============================================
-- {banner}
-- ==============================================

{use}`

// Header fills the banner template for one output file.
type Header struct {
	Prefix   string // e.g. the database description
	Database string // target of the USE statement; empty omits it
	Template string // DefaultHeaderTemplate when empty
}

// Format returns the header text for a section title. Placeholders are
// {banner}, {title}, {prefix}, {database} and {use}.
func (h Header) Format(title string) string {
	tmpl := h.Template
	if tmpl == "" {
		tmpl = DefaultHeaderTemplate
	}
	banner := title
	if h.Prefix != "" {
		banner = h.Prefix + " - " + title
	}
	use := ""
	if h.Database != "" {
		use = "USE " + h.Database + ";\n\n"
	}
	return strings.NewReplacer(
		"{banner}", banner,
		"{title}", title,
		"{prefix}", h.Prefix,
		"{database}", h.Database,
		"{use}", use,
	).Replace(tmpl)
}

// Render concatenates the header for title with body. The body is copied
// verbatim.
func Render(h Header, title, body string) string {
	return h.Format(title) + body
}
