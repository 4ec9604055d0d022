package export

import (
	"fmt"
	"html"
	"strings"

	"scriptum/api/internal/store"
)

// transcriptHTML renders a version as a printable page: one paragraph
// per segment with its time range in the margin.
func transcriptHTML(v *store.Version) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><head><meta charset="utf-8"><style>
body { font-family: Georgia, serif; font-size: 12pt; line-height: 1.6; }
h1 { font-size: 14pt; border-bottom: 1px solid #999; padding-bottom: 4pt; }
.meta { color: #666; font-size: 9pt; margin-bottom: 12pt; }
.seg { margin-bottom: 8pt; }
.time { color: #999; font-size: 8pt; font-family: monospace; }
</style></head><body>`)
	fmt.Fprintf(&b, "<h1>%s</h1>", html.EscapeString(v.Doc))
	fmt.Fprintf(&b, `<div class="meta">version %d &middot; sha256 %s</div>`, v.Version, html.EscapeString(v.BaseSHA256))
	for _, seg := range segments(v.Words) {
		b.WriteString(`<div class="seg">`)
		if seg.start != nil && seg.end != nil {
			fmt.Fprintf(&b, `<span class="time">[%.2f&ndash;%.2f]</span> `, *seg.start, *seg.end)
		}
		b.WriteString(html.EscapeString(seg.text))
		b.WriteString(`</div>`)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}
