package report

import (
	"fmt"

	"huddle/api/internal/live"
)

// Export renders the collaboration and packages the requested format as a
// downloadable artifact. PDF failures surface to the caller.
func Export(collab live.Collaboration, notes []live.Note, format Format) (*Artifact, error) {
	generated := Generate(collab, notes)
	base := SanitizeFilename(collab.Title)
	switch format {
	case FormatHTML:
		return &Artifact{
			Data:     []byte(generated.HTML),
			Filename: base + ".html",
			MimeType: "text/html; charset=utf-8",
		}, nil
	case FormatMarkdown:
		return &Artifact{
			Data:     []byte(generated.Markdown),
			Filename: base + ".md",
			MimeType: "text/markdown; charset=utf-8",
		}, nil
	case FormatPDF:
		return RenderPDF(generated.HTML, collab.Title)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}
