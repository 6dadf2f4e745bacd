package gdocs

import (
	"fmt"
	"strings"

	"google.golang.org/api/docs/v1"
)

// TemplateFont marks template paragraphs in the instruction document.
const TemplateFont = "Roboto Mono"

const subjectPrefix = "Subject: "

// ExtractEmailTemplates walks the instruction document. A template starts
// with a TemplateFont paragraph "Subject: <line>", continues through the
// following TemplateFont paragraphs and ends at the first paragraph in any
// other font (or at the end of the document).
func ExtractEmailTemplates(doc *docs.Document) (map[string]string, error) {
	templates := make(map[string]string)
	if doc == nil || doc.Body == nil {
		return templates, nil
	}

	var (
		subject    string
		body       []string
		inTemplate bool
	)
	closeTemplate := func() {
		templates[subject] = strings.TrimSpace(strings.Join(body, ""))
		inTemplate = false
	}

	for _, el := range doc.Body.Content {
		if el == nil || el.Paragraph == nil {
			continue
		}
		text := paragraphText(el.Paragraph)

		switch {
		case isTemplateFont(el.Paragraph) && !inTemplate:
			_, rest, ok := strings.Cut(text, subjectPrefix)
			if !ok {
				return nil, fmt.Errorf("template paragraph %q does not start with %q", strings.TrimSpace(text), subjectPrefix)
			}
			subject = strings.TrimSpace(rest)
			body = nil
			inTemplate = true
		case isTemplateFont(el.Paragraph):
			body = append(body, text)
		case inTemplate:
			closeTemplate()
		}
	}
	if inTemplate {
		closeTemplate()
	}
	return templates, nil
}

func paragraphText(p *docs.Paragraph) string {
	var sb strings.Builder
	for _, el := range p.Elements {
		if el != nil && el.TextRun != nil {
			sb.WriteString(el.TextRun.Content)
		}
	}
	return sb.String()
}

func isTemplateFont(p *docs.Paragraph) bool {
	for _, el := range p.Elements {
		if el == nil || el.TextRun == nil || el.TextRun.TextStyle == nil {
			continue
		}
		if wf := el.TextRun.TextStyle.WeightedFontFamily; wf != nil && wf.FontFamily == TemplateFont {
			return true
		}
	}
	return false
}
