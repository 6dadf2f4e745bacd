package gdocs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/docs/v1"
)

func para(text string, mono bool) *docs.StructuralElement {
	run := &docs.TextRun{Content: text}
	if mono {
		run.TextStyle = &docs.TextStyle{WeightedFontFamily: &docs.WeightedFontFamily{FontFamily: TemplateFont}}
	} else {
		run.TextStyle = &docs.TextStyle{WeightedFontFamily: &docs.WeightedFontFamily{FontFamily: "Arial"}}
	}
	return &docs.StructuralElement{Paragraph: &docs.Paragraph{Elements: []*docs.ParagraphElement{{TextRun: run}}}}
}

func TestExtractEmailTemplates(t *testing.T) {
	doc := &docs.Document{Body: &docs.Body{Content: []*docs.StructuralElement{
		para("How to send notices\n", false),
		para("Subject: Down 10+ hours - Courtesy Notice\n", true),
		para("Hi <FIRST NAME>,\n", true),
		para("You are at 10+ down hours.\n", true),
		para("Next section\n", false),
		{SectionBreak: &docs.SectionBreak{}},
		para("Subject: 15-Day Notice of Potential Membership Termination\n", true),
		para("Dear <FULL NAME>,\n", true),
	}}}

	templates, err := ExtractEmailTemplates(doc)
	require.NoError(t, err)
	require.Len(t, templates, 2)
	assert.Equal(t, "Hi <FIRST NAME>,\nYou are at 10+ down hours.", templates["Down 10+ hours - Courtesy Notice"])
	// A template running to the end of the document is kept.
	assert.Equal(t, "Dear <FULL NAME>,", templates["15-Day Notice of Potential Membership Termination"])
}

func TestExtractEmailTemplatesMissingSubject(t *testing.T) {
	doc := &docs.Document{Body: &docs.Body{Content: []*docs.StructuralElement{
		para("Hi <FIRST NAME>,\n", true),
	}}}
	_, err := ExtractEmailTemplates(doc)
	assert.ErrorContains(t, err, "Subject: ")
}

func TestExtractEmailTemplatesEmpty(t *testing.T) {
	templates, err := ExtractEmailTemplates(&docs.Document{})
	require.NoError(t, err)
	assert.Empty(t, templates)
}

func TestReplaceRequests(t *testing.T) {
	reqs := ReplaceRequests(map[string]string{"<LAST NAME>": "Doe", "<FIRST NAME>": "Jane", "<PRIOR TERMINATION REASON>": ""})
	require.Len(t, reqs, 3)
	assert.Equal(t, "<FIRST NAME>", reqs[0].ReplaceAllText.ContainsText.Text)
	assert.True(t, reqs[0].ReplaceAllText.ContainsText.MatchCase)
	assert.Equal(t, "Jane", reqs[0].ReplaceAllText.ReplaceText)
	assert.Equal(t, "<PRIOR TERMINATION REASON>", reqs[2].ReplaceAllText.ContainsText.Text)

	raw, err := reqs[2].MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"replaceText":""`)
}
