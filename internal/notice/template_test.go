package notice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToLiquid(t *testing.T) {
	out, vars := ToLiquid("Hi <FIRST NAME>, see <DATE (+15 days)>. Bye <FIRST NAME>.")
	assert.Equal(t, "Hi {{ p0 }}, see {{ p1 }}. Bye {{ p0 }}.", out)
	assert.Equal(t, map[string]string{"<FIRST NAME>": "p0", "<DATE (+15 days)>": "p1"}, vars)
}

func TestRenderBody(t *testing.T) {
	ts := NewTemplateService()
	data := map[string]string{
		"<FIRST NAME>":      "Jane",
		"<HOUSE>":           "CZH",
		"<SEMESTER, YEAR>":  "Fall 2026",
		"<DATE (+15 days)>": "09/01/2025",
	}

	body := "Hi <FIRST NAME>,\n\nYou are down hours at <HOUSE> for <SEMESTER, YEAR>. Respond by <DATE (+15 days)>."
	out, err := ts.RenderBody("subject", body, data)
	require.NoError(t, err)
	assert.Equal(t, "Hi Jane,\n\nYou are down hours at CZH for Fall 2026. Respond by 09/01/2025.", out)

	// Same body again is served from the cache.
	out2, err := ts.RenderBody("subject", body, data)
	require.NoError(t, err)
	assert.Equal(t, out, out2)
}

func TestRenderBody_MissingValue(t *testing.T) {
	ts := NewTemplateService()
	_, err := ts.RenderBody("subject", "Hi <FIRST NAME> <NICKNAME>", map[string]string{"<FIRST NAME>": "Jane"})
	require.ErrorIs(t, err, ErrUnrenderedPlaceholder)
	assert.Contains(t, err.Error(), "<NICKNAME>")
}

func TestRenderBody_LeftoverMarkup(t *testing.T) {
	ts := NewTemplateService()
	_, err := ts.RenderBody("subject", "Hi <FIRST NAME>, 3 > 2", map[string]string{"<FIRST NAME>": "Jane"})
	assert.ErrorIs(t, err, ErrUnrenderedPlaceholder)

	_, err = ts.RenderBody("subject", "Hi <FIRST NAME>", map[string]string{"<FIRST NAME>": "<b>Jane</b>"})
	assert.ErrorIs(t, err, ErrUnrenderedPlaceholder)
}

func TestRender(t *testing.T) {
	ts := NewTemplateService()
	out, err := ts.Render("k", "Hello {{ name }}", map[string]interface{}{"name": "Sam"})
	require.NoError(t, err)
	assert.Equal(t, "Hello Sam", out)

	_, err = ts.Render("", "Hello {{ name ", nil)
	assert.Error(t, err)
}
