package notice

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/osteele/liquid"
)

// ErrUnrenderedPlaceholder is returned when a rendered body still carries
// template markup.
var ErrUnrenderedPlaceholder = errors.New("email body still contains placeholders")

var placeholderRe = regexp.MustCompile(`<[^<>\n]+>`)

// TemplateService renders email bodies with Liquid, caching parsed
// templates by key.
type TemplateService struct {
	engine *liquid.Engine
	cache  sync.Map // map[string]*liquid.Template
}

// NewTemplateService creates a new template service
func NewTemplateService() *TemplateService {
	return &TemplateService{engine: liquid.NewEngine()}
}

// Render processes a Liquid template with the given bindings. A non-empty
// cacheKey reuses the parsed template across calls.
func (ts *TemplateService) Render(cacheKey, templateStr string, bindings map[string]interface{}) (string, error) {
	if cacheKey != "" {
		if cached, ok := ts.cache.Load(cacheKey); ok {
			return renderString(cached.(*liquid.Template), bindings)
		}
	}

	tpl, err := ts.engine.ParseString(templateStr)
	if err != nil {
		return "", fmt.Errorf("template parse error: %w", err)
	}
	if cacheKey != "" {
		ts.cache.Store(cacheKey, tpl)
	}
	return renderString(tpl, bindings)
}

func renderString(tpl *liquid.Template, bindings map[string]interface{}) (string, error) {
	out, err := tpl.RenderString(bindings)
	if err != nil {
		return "", fmt.Errorf("template render error: %w", err)
	}
	return out, nil
}

// ToLiquid rewrites each <KEY> placeholder into a Liquid variable and
// returns the variable name for every key found.
func ToLiquid(body string) (string, map[string]string) {
	vars := make(map[string]string)
	out := placeholderRe.ReplaceAllStringFunc(body, func(key string) string {
		name, ok := vars[key]
		if !ok {
			name = fmt.Sprintf("p%d", len(vars))
			vars[key] = name
		}
		return "{{ " + name + " }}"
	})
	return out, vars
}

// RenderBody fills the <KEY> placeholders of an instruction-doc template.
// Every placeholder must have a value, and the result may not contain any
// leftover angle brackets or braces.
func (ts *TemplateService) RenderBody(subject, body string, data map[string]string) (string, error) {
	converted, vars := ToLiquid(body)

	bindings := make(map[string]interface{}, len(vars))
	var missing []string
	for key, name := range vars {
		val, ok := data[key]
		if !ok {
			missing = append(missing, key)
			continue
		}
		bindings[name] = val
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", fmt.Errorf("%w: no value for %s in %q", ErrUnrenderedPlaceholder, strings.Join(missing, ", "), subject)
	}

	out, err := ts.Render(converted, converted, bindings)
	if err != nil {
		return "", fmt.Errorf("rendering %q: %w", subject, err)
	}
	if strings.ContainsAny(out, "<>{}") {
		return "", fmt.Errorf("%w: %q", ErrUnrenderedPlaceholder, subject)
	}
	return out, nil
}
