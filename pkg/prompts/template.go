package prompts

import (
	"maps"
	"slices"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/cockroachdb/errors"
)

var (
	// ErrInvalidTemplate is returned when the template text does not parse.
	ErrInvalidTemplate = errors.New("invalid template")
	// ErrMissingInputVariable is returned when a declared input variable has no value.
	ErrMissingInputVariable = errors.New("missing input variable")
)

// PromptTemplate is a text/template based prompt with sprig functions.
type PromptTemplate struct {
	// Template is the text/template source.
	Template string
	// InputVariables lists the variables that must be provided to Format.
	InputVariables []string
	// PartialVariables are default values, overridden by Format values.
	PartialVariables map[string]any

	tmpl *template.Template
}

// NewPromptTemplate parses the template and returns a new PromptTemplate.
func NewPromptTemplate(text string, inputVariables []string) (*PromptTemplate, error) {
	tmpl, err := template.New("prompt").
		Funcs(sprig.TxtFuncMap()).
		Parse(text)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidTemplate, "%s", err.Error())
	}
	return &PromptTemplate{
		Template:       text,
		InputVariables: inputVariables,
		tmpl:           tmpl,
	}, nil
}

// MustPromptTemplate is like NewPromptTemplate but panics on parse error,
// it is intended for package level templates.
func MustPromptTemplate(text string, inputVariables ...string) *PromptTemplate {
	p, err := NewPromptTemplate(text, inputVariables)
	if err != nil {
		panic(err)
	}
	return p
}

// WithPartials returns a copy of the template with default values.
func (p *PromptTemplate) WithPartials(partials map[string]any) *PromptTemplate {
	c := *p
	c.PartialVariables = maps.Clone(partials)
	return &c
}

// Format renders the template with values.
func (p *PromptTemplate) Format(values map[string]any) (string, error) {
	all := make(map[string]any, len(p.PartialVariables)+len(values))
	maps.Copy(all, p.PartialVariables)
	maps.Copy(all, values)

	var missing []string
	for _, v := range p.InputVariables {
		if _, ok := all[v]; !ok {
			missing = append(missing, v)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return "", errors.Wrapf(ErrMissingInputVariable, "%s", strings.Join(missing, ", "))
	}

	var buf strings.Builder
	if err := p.tmpl.Execute(&buf, all); err != nil {
		return "", errors.Wrap(err, "failed to render prompt")
	}
	return buf.String(), nil
}
