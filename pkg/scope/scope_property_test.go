package scope

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestPropertyRenderTemplateMatchesRenderExpression checks the scope law:
// wrapping an expression in {{ }} and rendering it as a template must always
// match stringifying the same expression's direct evaluation.
func TestPropertyRenderTemplateMatchesRenderExpression(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("renderTemplate(\"{{hp}}\") == stringify(renderExpression(\"hp\"))", prop.ForAll(
		func(hp float64) bool {
			s := New()
			s.Set("hp", hp)

			viaTemplate, err := s.RenderTemplate("{{hp}}")
			if err != nil {
				return false
			}
			evaluated, err := s.RenderExpression("hp")
			if err != nil {
				return false
			}
			return viaTemplate == stringify(evaluated)
		},
		gen.Float64Range(-1_000_000, 1_000_000),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// TestPropertyRenderTemplateStringLawHoldsAcrossTypes checks the same law
// for strings and bools bound into scope, not just numbers.
func TestPropertyRenderTemplateStringLawHoldsAcrossTypes(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("law holds for string-valued and bool-valued vars", prop.ForAll(
		func(name string, flag bool) bool {
			s := New()
			s.Set("name", name)
			s.Set("flag", flag)

			for _, expr := range []string{"name", "flag"} {
				viaTemplate, err := s.RenderTemplate("{{" + expr + "}}")
				if err != nil {
					return false
				}
				evaluated, err := s.RenderExpression(expr)
				if err != nil {
					return false
				}
				if viaTemplate != stringify(evaluated) {
					return false
				}
			}
			return true
		},
		gen.AlphaString(),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
