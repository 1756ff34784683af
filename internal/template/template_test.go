package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterpolate(t *testing.T) {
	t.Run("substitutes known variables", func(t *testing.T) {
		out := Interpolate("Hello {{client_name}}, from {{company_name}}", map[string]string{
			"client_name":  "Jane",
			"company_name": "Acme Builders",
		})
		assert.Equal(t, "Hello Jane, from Acme Builders", out)
	})

	t.Run("unresolved placeholders are preserved verbatim", func(t *testing.T) {
		out := Interpolate("{{client_name}}, your total is {{amount}}", map[string]string{
			"client_name": "Acme",
		})
		assert.Equal(t, "Acme, your total is {{amount}}", out)
	})

	t.Run("substitution is global not first-match", func(t *testing.T) {
		out := Interpolate("{{name}} and {{name}} again", map[string]string{"name": "Bob"})
		assert.Equal(t, "Bob and Bob again", out)
	})

	t.Run("payment reminder end to end", func(t *testing.T) {
		out := Interpolate("Payment reminder: {{client_name}}, ${{amount}} due {{due_date}}", map[string]string{
			"client_name": "Jane",
			"amount":      "500",
			"due_date":    "2025-01-15",
		})
		assert.Equal(t, "Payment reminder: Jane, $500 due 2025-01-15", out)
	})

	t.Run("no placeholders returns content unchanged", func(t *testing.T) {
		out := Interpolate("plain text", map[string]string{"x": "y"})
		assert.Equal(t, "plain text", out)
	})

	t.Run("nil variables returns content unchanged", func(t *testing.T) {
		out := Interpolate("hi {{there}}", nil)
		assert.Equal(t, "hi {{there}}", out)
	})

	t.Run("whitespace inside braces is tolerated", func(t *testing.T) {
		out := Interpolate("hi {{ client_name }}", map[string]string{"client_name": "Jane"})
		assert.Equal(t, "hi Jane", out)
	})
}

func TestPlaceholders(t *testing.T) {
	keys := Placeholders("{{a}} {{b}} {{a}} text {{c}}")
	assert.Equal(t, []string{"a", "b", "c"}, keys)

	assert.Empty(t, Placeholders("no placeholders here"))
}
