package translate

import "context"

// Translator maps free text between two natural languages. The search term is
// translated into the marketplace's native language before querying, and
// scraped text may be translated back for display by the conversation layer.
type Translator interface {
	Translate(ctx context.Context, text, from, to string) (string, error)
}

// Noop returns the text unchanged. Useful in tests and when running against a
// query already in the marketplace's language.
type Noop struct{}

// Translate implements Translator
func (Noop) Translate(_ context.Context, text, _, _ string) (string, error) {
	return text, nil
}
