package driven

// TokenCounter estimates the token count of a text for budget accounting.
// The count only needs to be consistent, not identical to the downstream
// model's tokeniser; the assembly buffer absorbs the difference.
type TokenCounter interface {
	// Count returns the token count for the text.
	Count(text string) int
}
