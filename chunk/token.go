package chunk

// EstimateTokens approximates how many model tokens a text span would
// consume, using the fixed heuristic tokens = ceil(len/4). This is a
// cheap character-count approximation, not an exact tokenizer count;
// callers must not assume parity with the embedding model's tokenizer.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
