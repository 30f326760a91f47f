package tokens

import (
	"math"
	"strings"

	"tollgate-hq/tollgate/pkg/providers"
)

// DefaultTokensPerWord is the ratio applied to the whitespace-delimited
// word count of a prompt. English text averages roughly 0.75 tokens per
// word under common BPE vocabularies.
const DefaultTokensPerWord = 0.75

// Estimator estimates token counts for completion requests.
type Estimator interface {
	// EstimateText estimates tokens for a single text string.
	EstimateText(text string) int64

	// EstimateMessages estimates prompt tokens for a conversation.
	EstimateMessages(messages []providers.Message) int64
}

// WordEstimator is a fast word-count based estimator. It is deliberately
// rough; admission control only needs an order-of-magnitude figure and the
// reconciler corrects the books with real usage afterwards.
type WordEstimator struct {
	tokensPerWord float64
}

// NewWordEstimator creates an estimator with the given tokens-per-word
// ratio. A non-positive ratio falls back to DefaultTokensPerWord.
func NewWordEstimator(tokensPerWord float64) *WordEstimator {
	if tokensPerWord <= 0 {
		tokensPerWord = DefaultTokensPerWord
	}
	return &WordEstimator{tokensPerWord: tokensPerWord}
}

// EstimateText estimates tokens for a single text string by counting
// whitespace-delimited words and rounding the scaled count up.
func (e *WordEstimator) EstimateText(text string) int64 {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	return int64(math.Ceil(float64(words) * e.tokensPerWord))
}

// EstimateMessages estimates prompt tokens for a conversation by summing
// the per-message estimates.
func (e *WordEstimator) EstimateMessages(messages []providers.Message) int64 {
	var total int64
	for _, msg := range messages {
		total += e.EstimateText(msg.Content)
	}
	return total
}
