package ai

import (
	"fmt"
	"strings"
)

// Candidate is a retrieved listing as shown to the model: denormalized
// display fields plus the similarity score from the vector index.
type Candidate struct {
	ListingID   string
	Title       string
	Description string
	Category    string
	PricePence  int64
	Similarity  float64
}

const descriptionPreviewLen = 200

const systemPrompt = `You are a helpful marketplace assistant helping users find second-hand items in Edinburgh, Scotland.

Your task:
1. Understand what the user is looking for
2. Analyse the available listings below
3. Recommend ONLY the listings that genuinely match their needs
4. Be selective - quality over quantity
5. Provide a friendly, conversational response
6. Use the recommend_listings function to specify which listings to show`

const groundingRules = `Important:
- Only recommend listings from the list above, using their exact listing ids
- Consider price, category, and description relevance
- If nothing matches well, be honest and ask clarifying questions
- Don't recommend everything - be selective
- Focus on the best 3-5 matches if multiple good options exist`

const noCandidatesNote = `(none - no listings matched this search)

No listings matched the user's request. Do not invent, guess, or describe specific listings. Ask a clarifying question about what they are looking for instead, and do not call recommend_listings.`

// BuildSystemPrompt produces the grounded system instruction for one
// turn: assistant policy, the enumerated candidate set, and the rules
// that keep recommendations inside it.
func BuildSystemPrompt(cands []Candidate) string {
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\nAvailable listings from semantic search:\n")
	if len(cands) == 0 {
		b.WriteString(noCandidatesNote)
		return b.String()
	}
	b.WriteString(FormatCandidates(cands))
	b.WriteString("\n\n")
	b.WriteString(groundingRules)
	return b.String()
}

// FormatCandidates renders the numbered candidate block shown to the model.
func FormatCandidates(cands []Candidate) string {
	blocks := make([]string, 0, len(cands))
	for i, c := range cands {
		category := c.Category
		if category == "" {
			category = "Uncategorised"
		}
		blocks = append(blocks, fmt.Sprintf(
			"[%d] Listing ID: %s\nTitle: %s\nPrice: £%.2f\nCategory: %s\nDescription: %s\nSimilarity Score: %.1f%%",
			i+1,
			c.ListingID,
			c.Title,
			float64(c.PricePence)/100,
			category,
			truncate(c.Description, descriptionPreviewLen),
			c.Similarity*100,
		))
	}
	return strings.Join(blocks, "\n\n")
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
