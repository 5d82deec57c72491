package ai

import (
	"errors"
	"fmt"
	"strings"

	"github.com/edimarket/marketplace-backend/internal/model"
)

var ErrParseFailed = errors.New("parse_failed")

// ParseRecommendations extracts (listing_id, reason) pairs from the
// recommend_listings tool-call arguments. The model's output is an
// untrusted data source: a wrong overall shape fails, individual entries
// missing a usable listing_id are skipped.
func ParseRecommendations(args map[string]any) ([]model.Recommendation, error) {
	if args == nil {
		return nil, fmt.Errorf("%w: nil arguments", ErrParseFailed)
	}
	raw, ok := args["listings"]
	if !ok {
		return nil, fmt.Errorf("%w: missing listings field", ErrParseFailed)
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: listings is not an array", ErrParseFailed)
	}
	recs := make([]model.Recommendation, 0, len(items))
	for _, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			continue
		}
		id, _ := obj["listing_id"].(string)
		reason, _ := obj["reason"].(string)
		if strings.TrimSpace(id) == "" {
			continue
		}
		recs = append(recs, model.Recommendation{ListingID: strings.TrimSpace(id), Reason: reason})
	}
	return recs, nil
}

// FilterToCandidates drops entries whose listing id was not in the
// candidate set surfaced to the model; hallucinated ids never survive.
func FilterToCandidates(recs []model.Recommendation, cands []Candidate) []model.Recommendation {
	allowed := make(map[string]struct{}, len(cands))
	for _, c := range cands {
		allowed[c.ListingID] = struct{}{}
	}
	kept := make([]model.Recommendation, 0, len(recs))
	for _, r := range recs {
		if _, ok := allowed[r.ListingID]; ok {
			kept = append(kept, r)
		}
	}
	return kept
}
