package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/edimarket/marketplace-backend/internal/chatctx"
	"github.com/edimarket/marketplace-backend/internal/model"
	"google.golang.org/genai"
)

var ErrModelUnavailable = errors.New("model_unavailable")

const recommendToolName = "recommend_listings"

// ChatTurn is one prior turn of the conversation, oldest first.
type ChatTurn struct {
	Role    string
	Content string
}

// RecommendInput carries the bounded history plus the candidate set the
// model is allowed to recommend from.
type RecommendInput struct {
	History    []ChatTurn
	Candidates []Candidate
}

// RecommendResult is the model's reply. Recommendations are exactly what
// the model proposed; callers must validate them against the candidate
// set before trusting the ids.
type RecommendResult struct {
	Text            string
	Recommendations []model.Recommendation
}

// RecommendClient calls the Gemini chat model with the recommend_listings
// function declaration exposed as its only tool.
type RecommendClient struct {
	apiKey  string
	model   string
	timeout time.Duration
}

func NewRecommendClient(apiKey, chatModel string) *RecommendClient {
	if chatModel == "" {
		chatModel = "gemini-2.5-flash"
	}
	return &RecommendClient{
		apiKey:  apiKey,
		model:   chatModel,
		timeout: 55 * time.Second,
	}
}

func (c *RecommendClient) Recommend(ctx context.Context, in RecommendInput) (*RecommendResult, error) {
	conv := chatctx.ConversationID(ctx)
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	client, err := genai.NewClient(ctx, c.clientConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	contents := make([]*genai.Content, 0, len(in.History))
	for _, turn := range in.History {
		if turn.Content == "" {
			continue
		}
		role := genai.Role(genai.RoleUser)
		if turn.Role == model.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Content, role))
	}
	if len(contents) == 0 {
		return nil, fmt.Errorf("%w: no conversation content", ErrModelUnavailable)
	}

	temp := float32(0.4)
	config := &genai.GenerateContentConfig{
		Temperature:       &temp,
		SystemInstruction: genai.NewContentFromText(BuildSystemPrompt(in.Candidates), genai.RoleUser),
		Tools:             []*genai.Tool{recommendTool()},
	}

	start := time.Now()
	res, err := client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		log.Printf("[chat] conv=%s stage=gemini_fail model=%s err=%v", conv, c.model, err)
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	log.Printf("[chat] conv=%s stage=gemini_done model=%s genMs=%d", conv, c.model, time.Since(start).Milliseconds())

	out := &RecommendResult{
		Text:            res.Text(),
		Recommendations: []model.Recommendation{},
	}
	for _, fc := range res.FunctionCalls() {
		if fc == nil || fc.Name != recommendToolName {
			continue
		}
		recs, err := ParseRecommendations(fc.Args)
		if err != nil {
			// Malformed structured output degrades to an empty list.
			log.Printf("[chat] conv=%s stage=tool_parse_fail err=%v", conv, err)
			continue
		}
		out.Recommendations = recs
		break
	}
	return out, nil
}

func (c *RecommendClient) clientConfig() *genai.ClientConfig {
	if c.apiKey == "" {
		return nil
	}
	return &genai.ClientConfig{APIKey: c.apiKey, Backend: genai.BackendGeminiAPI}
}

func recommendTool() *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name: recommendToolName,
				Description: "Recommend specific listings to the user. Only recommend listings that truly match " +
					"what the user is looking for. Be selective and quality-focused.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"listings": {
							Type:        genai.TypeArray,
							Description: "Array of recommended listings with reasons",
							Items: &genai.Schema{
								Type: genai.TypeObject,
								Properties: map[string]*genai.Schema{
									"listing_id": {
										Type:        genai.TypeString,
										Description: "The id of the recommended listing, copied exactly from the candidate list",
									},
									"reason": {
										Type:        genai.TypeString,
										Description: "Brief, specific reason why this listing matches the user's request (1-2 sentences)",
									},
								},
								Required: []string{"listing_id", "reason"},
							},
						},
					},
					Required: []string{"listings"},
				},
			},
		},
	}
}
