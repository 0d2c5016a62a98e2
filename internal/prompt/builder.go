// Package prompt assembles generation requests.
package prompt

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/easeaico/sophos/internal/types"
)

// TurnContext contains all inputs for turn prompt assembly.
type TurnContext struct {
	// Context is the rendered digest plus recent turns.
	Context     string
	Facts       map[string]string
	Profile     string
	Retrieved   []string
	UserMessage string
}

type factLine struct {
	Key   string
	Value string
}

// BuildTurn renders the user-role prompt for a turn.
func BuildTurn(tc TurnContext) (string, error) {
	facts := make([]factLine, 0, len(tc.Facts))
	for k, v := range tc.Facts {
		facts = append(facts, factLine{Key: k, Value: v})
	}
	sort.Slice(facts, func(i, j int) bool { return facts[i].Key < facts[j].Key })

	data := struct {
		Context     string
		Facts       []factLine
		Profile     string
		Retrieved   []string
		UserMessage string
	}{
		Context:     tc.Context,
		Facts:       facts,
		Profile:     tc.Profile,
		Retrieved:   tc.Retrieved,
		UserMessage: tc.UserMessage,
	}

	var buf bytes.Buffer
	if err := turnTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to build prompt: %w", err)
	}
	return strings.TrimLeft(buf.String(), "\n"), nil
}

// TurnRequest returns the generation request for a turn. The persona and the
// optional style directive are separate system instruction parts.
func TurnRequest(userPrompt, directive string) *model.LLMRequest {
	return newRequest(userPrompt, Persona, directive)
}

// SummaryRequest asks for a digest of evicted turns.
func SummaryRequest(texts []string) *model.LLMRequest {
	return newRequest(summaryRequestPrefix+strings.Join(texts, "\n"), Persona, summaryInstruction)
}

// TextSummaryRequest asks for a practical summary of arbitrary text.
func TextSummaryRequest(text string) *model.LLMRequest {
	return newRequest(textSummaryPrefix+text, Persona)
}

// FactRequest asks for a flat JSON object of facts found in text.
func FactRequest(text string) *model.LLMRequest {
	req := newRequest(text, factInstruction)
	req.Config.ResponseMIMEType = "application/json"
	req.Config.ResponseJsonSchema = factSchema()
	return req
}

// CounselRequest asks for advice based on recent emotions, oldest first.
func CounselRequest(recent []types.EmotionEntry) (*model.LLMRequest, error) {
	var buf bytes.Buffer
	if err := counselTemplate.Execute(&buf, recent); err != nil {
		return nil, fmt.Errorf("failed to build counsel prompt: %w", err)
	}
	return newRequest(buf.String(), Persona), nil
}

func newRequest(userPrompt string, system ...string) *model.LLMRequest {
	instruction := &genai.Content{}
	for _, s := range system {
		if strings.TrimSpace(s) == "" {
			continue
		}
		instruction.Parts = append(instruction.Parts, &genai.Part{Text: s})
	}

	cfg := &genai.GenerateContentConfig{}
	if len(instruction.Parts) > 0 {
		cfg.SystemInstruction = instruction
	}
	return &model.LLMRequest{
		Contents: []*genai.Content{genai.NewContentFromText(userPrompt, "user")},
		Config:   cfg,
	}
}
