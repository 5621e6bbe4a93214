package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/bsdetector/internal/model"
)

// SystemPrompt is sent as the system message to every provider
const SystemPrompt = "You are a fact-checking assistant. Respond with a single JSON object only. No prose, no markdown."

// Prompt is the provider-independent input of one analysis call
type Prompt struct {
	System string
	User   string
}

const voterPersona = `You are a plain-spoken fact checker helping an ordinary voter.
Use short sentences and everyday words. Call out spin, missing context and
emotional manipulation directly.`

const professionalPersona = `You are a senior analyst writing for journalists and researchers.
Weigh the available evidence, name the kind of sources that would settle the
question, and separate factual errors from framing and omission.`

// DefaultPersona returns the persona used when a config does not override it
func DefaultPersona(mode model.Mode) string {
	if mode == model.ModeProfessional {
		return professionalPersona
	}
	return voterPersona
}

const instructions = `Assess the veracity of the content below and answer with JSON of this exact shape:
{
  "verdict": one of "true", "likely-true", "uncertain", "likely-false", "false",
  "confidence": integer 0-100,
  "summary": string,
  "keyPoints": array of short strings,
  "biasScore": integer -100 (strong left) to 100 (strong right),
  "biasDirection": string,
  "sentiment": {"overall": "positive"|"neutral"|"negative", "positive": integer, "neutral": integer, "negative": integer}
}`

// BuildPrompt assembles the system and user messages for content
func BuildPrompt(content, persona string) Prompt {
	var b strings.Builder
	if p := strings.TrimSpace(persona); p != "" {
		b.WriteString(p)
		b.WriteString("\n\n")
	}
	b.WriteString(instructions)
	fmt.Fprintf(&b, "\n\nContent:\n%s", content)

	return Prompt{
		System: SystemPrompt,
		User:   b.String(),
	}
}
