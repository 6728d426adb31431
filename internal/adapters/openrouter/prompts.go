package openrouter

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/bnema/hubwatch/internal/domain"
)

const responderSystemPrompt = "You are a contestant in a quiz duel. " +
	"Answer the question directly and concisely. If the question is " +
	"nonsensical, say so instead of inventing an answer."

func bankPrompt(count int) string {
	return fmt.Sprintf(
		"Write %d tricky quiz questions about machine learning, LLM "+
			"architectures, and AI history. Each question must have one "+
			"short, verifiable answer.\n\n"+
			"Return ONLY a JSON array (no markdown fences):\n"+
			`[{"question": "...", "answer": "..."}]`,
		count,
	)
}

func verdictPrompt(challenge domain.Challenge, answer string) string {
	return fmt.Sprintf(
		"You are the judge of a quiz duel.\n\n"+
			"Question: %s\n"+
			"Reference answer: %s\n"+
			"Contestant's answer: %s\n\n"+
			"Decide whether the contestant is right, quote the decisive "+
			"detail, and phrase a short verdict (at most four sentences). "+
			"Open with either WIN or LOSE.",
		challenge.Question, challenge.Answer, answer,
	)
}

func summaryPrompt(id domain.ModelID, readme string) string {
	return fmt.Sprintf(
		"Summarize this model card in at most five sentences for an ML "+
			"news channel: what the model is, its size, and what stands "+
			"out. Skip boilerplate and license talk.\n\n"+
			"Model: %s\n\n%s",
		id, readme,
	)
}

var (
	fenceOpenRe  = regexp.MustCompile("^```(?:json)?\\s*")
	fenceCloseRe = regexp.MustCompile("\\s*```$")
)

// parseChallenges decodes a JSON array of question/answer objects,
// tolerating markdown fences and a bare single object.
func parseChallenges(raw string) ([]domain.Challenge, error) {
	cleaned := fenceOpenRe.ReplaceAllString(strings.TrimSpace(raw), "")
	cleaned = fenceCloseRe.ReplaceAllString(cleaned, "")

	type entry struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
	}

	var entries []entry
	if err := json.Unmarshal([]byte(cleaned), &entries); err != nil {
		var single entry
		if err := json.Unmarshal([]byte(cleaned), &single); err != nil {
			return nil, fmt.Errorf("decode challenge JSON: %w", err)
		}
		entries = []entry{single}
	}

	challenges := make([]domain.Challenge, 0, len(entries))
	for _, e := range entries {
		if e.Question == "" || e.Answer == "" {
			continue
		}
		challenges = append(challenges, domain.Challenge{Question: e.Question, Answer: e.Answer})
	}

	return challenges, nil
}
