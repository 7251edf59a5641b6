package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"tutorbot/services/llm"

	"github.com/invopop/jsonschema"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

const (
	LabelCorrect          = "correct"
	LabelPartiallyCorrect = "partially_correct"
	LabelIncorrect        = "incorrect"
	LabelIDK              = "idk"
)

// FallbackLabel is the documented conservative default applied when the
// classifier call fails or returns something outside the closed label set.
const FallbackLabel = LabelIncorrect

const (
	classifierTimeout   = 15 * time.Second
	classifierMaxTokens = 512
)

const classifierSystemPrompt = `You grade a student's reply against the expected answer for the active question.

Pick exactly one label:
- correct            (the reply matches the expected answer in substance)
- partially_correct  (some truth but incomplete or imprecise)
- incorrect          (confident but wrong, or off the mark)
- idk                (no knowledge or no real attempt)

Respond with ONLY a JSON object matching this schema, no prose:
%s`

// giveUpPhrases short-circuit classification: replies like these are scored
// idk locally without an LLM round-trip.
var giveUpPhrases = []string{
	"i don't know",
	"i dont know",
	"no idea",
	"i give up",
	"not sure",
	"dunno",
	"skip this",
	"idk",
}

// ClassifierVerdict is the structured output the classifier model must emit.
type ClassifierVerdict struct {
	Label     string `json:"label" jsonschema:"required,description=One of: correct | partially_correct | incorrect | idk"`
	Reasoning string `json:"reasoning" jsonschema:"required,description=One or two sentences explaining the label"`
}

// Classification carries the validated label plus audit detail for the
// turn log annotation.
type Classification struct {
	Label     string
	Reasoning string
	Fault     bool
}

type ClassifierService struct {
	completer    llm.Completer
	systemPrompt string
}

func NewClassifierService(completer llm.Completer) *ClassifierService {
	return &ClassifierService{
		completer:    completer,
		systemPrompt: fmt.Sprintf(classifierSystemPrompt, verdictSchemaJSON()),
	}
}

func verdictSchemaJSON() string {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(ClassifierVerdict{})

	data, err := json.Marshal(schema)
	if err != nil {
		// The schema is reflected from a fixed struct; marshalling cannot
		// fail at runtime with valid inputs.
		panic(fmt.Sprintf("failed to marshal classifier verdict schema: %v", err))
	}

	return string(data)
}

// Classify labels the learner's utterance against the ground truth. The
// result is always a member of the closed label set: provider failures and
// out-of-set outputs fall back to FallbackLabel with Fault set so the turn
// never crashes on a classifier problem.
func (s *ClassifierService) Classify(ctx context.Context, groundTruth, utterance string) Classification {
	if isGiveUp(utterance) {
		log.Printf("[INFO] Utterance matched a give-up phrase, labeling idk without LLM call")
		return Classification{Label: LabelIDK, Reasoning: "Learner indicated they do not know the answer."}
	}

	ctx, cancel := context.WithTimeout(ctx, classifierTimeout)
	defer cancel()

	userPrompt := fmt.Sprintf("Expected answer: %q\n\nStudent said: %q", groundTruth, utterance)

	var raw string
	err := withRetry(ctx, "classification", func() error {
		var err error
		raw, err = s.completer.Complete(ctx, s.systemPrompt, userPrompt, classifierMaxTokens)
		return err
	})
	if err != nil {
		log.Printf("[ERROR] Classifier call failed, applying fallback label %q: %v", FallbackLabel, err)
		return Classification{Label: FallbackLabel, Fault: true}
	}

	verdict, err := parseVerdict(raw)
	if err != nil {
		log.Printf("[ERROR] Classifier returned invalid output, applying fallback label %q: %v", FallbackLabel, err)
		return Classification{Label: FallbackLabel, Fault: true}
	}

	log.Printf("[INFO] Classified utterance as %q", verdict.Label)
	return Classification{Label: verdict.Label, Reasoning: verdict.Reasoning}
}

func parseVerdict(raw string) (*ClassifierVerdict, error) {
	// Models occasionally wrap JSON in a code fence; strip it before parsing.
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var verdict ClassifierVerdict
	if err := json.Unmarshal([]byte(cleaned), &verdict); err != nil {
		return nil, fmt.Errorf("failed to parse classifier verdict: %w", err)
	}

	verdict.Label = strings.ToLower(strings.TrimSpace(verdict.Label))
	if !ValidLabel(verdict.Label) {
		return nil, fmt.Errorf("label %q is not in the closed label set", verdict.Label)
	}

	return &verdict, nil
}

func ValidLabel(label string) bool {
	switch label {
	case LabelCorrect, LabelPartiallyCorrect, LabelIncorrect, LabelIDK:
		return true
	}
	return false
}

func isGiveUp(utterance string) bool {
	normalized := strings.ToLower(strings.TrimSpace(utterance))
	if normalized == "" {
		return true
	}

	for _, phrase := range giveUpPhrases {
		if normalized == phrase {
			return true
		}
		// Tolerate small typos ("i dont knw") but nothing looser, so real
		// answers never short-circuit to idk.
		if rank := fuzzy.RankMatchNormalizedFold(phrase, normalized); rank >= 0 && rank <= 2 {
			return true
		}
	}

	return false
}
