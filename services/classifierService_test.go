package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

type fakeCompleter struct {
	response string
	err      error
	calls    int
	lastUser string
}

func (f *fakeCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	f.calls++
	f.lastUser = userPrompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func TestClassifyValidLabels(t *testing.T) {
	tests := []struct {
		name     string
		response string
		expected string
	}{
		{
			name:     "correct label",
			response: `{"label": "correct", "reasoning": "Matches the expected answer."}`,
			expected: LabelCorrect,
		},
		{
			name:     "partially correct label",
			response: `{"label": "partially_correct", "reasoning": "Half right."}`,
			expected: LabelPartiallyCorrect,
		},
		{
			name:     "incorrect label",
			response: `{"label": "incorrect", "reasoning": "Wrong mechanism."}`,
			expected: LabelIncorrect,
		},
		{
			name:     "uppercase label is normalized",
			response: `{"label": " CORRECT ", "reasoning": "ok"}`,
			expected: LabelCorrect,
		},
		{
			name:     "code-fenced response",
			response: "```json\n{\"label\": \"incorrect\", \"reasoning\": \"nope\"}\n```",
			expected: LabelIncorrect,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewClassifierService(&fakeCompleter{response: tt.response})
			result := service.Classify(context.Background(), "A change in DNA sequence.", "Mutation changes the DNA.")

			if result.Label != tt.expected {
				t.Errorf("Classify() label = %q, expected %q", result.Label, tt.expected)
			}
			if result.Fault {
				t.Error("Classify() flagged a fault for a valid verdict")
			}
		})
	}
}

func TestClassifyAlwaysReturnsClosedSetLabel(t *testing.T) {
	tests := []struct {
		name     string
		response string
		err      error
	}{
		{name: "unrecognized label", response: `{"label": "kinda_right", "reasoning": "?"}`},
		{name: "free text instead of json", response: "The student is mostly right I think."},
		{name: "empty response", response: ""},
		{name: "provider failure", err: fmt.Errorf("provider down")},
		{name: "very long garbage", response: strings.Repeat("x", 10000)},
		{name: "non-matching-language output", response: `{"label": "richtig", "reasoning": "ja"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewClassifierService(&fakeCompleter{response: tt.response, err: tt.err})
			result := service.Classify(context.Background(), "A change in DNA sequence.", "Mutation is when proteins fold.")

			if !ValidLabel(result.Label) {
				t.Errorf("Classify() label = %q, not in the closed label set", result.Label)
			}
			if result.Label != FallbackLabel {
				t.Errorf("Classify() label = %q, expected fallback %q", result.Label, FallbackLabel)
			}
			if !result.Fault {
				t.Error("Classify() did not flag the fault")
			}
		})
	}
}

func TestClassifyGiveUpShortCircuits(t *testing.T) {
	tests := []struct {
		name      string
		utterance string
	}{
		{name: "plain idk", utterance: "I don't know"},
		{name: "no apostrophe", utterance: "i dont know"},
		{name: "shorthand", utterance: "idk"},
		{name: "no idea", utterance: "no idea"},
		{name: "empty utterance", utterance: ""},
		{name: "whitespace only", utterance: "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := &fakeCompleter{response: `{"label": "correct", "reasoning": "x"}`}
			service := NewClassifierService(completer)

			result := service.Classify(context.Background(), "A change in DNA sequence.", tt.utterance)
			if result.Label != LabelIDK {
				t.Errorf("Classify(%q) label = %q, expected %q", tt.utterance, result.Label, LabelIDK)
			}
			if completer.calls != 0 {
				t.Errorf("Classify(%q) made %d LLM calls, expected 0", tt.utterance, completer.calls)
			}
		})
	}
}

func TestClassifyGenuineAnswerReachesCompleter(t *testing.T) {
	completer := &fakeCompleter{response: `{"label": "partially_correct", "reasoning": "incomplete"}`}
	service := NewClassifierService(completer)

	result := service.Classify(context.Background(), "A change in DNA sequence.", "Something about DNA changing over time")
	if result.Label != LabelPartiallyCorrect {
		t.Errorf("Classify() label = %q, expected %q", result.Label, LabelPartiallyCorrect)
	}
	if completer.calls != 1 {
		t.Errorf("Classify() made %d LLM calls, expected 1", completer.calls)
	}
	if !strings.Contains(completer.lastUser, "A change in DNA sequence.") {
		t.Error("classifier prompt does not contain the ground truth")
	}
}

func TestClassifyRetriesOnce(t *testing.T) {
	completer := &fakeCompleter{err: fmt.Errorf("transient")}
	service := NewClassifierService(completer)

	service.Classify(context.Background(), "truth", "a genuine answer attempt")
	if completer.calls != 2 {
		t.Errorf("Classify() made %d LLM calls, expected 2 (one retry)", completer.calls)
	}
}
