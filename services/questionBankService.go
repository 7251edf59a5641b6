package services

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"tutorbot/models"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
)

// QuestionBankService holds the ordered, immutable list of
// (question, ground-truth answer) pairs loaded once at startup.
type QuestionBankService struct {
	questions []models.Question
}

func NewQuestionBankService(path string) (*QuestionBankService, error) {
	log.Printf("[INFO] Loading question bank from %s", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read question bank file: %w", err)
	}

	var questions []models.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("failed to parse question bank file: %w", err)
	}

	bank, err := NewQuestionBankFromList(questions)
	if err != nil {
		return nil, err
	}

	log.Printf("[INFO] Loaded %d questions into question bank", bank.Len())
	return bank, nil
}

func NewQuestionBankFromList(questions []models.Question) (*QuestionBankService, error) {
	valid := lo.Filter(questions, func(q models.Question, index int) bool {
		return strings.TrimSpace(q.Question) != "" && strings.TrimSpace(q.Answer) != ""
	})

	if len(valid) == 0 {
		return nil, fmt.Errorf("question bank must contain at least one question with an answer")
	}

	if len(valid) != len(questions) {
		log.Printf("[WARN] Dropped %d question bank entries with empty question or answer", len(questions)-len(valid))
	}

	return &QuestionBankService{questions: valid}, nil
}

func (s *QuestionBankService) Len() int {
	return len(s.questions)
}

// Get returns the question at idx, clamping idx into [0, len-1].
func (s *QuestionBankService) Get(idx int) models.Question {
	return s.questions[s.ClampIndex(idx)]
}

func (s *QuestionBankService) ClampIndex(idx int) int {
	if idx < 0 {
		return 0
	}
	if idx >= len(s.questions) {
		return len(s.questions) - 1
	}
	return idx
}

func (s *QuestionBankService) InRange(idx int) bool {
	return idx >= 0 && idx < len(s.questions)
}

// Search returns the indexes of questions whose text fuzzily matches term.
func (s *QuestionBankService) Search(term string) []int {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil
	}

	var matches []int
	for i, q := range s.questions {
		if fuzzy.MatchNormalizedFold(term, q.Question) {
			matches = append(matches, i)
		}
	}

	return matches
}
