package services

import (
	"testing"

	"tutorbot/models"
)

func testBank(t *testing.T, questions []models.Question) *QuestionBankService {
	t.Helper()
	bank, err := NewQuestionBankFromList(questions)
	if err != nil {
		t.Fatalf("NewQuestionBankFromList() returned error: %v", err)
	}
	return bank
}

func TestQuestionBankClampIndex(t *testing.T) {
	bank := testBank(t, []models.Question{
		{Question: "What is mutation?", Answer: "A change in DNA sequence."},
		{Question: "What is a gene?", Answer: "A unit of heredity."},
		{Question: "What is an allele?", Answer: "A variant form of a gene."},
	})

	tests := []struct {
		name     string
		idx      int
		expected int
	}{
		{name: "negative index clamps to zero", idx: -5, expected: 0},
		{name: "zero stays zero", idx: 0, expected: 0},
		{name: "in-range index unchanged", idx: 1, expected: 1},
		{name: "last index unchanged", idx: 2, expected: 2},
		{name: "past the end clamps to last", idx: 99, expected: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bank.ClampIndex(tt.idx); got != tt.expected {
				t.Errorf("ClampIndex(%d) = %d, expected %d", tt.idx, got, tt.expected)
			}
		})
	}
}

func TestQuestionBankGetClampsOutOfRange(t *testing.T) {
	bank := testBank(t, []models.Question{
		{Question: "What is mutation?", Answer: "A change in DNA sequence."},
	})

	q := bank.Get(42)
	if q.Question != "What is mutation?" {
		t.Errorf("Get(42) = %q, expected the only question", q.Question)
	}
}

func TestQuestionBankRejectsEmpty(t *testing.T) {
	if _, err := NewQuestionBankFromList(nil); err == nil {
		t.Error("expected error for empty question bank")
	}

	if _, err := NewQuestionBankFromList([]models.Question{
		{Question: "  ", Answer: ""},
	}); err == nil {
		t.Error("expected error when all entries are blank")
	}
}

func TestQuestionBankDropsBlankEntries(t *testing.T) {
	bank := testBank(t, []models.Question{
		{Question: "What is mutation?", Answer: "A change in DNA sequence."},
		{Question: "", Answer: "orphan answer"},
	})

	if bank.Len() != 1 {
		t.Errorf("Len() = %d, expected 1 after dropping blank entry", bank.Len())
	}
}

func TestQuestionBankSearch(t *testing.T) {
	bank := testBank(t, []models.Question{
		{Question: "What is mutation?", Answer: "A change in DNA sequence."},
		{Question: "What is a gene?", Answer: "A unit of heredity."},
	})

	tests := []struct {
		name     string
		term     string
		expected []int
	}{
		{name: "exact word", term: "mutation", expected: []int{0}},
		{name: "case insensitive", term: "GENE", expected: []int{1}},
		{name: "no match", term: "photosynthesis", expected: nil},
		{name: "empty term", term: "   ", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := bank.Search(tt.term)
			if len(got) != len(tt.expected) {
				t.Fatalf("Search(%q) = %v, expected %v", tt.term, got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("Search(%q) = %v, expected %v", tt.term, got, tt.expected)
				}
			}
		})
	}
}
