// Package importer reads quiz questions from CSV. The expected header is
// "question,correct" with any number of extra "option..." columns that turn
// a row into a multiple-choice question.
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"pubquiz-service/internal/domain"
)

// Parse reads questions from CSV data. Question IDs are left unassigned;
// the create operation assigns them.
func Parse(r io.Reader) ([]domain.Question, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: CSV must contain a header and at least one question", domain.ErrValidation)
	}

	questionCol, correctCol := -1, -1
	var optionCols []int
	for i, name := range header {
		switch name := strings.ToLower(strings.TrimSpace(name)); {
		case name == "question":
			questionCol = i
		case name == "correct":
			correctCol = i
		case strings.HasPrefix(name, "option"):
			optionCols = append(optionCols, i)
		}
	}
	if questionCol < 0 || correctCol < 0 {
		return nil, fmt.Errorf("%w: missing required columns: question, correct", domain.ErrValidation)
	}

	var questions []domain.Question
	for row := 2; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", domain.ErrValidation, row, err)
		}
		if blankRow(record) {
			continue
		}
		if len(record) <= questionCol || len(record) <= correctCol {
			return nil, fmt.Errorf("%w: row %d: not enough columns", domain.ErrValidation, row)
		}

		text := strings.TrimSpace(record[questionCol])
		correct := strings.TrimSpace(record[correctCol])
		if text == "" {
			return nil, fmt.Errorf("%w: row %d: question cannot be empty", domain.ErrValidation, row)
		}
		if correct == "" {
			return nil, fmt.Errorf("%w: row %d: correct answer cannot be empty", domain.ErrValidation, row)
		}

		var options []string
		for _, col := range optionCols {
			if col < len(record) {
				if opt := strings.TrimSpace(record[col]); opt != "" {
					options = append(options, opt)
				}
			}
		}

		questions = append(questions, domain.Question{
			Text:    text,
			Correct: correct,
			Options: options,
		})
	}

	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: CSV must contain a header and at least one question", domain.ErrValidation)
	}
	return questions, nil
}

// ParseFile parses the CSV file at path.
func ParseFile(path string) ([]domain.Question, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", domain.ErrStorage, path, err)
	}
	defer f.Close()
	return Parse(f)
}

func blankRow(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
