// Package validation checks the input constraints that gate every quiz
// mutation and generates quiz codes.
package validation

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"pubquiz-service/internal/domain"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6

	TitleMaxLength    = 200
	TeamNameMaxLength = 50
	MinQuestions      = 1
	MaxQuestions      = 100
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

// ValidateQuizCode checks the 6-char uppercase alphanumeric code format.
func ValidateQuizCode(code string) error {
	if !codePattern.MatchString(code) {
		return fmt.Errorf("%w: invalid quiz code format", domain.ErrValidation)
	}
	return nil
}

// GenerateQuizCode draws a uniformly random 6-character code from [A-Z0-9].
// Uniqueness against existing quizzes is the caller's responsibility.
func GenerateQuizCode() string {
	code := make([]byte, codeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(fmt.Sprintf("read random: %v", err))
		}
		code[i] = codeAlphabet[n.Int64()]
	}
	return string(code)
}

// ValidateQuizTitle requires a non-blank title of at most 200 characters
// after trimming.
func ValidateQuizTitle(title string) error {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return fmt.Errorf("%w: quiz title cannot be empty", domain.ErrValidation)
	}
	if len(trimmed) > TitleMaxLength {
		return fmt.Errorf("%w: quiz title cannot exceed %d characters", domain.ErrValidation, TitleMaxLength)
	}
	return nil
}

// ValidateTeamName requires a non-blank name of at most 50 characters after
// trimming.
func ValidateTeamName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("%w: team name cannot be empty", domain.ErrValidation)
	}
	if len(trimmed) > TeamNameMaxLength {
		return fmt.Errorf("%w: team name cannot exceed %d characters", domain.ErrValidation, TeamNameMaxLength)
	}
	return nil
}

// ValidateQuestions checks the question list submitted at quiz creation.
// Error messages identify the offending question by 1-based position, in
// submission order.
func ValidateQuestions(questions []domain.Question) error {
	if len(questions) < MinQuestions {
		return fmt.Errorf("%w: at least one question is required", domain.ErrValidation)
	}
	if len(questions) > MaxQuestions {
		return fmt.Errorf("%w: cannot exceed %d questions", domain.ErrValidation, MaxQuestions)
	}
	for i, q := range questions {
		if strings.TrimSpace(q.Text) == "" {
			return fmt.Errorf("%w: question %d: text cannot be empty", domain.ErrValidation, i+1)
		}
		if strings.TrimSpace(q.Correct) == "" {
			return fmt.Errorf("%w: question %d: correct answer cannot be empty", domain.ErrValidation, i+1)
		}
		for j, opt := range q.Options {
			if strings.TrimSpace(opt) == "" {
				return fmt.Errorf("%w: question %d: option %d cannot be empty", domain.ErrValidation, i+1, j+1)
			}
		}
	}
	return nil
}

// ValidateQuestionIndex checks that idx addresses an existing question.
func ValidateQuestionIndex(idx, total int) error {
	if idx < 0 || idx >= total {
		return fmt.Errorf("%w: question index out of range", domain.ErrValidation)
	}
	return nil
}

// ValidateScore accepts exactly the three scores the master may assign.
func ValidateScore(score float64) error {
	if score != 0 && score != 0.5 && score != 1 {
		return fmt.Errorf("%w: score must be 0, 0.5, or 1", domain.ErrValidation)
	}
	return nil
}
