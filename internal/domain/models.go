package domain

import "time"

// Status is the lifecycle state of a quiz. Transitions follow
// draft -> active -> finished in normal play, but the service does not
// reject out-of-order transitions.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

// Valid reports whether s is one of the known status values.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusFinished:
		return true
	}
	return false
}

// Question is a single quiz question. IDs are assigned at creation time
// (0-based, in submission order) and never change. Options is empty for
// free-text questions; when set, teams may answer by option index.
type Question struct {
	ID      int      `json:"id"`
	Text    string   `json:"text"`
	Correct string   `json:"correct"`
	Options []string `json:"options,omitempty"`
}

// Quiz is the master record for one quiz event. Code is the primary key and
// MasterToken is the bearer secret that controls the quiz.
type Quiz struct {
	Code                 string     `json:"code"`
	Title                string     `json:"title"`
	Questions            []Question `json:"questions"`
	Status               Status     `json:"status"`
	CurrentQuestionIndex int        `json:"current_question_index"`
	CreatedAt            string     `json:"created_at"`
	MasterToken          string     `json:"master_token"`
}

// Answer records one team answer to one question. At most one answer exists
// per question; resubmission replaces it in place. SelectedOption is set only
// when the team answered a multiple-choice question by option index.
type Answer struct {
	QuestionID     int     `json:"question_id"`
	Answer         string  `json:"answer"`
	SelectedOption *int    `json:"selected_option,omitempty"`
	IsCorrect      bool    `json:"is_correct"`
	Score          float64 `json:"score"`
}

// Team belongs to exactly one quiz. TotalScore is derived: it always equals
// the sum of the answer scores and is recomputed on every answer mutation.
type Team struct {
	ID           string   `json:"id"`
	QuizCode     string   `json:"quiz_code"`
	Name         string   `json:"name"`
	Answers      []Answer `json:"answers"`
	TotalScore   float64  `json:"total_score"`
	JoinedAt     string   `json:"joined_at"`
	SessionToken string   `json:"session_token"`
}

// AnswerSubmission carries a team's answer to a question. Either Answer or
// SelectedOption identifies the chosen answer; SelectedOption only applies to
// questions that carry options.
type AnswerSubmission struct {
	QuestionID     int
	Answer         string
	SelectedOption *int
}

// QuestionView is a question as shown to teams. It must never carry the
// correct answer.
type QuestionView struct {
	ID      int      `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options,omitempty"`
}

// QuizView is the team-facing projection of a quiz.
type QuizView struct {
	Code                 string         `json:"code"`
	Title                string         `json:"title"`
	Questions            []QuestionView `json:"questions"`
	Status               Status         `json:"status"`
	CurrentQuestionIndex int            `json:"current_question_index"`
	CreatedAt            string         `json:"created_at"`
}

// TeamView projects the quiz for teams, stripping every correct answer.
func (q *Quiz) TeamView() QuizView {
	questions := make([]QuestionView, 0, len(q.Questions))
	for _, question := range q.Questions {
		questions = append(questions, QuestionView{
			ID:      question.ID,
			Text:    question.Text,
			Options: question.Options,
		})
	}
	return QuizView{
		Code:                 q.Code,
		Title:                q.Title,
		Questions:            questions,
		Status:               q.Status,
		CurrentQuestionIndex: q.CurrentQuestionIndex,
		CreatedAt:            q.CreatedAt,
	}
}

// TeamAnswerStatus tells the master whether a team has answered the current
// question. Recomputed on every master read, never cached.
type TeamAnswerStatus struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	HasAnswered bool   `json:"hasAnswered"`
}

// TeamResult is one scoreboard row. Rows are ranked by total score descending
// with join order breaking ties.
type TeamResult struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	TotalScore float64  `json:"total_score"`
	Answers    []Answer `json:"answers"`
}

// QuizSummary is a listing row for the quiz index.
type QuizSummary struct {
	Code          string `json:"code"`
	Title         string `json:"title"`
	Status        Status `json:"status"`
	CreatedAt     string `json:"created_at"`
	QuestionCount int    `json:"question_count"`
}

// timestampLayout is fixed-width so that lexicographic comparison of stored
// timestamps matches chronological order.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// Timestamp renders t in the persisted ISO-8601 form.
func Timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
