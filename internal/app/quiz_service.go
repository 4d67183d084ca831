package app

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"pubquiz-service/internal/domain"
	"pubquiz-service/internal/validation"
)

// Store abstracts persisted quiz/team state (file-backed in production).
// Loads return (nil, nil) for missing entities; only I/O and parse faults
// are errors. Returned values are snapshots, not live references.
type Store interface {
	SaveQuiz(*domain.Quiz) error
	LoadQuiz(code string) (*domain.Quiz, error)
	QuizExists(code string) bool
	ListQuizzes() ([]domain.Quiz, error)
	SaveTeam(*domain.Team) error
	LoadTeam(teamID, quizCode string) (*domain.Team, error)
	TeamExists(teamID, quizCode string) bool
	ListTeams(quizCode string) ([]domain.Team, error)
}

// QuizService contains the quiz use cases: creation, lifecycle, joining,
// answer submission and grading, score correction, and results.
type QuizService struct {
	store   Store
	tokens  TokenIndex
	now     func() time.Time
	genCode func() string
	sf      singleflight.Group
}

// NewQuizService builds a service over the given store. tokens may be nil;
// token lookups then fall back to the full scan.
func NewQuizService(store Store, tokens TokenIndex) *QuizService {
	return &QuizService{
		store:   store,
		tokens:  tokens,
		now:     time.Now,
		genCode: validation.GenerateQuizCode,
	}
}

// NewQuizServiceWithRand is test-only for deterministic clocks and code draws.
func NewQuizServiceWithRand(store Store, tokens TokenIndex, now func() time.Time, genCode func() string) *QuizService {
	return &QuizService{store: store, tokens: tokens, now: now, genCode: genCode}
}

// CreateQuiz validates title and questions, assigns question IDs in
// submission order, generates a unique code and a fresh master token, and
// persists the quiz as a draft. The returned quiz includes the correct
// answers; only the creator sees it.
func (s *QuizService) CreateQuiz(title string, questions []domain.Question) (*domain.Quiz, error) {
	if err := validation.ValidateQuizTitle(title); err != nil {
		return nil, err
	}
	if err := validation.ValidateQuestions(questions); err != nil {
		return nil, err
	}

	// Retry until the code is unused. Collisions are nearly impossible at
	// 36^6 but the loop is what upholds the uniqueness invariant.
	code := s.genCode()
	for s.store.QuizExists(code) {
		code = s.genCode()
	}

	withIDs := make([]domain.Question, len(questions))
	for i, q := range questions {
		q.ID = i
		withIDs[i] = q
	}

	quiz := &domain.Quiz{
		Code:                 code,
		Title:                strings.TrimSpace(title),
		Questions:            withIDs,
		Status:               domain.StatusDraft,
		CurrentQuestionIndex: 0,
		CreatedAt:            domain.Timestamp(s.now()),
		MasterToken:          uuid.NewString(),
	}
	if err := s.store.SaveQuiz(quiz); err != nil {
		return nil, err
	}
	return quiz, nil
}

// GetQuizForTeam loads a quiz and strips every correct answer. This
// projection is the security boundary for team-facing reads.
func (s *QuizService) GetQuizForTeam(code string) (*domain.QuizView, error) {
	quiz, err := s.loadQuiz(code)
	if err != nil {
		return nil, err
	}
	view := quiz.TeamView()
	return &view, nil
}

// GetQuizForMaster returns the full quiz plus, per team, whether it has
// answered the current question. hasAnswered is recomputed on every call.
func (s *QuizService) GetQuizForMaster(code string) (*domain.Quiz, []domain.TeamAnswerStatus, error) {
	quiz, err := s.loadQuiz(code)
	if err != nil {
		return nil, nil, err
	}
	teams, err := s.store.ListTeams(code)
	if err != nil {
		return nil, nil, err
	}

	statuses := make([]domain.TeamAnswerStatus, 0, len(teams))
	for _, team := range teams {
		answered := false
		for _, a := range team.Answers {
			if a.QuestionID == quiz.CurrentQuestionIndex {
				answered = true
				break
			}
		}
		statuses = append(statuses, domain.TeamAnswerStatus{
			ID:          team.ID,
			Name:        team.Name,
			HasAnswered: answered,
		})
	}
	return quiz, statuses, nil
}

// ListQuizzes returns summaries of every quiz, newest first.
func (s *QuizService) ListQuizzes() ([]domain.QuizSummary, error) {
	quizzes, err := s.store.ListQuizzes()
	if err != nil {
		return nil, err
	}
	summaries := make([]domain.QuizSummary, 0, len(quizzes))
	for _, quiz := range quizzes {
		summaries = append(summaries, domain.QuizSummary{
			Code:          quiz.Code,
			Title:         quiz.Title,
			Status:        quiz.Status,
			CreatedAt:     quiz.CreatedAt,
			QuestionCount: len(quiz.Questions),
		})
	}
	return summaries, nil
}

// UpdateStatus overwrites the quiz status. Any valid status value is
// accepted in any current state; the business flow draft->active->finished
// is not enforced server-side.
func (s *QuizService) UpdateStatus(code string, status domain.Status) (*domain.Quiz, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: invalid status value", domain.ErrValidation)
	}
	quiz, err := s.loadQuiz(code)
	if err != nil {
		return nil, err
	}
	quiz.Status = status
	if err := s.store.SaveQuiz(quiz); err != nil {
		return nil, err
	}
	return quiz, nil
}

// AdvanceQuestion moves the current question index. The index must address
// an existing question.
func (s *QuizService) AdvanceQuestion(code string, index int) (*domain.Quiz, error) {
	quiz, err := s.loadQuiz(code)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateQuestionIndex(index, len(quiz.Questions)); err != nil {
		return nil, err
	}
	quiz.CurrentQuestionIndex = index
	if err := s.store.SaveQuiz(quiz); err != nil {
		return nil, err
	}
	return quiz, nil
}

// JoinTeam creates a team in an active quiz. Names are unique per quiz,
// compared case-insensitively after trimming.
func (s *QuizService) JoinTeam(quizCode, teamName string) (*domain.Team, error) {
	if err := validation.ValidateTeamName(teamName); err != nil {
		return nil, err
	}
	quiz, err := s.loadQuiz(quizCode)
	if err != nil {
		return nil, err
	}
	if quiz.Status != domain.StatusActive {
		return nil, fmt.Errorf("%w: quiz is not active", domain.ErrInvalidState)
	}

	trimmed := strings.TrimSpace(teamName)
	existing, err := s.store.ListTeams(quizCode)
	if err != nil {
		return nil, err
	}
	for _, team := range existing {
		if strings.EqualFold(strings.TrimSpace(team.Name), trimmed) {
			return nil, fmt.Errorf("%w: team name already exists in this quiz", domain.ErrConflict)
		}
	}

	team := &domain.Team{
		ID:           uuid.NewString(),
		QuizCode:     quizCode,
		Name:         trimmed,
		Answers:      []domain.Answer{},
		TotalScore:   0,
		JoinedAt:     domain.Timestamp(s.now()),
		SessionToken: uuid.NewString(),
	}
	if err := s.store.SaveTeam(team); err != nil {
		return nil, err
	}
	return team, nil
}

// GetTeam loads one team.
func (s *QuizService) GetTeam(teamID, quizCode string) (*domain.Team, error) {
	team, err := s.store.LoadTeam(teamID, quizCode)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, fmt.Errorf("%w: team not found", domain.ErrNotFound)
	}
	return team, nil
}

// SubmitAnswer grades a submission against the question's correct answer and
// upserts it into the team's answers keyed by question id. Resubmission
// overwrites the prior answer in place; the total score is recomputed from
// the answers on every mutation. Grading is authoritative: the submitter
// cannot set the score.
func (s *QuizService) SubmitAnswer(teamID, quizCode string, sub domain.AnswerSubmission) (*domain.Answer, float64, error) {
	if sub.SelectedOption == nil && strings.TrimSpace(sub.Answer) == "" {
		return nil, 0, fmt.Errorf("%w: answer cannot be empty", domain.ErrValidation)
	}

	team, err := s.GetTeam(teamID, quizCode)
	if err != nil {
		return nil, 0, err
	}
	quiz, err := s.loadQuiz(quizCode)
	if err != nil {
		return nil, 0, err
	}
	if quiz.Status != domain.StatusActive {
		return nil, 0, fmt.Errorf("%w: quiz is not active", domain.ErrInvalidState)
	}

	var question *domain.Question
	for i := range quiz.Questions {
		if quiz.Questions[i].ID == sub.QuestionID {
			question = &quiz.Questions[i]
			break
		}
	}
	if question == nil {
		return nil, 0, fmt.Errorf("%w: question not found", domain.ErrNotFound)
	}

	answer, err := gradeSubmission(*question, sub)
	if err != nil {
		return nil, 0, err
	}

	upsertAnswer(team, answer)
	team.TotalScore = totalScore(team.Answers)
	if err := s.store.SaveTeam(team); err != nil {
		return nil, 0, err
	}
	return &answer, team.TotalScore, nil
}

// UpdateAnswerScore is the master's correction path: it overwrites the score
// of an already-submitted answer with 0, 0.5 or 1 and recomputes the total.
// It never creates an answer.
func (s *QuizService) UpdateAnswerScore(teamID, quizCode string, questionID int, score float64) (*domain.Team, error) {
	if err := validation.ValidateScore(score); err != nil {
		return nil, err
	}
	team, err := s.GetTeam(teamID, quizCode)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i := range team.Answers {
		if team.Answers[i].QuestionID == questionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: answer for question %d not found", domain.ErrNotFound, questionID)
	}

	team.Answers[idx].Score = score
	team.Answers[idx].IsCorrect = score == 1
	team.TotalScore = totalScore(team.Answers)
	if err := s.store.SaveTeam(team); err != nil {
		return nil, err
	}
	return team, nil
}

// Results returns the quiz plus all teams ranked by total score descending.
// Ties keep join order: the team list is joined_at-ascending and the sort is
// stable.
func (s *QuizService) Results(code string) (*domain.Quiz, []domain.TeamResult, error) {
	quiz, err := s.loadQuiz(code)
	if err != nil {
		return nil, nil, err
	}
	teams, err := s.store.ListTeams(code)
	if err != nil {
		return nil, nil, err
	}

	results := make([]domain.TeamResult, 0, len(teams))
	for _, team := range teams {
		results = append(results, domain.TeamResult{
			ID:         team.ID,
			Name:       team.Name,
			TotalScore: team.TotalScore,
			Answers:    team.Answers,
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].TotalScore > results[j].TotalScore
	})
	return quiz, results, nil
}

func (s *QuizService) loadQuiz(code string) (*domain.Quiz, error) {
	quiz, err := s.store.LoadQuiz(code)
	if err != nil {
		return nil, err
	}
	if quiz == nil {
		return nil, fmt.Errorf("%w: quiz not found", domain.ErrNotFound)
	}
	return quiz, nil
}

// gradeSubmission resolves the submitted answer text (directly, or through
// the selected option of a multiple-choice question) and compares it to the
// correct answer, trimmed and case-insensitive.
func gradeSubmission(question domain.Question, sub domain.AnswerSubmission) (domain.Answer, error) {
	answerText := strings.TrimSpace(sub.Answer)
	if sub.SelectedOption != nil {
		if len(question.Options) == 0 {
			return domain.Answer{}, fmt.Errorf("%w: question %d has no options", domain.ErrValidation, question.ID)
		}
		idx := *sub.SelectedOption
		if idx < 0 || idx >= len(question.Options) {
			return domain.Answer{}, fmt.Errorf("%w: selected option out of range", domain.ErrValidation)
		}
		answerText = question.Options[idx]
	}

	isCorrect := strings.EqualFold(strings.TrimSpace(question.Correct), answerText)
	score := 0.0
	if isCorrect {
		score = 1.0
	}
	return domain.Answer{
		QuestionID:     question.ID,
		Answer:         answerText,
		SelectedOption: sub.SelectedOption,
		IsCorrect:      isCorrect,
		Score:          score,
	}, nil
}

// upsertAnswer replaces an existing answer for the question in place,
// preserving array position, or appends a new one.
func upsertAnswer(team *domain.Team, answer domain.Answer) {
	for i := range team.Answers {
		if team.Answers[i].QuestionID == answer.QuestionID {
			team.Answers[i] = answer
			return
		}
	}
	team.Answers = append(team.Answers, answer)
}

func totalScore(answers []domain.Answer) float64 {
	sum := 0.0
	for _, a := range answers {
		sum += a.Score
	}
	return sum
}
