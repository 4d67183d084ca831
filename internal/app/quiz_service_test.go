package app_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"pubquiz-service/internal/app"
	"pubquiz-service/internal/domain"
	"pubquiz-service/internal/infra/fsstore"
	"pubquiz-service/internal/infra/memory"
	"pubquiz-service/internal/validation"
)

// fakeClock advances one second per reading so joined_at/created_at
// timestamps are distinct and deterministic.
type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTempStore(t *testing.T) *fsstore.Store {
	t.Helper()
	store, err := fsstore.New(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func newTestService(t *testing.T) (*app.QuizService, app.Store) {
	t.Helper()
	store := newTempStore(t)
	clk := &fakeClock{t: time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)}
	return app.NewQuizServiceWithRand(store, nil, clk.Now, validation.GenerateQuizCode), store
}

func mustCreateActive(t *testing.T, service *app.QuizService, questions ...domain.Question) *domain.Quiz {
	t.Helper()
	if len(questions) == 0 {
		questions = []domain.Question{{Text: "Sky color?", Correct: "Blue"}}
	}
	quiz, err := service.CreateQuiz("Pub Quiz 2026", questions)
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	if _, err := service.UpdateStatus(quiz.Code, domain.StatusActive); err != nil {
		t.Fatalf("activate: %v", err)
	}
	return quiz
}

func TestFullQuizScenario(t *testing.T) {
	service, _ := newTestService(t)

	quiz, err := service.CreateQuiz("Pub Quiz 2026", []domain.Question{{Text: "Sky color?", Correct: "Blue"}})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	if quiz.Status != domain.StatusDraft {
		t.Fatalf("expected draft status, got %s", quiz.Status)
	}
	if quiz.Questions[0].ID != 0 {
		t.Fatalf("expected question id 0, got %d", quiz.Questions[0].ID)
	}
	if quiz.MasterToken == "" || quiz.MasterToken == quiz.Code {
		t.Fatalf("expected independent master token, got %q", quiz.MasterToken)
	}

	if _, err := service.UpdateStatus(quiz.Code, domain.StatusActive); err != nil {
		t.Fatalf("activate: %v", err)
	}

	team, err := service.JoinTeam(quiz.Code, "Alpha")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if team.TotalScore != 0 || len(team.Answers) != 0 {
		t.Fatalf("fresh team should have no score, got %+v", team)
	}
	if team.SessionToken == "" {
		t.Fatalf("expected session token")
	}

	answer, total, err := service.SubmitAnswer(team.ID, quiz.Code, domain.AnswerSubmission{QuestionID: 0, Answer: "blue"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !answer.IsCorrect || answer.Score != 1.0 {
		t.Fatalf("case-insensitive grading failed: %+v", answer)
	}
	if total != 1.0 {
		t.Fatalf("expected total 1.0, got %v", total)
	}

	corrected, err := service.UpdateAnswerScore(team.ID, quiz.Code, 0, 0.5)
	if err != nil {
		t.Fatalf("correct score: %v", err)
	}
	if corrected.TotalScore != 0.5 {
		t.Fatalf("expected total 0.5, got %v", corrected.TotalScore)
	}
	if corrected.Answers[0].IsCorrect {
		t.Fatalf("0.5 must mark the answer incorrect")
	}

	_, results, err := service.Results(quiz.Code)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(results) != 1 || results[0].Name != "Alpha" || results[0].TotalScore != 0.5 {
		t.Fatalf("unexpected results %+v", results)
	}
}

func TestCreateQuizValidation(t *testing.T) {
	service, _ := newTestService(t)

	if _, err := service.CreateQuiz("  ", []domain.Question{{Text: "q", Correct: "a"}}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for blank title, got %v", err)
	}
	_, err := service.CreateQuiz("Quiz", []domain.Question{
		{Text: "q1", Correct: "a"},
		{Text: "", Correct: "a"},
	})
	if !errors.Is(err, domain.ErrValidation) || !strings.Contains(err.Error(), "question 2") {
		t.Fatalf("expected position in validation error, got %v", err)
	}
}

func TestCreateQuizAssignsSequentialIDs(t *testing.T) {
	service, _ := newTestService(t)
	quiz, err := service.CreateQuiz("Quiz", []domain.Question{
		{ID: 99, Text: "q1", Correct: "a"},
		{ID: 99, Text: "q2", Correct: "b"},
		{ID: 99, Text: "q3", Correct: "c"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for i, q := range quiz.Questions {
		if q.ID != i {
			t.Fatalf("question %d has id %d", i, q.ID)
		}
	}
}

func TestCreateQuizRetriesCollidingCodes(t *testing.T) {
	store := memory.NewStore()
	if err := store.SaveQuiz(&domain.Quiz{Code: "TAKEN1", CreatedAt: "2026-08-29T09:00:00.000Z"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	draws := []string{"TAKEN1", "TAKEN1", "FRESH1"}
	genCode := func() string {
		code := draws[0]
		if len(draws) > 1 {
			draws = draws[1:]
		}
		return code
	}
	clk := &fakeClock{t: time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)}
	service := app.NewQuizServiceWithRand(store, nil, clk.Now, genCode)

	quiz, err := service.CreateQuiz("Quiz", []domain.Question{{Text: "q", Correct: "a"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if quiz.Code != "FRESH1" {
		t.Fatalf("expected retry until unused code, got %s", quiz.Code)
	}
}

func TestJoinRequiresActiveQuiz(t *testing.T) {
	service, _ := newTestService(t)

	if _, err := service.JoinTeam("NOPE42", "Alpha"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for unknown quiz, got %v", err)
	}

	quiz, err := service.CreateQuiz("Quiz", []domain.Question{{Text: "q", Correct: "a"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := service.JoinTeam(quiz.Code, "Alpha"); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state for draft quiz, got %v", err)
	}

	if _, err := service.UpdateStatus(quiz.Code, domain.StatusFinished); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if _, err := service.JoinTeam(quiz.Code, "Alpha"); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state for finished quiz, got %v", err)
	}

	if _, err := service.UpdateStatus(quiz.Code, domain.StatusActive); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if _, err := service.JoinTeam(quiz.Code, "Alpha"); err != nil {
		t.Fatalf("expected join to succeed on active quiz, got %v", err)
	}
}

func TestJoinRejectsCaseInsensitiveDuplicateNames(t *testing.T) {
	service, _ := newTestService(t)
	quiz := mustCreateActive(t, service)

	if _, err := service.JoinTeam(quiz.Code, "X"); err != nil {
		t.Fatalf("first join: %v", err)
	}
	if _, err := service.JoinTeam(quiz.Code, "x"); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict for case-differing name, got %v", err)
	}
	if _, err := service.JoinTeam(quiz.Code, "  X  "); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict for padded duplicate name, got %v", err)
	}
}

func TestSubmitAnswerUpsertsByQuestionID(t *testing.T) {
	service, store := newTestService(t)
	quiz := mustCreateActive(t, service,
		domain.Question{Text: "q1", Correct: "a"},
		domain.Question{Text: "q2", Correct: "b"},
	)
	team, err := service.JoinTeam(quiz.Code, "Alpha")
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	if _, _, err := service.SubmitAnswer(team.ID, quiz.Code, domain.AnswerSubmission{QuestionID: 0, Answer: "a"}); err != nil {
		t.Fatalf("submit 1: %v", err)
	}
	if _, _, err := service.SubmitAnswer(team.ID, quiz.Code, domain.AnswerSubmission{QuestionID: 1, Answer: "wrong"}); err != nil {
		t.Fatalf("submit 2: %v", err)
	}
	// Resubmission for question 0 overwrites in place.
	answer, total, err := service.SubmitAnswer(team.ID, quiz.Code, domain.AnswerSubmission{QuestionID: 0, Answer: "nope"})
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if answer.IsCorrect || answer.Score != 0 {
		t.Fatalf("resubmitted wrong answer should score 0, got %+v", answer)
	}
	if total != 0 {
		t.Fatalf("expected total 0 after downgrade, got %v", total)
	}

	loaded, err := store.LoadTeam(team.ID, quiz.Code)
	if err != nil {
		t.Fatalf("load team: %v", err)
	}
	if len(loaded.Answers) != 2 {
		t.Fatalf("expected 2 answers (upsert, not append), got %d", len(loaded.Answers))
	}
	if loaded.Answers[0].QuestionID != 0 || loaded.Answers[0].Answer != "nope" {
		t.Fatalf("resubmission must keep array position: %+v", loaded.Answers)
	}
	if loaded.TotalScore != loaded.Answers[0].Score+loaded.Answers[1].Score {
		t.Fatalf("total %v != sum of answers", loaded.TotalScore)
	}
}

func TestSubmitAnswerErrors(t *testing.T) {
	service, _ := newTestService(t)
	quiz := mustCreateActive(t, service)
	team, err := service.JoinTeam(quiz.Code, "Alpha")
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	if _, _, err := service.SubmitAnswer(team.ID, quiz.Code, domain.AnswerSubmission{QuestionID: 0, Answer: "  "}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for blank answer, got %v", err)
	}
	if _, _, err := service.SubmitAnswer("ghost", quiz.Code, domain.AnswerSubmission{QuestionID: 0, Answer: "blue"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for unknown team, got %v", err)
	}
	if _, _, err := service.SubmitAnswer(team.ID, quiz.Code, domain.AnswerSubmission{QuestionID: 7, Answer: "blue"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for unknown question, got %v", err)
	}

	if _, err := service.UpdateStatus(quiz.Code, domain.StatusFinished); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if _, _, err := service.SubmitAnswer(team.ID, quiz.Code, domain.AnswerSubmission{QuestionID: 0, Answer: "blue"}); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state after finish, got %v", err)
	}
}

func TestSubmitAnswerBySelectedOption(t *testing.T) {
	service, _ := newTestService(t)
	quiz := mustCreateActive(t, service, domain.Question{
		Text:    "Sky color?",
		Correct: "Blue",
		Options: []string{"Red", "Blue", "Green"},
	})
	team, err := service.JoinTeam(quiz.Code, "Alpha")
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	right := 1
	answer, total, err := service.SubmitAnswer(team.ID, quiz.Code, domain.AnswerSubmission{QuestionID: 0, SelectedOption: &right})
	if err != nil {
		t.Fatalf("submit option: %v", err)
	}
	if !answer.IsCorrect || total != 1.0 || answer.Answer != "Blue" {
		t.Fatalf("expected option 1 graded correct, got %+v total %v", answer, total)
	}

	wrong := 0
	answer, _, err = service.SubmitAnswer(team.ID, quiz.Code, domain.AnswerSubmission{QuestionID: 0, SelectedOption: &wrong})
	if err != nil {
		t.Fatalf("submit wrong option: %v", err)
	}
	if answer.IsCorrect || answer.Score != 0 {
		t.Fatalf("expected option 0 graded wrong, got %+v", answer)
	}

	outOfRange := 3
	if _, _, err := service.SubmitAnswer(team.ID, quiz.Code, domain.AnswerSubmission{QuestionID: 0, SelectedOption: &outOfRange}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for out-of-range option, got %v", err)
	}

	// Free-text against an options question still grades.
	answer, _, err = service.SubmitAnswer(team.ID, quiz.Code, domain.AnswerSubmission{QuestionID: 0, Answer: " blue "})
	if err != nil {
		t.Fatalf("free text on options question: %v", err)
	}
	if !answer.IsCorrect {
		t.Fatalf("expected trimmed case-insensitive text match, got %+v", answer)
	}
}

func TestSelectedOptionOnFreeTextQuestionFails(t *testing.T) {
	service, _ := newTestService(t)
	quiz := mustCreateActive(t, service)
	team, err := service.JoinTeam(quiz.Code, "Alpha")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	sel := 0
	if _, _, err := service.SubmitAnswer(team.ID, quiz.Code, domain.AnswerSubmission{QuestionID: 0, SelectedOption: &sel}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateAnswerScore(t *testing.T) {
	service, _ := newTestService(t)
	quiz := mustCreateActive(t, service)
	team, err := service.JoinTeam(quiz.Code, "Alpha")
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	if _, err := service.UpdateAnswerScore(team.ID, quiz.Code, 0, 0.3); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for score 0.3, got %v", err)
	}
	// Correcting a never-submitted answer must not create one.
	if _, err := service.UpdateAnswerScore(team.ID, quiz.Code, 0, 1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for missing answer, got %v", err)
	}

	if _, _, err := service.SubmitAnswer(team.ID, quiz.Code, domain.AnswerSubmission{QuestionID: 0, Answer: "wrong"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	updated, err := service.UpdateAnswerScore(team.ID, quiz.Code, 0, 1)
	if err != nil {
		t.Fatalf("update score: %v", err)
	}
	if !updated.Answers[0].IsCorrect || updated.TotalScore != 1 {
		t.Fatalf("score 1 must mark correct, got %+v", updated)
	}
}

func TestAdvanceQuestionRange(t *testing.T) {
	service, _ := newTestService(t)
	quiz := mustCreateActive(t, service,
		domain.Question{Text: "q1", Correct: "a"},
		domain.Question{Text: "q2", Correct: "b"},
	)

	if _, err := service.AdvanceQuestion(quiz.Code, 2); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected range error for index == len, got %v", err)
	}
	if _, err := service.AdvanceQuestion(quiz.Code, -1); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected range error for negative index, got %v", err)
	}
	updated, err := service.AdvanceQuestion(quiz.Code, 1)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if updated.CurrentQuestionIndex != 1 {
		t.Fatalf("expected index 1, got %d", updated.CurrentQuestionIndex)
	}
}

func TestUpdateStatusRejectsUnknownValue(t *testing.T) {
	service, _ := newTestService(t)
	quiz := mustCreateActive(t, service)
	if _, err := service.UpdateStatus(quiz.Code, domain.Status("paused")); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for unknown status, got %v", err)
	}
	// Backwards transitions are permitted.
	if _, err := service.UpdateStatus(quiz.Code, domain.StatusDraft); err != nil {
		t.Fatalf("expected permissive transition, got %v", err)
	}
}

func TestResultsRankingWithStableTies(t *testing.T) {
	service, _ := newTestService(t)
	quiz := mustCreateActive(t, service,
		domain.Question{Text: "q1", Correct: "a"},
		domain.Question{Text: "q2", Correct: "b"},
	)

	first, _ := service.JoinTeam(quiz.Code, "First")
	second, _ := service.JoinTeam(quiz.Code, "Second")
	third, _ := service.JoinTeam(quiz.Code, "Third")

	// Third scores 2, First and Second tie at 1.
	if _, _, err := service.SubmitAnswer(third.ID, quiz.Code, domain.AnswerSubmission{QuestionID: 0, Answer: "a"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, _, err := service.SubmitAnswer(third.ID, quiz.Code, domain.AnswerSubmission{QuestionID: 1, Answer: "b"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, _, err := service.SubmitAnswer(first.ID, quiz.Code, domain.AnswerSubmission{QuestionID: 0, Answer: "a"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, _, err := service.SubmitAnswer(second.ID, quiz.Code, domain.AnswerSubmission{QuestionID: 1, Answer: "b"}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	_, results, err := service.Results(quiz.Code)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	names := []string{results[0].Name, results[1].Name, results[2].Name}
	want := []string{"Third", "First", "Second"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected ranking %v, got %v", want, names)
		}
	}
}

func TestGetQuizForMasterComputesHasAnswered(t *testing.T) {
	service, _ := newTestService(t)
	quiz := mustCreateActive(t, service,
		domain.Question{Text: "q1", Correct: "a"},
		domain.Question{Text: "q2", Correct: "b"},
	)
	alpha, _ := service.JoinTeam(quiz.Code, "Alpha")
	if _, err := service.JoinTeam(quiz.Code, "Beta"); err != nil {
		t.Fatalf("join: %v", err)
	}

	if _, _, err := service.SubmitAnswer(alpha.ID, quiz.Code, domain.AnswerSubmission{QuestionID: 0, Answer: "a"}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	_, statuses, err := service.GetQuizForMaster(quiz.Code)
	if err != nil {
		t.Fatalf("master view: %v", err)
	}
	if !statuses[0].HasAnswered || statuses[1].HasAnswered {
		t.Fatalf("expected only Alpha answered, got %+v", statuses)
	}

	// Advancing the question resets the live view.
	if _, err := service.AdvanceQuestion(quiz.Code, 1); err != nil {
		t.Fatalf("advance: %v", err)
	}
	_, statuses, err = service.GetQuizForMaster(quiz.Code)
	if err != nil {
		t.Fatalf("master view: %v", err)
	}
	if statuses[0].HasAnswered || statuses[1].HasAnswered {
		t.Fatalf("expected nobody answered question 1, got %+v", statuses)
	}
}

func TestTeamViewNeverExposesCorrectAnswers(t *testing.T) {
	service, _ := newTestService(t)
	quiz := mustCreateActive(t, service, domain.Question{
		Text:    "Sky color?",
		Correct: "Blue",
		Options: []string{"Red", "Blue"},
	})

	view, err := service.GetQuizForTeam(quiz.Code)
	if err != nil {
		t.Fatalf("team view: %v", err)
	}
	raw, err := json.Marshal(view)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(raw), `"correct"`) {
		t.Fatalf("team view leaks correct answers:\n%s", raw)
	}
	if strings.Contains(string(raw), "master_token") {
		t.Fatalf("team view leaks master token:\n%s", raw)
	}
	// Options stay visible so teams can pick one.
	if !strings.Contains(string(raw), `"options"`) {
		t.Fatalf("team view should keep options:\n%s", raw)
	}
}

func TestListQuizzes(t *testing.T) {
	service, _ := newTestService(t)
	a, err := service.CreateQuiz("First", []domain.Question{{Text: "q", Correct: "a"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	b, err := service.CreateQuiz("Second", []domain.Question{{Text: "q", Correct: "a"}, {Text: "q2", Correct: "b"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	summaries, err := service.ListQuizzes()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 quizzes, got %d", len(summaries))
	}
	// Newest first.
	if summaries[0].Code != b.Code || summaries[1].Code != a.Code {
		t.Fatalf("expected newest first, got %+v", summaries)
	}
	if summaries[0].QuestionCount != 2 {
		t.Fatalf("expected question count 2, got %d", summaries[0].QuestionCount)
	}
}
