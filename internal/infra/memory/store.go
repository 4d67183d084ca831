// Package memory holds an in-memory implementation of app.Store, useful for
// unit tests and demos that should not touch the filesystem.
package memory

import (
	"sort"
	"sync"

	"pubquiz-service/internal/domain"
)

// Store keeps quizzes and teams in maps, guarded by one RWMutex. Loads
// return copies so callers get snapshot semantics matching the file store.
type Store struct {
	mu      sync.RWMutex
	quizzes map[string]domain.Quiz
	teams   map[string]map[string]domain.Team // quiz code -> team id -> team
}

func NewStore() *Store {
	return &Store{
		quizzes: make(map[string]domain.Quiz),
		teams:   make(map[string]map[string]domain.Team),
	}
}

func (s *Store) SaveQuiz(quiz *domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes[quiz.Code] = *quiz
	return nil
}

func (s *Store) LoadQuiz(code string) (*domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[code]
	if !ok {
		return nil, nil
	}
	return &quiz, nil
}

func (s *Store) QuizExists(code string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.quizzes[code]
	return ok
}

func (s *Store) ListQuizzes() ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quizzes := make([]domain.Quiz, 0, len(s.quizzes))
	for _, quiz := range s.quizzes {
		quizzes = append(quizzes, quiz)
	}
	sort.Slice(quizzes, func(i, j int) bool {
		return quizzes[i].CreatedAt > quizzes[j].CreatedAt
	})
	return quizzes, nil
}

func (s *Store) SaveTeam(team *domain.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.teams[team.QuizCode] == nil {
		s.teams[team.QuizCode] = make(map[string]domain.Team)
	}
	s.teams[team.QuizCode][team.ID] = *team
	return nil
}

func (s *Store) LoadTeam(teamID, quizCode string) (*domain.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	team, ok := s.teams[quizCode][teamID]
	if !ok {
		return nil, nil
	}
	return &team, nil
}

func (s *Store) TeamExists(teamID, quizCode string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.teams[quizCode][teamID]
	return ok
}

func (s *Store) ListTeams(quizCode string) ([]domain.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	teams := make([]domain.Team, 0, len(s.teams[quizCode]))
	for _, team := range s.teams[quizCode] {
		teams = append(teams, team)
	}
	sort.SliceStable(teams, func(i, j int) bool {
		return teams[i].JoinedAt < teams[j].JoinedAt
	})
	return teams, nil
}
