// Package fsstore persists quizzes and teams as JSON files, one file per
// entity: quizzes/<CODE>.json and teams/<CODE>/<teamID>.json. Every write
// goes through an atomic temp-write+rename and every read takes a shared
// lock, so single-file operations are all-or-nothing. The load/save pair
// inside a business operation is not covered by one lock: concurrent writers
// to the same entity are last-write-wins.
package fsstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"pubquiz-service/internal/domain"
)

// Store maps entity identity to filesystem location. Construct one per data
// directory and share it; it holds no mutable state of its own.
type Store struct {
	quizzesDir string
	teamsDir   string
}

// New creates the data directories if absent and returns a store rooted at
// dataDir.
func New(dataDir string) (*Store, error) {
	s := &Store{
		quizzesDir: filepath.Join(dataDir, "quizzes"),
		teamsDir:   filepath.Join(dataDir, "teams"),
	}
	for _, dir := range []string{s.quizzesDir, s.teamsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create %s: %v", domain.ErrStorage, dir, err)
		}
	}
	return s, nil
}

func (s *Store) quizPath(code string) string {
	return filepath.Join(s.quizzesDir, code+".json")
}

func (s *Store) teamPath(teamID, quizCode string) string {
	return filepath.Join(s.teamsDir, quizCode, teamID+".json")
}

// SaveQuiz writes the full quiz record atomically.
func (s *Store) SaveQuiz(quiz *domain.Quiz) error {
	data, err := json.MarshalIndent(quiz, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal quiz %s: %v", domain.ErrStorage, quiz.Code, err)
	}
	if err := writeAtomic(s.quizPath(quiz.Code), data); err != nil {
		return fmt.Errorf("%w: save quiz %s: %v", domain.ErrStorage, quiz.Code, err)
	}
	return nil
}

// LoadQuiz returns (nil, nil) when no quiz with the code exists. A corrupt
// or unreadable file surfaces as ErrStorage.
func (s *Store) LoadQuiz(code string) (*domain.Quiz, error) {
	data, err := readLocked(s.quizPath(code))
	if err != nil {
		return nil, fmt.Errorf("%w: load quiz %s: %v", domain.ErrStorage, code, err)
	}
	if data == nil {
		return nil, nil
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(data, &quiz); err != nil {
		return nil, fmt.Errorf("%w: parse quiz %s: %v", domain.ErrStorage, code, err)
	}
	return &quiz, nil
}

// QuizExists reports whether a quiz file exists for the code.
func (s *Store) QuizExists(code string) bool {
	_, err := os.Stat(s.quizPath(code))
	return err == nil
}

// ListQuizzes scans the quiz directory and returns every quiz ordered by
// created_at descending. The full scan is deliberate: at pub-quiz scale an
// index buys nothing.
func (s *Store) ListQuizzes() ([]domain.Quiz, error) {
	entries, err := os.ReadDir(s.quizzesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: list quizzes: %v", domain.ErrStorage, err)
	}

	quizzes := make([]domain.Quiz, 0, len(entries))
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		code := strings.TrimSuffix(entry.Name(), ".json")
		quiz, err := s.LoadQuiz(code)
		if err != nil {
			return nil, err
		}
		if quiz != nil {
			quizzes = append(quizzes, *quiz)
		}
	}
	sort.Slice(quizzes, func(i, j int) bool {
		return quizzes[i].CreatedAt > quizzes[j].CreatedAt
	})
	return quizzes, nil
}

// SaveTeam writes the full team record atomically, creating the quiz's team
// subdirectory if absent.
func (s *Store) SaveTeam(team *domain.Team) error {
	data, err := json.MarshalIndent(team, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal team %s: %v", domain.ErrStorage, team.ID, err)
	}
	if err := writeAtomic(s.teamPath(team.ID, team.QuizCode), data); err != nil {
		return fmt.Errorf("%w: save team %s: %v", domain.ErrStorage, team.ID, err)
	}
	return nil
}

// LoadTeam returns (nil, nil) when the team does not exist.
func (s *Store) LoadTeam(teamID, quizCode string) (*domain.Team, error) {
	data, err := readLocked(s.teamPath(teamID, quizCode))
	if err != nil {
		return nil, fmt.Errorf("%w: load team %s: %v", domain.ErrStorage, teamID, err)
	}
	if data == nil {
		return nil, nil
	}
	var team domain.Team
	if err := json.Unmarshal(data, &team); err != nil {
		return nil, fmt.Errorf("%w: parse team %s: %v", domain.ErrStorage, teamID, err)
	}
	return &team, nil
}

// TeamExists reports whether a team file exists for the id within the quiz.
func (s *Store) TeamExists(teamID, quizCode string) bool {
	_, err := os.Stat(s.teamPath(teamID, quizCode))
	return err == nil
}

// ListTeams returns every team of a quiz ordered by joined_at ascending.
// A quiz with no teams yet (directory absent) yields an empty list.
func (s *Store) ListTeams(quizCode string) ([]domain.Team, error) {
	dir := filepath.Join(s.teamsDir, quizCode)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: list teams for %s: %v", domain.ErrStorage, quizCode, err)
	}

	teams := make([]domain.Team, 0, len(entries))
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		teamID := strings.TrimSuffix(entry.Name(), ".json")
		team, err := s.LoadTeam(teamID, quizCode)
		if err != nil {
			return nil, err
		}
		if team != nil {
			teams = append(teams, *team)
		}
	}
	sort.SliceStable(teams, func(i, j int) bool {
		return teams[i].JoinedAt < teams[j].JoinedAt
	})
	return teams, nil
}
