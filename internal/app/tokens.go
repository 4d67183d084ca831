package app

import (
	"context"
	"fmt"

	"pubquiz-service/internal/domain"
)

// TokenIndex optionally maps bearer tokens to quiz codes so token resolution
// can skip the directory scan. The index is a hint, never the source of
// truth: every hit is re-verified against the stored entity, so a stale or
// poisoned entry cannot grant access.
type TokenIndex interface {
	PutMaster(ctx context.Context, token, code string)
	LookupMaster(ctx context.Context, token string) (string, bool)
	PutSession(ctx context.Context, token, code string)
	LookupSession(ctx context.Context, token string) (string, bool)
}

// FindQuizByMasterToken resolves a master token to its quiz. Possession of
// the token is the sole authorization for master operations. Without an
// index hit this is a linear scan over all quizzes; concurrent scans for the
// same token are collapsed.
func (s *QuizService) FindQuizByMasterToken(ctx context.Context, token string) (*domain.Quiz, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: quiz not found", domain.ErrNotFound)
	}

	if s.tokens != nil {
		if code, ok := s.tokens.LookupMaster(ctx, token); ok {
			quiz, err := s.store.LoadQuiz(code)
			if err != nil {
				return nil, err
			}
			if quiz != nil && quiz.MasterToken == token {
				return quiz, nil
			}
		}
	}

	v, err, _ := s.sf.Do("master:"+token, func() (interface{}, error) {
		quizzes, err := s.store.ListQuizzes()
		if err != nil {
			return nil, err
		}
		for i := range quizzes {
			if quizzes[i].MasterToken == token {
				if s.tokens != nil {
					s.tokens.PutMaster(ctx, token, quizzes[i].Code)
				}
				return &quizzes[i], nil
			}
		}
		return nil, fmt.Errorf("%w: quiz not found", domain.ErrNotFound)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Quiz), nil
}

// FindTeamBySessionToken resolves a session token to its team by scanning
// every quiz's teams. The index narrows the scan to one quiz when it hits.
func (s *QuizService) FindTeamBySessionToken(ctx context.Context, token string) (*domain.Team, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: team not found", domain.ErrNotFound)
	}

	if s.tokens != nil {
		if code, ok := s.tokens.LookupSession(ctx, token); ok {
			if team, err := s.findTeamInQuiz(code, token); err != nil {
				return nil, err
			} else if team != nil {
				return team, nil
			}
		}
	}

	v, err, _ := s.sf.Do("session:"+token, func() (interface{}, error) {
		quizzes, err := s.store.ListQuizzes()
		if err != nil {
			return nil, err
		}
		for _, quiz := range quizzes {
			team, err := s.findTeamInQuiz(quiz.Code, token)
			if err != nil {
				return nil, err
			}
			if team != nil {
				if s.tokens != nil {
					s.tokens.PutSession(ctx, token, quiz.Code)
				}
				return team, nil
			}
		}
		return nil, fmt.Errorf("%w: team not found", domain.ErrNotFound)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Team), nil
}

func (s *QuizService) findTeamInQuiz(quizCode, token string) (*domain.Team, error) {
	teams, err := s.store.ListTeams(quizCode)
	if err != nil {
		return nil, err
	}
	for i := range teams {
		if teams[i].SessionToken == token {
			return &teams[i], nil
		}
	}
	return nil, nil
}
