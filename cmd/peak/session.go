// cmd/peak/session.go
package main

import (
	"github.com/jason-s-yu/peak/internal/game"
	"github.com/jason-s-yu/peak/internal/rating"
)

// session tallies the games finished at this table and the ratings they produced.
type session struct {
	played  int
	ratings map[string]rating.PlayerRating
}

func newSession() *session {
	return &session{ratings: make(map[string]rating.PlayerRating)}
}

// record folds a finished game into the session.
func (s *session) record(res game.GameResult) {
	s.played++
	for _, r := range rating.FinalizeRatings(res, s.ratings) {
		s.ratings[r.PlayerID] = r
	}
}
