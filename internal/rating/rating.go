// internal/rating/rating.go
package rating

import (
	"sort"

	"github.com/jason-s-yu/peak/internal/game"
)

// PlayerRating is a player's persistent rating on the 1500-based scale.
type PlayerRating struct {
	PlayerID   string  `json:"playerId"`
	Rating     float64 `json:"rating"`
	RD         float64 `json:"rd"`
	Volatility float64 `json:"volatility"`
	Games      int     `json:"games"`
}

// NewPlayerRating returns the starting rating for an unrated player.
func NewPlayerRating(playerID string) PlayerRating {
	return PlayerRating{
		PlayerID:   playerID,
		Rating:     DefaultMu,
		RD:         DefaultPhi,
		Volatility: DefaultSigma,
	}
}

// Placements ranks every player of a finished game, 0 being best: the winner,
// then the remaining finishers in finish order, then players still holding
// cards (tied), then disqualified players (tied).
func Placements(res game.GameResult) map[string]int {
	place := make(map[string]int, len(res.Players))
	next := 0
	if res.WinnerID != "" {
		place[res.WinnerID] = next
		next++
	}
	for _, id := range res.FinishOrder {
		if _, ok := place[id]; !ok {
			place[id] = next
			next++
		}
	}

	dq := make(map[string]bool, len(res.Disqualified))
	for _, id := range res.Disqualified {
		dq[id] = true
	}
	stillIn := false
	for _, p := range res.Players {
		if _, ok := place[p.ID]; !ok && !dq[p.ID] {
			place[p.ID] = next
			stillIn = true
		}
	}
	if stillIn {
		next++
	}
	for _, id := range res.Disqualified {
		if _, ok := place[id]; !ok {
			place[id] = next
		}
	}
	return place
}

// RankScores converts placements into fractions from 0..1, where 1 is best
// rank and 0 is worst. Tied players share the fraction of their average rank.
func RankScores(placements map[string]int) map[string]float64 {
	type playerPlace struct {
		id    string
		place int
	}
	var arr []playerPlace
	for id, p := range placements {
		arr = append(arr, playerPlace{id, p})
	}
	sort.Slice(arr, func(i, j int) bool {
		if arr[i].place != arr[j].place {
			return arr[i].place < arr[j].place
		}
		return arr[i].id < arr[j].id
	})

	scores := make(map[string]float64, len(arr))
	if len(arr) == 1 {
		scores[arr[0].id] = 1
		return scores
	}
	i := 0
	for i < len(arr) {
		j := i + 1
		for j < len(arr) && arr[j].place == arr[i].place {
			j++
		}
		// players i..j-1 are tied
		avgRank := float64(i+(j-1)) / 2
		fr := 1.0 - (avgRank / float64(len(arr)-1))
		for k := i; k < j; k++ {
			scores[arr[k].id] = fr
		}
		i = j
	}
	return scores
}

// FinalizeRatings runs the Glicko2 update for everyone in res. Players missing
// from current start from NewPlayerRating.
func FinalizeRatings(res game.GameResult, current map[string]PlayerRating) []PlayerRating {
	players := make([]PlayerRating, 0, len(res.Players))
	for _, p := range res.Players {
		r, ok := current[p.ID]
		if !ok {
			r = NewPlayerRating(p.ID)
		}
		players = append(players, r)
	}
	return UpdateRatings(players, RankScores(Placements(res)))
}
