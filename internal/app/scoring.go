package app

import (
	"math"
	"sort"

	"quiz-session-service/internal/domain"
)

// buildQuestionResult aggregates the frozen answer ledger for one question. A player is
// correct only when their selection equals the correct set exactly, order irrelevant.
// Players who never submitted contribute 0 elapsed seconds to the average.
func buildQuestionResult(q domain.Question, position int, players []*player) domain.QuestionResult {
	correct := correctAnswerIDs(q)

	correctNames := make([]string, 0, len(players))
	var elapsedSum float64
	for _, p := range players {
		if millis, ok := p.answeredMillis[position]; ok {
			elapsedSum += float64(millis) / 1000
		}
		if sameIDSet(p.answers[position], correct) {
			correctNames = append(correctNames, p.name)
		}
	}

	avg, pct := 0, 0
	if len(players) > 0 {
		avg = int(math.Round(elapsedSum / float64(len(players))))
		pct = int(math.Round(100 * float64(len(correctNames)) / float64(len(players))))
	}
	return domain.QuestionResult{
		QuestionID:        q.ID,
		PlayersCorrect:    correctNames,
		AverageAnswerTime: avg,
		PercentCorrect:    pct,
	}
}

func correctAnswerIDs(q domain.Question) map[int64]struct{} {
	ids := make(map[int64]struct{})
	for _, a := range q.Answers {
		if a.Correct {
			ids[a.ID] = struct{}{}
		}
	}
	return ids
}

func sameIDSet(selected []int64, want map[int64]struct{}) bool {
	if len(selected) != len(want) || len(selected) == 0 {
		return false
	}
	for _, id := range selected {
		if _, ok := want[id]; !ok {
			return false
		}
	}
	return true
}

// rankPlayers derives the cumulative scoreboard from the stored per-question results:
// a question's full point value when the player was correct there, nothing otherwise.
// Ties keep join order.
func rankPlayers(quiz domain.Quiz, players []*player, results map[int]domain.QuestionResult) []domain.RankedPlayer {
	scores := make([]int, len(players))
	for pos, res := range results {
		correct := make(map[string]struct{}, len(res.PlayersCorrect))
		for _, name := range res.PlayersCorrect {
			correct[name] = struct{}{}
		}
		for i, p := range players {
			if _, ok := correct[p.name]; ok {
				scores[i] += quiz.Questions[pos].Points
			}
		}
	}

	order := make([]int, len(players))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	ranked := make([]domain.RankedPlayer, len(players))
	for i, idx := range order {
		ranked[i] = domain.RankedPlayer{Name: players[idx].name, Score: scores[idx]}
	}
	return ranked
}
