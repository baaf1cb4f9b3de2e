package ludo

// Situation is what a bot sees when it must pick a token.
type Situation struct {
	Seat    int
	Die     int
	Board   Board
	Movable []int
}

// Policy picks which movable token a bot moves.
type Policy interface {
	Choose(s Situation) int
}

// GreedyPolicy prefers, in order: finishing a token, capturing, breaking
// up its own blockade, entering on a six, then the most advanced token.
type GreedyPolicy struct{}

func (GreedyPolicy) Choose(s Situation) int {
	best, bestScore := -1, [5]int{}
	for _, token := range s.Movable {
		score := scoreMove(s, token)
		if best < 0 || greater(score, bestScore) {
			best, bestScore = token, score
		}
	}
	return best
}

func scoreMove(s Situation, token int) [5]int {
	from := s.Board[s.Seat][token]
	to := s.Board.Destination(s.Seat, token, s.Die)
	var score [5]int
	if from >= 0 && to == FinishStep {
		score[0] = 1
	}
	if len(s.Board.Victims(s.Seat, to)) > 0 {
		score[1] = 1
	}
	if from >= 0 && s.Board.InOwnBlockade(s.Seat, token) {
		score[2] = 1
	}
	if from == Yard && s.Die == EntryDie {
		score[3] = 1
	}
	score[4] = from
	return score
}

func greater(a, b [5]int) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] > b[i]
		}
	}
	return false
}
