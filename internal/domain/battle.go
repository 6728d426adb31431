package domain

import (
	"fmt"
	"time"
)

type ConversationKey string

type BattleState string

const (
	BattleChallengeRequested BattleState = "challenge_requested"
	BattleAwaitingAnswer     BattleState = "awaiting_answer"
	BattleJudging            BattleState = "judging"
	BattleConcluded          BattleState = "concluded"
	BattleTimedOut           BattleState = "timed_out"
	BattleFailed             BattleState = "failed"
)

func (s BattleState) Terminal() bool {
	switch s {
	case BattleConcluded, BattleTimedOut, BattleFailed:
		return true
	}

	return false
}

// battleTransitions lists the legal forward edges of the session lifecycle.
// Any state may additionally move to BattleTimedOut or BattleFailed.
var battleTransitions = map[BattleState][]BattleState{
	BattleChallengeRequested: {BattleAwaitingAnswer},
	BattleAwaitingAnswer:     {BattleJudging},
	BattleJudging:            {BattleConcluded},
}

// Challenge is one question with the answer the judge should expect.
type Challenge struct {
	Question string
	Answer   string
}

// BattleSession is the persisted record of one in-flight challenge/answer
// exchange. Seq increases monotonically per conversation and lets late
// collaborator results be recognized as stale and discarded.
type BattleSession struct {
	Conversation ConversationKey
	ID           string
	State        BattleState
	Challenge    Challenge
	Answer       string
	CreatedAt    time.Time
	Seq          uint64
}

// Advance moves the session to next, allowing the documented forward edges
// plus failure and timeout from any non-terminal state.
func (b *BattleSession) Advance(next BattleState) error {
	if b.State.Terminal() {
		return fmt.Errorf("session %s already terminal in state %s", b.ID, b.State)
	}
	if next == BattleTimedOut || next == BattleFailed {
		b.State = next
		return nil
	}

	for _, allowed := range battleTransitions[b.State] {
		if allowed == next {
			b.State = next
			return nil
		}
	}

	return fmt.Errorf("illegal battle transition %s -> %s", b.State, next)
}
