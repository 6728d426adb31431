package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bnema/hubwatch/internal/domain"
	"github.com/bnema/hubwatch/internal/ports"
)

type BattleConfig struct {
	// StageTimeout bounds each collaborator call (generate, answer, judge).
	StageTimeout time.Duration

	// BankSize is the number of pre-generated challenges kept in state.
	BankSize int

	// ReminderAfter is how long the responder may think before the chat
	// gets a nudge that the round is still alive. Negative disables it.
	ReminderAfter time.Duration
}

// Battle drives one challenge/answer/verdict round per conversation. Every
// lifecycle step is persisted before the next collaborator call, and every
// persisted step carries the session's sequence number so a result arriving
// after the session was torn down is recognized as stale and dropped.
type Battle struct {
	repo      ports.StateRepository
	generator ports.ChallengeGenerator
	responder ports.Responder
	judge     ports.Judge
	clock     ports.Clock
	logger    *zap.Logger
	cfg       BattleConfig

	newID    func() string
	progress func(ctx context.Context, conv domain.ConversationKey, text string)

	wg        sync.WaitGroup
	refilling atomic.Bool
}

func NewBattle(repo ports.StateRepository, generator ports.ChallengeGenerator, responder ports.Responder, judge ports.Judge, clock ports.Clock, logger *zap.Logger, cfg BattleConfig) *Battle {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.StageTimeout <= 0 {
		cfg.StageTimeout = 2 * time.Minute
	}
	if cfg.BankSize <= 0 {
		cfg.BankSize = 10
	}
	if cfg.ReminderAfter == 0 {
		cfg.ReminderAfter = time.Minute
	}

	return &Battle{
		repo:      repo,
		generator: generator,
		responder: responder,
		judge:     judge,
		clock:     clock,
		logger:    logger,
		cfg:       cfg,
		newID:     uuid.NewString,
	}
}

// SetProgress registers a callback that posts round progress (the question,
// then the opponent's answer) into the conversation. Delivery is best
// effort; the callback must not block indefinitely.
func (b *Battle) SetProgress(fn func(ctx context.Context, conv domain.ConversationKey, text string)) {
	b.progress = fn
}

func (b *Battle) reportProgress(ctx context.Context, conv domain.ConversationKey, text string) {
	if b.progress != nil {
		b.progress(ctx, conv, text)
	}
}

// remindLater posts a still-thinking note to the conversation if the
// responder takes longer than the configured reminder delay. The returned
// stop function is safe to call more than once.
func (b *Battle) remindLater(ctx context.Context, conv domain.ConversationKey) func() {
	if b.progress == nil || b.cfg.ReminderAfter <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		timer := time.NewTimer(b.cfg.ReminderAfter)
		defer timer.Stop()

		select {
		case <-timer.C:
			b.reportProgress(ctx, conv, FormatBattleReminder())
		case <-done:
		case <-ctx.Done():
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

// Start runs a full battle round for the conversation and returns the
// judge's verdict text. A second Start while a round is in flight returns
// domain.ErrSessionActive without touching the running round.
func (b *Battle) Start(ctx context.Context, conv domain.ConversationKey) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	session, fromBank, err := b.open(ctx, conv)
	if err != nil {
		return "", err
	}
	if fromBank {
		b.maybeRefill()
	}

	challenge := session.Challenge
	if !fromBank {
		challenge, err = b.generate(ctx, conv, session.Seq)
		if err != nil {
			return "", err
		}
	}

	err = b.update(ctx, conv, session.Seq, func(s *domain.BattleSession) error {
		s.Challenge = challenge
		return s.Advance(domain.BattleAwaitingAnswer)
	})
	if err != nil {
		return "", err
	}
	b.reportProgress(ctx, conv, FormatBattleQuestion(challenge.Question))

	stopReminder := b.remindLater(ctx, conv)
	answer, err := b.stage(ctx, conv, session.Seq, "answer challenge", func(stageCtx context.Context) (string, error) {
		return b.responder.Answer(stageCtx, challenge.Question)
	})
	stopReminder()
	if err != nil {
		return "", err
	}

	err = b.update(ctx, conv, session.Seq, func(s *domain.BattleSession) error {
		s.Answer = answer
		return s.Advance(domain.BattleJudging)
	})
	if err != nil {
		return "", err
	}
	b.reportProgress(ctx, conv, FormatBattleAnswer(answer))

	verdict, err := b.stage(ctx, conv, session.Seq, "judge answer", func(stageCtx context.Context) (string, error) {
		return b.judge.Verdict(stageCtx, challenge, answer)
	})
	if err != nil {
		return "", err
	}

	if err := b.conclude(ctx, conv, session.Seq); err != nil {
		return "", err
	}

	return verdict, nil
}

// open creates the session record, claiming the conversation. It pops a
// bank challenge when one is available.
func (b *Battle) open(ctx context.Context, conv domain.ConversationKey) (domain.BattleSession, bool, error) {
	var (
		session  domain.BattleSession
		fromBank bool
		active   bool
	)
	_, err := b.repo.Commit(ctx, func(current domain.State) (domain.State, bool) {
		if _, ok := current.ActiveSession(conv); ok {
			active = true
			return current, false
		}

		session = domain.BattleSession{
			Conversation: conv,
			ID:           b.newID(),
			State:        domain.BattleChallengeRequested,
			CreatedAt:    b.clock.Now().UTC(),
			Seq:          current.NextSeq,
		}
		current.NextSeq++

		fromBank = len(current.Bank) > 0
		if fromBank {
			session.Challenge = current.Bank[0]
			current.Bank = current.Bank[1:]
		}
		current.Sessions[conv] = session

		return current, true
	})
	if err != nil {
		return domain.BattleSession{}, false, fmt.Errorf("open battle session: %w", err)
	}
	if active {
		return domain.BattleSession{}, false, domain.ErrSessionActive
	}

	return session, fromBank, nil
}

func (b *Battle) generate(ctx context.Context, conv domain.ConversationKey, seq uint64) (domain.Challenge, error) {
	stageCtx, cancel := context.WithTimeout(ctx, b.cfg.StageTimeout)
	defer cancel()

	challenge, err := b.generator.Generate(stageCtx)
	if err != nil {
		b.abort(ctx, conv, seq, terminalState(stageCtx, err), "generate challenge", err)
		return domain.Challenge{}, fmt.Errorf("generate challenge: %w", err)
	}

	return challenge, nil
}

// stage runs one collaborator call under the stage timeout and tears the
// session down on failure.
func (b *Battle) stage(ctx context.Context, conv domain.ConversationKey, seq uint64, name string, call func(context.Context) (string, error)) (string, error) {
	stageCtx, cancel := context.WithTimeout(ctx, b.cfg.StageTimeout)
	defer cancel()

	result, err := call(stageCtx)
	if err != nil {
		b.abort(ctx, conv, seq, terminalState(stageCtx, err), name, err)
		return "", fmt.Errorf("%s: %w", name, err)
	}

	return result, nil
}

// terminalState classifies a failed stage. The stage context is consulted
// as well as the error chain: a collaborator that swallows the cause still
// gets recorded as a timeout when the stage deadline is what killed it.
func terminalState(stageCtx context.Context, err error) domain.BattleState {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(stageCtx.Err(), context.DeadlineExceeded) {
		return domain.BattleTimedOut
	}

	return domain.BattleFailed
}

// update applies fn to the persisted session, provided the record still
// exists and still carries the expected sequence number.
func (b *Battle) update(ctx context.Context, conv domain.ConversationKey, seq uint64, fn func(*domain.BattleSession) error) error {
	var (
		stale bool
		fnErr error
	)
	_, err := b.repo.Commit(ctx, func(current domain.State) (domain.State, bool) {
		session, ok := current.Sessions[conv]
		if !ok || session.Seq != seq {
			stale = true
			return current, false
		}
		if fnErr = fn(&session); fnErr != nil {
			return current, false
		}
		current.Sessions[conv] = session
		return current, true
	})
	if err != nil {
		return fmt.Errorf("persist battle step: %w", err)
	}
	if stale {
		return domain.ErrSessionStale
	}

	return fnErr
}

// abort marks the session terminal and removes its record. The conversation
// is free again afterwards; any response still in flight misses its
// sequence number and dies stale.
func (b *Battle) abort(ctx context.Context, conv domain.ConversationKey, seq uint64, state domain.BattleState, step string, cause error) {
	err := b.update(ctx, conv, seq, func(s *domain.BattleSession) error {
		return s.Advance(state)
	})
	if err != nil && !errors.Is(err, domain.ErrSessionStale) {
		b.logger.Warn("battle teardown failed", zap.String("step", step), zap.Error(err))
	}
	if err := b.remove(ctx, conv, seq); err != nil {
		b.logger.Warn("battle record removal failed", zap.String("step", step), zap.Error(err))
	}
	b.logger.Info("battle aborted",
		zap.String("conversation", string(conv)),
		zap.String("step", step),
		zap.String("state", string(state)),
		zap.Error(cause))
}

func (b *Battle) conclude(ctx context.Context, conv domain.ConversationKey, seq uint64) error {
	var stale bool
	_, err := b.repo.Commit(ctx, func(current domain.State) (domain.State, bool) {
		session, ok := current.Sessions[conv]
		if !ok || session.Seq != seq {
			stale = true
			return current, false
		}
		if err := session.Advance(domain.BattleConcluded); err != nil {
			stale = true
			return current, false
		}
		delete(current.Sessions, conv)
		return current, true
	})
	if err != nil {
		return fmt.Errorf("conclude battle session: %w", err)
	}
	if stale {
		return domain.ErrSessionStale
	}

	return nil
}

func (b *Battle) remove(ctx context.Context, conv domain.ConversationKey, seq uint64) error {
	_, err := b.repo.Commit(ctx, func(current domain.State) (domain.State, bool) {
		session, ok := current.Sessions[conv]
		if !ok || session.Seq != seq {
			return current, false
		}
		delete(current.Sessions, conv)
		return current, true
	})

	return err
}

// Recover clears session records left behind by a crash. The collaborator
// calls they were waiting on died with the old process, so the records can
// only ever go stale.
func (b *Battle) Recover(ctx context.Context) error {
	_, err := b.repo.Commit(ctx, func(current domain.State) (domain.State, bool) {
		if len(current.Sessions) == 0 {
			return current, false
		}
		for conv, session := range current.Sessions {
			b.logger.Info("dropping orphaned battle session",
				zap.String("conversation", string(conv)),
				zap.String("state", string(session.State)))
			delete(current.Sessions, conv)
		}
		return current, true
	})
	if err != nil {
		return fmt.Errorf("recover battle sessions: %w", err)
	}

	return nil
}

// RefillBank tops the persisted challenge bank back up to the configured
// size.
func (b *Battle) RefillBank(ctx context.Context) error {
	state, err := b.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load state for bank refill: %w", err)
	}
	needed := b.cfg.BankSize - len(state.Bank)
	if needed <= 0 {
		return nil
	}

	challenges, err := b.generator.GenerateBank(ctx, needed)
	if err != nil {
		return fmt.Errorf("generate challenge bank: %w", err)
	}
	if len(challenges) == 0 {
		return nil
	}

	_, err = b.repo.Commit(ctx, func(current domain.State) (domain.State, bool) {
		room := b.cfg.BankSize - len(current.Bank)
		if room <= 0 {
			return current, false
		}
		if room < len(challenges) {
			challenges = challenges[:room]
		}
		current.Bank = append(current.Bank, challenges...)
		return current, true
	})
	if err != nil {
		return fmt.Errorf("persist challenge bank: %w", err)
	}

	return nil
}

func (b *Battle) maybeRefill() {
	if !b.refilling.CompareAndSwap(false, true) {
		return
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer b.refilling.Store(false)

		ctx, cancel := context.WithTimeout(context.Background(), b.cfg.StageTimeout)
		defer cancel()
		if err := b.RefillBank(ctx); err != nil {
			b.logger.Warn("challenge bank refill failed", zap.Error(err))
		}
	}()
}

// Wait blocks until background bank refills finish. Call on shutdown.
func (b *Battle) Wait() {
	b.wg.Wait()
}
