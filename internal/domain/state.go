package domain

// OrgState is the durable record kept for one watched organisation: the
// identifiers already seen, in the order the hub last listed them.
type OrgState struct {
	Models []ModelID
}

// State is the whole persisted document: known sets per organisation,
// in-flight battle sessions, and the pre-generated challenge bank. It is
// only ever mutated through the state repository's serialized commit.
type State struct {
	Orgs     map[OrgKey]OrgState
	Sessions map[ConversationKey]BattleSession
	Bank     []Challenge

	// NextSeq feeds battle session sequence numbers. It never resets, so
	// a late result from a removed session can never match a live one.
	NextSeq uint64
}

func NewState() State {
	return State{
		Orgs:     map[OrgKey]OrgState{},
		Sessions: map[ConversationKey]BattleSession{},
	}
}

// Clone returns a deep copy, so cycle snapshots and commit mutators never
// share map or slice storage with the committed document.
func (s State) Clone() State {
	out := State{
		Orgs:     make(map[OrgKey]OrgState, len(s.Orgs)),
		Sessions: make(map[ConversationKey]BattleSession, len(s.Sessions)),
		NextSeq:  s.NextSeq,
	}
	for org, st := range s.Orgs {
		models := make([]ModelID, len(st.Models))
		copy(models, st.Models)
		out.Orgs[org] = OrgState{Models: models}
	}
	for conv, session := range s.Sessions {
		out.Sessions[conv] = session
	}
	if len(s.Bank) > 0 {
		out.Bank = make([]Challenge, len(s.Bank))
		copy(out.Bank, s.Bank)
	}

	return out
}

// Seeded reports whether the organisation has been polled at least once.
func (s State) Seeded(org OrgKey) bool {
	_, ok := s.Orgs[org]
	return ok
}

// KnownSet returns the organisation's identifiers as a membership set.
func (s State) KnownSet(org OrgKey) map[ModelID]struct{} {
	st, ok := s.Orgs[org]
	if !ok {
		return map[ModelID]struct{}{}
	}

	known := make(map[ModelID]struct{}, len(st.Models))
	for _, id := range st.Models {
		known[id] = struct{}{}
	}

	return known
}

// ActiveSession returns the conversation's non-terminal session, if any.
func (s State) ActiveSession(conv ConversationKey) (BattleSession, bool) {
	session, ok := s.Sessions[conv]
	if !ok || session.State.Terminal() {
		return BattleSession{}, false
	}

	return session, true
}
