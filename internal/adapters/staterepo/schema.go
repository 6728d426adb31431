package staterepo

import (
	"fmt"
	"time"

	"github.com/bnema/hubwatch/internal/domain"
)

const currentSchemaVersion = 1

type fileSchema struct {
	Version  int                      `toml:"version"`
	NextSeq  uint64                   `toml:"next_seq,omitempty"`
	Orgs     map[string]orgSchema     `toml:"orgs,omitempty"`
	Sessions map[string]sessionSchema `toml:"sessions,omitempty"`
	Bank     []challengeSchema        `toml:"bank,omitempty"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
	if s.Orgs == nil {
		s.Orgs = map[string]orgSchema{}
	}
	if s.Sessions == nil {
		s.Sessions = map[string]sessionSchema{}
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("%w: schema version %d (current %d)", domain.ErrStateCorrupt, s.Version, currentSchemaVersion)
	}

	return nil
}

type orgSchema struct {
	Models []string `toml:"models"`
}

type sessionSchema struct {
	ID        string `toml:"id"`
	State     string `toml:"state"`
	Question  string `toml:"question"`
	Expected  string `toml:"expected"`
	Answer    string `toml:"answer,omitempty"`
	CreatedAt string `toml:"created_at"`
	Seq       uint64 `toml:"seq"`
}

type challengeSchema struct {
	Question string `toml:"question"`
	Answer   string `toml:"answer"`
}

func toSchema(state domain.State) fileSchema {
	file := fileSchema{
		Version:  currentSchemaVersion,
		NextSeq:  state.NextSeq,
		Orgs:     make(map[string]orgSchema, len(state.Orgs)),
		Sessions: make(map[string]sessionSchema, len(state.Sessions)),
	}

	for org, st := range state.Orgs {
		models := make([]string, len(st.Models))
		for i, id := range st.Models {
			models[i] = string(id)
		}
		file.Orgs[string(org)] = orgSchema{Models: models}
	}

	for conv, session := range state.Sessions {
		file.Sessions[string(conv)] = sessionSchema{
			ID:        session.ID,
			State:     string(session.State),
			Question:  session.Challenge.Question,
			Expected:  session.Challenge.Answer,
			Answer:    session.Answer,
			CreatedAt: session.CreatedAt.UTC().Format(time.RFC3339Nano),
			Seq:       session.Seq,
		}
	}

	for _, challenge := range state.Bank {
		file.Bank = append(file.Bank, challengeSchema{
			Question: challenge.Question,
			Answer:   challenge.Answer,
		})
	}

	return file
}

func fromSchema(file fileSchema) (domain.State, error) {
	state := domain.NewState()
	state.NextSeq = file.NextSeq

	for org, st := range file.Orgs {
		models := make([]domain.ModelID, len(st.Models))
		for i, id := range st.Models {
			models[i] = domain.ModelID(id)
		}
		state.Orgs[domain.OrgKey(org)] = domain.OrgState{Models: models}
	}

	for conv, entry := range file.Sessions {
		createdAt, err := time.Parse(time.RFC3339Nano, entry.CreatedAt)
		if err != nil {
			return domain.State{}, fmt.Errorf("%w: session %s created_at: %v", domain.ErrStateCorrupt, entry.ID, err)
		}
		state.Sessions[domain.ConversationKey(conv)] = domain.BattleSession{
			Conversation: domain.ConversationKey(conv),
			ID:           entry.ID,
			State:        domain.BattleState(entry.State),
			Challenge:    domain.Challenge{Question: entry.Question, Answer: entry.Expected},
			Answer:       entry.Answer,
			CreatedAt:    createdAt,
			Seq:          entry.Seq,
		}
	}

	for _, entry := range file.Bank {
		state.Bank = append(state.Bank, domain.Challenge{
			Question: entry.Question,
			Answer:   entry.Answer,
		})
	}

	return state, nil
}
