package application

import (
	"context"
	"sync"
	"time"

	"github.com/bnema/hubwatch/internal/domain"
	"github.com/bnema/hubwatch/internal/ports"
)

type memoryRepo struct {
	mu      sync.Mutex
	state   domain.State
	commits int
	loadErr error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{state: domain.NewState()}
}

func (r *memoryRepo) Load(ctx context.Context) (domain.State, error) {
	if err := ctx.Err(); err != nil {
		return domain.State{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return domain.State{}, r.loadErr
	}
	return r.state.Clone(), nil
}

func (r *memoryRepo) Commit(ctx context.Context, mutate ports.Mutator) (domain.State, error) {
	if err := ctx.Err(); err != nil {
		return domain.State{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	next, changed := mutate(r.state.Clone())
	if changed {
		r.state = next
		r.commits++
	}
	return r.state.Clone(), nil
}

func (r *memoryRepo) snapshot() domain.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Clone()
}

func (r *memoryRepo) commitCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.commits
}

func (r *memoryRepo) seed(mutate ports.Mutator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next, changed := mutate(r.state.Clone())
	if changed {
		r.state = next
	}
}

type fakeListings struct {
	mu       sync.Mutex
	listings map[domain.OrgKey][]domain.Model
	errs     map[domain.OrgKey]error
	calls    map[domain.OrgKey]int
}

func newFakeListings() *fakeListings {
	return &fakeListings{
		listings: map[domain.OrgKey][]domain.Model{},
		errs:     map[domain.OrgKey]error{},
		calls:    map[domain.OrgKey]int{},
	}
}

func (f *fakeListings) set(org domain.OrgKey, models ...domain.Model) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listings[org] = models
}

func (f *fakeListings) fail(org domain.OrgKey, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[org] = err
}

func (f *fakeListings) ListRecent(ctx context.Context, org domain.OrgKey) ([]domain.Model, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[org]++
	if err := f.errs[org]; err != nil {
		return nil, err
	}
	return f.listings[org], nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
	errs []error
}

func (f *fakeNotifier) Send(ctx context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return err
	}
	return nil
}

func (f *fakeNotifier) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	copy(out, f.sent)
	return out
}

type fakeCatalog struct {
	models  map[domain.ModelID]domain.Model
	readmes map[domain.ModelID]string
	counts  map[domain.OrgKey]int
	err     error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		models:  map[domain.ModelID]domain.Model{},
		readmes: map[domain.ModelID]string{},
		counts:  map[domain.OrgKey]int{},
	}
}

func (f *fakeCatalog) ModelInfo(ctx context.Context, id domain.ModelID) (domain.Model, error) {
	if f.err != nil {
		return domain.Model{}, f.err
	}
	model, ok := f.models[id]
	if !ok {
		return domain.Model{}, domain.ErrModelNotFound
	}
	return model, nil
}

func (f *fakeCatalog) Readme(ctx context.Context, id domain.ModelID) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.readmes[id], nil
}

func (f *fakeCatalog) ModelCount(ctx context.Context, org domain.OrgKey) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.counts[org], nil
}

type fakeGenerator struct {
	mu        sync.Mutex
	challenge domain.Challenge
	bank      []domain.Challenge
	err       error
	calls     int
	bankCalls int
}

func (f *fakeGenerator) Generate(ctx context.Context) (domain.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return domain.Challenge{}, f.err
	}
	return f.challenge, nil
}

func (f *fakeGenerator) GenerateBank(ctx context.Context, count int) ([]domain.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bankCalls++
	if f.err != nil {
		return nil, f.err
	}
	if count > len(f.bank) {
		count = len(f.bank)
	}
	return f.bank[:count], nil
}

func (f *fakeGenerator) generateCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeResponder struct {
	answer string
	err    error
	block  bool
	delay  time.Duration
}

func (f *fakeResponder) Answer(ctx context.Context, question string) (string, error) {
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

type fakeJudge struct {
	verdict string
	err     error
}

func (f *fakeJudge) Verdict(ctx context.Context, challenge domain.Challenge, answer string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.verdict, nil
}

type fakeSummarizer struct {
	summary string
	err     error
}

func (f *fakeSummarizer) Summarize(ctx context.Context, id domain.ModelID, readme string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.summary, nil
}
