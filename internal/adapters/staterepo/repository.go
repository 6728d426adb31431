package staterepo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/bnema/hubwatch/internal/domain"
	"github.com/bnema/hubwatch/internal/ports"
)

const (
	stateFileMode   = 0o600
	stateDirMode    = 0o700
	tempFilePattern = ".state-*.toml.tmp"
)

// Repository persists the state document as one TOML file. Writes go to a
// temp file in the same directory followed by a rename, so a reader or a
// crash can only ever observe the fully-old or fully-new document.
type Repository struct {
	statePath string
	mu        *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.StateRepository = (*Repository)(nil)

func NewRepository(statePath string) (*Repository, error) {
	if statePath == "" {
		return nil, errors.New("state path is empty")
	}

	absPath, err := filepath.Abs(statePath)
	if err != nil {
		return nil, fmt.Errorf("resolve state path: %w", err)
	}
	absPath = filepath.Clean(absPath)

	return &Repository{statePath: absPath, mu: lockForPath(absPath)}, nil
}

func (r *Repository) Load(ctx context.Context) (domain.State, error) {
	if err := ctx.Err(); err != nil {
		return domain.State{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.readState()
}

// Commit applies mutate to the current document and replaces the file
// atomically. Commits are serialized by the path lock: the mutator always
// observes the state left by the previous commit.
func (r *Repository) Commit(ctx context.Context, mutate ports.Mutator) (domain.State, error) {
	if err := ctx.Err(); err != nil {
		return domain.State{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.readState()
	if err != nil {
		return domain.State{}, err
	}

	next, changed := mutate(current.Clone())
	if !changed {
		return current, nil
	}

	if err := ctx.Err(); err != nil {
		return domain.State{}, err
	}

	if err := r.writeState(next); err != nil {
		return domain.State{}, err
	}

	return next, nil
}

func (r *Repository) readState() (domain.State, error) {
	data, err := os.ReadFile(r.statePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.NewState(), nil
		}
		return domain.State{}, fmt.Errorf("read state file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return domain.State{}, fmt.Errorf("%w: decode state file: %v", domain.ErrStateCorrupt, err)
	}
	if err := file.validateVersion(); err != nil {
		return domain.State{}, err
	}
	file.applyDefaults()

	return fromSchema(file)
}

func (r *Repository) writeState(state domain.State) error {
	if err := os.MkdirAll(filepath.Dir(r.statePath), stateDirMode); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	data, err := toml.Marshal(toSchema(state))
	if err != nil {
		return fmt.Errorf("encode state file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(r.statePath), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}

	if err := tempFile.Chmod(stateFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp state file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err := os.Rename(tempName, r.statePath); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}

	cleanup = false

	return nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}
