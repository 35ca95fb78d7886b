// Package journal keeps a per-division audit trail of payment-record
// changes in plain git repositories, one repo per division.
package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"taxportal/api/internal/store"
)

// Entry is one journaled snapshot of a payment record.
type Entry struct {
	SlNo           int               `json:"slNo"`
	InstitutionID  string            `json:"institutionId"`
	Action         string            `json:"action"`
	ApprovalStatus bool              `json:"approvalStatus"`
	Payment        store.PaymentCore `json:"payment"`
}

// ChangeInfo describes one commit in a division's journal.
type ChangeInfo struct {
	Hash    string    `json:"hash"`
	Author  string    `json:"author"`
	Message string    `json:"message"`
	When    time.Time `json:"when"`
}

type Service struct {
	baseDir string
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
}

func New(baseDir string) *Service {
	return &Service{
		baseDir: baseDir,
		locks:   make(map[string]*sync.Mutex),
	}
}

// RecordChange writes the entry's snapshot into the division's journal repo
// and commits it. The repo is created on first use.
func (s *Service) RecordChange(divisionID string, entry Entry, actor, message string) error {
	lock := s.divisionLock(divisionID)
	lock.Lock()
	defer lock.Unlock()

	path := s.repoPath(divisionID)
	repo, err := s.ensureRepo(path)
	if err != nil {
		return err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}

	payload, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal journal entry: %w", err)
	}
	relPath := filepath.Join("records", fmt.Sprintf("%d.json", entry.SlNo))
	if err := os.MkdirAll(filepath.Join(path, "records"), 0o755); err != nil {
		return fmt.Errorf("create records dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(path, relPath), append(payload, '\n'), 0o644); err != nil {
		return fmt.Errorf("write journal entry: %w", err)
	}
	if _, err := worktree.Add(relPath); err != nil {
		return fmt.Errorf("git add journal entry: %w", err)
	}

	_, err = worktree.Commit(message, &git.CommitOptions{
		AllowEmptyCommits: true,
		Author: &object.Signature{
			Name:  actor,
			Email: fmt.Sprintf("%s@journal.taxportal.local", sanitizeEmail(actor)),
			When:  time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("commit journal entry: %w", err)
	}
	return nil
}

// History returns the division's most recent journal commits, newest first.
func (s *Service) History(divisionID string, limit int) ([]ChangeInfo, error) {
	lock := s.divisionLock(divisionID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(divisionID))
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open journal repo: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve journal head: %w", err)
	}
	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read journal log: %w", err)
	}
	defer iter.Close()

	changes := make([]ChangeInfo, 0, limit)
	count := 0
	err = iter.ForEach(func(commitObj *object.Commit) error {
		changes = append(changes, ChangeInfo{
			Hash:    commitObj.Hash.String(),
			Author:  commitObj.Author.Name,
			Message: commitObj.Message,
			When:    commitObj.Author.When,
		})
		count++
		if limit > 0 && count >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate journal log: %w", err)
	}
	return changes, nil
}

func (s *Service) ensureRepo(path string) (*git.Repository, error) {
	repo, err := git.PlainOpen(path)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("open journal repo: %w", err)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	repo, err = git.PlainInit(path, false)
	if err != nil {
		return nil, fmt.Errorf("init journal repo: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("main"))); err != nil {
		return nil, fmt.Errorf("set HEAD to main: %w", err)
	}
	return repo, nil
}

func (s *Service) repoPath(divisionID string) string {
	return filepath.Join(s.baseDir, sanitizeID(divisionID))
}

// sanitizeID reduces a division ID to a safe directory name. The ID is
// admin-entered form data, so anything outside the ID alphabet is dropped
// to keep the repo path inside baseDir.
func sanitizeID(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "unknown"
	}
	return b.String()
}

// divisionLock keys on the sanitized ID so two raw IDs that collapse to
// the same repo path share one lock.
func (s *Service) divisionLock(divisionID string) *sync.Mutex {
	key := sanitizeID(divisionID)
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}

func sanitizeEmail(input string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(input) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '.', r == '-', r == '_':
			b.WriteByte('-')
		}
	}
	if b.Len() == 0 {
		return "unknown"
	}
	return b.String()
}
