// Package archive versions generated reports. Every ended collaboration
// gets its own git repository holding the Markdown rendering, so reports
// regenerated after a reopen keep their full history, and finished
// artifacts are uploaded to object storage.
package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const reportFile = "report.md"

// CommitInfo describes one archived report version.
type CommitInfo struct {
	Hash      string
	Message   string
	Author    string
	CreatedAt time.Time
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

// CommitReport writes the Markdown rendering into the collaboration's
// archive repository and commits it. The repository is created on first
// use; re-ending an unchanged collaboration records an empty commit rather
// than failing.
func (s *Service) CommitReport(collaborationID string, markdown []byte, author, message string) (CommitInfo, error) {
	lock := s.collaborationLock(collaborationID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.ensureRepo(collaborationID)
	if err != nil {
		return CommitInfo{}, err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return CommitInfo{}, fmt.Errorf("open worktree: %w", err)
	}

	path := filepath.Join(worktree.Filesystem.Root(), reportFile)
	if err := os.WriteFile(path, markdown, 0o644); err != nil {
		return CommitInfo{}, fmt.Errorf("write report: %w", err)
	}
	if _, err := worktree.Add(reportFile); err != nil {
		return CommitInfo{}, fmt.Errorf("git add report: %w", err)
	}

	hash, err := worktree.Commit(message, &git.CommitOptions{
		AllowEmptyCommits: true,
		Author: &object.Signature{
			Name:  author,
			Email: fmt.Sprintf("%s@local.huddle.dev", sanitizeEmail(author)),
			When:  time.Now(),
		},
	})
	if err != nil {
		return CommitInfo{}, fmt.Errorf("commit report: %w", err)
	}

	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return CommitInfo{}, fmt.Errorf("read commit object: %w", err)
	}
	return toCommitInfo(commitObj), nil
}

// LatestReport reads the Markdown rendering at HEAD.
func (s *Service) LatestReport(collaborationID string) ([]byte, CommitInfo, error) {
	lock := s.collaborationLock(collaborationID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(collaborationID))
	if err != nil {
		return nil, CommitInfo{}, fmt.Errorf("open repo: %w", err)
	}
	ref, err := repo.Head()
	if err != nil {
		return nil, CommitInfo{}, fmt.Errorf("resolve head: %w", err)
	}
	commitObj, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, CommitInfo{}, fmt.Errorf("load commit object: %w", err)
	}
	file, err := commitObj.File(reportFile)
	if err != nil {
		return nil, CommitInfo{}, fmt.Errorf("load report from commit: %w", err)
	}
	contents, err := file.Contents()
	if err != nil {
		return nil, CommitInfo{}, fmt.Errorf("read report contents: %w", err)
	}
	return []byte(contents), toCommitInfo(commitObj), nil
}

// History lists archived report versions, newest first.
func (s *Service) History(collaborationID string, limit int) ([]CommitInfo, error) {
	lock := s.collaborationLock(collaborationID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(collaborationID))
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return []CommitInfo{}, nil
		}
		return nil, fmt.Errorf("open repo: %w", err)
	}
	ref, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve head: %w", err)
	}

	iter, err := repo.Log(&git.LogOptions{From: ref.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	var items []CommitInfo
	err = iter.ForEach(func(commitObj *object.Commit) error {
		items = append(items, toCommitInfo(commitObj))
		if limit > 0 && len(items) >= limit {
			return errStopIteration
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopIteration) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return items, nil
}

var errStopIteration = errors.New("stop iteration")

func (s *Service) ensureRepo(collaborationID string) (*git.Repository, error) {
	path := s.repoPath(collaborationID)
	repo, err := git.PlainOpen(path)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("open repo: %w", err)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create repo dir: %w", err)
	}
	repo, err = git.PlainInit(path, false)
	if err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("main"))); err != nil {
		return nil, fmt.Errorf("set HEAD to main: %w", err)
	}
	return repo, nil
}

func (s *Service) repoPath(collaborationID string) string {
	return filepath.Join(s.baseDir, collaborationID)
}

func (s *Service) collaborationLock(collaborationID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[collaborationID]
	if ok {
		return lock
	}
	lock = &sync.Mutex{}
	s.locks[collaborationID] = lock
	return lock
}

func toCommitInfo(commitObj *object.Commit) CommitInfo {
	return CommitInfo{
		Hash:      commitObj.Hash.String()[:7],
		Message:   commitObj.Message,
		Author:    commitObj.Author.Name,
		CreatedAt: commitObj.Author.When,
	}
}

func sanitizeEmail(input string) string {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out = append(out, r)
			continue
		}
		if r == ' ' || r == '-' || r == '_' {
			out = append(out, '.')
		}
	}
	if len(out) == 0 {
		return "user"
	}
	return string(out)
}
