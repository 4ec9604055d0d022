// Package gitrepo mirrors every committed transcript version into a
// per-document git repository, giving an audit trail that is
// independent of the SQL store.
package gitrepo

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// content is the metadata file committed next to the transcript text.
type content struct {
	Doc     string `json:"doc"`
	Version int    `json:"version"`
	Author  string `json:"author"`
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

func (s *Service) documentLock(doc string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[doc]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[doc] = lock
	}
	return lock
}

// repoPath flattens the document path into one directory name.
func (s *Service) repoPath(doc string) string {
	safe := strings.NewReplacer("/", "__", "\\", "__", " ", "_").Replace(doc)
	return filepath.Join(s.baseDir, safe)
}

var versionMessagePattern = regexp.MustCompile(`^Save version (\d+)`)

func commitMessage(version int, author string) string {
	return fmt.Sprintf("Save version %d by %s", version, author)
}

// CommitVersion appends one version of doc to its mirror repository,
// initializing the repository on first use. Returns the commit hash.
func (s *Service) CommitVersion(doc string, version int, text, author string) (string, error) {
	lock := s.documentLock(doc)
	lock.Lock()
	defer lock.Unlock()

	path := s.repoPath(doc)
	repo, err := s.openOrInit(path)
	if err != nil {
		return "", err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("open worktree: %w", err)
	}

	if err := os.WriteFile(filepath.Join(path, "transcript.txt"), []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write transcript: %w", err)
	}
	meta, err := json.MarshalIndent(content{Doc: doc, Version: version, Author: author}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(path, "content.json"), append(meta, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write metadata: %w", err)
	}

	if _, err := worktree.Add("transcript.txt"); err != nil {
		return "", fmt.Errorf("git add transcript: %w", err)
	}
	if _, err := worktree.Add("content.json"); err != nil {
		return "", fmt.Errorf("git add metadata: %w", err)
	}

	name := author
	if name == "" {
		name = "scriptum"
	}
	hash, err := worktree.Commit(commitMessage(version, name), &git.CommitOptions{
		AllowEmptyCommits: true,
		Author: &object.Signature{
			Name:  name,
			Email: fmt.Sprintf("%s@local.scriptum.dev", sanitizeEmail(name)),
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("commit version: %w", err)
	}
	return hash.String(), nil
}

func (s *Service) openOrInit(path string) (*git.Repository, error) {
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

// CommitHashes maps version numbers to mirror commit hashes by walking
// the log and parsing the save messages.
func (s *Service) CommitHashes(doc string) (map[int]string, error) {
	lock := s.documentLock(doc)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(doc))
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return map[int]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	head, err := repo.Head()
	if err != nil {
		return map[int]string{}, nil
	}
	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	hashes := make(map[int]string)
	err = iter.ForEach(func(c *object.Commit) error {
		m := versionMessagePattern.FindStringSubmatch(c.Message)
		if m == nil {
			return nil
		}
		version, err := strconv.Atoi(m[1])
		if err != nil {
			return nil
		}
		// The newest commit for a version wins; the walk is newest-first.
		if _, seen := hashes[version]; !seen {
			hashes[version] = c.Hash.String()
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk log: %w", err)
	}
	return hashes, nil
}

func sanitizeEmail(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "user"
	}
	return b.String()
}
