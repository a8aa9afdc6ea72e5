// Package gitinfo reads build metadata from the enclosing git repository.
package gitinfo

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
)

// ErrNotRepository is returned when no repository encloses the directory.
var ErrNotRepository = errors.New("not inside a git repository")

// HeadCommit returns the full hash of HEAD for the repository containing dir.
// Parent directories are searched for .git the way the git CLI does.
func HeadCommit(dir string) (string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return "", fmt.Errorf("%w: %s", ErrNotRepository, dir)
		}
		return "", fmt.Errorf("failed to open git repository at %s: %w", dir, err)
	}

	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	return head.Hash().String(), nil
}
