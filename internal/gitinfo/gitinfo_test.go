package gitinfo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initRepoWithCommit creates a repository in a temp dir with a single commit.
func initRepoWithCommit(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("verify\n"), 0644))
	_, err = wt.Add("README.md")
	require.NoError(t, err)

	hash, err := wt.Commit("initial commit", &git.CommitOptions{
		Author: &object.Signature{Name: "CI", Email: "ci@example.com", When: time.Unix(1700000000, 0)},
	})
	require.NoError(t, err)
	return dir, hash.String()
}

func TestHeadCommit(t *testing.T) {
	dir, want := initRepoWithCommit(t)

	got, err := HeadCommit(dir)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Len(t, got, 40)
}

func TestHeadCommit_FromSubdirectory(t *testing.T) {
	dir, want := initRepoWithCommit(t)
	sub := filepath.Join(dir, "services", "api")
	require.NoError(t, os.MkdirAll(sub, 0755))

	got, err := HeadCommit(sub)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestHeadCommit_NotARepository(t *testing.T) {
	_, err := HeadCommit(t.TempDir())
	assert.ErrorIs(t, err, ErrNotRepository)
}

func TestHeadCommit_NoCommits(t *testing.T) {
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	_, err = HeadCommit(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to resolve HEAD")
}
