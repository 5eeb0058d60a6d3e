// Package gitsource mirrors remote deck repositories into a local
// directory so the collection loader can treat them like any other deck
// folder.
package gitsource

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
)

// Sync clones the repository if localPath does not exist yet, or pulls the
// latest changes if it does. Already-up-to-date is not an error.
func Sync(ctx context.Context, url, localPath string) error {
	_, err := os.Stat(localPath)
	switch {
	case os.IsNotExist(err):
		slog.Info("cloning deck repository", "url", url, "path", localPath)
		_, err := git.PlainCloneContext(ctx, localPath, false, &git.CloneOptions{
			URL: url,
		})
		if err != nil {
			return fmt.Errorf("cloning %s: %w", url, err)
		}
	case err == nil:
		slog.Info("pulling deck repository", "path", localPath)
		repo, err := git.PlainOpen(localPath)
		if err != nil {
			return fmt.Errorf("opening repository at %s: %w", localPath, err)
		}
		worktree, err := repo.Worktree()
		if err != nil {
			return fmt.Errorf("worktree for %s: %w", localPath, err)
		}
		err = worktree.PullContext(ctx, &git.PullOptions{RemoteName: "origin"})
		if err != nil && err != git.NoErrAlreadyUpToDate {
			return fmt.Errorf("pulling %s: %w", localPath, err)
		}
	default:
		return fmt.Errorf("checking %s: %w", localPath, err)
	}
	return nil
}

// SyncAll mirrors every source URL under reposDir. A failing source is
// logged and skipped so one unreachable remote does not block a drill; the
// returned paths are the mirrors that are usable.
func SyncAll(ctx context.Context, reposDir string, urls []string) ([]string, error) {
	if len(urls) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(reposDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating repos directory: %w", err)
	}

	var paths []string
	for _, u := range urls {
		localPath, err := LocalPath(reposDir, u)
		if err != nil {
			slog.Error("skipping source with unusable URL", "url", u, "error", err)
			continue
		}
		if err := Sync(ctx, u, localPath); err != nil {
			slog.Error("skipping source that failed to sync", "url", u, "error", err)
			continue
		}
		paths = append(paths, localPath)
	}
	return paths, nil
}

// LocalPath maps a repository URL to a stable directory under baseDir,
// keyed by host and repository path. It understands http(s) URLs and
// scp-like ssh addresses (git@host:user/repo.git).
func LocalPath(baseDir, repoURL string) (string, error) {
	parsed, err := url.Parse(repoURL)
	if err == nil && (parsed.Scheme == "https" || parsed.Scheme == "http") {
		repoPath := strings.TrimSuffix(parsed.Path, ".git")
		return filepath.Join(baseDir, parsed.Host, repoPath), nil
	}

	if strings.Contains(repoURL, "@") {
		userHost, repoPath, ok := strings.Cut(repoURL, ":")
		if ok {
			if _, host, ok := strings.Cut(userHost, "@"); ok && host != "" && repoPath != "" {
				return filepath.Join(baseDir, host, strings.TrimSuffix(repoPath, ".git")), nil
			}
		}
	}
	return "", fmt.Errorf("cannot derive local path from URL %q", repoURL)
}
