package utils

import (
	"fmt"
	"os/exec"
	"strings"
)

// GitOperations handles the read-only git queries used to stamp a manifest
type GitOperations struct {
	workingDir string
}

// NewGitOperations creates a new GitOperations instance
func NewGitOperations(workingDir string) *GitOperations {
	return &GitOperations{workingDir: workingDir}
}

// CheckGitRepo checks if the working directory is inside a git repository
func (g *GitOperations) CheckGitRepo() error {
	cmd := exec.Command("git", "rev-parse", "--git-dir")
	cmd.Dir = g.workingDir
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("not a git repository")
	}
	return nil
}

// HeadRevision returns the abbreviated commit hash of HEAD
func (g *GitOperations) HeadRevision() (string, error) {
	if err := g.CheckGitRepo(); err != nil {
		return "", err
	}
	cmd := exec.Command("git", "rev-parse", "--short", "HEAD")
	cmd.Dir = g.workingDir
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// HasUncommittedChanges checks if there are uncommitted changes
func (g *GitOperations) HasUncommittedChanges() (bool, error) {
	cmd := exec.Command("git", "status", "--porcelain")
	cmd.Dir = g.workingDir
	output, err := cmd.Output()
	if err != nil {
		return false, fmt.Errorf("failed to get git status: %w", err)
	}
	return strings.TrimSpace(string(output)) != "", nil
}

// Revision returns HEAD, suffixed with "-dirty" when the tree has local changes.
func (g *GitOperations) Revision() (string, error) {
	head, err := g.HeadRevision()
	if err != nil {
		return "", err
	}
	dirty, err := g.HasUncommittedChanges()
	if err != nil {
		return head, nil
	}
	if dirty {
		return head + "-dirty", nil
	}
	return head, nil
}
