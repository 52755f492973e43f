package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/go-github/v81/github"
)

// Metadata keys attached to documents staged from GitHub.
const (
	MetaRepository = "repository"
	MetaCommitSHA  = "commit_sha"
)

// Source identifies a directory in a GitHub repository.
type Source struct {
	Owner string
	Repo  string
	Path  string
	Ref   string // Branch, tag or commit; empty means the default branch
}

// Repository returns "owner/repo".
func (s Source) Repository() string {
	return s.Owner + "/" + s.Repo
}

// FetchedFile represents a file fetched from GitHub
type FetchedFile struct {
	Name    string // File name within the source directory
	Content []byte
	SHA     string // File's Git blob SHA
	URL     string // Web URL of the file
}

// Staged describes files written to a local folder for ingestion.
type Staged struct {
	Dir       string
	Files     []string
	CommitSHA string
}

// Metadata returns the fields shared by every document of the staged folder.
func (s *Staged) Metadata(src Source) map[string]any {
	meta := map[string]any{MetaRepository: src.Repository()}
	if s.CommitSHA != "" {
		meta[MetaCommitSHA] = s.CommitSHA
	}
	return meta
}

// Fetcher handles fetching documents from one GitHub repository directory
type Fetcher struct {
	client *Client
	source Source
	logger *slog.Logger
}

// NewFetcher creates a new document fetcher
func NewFetcher(client *Client, source Source, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client: client,
		source: source,
		logger: logger,
	}
}

func (f *Fetcher) contentOptions() *github.RepositoryContentGetOptions {
	if f.source.Ref == "" {
		return nil
	}
	return &github.RepositoryContentGetOptions{Ref: f.source.Ref}
}

// ListFiles lists the files directly inside the source directory whose extension is
// in extensions (case-insensitive, any when empty). Subdirectories are not descended.
func (f *Fetcher) ListFiles(ctx context.Context, extensions []string) ([]string, error) {
	_, dirContents, _, err := f.client.Repositories.GetContents(
		ctx,
		f.source.Owner,
		f.source.Repo,
		f.source.Path,
		f.contentOptions(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get contents of %s: %w", f.source.Path, err)
	}

	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(strings.TrimLeft(ext, "."))] = struct{}{}
	}

	var names []string
	for _, item := range dirContents {
		if item.GetType() != "file" || item.GetName() == "" {
			continue
		}
		if len(allowed) > 0 {
			ext := strings.ToLower(strings.TrimPrefix(path.Ext(item.GetName()), "."))
			if _, ok := allowed[ext]; !ok {
				continue
			}
		}
		names = append(names, item.GetName())
	}
	sort.Strings(names)
	return names, nil
}

// FetchFile fetches the content of a file in the source directory
func (f *Fetcher) FetchFile(ctx context.Context, name string) (*FetchedFile, error) {
	fullPath := path.Join(f.source.Path, name)

	fileContent, _, _, err := f.client.Repositories.GetContents(
		ctx,
		f.source.Owner,
		f.source.Repo,
		fullPath,
		f.contentOptions(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get content of %s: %w", fullPath, err)
	}
	if fileContent == nil {
		return nil, fmt.Errorf("no file content returned for %s", fullPath)
	}

	content, err := fileContent.GetContent()
	if err != nil {
		return nil, fmt.Errorf("failed to decode content of %s: %w", fullPath, err)
	}

	return &FetchedFile{
		Name:    name,
		Content: []byte(content),
		SHA:     fileContent.GetSHA(),
		URL:     fileContent.GetHTMLURL(),
	}, nil
}

// GetLatestCommitSHA retrieves the SHA of the most recent commit affecting the source directory
func (f *Fetcher) GetLatestCommitSHA(ctx context.Context) (string, error) {
	commits, _, err := f.client.Repositories.ListCommits(
		ctx,
		f.source.Owner,
		f.source.Repo,
		&github.CommitsListOptions{
			SHA:  f.source.Ref,
			Path: f.source.Path,
			ListOptions: github.ListOptions{
				PerPage: 1,
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to get latest commit: %w", err)
	}
	if len(commits) == 0 {
		return "", fmt.Errorf("no commits found for path %s", f.source.Path)
	}
	if commits[0].SHA == nil {
		return "", errors.New("commit SHA is nil")
	}
	return *commits[0].SHA, nil
}

// Stage downloads the matching files of the source directory into dir.
// A file that fails to download is logged and left out; listing failures are returned.
func (f *Fetcher) Stage(ctx context.Context, dir string, extensions []string) (*Staged, error) {
	staged := &Staged{Dir: dir}

	sha, err := f.GetLatestCommitSHA(ctx)
	if err != nil {
		f.logger.Warn("Could not resolve commit", "repository", f.source.Repository(), "error", err)
	} else {
		staged.CommitSHA = sha
	}

	names, err := f.ListFiles(ctx, extensions)
	if err != nil {
		return nil, err
	}
	f.logger.Info("Found repository files", "repository", f.source.Repository(), "path", f.source.Path, "count", len(names))

	for _, name := range names {
		fetched, err := f.FetchFile(ctx, name)
		if err != nil {
			f.logger.Warn("Failed to fetch file", "file", name, "error", err)
			continue
		}
		target := filepath.Join(dir, filepath.Base(name))
		if err := os.WriteFile(target, fetched.Content, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", target, err)
		}
		staged.Files = append(staged.Files, target)
	}
	return staged, nil
}
