package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/soyeahso/loom/internal/domain"
)

// Storage is the file-storage service handle bound into agents.
type Storage interface {
	Put(ctx context.Context, name string, r io.Reader) error
	Get(ctx context.Context, name string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, name string) error
	Name() string
}

// LocalStorage stores objects as files under a root directory.
type LocalStorage struct {
	provider string
	root     string
}

// NewLocalStorage creates a directory-backed storage client.
func NewLocalStorage(cfg domain.ProviderConfig) (*LocalStorage, error) {
	root := cfg.Settings["root"]
	if root == "" {
		return nil, &UnavailableError{Provider: cfg.Name, Reason: "local storage requires a root setting"}
	}
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, &UnavailableError{Provider: cfg.Name, Reason: "creating root: " + err.Error()}
	}
	return &LocalStorage{provider: cfg.Name, root: root}, nil
}

// Name returns the provider name.
func (s *LocalStorage) Name() string { return s.provider }

// Put writes an object, replacing any existing one.
func (s *LocalStorage) Put(ctx context.Context, name string, r io.Reader) error {
	path, err := s.objectPath(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(f, r)
	return err
}

// Get opens an object for reading.
func (s *LocalStorage) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	path, err := s.objectPath(name)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// List returns object names with the given prefix, sorted.
func (s *LocalStorage) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes an object.
func (s *LocalStorage) Delete(ctx context.Context, name string) error {
	path, err := s.objectPath(name)
	if err != nil {
		return err
	}
	return os.Remove(path)
}

// objectPath maps an object name to a file path, rejecting traversal.
func (s *LocalStorage) objectPath(name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid object name %q", name)
	}
	return filepath.Join(s.root, cleaned), nil
}

// DriveStorage stores objects as files in a Google Drive folder.
type DriveStorage struct {
	provider string
	svc      *drive.Service
	folderID string
}

// NewDriveStorage builds a Drive-backed storage client. The provider
// Settings map supplies credentialsFile (OAuth client JSON), tokenFile
// (saved oauth2.Token JSON), and optionally folderId.
func NewDriveStorage(ctx context.Context, cfg domain.ProviderConfig) (*DriveStorage, error) {
	credsPath := cfg.Settings["credentialsFile"]
	tokenPath := cfg.Settings["tokenFile"]
	if credsPath == "" || tokenPath == "" {
		return nil, &UnavailableError{
			Provider: cfg.Name,
			Reason:   "drive storage requires credentialsFile and tokenFile settings",
		}
	}

	creds, err := os.ReadFile(credsPath)
	if err != nil {
		return nil, &UnavailableError{Provider: cfg.Name, Reason: "reading credentials: " + err.Error()}
	}
	oauthCfg, err := google.ConfigFromJSON(creds, drive.DriveFileScope)
	if err != nil {
		return nil, &UnavailableError{Provider: cfg.Name, Reason: "parsing credentials: " + err.Error()}
	}

	token, err := tokenFromFile(tokenPath)
	if err != nil {
		return nil, &UnavailableError{Provider: cfg.Name, Reason: "reading token: " + err.Error()}
	}

	svc, err := drive.NewService(ctx, option.WithHTTPClient(oauthCfg.Client(ctx, token)))
	if err != nil {
		return nil, &UnavailableError{Provider: cfg.Name, Reason: "creating drive service: " + err.Error()}
	}

	return &DriveStorage{
		provider: cfg.Name,
		svc:      svc,
		folderID: cfg.Settings["folderId"],
	}, nil
}

// Name returns the provider name.
func (s *DriveStorage) Name() string { return s.provider }

// Put uploads an object, replacing any file with the same name.
func (s *DriveStorage) Put(ctx context.Context, name string, r io.Reader) error {
	if existing, err := s.findFile(ctx, name); err == nil {
		_, err := s.svc.Files.Update(existing, &drive.File{}).Media(r).Context(ctx).Do()
		return err
	}

	file := &drive.File{Name: name}
	if s.folderID != "" {
		file.Parents = []string{s.folderID}
	}
	_, err := s.svc.Files.Create(file).Media(r).Context(ctx).Do()
	return err
}

// Get downloads an object by name.
func (s *DriveStorage) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	id, err := s.findFile(ctx, name)
	if err != nil {
		return nil, err
	}
	resp, err := s.svc.Files.Get(id).Context(ctx).Download()
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// List returns object names with the given prefix.
func (s *DriveStorage) List(ctx context.Context, prefix string) ([]string, error) {
	query := "trashed = false"
	if s.folderID != "" {
		query += fmt.Sprintf(" and '%s' in parents", s.folderID)
	}

	var names []string
	pageToken := ""
	for {
		call := s.svc.Files.List().Q(query).Fields("nextPageToken, files(name)").Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		page, err := call.Do()
		if err != nil {
			return nil, err
		}
		for _, f := range page.Files {
			if strings.HasPrefix(f.Name, prefix) {
				names = append(names, f.Name)
			}
		}
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes an object by name.
func (s *DriveStorage) Delete(ctx context.Context, name string) error {
	id, err := s.findFile(ctx, name)
	if err != nil {
		return err
	}
	return s.svc.Files.Delete(id).Context(ctx).Do()
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var token oauth2.Token
	if err := json.NewDecoder(f).Decode(&token); err != nil {
		return nil, err
	}
	return &token, nil
}

func (s *DriveStorage) findFile(ctx context.Context, name string) (string, error) {
	query := fmt.Sprintf("name = '%s' and trashed = false", strings.ReplaceAll(name, "'", "\\'"))
	if s.folderID != "" {
		query += fmt.Sprintf(" and '%s' in parents", s.folderID)
	}
	list, err := s.svc.Files.List().Q(query).Fields("files(id)").PageSize(1).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if len(list.Files) == 0 {
		return "", fmt.Errorf("object %q not found", name)
	}
	return list.Files[0].Id, nil
}
