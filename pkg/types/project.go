package types

import "time"

// RepositoryKind is the version control system detected at a project root
type RepositoryKind string

const (
	RepoGit        RepositoryKind = "git"
	RepoMercurial  RepositoryKind = "mercurial"
	RepoSubversion RepositoryKind = "subversion"
	RepoBazaar     RepositoryKind = "bazaar"
	RepoPerforce   RepositoryKind = "perforce"
	RepoFileSystem RepositoryKind = "filesystem"
)

// Project is a registered source tree
type Project struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	RootPath       string         `json:"root_path"`
	Description    string         `json:"description,omitempty"`
	Indexed        bool           `json:"indexed"`
	LastIndexed    time.Time      `json:"last_indexed,omitempty"`
	RepositoryKind RepositoryKind `json:"repository_kind"`
	Branch         string         `json:"branch,omitempty"`
	RemoteURL      string         `json:"remote_url,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// IndexedFile is one file of a project as of its last indexing
type IndexedFile struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"project_id"`
	Path         string    `json:"path"`
	RelativePath string    `json:"relative_path"`
	FileType     FileType  `json:"file_type"`
	Language     Language  `json:"language"`
	Size         int64     `json:"size"`
	LineCount    int       `json:"line_count"`
	LastModified time.Time `json:"last_modified"`
	LastIndexed  time.Time `json:"last_indexed"`
	Checksum     string    `json:"checksum"`
	Encoding     string    `json:"encoding"`
}
