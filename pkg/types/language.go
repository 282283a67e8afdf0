package types

// Language identifies the programming or markup language of a file
type Language string

const (
	LangRust       Language = "rust"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangPython     Language = "python"
	LangJava       Language = "java"
	LangC          Language = "c"
	LangCPP        Language = "cpp"
	LangGo         Language = "go"
	LangHTML       Language = "html"
	LangCSS        Language = "css"
	LangJSON       Language = "json"
	LangXML        Language = "xml"
	LangYAML       Language = "yaml"
	LangTOML       Language = "toml"
	LangMarkdown   Language = "markdown"
	LangShell      Language = "shell"
	LangSQL        Language = "sql"

	// Build-manifest pseudo-languages, detected by file name
	LangDockerfile Language = "dockerfile"
	LangMakefile   Language = "makefile"
	LangCMake      Language = "cmake"

	// LangText is the fallback for anything unrecognized
	LangText Language = "text"
)

// FileType is the coarse category of a file
type FileType string

const (
	FileTypeSource        FileType = "source"
	FileTypeDocumentation FileType = "documentation"
	FileTypeConfiguration FileType = "configuration"
	FileTypeData          FileType = "data"
	FileTypeBinary        FileType = "binary"
	FileTypeArchive       FileType = "archive"
	FileTypeImage         FileType = "image"
	FileTypeUnknown       FileType = "unknown"
)

// IsBinaryLike reports whether files of this type carry no indexable text
func (t FileType) IsBinaryLike() bool {
	return t == FileTypeBinary || t == FileTypeArchive || t == FileTypeImage
}
