package classifier

import (
	"path/filepath"
	"strings"

	"github.com/dshills/codeindex/pkg/types"
)

var languageByExt = map[string]types.Language{
	"rs":       types.LangRust,
	"js":       types.LangJavaScript,
	"mjs":      types.LangJavaScript,
	"cjs":      types.LangJavaScript,
	"jsx":      types.LangJavaScript,
	"ts":       types.LangTypeScript,
	"tsx":      types.LangTSX,
	"py":       types.LangPython,
	"pyw":      types.LangPython,
	"java":     types.LangJava,
	"c":        types.LangC,
	"h":        types.LangC,
	"cpp":      types.LangCPP,
	"cc":       types.LangCPP,
	"cxx":      types.LangCPP,
	"hpp":      types.LangCPP,
	"hxx":      types.LangCPP,
	"go":       types.LangGo,
	"html":     types.LangHTML,
	"htm":      types.LangHTML,
	"css":      types.LangCSS,
	"json":     types.LangJSON,
	"xml":      types.LangXML,
	"yaml":     types.LangYAML,
	"yml":      types.LangYAML,
	"toml":     types.LangTOML,
	"md":       types.LangMarkdown,
	"markdown": types.LangMarkdown,
	"sh":       types.LangShell,
	"bash":     types.LangShell,
	"zsh":      types.LangShell,
	"sql":      types.LangSQL,
}

var languageByName = map[string]types.Language{
	"Dockerfile":     types.LangDockerfile,
	"Makefile":       types.LangMakefile,
	"GNUmakefile":    types.LangMakefile,
	"makefile":       types.LangMakefile,
	"CMakeLists.txt": types.LangCMake,
}

var fileTypeByExt = map[string]types.FileType{}

func init() {
	register := func(ft types.FileType, exts ...string) {
		for _, e := range exts {
			fileTypeByExt[e] = ft
		}
	}
	register(types.FileTypeSource,
		"rs", "js", "mjs", "cjs", "jsx", "ts", "tsx", "py", "pyw", "java", "c", "h",
		"cpp", "cc", "cxx", "hpp", "hxx", "go", "sh", "bash", "zsh", "sql", "rb",
		"php", "kt", "swift", "scala", "cs", "lua", "html", "htm", "css")
	register(types.FileTypeDocumentation, "md", "markdown", "rst", "txt", "adoc", "org")
	register(types.FileTypeConfiguration, "toml", "yaml", "yml", "ini", "cfg", "conf", "properties", "env")
	register(types.FileTypeData, "json", "xml", "csv", "tsv")
	register(types.FileTypeBinary, "exe", "dll", "so", "dylib", "a", "lib", "o", "obj",
		"class", "pyc", "pyo", "pyd", "wasm", "bin")
	register(types.FileTypeArchive, "zip", "tar", "gz", "bz2", "xz", "7z", "rar", "jar",
		"war", "ear", "whl", "egg")
	register(types.FileTypeImage, "png", "jpg", "jpeg", "gif", "bmp", "ico", "svg", "webp", "tiff")
}

// DetectLanguage returns the language for a path from its well-known file
// name or its extension, LangText when neither is recognized.
func DetectLanguage(path string) types.Language {
	base := filepath.Base(path)
	if lang, ok := languageByName[base]; ok {
		return lang
	}
	if lang, ok := languageByExt[extension(base)]; ok {
		return lang
	}
	return types.LangText
}

// DetectFileType returns the coarse file category from the extension
func DetectFileType(path string) types.FileType {
	base := filepath.Base(path)
	if _, ok := languageByName[base]; ok {
		return types.FileTypeConfiguration
	}
	if ft, ok := fileTypeByExt[extension(base)]; ok {
		return ft
	}
	return types.FileTypeUnknown
}

func extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}
