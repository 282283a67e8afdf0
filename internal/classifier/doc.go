// Package classifier decides which files of a project are indexed and tags
// them with a language and a file type.
//
// Classification is a pure function of the path and the ignore configuration:
//
//	c := classifier.New(classifier.DefaultIgnoreConfig())
//	cl := c.Classify("src/main.rs")
//	// cl.Indexable == true, cl.Language == types.LangRust
//
// Hidden entries, configured ignore directories (dependency, build and cache
// folders), ignored file globs, binary-by-extension files and .gitignore
// matches are rejected. Unknown extensions classify as LangText.
//
// The package also holds the content helpers the indexer runs on every file:
// binary sniffing, encoding detection, line counting and checksums.
package classifier
