package utils

import (
	"io"

	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/quick"
)

// LanguageForFile returns the chroma lexer name for filename, "python" when nothing matches.
func LanguageForFile(filename string) string {
	if lexer := lexers.Match(filename); lexer != nil {
		return lexer.Config().Name
	}
	return "python"
}

// RenderCode writes source highlighted for a 256-colour terminal.
func RenderCode(w io.Writer, source string, language string, theme string) error {
	return quick.Highlight(w, source, language, "terminal256", theme)
}
