package script

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// ScriptLexer defines the tokens of a playback script.
var ScriptLexer = lexer.MustSimple([]lexer.SimpleRule{
	// Comments run to end of line
	{Name: "Comment", Pattern: `#[^\n]*`},

	{Name: "Whitespace", Pattern: `[\s\t\n\r]+`},

	{Name: "String", Pattern: `"(?:[^"\\]|\\.)*"`},

	// Durations must come before numbers so "500ms" is one token
	{Name: "Duration", Pattern: `[0-9]+(?:\.[0-9]+)?(?:ns|us|ms|s|m|h)\b`},
	{Name: "Number", Pattern: `0[xX][0-9a-fA-F]+|[0-9]+`},

	// Keywords are plain identifiers; hyphens allow loop-all etc.
	{Name: "Ident", Pattern: `[a-zA-Z][a-zA-Z0-9_-]*`},

	{Name: "Punct", Pattern: `[,;]`},
})
