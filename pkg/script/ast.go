package script

import "github.com/alecthomas/participle/v2/lexer"

// File is a parsed script.
type File struct {
	Statements []*Statement `( @@ ";"? )*`
}

// Statement is one command. Exactly one field is set.
// Example: play 3
type Statement struct {
	Pos lexer.Position

	Volume      *string  `  "volume" @Number`
	Play        *string  `| "play" @Number`
	List        []string `| "list" @Number ( ","? @Number )*`
	LoopAdvance *string  `| "loop-advance" @Number`
	LoopAll     bool     `| @"loop-all"`
	Loop        *string  `| "loop" @Number`
	Stop        bool     `| @"stop"`
	Wait        *Wait    `| @@`
	Sleep       *string  `| "sleep" @Duration`
	UpdateAll   *string  `| "update-all" @String`
	Update      *Update  `| @@`
}

// Wait blocks until playback finishes, optionally bounded.
// Example: wait 10s
type Wait struct {
	Keyword string `@"wait"`
	Timeout string `@Duration?`
}

// Update programs one voice slot.
// Example: update 3 "voice.bin"
type Update struct {
	Index string `"update" @Number`
	Path  string `@String`
}
