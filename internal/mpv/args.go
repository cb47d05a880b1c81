package mpv

import "strings"

// ParseArgs splits the configured audio.args string into extra mpv command line arguments.  Arguments are separated
// by spaces, and a quoted section (single or double quotes) keeps its spaces, e.g. --title="my player".  The quotes
// themselves are dropped.
func ParseArgs(argsString string) []string {
	var (
		args    []string
		current strings.Builder
		quote   rune
	)
	flush := func() {
		if current.Len() > 0 {
			args = append(args, current.String())
			current.Reset()
		}
	}

	for _, r := range argsString {
		switch {
		case quote != 0 && r == quote:
			quote = 0
		case quote == 0 && (r == '"' || r == '\''):
			quote = r
		case quote == 0 && r == ' ':
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return args
}
