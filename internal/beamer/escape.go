package beamer

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

var latexReplacer = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`{`, `\{`,
	`}`, `\}`,
	`$`, `\$`,
	`&`, `\&`,
	`#`, `\#`,
	`%`, `\%`,
	`_`, `\_`,
	`^`, `\textasciicircum{}`,
	`~`, `\textasciitilde{}`,
)

// Escape returns s in NFC form with LaTeX special characters escaped.
func Escape(s string) string {
	return latexReplacer.Replace(norm.NFC.String(s))
}
