// Package cli holds the ANSI helpers used by the startup banner and the
// provider status summary.
package cli

import (
	"fmt"
	"os"
)

const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Blue   = "\033[34m"
	Cyan   = "\033[36m"
	Dim    = "\033[2m"
)

// disableColor honors the NO_COLOR convention (https://no-color.org/).
var disableColor = checkNoColor()

func checkNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// Style wraps text in a specific color code
func Style(text string, colorCode string) string {
	if disableColor {
		return text
	}
	return fmt.Sprintf("%s%s%s", colorCode, text, Reset)
}

func CheckMark() string {
	return Style("✔", Green)
}

func CrossMark() string {
	return Style("✘", Red)
}

func Arrow() string {
	return Style("➜", Blue)
}
