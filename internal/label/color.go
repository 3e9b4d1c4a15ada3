package label

import (
	"regexp"
	"strconv"
)

const (
	// DefaultBackground is used when a label has no color.
	DefaultBackground = "lightgray"

	black = "#000000"
	white = "#ffffff"
)

var hexColorRegex = regexp.MustCompile(`^#?([a-fA-F0-9]{2})([a-fA-F0-9]{2})([a-fA-F0-9]{2})$`)

// ContrastColor picks black or white text for the given background.
// Backgrounds that are not six-digit hex colors get black text.
func ContrastColor(background string) string {
	matches := hexColorRegex.FindStringSubmatch(background)
	if matches == nil {
		return black
	}

	red, _ := strconv.ParseUint(matches[1], 16, 8)
	green, _ := strconv.ParseUint(matches[2], 16, 8)
	blue, _ := strconv.ParseUint(matches[3], 16, 8)

	if float64(red)*0.299+float64(green)*0.587+float64(blue)*0.114 > 186 {
		return black
	}
	return white
}
