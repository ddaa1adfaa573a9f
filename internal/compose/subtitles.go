package compose

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Scene subtitle generator
//
// Renders a scene's narration as a single ASS (Advanced SubStation Alpha)
// event spanning the whole scene: white text with a black outline,
// bottom-centered, transparent outside the glyphs. Text is wrapped to a
// fixed column width so it stays inside a safe horizontal margin.
// ---------------------------------------------------------------------------

const (
	// Narration is wrapped to this many columns before rendering.
	subtitleWrapColumns = 50

	subtitleFontName = "Noto Sans"
	subtitleFontSize = 48

	// ASS colors are in &HAABBGGRR format (hex, note: BGR not RGB)
	assColorWhite = "&H00FFFFFF"
	assColorBlack = "&H00000000"

	subtitleOutline = 3
	// MarginV controls distance from the bottom edge on the 1080-height canvas
	subtitleMarginV = 60
)

// writeSceneSubtitles writes an ASS file with the wrapped narration shown for
// the full scene duration.
func writeSceneSubtitles(narration string, sceneDur float64, outputPath string) error {
	text := strings.TrimSpace(narration)
	if text == "" {
		return fmt.Errorf("no narration text to render")
	}

	lines := wrapText(text, subtitleWrapColumns)

	var sb strings.Builder

	sb.WriteString("[Script Info]\n")
	sb.WriteString("ScriptType: v4.00+\n")
	fmt.Fprintf(&sb, "PlayResX: %d\n", frameWidth)
	fmt.Fprintf(&sb, "PlayResY: %d\n", frameHeight)
	sb.WriteString("WrapStyle: 2\n")
	sb.WriteString("ScaledBorderAndShadow: yes\n")
	sb.WriteString("\n")

	sb.WriteString("[V4+ Styles]\n")
	sb.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")

	// White text, black outline, no box, bottom-center alignment (2)
	fmt.Fprintf(&sb,
		"Style: Default,%s,%d,%s,%s,%s,%s,0,0,0,0,100,100,0,0,1,%d,0,2,40,40,%d,1\n",
		subtitleFontName, subtitleFontSize,
		assColorWhite, // PrimaryColour (text)
		assColorWhite, // SecondaryColour
		assColorBlack, // OutlineColour
		assColorBlack, // BackColour (unused with BorderStyle 1)
		subtitleOutline,
		subtitleMarginV,
	)
	sb.WriteString("\n")

	sb.WriteString("[Events]\n")
	sb.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	fmt.Fprintf(&sb,
		"Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n",
		formatASSTime(0),
		formatASSTime(sceneDur),
		strings.Join(lines, "\\N"),
	)

	if err := os.WriteFile(outputPath, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write ASS subtitle file: %w", err)
	}

	return nil
}

// wrapText greedily wraps text at word boundaries to the given column width,
// measured in runes so multi-byte scripts wrap at the same visual width as
// ASCII. A single word longer than the width gets its own line unbroken.
func wrapText(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]
	currentLen := utf8.RuneCountInString(current)
	for _, word := range words[1:] {
		wordLen := utf8.RuneCountInString(word)
		if currentLen+1+wordLen <= width {
			current += " " + word
			currentLen += 1 + wordLen
		} else {
			lines = append(lines, current)
			current = word
			currentLen = wordLen
		}
	}
	lines = append(lines, current)

	return lines
}

// formatASSTime converts seconds to ASS timestamp format: H:MM:SS.CC (centiseconds)
func formatASSTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}

	hours := int(seconds) / 3600
	minutes := (int(seconds) % 3600) / 60
	secs := int(seconds) % 60
	centiseconds := int((seconds - float64(int(seconds))) * 100)

	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, minutes, secs, centiseconds)
}
