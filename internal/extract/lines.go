package extract

import (
	"bufio"
	"strings"
	"unicode/utf8"
)

// maxLabelLength bounds what counts as a label; longer prefixes are prose
const maxLabelLength = 60

// ParseLabelLines finds "label: value" lines in plain text or markdown.
// Markdown bullets, emphasis and two-column table rows are understood.
func ParseLabelLines(text string) []LabeledValue {
	var pairs []LabeledValue

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "|") {
			if pair, ok := tableRow(line); ok {
				pairs = append(pairs, pair)
			}
			continue
		}

		line = strings.TrimLeft(line, "-*+> \t")
		line = strings.ReplaceAll(line, "**", "")
		line = strings.ReplaceAll(line, "__", "")

		if pair, ok := SplitLabel(line); ok {
			pairs = append(pairs, pair)
		}
	}

	return pairs
}

// SplitLabel splits a single "label: value" string
func SplitLabel(line string) (LabeledValue, bool) {
	i := strings.Index(line, ":")
	if i <= 0 {
		return LabeledValue{}, false
	}
	label := strings.TrimSpace(line[:i])
	value := strings.TrimSpace(line[i+1:])
	if label == "" || value == "" || utf8.RuneCountInString(label) > maxLabelLength {
		return LabeledValue{}, false
	}
	// "https://..." and "10:30" are values, not labels
	if strings.HasPrefix(value, "//") || strings.ContainsAny(label[len(label)-1:], "0123456789") {
		return LabeledValue{}, false
	}
	return LabeledValue{Label: label, Value: value}, true
}

// tableRow reads a markdown "| label | value |" row
func tableRow(line string) (LabeledValue, bool) {
	cells := strings.Split(strings.Trim(line, "|"), "|")
	if len(cells) != 2 {
		return LabeledValue{}, false
	}
	label := strings.TrimSpace(strings.ReplaceAll(cells[0], "**", ""))
	value := strings.TrimSpace(strings.ReplaceAll(cells[1], "**", ""))
	if label == "" || value == "" || strings.Trim(label, "-: ") == "" {
		return LabeledValue{}, false
	}
	return LabeledValue{Label: label, Value: value}, true
}
