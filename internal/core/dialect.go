package core

import (
	"errors"
)

// Dialect describes how a delimited text source is split into fields.
type Dialect struct {
	Delimiter rune
}

// DefaultDialect is used when the delimiter cannot be detected.
var DefaultDialect = Dialect{Delimiter: ','}

// sniffDelimiters lists the delimiters considered, in tie-break order.
var sniffDelimiters = []rune{',', '\t', ';', '|'}

// ErrNoDelimiter is returned by SniffDialect when no candidate delimiter
// occurs outside quotes in the sample.
var ErrNoDelimiter = errors.New("could not determine delimiter")

// SniffDialect detects the delimiter of a text sample.
//
// Each sample line is scanned outside double quotes and the occurrences of
// every candidate delimiter are counted. For each delimiter the most common
// non-zero per-line count is found; the delimiter whose most common count
// appears on the most lines wins. Ties go to the earlier delimiter in
// sniffDelimiters.
func SniffDialect(sample []byte) (Dialect, error) {
	lines := splitRecords(sample)
	if len(lines) == 0 {
		return Dialect{}, ErrNoDelimiter
	}

	best := rune(0)
	bestScore := 0
	for _, d := range sniffDelimiters {
		freq := make(map[int]int)
		for _, line := range lines {
			if n := countOutsideQuotes(line, byte(d)); n > 0 {
				freq[n]++
			}
		}

		score := 0
		for _, lineCount := range freq {
			if lineCount > score {
				score = lineCount
			}
		}
		if score > bestScore {
			best, bestScore = d, score
		}
	}

	if bestScore == 0 {
		return Dialect{}, ErrNoDelimiter
	}
	return Dialect{Delimiter: best}, nil
}

// DetectDialectOrDefault returns the sniffed dialect, or DefaultDialect when
// sniffing fails.
func DetectDialectOrDefault(sample []byte) Dialect {
	d, err := SniffDialect(sample)
	if err != nil {
		return DefaultDialect
	}
	return d
}

// splitRecords splits sample on newlines that are not inside double quotes.
// Empty lines are dropped.
func splitRecords(sample []byte) [][]byte {
	var lines [][]byte
	inQuotes := false
	start := 0
	for i, b := range sample {
		switch b {
		case '"':
			inQuotes = !inQuotes
		case '\n':
			if !inQuotes {
				lines = appendLine(lines, sample[start:i])
				start = i + 1
			}
		}
	}
	return appendLine(lines, sample[start:])
}

func appendLine(lines [][]byte, line []byte) [][]byte {
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	if len(line) == 0 {
		return lines
	}
	return append(lines, line)
}

// countOutsideQuotes counts occurrences of delim outside double quotes.
func countOutsideQuotes(line []byte, delim byte) int {
	n := 0
	inQuotes := false
	for _, b := range line {
		switch {
		case b == '"':
			inQuotes = !inQuotes
		case b == delim && !inQuotes:
			n++
		}
	}
	return n
}
