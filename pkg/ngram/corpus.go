package ngram

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// maxLineLength bounds a single corpus line so a missing newline in a huge file
// cannot take up an unbounded amount of memory.
const maxLineLength = 1 << 20

// ReadCorpus parses one training word per line. The line terminator ("\n" or
// "\r\n") is stripped; every other character, interior whitespace included, is
// kept as a symbol. Invalid UTF-8 is replaced by U+FFFD. Empty lines are
// skipped. I/O failures and lines holding a reserved marker symbol are reported
// as *ParseError.
func ReadCorpus(source string, r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)

	var words []string
	line := 0
	for scanner.Scan() {
		line++
		text := normalizeWord(scanner.Text())
		if text == "" {
			continue
		}
		if strings.ContainsRune(text, StartOfWord) || strings.ContainsRune(text, EndOfWord) {
			return nil, &ParseError{Source: source, Line: line, Err: errors.New("line holds a reserved marker symbol")}
		}
		words = append(words, text)
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Source: source, Line: line + 1, Err: fmt.Errorf("read failed: %w", err)}
	}
	return words, nil
}
