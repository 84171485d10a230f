package config

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var (
	errOpenQuote  = errors.New("unterminated quote")
	errOpenEscape = errors.New("unterminated escape sequence")
)

// argvScanner splits a shell-like command line. It understands single and
// double quotes and backslash escapes; nothing is expanded except a leading
// ~ on an unquoted word.
type argvScanner struct {
	words   []string
	word    strings.Builder
	inWord  bool
	quoted  bool
	quote   rune
	escaped bool
}

func (s *argvScanner) feed(r rune) {
	switch {
	case s.escaped:
		s.escaped = false
		s.add(r)
	case r == '\\':
		s.escaped = true
	case s.quote != 0 && r == s.quote:
		s.quote = 0
	case s.quote != 0:
		s.add(r)
	case r == '\'' || r == '"':
		s.quote = r
		s.quoted = true
		s.inWord = true
	case unicode.IsSpace(r):
		s.end()
	default:
		s.add(r)
	}
}

func (s *argvScanner) add(r rune) {
	s.inWord = true
	s.word.WriteRune(r)
}

func (s *argvScanner) end() {
	if !s.inWord || s.word.Len() == 0 {
		s.inWord, s.quoted = false, false
		return
	}
	word := s.word.String()
	if !s.quoted {
		word = ExpandUserPath(word)
	}
	s.words = append(s.words, word)
	s.word.Reset()
	s.inWord, s.quoted = false, false
}

// parseArgv splits a command string into argv. A blank string or one
// starting with # yields no command.
func parseArgv(input string) ([]string, error) {
	input = strings.TrimSpace(input)
	if input == "" || input[0] == '#' {
		return nil, nil
	}

	var s argvScanner
	for _, r := range input {
		s.feed(r)
	}
	switch {
	case s.escaped:
		return nil, fmt.Errorf("%w in command: %q", errOpenEscape, input)
	case s.quote != 0:
		return nil, fmt.Errorf("%w in command: %q", errOpenQuote, input)
	}
	s.end()
	return s.words, nil
}

func mustParseArgv(input string) []string {
	argv, err := parseArgv(input)
	if err != nil {
		panic(err)
	}
	return argv
}
