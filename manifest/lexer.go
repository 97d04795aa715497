package manifest

import (
	"bufio"
	"io"

	"github.com/dargueta/fatbuilder/buildcfg"
)

type lexerState int

const (
	stateNormal lexerState = iota
	stateString
	stateEscaped
	stateComment
)

// line is one logical manifest line: the tokens parsed from it, plus its
// 1-based source line number for diagnostics.
type line struct {
	tokens   []string
	lineNo   int
}

// tokenize scans r according to the grammar in §4.1: whitespace-separated
// tokens, ';' line comments, '"..."' string literals with '\' escaping any
// single character. It returns one entry per non-empty logical line.
//
// Grounded on FilesystemTree.cpp's parse(): the same four-state machine
// (Normal/String/Escaped/Comment), translated from a byte-at-a-time
// std::istream::get() loop into a bufio.Reader-driven rune scanner.
func tokenize(r io.Reader) ([]line, error) {
	reader := bufio.NewReader(r)

	state := stateNormal
	var tokens []string
	var tokenBuf []rune
	tokenActive := false
	var lines []line
	lineNo := 1

	flushToken := func() {
		if tokenActive {
			tokens = append(tokens, string(tokenBuf))
			tokenBuf = tokenBuf[:0]
			tokenActive = false
		}
	}

	flushLine := func() {
		if len(tokens) != 0 {
			lines = append(lines, line{tokens: tokens, lineNo: lineNo})
			tokens = nil
		}
	}

	for {
		ch, _, err := reader.ReadRune()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, buildcfg.ErrUnterminatedString.WrapError(err)
		}

		switch state {
		case stateNormal:
			switch {
			case ch == '"':
				tokenActive = true
				state = stateString
			case ch == ';':
				state = stateComment
			case isManifestSpace(ch):
				flushToken()
				if ch == '\n' {
					flushLine()
					lineNo++
				}
			default:
				tokenBuf = append(tokenBuf, ch)
				tokenActive = true
			}

		case stateString:
			switch ch {
			case '\\':
				state = stateEscaped
			case '"':
				state = stateNormal
			default:
				tokenBuf = append(tokenBuf, ch)
			}

		case stateEscaped:
			tokenBuf = append(tokenBuf, ch)
			state = stateString

		case stateComment:
			if ch == '\n' {
				flushToken()
				flushLine()
				lineNo++
				state = stateNormal
			}
		}
	}

	if state == stateString || state == stateEscaped {
		return nil, buildcfg.ErrUnterminatedString.WithMessage(
			"end of file reached before closing quote")
	}

	if tokenActive || len(tokens) != 0 {
		return nil, buildcfg.ErrMissingNewline.WithMessage(
			"no newline at the end of the manifest")
	}

	return lines, nil
}

func isManifestSpace(ch rune) bool {
	switch ch {
	case ' ', '\t', '\r', '\n', '\v', '\f':
		return true
	default:
		return false
	}
}
