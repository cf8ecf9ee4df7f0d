package pipeshell

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// word is one shell-like token. quoted is set when any part of the word came
// from a quoted or escaped section, and lead is the byte length of the text
// before the first such part. Only a word whose lead starts with "--" is
// read as a flag.
type word struct {
	text   string
	quoted bool
	lead   int
	pos    int
}

func (w word) isFlag() bool {
	return strings.HasPrefix(w.text[:w.lead], "--")
}

type segment struct {
	words []word
	pos   int
}

// ParsePipeline turns pipeline text into an ordered list of invocations.
//
// Stages are separated by '|'. Single quotes are literal, double quotes allow
// \" \\ and \| escapes, and a backslash outside quotes escapes the next
// character. Within a stage the first word is the command name; "--flag
// value", "--flag=value" and a bare "--flag" (meaning "true") are flags, "--"
// ends flag parsing, and every other word is positional. Empty or blank text
// yields an empty Pipeline. Command names are not checked here.
func ParsePipeline(text string) (Pipeline, error) {
	segments, err := splitSegments(text)
	if err != nil {
		return nil, err
	}
	pipeline := make(Pipeline, 0, len(segments))
	for _, seg := range segments {
		inv, err := parseInvocation(seg)
		if err != nil {
			return nil, err
		}
		pipeline = append(pipeline, inv)
	}
	return pipeline, nil
}

// MustParsePipeline is like ParsePipeline but panics on error.
func MustParsePipeline(text string) Pipeline {
	p, err := ParsePipeline(text)
	if err != nil {
		panic(err)
	}
	return p
}

func splitSegments(text string) ([]segment, error) {
	var (
		segments []segment
		current  = segment{pos: 0}
		buf      strings.Builder
		inWord   bool
		quoted   bool
		lead     int
		wordPos  int
		pipes    int
	)

	startWord := func(pos int) {
		if !inWord {
			inWord = true
			quoted = false
			wordPos = pos
			buf.Reset()
		}
	}
	markQuoted := func() {
		if !quoted {
			quoted = true
			lead = buf.Len()
		}
	}
	endWord := func() {
		if inWord {
			if !quoted {
				lead = buf.Len()
			}
			current.words = append(current.words, word{text: buf.String(), quoted: quoted, lead: lead, pos: wordPos})
			inWord = false
		}
	}
	endSegment := func(pos int) error {
		endWord()
		if len(current.words) == 0 {
			return &ParseError{Pos: pos, Token: "|", Message: "empty pipeline stage"}
		}
		segments = append(segments, current)
		current = segment{pos: pos + 1}
		return nil
	}

	// Walk the raw bytes and copy original byte ranges into words so values
	// keep their exact bytes, invalid UTF-8 included. Every syntax character
	// is ASCII and cannot occur inside a multi-byte sequence.
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		pos := i
		switch {
		case r == '|':
			pipes++
			if err := endSegment(pos); err != nil {
				return nil, err
			}
			i++
		case r != utf8.RuneError && unicode.IsSpace(r):
			endWord()
			i += size
		case r == '\\':
			if i+1 >= len(text) {
				return nil, &ParseError{Pos: pos, Token: `\`, Message: "dangling escape at end of input"}
			}
			startWord(pos)
			markQuoted()
			_, next := utf8.DecodeRuneInString(text[i+1:])
			buf.WriteString(text[i+1 : i+1+next])
			i += 1 + next
		case r == '\'':
			startWord(pos)
			markQuoted()
			end := strings.IndexByte(text[i+1:], '\'')
			if end < 0 {
				return nil, &ParseError{Pos: pos, Token: "'", Message: "unterminated single quote"}
			}
			buf.WriteString(text[i+1 : i+1+end])
			i += end + 2
		case r == '"':
			startWord(pos)
			markQuoted()
			closed := false
			for i++; i < len(text); i++ {
				c := text[i]
				if c == '"' {
					closed = true
					i++
					break
				}
				if c == '\\' && i+1 < len(text) {
					switch next := text[i+1]; next {
					case '"', '\\', '|':
						buf.WriteByte(next)
						i++
						continue
					}
				}
				buf.WriteByte(c)
			}
			if !closed {
				return nil, &ParseError{Pos: pos, Token: `"`, Message: "unterminated double quote"}
			}
		default:
			startWord(pos)
			buf.WriteString(text[i : i+size])
			i += size
		}
	}
	endWord()

	if len(current.words) == 0 {
		if pipes > 0 {
			return nil, &ParseError{Pos: len(text), Token: "|", Message: "empty pipeline stage after trailing pipe"}
		}
		return segments, nil
	}
	segments = append(segments, current)
	return segments, nil
}

func parseInvocation(seg segment) (Invocation, error) {
	head := seg.words[0]
	if head.isFlag() {
		return Invocation{}, &ParseError{Pos: head.pos, Token: head.text, Message: "stage is missing a command name"}
	}
	if head.text == "" {
		return Invocation{}, &ParseError{Pos: head.pos, Token: head.text, Message: "empty command name"}
	}

	args := Args{}
	words := seg.words[1:]
	endOfFlags := false
	for i := 0; i < len(words); i++ {
		w := words[i]
		if endOfFlags || !w.isFlag() {
			args.positional = append(args.positional, w.text)
			continue
		}
		if !w.quoted && w.text == "--" {
			endOfFlags = true
			continue
		}
		name, value, hasValue := strings.Cut(w.text[2:], "=")
		if name == "" || name == PositionalKey {
			return Invocation{}, &ParseError{Pos: w.pos, Token: w.text, Message: "invalid flag name"}
		}
		if !hasValue {
			if i+1 < len(words) && !words[i+1].isFlag() {
				value = words[i+1].text
				i++
			} else {
				value = "true"
			}
		}
		args.add(name, value)
	}

	return Invocation{Name: head.text, Args: args}, nil
}
