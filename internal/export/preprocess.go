package export

import (
	"bytes"
	"regexp"
)

// Apple Health writes an inline DTD whose markup declarations are malformed
// for some data types, and scatters vertical-tab characters (\x0b) through
// free-text metadata values. Both break encoding/xml, so the raw bytes get
// scrubbed before parsing.

var (
	doctypeStart = regexp.MustCompile(`<!DOCTYPE`)
	doctypeEnd   = regexp.MustCompile(`\]>`)
)

// Preprocess strips the inline DTD block and removes every vertical-tab
// character. The input is returned unchanged when no DTD is present.
func Preprocess(data []byte) []byte {
	data = stripDTD(data)
	return stripInvisible(data)
}

func stripDTD(data []byte) []byte {
	start := doctypeStart.FindIndex(data)
	if start == nil {
		return data
	}
	end := doctypeEnd.FindIndex(data[start[0]:])
	if end == nil {
		return data
	}
	out := make([]byte, 0, len(data))
	out = append(out, data[:start[0]]...)
	out = append(out, data[start[0]+end[1]:]...)
	return out
}

func stripInvisible(data []byte) []byte {
	if !bytes.ContainsRune(data, '\x0b') {
		return data
	}
	return bytes.ReplaceAll(data, []byte{'\x0b'}, nil)
}
