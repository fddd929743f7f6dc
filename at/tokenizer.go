package at

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Splitter is used for tokenizing the headset's control-channel stream. It
// uses the signature of bufio.SplitFunc so it can be directly used with
// bufio.Scanner.
//
// Headsets terminate command lines with CR, LF or CRLF depending on vendor;
// all three are accepted. Empty tokens can occur around CRLF pairs and are
// expected to be skipped by callers.
//
// The atEOF parameter indicates whether any more data will be available.
// When true, any remaining data is returned as the final token.
func Splitter(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexAny(data, CRLF); i >= 0 {
		advance = i + 1
		// Consume a CRLF pair as one terminator.
		if data[i] == '\r' && i+1 < len(data) && data[i+1] == '\n' {
			advance++
		}
		return advance, data[0:i], nil
	}

	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

var _ bufio.SplitFunc = Splitter

// ParseCommand classifies one inbound line. It reports false for lines the
// gateway does not recognize; such lines are still acknowledged on the wire,
// only their content is ignored.
func ParseCommand(line string) (Command, bool) {
	line = strings.TrimSpace(line)

	switch {
	case strings.HasPrefix(line, CmdSpeakerGain):
		if gain, ok := parseGain(line[len(CmdSpeakerGain):]); ok {
			return Command{Kind: CommandSpeakerGain, Gain: gain}, true
		}
	case strings.HasPrefix(line, CmdMicrophoneGain):
		if gain, ok := parseGain(line[len(CmdMicrophoneGain):]); ok {
			return Command{Kind: CommandMicrophoneGain, Gain: gain}, true
		}
	case strings.HasPrefix(line, CmdButton):
		return Command{Kind: CommandButton}, true
	}

	return Command{}, false
}

func parseGain(s string) (uint16, bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 16)
	if err != nil {
		return 0, false
	}
	return uint16(n), true
}

// FormatSpeakerGain builds the unsolicited speaker-gain line sent when the
// gateway changes the headset's speaker volume.
func FormatSpeakerGain(gain uint16) string {
	return fmt.Sprintf("%s+VGS=%d%s", CRLF, gain, CRLF)
}

// FormatMicrophoneGain builds the unsolicited microphone-gain line.
func FormatMicrophoneGain(gain uint16) string {
	return fmt.Sprintf("%s+VGM=%d%s", CRLF, gain, CRLF)
}
