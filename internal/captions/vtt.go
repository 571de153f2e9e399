package captions

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"autocaption/internal/services"
)

// DefaultHeader is written when WriteVTT receives an empty header.
const DefaultHeader = "WEBVTT - This file was automatically generated and edited using autocaption"

// Cue is one timed caption.
type Cue struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// ParseVTT reads WebVTT cues. The header block, cue identifiers, NOTE blocks,
// and cue settings after the end timestamp are ignored. Multi-line cue text is
// joined with single spaces.
func ParseVTT(r io.Reader) ([]Cue, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		cues    []Cue
		current *Cue
		text    []string
		inNote  bool
		lineNo  int
	)
	flush := func() {
		if current != nil {
			current.Text = strings.Join(text, " ")
			cues = append(cues, *current)
		}
		current = nil
		text = text[:0]
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if line == "" {
			flush()
			inNote = false
			continue
		}
		if inNote {
			continue
		}
		if strings.Contains(line, "-->") {
			flush()
			cue, err := parseTiming(line)
			if err != nil {
				return nil, services.Wrap(services.ErrValidation, "captions", "parse vtt", fmt.Sprintf("line %d", lineNo), err)
			}
			current = &cue
			continue
		}
		if current == nil {
			// Header, identifiers, and NOTE/STYLE blocks outside a cue body.
			if strings.HasPrefix(line, "NOTE") || strings.HasPrefix(line, "STYLE") || strings.HasPrefix(line, "REGION") {
				inNote = true
			}
			continue
		}
		text = append(text, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, services.Wrap(services.ErrValidation, "captions", "parse vtt", "read", err)
	}
	flush()
	return cues, nil
}

func parseTiming(line string) (Cue, error) {
	left, right, _ := strings.Cut(line, "-->")
	fields := strings.Fields(right)
	if len(fields) == 0 {
		return Cue{}, fmt.Errorf("missing end timestamp in %q", line)
	}
	start, err := ParseTimestamp(left)
	if err != nil {
		return Cue{}, err
	}
	end, err := ParseTimestamp(fields[0])
	if err != nil {
		return Cue{}, err
	}
	if end < start {
		return Cue{}, fmt.Errorf("cue ends before it starts: %q", line)
	}
	return Cue{Start: start, End: end}, nil
}

// WriteVTT writes cues numbered from 0 under header (DefaultHeader when empty).
func WriteVTT(w io.Writer, cues []Cue, header string) error {
	header = strings.TrimSpace(header)
	if header == "" {
		header = DefaultHeader
	}
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(header + "\n\n"); err != nil {
		return err
	}
	for i, cue := range cues {
		block := strconv.Itoa(i) + "\n" +
			FormatTimestamp(cue.Start) + " --> " + FormatTimestamp(cue.End) + "\n" +
			cue.Text + "\n\n"
		if _, err := bw.WriteString(block); err != nil {
			return err
		}
	}
	return bw.Flush()
}
