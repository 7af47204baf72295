package parser

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xxxsen/chatrecall/internal/model"
)

type Options struct {
	IncludeSystemMessages  bool `json:"include_system_messages"`
	IncludeDeletedMessages bool `json:"include_deleted_messages"`
}

type Result struct {
	Messages     []model.Message           `json:"messages"`
	Participants []string                  `json:"participants"`
	StartDate    *time.Time                `json:"start_date,omitempty"`
	EndDate      *time.Time                `json:"end_date,omitempty"`
	Counts       map[model.MessageType]int `json:"counts"`
}

// Parser reconstructs discrete messages from a raw chat export. It never
// fails on malformed input: a line that matches no timestamp format is a
// continuation of the open message, or is dropped when none is open.
type Parser struct{}

func New() *Parser {
	return &Parser{}
}

// accumulator is the parser's only mutable state: a small two-state
// machine (idle / accumulating) holding the message currently being built.
type accumulator struct {
	active    bool
	timestamp time.Time
	sender    string
	lines     []string
	raw       []string
}

func (a *accumulator) open(ts time.Time, sender, content, raw string) {
	a.active = true
	a.timestamp = ts
	a.sender = sender
	a.lines = []string{content}
	a.raw = []string{raw}
}

func (a *accumulator) extend(line string) {
	a.lines = append(a.lines, line)
	a.raw = append(a.raw, line)
}

func (a *accumulator) reset() {
	a.active = false
	a.sender = ""
	a.lines = nil
	a.raw = nil
}

func (p *Parser) Parse(text string, opts Options) *Result {
	result := &Result{
		Participants: []string{},
		Counts:       make(map[model.MessageType]int),
	}
	participants := make(map[string]bool)
	var acc accumulator
	sticky := -1

	finalize := func() {
		if !acc.active {
			return
		}
		content := strings.Join(acc.lines, "\n")
		msgType, mediaType := classify(acc.sender, content)
		result.Counts[msgType]++
		if msgType != model.MessageTypeSystem && acc.sender != "" {
			participants[acc.sender] = true
		}
		ts := acc.timestamp
		if result.StartDate == nil || ts.Before(*result.StartDate) {
			start := ts
			result.StartDate = &start
		}
		if result.EndDate == nil || ts.After(*result.EndDate) {
			end := ts
			result.EndDate = &end
		}
		keep := true
		switch msgType {
		case model.MessageTypeSystem:
			keep = opts.IncludeSystemMessages
		case model.MessageTypeDeleted:
			keep = opts.IncludeDeletedMessages
		}
		if keep {
			result.Messages = append(result.Messages, model.Message{
				ID:        uuid.NewString(),
				Timestamp: ts,
				Sender:    acc.sender,
				Content:   content,
				Type:      msgType,
				MediaType: mediaType,
				Raw:       strings.Join(acc.raw, "\n"),
			})
		}
		acc.reset()
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		ts, prefixLen, matched, ok := matchTimestamp(line, sticky)
		if !ok {
			if acc.active {
				acc.extend(line)
			}
			continue
		}
		sticky = matched
		finalize()
		sender, content := splitSender(stripSeparator(line[prefixLen:]))
		acc.open(ts, sender, content, line)
	}
	finalize()

	for name := range participants {
		result.Participants = append(result.Participants, name)
	}
	sort.Strings(result.Participants)
	return result
}

// stripSeparator removes the delimiter between the timestamp prefix and
// the message remainder. Android exports use " - ", iOS uses "] ".
func stripSeparator(rest string) string {
	for _, sep := range []string{" - ", "] ", ": ", "- ", "]"} {
		if strings.HasPrefix(rest, sep) {
			return rest[len(sep):]
		}
	}
	return strings.TrimLeft(rest, " ")
}

// splitSender breaks "sender: content" on the first colon found within the
// first 50 characters. Lines without a qualifying colon are senderless and
// route to system classification.
func splitSender(rest string) (string, string) {
	idx := strings.Index(rest, ":")
	if idx < 0 || idx >= 50 {
		return "", strings.TrimSpace(rest)
	}
	return strings.TrimSpace(rest[:idx]), strings.TrimSpace(rest[idx+1:])
}
