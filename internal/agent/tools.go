package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/chatrecall/internal/model"
	"github.com/xxxsen/chatrecall/internal/retriever"
	"github.com/xxxsen/chatrecall/internal/vectorstore"
)

type toolParam struct {
	Name        string
	Description string
	Required    bool
}

type tool struct {
	Name        string
	Description string
	Params      []toolParam
	Execute     func(ctx context.Context, args map[string]interface{}) (string, error)
}

// Toolset is the fixed capability set exposed to the model. Every execute is
// wrapped so an internal failure becomes an "Error: ..." observation instead
// of breaking the loop.
type Toolset struct {
	retriever *retriever.Retriever
	tools     map[string]*tool
	order     []string
}

func NewToolset(r *retriever.Retriever) *Toolset {
	ts := &Toolset{
		retriever: r,
		tools:     map[string]*tool{},
	}
	ts.register(&tool{
		Name:        "search",
		Description: "Search the chat archive for messages relevant to a query.",
		Params: []toolParam{
			{Name: "query", Description: "what to look for", Required: true},
			{Name: "participant", Description: "restrict to messages involving this person"},
			{Name: "limit", Description: "number of excerpts to return, default 3"},
		},
		Execute: ts.execSearch,
	})
	ts.register(&tool{
		Name:        "filter_by_date",
		Description: "Search the chat archive within a date range (YYYY-MM-DD).",
		Params: []toolParam{
			{Name: "query", Description: "what to look for", Required: true},
			{Name: "start_date", Description: "inclusive start date"},
			{Name: "end_date", Description: "inclusive end date"},
		},
		Execute: ts.execFilterByDate,
	})
	ts.register(&tool{
		Name:        "list_participants",
		Description: "List the people who discussed a topic.",
		Params: []toolParam{
			{Name: "topic", Description: "the topic to look up", Required: true},
		},
		Execute: ts.execListParticipants,
	})
	ts.register(&tool{
		Name:        "summarize",
		Description: "Summarize what the archive contains about a topic.",
		Params: []toolParam{
			{Name: "topic", Description: "the topic to summarize", Required: true},
		},
		Execute: ts.execSummarize,
	})
	return ts
}

func (t *Toolset) register(item *tool) {
	t.tools[item.Name] = item
	t.order = append(t.order, item.Name)
}

// Dispatch runs the named tool and never returns an error: failures are
// folded into the observation text.
func (t *Toolset) Dispatch(ctx context.Context, name string, args map[string]interface{}) string {
	item, ok := t.tools[name]
	if !ok {
		return "Error: Unknown tool"
	}
	obs, err := item.Execute(ctx, args)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return obs
}

// Describe renders the tool catalogue for the system prompt.
func (t *Toolset) Describe() string {
	var b strings.Builder
	for _, name := range t.order {
		item := t.tools[name]
		var params []string
		for _, p := range item.Params {
			tag := p.Name
			if !p.Required {
				tag += "?"
			}
			params = append(params, tag)
		}
		fmt.Fprintf(&b, "- %s(%s): %s\n", item.Name, strings.Join(params, ", "), item.Description)
	}
	return b.String()
}

func stringArg(args map[string]interface{}, key string) string {
	if args == nil {
		return ""
	}
	val, ok := args[key]
	if !ok {
		return ""
	}
	s, _ := val.(string)
	return strings.TrimSpace(s)
}

func intArg(args map[string]interface{}, key string, fallback int) int {
	if args == nil {
		return fallback
	}
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	}
	return fallback
}

func (t *Toolset) renderExcerpts(chunks []model.ScoredChunk) string {
	if len(chunks) == 0 {
		return "No matching messages found."
	}
	return retriever.BuildContext(chunks, 3000)
}

func (t *Toolset) execSearch(ctx context.Context, args map[string]interface{}) (string, error) {
	query := stringArg(args, "query")
	if query == "" {
		return "", fmt.Errorf("query is required")
	}
	limit := intArg(args, "limit", 3)
	var filter *vectorstore.SearchFilter
	if participant := stringArg(args, "participant"); participant != "" {
		filter = &vectorstore.SearchFilter{Participants: []string{participant}}
	}
	res, err := t.retriever.Retrieve(ctx, query, retriever.Options{TopK: limit, Filter: filter})
	if err != nil {
		return "", err
	}
	return t.renderExcerpts(res.Chunks), nil
}

func parseToolDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	ts, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return &ts, nil
}

func (t *Toolset) execFilterByDate(ctx context.Context, args map[string]interface{}) (string, error) {
	query := stringArg(args, "query")
	if query == "" {
		return "", fmt.Errorf("query is required")
	}
	start, err := parseToolDate(stringArg(args, "start_date"))
	if err != nil {
		return "", err
	}
	end, err := parseToolDate(stringArg(args, "end_date"))
	if err != nil {
		return "", err
	}
	if end != nil {
		// include the whole end day
		e := end.Add(24*time.Hour - time.Nanosecond)
		end = &e
	}
	res, err := t.retriever.Retrieve(ctx, query, retriever.Options{
		TopK:   5,
		Filter: &vectorstore.SearchFilter{StartTime: start, EndTime: end},
	})
	if err != nil {
		return "", err
	}
	return t.renderExcerpts(res.Chunks), nil
}

func (t *Toolset) execListParticipants(ctx context.Context, args map[string]interface{}) (string, error) {
	topic := stringArg(args, "topic")
	if topic == "" {
		return "", fmt.Errorf("topic is required")
	}
	res, err := t.retriever.Retrieve(ctx, topic, retriever.Options{TopK: 10})
	if err != nil {
		return "", err
	}
	seen := map[string]struct{}{}
	var names []string
	for _, chunk := range res.Chunks {
		for _, p := range chunk.Chunk.Participants {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			names = append(names, p)
		}
	}
	if len(names) == 0 {
		return "No participants found discussing this topic.", nil
	}
	return "Participants discussing this topic: " + strings.Join(names, ", "), nil
}

func (t *Toolset) execSummarize(ctx context.Context, args map[string]interface{}) (string, error) {
	topic := stringArg(args, "topic")
	if topic == "" {
		return "", fmt.Errorf("topic is required")
	}
	res, err := t.retriever.Retrieve(ctx, topic, retriever.Options{TopK: 5})
	if err != nil {
		return "", err
	}
	if len(res.Chunks) == 0 {
		return "No matching messages found.", nil
	}
	var b strings.Builder
	b.WriteString("Relevant excerpts for summarization:\n")
	b.WriteString(retriever.BuildContext(res.Chunks, 3000))
	return b.String(), nil
}
