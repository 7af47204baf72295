package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/chatrecall/internal/ai"
)

const (
	maxIterations = 5

	generateMaxTokens  = 1024
	synthesisMaxTokens = 1024

	noInfoAnswer = "I could not find any relevant information in the chat archive to answer this question."
)

var (
	actionRe      = regexp.MustCompile(`(?m)^Action:\s*(\S+)`)
	actionInputRe = regexp.MustCompile(`(?ms)^Action Input:\s*(.+?)\s*(?:^Thought:|^Action:|\z)`)
	thoughtRe     = regexp.MustCompile(`(?ms)^Thought:\s*(.+?)\s*(?:^Action:|^Final Answer:|\z)`)
)

// Step is one think/act/observe round, kept for UI display.
type Step struct {
	Thought     string `json:"thought"`
	Action      string `json:"action"`
	Observation string `json:"observation"`
}

type Metadata struct {
	ElapsedMs int64 `json:"elapsed_ms"`
	Steps     int   `json:"steps"`
}

type Result struct {
	Answer    string   `json:"answer"`
	Reasoning []Step   `json:"reasoning"`
	Metadata  Metadata `json:"metadata"`
}

// Agent runs a bounded ReAct loop: the model alternates free-text thoughts
// with tool calls until it emits a final answer or hits the iteration cap.
type Agent struct {
	llm   ai.LLM
	tools *Toolset
}

func New(llm ai.LLM, tools *Toolset) *Agent {
	return &Agent{llm: llm, tools: tools}
}

func (a *Agent) buildPrompt(question string) string {
	var b strings.Builder
	b.WriteString("You answer questions about a personal chat archive by using tools.\n")
	b.WriteString("Available tools:\n")
	b.WriteString(a.tools.Describe())
	b.WriteString(`
Use the following format:

Question: the question to answer
Thought: reason about what to do next
Action: the tool name
Action Input: a JSON object with the tool arguments
Observation: the tool result
... (Thought/Action/Action Input/Observation can repeat)
Thought: I now know the answer
Final Answer: the answer to the question, in the question's language

Begin!

`)
	b.WriteString("Question: " + question + "\nThought:")
	return b.String()
}

type parsedCompletion struct {
	finalAnswer string
	hasFinal    bool
	thought     string
	action      string
	actionArgs  map[string]interface{}
	hasAction   bool
}

func parseCompletion(text string) parsedCompletion {
	var out parsedCompletion
	if idx := strings.Index(text, "Final Answer:"); idx >= 0 {
		out.hasFinal = true
		out.finalAnswer = strings.TrimSpace(text[idx+len("Final Answer:"):])
		if m := thoughtRe.FindStringSubmatch(text[:idx]); m != nil {
			out.thought = strings.TrimSpace(m[1])
		}
		return out
	}
	if m := thoughtRe.FindStringSubmatch(text); m != nil {
		out.thought = strings.TrimSpace(m[1])
	} else {
		// completions start mid-line after the "Thought:" primer
		if idx := strings.Index(text, "\nAction:"); idx >= 0 {
			out.thought = strings.TrimSpace(text[:idx])
		} else {
			out.thought = strings.TrimSpace(text)
		}
	}
	action := actionRe.FindStringSubmatch(text)
	if action == nil {
		return out
	}
	out.hasAction = true
	out.action = strings.TrimSpace(action[1])
	raw := ""
	if m := actionInputRe.FindStringSubmatch(text); m != nil {
		raw = strings.TrimSpace(m[1])
	}
	args := map[string]interface{}{}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		// sloppy model output, treat the raw text as the query itself
		args = map[string]interface{}{"query": strings.Trim(raw, "\"` ")}
	}
	out.actionArgs = args
	return out
}

func describeAction(name string, args map[string]interface{}) string {
	if len(args) == 0 {
		return name
	}
	blob, err := json.Marshal(args)
	if err != nil {
		return name
	}
	return fmt.Sprintf("%s(%s)", name, string(blob))
}

func (a *Agent) Run(ctx context.Context, question string) (*Result, error) {
	start := time.Now()
	transcript := a.buildPrompt(question)
	opts := ai.GenerateOptions{
		MaxTokens:     generateMaxTokens,
		StopSequences: []string{"\nObservation:", "\nQuestion:"},
	}
	result := &Result{Reasoning: []Step{}}
	var observations []string

	for i := 0; i < maxIterations; i++ {
		completion, err := a.llm.Generate(ctx, transcript, opts)
		if err != nil {
			return nil, fmt.Errorf("agent generation: %w", err)
		}
		parsed := parseCompletion(completion)
		if parsed.hasFinal {
			result.Answer = parsed.finalAnswer
			result.Metadata.Steps = i + 1
			result.Metadata.ElapsedMs = time.Since(start).Milliseconds()
			return result, nil
		}
		if parsed.hasAction {
			observation := a.tools.Dispatch(ctx, parsed.action, parsed.actionArgs)
			if !strings.HasPrefix(observation, "Error:") {
				observations = append(observations, observation)
			}
			result.Reasoning = append(result.Reasoning, Step{
				Thought:     parsed.thought,
				Action:      describeAction(parsed.action, parsed.actionArgs),
				Observation: observation,
			})
			transcript += completion + "\nObservation: " + observation + "\nThought:"
			continue
		}
		// neither a final answer nor a usable action: push the model to wrap up
		logutil.GetLogger(ctx).Debug("agent nudge", zap.Int("iteration", i+1))
		transcript += completion + "\nYou must now conclude. Respond with a line starting with \"Final Answer:\" followed by your answer.\n"
	}

	result.Answer = a.synthesize(ctx, question, observations)
	result.Metadata.Steps = maxIterations
	result.Metadata.ElapsedMs = time.Since(start).Milliseconds()
	return result, nil
}

// synthesize builds an answer from the gathered observations after the loop
// ran out of iterations without a final answer.
func (a *Agent) synthesize(ctx context.Context, question string, observations []string) string {
	if len(observations) == 0 {
		return noInfoAnswer
	}
	var b strings.Builder
	b.WriteString("Answer the question using only the information below.\n")
	b.WriteString("Answer in the same language as the question. ")
	b.WriteString("Treat proper nouns as names of people in the conversation.\n\nInformation:\n")
	for _, obs := range observations {
		b.WriteString(obs)
		b.WriteString("\n---\n")
	}
	b.WriteString("\nQuestion: " + question + "\nAnswer:")
	answer, err := a.llm.Generate(ctx, b.String(), ai.GenerateOptions{MaxTokens: synthesisMaxTokens})
	if err != nil || strings.TrimSpace(answer) == "" {
		logutil.GetLogger(ctx).Warn("agent synthesis failed", zap.Error(err))
		return "Based on the chat archive:\n\n" + strings.Join(observations, "\n\n")
	}
	return strings.TrimSpace(answer)
}
