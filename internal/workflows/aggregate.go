package workflows

import (
	"fmt"
	"strings"

	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/models"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/tools"
)

// callOutcome is the result slot of one supervisor tool call. Slots are
// indexed by call position so the merge order never depends on which
// researcher finished first.
type callOutcome struct {
	// content is set directly for calls that dispatched no researcher.
	content    string
	dispatched bool
	research   ResearcherResult
	err        error
}

// aggregation is what one supervisor round contributes to its state.
type aggregation struct {
	results      []models.ToolResult
	rawNotes     []string
	failedTopics []string
	// firstFailure is the first researcher error in call order.
	firstFailure error
	failedTopic  string
}

// aggregate produces exactly one ToolResult per call, in call order, and the
// raw notes of every successful researcher in the same order.
func aggregate(calls []models.ToolCall, outcomes []callOutcome) aggregation {
	agg := aggregation{results: make([]models.ToolResult, len(calls))}
	for i, call := range calls {
		out := outcomes[i]
		content := out.content

		if out.dispatched {
			topic, _ := call.StringArg(tools.ResearchTopicArg)
			if out.err != nil {
				content = fmt.Sprintf("Error: research on topic %q failed: %v", topic, out.err)
				agg.failedTopics = append(agg.failedTopics, topic)
				if agg.firstFailure == nil {
					agg.firstFailure = out.err
					agg.failedTopic = topic
				}
			} else {
				content = researchContent(out.research)
				agg.rawNotes = append(agg.rawNotes, strings.Join(out.research.RawNotes, "\n"))
			}
		}

		agg.results[i] = models.ToolResult{ToolCallID: call.ID, Name: call.Name, Content: content}
	}
	return agg
}

// researchContent is the ToolMessage body reported for a finished researcher.
func researchContent(r ResearcherResult) string {
	content := r.Summary
	if strings.TrimSpace(content) == "" {
		content = EmptySummaryFallback
	}
	if r.Truncated {
		content += fmt.Sprintf("\n\n[research truncated after %d iterations]", r.Iterations)
	}
	return content
}

// notesFrom collects the ConductResearch ToolMessage contents of a thread.
// think_tool reflections and unknown-tool errors are left out on purpose.
func notesFrom(messages []models.Message) []string {
	notes := make([]string, 0)
	for _, m := range models.FilterMessages(messages, models.RoleTool) {
		if m.Name == string(tools.ConductResearch) {
			notes = append(notes, m.Content)
		}
	}
	return notes
}
