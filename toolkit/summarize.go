package toolkit

import (
	"fmt"

	"github.com/hupe1980/taskmesh/aggregate"
	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/oracle"
	"github.com/hupe1980/taskmesh/tool"
)

type summarizeArgs struct {
	MemoryKey string `json:"memory_key" description:"Memory key of the content to summarize"`
}

// NewSummarizeTool returns the summary tool. It reads the content stored
// under a memory key, summarizes every item independently via map-reduce and
// returns one merged summary.
func NewSummarizeTool(o oracle.Oracle, optFns ...func(o *aggregate.Options)) tool.Tool {
	fns := append([]func(o *aggregate.Options){}, optFns...)
	fns = append(fns, func(opts *aggregate.Options) {
		opts.Mode = aggregate.ModeSummary
	})

	agg := aggregate.New(o, fns...)

	return tool.NewFunctionToolFromStruct(
		"summarize_content",
		"Summarize content using a map-reduce approach: each item is condensed independently and the partial summaries are merged into one coherent summary. Pass the memory key returned by a retrieval tool.",
		summarizeArgs{},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			memoryKey := args["memory_key"].(string)

			value, ok := tc.GetState(memoryKey)
			if !ok {
				return nil, tool.NewToolError("summarize_content", fmt.Sprintf("no shared data under memory key %q", memoryKey), "MISSING_MEMORY_KEY")
			}

			units := UnitsFromMemory(value)

			tc.Notify("summarize_content", fmt.Sprintf("Summarizing %d items.", len(units)))

			result, err := agg.Run(tc.Context(), units, nil)
			if err != nil {
				return nil, err
			}

			tc.Notify("summarize_content", "Summary complete.")

			return result, nil
		},
	)
}
