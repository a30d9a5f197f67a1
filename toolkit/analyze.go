package toolkit

import (
	"fmt"

	"github.com/hupe1980/taskmesh/aggregate"
	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/oracle"
	"github.com/hupe1980/taskmesh/tool"
)

type analyzeArgs struct {
	Dimensions []string `json:"dimensions" description:"Dimensions to analyze and score"`
	MemoryKey  string   `json:"memory_key" description:"Memory key of the content to analyze"`
}

// NewAnalyzeTool returns the dimensional analysis tool. It reads the content
// stored under a memory key, scores every item on the requested dimensions
// (1 to 10) via map-reduce and returns the combined assessment.
func NewAnalyzeTool(o oracle.Oracle, optFns ...func(o *aggregate.Options)) tool.Tool {
	fns := append([]func(o *aggregate.Options){}, optFns...)
	fns = append(fns, func(opts *aggregate.Options) {
		opts.Mode = aggregate.ModeAnalysis
	})

	agg := aggregate.New(o, fns...)

	return tool.NewFunctionToolFromStruct(
		"analyze_content",
		"Analyze and score content across the given dimensions using a map-reduce approach. Each item gets a 1-10 score per dimension with reasoning; the result combines per-item scores into aggregate insights. Pass the memory key returned by a retrieval tool.",
		analyzeArgs{},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			memoryKey := args["memory_key"].(string)

			value, ok := tc.GetState(memoryKey)
			if !ok {
				return nil, tool.NewToolError("analyze_content", fmt.Sprintf("no shared data under memory key %q", memoryKey), "MISSING_MEMORY_KEY")
			}

			units := UnitsFromMemory(value)
			dimensions := toStringSlice(args["dimensions"])

			tc.Notify("analyze_content", fmt.Sprintf("Analyzing %d items across %d dimensions.", len(units), len(dimensions)))

			result, err := agg.Run(tc.Context(), units, dimensions)
			if err != nil {
				return nil, err
			}

			tc.Notify("analyze_content", "Analysis complete.")

			return result, nil
		},
	)
}
