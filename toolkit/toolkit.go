package toolkit

import (
	"github.com/hupe1980/taskmesh/aggregate"
	"github.com/hupe1980/taskmesh/oracle"
	"github.com/hupe1980/taskmesh/tool"
)

// TrackerTools composes the full tool set of the issue-tracker domain:
// search, analysis, summary and the date tools.
func TrackerTools(client TrackerClient, o oracle.Oracle, optFns ...func(o *aggregate.Options)) []tool.Tool {
	tools := []tool.Tool{
		NewTrackerSearchTool(client),
		NewAnalyzeTool(o, optFns...),
		NewSummarizeTool(o, optFns...),
	}

	return append(tools, DateTimeTools()...)
}

// CodeHostTools composes the full tool set of the code-hosting domain:
// commit and pull-request retrieval, analysis, summary and the date tools.
func CodeHostTools(client CodeHostClient, o oracle.Oracle, optFns ...func(o *aggregate.Options)) []tool.Tool {
	tools := []tool.Tool{
		NewCommitsTool(client),
		NewPullRequestsTool(client),
		NewAnalyzeTool(o, optFns...),
		NewSummarizeTool(o, optFns...),
	}

	return append(tools, DateTimeTools()...)
}
