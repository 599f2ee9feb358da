package tools

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"

	"revise/llm"
	"revise/logger"
	"revise/notion"
)

// NotionAPI is the document store surface the Notion tools need.
type NotionAPI interface {
	FetchDue(ctx context.Context, databaseID string) ([]notion.Page, error)
	FetchDueNotes(ctx context.Context) ([]notion.Page, error)
	FetchPageMarkdown(ctx context.Context, pageID string) (string, error)
	LogRevision(ctx context.Context, pageID, effort string) (bool, error)
}

// DuePage is how a due page is shown to the model.
type DuePage struct {
	PageID     string         `json:"page_id"`
	Title      string         `json:"title"`
	Properties map[string]any `json:"properties"`
	URL        string         `json:"url"`
}

// NotionToolset lists due notes and problems, exports pages and logs
// revisions.
type NotionToolset struct {
	api   NotionAPI
	dsaDB string
	log   *logger.Logger

	// Float64 draws in [0, 1) for the weighted problem pick.
	Float64 func() float64
}

func NewNotionToolset(api NotionAPI, dsaDatabaseID string, log *logger.Logger) *NotionToolset {
	return &NotionToolset{api: api, dsaDB: dsaDatabaseID, log: log.With("toolset", "notion"), Float64: rand.Float64}
}

type noArgs struct{}

type PageIDParams struct {
	PageID string `json:"page_id" jsonschema:"description=Id of the Notion page"`
}

type LogRevisionParams struct {
	PageID string `json:"page_id" jsonschema:"description=Id of the Notion page that was revised"`
	Effort string `json:"effort,omitempty" jsonschema:"description=How hard the revision felt,enum=Low,enum=Medium,enum=High"`
}

func toDuePage(p notion.Page, titleProp string) DuePage {
	return DuePage{PageID: p.ID, Title: notion.Title(p.Properties, titleProp), Properties: p.Properties, URL: p.URL}
}

// FetchDueNotes lists knowledge pages whose next review is today or earlier.
func (t *NotionToolset) FetchDueNotes(ctx context.Context, _ noArgs) ([]DuePage, error) {
	t.log.Info("TOOL_USAGE: fetching due notes")
	pages, err := t.api.FetchDueNotes(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]DuePage, len(pages))
	for i, p := range pages {
		out[i] = toDuePage(p, notion.PropName)
	}
	return out, nil
}

// FetchPageContent exports one page as markdown.
func (t *NotionToolset) FetchPageContent(ctx context.Context, in PageIDParams) (string, error) {
	t.log.Info("TOOL_USAGE: fetching page content", "page_id", in.PageID)
	return t.api.FetchPageMarkdown(ctx, in.PageID)
}

// FetchDSAProblem picks one due problem, favouring harder ones. It returns
// nil when nothing is due.
func (t *NotionToolset) FetchDSAProblem(ctx context.Context, _ noArgs) (*DuePage, error) {
	t.log.Info("TOOL_USAGE: fetching due DSA problem")
	if t.dsaDB == "" {
		return nil, llm.Missing("dsa_database_id")
	}
	pages, err := t.api.FetchDue(ctx, t.dsaDB)
	if err != nil {
		return nil, err
	}
	picked := SelectDSAProblem(pages, t.Float64)
	if picked == nil {
		return nil, nil
	}
	dp := toDuePage(*picked, notion.PropProblem)
	return &dp, nil
}

// LogRevision records today's revision of a page.
func (t *NotionToolset) LogRevision(ctx context.Context, in LogRevisionParams) (bool, error) {
	t.log.Info("TOOL_USAGE: logging revision", "page_id", in.PageID, "effort", in.Effort)
	return t.api.LogRevision(ctx, in.PageID, in.Effort)
}

var effortWeights = map[string]float64{"Hard": 3, "Medium": 2}

// SelectDSAProblem draws one page with weight 3 for Hard, 2 for Medium and
// 1 otherwise. draw returns values in [0, 1).
func SelectDSAProblem(pages []notion.Page, draw func() float64) *notion.Page {
	if len(pages) == 0 {
		return nil
	}
	weights := make([]float64, len(pages))
	total := 0.0
	for i, p := range pages {
		w, ok := effortWeights[notion.SelectName(p.Properties, notion.PropEffort)]
		if !ok {
			w = 1
		}
		weights[i] = w
		total += w
	}
	x := draw() * total
	for i, w := range weights {
		if x < w {
			return &pages[i]
		}
		x -= w
	}
	return &pages[len(pages)-1]
}

// Tools exposes the toolset to the agent.
func (t *NotionToolset) Tools() ([]tool.BaseTool, error) {
	var out []tool.BaseTool
	add := func(tl tool.InvokableTool, err error) error {
		if err != nil {
			return fmt.Errorf("build notion tool: %w", err)
		}
		out = append(out, tl)
		return nil
	}
	if err := add(utils.InferTool("fetch_due_notes",
		"List the notes that are due for revision today. Returns page_id, title, properties and url for each page.",
		t.FetchDueNotes)); err != nil {
		return nil, err
	}
	if err := add(utils.InferTool("fetch_dsa_problem",
		"Pick one data structures and algorithms problem that is due for revision, favouring harder problems. Returns null when none is due.",
		t.FetchDSAProblem)); err != nil {
		return nil, err
	}
	if err := add(utils.InferTool("fetch_page_content",
		"Fetch the content of a Notion page as markdown.",
		t.FetchPageContent)); err != nil {
		return nil, err
	}
	if err := add(utils.InferTool("log_revision",
		"Record that the student revised a page today. Returns true when the revision is logged. Calling it twice on the same day is harmless.",
		t.LogRevision)); err != nil {
		return nil, err
	}
	return out, nil
}
