package notion

import (
	"context"
	"fmt"
	"time"

	"revise/llm"
	"revise/logger"
)

// BatchSize is the API limit on children per create or append request.
const BatchSize = 100

// BatchPause separates consecutive append requests.
const BatchPause = time.Second

// Publisher writes notes pages and reads them back.
type Publisher struct {
	client      *Client
	converter   BlockConverter
	exporter    *Exporter
	knowledgeDB string
	log         *logger.Logger

	// Sleep and Now are replaced in tests.
	Sleep func(time.Duration)
	Now   func() time.Time
}

func NewPublisher(client *Client, converter BlockConverter, knowledgeDB string, log *logger.Logger) *Publisher {
	return &Publisher{
		client:      client,
		converter:   converter,
		exporter:    NewExporter(client),
		knowledgeDB: knowledgeDB,
		log:         log.With("component", "publisher"),
		Sleep:       time.Sleep,
		Now:         time.Now,
	}
}

// Publish converts markdown and creates a page in the knowledge database.
// The first 100 blocks go with the create call and the rest are appended in
// batches of 100, pausing between appends. A failed append leaves the page
// in place.
func (p *Publisher) Publish(ctx context.Context, title, markdown, resourceTag string) (llm.PageRef, error) {
	if p.knowledgeDB == "" {
		return llm.PageRef{}, &llm.ValidationError{Field: "knowledge_database_id"}
	}
	blocks, err := p.converter.Convert(ctx, FlattenNestedLists(markdown, 2))
	if err != nil {
		return llm.PageRef{}, err
	}

	first := blocks
	if len(first) > BatchSize {
		first = blocks[:BatchSize]
	}
	page, err := p.client.CreatePage(ctx, p.knowledgeDB, PageProperties(title, resourceTag, p.Now()), first)
	if err != nil {
		return llm.PageRef{}, &llm.PublishError{Reason: "create page", Err: llm.External("notion", err)}
	}
	if page == nil || page.ID == "" {
		return llm.PageRef{}, &llm.PublishError{Reason: "no page id returned"}
	}
	ref := llm.PageRef{ID: page.ID, URL: page.URL}

	rest := blocks[len(first):]
	for i := 0; i < len(rest); i += BatchSize {
		end := min(i+BatchSize, len(rest))
		if err := p.client.AppendChildren(ctx, page.ID, rest[i:end]); err != nil {
			return ref, &llm.PublishError{
				Reason: fmt.Sprintf("append blocks %d-%d to %s", len(first)+i, len(first)+end, page.ID),
				Err:    llm.External("notion", err),
			}
		}
		if end < len(rest) {
			p.Sleep(BatchPause)
		}
	}

	p.log.Info("page published", "page_id", ref.ID, "blocks", len(blocks), "resource_tag", resourceTag)
	return ref, nil
}

// Effort levels accepted by LogRevision.
const (
	EffortLow    = "Low"
	EffortMedium = "Medium"
	EffortHigh   = "High"
)

// LogRevision records that pageID was revised today. A second call on the
// same day is a no-op that still reports true. The counter saturates at
// MaxRevisions. Effort is written only when the page already has an Effort
// property.
func (p *Publisher) LogRevision(ctx context.Context, pageID, effort string) (bool, error) {
	if pageID == "" {
		return false, llm.Missing("page_id")
	}
	switch effort {
	case "", EffortLow, EffortMedium, EffortHigh:
	default:
		return false, &llm.ValidationError{Field: "effort", Reason: "must be Low, Medium or High"}
	}
	page, err := p.client.RetrievePage(ctx, pageID)
	if err != nil {
		return false, llm.External("notion", err)
	}
	today := p.Now().Format(dateLayout)
	if DateStart(page.Properties, PropLastReview) == today {
		p.log.Debug("revision already logged today", "page_id", pageID)
		return true, nil
	}

	update := map[string]any{
		PropRevisions:  map[string]any{"number": min(Number(page.Properties, PropRevisions)+1, MaxRevisions)},
		PropLastReview: dateProp(today),
	}
	if _, ok := page.Properties[PropEffort]; ok && effort != "" {
		update[PropEffort] = map[string]any{"select": map[string]any{"name": effort}}
	}
	if _, err := p.client.UpdatePageProperties(ctx, pageID, update); err != nil {
		return false, llm.External("notion", err)
	}
	p.log.Info("revision logged", "page_id", pageID, "effort", effort)
	return true, nil
}

// FetchDue returns every page in databaseID whose Next Review is today or
// earlier, following pagination.
func (p *Publisher) FetchDue(ctx context.Context, databaseID string) ([]Page, error) {
	if databaseID == "" {
		return nil, llm.Missing("database_id")
	}
	filter := DueFilter(p.Now())
	var pages []Page
	cursor := ""
	for {
		res, err := p.client.QueryDatabase(ctx, databaseID, filter, cursor)
		if err != nil {
			return nil, llm.External("notion", err)
		}
		pages = append(pages, res.Results...)
		if !res.HasMore || res.NextCursor == "" {
			return pages, nil
		}
		cursor = res.NextCursor
	}
}

// FetchDueNotes queries the knowledge database.
func (p *Publisher) FetchDueNotes(ctx context.Context) ([]Page, error) {
	return p.FetchDue(ctx, p.knowledgeDB)
}

// FetchPageMarkdown exports a page's content as markdown.
func (p *Publisher) FetchPageMarkdown(ctx context.Context, pageID string) (string, error) {
	if pageID == "" {
		return "", llm.Missing("page_id")
	}
	md, err := p.exporter.PageMarkdown(ctx, pageID)
	if err != nil {
		return "", llm.External("notion", err)
	}
	return md, nil
}
