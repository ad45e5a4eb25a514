package words

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// TodayInput selects the date for kotoba_today. Empty means today.
type TodayInput struct {
	Date string `json:"date,omitempty" jsonschema:"date in YYYY-MM-DD form; empty means today"`
}

// TodayResult is the daily selection.
type TodayResult struct {
	Date    string  `json:"date"`
	Entries []Entry `json:"entries"`
}

// WordInput selects one stored word by its slug.
type WordInput struct {
	Slug string `json:"slug" jsonschema:"exact word slug, e.g. the kanji form"`
}

// WordResult is one word with every stored meaning wrapper.
type WordResult struct {
	Slug           string   `json:"slug"`
	Representation string   `json:"representation"`
	Wrappers       []string `json:"meaning_wrappers"`
}

// SearchInput queries stored words by slug substring.
type SearchInput struct {
	Query string `json:"query" jsonschema:"substring to match against word slugs"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum results, default 20"`
}

// SearchHit is one search result.
type SearchHit struct {
	Slug           string `json:"slug"`
	Representation string `json:"representation"`
	WrapperCount   int64  `json:"meaning_count"`
}

// SearchResult lists matching words.
type SearchResult struct {
	Hits []SearchHit `json:"hits"`
}

// StatsInput has no fields.
type StatsInput struct{}

// StatsResult reports store counts.
type StatsResult struct {
	Words    int64 `json:"words"`
	Wrappers int64 `json:"meaning_wrappers"`
}

// RegisterMCP registers the word tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "kotoba_today",
		Description: "Get the deterministic daily vocabulary selection for a date",
	}, s.mcpToday)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "kotoba_word",
		Description: "Get one stored word with all of its meaning wrappers by slug",
	}, s.mcpWord)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "kotoba_search",
		Description: "Search stored vocabulary words by slug substring",
	}, s.mcpSearch)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "kotoba_stats",
		Description: "Count stored words and meaning wrappers",
	}, s.mcpStats)
}

func (s *Service) mcpToday(ctx context.Context, _ *mcp.CallToolRequest, in TodayInput) (*mcp.CallToolResult, TodayResult, error) {
	date := in.Date
	if date == "" {
		date = Today()
	}
	entries, err := s.DailyEntries(ctx, date)
	if err != nil {
		return nil, TodayResult{}, err
	}
	return nil, TodayResult{Date: date, Entries: entries}, nil
}

func (s *Service) mcpWord(ctx context.Context, _ *mcp.CallToolRequest, in WordInput) (*mcp.CallToolResult, WordResult, error) {
	w, err := s.WordBySlug(ctx, in.Slug)
	if err != nil {
		return nil, WordResult{}, err
	}
	return nil, WordResult{Slug: w.Slug, Representation: w.Representation, Wrappers: w.Wrappers}, nil
}

func (s *Service) mcpSearch(ctx context.Context, _ *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, SearchResult, error) {
	rows, err := s.Search(ctx, in.Query, in.Limit)
	if err != nil {
		return nil, SearchResult{}, err
	}
	hits := make([]SearchHit, len(rows))
	for i, r := range rows {
		hits[i] = SearchHit{Slug: r.Slug, Representation: r.Representation, WrapperCount: r.WrapperCount}
	}
	return nil, SearchResult{Hits: hits}, nil
}

func (s *Service) mcpStats(ctx context.Context, _ *mcp.CallToolRequest, _ StatsInput) (*mcp.CallToolResult, StatsResult, error) {
	st, err := s.Stats(ctx)
	if err != nil {
		return nil, StatsResult{}, err
	}
	return nil, StatsResult{Words: st.Words, Wrappers: st.Wrappers}, nil
}
