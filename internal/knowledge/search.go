package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/handroid/handroid/internal/embeddings"
)

// SearchQuery narrows a help-document search. Any field may be empty; at
// least one of PackageName or Text must be set.
type SearchQuery struct {
	PackageName string
	Text        string
	Category    string
	Limit       int // defaults to 5
}

// Search ranks help documents by cosine similarity between the query and the
// stored document embeddings. PackageName and Category, when set, filter via
// SQL before ranking.
func (s *Store) Search(ctx context.Context, q SearchQuery) ([]SearchResult, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("no embedder configured")
	}
	if q.PackageName == "" && q.Text == "" {
		return nil, fmt.Errorf("empty search")
	}
	if q.Limit <= 0 {
		q.Limit = 5
	}

	var parts []string
	for _, p := range []string{q.PackageName, q.Text, q.Category} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	queryVec, err := s.embedder.Generate(ctx, strings.Join(parts, " "))
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	stmt := `SELECT id, package_name, app_name, COALESCE(category, ''), title, content,
		COALESCE(tags, ''), embedding, created_at FROM help_documents`
	var conds []string
	var args []any
	if q.PackageName != "" {
		conds = append(conds, "package_name = ?")
		args = append(args, q.PackageName)
	}
	if q.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, q.Category)
	}
	if len(conds) > 0 {
		stmt += " WHERE " + strings.Join(conds, " AND ")
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var tagsJSON string
		var blob []byte
		if err := rows.Scan(&r.ID, &r.PackageName, &r.AppName, &r.Category, &r.Title,
			&r.Content, &tagsJSON, &blob, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Tags = parseTags(tagsJSON)
		r.Similarity = embeddings.CosineSimilarity(queryVec, decodeVector(blob))
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > q.Limit {
		results = results[:q.Limit]
	}
	return results, nil
}

// Help returns a formatted help answer for an action on an app, or a
// not-found message naming the app when nothing matches.
func (s *Store) Help(ctx context.Context, packageName, query string) (string, error) {
	results, err := s.Search(ctx, SearchQuery{PackageName: packageName, Text: query, Limit: 3})
	if err != nil {
		return "", err
	}

	if len(results) == 0 {
		name := packageName
		if info, err := s.AppByPackage(ctx, packageName); err == nil && info != nil {
			name = info.AppName
		}
		return fmt.Sprintf("No help found for %q in %s (%s).", query, name, packageName), nil
	}

	best := results[0]
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s**\n\n%s", best.Title, best.Content)
	if len(results) > 1 && results[1].Similarity > 0.5 {
		fmt.Fprintf(&sb, "\n\n**Related:**\n- %s", results[1].Title)
	}
	return sb.String(), nil
}

func parseTags(tagsJSON string) []string {
	if tagsJSON == "" {
		return nil
	}
	var tags []string
	// Tags were written by AddDocument; a decode failure means hand-edited
	// data and is treated as no tags.
	if err := json.Unmarshal([]byte(tagsJSON), &tags); err != nil {
		return nil
	}
	return tags
}
