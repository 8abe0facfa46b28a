package knowledge

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

// keywordEmbedder is a deterministic Embedder for tests: each dimension
// counts occurrences of one keyword, so texts sharing keywords are similar.
type keywordEmbedder struct {
	keywords []string
}

func (e *keywordEmbedder) Generate(_ context.Context, text string) ([]float32, error) {
	lower := strings.ToLower(text)
	vec := make([]float32, len(e.keywords))
	for i, kw := range e.keywords {
		vec[i] = float32(strings.Count(lower, kw))
	}
	return vec, nil
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	embedder := &keywordEmbedder{keywords: []string{"moments", "wifi", "payment", "settings"}}
	store, err := NewStore(filepath.Join(t.TempDir(), "test.db"), embedder)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPackageMapping(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	info := AppInfo{
		PackageName: "com.android.settings",
		AppName:     "Settings",
		Description: "Android system settings",
	}
	if err := store.AddPackageMapping(ctx, info); err != nil {
		t.Fatalf("AddPackageMapping: %v", err)
	}

	got, err := store.AppByPackage(ctx, "com.android.settings")
	if err != nil {
		t.Fatalf("AppByPackage: %v", err)
	}
	if got == nil || got.AppName != "Settings" {
		t.Errorf("unexpected app info: %+v", got)
	}

	missing, err := store.AppByPackage(ctx, "com.unknown.app")
	if err != nil {
		t.Fatalf("AppByPackage miss: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown package, got %+v", missing)
	}

	pkgs, err := store.Packages(ctx)
	if err != nil {
		t.Fatalf("Packages: %v", err)
	}
	if len(pkgs) != 1 || pkgs[0] != "com.android.settings" {
		t.Errorf("unexpected packages: %v", pkgs)
	}
}

func TestAddPackageMappingValidation(t *testing.T) {
	store := newTestStore(t)
	if err := store.AddPackageMapping(context.Background(), AppInfo{PackageName: "com.x"}); err == nil {
		t.Error("expected error for mapping without app name")
	}
}

func TestSearchRanksBySimilarity(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	docs := []Document{
		{
			PackageName: "com.tencent.mm",
			AppName:     "WeChat",
			Title:       "How to post to Moments",
			Content:     "Open Moments from the Discover tab and tap the camera button. Moments posts can include pictures.",
			Tags:        []string{"moments"},
		},
		{
			PackageName: "com.android.settings",
			AppName:     "Settings",
			Title:       "How to toggle Wi-Fi",
			Content:     "Open settings, tap Network, then toggle the wifi switch.",
		},
	}
	for _, d := range docs {
		if err := store.AddDocument(ctx, d); err != nil {
			t.Fatalf("AddDocument %q: %v", d.Title, err)
		}
	}

	results, err := store.Search(ctx, SearchQuery{Text: "turn on wifi in settings"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Title != "How to toggle Wi-Fi" {
		t.Errorf("expected Wi-Fi doc ranked first, got %q", results[0].Title)
	}
	if results[0].Similarity <= results[1].Similarity {
		t.Errorf("results not ordered by similarity: %f <= %f",
			results[0].Similarity, results[1].Similarity)
	}
}

func TestSearchPackageFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, d := range []Document{
		{PackageName: "com.a", AppName: "A", Title: "wifi one", Content: "wifi"},
		{PackageName: "com.b", AppName: "B", Title: "wifi two", Content: "wifi"},
	} {
		if err := store.AddDocument(ctx, d); err != nil {
			t.Fatalf("AddDocument: %v", err)
		}
	}

	results, err := store.Search(ctx, SearchQuery{PackageName: "com.a", Text: "wifi"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].PackageName != "com.a" {
		t.Errorf("package filter not applied: %+v", results)
	}
}

func TestDocumentReplaceOnSameTitle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	d := Document{PackageName: "com.a", AppName: "A", Title: "wifi", Content: "old wifi text"}
	if err := store.AddDocument(ctx, d); err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	d.Content = "new wifi text"
	if err := store.AddDocument(ctx, d); err != nil {
		t.Fatalf("AddDocument replace: %v", err)
	}

	results, err := store.Search(ctx, SearchQuery{PackageName: "com.a", Text: "wifi"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected replacement, got %d documents", len(results))
	}
	if results[0].Content != "new wifi text" {
		t.Errorf("content not replaced: %q", results[0].Content)
	}
}

func TestDeleteDocument(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	d := Document{PackageName: "com.a", AppName: "A", Title: "wifi", Content: "wifi text"}
	if err := store.AddDocument(ctx, d); err != nil {
		t.Fatalf("AddDocument: %v", err)
	}

	deleted, err := store.DeleteDocument(ctx, "com.a", "wifi")
	if err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if !deleted {
		t.Error("expected a deletion")
	}

	titles, err := store.DocumentTitles(ctx, "com.a")
	if err != nil {
		t.Fatalf("DocumentTitles: %v", err)
	}
	if len(titles) != 0 {
		t.Errorf("titles after delete = %v, want none", titles)
	}

	deleted, err = store.DeleteDocument(ctx, "com.a", "wifi")
	if err != nil {
		t.Fatalf("DeleteDocument second: %v", err)
	}
	if deleted {
		t.Error("second delete should report nothing removed")
	}
}

func TestHelpFormatting(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.AddPackageMapping(ctx, AppInfo{PackageName: "com.a", AppName: "AppA"}); err != nil {
		t.Fatalf("AddPackageMapping: %v", err)
	}

	// No documents yet: not-found message names the app.
	msg, err := store.Help(ctx, "com.a", "do something")
	if err != nil {
		t.Fatalf("Help: %v", err)
	}
	if !strings.Contains(msg, "AppA") {
		t.Errorf("not-found message should name the app: %q", msg)
	}

	if err := store.AddDocument(ctx, Document{
		PackageName: "com.a", AppName: "AppA", Title: "Toggle wifi", Content: "Tap the wifi switch.",
	}); err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	msg, err = store.Help(ctx, "com.a", "wifi")
	if err != nil {
		t.Fatalf("Help: %v", err)
	}
	if !strings.Contains(msg, "**Toggle wifi**") || !strings.Contains(msg, "Tap the wifi switch.") {
		t.Errorf("unexpected help format: %q", msg)
	}
}

func TestVectorRoundTrip(t *testing.T) {
	vec := []float32{1.5, -2.25, 0, 3.125}
	got := decodeVector(encodeVector(vec))
	if len(got) != len(vec) {
		t.Fatalf("length mismatch: %d != %d", len(got), len(vec))
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("index %d: got %f, want %f", i, got[i], vec[i])
		}
	}
}
