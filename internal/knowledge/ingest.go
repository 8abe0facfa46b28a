package knowledge

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// importFile is the YAML layout accepted by ImportYAML.
type importFile struct {
	Apps []struct {
		PackageName string `yaml:"package_name"`
		AppName     string `yaml:"app_name"`
		AppNameEN   string `yaml:"app_name_en"`
		Description string `yaml:"description"`
	} `yaml:"apps"`
	Documents []struct {
		PackageName string   `yaml:"package_name"`
		AppName     string   `yaml:"app_name"`
		Category    string   `yaml:"category"`
		Title       string   `yaml:"title"`
		Content     string   `yaml:"content"`
		Tags        []string `yaml:"tags"`
	} `yaml:"documents"`
}

// ImportYAML reads app mappings and help documents from a YAML stream
// and stores them, replacing existing entries with the same keys. It
// returns the number of apps and documents imported. The first failed
// entry aborts the import; entries before it stay stored.
func (s *Store) ImportYAML(ctx context.Context, r io.Reader) (apps, docs int, err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, 0, fmt.Errorf("read import file: %w", err)
	}

	var file importFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, 0, fmt.Errorf("parse import file: %w", err)
	}

	for _, app := range file.Apps {
		err := s.AddPackageMapping(ctx, AppInfo{
			PackageName: app.PackageName,
			AppName:     app.AppName,
			AppNameEN:   app.AppNameEN,
			Description: app.Description,
		})
		if err != nil {
			return apps, docs, fmt.Errorf("app %s: %w", app.PackageName, err)
		}
		apps++
	}

	for _, doc := range file.Documents {
		err := s.AddDocument(ctx, Document{
			PackageName: doc.PackageName,
			AppName:     doc.AppName,
			Category:    doc.Category,
			Title:       doc.Title,
			Content:     doc.Content,
			Tags:        doc.Tags,
		})
		if err != nil {
			return apps, docs, fmt.Errorf("document %q: %w", doc.Title, err)
		}
		docs++
	}

	return apps, docs, nil
}
