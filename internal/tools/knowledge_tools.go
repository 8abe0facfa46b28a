package tools

import (
	"context"
	"strings"

	"github.com/handroid/handroid/internal/knowledge"
)

// RegisterKnowledgeTools adds the app-knowledge lookup tools backed by store.
func RegisterKnowledgeTools(r *Registry, store *knowledge.Store) {
	r.Register(&Tool{
		Name:        "app_description",
		Description: "Describe what an app is, looked up by package name.",
		Parameters: objectSchema(map[string]any{
			"package_name": map[string]any{"type": "string"},
		}, "package_name"),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			pkg, err := stringArg(args, "package_name")
			if err != nil {
				return "", err
			}
			info, err := store.AppByPackage(ctx, pkg)
			if err != nil {
				return "", err
			}
			if info == nil || info.Description == "" {
				return "no description on file for " + pkg, nil
			}
			return info.Description, nil
		},
	})

	r.Register(&Tool{
		Name:        "list_app_actions",
		Description: "List the documented operating procedures available for an app.",
		Parameters: objectSchema(map[string]any{
			"package_name": map[string]any{"type": "string"},
		}, "package_name"),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			pkg, err := stringArg(args, "package_name")
			if err != nil {
				return "", err
			}
			titles, err := store.DocumentTitles(ctx, pkg)
			if err != nil {
				return "", err
			}
			if len(titles) == 0 {
				return "no documented actions for " + pkg, nil
			}
			return strings.Join(titles, "\n"), nil
		},
	})

	r.Register(&Tool{
		Name: "action_knowledge",
		Description: "Fetch the step-by-step procedure for performing an action in an app " +
			"(e.g., posting to Moments in WeChat).",
		Parameters: objectSchema(map[string]any{
			"package_name": map[string]any{"type": "string"},
			"action_id": map[string]any{
				"type":        "string",
				"description": "The action to look up (e.g., 'post to Moments')",
			},
		}, "package_name", "action_id"),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			pkg, err := stringArg(args, "package_name")
			if err != nil {
				return "", err
			}
			action, err := stringArg(args, "action_id")
			if err != nil {
				return "", err
			}
			return store.Help(ctx, pkg, action)
		},
	})
}
