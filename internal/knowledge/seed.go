package knowledge

import "context"

// seedMappings are the package mappings installed into an empty database so a
// fresh install can resolve the most common apps.
var seedMappings = []AppInfo{
	{PackageName: "com.tencent.mm", AppName: "WeChat", AppNameEN: "WeChat", Description: "Instant messaging app by Tencent"},
	{PackageName: "com.eg.android.AlipayGphone", AppName: "Alipay", AppNameEN: "Alipay", Description: "Mobile payment platform by Ant Group"},
	{PackageName: "com.taobao.taobao", AppName: "Taobao", AppNameEN: "Taobao", Description: "Shopping platform by Alibaba"},
	{PackageName: "com.android.settings", AppName: "Settings", AppNameEN: "Settings", Description: "Android system settings"},
}

// seedDocuments are starter help documents describing multi-step app
// procedures the model cannot reliably infer from the screen alone.
var seedDocuments = []Document{
	{
		PackageName: "com.tencent.mm",
		AppName:     "WeChat",
		Category:    "basics",
		Title:       "How to post to Moments",
		Content: "Posting to WeChat Moments takes these steps: 1. Tap the Discover button " +
			"on the bottom navigation bar. 2. Tap Moments. 3. Tap the camera button in the top " +
			"right corner. 4. Tap Choose from Album. 5. Select pictures. 6. Tap Done. 7. If a " +
			"text field is shown, type the post text. 8. Tap Post to finish.",
		Tags: []string{"messages", "chat", "post"},
	},
}

// Seed installs the sample package mappings and help documents. Existing
// entries with the same keys are replaced. Intended for first-run setup and
// the ingest command.
func (s *Store) Seed(ctx context.Context) error {
	for _, m := range seedMappings {
		if err := s.AddPackageMapping(ctx, m); err != nil {
			return err
		}
	}
	for _, d := range seedDocuments {
		if err := s.AddDocument(ctx, d); err != nil {
			return err
		}
	}
	return nil
}
