package prompts

import (
	"strings"
	"testing"
)

func TestScreenStatePromptInterpolation(t *testing.T) {
	p := ScreenStatePrompt("which app is open", `[{"text":"Settings"}]`)
	if !strings.Contains(p, `"which app is open"`) {
		t.Error("query not interpolated")
	}
	if !strings.Contains(p, `[{"text":"Settings"}]`) {
		t.Error("element dump not interpolated")
	}
}

func TestElementMatchPromptContract(t *testing.T) {
	p := ElementMatchPrompt("the Wi-Fi toggle", "[]")
	if !strings.Contains(p, `{"x": number, "y": number}`) {
		t.Error("missing coordinate response contract")
	}
	if !strings.Contains(p, `"the Wi-Fi toggle"`) {
		t.Error("description not interpolated")
	}
}

func TestCompactionPromptSchemaFields(t *testing.T) {
	p := CompactionPrompt()
	for _, field := range []string{`"goal"`, `"steps"`, `"state_changes"`, `"done"`, `"pending"`, `"simplified_history"`} {
		if !strings.Contains(p, field) {
			t.Errorf("schema field %s missing from compaction prompt", field)
		}
	}
}

func TestSystemPromptKnowledgeAppend(t *testing.T) {
	base := SystemPrompt("")
	if strings.Contains(base, "App Operating Knowledge") {
		t.Error("empty knowledge should not add a knowledge section")
	}
	withKn := SystemPrompt("Open the dialer from the home screen.")
	if !strings.HasPrefix(withKn, base) {
		t.Error("knowledge variant should extend the base prompt")
	}
	if !strings.Contains(withKn, "Open the dialer from the home screen.") {
		t.Error("knowledge content not appended")
	}
}
