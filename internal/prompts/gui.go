package prompts

import "fmt"

// screenStateTemplate asks a model to answer a question about the current
// phone state from a dump of on-screen UI elements. Format verbs: the user
// query, then the element list as JSON.
const screenStateTemplate = `You are a GUI state analyzer for an Android device.

Your task is to analyze a list of GUI elements and answer a user query about the current phone state.
Each element contains metadata like 'text', 'resource-id', 'bounds', and 'class'.

Use the provided GUI elements to infer the device's current state.
Focus on the visible screen, active app, dialogs, or any UI patterns relevant to the question.

User Query:
"%s"

GUI Elements:
%s

Respond with a concise, factual English summary (max 100 words) that directly answers the user's query,
focusing on actionable and observable UI information.
Avoid speculation. Only describe what can be inferred from the GUI data.`

// ScreenStatePrompt returns the prompt for answering a state query against the
// given UI element dump (JSON-encoded element list).
func ScreenStatePrompt(query, guiElements string) string {
	return fmt.Sprintf(screenStateTemplate, query, guiElements)
}

// elementMatchTemplate asks a model to pick the on-screen element best
// matching a natural-language description and return its tap point. The
// response contract is a bare JSON object {"x": number, "y": number}.
const elementMatchTemplate = `You are a UI element matcher for an Android device.

Your task is to analyze a list of GUI elements and a user-provided description.
Identify the GUI element that best matches the description.
Each element contains metadata like 'text', 'resource-id', 'bounds', and 'class'.

Once you've found the best match, calculate the center point from the 'bounds' rectangle:
Format: [left, top, right, bottom]
Center:
x = (left + right) // 2
y = (top + bottom) // 2

Return only the result in this exact JSON format:
{"x": number, "y": number}

---

User Description:
"%s"

GUI Elements:
%s

Only output the JSON result, nothing else.`

// ElementMatchPrompt returns the prompt for locating the element described by
// description within the given UI element dump (JSON-encoded element list).
func ElementMatchPrompt(description, guiElements string) string {
	return fmt.Sprintf(elementMatchTemplate, description, guiElements)
}
