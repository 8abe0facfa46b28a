package prompts

import "fmt"

// actionKnowledgeTemplate asks a model to map a natural-language instruction
// to an app package name and an action intent, then report the matching
// knowledge-base entry. The response contract is a bare JSON object with
// "app" and "content" fields, null when nothing matches.
const actionKnowledgeTemplate = `You are a smart assistant that processes user requests on a mobile device.

Given a natural language input, do the following:
1. Determine which app the user wants to open. Output the app's package name (e.g., com.tencent.mm).
2. Identify the user's action intent and extract it as an action_id (e.g., "post to Moments").
3. Simulate calling this function:
   get_action_knowledge(package_name: str, action_id: str) -> str
   (This returns a help string from the knowledge base for that app and action.)

Then, return the result in this strict JSON format:
{
  "app": "<app package name>",
  "content": "<knowledge base result>"
}

If no relevant app or content is found, return null for the field.

Example input:
"Please help me post a Moments update with the message: 'Feeling good today!'"

Only output the JSON result, nothing else.

---

User Input:
"%s"`

// ActionKnowledgePrompt returns the prompt for resolving the target app and
// action knowledge for a user instruction.
func ActionKnowledgePrompt(userInput string) string {
	return fmt.Sprintf(actionKnowledgeTemplate, userInput)
}
