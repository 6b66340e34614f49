package vision

import "strings"

// BasePrompt 固定的查找指令，要求模型以 JSON 形式作答
const BasePrompt = `You are given two images. The first image shows a target object. The second image is a scene.
Identify whether the target object appears in the scene, and describe its location and context.

Respond with JSON only, using this shape:
{
  "found": true or false,
  "confidence": a number between 0 and 1,
  "location": "where the object is in the scene, e.g. bottom-left, on the table",
  "context": "what surrounds the object and what it is doing or being used for",
  "description": "a short description of the matched object, or why no match was found"
}`

// BuildPrompt 组合固定指令和用户的附加说明；纯空白的说明视为没有
func BuildPrompt(instruction string) string {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return BasePrompt
	}
	return BasePrompt + "\n\nAdditional instructions from the user:\n" + instruction
}
