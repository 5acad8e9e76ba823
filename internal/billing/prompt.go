package billing

const promptTemplate = "Extract the procedure performed, billing code, and price. " +
	"Strictly return only valid JSON with this exact format:\n" +
	"{\n  \"code\": \"returned_code\",\n  \"description\": \"returned_description\",\n  \"unitPrice\": returned_price\n}" +
	"\nDo not include any extra text, explanation, or markdown.\n" +
	"Text: "

// BuildPrompt renders the extraction instruction for one procedure description.
func BuildPrompt(text string) string {
	return promptTemplate + text
}
