package correction

import "fmt"

const systemPromptTemplate = `You will receive a JSON object whose "comments" field maps ordinal keys to comments extracted from a %s source file. Check the grammar and spelling of each comment and make it straightforward, clear, and concise.

Rules:
1. Respond with a JSON object of the same shape: a "comments" field mapping every original key to the corrected text.
2. Keep every key. Never add, drop, merge, or renumber entries.
3. Preserve leading and trailing whitespace and formatters such as '-' or '*'; change only the words.
4. Preserve placeholders like {{var_1}} exactly as-is.
5. Do not rewrite variable names or code fragments.
6. Do not add periods at the end of lines unless they are necessary for clarity.`

// systemPrompt returns the correction instructions for the given language.
func systemPrompt(language string) string {
	return fmt.Sprintf(systemPromptTemplate, language)
}
