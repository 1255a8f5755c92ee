package processor

// Prompt templates for Mistral-instruct style models. The input text is
// substituted verbatim; the instructions ask for bare output so no
// post-processing beyond whitespace trimming is needed.
const (
	grammarPrompt = "[INST] Fix all typos, grammar, and punctuation errors in the following text. Keep the same meaning and preserve line breaks. Only return the corrected text without any explanations.\n\nText to fix: %s [/INST]"

	summaryPrompt = "[INST] Summarize the following text in a concise and clear manner. Keep the main points and key information. Make it about 1/3 the length of the original. Only return the summarized text without any explanations.\n\nText to summarize: %s [/INST]"

	tonePrompt = "[INST] Rewrite the following text to make it more formal and professional while keeping the same meaning. Use appropriate business language and tone. Only return the formal text without any explanations.\n\nText to make formal: %s [/INST]"
)
