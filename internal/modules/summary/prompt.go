package summary

import "strings"

const (
	reviewDelimiter = "\n---\n"
	summaryPreamble = "Summarize the accessibility feedback below in **2-3 concise sentences**.\n" +
		"Use ONLY the provided review text.\n" +
		"Focus on the most important recurring accessibility issues or positives.\n" +
		"If there is disagreement, briefly mention it.\n" +
		"Write in a neutral, factual tone suitable for a map app.\n" +
		"Do NOT use bullet points.\n" +
		"Keep it under 35 words.\n\n" +
		"REVIEWS:\n"
)

func buildPrompt(texts []string) string {
	return summaryPreamble + strings.Join(texts, reviewDelimiter)
}
