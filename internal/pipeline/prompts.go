package pipeline

import (
	"fmt"
	"strings"

	"campusquery/internal/models"
)

// buildContext concatenates match content into a context block, each entry
// labeled with its source filename.
func buildContext(matches []models.RetrievalMatch) string {
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		parts = append(parts, fmt.Sprintf("Document: %s\nContent: %s", m.Chunk.Filename, m.Chunk.Content))
	}
	return strings.Join(parts, "\n\n")
}

func answerPrompt(query, context string) string {
	return fmt.Sprintf(`Based on the following university documents, provide a comprehensive answer to the user's question.

QUESTION: %s

CONTEXT: %s

Please provide your answer in a structured format with:
1. Key information highlighted with **bold** formatting
2. Clear sections and bullet points where appropriate
3. Specific references to the source documents

Make the answer well-organized and easy to read.`, query, context)
}

func detailedPrompt(query, context string) string {
	return fmt.Sprintf(`Based on the following university documents, provide a detailed, comprehensive explanation for the user's question.

QUESTION: %s

CONTEXT: %s

Please provide:
1. **In-depth analysis** of the topic with background information
2. **Step-by-step explanations** where applicable
3. **Additional related information** that might be helpful
4. **Specific examples** from the documents
5. **Cross-references** to related topics or procedures
6. **Practical advice** or next steps for the user

This should be a thorough explanation that goes beyond the basic answer and provides comprehensive understanding of the topic.

Format with **bold** keywords for better readability.`, query, context)
}

func knowledgePrompt(query string) string {
	return fmt.Sprintf(`I need you to act as a web search assistant. Please provide comprehensive, factual information about: "%s"

Please provide information structured as follows:

TOPIC: %s

OVERVIEW:
[Provide a comprehensive overview of the topic]

KEY INFORMATION:
[List key facts, details, and important information]

SPECIFIC DETAILS:
[Include specific details, dates, requirements, procedures, etc. as relevant]

ADDITIONAL CONTEXT:
[Any additional relevant context or related information]

Please ensure the information is accurate, current, and comprehensive. Focus on providing factual, helpful content that directly addresses the query.`, query, query)
}

func knowledgeAnswerPrompt(query, context string) string {
	return fmt.Sprintf(`Based on the following web search information, provide a comprehensive answer to the user's question.

QUESTION: %s

WEB SEARCH RESULTS:
%s

Please provide your answer in a structured format with:
1. Key information highlighted with **bold** formatting
2. Clear sections and bullet points where appropriate
3. Comprehensive coverage of the topic

Make the answer well-organized and easy to read. Note that this information comes from web search since it wasn't available in the local university documents.`, query, context)
}

func knowledgeDetailedPrompt(query, context string) string {
	return fmt.Sprintf(`Based on the following web search information, provide a detailed, comprehensive explanation for the user's question.

QUESTION: %s

WEB SEARCH RESULTS:
%s

Please provide:
1. **In-depth analysis** of the topic with background information
2. **Step-by-step explanations** where applicable
3. **Additional related information** that might be helpful
4. **Specific examples** from the search results
5. **Practical advice** or next steps for the user

Format with **bold** keywords for better readability. This is supplementary information from web search.`, query, context)
}

func followupPrompt(selectedText, context, documentName string) string {
	return fmt.Sprintf(`Based on this selected text from the university document "%s":

"%s"

Context: %s

Generate a natural, specific follow-up question that would help a student understand this content better.
The question should be:
1. Directly related to the selected text
2. Practical and useful for students
3. Clear and specific
4. Encourage deeper understanding

Respond with just the question, nothing else.`, documentName, selectedText, context)
}
