package rag

import (
	"fmt"

	"github.com/quillboard/folio/internal/interfaces"
)

// systemPrompt mandates grounded answering: only the supplied excerpts may
// be used, citations must reference the document/page markers from the
// evidence block, and missing information must be acknowledged rather than
// invented.
const systemPrompt = `You are Folio, an expert AI assistant that answers questions based on document content.

INSTRUCTIONS:
1. Read the provided document excerpts carefully.
2. Base your answer ONLY on the information in the provided excerpts.
3. If the answer is in the documents, provide a detailed and accurate response.
4. When citing information, mention the document ID and page number.
5. If the information is NOT in the provided excerpts, be honest and say you don't have enough information.
6. DO NOT make up or infer information that isn't explicitly stated in the documents.
7. If the excerpts contain partial information, provide what you can find and acknowledge the limitations.
8. Use a confident, helpful tone while remaining factual and accurate.`

// questionTemplate wraps the evidence block and the user's question. The
// evidence sits in its own segment, distinct from chat history, so the
// model can tell discussion context from citable material.
const questionTemplate = `I need information from the following document excerpts:

%s

Based ONLY on the above excerpts (not your general knowledge), please answer this question:
%s

If the answer isn't contained in the excerpts, please state that you don't have enough information from the provided documents to answer the question.`

// BuildMessages constructs the grounded prompt: system instructions, then
// prior conversation turns in order, then a final user message carrying
// the evidence block and the question.
func BuildMessages(question, evidence string, history []interfaces.Message) []interfaces.Message {
	messages := make([]interfaces.Message, 0, len(history)+2)
	messages = append(messages, interfaces.Message{
		Role:    "system",
		Content: systemPrompt,
	})

	for _, msg := range history {
		if msg.Role != "user" && msg.Role != "assistant" {
			continue
		}
		messages = append(messages, msg)
	}

	messages = append(messages, interfaces.Message{
		Role:    "user",
		Content: fmt.Sprintf(questionTemplate, evidence, question),
	})

	return messages
}
