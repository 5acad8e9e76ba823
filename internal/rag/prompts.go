package rag

import (
	"fmt"
	"strings"

	"billing-rag/internal/vectorstore"
)

const condenseTemplate = `Given the following conversation and a follow up question, rephrase the follow up question to be a standalone question, in its original language.

Chat History:
%s
Follow Up Input: %s
Standalone question:`

const answerSystemTemplate = `Use the following pieces of context to answer the user's question.
If you don't know the answer, just say that you don't know, don't try to make up an answer.
----------------
%s`

func condensePrompt(history []Turn, question string) string {
	var b strings.Builder
	for _, t := range history {
		b.WriteString("\nHuman: ")
		b.WriteString(t.Question)
		b.WriteString("\nAssistant: ")
		b.WriteString(t.Answer)
	}
	return fmt.Sprintf(condenseTemplate, b.String(), question)
}

// stuffDocuments joins every retrieved page into one context block.
func stuffDocuments(docs []vectorstore.Document) string {
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	return fmt.Sprintf(answerSystemTemplate, strings.Join(texts, "\n\n"))
}
