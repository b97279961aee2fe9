package query

import "fmt"

const promptTemplate = `You are a chatbot that answers questions directly based on banking policy documents.
Here is the relevant information retrieved from the database:

%s

Question: %s
Answer concisely and directly based on the provided data.`

// BuildPrompt embeds the context block and the literal question in the
// fixed instruction template.
func BuildPrompt(question, contextBlock string) string {
	return fmt.Sprintf(promptTemplate, contextBlock, question)
}
