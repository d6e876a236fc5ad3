package chat

import (
	"fmt"
	"strings"

	"github.com/sibylhq/sibyl/internal/rag"
)

// Persona is the optional healthcare-companion deployment variant:
// static persona and safety constraints with patient-profile fields
// interpolated into the instruction text. The fields are opaque
// configuration, not logic.
type Persona struct {
	Enabled      bool
	PatientName  string
	Diagnosis    string
	Prescription string
	Appointment  string
	Notes        string
}

const assistantPrompt = `You are a helpful AI assistant. Answer the user's question based on the provided context.
If you don't know the answer or the context doesn't contain relevant information, say so.
Don't make up information that isn't in the context.`

const personaPromptFormat = `You are a friendly healthcare companion. Your patient, %s, has been diagnosed with %s and has a prescription for %s. Their next appointment is %s. They will ask you for information relating to their diagnosis, prescription, and care plan. Your purpose is to use your knowledge base and the patient's medical record %s to support them to understand and manage their health with a positive and informed approach to navigating their healthcare journey. Critically, ensure that they understand clinical language.

Follow these guidelines for what language to use when answering queries:
1. Use everyday language that is easy to understand
2. Provide clear, concise, professional, and empathetic explanations
3. Do not use sorrow or pitiful language. Do not apologise in the response.
4. Offer analogies or examples when helpful but be sensitive and considerate to the severity of the patient's situation.
5. If a technical term is necessary, provide a simple definition.
6. Assume the patient has no medical background and aim to educate without overwhelming.
7. Ensure information is accurate to the source
8. Use gender inclusive language
9. In your answers, refer to the patient by their name.`

// SystemPrompt builds the system instruction: the base instruction
// (persona variant when enabled) followed by the assembled context.
func SystemPrompt(assembled rag.Context, persona Persona) string {
	var b strings.Builder

	if persona.Enabled {
		fmt.Fprintf(&b, personaPromptFormat,
			persona.PatientName,
			persona.Diagnosis,
			persona.Prescription,
			persona.Appointment,
			persona.Notes)
	} else {
		b.WriteString(assistantPrompt)
	}

	b.WriteString("\n\nContext:\n")
	b.WriteString(assembled.Text)
	return b.String()
}
