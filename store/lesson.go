package store

// Lesson is the minimal lesson metadata the orchestrator reads each turn.
// Lesson authoring and content storage live in an external collaborator;
// this record exists so routing and prompts know the subject being taught.
type Lesson struct {
	ID         string   `json:"id"`
	Subject    string   `json:"subject"`
	Grade      int      `json:"grade"`
	Title      string   `json:"title"`
	Objectives []string `json:"objectives"`
}
