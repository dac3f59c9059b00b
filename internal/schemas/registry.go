package schemas

// Schema names, used in validation errors and repair prompts.
const (
	SchemaOutline         = "course_outline"
	SchemaModuleContent   = "module_content"
	SchemaNotes           = "notes"
	SchemaQuiz            = "quiz"
	SchemaFlashcards      = "flashcards"
	SchemaSimulationIdeas = "simulation_ideas"
	SchemaSimulationCode  = "simulation_code"
)

// Compiled at package load; a broken embedded schema fails fast at startup.
var (
	outlineSchema = mustLoad(SchemaOutline, "outline.schema.json",
		`A course outline object with "title", "description", optional "estimatedDuration", and a "modules" array where each module has "title", "description" and a "lessons" array of {title, description?, type?}. Alternatively, a rejection object {"error": true, "errorType": "...", "message": "..."} when the topic fails the safety or validity pre-check.`,
		nil)

	moduleContentSchema = mustLoad(SchemaModuleContent, "module_content.schema.json",
		`A module object with "title", "description", "introduction", "learningObjectives" (array of strings), "summary", and a "lessons" array. Each lesson has "title", "description", "type" (concept|mixed|quiz), a "sections" array of {title, body}, optional "codeExamples" ({language, code, explanation?}), optional "visualizations" ({title, html, css?, js?}), and 2-4 "practiceQuestions" whose "type" rotates across mcq, fillBlanks, dragDrop. mcq: exactly 4 "options" and "correctIndex" in [0,3]. fillBlanks: "text" containing one {{blankId}} placeholder per entry in "blanks" ({id, answer}). dragDrop: equally many "items" ({id, label}) and "targets" ({id, label, acceptsItems}); every item id appears in exactly one target's acceptsItems and every target accepts at least one item.`,
		checkModuleContent)

	notesSchema = mustLoad(SchemaNotes, "notes.schema.json",
		`A notes object with "topic", "learningObjectives" (array of strings), and ordered "sections". Each section has "title", "body", and optionally "callouts" ({type: tip|example|note|common-mistake, text}), "highlights" ({type: insight|important|warning, text}), "definitions" ({term, meaning}), "codeBlocks" ({language, code, explanation?}), "interactivePrompts" (strings), "reflectionQuestions" (strings), and a "quiz" array of {type: mcq|true-false|fill-blank, question, answer, explanation?} where only mcq items carry an "options" array of exactly 4 entries.`,
		checkNotes)

	quizSchema = mustLoad(SchemaQuiz, "quiz.schema.json",
		`A quiz object with "topic" and a "questions" array where every question has "question", exactly 4 "options", "correctIndex" in [0,3], and "explanation".`,
		nil)

	flashcardsSchema = mustLoad(SchemaFlashcards, "flashcards.schema.json",
		`A flashcards object with "topic" and a "cards" array of {front, back, hint?}.`,
		nil)

	simulationIdeasSchema = mustLoad(SchemaSimulationIdeas, "simulation_ideas.schema.json",
		`A simulation-ideas object with "applicable" (boolean), optional "reason", and an "ideas" array of {title, description, concept}: 1-3 ideas when applicable, none otherwise. Zero viable simulations is a valid outcome, not an error.`,
		checkSimulationIdeas)

	simulationCodeSchema = mustLoad(SchemaSimulationCode, "simulation_code.schema.json",
		`A simulation-code object with "title", self-contained "html", and optional "css" and "js" strings.`,
		nil)
)

// Outline returns the schema for the outline generator's union result.
func Outline() *Schema { return outlineSchema }

// ModuleContent returns the schema for generated module content.
func ModuleContent() *Schema { return moduleContentSchema }

// Notes returns the schema for the notes artifact.
func Notes() *Schema { return notesSchema }

// Quiz returns the schema for the comprehensive quiz artifact.
func Quiz() *Schema { return quizSchema }

// Flashcards returns the schema for the flashcards artifact.
func Flashcards() *Schema { return flashcardsSchema }

// SimulationIdeas returns the schema for simulation idea proposals.
func SimulationIdeas() *Schema { return simulationIdeasSchema }

// SimulationCode returns the schema for generated simulation code.
func SimulationCode() *Schema { return simulationCodeSchema }
