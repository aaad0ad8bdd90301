package models

const (
	DomainKeyword    = "groundwater"
	DefaultTitle     = "Document"
	ContextSeparator = " "

	EmptyQuestionMessage = "Please ask a specific question about groundwater resources."
	NoDocumentsMessage   = "No relevant groundwater-related documents found. Please refine your query."

	NOCGuidance = "To obtain an NOC (No Objection Certificate), please submit an application to the relevant authority, providing required documentation and information."
	DataNotice  = "Groundwater data is available upon request. Please contact the relevant authority for more information."

	DefinitionsMessage = "Definitions of groundwater terms are available."
	TrainingMessage    = "Training opportunities are available for groundwater professionals."
)

// Definitions returns the fixed glossary served by the definitions endpoint
func Definitions() map[string]string {
	return map[string]string{
		"Aquifer":     "A geological formation that stores and transmits significant amounts of water.",
		"Groundwater": "Water stored beneath the Earth's surface in soil, rock, and aquifers.",
		"Recharge":    "The process of replenishing groundwater through natural or artificial means.",
		"Discharge":   "The process of releasing groundwater into the environment through natural or artificial means.",
	}
}

// TrainingOpportunities returns the fixed list of training programs
func TrainingOpportunities() []string {
	return []string{
		"Certified Groundwater Professional (CGP)",
		"Groundwater Management Training",
		"Workshops and Conferences",
	}
}
