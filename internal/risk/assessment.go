package risk

// AnalysisType tags whether a check covered one drug or several
type AnalysisType string

const (
	SingleDrug AnalysisType = "single-drug"
	MultiDrug  AnalysisType = "multi-drug"
)

// Data sources that can contribute to an assessment
const (
	SourceRules          = "rules"
	SourceInteractions   = "interactions"
	SourceAI             = "ai"
	SourcePatientHistory = "patient_history"
)

// ErrorMessage is returned with CategoryError
const ErrorMessage = "Unable to verify safety at this time. Consult a specialist."

// Assessment is the verdict for one medication check
type Assessment struct {
	DrugName          string       `json:"drug_name"`
	AdditionalDrugs   []string     `json:"additional_drugs"`
	Category          Category     `json:"risk_category"`
	Message           string       `json:"message"`
	Alternatives      []string     `json:"alternatives"`
	IsSafe            bool         `json:"is_safe"`
	PersonalizedNotes string       `json:"personalized_notes,omitempty"`
	RiskScore         *int         `json:"risk_score,omitempty"`
	AnalysisType      AnalysisType `json:"analysis_type"`
	Sources           []string     `json:"sources,omitempty"`
}

// SetCategory sets the category and keeps IsSafe in step with it
func (a *Assessment) SetCategory(c Category) {
	a.Category = c
	a.IsSafe = c.IsSafe()
}

// AddSource records a contributing data source once
func (a *Assessment) AddSource(source string) {
	for _, s := range a.Sources {
		if s == source {
			return
		}
	}
	a.Sources = append(a.Sources, source)
}

// Failed builds the terminal Error assessment for drugName
func Failed(drugName string, analysis AnalysisType) Assessment {
	return Assessment{
		DrugName:     drugName,
		Category:     CategoryError,
		Message:      ErrorMessage,
		Alternatives: []string{},
		IsSafe:       false,
		AnalysisType: analysis,
	}
}
