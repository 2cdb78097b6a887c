package domain

// PetAnalysis is the agent's personality/species read of the uploaded image.
type PetAnalysis struct {
	Species           string   `json:"species"`
	Breed             string   `json:"breed,omitempty"`
	Expression        string   `json:"expression,omitempty"`
	PersonalityTraits []string `json:"personality_traits"`
	Confidence        float64  `json:"confidence"`
}

// CareerProfile maps the personality analysis onto a human profession.
type CareerProfile struct {
	Profession string `json:"profession"`
	Seniority  string `json:"seniority"`
	Industry   string `json:"industry,omitempty"`
	Rationale  string `json:"rationale,omitempty"`
}

// IdentityPackage is the generated professional identity for the avatar.
type IdentityPackage struct {
	HumanName        string            `json:"human_name"`
	JobTitle         string            `json:"job_title"`
	Seniority        string            `json:"seniority"`
	Bio              string            `json:"bio"`
	Skills           []string          `json:"skills"`
	CareerTrajectory map[string]string `json:"career_trajectory"`
	SimilarityScore  float64           `json:"similarity_score"`
}

// ResultPayload is the structured output persisted when a job completes.
type ResultPayload struct {
	PetAnalysis   PetAnalysis     `json:"pet_analysis"`
	CareerProfile CareerProfile   `json:"career_profile"`
	Identity      IdentityPackage `json:"identity"`
}
