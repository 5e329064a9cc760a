package moderation

// CrisisResource is a single support contact shown to a user whose message
// contained crisis content.
type CrisisResource struct {
	Name        string `json:"name"`
	Number      string `json:"number"`
	Description string `json:"description"`
}

// CrisisNotice is the supportive-resources payload sent to the sender of a
// crisis-flagged message.
type CrisisNotice struct {
	Message   string           `json:"message"`
	Resources []CrisisResource `json:"resources"`
}

// CrisisResources returns the notice shown alongside (never instead of) a
// crisis-flagged message.
func CrisisResources() CrisisNotice {
	return CrisisNotice{
		Message: "We noticed you might be going through a difficult time. Please reach out for help:",
		Resources: []CrisisResource{
			{
				Name:        "National Suicide Prevention Lifeline",
				Number:      "988",
				Description: "24/7 crisis support",
			},
			{
				Name:        "Crisis Text Line",
				Number:      "Text HOME to 741741",
				Description: "24/7 text support",
			},
			{
				Name:        "Campus Counseling Center",
				Number:      "Your campus emergency number",
				Description: "Immediate campus support",
			},
		},
	}
}
