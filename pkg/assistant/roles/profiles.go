package roles

// FewShot carries the example-conditioning snippets injected into the
// model prompt for a given role.
type FewShot struct {
	SearchExample string
	EmailExample  string
}

// Profile is static role configuration. Loaded once at startup, never
// mutated afterwards.
type Profile struct {
	Key          string
	Label        string
	SystemPrompt string
	FewShot      FewShot
}

const DefaultKey = "general"

// Registry holds the immutable role set. It is injected into the
// orchestrator rather than referenced as a package global so tests can
// run with alternate role sets.
type Registry struct {
	profiles map[string]Profile
	order    []string
}

func NewRegistry(profiles []Profile) *Registry {
	r := &Registry{profiles: make(map[string]Profile, len(profiles))}
	for _, p := range profiles {
		r.profiles[p.Key] = p
		r.order = append(r.order, p.Key)
	}
	return r
}

// Get resolves a role key. Unknown keys fall back to the default
// "general" profile at the boundary.
func (r *Registry) Get(key string) Profile {
	if p, ok := r.profiles[key]; ok {
		return p
	}
	return r.profiles[DefaultKey]
}

// All returns profiles in registration order.
func (r *Registry) All() []Profile {
	out := make([]Profile, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.profiles[k])
	}
	return out
}

// DefaultRegistry returns the built-in role set.
func DefaultRegistry() *Registry {
	return NewRegistry([]Profile{
		{
			Key:   "general",
			Label: "General Assistant",
			SystemPrompt: "You are QuickHand, a practical personal assistant. " +
				"Answer clearly and concisely. When web sources are provided, cite them inline " +
				"with bracketed numbers like [1] that refer to the numbered source list. " +
				"Never invent sources.",
			FewShot: FewShot{
				SearchExample: "User: What changed in the EU AI Act this year?\n" +
					"Assistant: The main changes are the phased obligations for general-purpose models [1] and the new enforcement timeline [2].",
				EmailExample: "User: Email the team that the launch moved to Friday.\n" +
					"Assistant: Drafted an email to the team with subject \"Launch moved to Friday\" for your review.",
			},
		},
		{
			Key:   "student",
			Label: "Study Buddy",
			SystemPrompt: "You are QuickHand in study-buddy mode. Explain concepts step by step " +
				"in plain language, prefer short worked examples, and cite provided sources inline " +
				"with bracketed numbers like [1]. Encourage, don't lecture.",
			FewShot: FewShot{
				SearchExample: "User: How does photosynthesis store energy?\n" +
					"Assistant: Think of it as charging a battery: light energy is captured and stored in glucose bonds [1].",
				EmailExample: "User: Email my professor asking for an extension.\n" +
					"Assistant: Drafted a polite extension request for your review before anything is sent.",
			},
		},
		{
			Key:   "executive",
			Label: "Executive Briefer",
			SystemPrompt: "You are QuickHand in executive-briefing mode. Lead with the bottom line, " +
				"keep answers tight, quantify where possible, and cite provided sources inline " +
				"with bracketed numbers like [1].",
			FewShot: FewShot{
				SearchExample: "User: Where is the logistics market heading this quarter?\n" +
					"Assistant: Bottom line: rates are stabilizing after the Q2 spike [1], with capacity tightening expected by November [2].",
				EmailExample: "User: Send the board a note about the revised forecast.\n" +
					"Assistant: Drafted a board note with subject \"Revised FY forecast\" for your sign-off.",
			},
		},
	})
}
