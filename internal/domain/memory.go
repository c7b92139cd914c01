package domain

// UserProfile accumulates what the assistant has learned about the
// user within one session.
type UserProfile struct {
	// EmotionalState is an append-only history of observed labels.
	EmotionalState []string `json:"emotionalState"`
	// RiskLevel is the last observed level, not a history.
	RiskLevel   int               `json:"riskLevel"`
	Preferences map[string]string `json:"preferences"`
}

// SessionContext tracks the conversational thread of the session.
type SessionContext struct {
	// ConversationThemes is append-only; duplicates are allowed.
	ConversationThemes []string `json:"conversationThemes"`
	CurrentTechnique   *string  `json:"currentTechnique"`
}

// Memory is the per-session psychological state folded message by
// message. It is created empty at session start, threaded explicitly
// through each workflow run, and updated only by Fold.
type Memory struct {
	UserProfile    UserProfile    `json:"userProfile"`
	SessionContext SessionContext `json:"sessionContext"`
}

func NewMemory() Memory {
	return Memory{
		UserProfile: UserProfile{
			EmotionalState: []string{},
			Preferences:    map[string]string{},
		},
		SessionContext: SessionContext{
			ConversationThemes: []string{},
		},
	}
}

// Fold returns the next Memory produced from this one and a fresh
// insight. It is a pure function: the receiver is not modified and the
// result is fully determined by its inputs. Emotional state labels and
// themes are appended, riskLevel is last-observed-wins, and the current
// technique is replaced only when the insight supplies one.
func (m Memory) Fold(in Insight) Memory {
	next := Memory{
		UserProfile: UserProfile{
			EmotionalState: make([]string, 0, len(m.UserProfile.EmotionalState)+1),
			RiskLevel:      in.RiskLevel,
			Preferences:    make(map[string]string, len(m.UserProfile.Preferences)),
		},
		SessionContext: SessionContext{
			ConversationThemes: make([]string, 0, len(m.SessionContext.ConversationThemes)+len(in.Themes)),
			CurrentTechnique:   m.SessionContext.CurrentTechnique,
		},
	}

	next.UserProfile.EmotionalState = append(next.UserProfile.EmotionalState, m.UserProfile.EmotionalState...)
	if in.EmotionalState != "" {
		next.UserProfile.EmotionalState = append(next.UserProfile.EmotionalState, in.EmotionalState)
	}

	for k, v := range m.UserProfile.Preferences {
		next.UserProfile.Preferences[k] = v
	}

	next.SessionContext.ConversationThemes = append(next.SessionContext.ConversationThemes, m.SessionContext.ConversationThemes...)
	next.SessionContext.ConversationThemes = append(next.SessionContext.ConversationThemes, in.Themes...)

	if in.RecommendedApproach != "" {
		technique := in.RecommendedApproach
		next.SessionContext.CurrentTechnique = &technique
	}

	return next
}
