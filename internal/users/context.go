package users

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
)

// Account states. Routing treats these as the highest-priority signal.
const (
	TypeNew                  = "new_user"
	TypeIncompleteOnboarding = "incomplete_onboarding"
	TypeComplete             = "complete_user"
)

// UserContext is the account situation attached to one inbound message.
type UserContext struct {
	UserType            string `json:"user_type"`
	HasAccount          bool   `json:"has_account"`
	OnboardingCompleted bool   `json:"onboarding_completed"`
	OnboardingURL       string `json:"onboarding_url,omitempty"`
	UserID              string `json:"user_id,omitempty"`
	Name                string `json:"name,omitempty"`
}

// Lookup resolves phone numbers to account contexts. It degrades
// rather than fails: any store error presents as a new user so the
// conversation proceeds.
type Lookup struct {
	store   *Store
	urlBase string
	logger  *slog.Logger
}

// NewLookup creates a context lookup. urlBase is the web onboarding
// URL prefix; user IDs are appended to it.
func NewLookup(store *Store, urlBase string, logger *slog.Logger) *Lookup {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lookup{store: store, urlBase: strings.TrimRight(urlBase, "/"), logger: logger}
}

// ContextByPhone classifies a phone number as new_user,
// incomplete_onboarding, or complete_user.
func (l *Lookup) ContextByPhone(ctx context.Context, phone string) UserContext {
	u, err := l.store.ByPhone(ctx, phone)
	if err != nil {
		// Missing row and store failure look the same to the caller;
		// only the latter is worth a log line.
		if !errors.Is(err, sql.ErrNoRows) {
			l.logger.Warn("user lookup failed, treating as new user",
				"phone", NormalizePhone(phone), "error", err)
		}
		return UserContext{UserType: TypeNew}
	}

	uc := UserContext{
		HasAccount:          true,
		OnboardingCompleted: u.OnboardingCompleted,
		UserID:              u.ID,
		Name:                u.Name,
		OnboardingURL:       l.OnboardingURL(u.ID),
	}
	if u.OnboardingCompleted {
		uc.UserType = TypeComplete
	} else {
		uc.UserType = TypeIncompleteOnboarding
	}
	return uc
}

// OnboardingURL builds the web onboarding link for a user ID. Empty
// when no base is configured.
func (l *Lookup) OnboardingURL(userID string) string {
	if l.urlBase == "" || userID == "" {
		return ""
	}
	return l.urlBase + "/" + userID
}
