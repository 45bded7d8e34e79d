package core

import (
	"context"
	"encoding/json"
	"fmt"
)

const profileMessage = "👤 Your Profile\n\n📞 Phone: %s\n\n🔑 API key:\n%s\n\nThe API key authorizes app management for this session. Use /logout to discard it."

// Profile returns the account profile for display. The cached copy stored at
// API key derivation time is used when present; otherwise the profile is
// fetched and the API key derived as a side effect.
func (s *Service) Profile(ctx context.Context, userID string) (*Response, error) {
	mu := s.deriveLock(userID)
	mu.Lock()
	defer mu.Unlock()

	blob, err := s.repo.ProfileBlob(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached profile: %w", err)
	}

	var prof *Profile

	if blob != "" {
		prof = &Profile{}
		if err := json.Unmarshal([]byte(blob), prof); err != nil {
			return nil, fmt.Errorf("failed to unmarshal cached profile: %w", err)
		}
	} else {
		prof, err = s.derive(ctx, userID)
		if err != nil {
			return nil, err
		}
	}

	return &Response{Message: fmt.Sprintf(profileMessage, prof.PhoneNumber, prof.APIKey)}, nil
}
