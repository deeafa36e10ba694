package exports

import (
	"encoding/json"
	"net/mail"
	"strings"

	"openmusic/internal/apperr"
)

// DefaultQueue is the durable queue export jobs are published to.
const DefaultQueue = "export:playlists"

// Job asks for a playlist snapshot to be mailed to TargetEmail. It is the
// whole message body; nothing else about the job is persisted.
type Job struct {
	PlaylistID  string `json:"playlistId"`
	TargetEmail string `json:"targetEmail"`
}

// Validate checks that both fields are present and that TargetEmail is a
// bare address such as "user@example.com".
func (j Job) Validate() error {
	if strings.TrimSpace(j.PlaylistID) == "" {
		return apperr.New(apperr.KindValidation, "playlistId is required")
	}
	return ValidateEmail(j.TargetEmail)
}

// ValidateEmail accepts only a bare RFC 5322 address without display name.
func ValidateEmail(address string) error {
	if strings.TrimSpace(address) == "" {
		return apperr.New(apperr.KindValidation, "targetEmail is required")
	}
	parsed, err := mail.ParseAddress(address)
	if err != nil || parsed.Name != "" || parsed.Address != address {
		return apperr.New(apperr.KindValidation, "targetEmail must be a valid email address")
	}
	return nil
}

// ParseJob decodes and validates a message body.
func ParseJob(body []byte) (Job, error) {
	var job Job
	if err := json.Unmarshal(body, &job); err != nil {
		return Job{}, apperr.Wrap(err, apperr.KindValidation, "malformed export job")
	}
	if err := job.Validate(); err != nil {
		return Job{}, err
	}
	return job, nil
}
