package model

import "time"

// Candidate is the identity record owning archived sessions. Candidates
// are unique by email when present; ID is a stable opaque token
// assigned at creation.
type Candidate struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Email     string            `json:"email"`
	Phone     string            `json:"phone,omitempty"`
	Topic     string            `json:"topic,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	Sessions  []SessionSnapshot `json:"sessions,omitempty"`
}

// Merge applies non-empty incoming fields over the receiver. Sessions
// are never merged here; archival appends them explicitly.
func (c *Candidate) Merge(in *Candidate) {
	if in == nil {
		return
	}
	if in.Name != "" {
		c.Name = in.Name
	}
	if in.Email != "" {
		c.Email = in.Email
	}
	if in.Phone != "" {
		c.Phone = in.Phone
	}
	if in.Topic != "" {
		c.Topic = in.Topic
	}
	if c.CreatedAt.IsZero() && !in.CreatedAt.IsZero() {
		c.CreatedAt = in.CreatedAt
	}
}

// CandidateSummary is the denormalized candidate payload embedded in
// archived session snapshots.
type CandidateSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Summary builds the denormalized form of a candidate.
func (c *Candidate) Summary() *CandidateSummary {
	return &CandidateSummary{
		ID:    c.ID,
		Name:  c.Name,
		Email: c.Email,
		Phone: c.Phone,
	}
}

// AddCandidateRequest is the payload for candidate intake.
type AddCandidateRequest struct {
	Name  string `json:"name" binding:"required,min=1,max=120"`
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"phone" binding:"omitempty,max=32"`
	Topic string `json:"topic" binding:"omitempty,max=120"`
}
