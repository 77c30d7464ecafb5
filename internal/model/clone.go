package model

import "time"

func cloneTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneFloatPtr(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func cloneIntPtr(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}

// Clone returns a deep copy of the answer.
func (a *Answer) Clone() *Answer {
	if a == nil {
		return nil
	}
	return &Answer{
		Text:        a.Text,
		Score:       cloneFloatPtr(a.Score),
		Feedback:    a.Feedback,
		SubmittedAt: cloneTimePtr(a.SubmittedAt),
	}
}

// Clone returns a deep copy of the question.
func (q Question) Clone() Question {
	q.RemainingTime = cloneIntPtr(q.RemainingTime)
	q.StartedAt = cloneTimePtr(q.StartedAt)
	q.Answer = q.Answer.Clone()
	return q
}

// Clone returns a deep copy of the evaluation.
func (e *Evaluation) Clone() *Evaluation {
	if e == nil {
		return nil
	}
	out := *e
	out.TotalScore = cloneFloatPtr(e.TotalScore)
	out.OverallScore = cloneFloatPtr(e.OverallScore)
	out.Evaluations = append([]QuestionEvaluation(nil), e.Evaluations...)
	return &out
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.CompletedAt = cloneTimePtr(s.CompletedAt)
	out.Summary = s.Summary.Clone()
	out.Questions = make([]Question, len(s.Questions))
	for i := range s.Questions {
		out.Questions[i] = s.Questions[i].Clone()
	}
	return &out
}

// Clone returns a deep copy of the snapshot.
func (sn *SessionSnapshot) Clone() *SessionSnapshot {
	if sn == nil {
		return nil
	}
	out := *sn
	out.Session = *sn.Session.Clone()
	if sn.Candidate != nil {
		c := *sn.Candidate
		out.Candidate = &c
	}
	return &out
}

// Clone returns a deep copy of the candidate, including its archived
// session history.
func (c *Candidate) Clone() *Candidate {
	if c == nil {
		return nil
	}
	out := *c
	out.Sessions = make([]SessionSnapshot, len(c.Sessions))
	for i := range c.Sessions {
		out.Sessions[i] = *c.Sessions[i].Clone()
	}
	return &out
}
