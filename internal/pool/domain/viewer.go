package domain

// Viewer is the authenticated caller. A nil *Viewer is anonymous.
type Viewer struct {
	UserID    string
	Email     string
	Pseudonym string
}

// Identifiers returns the normalized subject id, email and pseudonym, skipping empties.
func (v *Viewer) Identifiers() []string {
	if v == nil {
		return nil
	}
	out := make([]string, 0, 3)
	for _, s := range []string{v.UserID, v.Email, v.Pseudonym} {
		if n := NormalizeIdentifier(s); n != "" {
			out = append(out, n)
		}
	}
	return out
}
