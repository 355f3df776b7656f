package models

// ProfileCounts mirrors the backend's aggregated relation counts.
type ProfileCounts struct {
	Followers int `json:"followers"`
	Following int `json:"following"`
}

// ProfilePost is the reduced post shape embedded in a profile.
type ProfilePost struct {
	ID       uint   `json:"id"`
	Content  string `json:"content"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// Profile is the public view of a user as returned by /profiles/:nickname.
type Profile struct {
	ID          uint          `json:"id"`
	Nickname    string        `json:"nickname"`
	Bio         *string       `json:"bio"`
	Counts      ProfileCounts `json:"_count"`
	Posts       []ProfilePost `json:"posts"`
	IsFollowing bool          `json:"isFollowing"`
}

// BioText returns the bio or an empty string when unset.
func (p Profile) BioText() string {
	if p.Bio == nil {
		return ""
	}
	return *p.Bio
}

// Clone returns a deep copy so snapshots survive later mutation.
func (p Profile) Clone() Profile {
	out := p
	if p.Bio != nil {
		bio := *p.Bio
		out.Bio = &bio
	}
	if p.Posts != nil {
		out.Posts = append([]ProfilePost(nil), p.Posts...)
	}
	return out
}
