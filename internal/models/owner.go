package models

import "time"

// Owner is the practitioner whose schedule is managed.
type Owner struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Specialization  string    `json:"specialization"`
	ExperienceYears int       `json:"experience_years"`
	ContactInfo     string    `json:"contact_info"`
	Email           string    `json:"email,omitempty"`
	PasswordHash    string    `json:"-"`
	ManagementToken string    `json:"management_token,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Public strips credentials before the owner is shown to anyone but themselves.
func (o Owner) Public() Owner {
	o.Email = ""
	o.PasswordHash = ""
	o.ManagementToken = ""
	return o
}

// OwnerPatch is a partial profile update; nil fields are left untouched.
type OwnerPatch struct {
	Name            *string `json:"name,omitempty"`
	Specialization  *string `json:"specialization,omitempty"`
	ExperienceYears *int    `json:"experience_years,omitempty"`
	ContactInfo     *string `json:"contact_info,omitempty"`
}

func (p OwnerPatch) Empty() bool {
	return p.Name == nil && p.Specialization == nil && p.ExperienceYears == nil && p.ContactInfo == nil
}

// Apply merges the present fields into o.
func (p OwnerPatch) Apply(o *Owner) {
	if p.Name != nil {
		o.Name = *p.Name
	}
	if p.Specialization != nil {
		o.Specialization = *p.Specialization
	}
	if p.ExperienceYears != nil {
		o.ExperienceYears = *p.ExperienceYears
	}
	if p.ContactInfo != nil {
		o.ContactInfo = *p.ContactInfo
	}
}
