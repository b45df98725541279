// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

// Package profile holds the optional personal details attached to an account.
package profile

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
)

// CodeInvalid marks details that fail validation.
const CodeInvalid = "PROFILE_INVALID"

// Gender is a self-described gender.
type Gender string

// Genders.
const (
	GenderMale           Gender = "male"
	GenderFemale         Gender = "female"
	GenderOther          Gender = "other"
	GenderPreferNotToSay Gender = "prefer_not_to_say"
)

// Social platforms accepted as SocialLinks keys.
const (
	PlatformTwitter   = "twitter"
	PlatformLinkedIn  = "linkedin"
	PlatformGitHub    = "github"
	PlatformFacebook  = "facebook"
	PlatformInstagram = "instagram"
)

// DateLayout is the wire and storage format of DateOfBirth.
const DateLayout = time.DateOnly

// Profile is one account's personal details. Every field is optional.
type Profile struct {
	ID          string            `json:"id"`
	AccountID   string            `json:"accountId"`
	FirstName   *string           `json:"firstName,omitempty"`
	LastName    *string           `json:"lastName,omitempty"`
	Contact     *string           `json:"contact,omitempty"`
	Avatar      *string           `json:"avatar,omitempty"`
	Bio         *string           `json:"bio,omitempty"`
	Gender      *Gender           `json:"gender,omitempty"`
	DateOfBirth *time.Time        `json:"dateOfBirth,omitempty"`
	Location    *string           `json:"location,omitempty"`
	SocialLinks map[string]string `json:"socialLinks"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// Details is the caller-supplied part of a profile. Nil fields are left
// unchanged on update.
type Details struct {
	FirstName   *string           `json:"firstName,omitempty" validate:"omitempty,max=50"`
	LastName    *string           `json:"lastName,omitempty" validate:"omitempty,max=50"`
	Contact     *string           `json:"contact,omitempty" validate:"omitempty,e164"`
	Avatar      *string           `json:"avatar,omitempty" validate:"omitempty,url"`
	Bio         *string           `json:"bio,omitempty" validate:"omitempty,max=500"`
	Gender      *Gender           `json:"gender,omitempty" validate:"omitempty,oneof=male female other prefer_not_to_say"`
	DateOfBirth *string           `json:"dateOfBirth,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Location    *string           `json:"location,omitempty" validate:"omitempty,max=100"`
	SocialLinks map[string]string `json:"socialLinks,omitempty" validate:"omitempty,dive,keys,oneof=twitter linkedin github facebook instagram,endkeys,url"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Normalize trims surrounding whitespace from every text field.
func (d Details) Normalize() Details {
	d.FirstName = trim(d.FirstName)
	d.LastName = trim(d.LastName)
	d.Contact = trim(d.Contact)
	d.Avatar = trim(d.Avatar)
	d.Bio = trim(d.Bio)
	d.DateOfBirth = trim(d.DateOfBirth)
	d.Location = trim(d.Location)
	return d
}

func trim(p *string) *string {
	if p == nil {
		return nil
	}
	s := strings.TrimSpace(*p)
	return &s
}

// Validate checks field formats.
func (d Details) Validate() error {
	err := validate.Struct(d)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return oops.Code(CodeInvalid).
			With("field", verrs[0].Field()).
			With("rule", verrs[0].Tag()).
			Wrap(err)
	}
	return oops.Code(CodeInvalid).Wrap(err)
}

// Empty reports whether d sets nothing.
func (d Details) Empty() bool {
	return d.FirstName == nil && d.LastName == nil && d.Contact == nil && d.Avatar == nil &&
		d.Bio == nil && d.Gender == nil && d.DateOfBirth == nil && d.Location == nil && d.SocialLinks == nil
}

// Apply returns p with d applied. d must have passed Validate.
func (d Details) Apply(p Profile) (Profile, error) {
	if d.FirstName != nil {
		p.FirstName = d.FirstName
	}
	if d.LastName != nil {
		p.LastName = d.LastName
	}
	if d.Contact != nil {
		p.Contact = d.Contact
	}
	if d.Avatar != nil {
		p.Avatar = d.Avatar
	}
	if d.Bio != nil {
		p.Bio = d.Bio
	}
	if d.Gender != nil {
		p.Gender = d.Gender
	}
	if d.DateOfBirth != nil {
		dob, err := time.Parse(DateLayout, *d.DateOfBirth)
		if err != nil {
			return Profile{}, oops.Code(CodeInvalid).With("field", "DateOfBirth").Wrap(err)
		}
		p.DateOfBirth = &dob
	}
	if d.Location != nil {
		p.Location = d.Location
	}
	if d.SocialLinks != nil {
		links := make(map[string]string, len(p.SocialLinks)+len(d.SocialLinks))
		for k, v := range p.SocialLinks {
			links[k] = v
		}
		for k, v := range d.SocialLinks {
			links[k] = v
		}
		p.SocialLinks = links
	}
	return p, nil
}
