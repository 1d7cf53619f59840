package models

import (
	"fmt"
	"slices"
	"strings"
)

// Profile is a travel mode understood by the isochrone provider.
type Profile string

const (
	ProfileDriving    Profile = "driving-car"
	ProfileCycling    Profile = "cycling-regular"
	ProfileWalking    Profile = "foot-walking"
	ProfileWheelchair Profile = "wheelchair"
)

// ProfileOption binds a profile to the name and fill color used when drawing it.
type ProfileOption struct {
	Profile     Profile `json:"profile"`
	DisplayName string  `json:"display_name"`
	Color       string  `json:"color"`
}

var profileOptions = []ProfileOption{
	{Profile: ProfileDriving, DisplayName: "Driving", Color: "green"},
	{Profile: ProfileCycling, DisplayName: "Cycling", Color: "blue"},
	{Profile: ProfileWalking, DisplayName: "Walking", Color: "orange"},
	{Profile: ProfileWheelchair, DisplayName: "Wheelchair", Color: "red"},
}

// ProfileOptions returns a copy of the profile table in display order.
func ProfileOptions() []ProfileOption {
	return slices.Clone(profileOptions)
}

// Option returns the table entry of the profile.
func (p Profile) Option() (ProfileOption, bool) {
	for _, opt := range profileOptions {
		if opt.Profile == p {
			return opt, true
		}
	}

	return ProfileOption{}, false
}

// Valid reports whether the profile is part of the table.
func (p Profile) Valid() bool {
	_, ok := p.Option()
	return ok
}

// ParseProfile accepts either a provider id (driving-car) or a display name (Driving).
func ParseProfile(value string) (Profile, error) {
	value = strings.TrimSpace(value)
	for _, opt := range profileOptions {
		if string(opt.Profile) == value || strings.EqualFold(opt.DisplayName, value) {
			return opt.Profile, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidProfile, value)
}

// CheckProfiles fails when the profile table and the provider's supported list differ.
func CheckProfiles(supported []Profile) error {
	for _, opt := range profileOptions {
		if !slices.Contains(supported, opt.Profile) {
			return fmt.Errorf("%w: %s is not supported by the provider", ErrInvalidProfile, opt.Profile)
		}
	}
	for _, p := range supported {
		if !p.Valid() {
			return fmt.Errorf("%w: provider profile %s has no display option", ErrInvalidProfile, p)
		}
	}

	return nil
}
