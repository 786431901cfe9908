package models

import (
	"encoding/json"
	"fmt"
	"maps"
	"strings"

	"github.com/dmitrijs2005/atelier/internal/common"
)

// UserType tells which directory a user belongs to.
type UserType string

const (
	UserTypeClient   UserType = "client"
	UserTypeDesigner UserType = "designer"
)

func ParseUserType(s string) (UserType, error) {
	switch UserType(strings.ToLower(strings.TrimSpace(s))) {
	case UserTypeClient:
		return UserTypeClient, nil
	case UserTypeDesigner:
		return UserTypeDesigner, nil
	}
	return "", fmt.Errorf("%w: %q", common.ErrInvalidUserType, s)
}

// Well-known profile fields.
const (
	FieldAvatar      = "avatar"
	FieldSocialLinks = "socialLinks"
)

// Record keys that are mapped onto struct fields instead of Profile.
const (
	keyID        = "id"
	keyEmail     = "email"
	keyPassword  = "password"
	keyFirstName = "firstName"
	keyLastName  = "lastName"
	keyUserType  = "userType"
	keyName      = "name"
)

// UserRecord is one entry of a user directory. Password is kept in plain text
// exactly as signup received it.
type UserRecord struct {
	ID        UserID
	Email     string
	Password  string
	FirstName string
	LastName  string
	UserType  UserType
	// Profile holds every other field (phone, address, avatar, bio, portfolio,
	// socialLinks, ...). It is flattened into the record's JSON object.
	Profile map[string]any
}

func (r UserRecord) FullName() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

// Clone returns a deep-enough copy: the profile map is copied so callers can
// mutate it without touching the directory's copy.
func (r UserRecord) Clone() UserRecord {
	r.Profile = maps.Clone(r.Profile)
	return r
}

// Apply merges partial fields into the record. id and userType cannot be
// changed; known string fields must be strings; anything else lands in Profile.
func (r *UserRecord) Apply(fields map[string]any) error {
	for k, v := range fields {
		switch k {
		case keyID, keyUserType:
			return fmt.Errorf("%w: %s", common.ErrImmutableField, k)
		case keyName:
			return fmt.Errorf("%w: name is derived from firstName and lastName", common.ErrInvalidField)
		case FieldAvatar:
			if v == nil {
				delete(r.Profile, k)
				continue
			}
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("%w: %s must be a string", common.ErrInvalidField, k)
			}
			if r.Profile == nil {
				r.Profile = make(map[string]any)
			}
			r.Profile[k] = s
		case keyEmail, keyPassword, keyFirstName, keyLastName:
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("%w: %s must be a string", common.ErrInvalidField, k)
			}
			switch k {
			case keyEmail:
				r.Email = common.NormalizeEmail(s)
			case keyPassword:
				r.Password = s
			case keyFirstName:
				r.FirstName = s
			case keyLastName:
				r.LastName = s
			}
		default:
			if r.Profile == nil {
				r.Profile = make(map[string]any)
			}
			if v == nil {
				delete(r.Profile, k)
				continue
			}
			r.Profile[k] = v
		}
	}
	return nil
}

// ValidateProfile checks the type specific fields given at signup. Record
// keys such as id, name or email are not profile fields, and avatar must be a
// string.
func ValidateProfile(profile map[string]any) error {
	for k, v := range profile {
		switch k {
		case keyID, keyUserType, keyName, keyEmail, keyPassword, keyFirstName, keyLastName:
			return fmt.Errorf("%w: %s is not a profile field", common.ErrInvalidField, k)
		case FieldAvatar:
			if _, ok := v.(string); !ok && v != nil {
				return fmt.Errorf("%w: %s must be a string", common.ErrInvalidField, k)
			}
		}
	}
	return nil
}

// Info projects the record into the session's UserInfo. The password never
// leaves the directory. avatar is always lifted out of Fields; a non-string
// avatar, which only hand-edited data can hold, projects as empty.
func (r UserRecord) Info() UserInfo {
	info := UserInfo{
		ID:        r.ID,
		Name:      r.FullName(),
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		UserType:  r.UserType,
	}
	fields := maps.Clone(r.Profile)
	info.Avatar, _ = fields[FieldAvatar].(string)
	delete(fields, FieldAvatar)
	if len(fields) > 0 {
		info.Fields = fields
	}
	return info
}

func (r UserRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Profile)+6)
	for k, v := range r.Profile {
		out[k] = v
	}
	out[keyID] = r.ID
	out[keyEmail] = r.Email
	out[keyPassword] = r.Password
	out[keyFirstName] = r.FirstName
	out[keyLastName] = r.LastName
	out[keyUserType] = r.UserType
	return json.Marshal(out)
}

func (r *UserRecord) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	var rec UserRecord
	if v, ok := raw[keyID]; ok {
		if err := json.Unmarshal(v, &rec.ID); err != nil {
			return err
		}
	}
	for key, dst := range map[string]*string{
		keyEmail:     &rec.Email,
		keyPassword:  &rec.Password,
		keyFirstName: &rec.FirstName,
		keyLastName:  &rec.LastName,
	} {
		if v, ok := raw[key]; ok {
			if err := json.Unmarshal(v, dst); err != nil {
				return fmt.Errorf("decode %s: %w", key, err)
			}
		}
	}
	if v, ok := raw[keyUserType]; ok {
		var ut string
		if err := json.Unmarshal(v, &ut); err != nil {
			return fmt.Errorf("decode %s: %w", keyUserType, err)
		}
		rec.UserType = UserType(ut)
	}

	for k, v := range raw {
		switch k {
		case keyID, keyEmail, keyPassword, keyFirstName, keyLastName, keyUserType:
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return fmt.Errorf("decode %s: %w", k, err)
		}
		if rec.Profile == nil {
			rec.Profile = make(map[string]any)
		}
		rec.Profile[k] = val
	}

	*r = rec
	return nil
}
