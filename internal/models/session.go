package models

import (
	"encoding/json"
	"fmt"
	"maps"
	"strings"

	"github.com/dmitrijs2005/atelier/internal/common"
)

// UserInfo is the denormalised projection of a UserRecord kept in the
// session. Type-specific profile fields live in Fields and are flattened into
// the JSON object.
type UserInfo struct {
	ID        UserID
	Name      string
	FirstName string
	LastName  string
	Email     string
	Avatar    string
	UserType  UserType
	Fields    map[string]any
}

func (u UserInfo) Clone() UserInfo {
	u.Fields = maps.Clone(u.Fields)
	return u
}

// Merge applies partial fields onto the projection. The password is rejected
// since it is never part of UserInfo.
func (u *UserInfo) Merge(partial map[string]any) error {
	for k, v := range partial {
		switch k {
		case keyID, keyUserType:
			return fmt.Errorf("%w: %s", common.ErrImmutableField, k)
		case keyPassword:
			return fmt.Errorf("%w: %s is not part of the session", common.ErrInvalidField, k)
		case keyEmail, keyFirstName, keyLastName, keyName, FieldAvatar:
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("%w: %s must be a string", common.ErrInvalidField, k)
			}
			switch k {
			case keyEmail:
				u.Email = common.NormalizeEmail(s)
			case keyFirstName:
				u.FirstName = s
			case keyLastName:
				u.LastName = s
			case keyName:
				u.Name = s
			case FieldAvatar:
				u.Avatar = s
			}
		default:
			if u.Fields == nil {
				u.Fields = make(map[string]any)
			}
			if v == nil {
				delete(u.Fields, k)
				continue
			}
			u.Fields[k] = v
		}
	}
	_, hasName := partial[keyName]
	_, hasFirst := partial[keyFirstName]
	_, hasLast := partial[keyLastName]
	if !hasName && (hasFirst || hasLast) {
		u.Name = strings.TrimSpace(u.FirstName + " " + u.LastName)
	}
	return nil
}

func (u UserInfo) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(u.Fields)+7)
	for k, v := range u.Fields {
		out[k] = v
	}
	out[keyID] = u.ID
	out[keyName] = u.Name
	out[keyFirstName] = u.FirstName
	out[keyLastName] = u.LastName
	out[keyEmail] = u.Email
	out[FieldAvatar] = u.Avatar
	out[keyUserType] = u.UserType
	return json.Marshal(out)
}

func (u *UserInfo) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	var info UserInfo
	if v, ok := raw[keyID]; ok {
		if err := json.Unmarshal(v, &info.ID); err != nil {
			return err
		}
	}
	var userType string
	for key, dst := range map[string]*string{
		keyName:      &info.Name,
		keyFirstName: &info.FirstName,
		keyLastName:  &info.LastName,
		keyEmail:     &info.Email,
		FieldAvatar:  &info.Avatar,
		keyUserType:  &userType,
	} {
		if v, ok := raw[key]; ok {
			if err := json.Unmarshal(v, dst); err != nil {
				return fmt.Errorf("decode %s: %w", key, err)
			}
		}
	}
	info.UserType = UserType(userType)

	for k, v := range raw {
		switch k {
		case keyID, keyName, keyFirstName, keyLastName, keyEmail, FieldAvatar, keyUserType:
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return fmt.Errorf("decode %s: %w", k, err)
		}
		if info.Fields == nil {
			info.Fields = make(map[string]any)
		}
		info.Fields[k] = val
	}

	*u = info
	return nil
}

// Session is the persisted "who is logged in" triple. The zero value is the
// logged-out session.
type Session struct {
	UserType        *UserType `json:"userType"`
	UserInfo        *UserInfo `json:"userInfo"`
	IsAuthenticated bool      `json:"isAuthenticated"`
}

// Valid reports whether a decoded session is internally consistent enough to
// be trusted as authenticated.
func (s Session) Valid() bool {
	if !s.IsAuthenticated || s.UserType == nil || s.UserInfo == nil {
		return false
	}
	switch *s.UserType {
	case UserTypeClient, UserTypeDesigner:
	default:
		return false
	}
	return s.UserInfo.ID > 0
}
