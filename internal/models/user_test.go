package models

import (
	"encoding/json"
	"testing"

	"github.com/dmitrijs2005/atelier/internal/common"
	"github.com/stretchr/testify/require"
)

func TestParseUserType(t *testing.T) {
	ut, err := ParseUserType(" Designer ")
	require.NoError(t, err)
	require.Equal(t, UserTypeDesigner, ut)

	_, err = ParseUserType("admin")
	require.ErrorIs(t, err, common.ErrInvalidUserType)
}

func TestUserRecord_UnmarshalLegacyFlatObject(t *testing.T) {
	raw := `{"id":"7","email":"a@x.com","password":"pw","firstName":"Ann","lastName":"Lee",
		"userType":"designer","phone":"123","avatar":"https://cdn/a.png","experience":4}`

	var rec UserRecord
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))

	require.Equal(t, UserID(7), rec.ID)
	require.Equal(t, "a@x.com", rec.Email)
	require.Equal(t, "pw", rec.Password)
	require.Equal(t, UserTypeDesigner, rec.UserType)
	require.Equal(t, "123", rec.Profile["phone"])
	require.Equal(t, float64(4), rec.Profile["experience"])
	require.NotContains(t, rec.Profile, "email")
}

func TestUserRecord_MarshalFlattensProfile(t *testing.T) {
	rec := UserRecord{ID: 3, Email: "b@x.com", Password: "p", FirstName: "B", UserType: UserTypeClient,
		Profile: map[string]any{"address": "Main st", "id": 99}}

	b, err := json.Marshal(rec)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	require.Equal(t, "Main st", m["address"])
	require.Equal(t, float64(3), m["id"], "struct id must win over a stray profile key")
	require.Equal(t, "client", m["userType"])
}

func TestUserRecord_Apply(t *testing.T) {
	rec := UserRecord{ID: 1, Email: "a@x.com", FirstName: "A", UserType: UserTypeClient}

	require.NoError(t, rec.Apply(map[string]any{
		"firstName": "Alice",
		"email":     "  new@x.com ",
		"phone":     "555",
	}))
	require.Equal(t, "Alice", rec.FirstName)
	require.Equal(t, "new@x.com", rec.Email)
	require.Equal(t, "555", rec.Profile["phone"])

	require.NoError(t, rec.Apply(map[string]any{"phone": nil}))
	require.NotContains(t, rec.Profile, "phone")

	require.ErrorIs(t, rec.Apply(map[string]any{"id": 5}), common.ErrImmutableField)
	require.ErrorIs(t, rec.Apply(map[string]any{"userType": "designer"}), common.ErrImmutableField)
	require.ErrorIs(t, rec.Apply(map[string]any{"lastName": 12}), common.ErrInvalidField)
	require.ErrorIs(t, rec.Apply(map[string]any{"name": "Ada Lovelace"}), common.ErrInvalidField)

	require.ErrorIs(t, rec.Apply(map[string]any{"avatar": 42}), common.ErrInvalidField)
	require.ErrorIs(t, rec.Apply(map[string]any{"avatar": map[string]any{"url": "a.png"}}), common.ErrInvalidField)
	require.NoError(t, rec.Apply(map[string]any{"avatar": "a.png"}))
	require.Equal(t, "a.png", rec.Info().Avatar)
	require.NoError(t, rec.Apply(map[string]any{"avatar": nil}))
	require.NotContains(t, rec.Profile, "avatar")
}

func TestValidateProfile(t *testing.T) {
	tests := []struct {
		name    string
		profile map[string]any
		wantErr bool
	}{
		{"nil", nil, false},
		{"plain fields", map[string]any{"phone": "555", "age": 3.0}, false},
		{"string avatar", map[string]any{"avatar": "a.png"}, false},
		{"numeric avatar", map[string]any{"avatar": 7.0}, true},
		{"object avatar", map[string]any{"avatar": map[string]any{"url": "a.png"}}, true},
		{"name shadows full name", map[string]any{"name": "Boss"}, true},
		{"id", map[string]any{"id": 9.0}, true},
		{"password", map[string]any{"password": "x"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProfile(tt.profile)
			if tt.wantErr {
				require.ErrorIs(t, err, common.ErrInvalidField)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestUserRecord_InfoLiftsNonStringAvatar(t *testing.T) {
	rec := UserRecord{ID: 1, Profile: map[string]any{"avatar": 42.0, "bio": "b"}}

	info := rec.Info()
	require.Empty(t, info.Avatar)
	require.Equal(t, map[string]any{"bio": "b"}, info.Fields)
}

func TestUserRecord_InfoExcludesPassword(t *testing.T) {
	rec := UserRecord{ID: 2, Email: "d@x.com", Password: "secret", FirstName: "Dee", LastName: "Zed",
		UserType: UserTypeDesigner, Profile: map[string]any{"avatar": "a.png", "bio": "tailor"}}

	info := rec.Info()
	require.Equal(t, UserID(2), info.ID)
	require.Equal(t, "Dee Zed", info.Name)
	require.Equal(t, "a.png", info.Avatar)
	require.Equal(t, "tailor", info.Fields["bio"])
	require.NotContains(t, info.Fields, "avatar")

	b, err := json.Marshal(info)
	require.NoError(t, err)
	require.NotContains(t, string(b), "secret")
	require.NotContains(t, string(b), "password")

	info.Fields["bio"] = "changed"
	require.Equal(t, "tailor", rec.Profile["bio"], "projection must not alias the record profile")
}

func TestUserID_UnmarshalRejectsGarbage(t *testing.T) {
	var id UserID
	require.Error(t, json.Unmarshal([]byte(`"abc"`), &id))
	require.Error(t, json.Unmarshal([]byte(`true`), &id))
}
