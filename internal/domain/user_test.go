package domain

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_Initials(t *testing.T) {
	tests := map[string]string{
		"Leanne Graham":        "LG",
		"Mrs. Dennis Schulist": "MD",
		"bret":                 "B",
		"  ervin   howell ":    "EH",
		"":                     "",
		"Élodie Ñúñez":         "ÉÑ",
	}
	for name, want := range tests {
		assert.Equal(t, want, User{Name: name}.Initials(), name)
	}
}

func TestUser_AvatarURL(t *testing.T) {
	u := User{Name: "Leanne Graham"}
	assert.Equal(t, "https://ui-avatars.com/api/?name=Leanne+Graham&background=6B73FF&color=fff&size=128", u.AvatarURL())

	for name, want := range map[string]string{
		"Tom & Jerry": "name=Tom+%26+Jerry&",
		"C# Team":     "name=C%23+Team&",
		"José Núñez":  "name=Jos%C3%A9+N%C3%BA%C3%B1ez&",
	} {
		got := User{Name: name}.AvatarURL()
		assert.Contains(t, got, want, name)
		parsed, err := url.Parse(got)
		require.NoError(t, err)
		assert.Equal(t, name, parsed.Query().Get("name"))
		assert.Equal(t, "128", parsed.Query().Get("size"))
	}
}

func TestUser_DecodeRemoteShape(t *testing.T) {
	raw := `{
	  "id": 1, "name": "Leanne Graham", "username": "Bret", "email": "Sincere@april.biz",
	  "address": {"street": "Kulas Light", "suite": "Apt. 556", "city": "Gwenborough",
	              "zipcode": "92998-3874", "geo": {"lat": "-37.3159", "lng": "81.1496"}},
	  "phone": "1-770-736-8031 x56442", "website": "hildegard.org",
	  "company": {"name": "Romaguera-Crona", "catchPhrase": "Multi-layered client-server neural-net", "bs": "harness real-time e-markets"}
	}`
	var u User
	require.NoError(t, json.Unmarshal([]byte(raw), &u))
	assert.Equal(t, 1, u.ID)
	assert.Equal(t, "Gwenborough", u.Address.City)
	assert.Equal(t, "81.1496", u.Address.Geo.Lng)
	assert.Equal(t, "Romaguera-Crona", u.Company.Name)
	assert.Equal(t, "harness real-time e-markets", u.Company.BS)

	var partial User
	require.NoError(t, json.Unmarshal([]byte(`{"id":3,"name":"X","username":"x","email":"x@y"}`), &partial))
	assert.Equal(t, "", partial.Phone)
	assert.Equal(t, "", partial.Company.Name)
}
