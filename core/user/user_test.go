package user

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainingcmd/portal/core"
)

func TestList_decode(t *testing.T) {
	tests := []struct {
		name string
		data string
		want List
	}{
		{name: "array", data: `["peanuts", "shrimp"]`, want: List{"peanuts", "shrimp"}},
		{name: "comma joined string", data: `"peanuts, shrimp ,"`, want: List{"peanuts", "shrimp"}},
		{name: "duplicates", data: `["peanuts", " peanuts", ""]`, want: List{"peanuts"}},
		{name: "null", data: `null`, want: List{}},
		{name: "empty string", data: `""`, want: List{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var l List
			require.NoError(t, json.Unmarshal([]byte(tc.data), &l))
			assert.Equal(t, tc.want, l)
		})
	}
}

func TestList_encode(t *testing.T) {
	data, err := json.Marshal(struct {
		L List `json:"l"`
	}{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"l": []}`, string(data))

	var l List
	require.NoError(t, l.Scan(`["a","b"]`))
	assert.Equal(t, List{"a", "b"}, l)
	require.NoError(t, l.Scan([]byte("a, b")))
	assert.Equal(t, List{"a", "b"}, l)
	assert.Error(t, l.Scan(42))

	v, err := List{"a"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["a"]`, v)
}

func TestDecodeFields(t *testing.T) {
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(`{
		"firstName": "Somchai",
		"phone": 812345678,
		"foodAllergies": "peanuts, shrimp",
		"drugAllergies": ["penicillin"],
		"medicalNotes": null,
		"unknown": true
	}`), &raw))

	flds, err := DecodeFields(raw)
	require.NoError(t, err)
	assert.Equal(t, Fields{
		"firstName":     "Somchai",
		"phone":         "812345678",
		"foodAllergies": List{"peanuts", "shrimp"},
		"drugAllergies": List{"penicillin"},
		"medicalNotes":  "",
	}, flds)

	_, err = DecodeFields(map[string]json.RawMessage{"phone": json.RawMessage(`{bad`)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `decoding "phone": `)
}

func TestUser_FieldsApply(t *testing.T) {
	usr := User{FirstName: "Somchai", FoodAllergies: List{"peanuts"}}
	flds := usr.Fields()
	assert.Len(t, flds, len(FieldKeys()))
	assert.Equal(t, List{}, flds["chronicDiseases"])

	usr.Apply(Fields{"lastName": "Suksan", "drugAllergies": "a, b", "bogus": "x"})
	assert.Equal(t, "Suksan", usr.LastName)
	assert.Equal(t, List{"a", "b"}, usr.DrugAllergies)
}

func TestNormalizeRole(t *testing.T) {
	tests := []struct {
		role, want string
	}{
		{" Admin ", RoleAdmin},
		{"TEACHER", RoleTeacher},
		{"", RoleGuest},
		{"intern", "intern"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, NormalizeRole(tc.role), tc.role)
	}
	assert.False(t, IsValidRole("intern"))
	assert.True(t, IsValidRole("Student"))
}

func TestValidatePassword(t *testing.T) {
	usr := User{Username: "somchai", FirstName: "Somchai", LastName: "Dee", Email: "somchai@unit.example"}
	tests := []struct {
		name, pwd, wantErr string
	}{
		{name: "too short", pwd: "abc123", wantErr: pwdMinLenText},
		{name: "whitespace", pwd: "abc 12345", wantErr: pwdNoSpaceText},
		{name: "numeric", pwd: "1234567890", wantErr: pwdNotAllNumText},
		{name: "similar to username", pwd: "somchai1", wantErr: pwdAttrSimText},
		{name: "valid", pwd: "Range-Day-42"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := validatePassword(tc.pwd, usr)
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, tc.wantErr)
			}
		})
	}
}

func TestValidateProfileFields(t *testing.T) {
	validate, _ := core.NewValidator()
	assert.NoError(t, validateProfileFields(validate, Fields{"email": "", "birthDate": "1990-01-31", "phone": "x"}))

	err := validateProfileFields(validate, Fields{"role": "admin", "email": "nope", "birthDate": "31/01/1990"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be a date")
}

func TestValidateProfileFields_emailMatchesNewAccount(t *testing.T) {
	validate, _ := core.NewValidator()
	tests := []struct {
		email string
		valid bool
	}{
		{email: "somchai@unit.test", valid: true},
		{email: "somchai.dee@hq.unit.test", valid: true},
		{email: "a@b..c", valid: false},
		{email: "a@.b.c", valid: false},
		{email: "nope", valid: false},
		{email: "a b@unit.test", valid: false},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			na := NewAccount{Username: "somchai", Password: "p4ssw0rd!x", Role: RoleStudent, Email: tt.email}
			assert.Equal(t, tt.valid, validate.Struct(na) == nil)

			err := validateProfileFields(validate, Fields{"email": tt.email})
			if tt.valid {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Equal(t, invalidEmailText, err.Error())
			}
		})
	}
}
