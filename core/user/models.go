package user

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Roles
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"

	// RoleGuest stands for "no authenticated user".
	RoleGuest = "guest"
)

var (
	AllRoles = []string{RoleAdmin, RoleTeacher, RoleStudent}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Teacher", Value: RoleTeacher},
		{Name: "Admin", Value: RoleAdmin},
	}
)

// NormalizeRole lowers and trims role; an empty role is RoleGuest.
func NormalizeRole(role string) string {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return RoleGuest
	}
	return role
}

func IsValidRole(role string) bool {
	role = NormalizeRole(role)
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// User is the profile record owned by the API.
type User struct {
	// identity
	ID       string `json:"id" db:"id"`
	Username string `json:"username" db:"username"`
	Role     string `json:"role" db:"role"`

	// personal
	FirstName string `json:"firstName" db:"first_name"`
	LastName  string `json:"lastName" db:"last_name"`
	Rank      string `json:"rank" db:"rank"`
	Division  string `json:"division" db:"division"`
	BirthDate string `json:"birthDate" db:"birth_date"` // YYYY-MM-DD
	Address   string `json:"address" db:"address"`
	Phone     string `json:"phone" db:"phone"`
	Email     string `json:"email" db:"email"`
	Education string `json:"education" db:"education"`
	Position  string `json:"position" db:"position"`

	// medical
	ChronicDiseases List   `json:"chronicDiseases" db:"chronic_diseases"`
	FoodAllergies   List   `json:"foodAllergies" db:"food_allergies"`
	DrugAllergies   List   `json:"drugAllergies" db:"drug_allergies"`
	MedicalNotes    string `json:"medicalNotes" db:"medical_notes"`

	// relative path or absolute URL
	Avatar string `json:"avatar" db:"avatar"`
}

// EditableKeys are the profile keys a user may change through a partial update, in display order.
var EditableKeys = []string{
	"firstName",
	"lastName",
	"rank",
	"division",
	"birthDate",
	"address",
	"phone",
	"email",
	"education",
	"position",
	"chronicDiseases",
	"foodAllergies",
	"drugAllergies",
	"medicalNotes",
}

func IsEditable(key string) bool {
	for _, k := range EditableKeys {
		if k == key {
			return true
		}
	}
	return false
}

func (u *User) RoleIs(role string) bool {
	return NormalizeRole(u.Role) == NormalizeRole(role)
}

func (u *User) IsAdmin() bool   { return u.RoleIs(RoleAdmin) }
func (u *User) IsTeacher() bool { return u.RoleIs(RoleTeacher) }
func (u *User) IsStudent() bool { return u.RoleIs(RoleStudent) }

// DisplayName is "first last", falling back to the username.
func (u *User) DisplayName() string {
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	return u.Username
}

// Clone returns a deep copy of u.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	usr := *u
	usr.ChronicDiseases = u.ChronicDiseases.Clone()
	usr.FoodAllergies = u.FoodAllergies.Clone()
	usr.DrugAllergies = u.DrugAllergies.Clone()
	return &usr
}

// Account is a User as stored by the API, with its credentials.
type Account struct {
	User
	PasswordHash []byte    `json:"-" db:"password_hash"`
	IsActive     bool      `json:"isActive" db:"is_active"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"` // UTC
	LastLogin    time.Time `json:"lastLogin" db:"last_login"` // UTC
}

func (a *Account) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

func (a *Account) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(pwd))
}

// NewAccount contains information needed to create a new Account.
type NewAccount struct {
	Username  string `json:"username" validate:"required,min=3,alphanum_"`
	Password  string `json:"password" validate:"required"`
	Role      string `json:"role" validate:"required,oneof=admin teacher student"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Rank      string `json:"rank"`
	Division  string `json:"division"`
	Email     string `json:"email" validate:"omitempty,email"`
}

// QueryFilter narrows an account listing.
type QueryFilter struct {
	Role   string `query:"role"`
	Search string `query:"search"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = strings.TrimSpace(qf.Search)
	if qf.Role != "" {
		qf.Role = NormalizeRole(qf.Role)
	}
}
